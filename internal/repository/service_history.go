package repository

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// SummaryServiceType marks service rows derived from average cost data
// rather than an actual service visit.
const SummaryServiceType = "summary"

const dateLayout = "2006-01-02"

// ServiceRecord is a stored service-history row.
type ServiceRecord struct {
	ID          int64     `json:"id"`
	VehicleID   int64     `json:"vehicle_id"`
	ServiceDate time.Time `json:"-"`
	ServiceType string    `json:"service_type"`
	Cost        float64   `json:"cost"`
}

type ServiceHistoryRepository interface {
	// AppendSummary records a summary service row for a vehicle.
	AppendSummary(ctx context.Context, vehicleID int64, date time.Time, cost float64) (int64, error)
	// List returns service rows, for one vehicle when vehicleID > 0.
	List(ctx context.Context, vehicleID int64) ([]ServiceRecord, error)
}

type serviceHistoryRepository struct {
	db     *DB
	logger *slog.Logger
}

func NewServiceHistoryRepository(db *DB, logger *slog.Logger) ServiceHistoryRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &serviceHistoryRepository{db: db, logger: logger}
}

func (r *serviceHistoryRepository) AppendSummary(ctx context.Context, vehicleID int64, date time.Time, cost float64) (int64, error) {
	var id int64
	err := r.db.sql.QueryRowContext(ctx, r.db.rebind(
		`INSERT INTO service_history (vehicle_id, service_date, service_type, cost) VALUES (?, ?, ?, ?) RETURNING id`),
		vehicleID, date.Format(dateLayout), SummaryServiceType, cost).Scan(&id)
	if err != nil {
		r.logger.Error("failed to append service summary", "vehicle_id", vehicleID, "error", err)
		return 0, fmt.Errorf("repository: append service summary: %w", err)
	}
	return id, nil
}

func (r *serviceHistoryRepository) List(ctx context.Context, vehicleID int64) ([]ServiceRecord, error) {
	q := `SELECT id, vehicle_id, service_date, service_type, cost FROM service_history`
	var args []any
	if vehicleID > 0 {
		q += ` WHERE vehicle_id = ?`
		args = append(args, vehicleID)
	}
	q += ` ORDER BY id`

	rows, err := r.db.sql.QueryContext(ctx, r.db.rebind(q), args...)
	if err != nil {
		r.logger.Error("failed to list service history", "vehicle_id", vehicleID, "error", err)
		return nil, fmt.Errorf("repository: list service history: %w", err)
	}
	defer rows.Close()

	out := []ServiceRecord{}
	for rows.Next() {
		var (
			s    ServiceRecord
			date string
		)
		if err := rows.Scan(&s.ID, &s.VehicleID, &date, &s.ServiceType, &s.Cost); err != nil {
			return nil, fmt.Errorf("repository: scan service record: %w", err)
		}
		if s.ServiceDate, err = time.Parse(dateLayout, date); err != nil {
			return nil, fmt.Errorf("repository: service record %d: bad date %q: %w", s.ID, date, err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
