package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
)

// Vehicle is a stored vehicle record.
type Vehicle struct {
	ID           int64   `json:"id"`
	Make         string  `json:"make"`
	Model        string  `json:"model"`
	Year         int     `json:"year"`
	Mileage      int     `json:"mileage"`
	EngineType   *string `json:"engine_type,omitempty"`
	Transmission *string `json:"transmission,omitempty"`
}

type VehicleRepository interface {
	// GetOrCreate returns the first vehicle with v's identity triple,
	// inserting v when none exists. created reports an insert.
	GetOrCreate(ctx context.Context, v Vehicle) (stored Vehicle, created bool, err error)
	Create(ctx context.Context, v Vehicle) (int64, error)
	List(ctx context.Context, skip, limit int) ([]Vehicle, error)
}

type vehicleRepository struct {
	db     *DB
	logger *slog.Logger
}

func NewVehicleRepository(db *DB, logger *slog.Logger) VehicleRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &vehicleRepository{db: db, logger: logger}
}

const vehicleColumns = `id, make, model, year, mileage, engine_type, transmission`

func (r *vehicleRepository) GetOrCreate(ctx context.Context, v Vehicle) (Vehicle, bool, error) {
	row := r.db.sql.QueryRowContext(ctx, r.db.rebind(
		`SELECT `+vehicleColumns+` FROM vehicles WHERE make = ? AND model = ? AND year = ? ORDER BY id LIMIT 1`),
		v.Make, v.Model, v.Year)
	found, err := scanVehicle(row)
	if err == nil {
		return found, false, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		r.logger.Error("failed to look up vehicle", "make", v.Make, "model", v.Model, "year", v.Year, "error", err)
		return Vehicle{}, false, fmt.Errorf("repository: find vehicle: %w", err)
	}

	id, err := r.Create(ctx, v)
	if err != nil {
		return Vehicle{}, false, err
	}
	v.ID = id
	return v, true, nil
}

func (r *vehicleRepository) Create(ctx context.Context, v Vehicle) (int64, error) {
	var id int64
	err := r.db.sql.QueryRowContext(ctx, r.db.rebind(
		`INSERT INTO vehicles (make, model, year, mileage, engine_type, transmission) VALUES (?, ?, ?, ?, ?, ?) RETURNING id`),
		v.Make, v.Model, v.Year, v.Mileage, v.EngineType, v.Transmission).Scan(&id)
	if err != nil {
		r.logger.Error("failed to create vehicle", "make", v.Make, "model", v.Model, "year", v.Year, "error", err)
		return 0, fmt.Errorf("repository: create vehicle: %w", err)
	}
	return id, nil
}

func (r *vehicleRepository) List(ctx context.Context, skip, limit int) ([]Vehicle, error) {
	rows, err := r.db.sql.QueryContext(ctx, r.db.rebind(
		`SELECT `+vehicleColumns+` FROM vehicles ORDER BY id LIMIT ? OFFSET ?`), limit, skip)
	if err != nil {
		r.logger.Error("failed to list vehicles", "error", err)
		return nil, fmt.Errorf("repository: list vehicles: %w", err)
	}
	defer rows.Close()

	out := []Vehicle{}
	for rows.Next() {
		v, err := scanVehicle(rows)
		if err != nil {
			return nil, fmt.Errorf("repository: scan vehicle: %w", err)
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanVehicle(s scanner) (Vehicle, error) {
	var (
		v            Vehicle
		engine, tran sql.NullString
	)
	if err := s.Scan(&v.ID, &v.Make, &v.Model, &v.Year, &v.Mileage, &engine, &tran); err != nil {
		return Vehicle{}, err
	}
	if engine.Valid {
		v.EngineType = &engine.String
	}
	if tran.Valid {
		v.Transmission = &tran.String
	}
	return v, nil
}
