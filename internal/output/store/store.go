// Package store persists enriched rows through the vehicle and service
// history repositories.
package store

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/crimson-sun/ucrf/internal/model"
	"github.com/crimson-sun/ucrf/internal/repository"
)

// Option configures a Store.
type Option func(*Store)

// WithClock sets the clock that dates service summaries.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) { s.logger = l }
}

// Store writes each row as a vehicle (looked up by make, model and year,
// created when new) plus a summary service-history entry when the row
// carries a non-zero average service cost. Rows are committed one by one.
type Store struct {
	vehicles repository.VehicleRepository
	history  repository.ServiceHistoryRepository
	now      func() time.Time
	logger   *slog.Logger

	created  int
	appended int
}

// New creates a Store over the given repositories.
func New(vehicles repository.VehicleRepository, history repository.ServiceHistoryRepository, opts ...Option) *Store {
	s := &Store{vehicles: vehicles, history: history, now: time.Now}
	for _, o := range opts {
		o(s)
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	return s
}

// Write persists one row.
func (s *Store) Write(ctx context.Context, row model.EnrichedRow) error {
	v := repository.Vehicle{
		Make:         row.Make(),
		Model:        row.Model(),
		Year:         row.Year(),
		Mileage:      mileage(row.Row[model.ColMileage]),
		EngineType:   optionalText(row.Row[model.ColEngineType]),
		Transmission: optionalText(row.Row[model.ColTransmission]),
	}
	stored, created, err := s.vehicles.GetOrCreate(ctx, v)
	if err != nil {
		return fmt.Errorf("store: vehicle %s %s %d: %w", v.Make, v.Model, v.Year, err)
	}
	if created {
		s.created++
	}

	if row.AvgServiceCost == 0 {
		return nil
	}
	if _, err := s.history.AppendSummary(ctx, stored.ID, s.now(), row.AvgServiceCost); err != nil {
		return fmt.Errorf("store: service summary for vehicle %d: %w", stored.ID, err)
	}
	s.appended++
	return nil
}

// Close logs what was written. The repositories are owned by the caller.
func (s *Store) Close() error {
	s.logger.Info("store output closed", "vehicles_created", s.created, "summaries_appended", s.appended)
	return nil
}

// mileage is 0 when absent or non-numeric, as the vehicles table requires
// a value.
func mileage(v any) int {
	n, _ := model.ToInt(v)
	return int(n)
}

func optionalText(v any) *string {
	if model.IsMissing(v) {
		return nil
	}
	s := model.Text(v)
	return &s
}
