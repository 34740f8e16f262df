package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crimson-sun/ucrf/internal/model"
	"github.com/crimson-sun/ucrf/internal/repository"
)

type identity struct {
	make, model string
	year        int
}

type fakeVehicles struct {
	byIdentity map[identity]repository.Vehicle
	nextID     int64
	err        error
}

func (f *fakeVehicles) GetOrCreate(_ context.Context, v repository.Vehicle) (repository.Vehicle, bool, error) {
	if f.err != nil {
		return repository.Vehicle{}, false, f.err
	}
	key := identity{v.Make, v.Model, v.Year}
	if found, ok := f.byIdentity[key]; ok {
		return found, false, nil
	}
	f.nextID++
	v.ID = f.nextID
	f.byIdentity[key] = v
	return v, true, nil
}

func (f *fakeVehicles) Create(context.Context, repository.Vehicle) (int64, error) {
	return 0, errors.New("not used")
}

func (f *fakeVehicles) List(context.Context, int, int) ([]repository.Vehicle, error) {
	return nil, nil
}

type summary struct {
	vehicleID int64
	date      time.Time
	cost      float64
}

type fakeHistory struct {
	rows []summary
	err  error
}

func (f *fakeHistory) AppendSummary(_ context.Context, vehicleID int64, date time.Time, cost float64) (int64, error) {
	if f.err != nil {
		return 0, f.err
	}
	f.rows = append(f.rows, summary{vehicleID, date, cost})
	return int64(len(f.rows)), nil
}

func (f *fakeHistory) List(context.Context, int64) ([]repository.ServiceRecord, error) {
	return nil, nil
}

var today = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func newStore() (*Store, *fakeVehicles, *fakeHistory) {
	v := &fakeVehicles{byIdentity: map[identity]repository.Vehicle{}}
	h := &fakeHistory{}
	return New(v, h, WithClock(func() time.Time { return today })), v, h
}

func enriched(mk, mdl string, year int64, cost float64, extra model.Row) model.EnrichedRow {
	row := model.Row{model.ColMake: mk, model.ColModel: mdl, model.ColYear: year}
	for k, v := range extra {
		row[k] = v
	}
	return model.EnrichedRow{Row: row, AvgServiceCost: cost}
}

func TestWriteCreatesVehicleAndSummary(t *testing.T) {
	s, vehicles, history := newStore()

	err := s.Write(context.Background(), enriched("Toyota", "Camry", 2015, 420.5, model.Row{
		model.ColMileage:      int64(50000),
		model.ColTransmission: "automatic",
	}))
	require.NoError(t, err)

	v := vehicles.byIdentity[identity{"Toyota", "Camry", 2015}]
	assert.Equal(t, 50000, v.Mileage)
	require.NotNil(t, v.Transmission)
	assert.Equal(t, "automatic", *v.Transmission)
	assert.Nil(t, v.EngineType)

	require.Len(t, history.rows, 1)
	assert.Equal(t, summary{v.ID, today, 420.5}, history.rows[0])
}

func TestWriteSkipsSummaryForZeroCost(t *testing.T) {
	s, vehicles, history := newStore()

	require.NoError(t, s.Write(context.Background(), enriched("Ford", "F150", 2020, 0, nil)))
	assert.Len(t, vehicles.byIdentity, 1)
	assert.Empty(t, history.rows)
}

func TestWriteReusesExistingVehicle(t *testing.T) {
	s, vehicles, history := newStore()
	ctx := context.Background()

	require.NoError(t, s.Write(ctx, enriched("Honda", "Civic", 2018, 310, nil)))
	require.NoError(t, s.Write(ctx, enriched("Honda", "Civic", 2018, 290, nil)))

	assert.Len(t, vehicles.byIdentity, 1)
	require.Len(t, history.rows, 2)
	assert.Equal(t, history.rows[0].vehicleID, history.rows[1].vehicleID)
	assert.Equal(t, 1, s.created)
	assert.Equal(t, 2, s.appended)
}

func TestWriteErrors(t *testing.T) {
	t.Run("vehicle", func(t *testing.T) {
		s, vehicles, history := newStore()
		vehicles.err = errors.New("db down")

		err := s.Write(context.Background(), enriched("Kia", "Rio", 2016, 100, nil))
		assert.ErrorContains(t, err, "db down")
		assert.Empty(t, history.rows)
	})
	t.Run("history", func(t *testing.T) {
		s, _, history := newStore()
		history.err = errors.New("constraint violation")

		err := s.Write(context.Background(), enriched("Kia", "Rio", 2016, 100, nil))
		assert.ErrorContains(t, err, "constraint violation")
	})
}

func TestMileageAndOptionalText(t *testing.T) {
	assert.Equal(t, 0, mileage(nil))
	assert.Equal(t, 0, mileage("lots"))
	assert.Equal(t, 61000, mileage(61000.0))
	assert.Nil(t, optionalText(nil))
	assert.Nil(t, optionalText("  "))
	assert.Equal(t, "hybrid", *optionalText("hybrid"))
}
