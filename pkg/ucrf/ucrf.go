package ucrf

import (
	"context"
	"fmt"
	"io"

	"github.com/crimson-sun/ucrf/internal/artifact"
	"github.com/crimson-sun/ucrf/internal/engine"
	"github.com/crimson-sun/ucrf/internal/engine/enricher"
	"github.com/crimson-sun/ucrf/internal/engine/normalizer"
	"github.com/crimson-sun/ucrf/internal/engine/onnxmodel"
	"github.com/crimson-sun/ucrf/internal/engine/registry"
	"github.com/crimson-sun/ucrf/internal/model"
	"github.com/crimson-sun/ucrf/internal/source"
)

// Forecaster serves vehicle forecasts from trained models.
// Safe for concurrent use.
type Forecaster struct {
	engine   *engine.Engine
	registry *registry.Registry
}

// New creates a Forecaster, loading both models from the model directory.
// Missing or unusable models do not fail New; see Health.
func New(opts ...Option) (*Forecaster, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	if o.referenceYear < 1900 {
		return nil, fmt.Errorf("ucrf: reference year %d is out of range", o.referenceYear)
	}

	regOpts := []registry.Option{}
	if o.logger != nil {
		regOpts = append(regOpts, registry.WithLogger(o.logger))
	}
	reg := registry.New(artifact.NewDirStore(o.modelDir), onnxmodel.Decoder(o.runtimeLibrary), regOpts...)
	reg.Load(context.Background())

	engOpts := []engine.Option{}
	if o.logger != nil {
		engOpts = append(engOpts, engine.WithLogger(o.logger))
	}
	return &Forecaster{engine: engine.New(reg, o.referenceYear, engOpts...), registry: reg}, nil
}

// Forecast returns the forecast for one vehicle.
func (f *Forecaster) Forecast(makeName, modelName string, year, mileage int) (Forecast, error) {
	return f.ForecastContext(context.Background(), makeName, modelName, year, mileage)
}

// ForecastContext is Forecast with a caller-supplied context.
func (f *Forecaster) ForecastContext(ctx context.Context, makeName, modelName string, year, mileage int) (Forecast, error) {
	res, err := f.engine.Forecast(ctx, model.ForecastRequest{Make: makeName, Model: modelName, Year: year, Mileage: mileage})
	if err != nil {
		return Forecast{}, fmt.Errorf("ucrf: %w", err)
	}
	return Forecast(res), nil
}

// Health reports model availability.
func (f *Forecaster) Health() Health {
	h := f.registry.Health()
	return Health{ModelsAvailable: h.Available, Error: h.Error}
}

// Close releases model resources.
func (f *Forecaster) Close() error {
	return f.registry.Close()
}

// ReadCSV decodes a raw vehicle table. Empty cells become nil and numeric
// cells are parsed.
func ReadCSV(r io.Reader) (Table, error) {
	t, err := source.DecodeCSV(r)
	if err != nil {
		return Table{}, fmt.Errorf("ucrf: %w", err)
	}
	return tableFromModel(t), nil
}

// Prepare merges raw tables into one row per vehicle (the last occurrence
// wins) and derives the feature columns used for training.
func Prepare(referenceYear int, tables ...Table) (Prepared, error) {
	in := make([]model.Table, len(tables))
	for i, t := range tables {
		in[i] = tableToModel(t)
	}
	enriched, err := enricher.New(referenceYear).Enrich(normalizer.Normalize(in...))
	if err != nil {
		return Prepared{}, fmt.Errorf("ucrf: %w", err)
	}

	out := Prepared{Columns: enriched.Columns, Rows: make([]map[string]any, len(enriched.Rows))}
	for i, r := range enriched.Rows {
		out.Rows[i] = r.Record()
	}
	return out, nil
}

func tableToModel(t Table) model.Table {
	rows := make([]model.Row, len(t.Rows))
	for i, r := range t.Rows {
		rows[i] = model.Row(r)
	}
	return model.Table{Columns: t.Columns, Rows: rows}
}

func tableFromModel(t model.Table) Table {
	rows := make([]map[string]any, len(t.Rows))
	for i, r := range t.Rows {
		rows[i] = r
	}
	return Table{Columns: t.Columns, Rows: rows}
}
