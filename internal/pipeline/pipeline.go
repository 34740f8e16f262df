// Package pipeline runs one-shot ingestion: read raw tables, normalize,
// enrich and write each enriched row to an output.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/crimson-sun/ucrf/internal/engine/enricher"
	"github.com/crimson-sun/ucrf/internal/engine/normalizer"
	"github.com/crimson-sun/ucrf/internal/model"
	"github.com/crimson-sun/ucrf/internal/output"
	"github.com/crimson-sun/ucrf/internal/source"
)

// Report summarizes a run.
type Report struct {
	RunID         uuid.UUID
	Sources       int
	RawRows       int
	CanonicalRows int
	Written       int
	Duration      time.Duration
}

// Pipeline connects sources, the enricher and an output.
type Pipeline struct {
	enricher *enricher.Enricher
	output   output.Output
	logger   *slog.Logger
}

// New creates a Pipeline from the given components.
func New(e *enricher.Enricher, out output.Output, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{enricher: e, output: out, logger: logger}
}

// Run reads every source, merges and enriches the rows, and writes them in
// order. A malformed value aborts the run before anything is written; the
// error wraps *enricher.TypeConversionError.
func (p *Pipeline) Run(ctx context.Context, sources ...source.Source) (Report, error) {
	start := time.Now()
	rep := Report{RunID: uuid.New(), Sources: len(sources)}
	log := p.logger.With("run_id", rep.RunID.String())

	tables := make([]model.Table, 0, len(sources))
	for _, s := range sources {
		if err := ctx.Err(); err != nil {
			return rep, err
		}
		t, err := s.Read(ctx)
		if err != nil {
			return rep, fmt.Errorf("pipeline read %s: %w", s.Name(), err)
		}
		log.Info("source read", "source", s.Name(), "rows", t.Len(), "columns", len(t.Columns))
		rep.RawRows += t.Len()
		tables = append(tables, t)
	}

	merged := normalizer.Normalize(tables...)
	rep.CanonicalRows = merged.Len()

	enriched, err := p.enricher.Enrich(merged)
	if err != nil {
		return rep, fmt.Errorf("pipeline enrich: %w", err)
	}

	if cs, ok := p.output.(output.ColumnSetter); ok {
		if err := cs.SetColumns(enriched.Columns); err != nil {
			return rep, fmt.Errorf("pipeline output: %w", err)
		}
	}

	for _, row := range enriched.Rows {
		if err := ctx.Err(); err != nil {
			return rep, err
		}
		if err := p.output.Write(ctx, row); err != nil {
			return rep, fmt.Errorf("pipeline output: %w", err)
		}
		rep.Written++
	}

	rep.Duration = time.Since(start)
	log.Info("ingestion complete",
		"sources", rep.Sources,
		"raw_rows", rep.RawRows,
		"canonical_rows", rep.CanonicalRows,
		"written", rep.Written,
		"duration", rep.Duration,
	)
	return rep, nil
}

// Close shuts down the output.
func (p *Pipeline) Close() error {
	return p.output.Close()
}
