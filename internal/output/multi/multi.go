package multi

import (
	"context"
	"errors"

	"github.com/crimson-sun/ucrf/internal/model"
	"github.com/crimson-sun/ucrf/internal/output"
)

// Multi fans out rows to multiple output.Output implementations.
// Each Write call delivers the row to every wrapped output sequentially.
// If one output fails, the remaining outputs still receive the row.
type Multi struct {
	outputs []output.Output
}

// New creates a Multi that fans out to the given outputs.
func New(outputs ...output.Output) *Multi {
	return &Multi{outputs: outputs}
}

// SetColumns forwards the column layout to every wrapped output that
// accepts one.
func (m *Multi) SetColumns(columns []string) error {
	var errs []error
	for _, o := range m.outputs {
		if cs, ok := o.(output.ColumnSetter); ok {
			if err := cs.SetColumns(columns); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}

// Write delivers the row to every wrapped output. Errors are collected
// but do not prevent delivery to subsequent outputs.
func (m *Multi) Write(ctx context.Context, row model.EnrichedRow) error {
	var errs []error
	for _, o := range m.outputs {
		if err := o.Write(ctx, row); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Close calls Close on every wrapped output, collecting errors.
func (m *Multi) Close() error {
	var errs []error
	for _, o := range m.outputs {
		if err := o.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
