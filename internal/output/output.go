package output

import (
	"context"

	"github.com/crimson-sun/ucrf/internal/model"
)

// Output defines the interface for enriched row destinations.
type Output interface {
	Write(ctx context.Context, row model.EnrichedRow) error
	Close() error
}

// ColumnSetter is implemented by outputs with a fixed column layout. The
// pipeline calls SetColumns once, before the first Write.
type ColumnSetter interface {
	SetColumns(columns []string) error
}
