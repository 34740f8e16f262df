package output

import (
	"sort"

	"github.com/crimson-sun/ucrf/internal/model"
)

// Columns returns the layout to write r with when no column list was set:
// the record's keys in sorted order.
func Columns(r model.EnrichedRow) []string {
	rec := r.Record()
	cols := make([]string, 0, len(rec))
	for k := range rec {
		cols = append(cols, k)
	}
	sort.Strings(cols)
	return cols
}

// Values returns the record values of r in column order. Absent columns
// yield nil.
func Values(r model.EnrichedRow, columns []string) []any {
	rec := r.Record()
	out := make([]any, len(columns))
	for i, c := range columns {
		out[i] = rec[c]
	}
	return out
}

// Cells is Values rendered as text, for CSV-like sinks.
func Cells(r model.EnrichedRow, columns []string) []string {
	vals := Values(r, columns)
	out := make([]string, len(vals))
	for i, v := range vals {
		out[i] = model.Text(v)
	}
	return out
}
