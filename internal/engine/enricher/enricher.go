package enricher

import (
	"fmt"

	"github.com/crimson-sun/ucrf/internal/model"
)

// TypeConversionError reports a cell that could not be coerced to the
// numeric type a derived feature needs.
type TypeConversionError struct {
	Row    int
	Column string
	Value  any
}

func (e *TypeConversionError) Error() string {
	return fmt.Sprintf("enricher: row %d: cannot convert %s value %v (%T) to a number", e.Row, e.Column, e.Value, e.Value)
}

// Enricher derives model features from canonical rows against a fixed
// reference year.
type Enricher struct {
	referenceYear int
}

// New creates an Enricher. vehicle_age is computed as referenceYear - year.
func New(referenceYear int) *Enricher {
	return &Enricher{referenceYear: referenceYear}
}

// ReferenceYear returns the year ages are computed against.
func (e *Enricher) ReferenceYear() int {
	return e.referenceYear
}

// Enrich produces one EnrichedRow per canonical row. A year that cannot be
// coerced to an integer, or a present non-numeric feature value, fails the
// whole table; no partial result is returned.
func (e *Enricher) Enrich(t model.Table) (model.EnrichedTable, error) {
	rows := make([]model.EnrichedRow, 0, len(t.Rows))
	for i, r := range t.Rows {
		er, err := e.enrichRow(i, r)
		if err != nil {
			return model.EnrichedTable{}, err
		}
		rows = append(rows, er)
	}
	return model.EnrichedTable{Columns: enrichedColumns(t.ColumnNames()), Rows: rows}, nil
}

func (e *Enricher) enrichRow(i int, r model.Row) (model.EnrichedRow, error) {
	year, ok := model.ToInt(r[model.ColYear])
	if !ok {
		return model.EnrichedRow{}, &TypeConversionError{Row: i, Column: model.ColYear, Value: r[model.ColYear]}
	}

	complaints, err := floatOrZero(i, r, model.ColComplaints)
	if err != nil {
		return model.EnrichedRow{}, err
	}
	recalls, err := intOrZero(i, r, model.ColRecalls)
	if err != nil {
		return model.EnrichedRow{}, err
	}
	cost, err := floatOrZero(i, r, model.ColAvgServiceCost)
	if err != nil {
		return model.EnrichedRow{}, err
	}

	return model.EnrichedRow{
		Row:            r,
		VehicleAge:     e.referenceYear - int(year),
		ComplaintRate:  complaints,
		RecallCount:    int(recalls),
		AvgServiceCost: cost,
	}, nil
}

// floatOrZero reads an optional numeric column. Absent columns and
// missing values resolve to 0.
func floatOrZero(i int, r model.Row, col string) (float64, error) {
	v, ok := r[col]
	if !ok || model.IsMissing(v) {
		return 0, nil
	}
	f, ok := model.ToFloat(v)
	if !ok {
		return 0, &TypeConversionError{Row: i, Column: col, Value: v}
	}
	return f, nil
}

func intOrZero(i int, r model.Row, col string) (int64, error) {
	v, ok := r[col]
	if !ok || model.IsMissing(v) {
		return 0, nil
	}
	n, ok := model.ToInt(v)
	if !ok {
		return 0, &TypeConversionError{Row: i, Column: col, Value: v}
	}
	return n, nil
}

var derived = []string{
	model.ColVehicleAge,
	model.ColComplaintRate,
	model.ColRecallCount,
	model.ColAvgServiceCost,
}

func enrichedColumns(cols []string) []string {
	out := make([]string, 0, len(cols)+len(derived))
	seen := make(map[string]bool, len(cols)+len(derived))
	for _, c := range append(append([]string{}, cols...), derived...) {
		if seen[c] {
			continue
		}
		seen[c] = true
		out = append(out, c)
	}
	return out
}
