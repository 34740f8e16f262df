package model

import "sort"

// Row maps a column name to a scalar value. Scalars are nil, string,
// int64, float64 or bool; readers never produce nested values.
type Row map[string]any

// Table is an ordered set of rows sharing a column layout. Columns keeps
// the header order of the source; a row may lack keys for some columns.
type Table struct {
	Columns []string
	Rows    []Row
}

// Len returns the number of rows.
func (t Table) Len() int {
	return len(t.Rows)
}

// ColumnNames returns Columns, or the sorted union of row keys when the
// table was built without a header.
func (t Table) ColumnNames() []string {
	if len(t.Columns) > 0 {
		return t.Columns
	}
	set := make(map[string]bool)
	for _, r := range t.Rows {
		for k := range r {
			set[k] = true
		}
	}
	names := make([]string, 0, len(set))
	for k := range set {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// Canonical column names.
const (
	ColMake           = "make"
	ColModel          = "model"
	ColYear           = "year"
	ColMileage        = "mileage"
	ColEngineType     = "engine_type"
	ColTransmission   = "transmission"
	ColComplaints     = "complaints"
	ColRecalls        = "recalls"
	ColAvgServiceCost = "avg_service_cost"
)

// Derived column names added by enrichment.
const (
	ColVehicleAge    = "vehicle_age"
	ColComplaintRate = "complaint_rate"
	ColRecallCount   = "recall_count"
)

// EnrichedRow is a canonical row plus the computed feature columns.
type EnrichedRow struct {
	Row            Row
	VehicleAge     int
	ComplaintRate  float64
	RecallCount    int
	AvgServiceCost float64
}

// Record flattens the row and its derived fields into a single Row.
// The original map is not modified.
func (r EnrichedRow) Record() Row {
	out := make(Row, len(r.Row)+4)
	for k, v := range r.Row {
		out[k] = v
	}
	out[ColVehicleAge] = int64(r.VehicleAge)
	out[ColComplaintRate] = r.ComplaintRate
	out[ColRecallCount] = int64(r.RecallCount)
	out[ColAvgServiceCost] = r.AvgServiceCost
	return out
}

// Make returns the make column as text, or "" when absent.
func (r EnrichedRow) Make() string { return Text(r.Row[ColMake]) }

// Model returns the model column as text, or "" when absent.
func (r EnrichedRow) Model() string { return Text(r.Row[ColModel]) }

// Year returns the vehicle year. Enrichment guarantees it is coercible.
func (r EnrichedRow) Year() int {
	y, _ := ToInt(r.Row[ColYear])
	return int(y)
}

// EnrichedTable is the output of enrichment. Columns lists the canonical
// columns followed by the derived ones, without duplicates.
type EnrichedTable struct {
	Columns []string
	Rows    []EnrichedRow
}
