package output

import (
	"reflect"
	"testing"

	"github.com/crimson-sun/ucrf/internal/model"
)

func baseRow() model.EnrichedRow {
	return model.EnrichedRow{
		Row:            model.Row{"make": "Ford", "model": "F150", "year": int64(2020), "mileage": nil},
		VehicleAge:     5,
		ComplaintRate:  14,
		RecallCount:    2,
		AvgServiceCost: 0,
	}
}

func TestColumns(t *testing.T) {
	want := []string{"avg_service_cost", "complaint_rate", "make", "mileage", "model", "recall_count", "vehicle_age", "year"}
	if got := Columns(baseRow()); !reflect.DeepEqual(got, want) {
		t.Errorf("Columns = %v, want %v", got, want)
	}
}

func TestValues(t *testing.T) {
	got := Values(baseRow(), []string{"make", "vehicle_age", "missing"})
	want := []any{"Ford", int64(5), nil}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Values = %v, want %v", got, want)
	}
}

func TestCells(t *testing.T) {
	got := Cells(baseRow(), []string{"make", "year", "mileage", "complaint_rate", "avg_service_cost"})
	want := []string{"Ford", "2020", "", "14", "0"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Cells = %v, want %v", got, want)
	}
}
