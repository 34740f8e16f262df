package ucrf

import (
	"bytes"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/crimson-sun/ucrf/internal/engine/testdata"
)

// testModelDir holds exported models for the integration tests.
const testModelDir = "../../models"

func skipWithoutModel(t *testing.T) {
	t.Helper()
	if os.Getenv("UCRF_ONNX_LIB") == "" {
		t.Skip("UCRF_ONNX_LIB not set, skipping ONNX integration test")
	}
	if _, err := os.Stat(filepath.Join(testModelDir, "reliability_clf.onnx")); os.IsNotExist(err) {
		t.Skip("ONNX model not available, skipping integration test")
	}
}

func TestNewWithoutModelsFallsBack(t *testing.T) {
	f, err := New(WithModelDir(t.TempDir()))
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	defer f.Close()

	h := f.Health()
	if h.ModelsAvailable || h.Error == "" {
		t.Errorf("Health() = %+v, want unavailable with error", h)
	}

	fc, err := f.Forecast("Toyota", "Camry", 2015, 50000)
	if err != nil {
		t.Fatalf("Forecast() error: %v", err)
	}
	want := Forecast{PredictedIssue: "unknown", Likelihood: 0.1, EstimatedCost: 0, RangeMonths: 6}
	if fc != want {
		t.Errorf("Forecast() = %+v, want %+v", fc, want)
	}
}

func TestNewBadReferenceYear(t *testing.T) {
	if _, err := New(WithReferenceYear(0)); err == nil {
		t.Fatal("expected error for reference year 0")
	}
}

func TestDefaultReferenceYearIsCurrentYear(t *testing.T) {
	if got, want := defaultOptions().referenceYear, time.Now().Year(); got != want {
		t.Errorf("referenceYear = %d, want %d", got, want)
	}
	o := defaultOptions()
	WithReferenceYear(2030)(&o)
	if o.referenceYear != 2030 {
		t.Errorf("WithReferenceYear not applied, got %d", o.referenceYear)
	}
}

func TestForecastConcurrent(t *testing.T) {
	f, err := New(WithModelDir(t.TempDir()))
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	defer f.Close()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(year int) {
			defer wg.Done()
			if _, err := f.Forecast("Ford", "F150", year, 1000); err != nil {
				t.Errorf("Forecast(%d): %v", year, err)
			}
		}(2000 + i)
	}
	wg.Wait()
}

func TestForecastWithModels(t *testing.T) {
	skipWithoutModel(t)

	f, err := New(WithModelDir(testModelDir), WithRuntimeLibrary(os.Getenv("UCRF_ONNX_LIB")))
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	defer f.Close()

	if !f.Health().ModelsAvailable {
		t.Skipf("models not usable: %s", f.Health().Error)
	}
	fc, err := f.Forecast("Toyota", "Camry", 2015, 50000)
	if err != nil {
		t.Fatalf("Forecast() error: %v", err)
	}
	if fc.Likelihood != 0.5 || fc.RangeMonths != 6 || fc.EstimatedCost < 0 {
		t.Errorf("Forecast() = %+v", fc)
	}
}

func readFixture(t *testing.T, name string) Table {
	t.Helper()
	b, err := testdata.Read(name)
	if err != nil {
		t.Fatal(err)
	}
	tbl, err := ReadCSV(bytes.NewReader(b))
	if err != nil {
		t.Fatalf("ReadCSV(%s): %v", name, err)
	}
	return tbl
}

func TestPrepare(t *testing.T) {
	p, err := Prepare(2025,
		readFixture(t, testdata.DealerInventory),
		readFixture(t, testdata.NHTSAComplaints))
	if err != nil {
		t.Fatalf("Prepare() error: %v", err)
	}
	if len(p.Rows) != testdata.UniqueIdentities {
		t.Fatalf("got %d rows, want %d", len(p.Rows), testdata.UniqueIdentities)
	}
	for _, r := range p.Rows {
		for _, col := range []string{"vehicle_age", "complaint_rate", "recall_count", "avg_service_cost"} {
			if _, ok := r[col]; !ok {
				t.Errorf("row %v missing %s", r["model"], col)
			}
		}
	}
	if age := p.Rows[0]["vehicle_age"]; age != int64(10) {
		t.Errorf("camry vehicle_age = %v, want 10", age)
	}
}

func TestPrepareMalformedYear(t *testing.T) {
	tbl := Table{
		Columns: []string{"make", "model", "year"},
		Rows:    []map[string]any{{"make": "Ford", "model": "F150", "year": "twenty twenty"}},
	}
	if _, err := Prepare(2025, tbl); err == nil {
		t.Fatal("expected error for malformed year")
	}
}
