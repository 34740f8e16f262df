package xlsx

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crimson-sun/ucrf/internal/model"
	"github.com/crimson-sun/ucrf/internal/source"
)

func TestWriteWorkbook(t *testing.T) {
	path := filepath.Join(t.TempDir(), "processed.xlsx")
	out, err := New(path)
	require.NoError(t, err)
	require.NoError(t, out.SetColumns([]string{"make", "model", "year", "vehicle_age", "avg_service_cost"}))

	rows := []model.EnrichedRow{
		{Row: model.Row{"make": "Ford", "model": "F150", "year": int64(2020)}, VehicleAge: 5},
		{Row: model.Row{"make": "Honda", "model": "Civic", "year": int64(2018)}, VehicleAge: 7, AvgServiceCost: 310},
	}
	for _, r := range rows {
		require.NoError(t, out.Write(context.Background(), r))
	}
	require.NoError(t, out.Close())

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	// Read it back through the xlsx source decoder.
	tbl, err := source.DecodeXLSX(f)
	require.NoError(t, err)
	assert.Equal(t, []string{"make", "model", "year", "vehicle_age", "avg_service_cost"}, tbl.Columns)
	require.Equal(t, 2, tbl.Len())
	assert.Equal(t, "Honda", tbl.Rows[1]["make"])
	assert.Equal(t, int64(7), tbl.Rows[1]["vehicle_age"])
	assert.Equal(t, int64(310), tbl.Rows[1]["avg_service_cost"])
}

func TestSetColumnsAfterWrite(t *testing.T) {
	out, err := New(filepath.Join(t.TempDir(), "x.xlsx"))
	require.NoError(t, err)
	require.NoError(t, out.Write(context.Background(), model.EnrichedRow{Row: model.Row{"year": int64(2020)}}))
	assert.Error(t, out.SetColumns([]string{"year"}))
	require.NoError(t, out.Close())
}
