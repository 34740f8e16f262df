package source

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/crimson-sun/ucrf/internal/model"
)

// DecodeCSV reads a CSV document whose first record is the header. Cells
// are typed with model.ParseScalar; short records leave trailing columns
// nil.
func DecodeCSV(r io.Reader) (model.Table, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	records, err := cr.ReadAll()
	if err != nil {
		return model.Table{}, fmt.Errorf("source: parsing csv: %w", err)
	}
	return fromRecords(records)
}

// DecodeXLSX reads the first sheet of a workbook. The first row is the
// header.
func DecodeXLSX(r io.Reader) (model.Table, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return model.Table{}, fmt.Errorf("source: opening xlsx: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return model.Table{}, errors.New("source: workbook has no sheets")
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return model.Table{}, fmt.Errorf("source: reading sheet %s: %w", sheets[0], err)
	}
	return fromRecords(rows)
}

func fromRecords(records [][]string) (model.Table, error) {
	if len(records) == 0 {
		return model.Table{}, nil
	}
	header := records[0]
	t := model.Table{
		Columns: append([]string(nil), header...),
		Rows:    make([]model.Row, 0, len(records)-1),
	}
	for _, rec := range records[1:] {
		if blank(rec) {
			continue
		}
		row := make(model.Row, len(header))
		for i, col := range header {
			var v any
			if i < len(rec) {
				v = model.ParseScalar(rec[i])
			}
			row[col] = v
		}
		t.Rows = append(t.Rows, row)
	}
	return t, nil
}

func blank(rec []string) bool {
	for _, c := range rec {
		if c != "" {
			return false
		}
	}
	return true
}
