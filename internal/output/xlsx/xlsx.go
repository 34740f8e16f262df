// Package xlsx writes enriched rows to an Excel workbook.
package xlsx

import (
	"context"
	"fmt"
	"sync"

	"github.com/xuri/excelize/v2"

	"github.com/crimson-sun/ucrf/internal/model"
	"github.com/crimson-sun/ucrf/internal/output"
)

// Sheet is the name of the sheet rows are written to.
const Sheet = "Vehicles"

// Output buffers rows in a workbook and saves it on Close.
type Output struct {
	mu      sync.Mutex
	path    string
	f       *excelize.File
	columns []string
	row     int // next row number, 1-based
}

// New creates a workbook output saved to path on Close.
func New(path string) (*Output, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName(f.GetSheetName(0), Sheet); err != nil {
		f.Close()
		return nil, fmt.Errorf("xlsx output: %w", err)
	}
	return &Output{path: path, f: f, row: 1}, nil
}

// SetColumns fixes the header row. Without it the header is taken from
// the first row written.
func (o *Output) SetColumns(columns []string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.row > 1 {
		return fmt.Errorf("xlsx output: columns set after first write")
	}
	o.columns = append([]string(nil), columns...)
	return nil
}

func (o *Output) Write(_ context.Context, row model.EnrichedRow) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.columns == nil {
		o.columns = output.Columns(row)
	}
	if o.row == 1 {
		header := make([]any, len(o.columns))
		for i, c := range o.columns {
			header[i] = c
		}
		if err := o.setRow(header); err != nil {
			return err
		}
	}
	return o.setRow(output.Values(row, o.columns))
}

func (o *Output) setRow(values []any) error {
	cell, err := excelize.CoordinatesToCellName(1, o.row)
	if err != nil {
		return fmt.Errorf("xlsx output: %w", err)
	}
	if err := o.f.SetSheetRow(Sheet, cell, &values); err != nil {
		return fmt.Errorf("xlsx output: row %d: %w", o.row, err)
	}
	o.row++
	return nil
}

// Close saves the workbook.
func (o *Output) Close() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if err := o.f.SaveAs(o.path); err != nil {
		o.f.Close()
		return fmt.Errorf("xlsx output: save %s: %w", o.path, err)
	}
	return o.f.Close()
}
