// Package file reads raw vehicle tables from local CSV and XLSX files.
package file

import (
	"context"
	"fmt"
	"os"

	"github.com/crimson-sun/ucrf/internal/model"
	"github.com/crimson-sun/ucrf/internal/source"
)

func init() {
	source.Register("csv", func(loc string, _ source.Env) (source.Source, error) {
		return New(loc, FormatCSV), nil
	})
	source.Register("xlsx", func(loc string, _ source.Env) (source.Source, error) {
		return New(loc, FormatXLSX), nil
	})
}

// Format selects the decoder.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
)

// Source reads one local file.
type Source struct {
	path   string
	format Format
}

// New creates a file source.
func New(path string, format Format) *Source {
	return &Source{path: path, format: format}
}

// Name returns "<format>:<path>".
func (s *Source) Name() string {
	return string(s.format) + ":" + s.path
}

// Read opens and decodes the file.
func (s *Source) Read(ctx context.Context) (model.Table, error) {
	if err := ctx.Err(); err != nil {
		return model.Table{}, err
	}
	f, err := os.Open(s.path)
	if err != nil {
		return model.Table{}, fmt.Errorf("file: %w", err)
	}
	defer f.Close()

	var t model.Table
	switch s.format {
	case FormatXLSX:
		t, err = source.DecodeXLSX(f)
	default:
		t, err = source.DecodeCSV(f)
	}
	if err != nil {
		return model.Table{}, fmt.Errorf("file: %s: %w", s.path, err)
	}
	return t, nil
}
