package file

import (
	"bufio"
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"sync"

	"github.com/crimson-sun/ucrf/internal/model"
	"github.com/crimson-sun/ucrf/internal/output"
)

const defaultBufSize = 64 * 1024 // 64KB

// Option configures a file Output.
type Option func(*Output)

// WithMaxSize sets the file size (bytes) at which rotation triggers.
// 0 (default) disables rotation.
func WithMaxSize(bytes int64) Option {
	return func(o *Output) { o.maxSize = bytes }
}

// WithBufSize sets the bufio.Writer buffer size. Default: 64KB.
func WithBufSize(bytes int) Option {
	return func(o *Output) { o.bufSize = bytes }
}

// Output writes enriched rows as CSV with buffered I/O and optional
// size-based rotation. Every file starts with a header row.
type Output struct {
	w       *bufio.Writer
	f       *os.File
	mu      sync.Mutex
	path    string
	columns []string
	header  bool  // header written to the current file
	maxSize int64 // 0 = no rotation
	written int64
	bufSize int
	scratch bytes.Buffer
}

// New creates a file output that writes CSV to the given path, replacing
// any existing file.
func New(path string, opts ...Option) (*Output, error) {
	o := &Output{
		path:    path,
		bufSize: defaultBufSize,
	}
	for _, opt := range opts {
		opt(o)
	}
	if err := o.openFile(); err != nil {
		return nil, err
	}
	return o, nil
}

// SetColumns fixes the header. Without it the header is taken from the
// first row written.
func (o *Output) SetColumns(columns []string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.header {
		return fmt.Errorf("file output: columns set after first write")
	}
	o.columns = append([]string(nil), columns...)
	return nil
}

// Write appends the row as a CSV record.
func (o *Output) Write(_ context.Context, row model.EnrichedRow) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.columns == nil {
		o.columns = output.Columns(row)
	}
	data, err := o.encode(output.Cells(row, o.columns))
	if err != nil {
		return fmt.Errorf("file output: encode: %w", err)
	}

	if o.maxSize > 0 && o.header && o.written+int64(len(data)) > o.maxSize {
		if err := o.rotate(); err != nil {
			return fmt.Errorf("file output: rotate: %w", err)
		}
	}
	if !o.header {
		if err := o.writeHeader(); err != nil {
			return err
		}
	}

	n, err := o.w.Write(data)
	o.written += int64(n)
	if err != nil {
		return fmt.Errorf("file output: write: %w", err)
	}
	return nil
}

func (o *Output) writeHeader() error {
	data, err := o.encode(o.columns)
	if err != nil {
		return fmt.Errorf("file output: encode header: %w", err)
	}
	n, err := o.w.Write(data)
	o.written += int64(n)
	if err != nil {
		return fmt.Errorf("file output: write header: %w", err)
	}
	o.header = true
	return nil
}

func (o *Output) encode(record []string) ([]byte, error) {
	o.scratch.Reset()
	cw := csv.NewWriter(&o.scratch)
	if err := cw.Write(record); err != nil {
		return nil, err
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return nil, err
	}
	return append([]byte(nil), o.scratch.Bytes()...), nil
}

// Close flushes the buffer and closes the file.
func (o *Output) Close() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if err := o.w.Flush(); err != nil {
		o.f.Close()
		return fmt.Errorf("file output: flush: %w", err)
	}
	return o.f.Close()
}

// openFile creates (or truncates) the output file and wraps it in a
// bufio.Writer.
func (o *Output) openFile() error {
	f, err := os.OpenFile(o.path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return fmt.Errorf("file output: open %s: %w", o.path, err)
	}
	o.f = f
	o.w = bufio.NewWriterSize(f, o.bufSize)
	o.written = 0
	o.header = false
	return nil
}

// rotate flushes, closes the current file, renames it to {path}.1
// (shifting existing rotated files), and opens a new file.
func (o *Output) rotate() error {
	if err := o.w.Flush(); err != nil {
		return err
	}
	if err := o.f.Close(); err != nil {
		return err
	}

	// Shift existing rotated files: .2 → .3, .1 → .2, current → .1
	for i := 9; i >= 1; i-- {
		from := fmt.Sprintf("%s.%d", o.path, i)
		to := fmt.Sprintf("%s.%d", o.path, i+1)
		os.Rename(from, to) // ignore errors — file may not exist
	}
	if err := os.Rename(o.path, o.path+".1"); err != nil {
		return err
	}

	return o.openFile()
}
