package testdata

import (
	"bytes"
	"testing"
)

func TestReadAll(t *testing.T) {
	for _, name := range Names() {
		b, err := Read(name)
		if err != nil {
			t.Fatalf("Read(%s) error: %v", name, err)
		}
		lines := bytes.Count(b, []byte("\n"))
		if lines < 2 {
			t.Errorf("%s has %d lines, want a header and rows", name, lines)
		}
	}
}

func TestReadMissing(t *testing.T) {
	if _, err := Read("missing.csv"); err == nil {
		t.Error("expected error for unknown file")
	}
}
