package catalog

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

const sample = `
makes:
  - name: Toyota
    models: [Camry, Corolla]
  - name: " ford "
    models: [F150, "", f150]
  - name: TOYOTA
    models: [camry, RAV4]
  - name: ""
    models: [Ghost]
`

func TestParse(t *testing.T) {
	c, err := Parse([]byte(sample))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	want := []Make{
		{Name: "Toyota", Models: []string{"Camry", "Corolla", "RAV4"}},
		{Name: "ford", Models: []string{"F150"}},
	}
	if !reflect.DeepEqual(c.Makes, want) {
		t.Errorf("Makes = %+v, want %+v", c.Makes, want)
	}
}

func TestParseInvalid(t *testing.T) {
	if _, err := Parse([]byte("makes: [unterminated")); err == nil {
		t.Error("expected a parse error")
	}
}

func TestModelsAndContains(t *testing.T) {
	c, err := Parse([]byte(sample))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if models, ok := c.Models("FORD"); !ok || len(models) != 1 {
		t.Errorf("Models(FORD) = %v, %v", models, ok)
	}
	if _, ok := c.Models("Lada"); ok {
		t.Error("Models(Lada) should not be found")
	}
	tests := []struct {
		makeName, model string
		want            bool
	}{
		{"toyota", "rav4", true},
		{"Toyota", " Camry ", true},
		{"Toyota", "F150", false},
		{"Lada", "Niva", false},
	}
	for _, tt := range tests {
		if got := c.Contains(tt.makeName, tt.model); got != tt.want {
			t.Errorf("Contains(%q, %q) = %v, want %v", tt.makeName, tt.model, got, tt.want)
		}
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.yaml")
	if err := os.WriteFile(path, []byte(sample), 0o644); err != nil {
		t.Fatal(err)
	}
	c, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(c.Makes) != 2 {
		t.Errorf("got %d makes, want 2", len(c.Makes))
	}
}

func TestLoadMissing(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestDefault(t *testing.T) {
	c := Default()
	if !c.Contains("Toyota", "Camry") || !c.Contains("ford", "f150") {
		t.Error("default catalog misses the fixture vehicles")
	}
	seen := map[string]bool{}
	for _, m := range c.Makes {
		if seen[m.Name] {
			t.Errorf("duplicate make %q", m.Name)
		}
		seen[m.Name] = true
		if len(m.Models) == 0 {
			t.Errorf("make %q has no models", m.Name)
		}
	}
}
