// Package catalog holds the make/model taxonomy served to clients that
// build vehicle pickers.
package catalog

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// ErrNotFound is returned when the catalog file does not exist.
var ErrNotFound = errors.New("catalog: not found")

// Make is one manufacturer and the models it sells.
type Make struct {
	Name   string   `yaml:"name" json:"name"`
	Models []string `yaml:"models" json:"models"`
}

// Catalog is the static make/model tree. It is read once and never
// mutated, so it is safe to share.
type Catalog struct {
	Makes []Make `yaml:"makes" json:"makes"`
}

// Load reads a YAML catalog from path.
func Load(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
	}
	if err != nil {
		return nil, fmt.Errorf("catalog: read %s: %w", path, err)
	}
	c, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%w (%s)", err, path)
	}
	return c, nil
}

// Parse decodes a YAML catalog. Names are trimmed, blank entries dropped
// and duplicate makes merged.
func Parse(data []byte) (*Catalog, error) {
	var raw Catalog
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("catalog: parse: %w", err)
	}

	c := &Catalog{}
	index := make(map[string]int)
	for _, m := range raw.Makes {
		name := strings.TrimSpace(m.Name)
		if name == "" {
			continue
		}
		key := strings.ToLower(name)
		i, ok := index[key]
		if !ok {
			i = len(c.Makes)
			index[key] = i
			c.Makes = append(c.Makes, Make{Name: name, Models: []string{}})
		}
		for _, model := range m.Models {
			if model = strings.TrimSpace(model); model != "" && !containsFold(c.Makes[i].Models, model) {
				c.Makes[i].Models = append(c.Makes[i].Models, model)
			}
		}
	}
	return c, nil
}

// Models returns the models listed for a make, matched case-insensitively.
func (c *Catalog) Models(name string) ([]string, bool) {
	for _, m := range c.Makes {
		if strings.EqualFold(m.Name, strings.TrimSpace(name)) {
			return m.Models, true
		}
	}
	return nil, false
}

// Contains reports whether the make/model pair is listed.
func (c *Catalog) Contains(makeName, model string) bool {
	models, ok := c.Models(makeName)
	return ok && containsFold(models, strings.TrimSpace(model))
}

func containsFold(list []string, s string) bool {
	for _, x := range list {
		if strings.EqualFold(x, s) {
			return true
		}
	}
	return false
}
