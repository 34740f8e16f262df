// Package source reads raw vehicle tables from files, object storage and
// remote APIs. Implementations register themselves by scheme.
package source

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/crimson-sun/ucrf/internal/blob"
	"github.com/crimson-sun/ucrf/internal/model"
)

// Source produces one raw table per Read.
type Source interface {
	// Name identifies the source in logs, e.g. "csv:data/inventory.csv".
	Name() string
	Read(ctx context.Context) (model.Table, error)
}

// Env carries the shared settings sources may need.
type Env struct {
	// NHTSAEndpoint overrides the NHTSA API base URL.
	NHTSAEndpoint string
	// S3 is the client used by s3 sources. When nil one is built from
	// the default AWS credential chain on first use.
	S3       blob.GetObjectAPI
	S3Region string
}

// Spec is a parsed "scheme:location" source reference.
type Spec struct {
	Scheme   string
	Location string
}

func (s Spec) String() string {
	return s.Scheme + ":" + s.Location
}

// ParseSpec splits "scheme:location". A bare path ending in .csv or .xlsx
// is accepted as shorthand for the matching file scheme.
func ParseSpec(s string) (Spec, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Spec{}, fmt.Errorf("source: empty spec")
	}
	scheme, loc, ok := strings.Cut(s, ":")
	if ok && len(scheme) > 1 {
		return Spec{Scheme: strings.ToLower(scheme), Location: loc}, nil
	}
	switch strings.ToLower(extension(s)) {
	case ".csv":
		return Spec{Scheme: "csv", Location: s}, nil
	case ".xlsx":
		return Spec{Scheme: "xlsx", Location: s}, nil
	}
	return Spec{}, fmt.Errorf("source: spec %q has no scheme", s)
}

func extension(p string) string {
	if i := strings.LastIndex(p, "."); i >= 0 && !strings.ContainsAny(p[i:], `/\`) {
		return p[i:]
	}
	return ""
}

// Constructor creates a Source for a location.
type Constructor func(location string, env Env) (Source, error)

var registry = map[string]Constructor{}

// Register adds a source constructor under the given scheme.
func Register(scheme string, ctor Constructor) {
	registry[scheme] = ctor
}

// Get returns the constructor for the given scheme.
func Get(scheme string) (Constructor, error) {
	ctor, ok := registry[scheme]
	if !ok {
		return nil, fmt.Errorf("unknown source scheme: %s", scheme)
	}
	return ctor, nil
}

// Schemes returns the registered schemes, sorted.
func Schemes() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Open parses spec and constructs the matching source.
func Open(spec string, env Env) (Source, error) {
	s, err := ParseSpec(spec)
	if err != nil {
		return nil, err
	}
	ctor, err := Get(s.Scheme)
	if err != nil {
		return nil, err
	}
	return ctor(s.Location, env)
}
