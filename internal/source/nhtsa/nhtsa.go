// Package nhtsa fetches complaint and recall counts per vehicle from the
// NHTSA public API.
//
// Locations list vehicles as comma-separated make/model/year triples, e.g.
// "nhtsa:Ford/F150/2020,Honda/Civic/2018".
package nhtsa

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/crimson-sun/ucrf/internal/model"
	"github.com/crimson-sun/ucrf/internal/source"
	"github.com/crimson-sun/ucrf/internal/source/httpclient"
)

// DefaultEndpoint is the public NHTSA API base URL.
const DefaultEndpoint = "https://api.nhtsa.gov"

const (
	complaintsPath = "/complaints/complaintsByVehicle"
	recallsPath    = "/recalls/recallsByVehicle"
)

func init() {
	source.Register("nhtsa", func(loc string, env source.Env) (source.Source, error) {
		vehicles, err := ParseVehicles(loc)
		if err != nil {
			return nil, err
		}
		endpoint := env.NHTSAEndpoint
		if endpoint == "" {
			endpoint = DefaultEndpoint
		}
		return New(httpclient.New(endpoint, ""), vehicles), nil
	})
}

// Vehicle is one identity triple to look up.
type Vehicle struct {
	Make  string
	Model string
	Year  int
}

// ParseVehicles parses "make/model/year,..." into vehicles. An empty
// string yields none.
func ParseVehicles(s string) ([]Vehicle, error) {
	var out []Vehicle
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		fields := strings.Split(part, "/")
		if len(fields) != 3 {
			return nil, fmt.Errorf("nhtsa: %q is not make/model/year", part)
		}
		year, err := strconv.Atoi(strings.TrimSpace(fields[2]))
		if err != nil {
			return nil, fmt.Errorf("nhtsa: %q has an invalid year: %w", part, err)
		}
		out = append(out, Vehicle{
			Make:  strings.TrimSpace(fields[0]),
			Model: strings.TrimSpace(fields[1]),
			Year:  year,
		})
	}
	return out, nil
}

// countResponse matches both endpoints; the recalls API capitalizes
// "Count", which encoding/json matches case-insensitively.
type countResponse struct {
	Count int `json:"count"`
}

// Source queries the API once per vehicle.
type Source struct {
	client   *httpclient.Client
	vehicles []Vehicle
}

// New creates a source over client.
func New(client *httpclient.Client, vehicles []Vehicle) *Source {
	return &Source{client: client, vehicles: vehicles}
}

// Name returns "nhtsa:<n vehicles>".
func (s *Source) Name() string {
	return fmt.Sprintf("nhtsa:%d vehicles", len(s.vehicles))
}

// Read returns a make, model, year, complaints, recalls table. With no
// vehicles configured it returns an empty make, model, year, complaints
// table.
func (s *Source) Read(ctx context.Context) (model.Table, error) {
	if len(s.vehicles) == 0 {
		return model.Table{
			Columns: []string{model.ColMake, model.ColModel, model.ColYear, model.ColComplaints},
		}, nil
	}

	t := model.Table{
		Columns: []string{model.ColMake, model.ColModel, model.ColYear, model.ColComplaints, model.ColRecalls},
		Rows:    make([]model.Row, 0, len(s.vehicles)),
	}
	for _, v := range s.vehicles {
		q := url.Values{}
		q.Set("make", v.Make)
		q.Set("model", v.Model)
		q.Set("modelYear", strconv.Itoa(v.Year))

		var complaints, recalls countResponse
		if err := s.client.GetJSON(ctx, complaintsPath, q, &complaints); err != nil {
			return model.Table{}, fmt.Errorf("nhtsa: complaints for %s %s %d: %w", v.Make, v.Model, v.Year, err)
		}
		if err := s.client.GetJSON(ctx, recallsPath, q, &recalls); err != nil {
			return model.Table{}, fmt.Errorf("nhtsa: recalls for %s %s %d: %w", v.Make, v.Model, v.Year, err)
		}
		t.Rows = append(t.Rows, model.Row{
			model.ColMake:       v.Make,
			model.ColModel:      v.Model,
			model.ColYear:       int64(v.Year),
			model.ColComplaints: int64(complaints.Count),
			model.ColRecalls:    int64(recalls.Count),
		})
	}
	return t, nil
}
