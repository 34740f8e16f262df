// Package testdata embeds raw vehicle source tables used across tests.
package testdata

import (
	"embed"
	"fmt"
)

//go:embed *.csv
var files embed.FS

// Source files.
const (
	// DealerInventory uses a "Manufacturer" column and mixed-case,
	// padded headers.
	DealerInventory = "dealer_inventory.csv"
	// NHTSAComplaints uses canonical headers and overlaps the inventory on
	// Ford/F150/2020 and Honda/Civic/2018.
	NHTSAComplaints = "nhtsa_complaints.csv"
)

// UniqueIdentities is the number of distinct (make, model, year) triples
// across both files.
const UniqueIdentities = 5

// Read returns the raw bytes of an embedded source file.
func Read(name string) ([]byte, error) {
	b, err := files.ReadFile(name)
	if err != nil {
		return nil, fmt.Errorf("testdata: %w", err)
	}
	return b, nil
}

// Names lists the embedded source files.
func Names() []string {
	return []string{DealerInventory, NHTSAComplaints}
}
