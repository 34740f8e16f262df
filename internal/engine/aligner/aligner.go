// Package aligner builds model inputs from forecast requests for artifacts
// whose expected schema is only known at load time.
package aligner

import (
	"errors"
	"fmt"
	"strings"

	"github.com/crimson-sun/ucrf/internal/model"
)

// ErrFeatureComputationUnavailable is returned by Align when the artifact
// needs input the numeric feature builders cannot produce.
var ErrFeatureComputationUnavailable = errors.New("aligner: feature computation unavailable")

// defaultWidth is used when an artifact declares neither names nor width.
const defaultWidth = 2

// Kind identifies the alignment strategy picked for an artifact.
type Kind int

const (
	Named Kind = iota
	Width
	Unavailable
)

func (k Kind) String() string {
	switch k {
	case Named:
		return "named"
	case Width:
		return "width"
	case Unavailable:
		return "unavailable"
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Role is the request attribute a declared input column is filled from.
type Role int

const (
	RoleDefault Role = iota
	RoleMileage
	RoleAge
	RoleYear
	RoleMake
	RoleModel
)

func (r Role) String() string {
	switch r {
	case RoleMileage:
		return "mileage"
	case RoleAge:
		return "age"
	case RoleYear:
		return "year"
	case RoleMake:
		return "make"
	case RoleModel:
		return "model"
	}
	return "default"
}

// Rule maps column names containing Substring to Role.
type Rule struct {
	Substring string
	Role      Role
}

// Rules are checked in order against the lower-cased column name; the
// first match wins. "mile" precedes "age" so that "mileage" is not an age.
var Rules = []Rule{
	{Substring: "mile", Role: RoleMileage},
	{Substring: "age", Role: RoleAge},
	{Substring: "year", Role: RoleYear},
	{Substring: "make", Role: RoleMake},
	{Substring: "model", Role: RoleModel},
}

// Classify returns the role of a declared column name.
func Classify(name string) Role {
	lower := strings.ToLower(name)
	for _, r := range Rules {
		if strings.Contains(lower, r.Substring) {
			return r.Role
		}
	}
	return RoleDefault
}

// Plan is the alignment strategy for one artifact. It is selected once
// at load and reused for every request.
type Plan struct {
	kind   Kind
	names  []string
	roles  []Role
	width  int
	reason error
}

// Select picks the first available tier for an artifact schema.
func Select(s model.Schema) Plan {
	if s.Unsupported != nil {
		return Plan{kind: Unavailable, reason: s.Unsupported}
	}
	if len(s.Names) > 0 {
		names := append([]string(nil), s.Names...)
		roles := make([]Role, len(names))
		for i, n := range names {
			roles[i] = Classify(n)
		}
		return Plan{kind: Named, names: names, roles: roles}
	}
	w := s.Width
	if w <= 0 {
		w = defaultWidth
	}
	return Plan{kind: Width, width: w}
}

// Kind returns the selected tier.
func (p Plan) Kind() Kind { return p.kind }

// Names returns the declared column names of a Named plan.
func (p Plan) Names() []string { return p.names }

// Width returns the vector width of a Width plan.
func (p Plan) Width() int { return p.width }

// Align builds the model input for req. It only fails for Unavailable
// plans.
func (p Plan) Align(req model.ForecastRequest, referenceYear int) (model.Features, error) {
	age := referenceYear - req.Year
	switch p.kind {
	case Named:
		row := make([]model.Feature, len(p.names))
		for i, name := range p.names {
			var v any
			switch p.roles[i] {
			case RoleMileage:
				v = float64(req.Mileage)
			case RoleAge:
				v = float64(age)
			case RoleYear:
				v = float64(req.Year)
			case RoleMake:
				v = req.Make
			case RoleModel:
				v = req.Model
			default:
				v = 0.0
			}
			row[i] = model.Feature{Name: name, Value: v}
		}
		return model.Features{Named: row}, nil
	case Width:
		vec := make([]float64, p.width)
		vec[0] = float64(age)
		if p.width > 1 {
			vec[1] = float64(req.Mileage)
		}
		return model.Features{Vector: vec}, nil
	}
	if p.reason != nil {
		return model.Features{}, fmt.Errorf("%w: %v", ErrFeatureComputationUnavailable, p.reason)
	}
	return model.Features{}, ErrFeatureComputationUnavailable
}
