package api

import (
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// vehicleSchema validates POST /vehicles bodies.
const vehicleSchema = `{
	"type": "object",
	"required": ["make", "model", "year"],
	"properties": {
		"make": {"type": "string", "minLength": 1},
		"model": {"type": "string", "minLength": 1},
		"year": {"type": "integer", "minimum": 1886, "maximum": 9999},
		"mileage": {"type": "integer", "minimum": 0},
		"engine_type": {"type": ["string", "null"]},
		"transmission": {"type": ["string", "null"]}
	}
}`

func compileSchema(name, src string) (*jsonschema.Schema, error) {
	c := jsonschema.NewCompiler()
	if err := c.AddResource(name, strings.NewReader(src)); err != nil {
		return nil, fmt.Errorf("api: add schema %s: %w", name, err)
	}
	s, err := c.Compile(name)
	if err != nil {
		return nil, fmt.Errorf("api: compile schema %s: %w", name, err)
	}
	return s, nil
}
