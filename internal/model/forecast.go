package model

// ForecastRequest carries the attributes a forecast is computed from.
type ForecastRequest struct {
	Make    string `json:"make"`
	Model   string `json:"model"`
	Year    int    `json:"year"`
	Mileage int    `json:"mileage"`
}

// ForecastResult is the reliability/cost forecast returned to callers.
type ForecastResult struct {
	PredictedIssue string  `json:"predicted_issue"`
	Likelihood     float64 `json:"likelihood"`
	EstimatedCost  float64 `json:"estimated_cost"`
	RangeMonths    int     `json:"range_months"`
}

// Schema is what a trained artifact advertises about its expected input.
// Names is the ordered list of declared input columns, Width the declared
// input vector width (0 when not advertised).
type Schema struct {
	Names []string
	Width int
	// Unsupported is non-nil when the artifact expects input the numeric
	// feature builders cannot produce.
	Unsupported error
}

// Feature is one named model input.
type Feature struct {
	Name  string
	Value any
}

// Features is an aligned model input: a named row when the artifact
// declares column names, otherwise a positional vector.
type Features struct {
	Named  []Feature
	Vector []float64
}

// IsNamed reports whether the input is keyed by column name.
func (f Features) IsNamed() bool {
	return f.Named != nil
}

// Lookup returns the value of a named feature.
func (f Features) Lookup(name string) (any, bool) {
	for _, ft := range f.Named {
		if ft.Name == name {
			return ft.Value, true
		}
	}
	return nil, false
}

// Numeric returns the input as a float vector. Text values (make, model)
// encode as 0 even when they look like numbers.
func (f Features) Numeric() []float64 {
	if !f.IsNamed() {
		return f.Vector
	}
	out := make([]float64, len(f.Named))
	for i, ft := range f.Named {
		if _, text := ft.Value.(string); text {
			continue
		}
		if v, ok := ToFloat(ft.Value); ok {
			out[i] = v
		}
	}
	return out
}

// Prediction is the first output of an artifact for a single input row.
// Label is the output rendered as text, Value the output as a number.
type Prediction struct {
	Label string
	Value float64
}
