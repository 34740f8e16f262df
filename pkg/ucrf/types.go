package ucrf

// Forecast is the reliability and cost forecast for one vehicle.
// This is the stable public type; internal representations may evolve
// independently.
type Forecast struct {
	PredictedIssue string  `json:"predicted_issue"`
	Likelihood     float64 `json:"likelihood"`
	EstimatedCost  float64 `json:"estimated_cost"`
	RangeMonths    int     `json:"range_months"`
}

// Health reports whether trained models serve forecasts.
type Health struct {
	ModelsAvailable bool   `json:"models_available"`
	Error           string `json:"error,omitempty"`
}

// Table is a raw vehicle table: ordered column names plus rows keyed by
// column. Values are nil, string, int64, float64 or bool.
type Table struct {
	Columns []string
	Rows    []map[string]any
}

// Prepared is a merged, deduplicated table with the derived feature
// columns vehicle_age, complaint_rate, recall_count and avg_service_cost
// filled in on every row.
type Prepared struct {
	Columns []string
	Rows    []map[string]any
}
