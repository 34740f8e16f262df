package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/crimson-sun/ucrf/internal/engine/registry"
	"github.com/crimson-sun/ucrf/internal/model"
)

// Forecast constants. Likelihood is fixed rather than derived from model
// confidence.
const (
	ModelLikelihood    = 0.5
	FallbackLikelihood = 0.1
	RangeMonths        = 6
	UnknownIssue       = "unknown"
)

// ErrInference matches errors raised by a loaded artifact at prediction
// time.
var ErrInference = errors.New("engine: inference failed")

// InferenceError wraps a prediction failure of a named artifact.
type InferenceError struct {
	Artifact string
	Err      error
}

func (e *InferenceError) Error() string {
	return fmt.Sprintf("engine: inference failed in %s: %v", e.Artifact, e.Err)
}

func (e *InferenceError) Unwrap() error { return e.Err }

// Is reports ErrInference as a match.
func (e *InferenceError) Is(target error) bool { return target == ErrInference }

// Cache stores model forecasts by request.
type Cache interface {
	Get(ctx context.Context, req model.ForecastRequest) (model.ForecastResult, bool)
	Set(ctx context.Context, req model.ForecastRequest, res model.ForecastResult)
}

// Option configures an Engine.
type Option func(*Engine)

// WithCache enables caching of model forecasts.
func WithCache(c Cache) Option {
	return func(e *Engine) { e.cache = c }
}

// WithLogger sets the engine logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// Engine turns forecast requests into reliability/cost forecasts using the
// models held by a registry.
type Engine struct {
	registry      *registry.Registry
	referenceYear int
	cache         Cache
	logger        *slog.Logger
}

// New creates an Engine. referenceYear is the year vehicle ages are
// computed against.
func New(reg *registry.Registry, referenceYear int, opts ...Option) *Engine {
	e := &Engine{registry: reg, referenceYear: referenceYear}
	for _, o := range opts {
		o(e)
	}
	if e.logger == nil {
		e.logger = slog.Default()
	}
	return e
}

// Sentinel is the placeholder forecast returned when no model can serve a
// request.
func Sentinel() model.ForecastResult {
	return model.ForecastResult{
		PredictedIssue: UnknownIssue,
		Likelihood:     FallbackLikelihood,
		EstimatedCost:  0,
		RangeMonths:    RangeMonths,
	}
}

// Forecast returns a forecast for req. Missing models and alignment
// failures degrade to Sentinel with a nil error; a model that fails while
// predicting returns an *InferenceError.
func (e *Engine) Forecast(ctx context.Context, req model.ForecastRequest) (model.ForecastResult, error) {
	clf, reg, ok := e.registry.Models()
	if !ok {
		return Sentinel(), nil
	}

	if e.cache != nil {
		if res, hit := e.cache.Get(ctx, req); hit {
			return res, nil
		}
	}

	clfIn, err := clf.Plan.Align(req, e.referenceYear)
	if err != nil {
		e.logger.Debug("alignment failed, returning placeholder", "artifact", clf.Name, "error", err)
		return Sentinel(), nil
	}
	regIn, err := reg.Plan.Align(req, e.referenceYear)
	if err != nil {
		e.logger.Debug("alignment failed, returning placeholder", "artifact", reg.Name, "error", err)
		return Sentinel(), nil
	}

	label, err := predict(ctx, clf, clfIn)
	if err != nil {
		return model.ForecastResult{}, err
	}
	cost, err := predict(ctx, reg, regIn)
	if err != nil {
		return model.ForecastResult{}, err
	}

	res := model.ForecastResult{
		PredictedIssue: label.Label,
		Likelihood:     ModelLikelihood,
		EstimatedCost:  max(cost.Value, 0),
		RangeMonths:    RangeMonths,
	}
	if e.cache != nil {
		e.cache.Set(ctx, req, res)
	}
	return res, nil
}

// predict runs one artifact, converting errors and panics into an
// *InferenceError.
func predict(ctx context.Context, m *registry.Model, in model.Features) (p model.Prediction, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &InferenceError{Artifact: m.Name, Err: fmt.Errorf("panic: %v", r)}
		}
	}()
	p, err = m.Artifact.Predict(ctx, in)
	if err != nil {
		return model.Prediction{}, &InferenceError{Artifact: m.Name, Err: err}
	}
	return p, nil
}

// Health reports model availability.
func (e *Engine) Health() registry.Health {
	return e.registry.Health()
}

// ReferenceYear returns the year ages are computed against.
func (e *Engine) ReferenceYear() int {
	return e.referenceYear
}
