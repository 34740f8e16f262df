// Package registry loads the forecasting models once at startup and
// exposes them read-only to the forecast engine.
package registry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/crimson-sun/ucrf/internal/artifact"
	"github.com/crimson-sun/ucrf/internal/engine/aligner"
	"github.com/crimson-sun/ucrf/internal/model"
)

// Default artifact names.
const (
	ClassifierName = "reliability_clf"
	RegressorName  = "cost_reg"
)

// Artifact is a loaded predictor.
type Artifact interface {
	Schema() model.Schema
	Predict(ctx context.Context, in model.Features) (model.Prediction, error)
	Close() error
}

// Decoder deserializes artifact bytes into a predictor.
type Decoder func(name string, data []byte) (Artifact, error)

// Model is a loaded artifact with its alignment plan.
type Model struct {
	Name     string
	Artifact Artifact
	Plan     aligner.Plan
}

// ArtifactHealth describes one loaded artifact.
type ArtifactHealth struct {
	Name       string   `json:"name"`
	Plan       string   `json:"plan"`
	InputWidth int      `json:"input_width,omitempty"`
	InputNames []string `json:"input_names,omitempty"`
}

// Health is the read-only status report of the registry.
type Health struct {
	Available  bool            `json:"available"`
	Error      string          `json:"error,omitempty"`
	Classifier *ArtifactHealth `json:"classifier,omitempty"`
	Regressor  *ArtifactHealth `json:"regressor,omitempty"`
}

// Option configures a Registry.
type Option func(*Registry)

// WithLogger sets the logger used to report load failures.
func WithLogger(l *slog.Logger) Option {
	return func(r *Registry) { r.logger = l }
}

// WithNames overrides the classifier and regressor artifact names.
func WithNames(classifier, regressor string) Option {
	return func(r *Registry) {
		r.clfName = classifier
		r.regName = regressor
	}
}

// Registry holds the classifier and regressor. After Load the fields are
// never written again, so concurrent readers need no locking.
type Registry struct {
	store   artifact.Store
	decode  Decoder
	logger  *slog.Logger
	clfName string
	regName string

	once sync.Once
	clf  *Model
	reg  *Model
	err  error
}

// New creates an unloaded Registry.
func New(store artifact.Store, decode Decoder, opts ...Option) *Registry {
	r := &Registry{
		store:   store,
		decode:  decode,
		clfName: ClassifierName,
		regName: RegressorName,
	}
	for _, o := range opts {
		o(r)
	}
	if r.logger == nil {
		r.logger = slog.Default()
	}
	return r
}

// Load reads both artifacts. Only the first call has any effect. Load
// failures leave the registry unavailable and are reported through the
// logger and Health, never returned.
func (r *Registry) Load(ctx context.Context) {
	r.once.Do(func() {
		clf, err := r.loadOne(ctx, r.clfName)
		if err != nil {
			r.fail(err)
			return
		}
		reg, err := r.loadOne(ctx, r.regName)
		if err != nil {
			closeQuietly(clf.Artifact)
			r.fail(err)
			return
		}
		r.clf, r.reg = clf, reg
		r.logger.Info("models loaded",
			"classifier", clf.Name, "classifier_plan", clf.Plan.Kind().String(),
			"regressor", reg.Name, "regressor_plan", reg.Plan.Kind().String())
	})
}

func (r *Registry) fail(err error) {
	r.err = err
	r.logger.Warn("models unavailable, serving placeholder forecasts", "error", err)
}

func (r *Registry) loadOne(ctx context.Context, name string) (m *Model, err error) {
	defer func() {
		if p := recover(); p != nil {
			m, err = nil, fmt.Errorf("registry: decoding %s panicked: %v", name, p)
		}
	}()

	if r.store == nil || r.decode == nil {
		return nil, errors.New("registry: no artifact store configured")
	}
	data, err := r.store.Load(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("registry: loading %s: %w", name, err)
	}
	a, err := r.decode(name, data)
	if err != nil {
		return nil, fmt.Errorf("registry: decoding %s: %w", name, err)
	}
	return &Model{Name: name, Artifact: a, Plan: aligner.Select(a.Schema())}, nil
}

// Models returns the classifier and regressor. ok is false unless both
// loaded.
func (r *Registry) Models() (classifier, regressor *Model, ok bool) {
	if r.clf == nil || r.reg == nil {
		return nil, nil, false
	}
	return r.clf, r.reg, true
}

// Available reports whether forecasts can use the models.
func (r *Registry) Available() bool {
	_, _, ok := r.Models()
	return ok
}

// Health reports availability and the declared schema of each artifact.
func (r *Registry) Health() Health {
	h := Health{Available: r.Available()}
	if r.err != nil {
		h.Error = r.err.Error()
	}
	if h.Available {
		h.Classifier = describe(r.clf)
		h.Regressor = describe(r.reg)
	}
	return h
}

func describe(m *Model) *ArtifactHealth {
	s := m.Artifact.Schema()
	return &ArtifactHealth{
		Name:       m.Name,
		Plan:       m.Plan.Kind().String(),
		InputWidth: s.Width,
		InputNames: s.Names,
	}
}

// Close releases both artifacts.
func (r *Registry) Close() error {
	var errs []error
	for _, m := range []*Model{r.clf, r.reg} {
		if m != nil {
			if err := m.Artifact.Close(); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}

func closeQuietly(a Artifact) {
	if a != nil {
		_ = a.Close()
	}
}
