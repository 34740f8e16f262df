package ucrf

import (
	"log/slog"
	"time"
)

type options struct {
	modelDir       string
	runtimeLibrary string
	referenceYear  int
	logger         *slog.Logger
}

// Option configures a Forecaster.
type Option func(*options)

// WithModelDir sets the directory containing the trained models.
// Expects: reliability_clf.onnx, cost_reg.onnx.
func WithModelDir(dir string) Option {
	return func(o *options) {
		o.modelDir = dir
	}
}

// WithRuntimeLibrary sets the path of the ONNX Runtime shared library.
// By default the platform's library search path is used.
func WithRuntimeLibrary(path string) Option {
	return func(o *options) {
		o.runtimeLibrary = path
	}
}

// WithReferenceYear sets the year vehicle ages are computed against.
// Default: the current year.
func WithReferenceYear(year int) Option {
	return func(o *options) {
		o.referenceYear = year
	}
}

// WithLogger sets the logger used while loading models.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

func defaultOptions() options {
	return options{
		modelDir:      "models",
		referenceYear: time.Now().Year(),
	}
}
