package engine

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/crimson-sun/ucrf/internal/artifact"
	"github.com/crimson-sun/ucrf/internal/cache"
	"github.com/crimson-sun/ucrf/internal/engine/registry"
	"github.com/crimson-sun/ucrf/internal/model"
)

var camry = model.ForecastRequest{Make: "Toyota", Model: "Camry", Year: 2015, Mileage: 50000}

// stubArtifact answers every prediction with a fixed output and records
// the inputs it saw.
type stubArtifact struct {
	schema model.Schema
	out    model.Prediction
	err    error
	panics bool

	mu    sync.Mutex
	calls []model.Features
}

func (s *stubArtifact) Schema() model.Schema { return s.schema }
func (s *stubArtifact) Close() error         { return nil }
func (s *stubArtifact) Predict(_ context.Context, in model.Features) (model.Prediction, error) {
	if s.panics {
		panic("index out of range")
	}
	s.mu.Lock()
	s.calls = append(s.calls, in)
	s.mu.Unlock()
	return s.out, s.err
}

func (s *stubArtifact) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.calls)
}

type memStore map[string][]byte

func (m memStore) Load(_ context.Context, name string) ([]byte, error) {
	if b, ok := m[name]; ok {
		return b, nil
	}
	return nil, artifact.ErrNotFound
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newRegistry returns a loaded registry serving clf and reg.
func newRegistry(t *testing.T, clf, reg registry.Artifact) *registry.Registry {
	t.Helper()
	byName := map[string]registry.Artifact{
		registry.ClassifierName: clf,
		registry.RegressorName:  reg,
	}
	decode := func(name string, _ []byte) (registry.Artifact, error) {
		return byName[name], nil
	}
	r := registry.New(memStore{
		registry.ClassifierName: []byte("clf"),
		registry.RegressorName:  []byte("reg"),
	}, decode, registry.WithLogger(quietLogger()))
	r.Load(context.Background())
	if !r.Available() {
		t.Fatalf("registry unavailable: %+v", r.Health())
	}
	return r
}

func TestForecastSentinelWithoutModels(t *testing.T) {
	r := registry.New(memStore{}, nil, registry.WithLogger(quietLogger()))
	r.Load(context.Background())
	e := New(r, 2025, WithLogger(quietLogger()))

	got, err := e.Forecast(context.Background(), camry)
	if err != nil {
		t.Fatalf("Forecast: %v", err)
	}
	want := model.ForecastResult{PredictedIssue: "unknown", Likelihood: 0.1, EstimatedCost: 0.0, RangeMonths: 6}
	if got != want {
		t.Errorf("Forecast = %+v, want %+v", got, want)
	}
}

func TestForecastModelReady(t *testing.T) {
	clf := &stubArtifact{schema: model.Schema{Names: []string{"vehicle_mileage", "make", "vehicle_age"}}, out: model.Prediction{Label: "transmission"}}
	reg := &stubArtifact{schema: model.Schema{Width: 2}, out: model.Prediction{Label: "812.5", Value: 812.5}}
	e := New(newRegistry(t, clf, reg), 2025, WithLogger(quietLogger()))

	got, err := e.Forecast(context.Background(), camry)
	if err != nil {
		t.Fatalf("Forecast: %v", err)
	}
	want := model.ForecastResult{PredictedIssue: "transmission", Likelihood: 0.5, EstimatedCost: 812.5, RangeMonths: 6}
	if got != want {
		t.Errorf("Forecast = %+v, want %+v", got, want)
	}

	if v, _ := clf.calls[0].Lookup("vehicle_age"); v != 10.0 {
		t.Errorf("classifier vehicle_age = %v, want 10", v)
	}
	if vec := reg.calls[0].Vector; len(vec) != 2 || vec[0] != 10 || vec[1] != 50000 {
		t.Errorf("regressor input = %v, want [10 50000]", vec)
	}
}

func TestForecastClampsNegativeCost(t *testing.T) {
	clf := &stubArtifact{out: model.Prediction{Label: "brakes"}}
	reg := &stubArtifact{out: model.Prediction{Value: -40}}
	e := New(newRegistry(t, clf, reg), 2025, WithLogger(quietLogger()))

	got, err := e.Forecast(context.Background(), camry)
	if err != nil {
		t.Fatalf("Forecast: %v", err)
	}
	if got.EstimatedCost != 0 {
		t.Errorf("EstimatedCost = %v, want 0", got.EstimatedCost)
	}
}

func TestForecastAlignmentFailed(t *testing.T) {
	clf := &stubArtifact{schema: model.Schema{Unsupported: errors.New("string input")}}
	reg := &stubArtifact{out: model.Prediction{Value: 100}}
	e := New(newRegistry(t, clf, reg), 2025, WithLogger(quietLogger()))

	got, err := e.Forecast(context.Background(), camry)
	if err != nil {
		t.Fatalf("Forecast: %v", err)
	}
	if got != Sentinel() {
		t.Errorf("Forecast = %+v, want sentinel", got)
	}
	if reg.callCount() != 0 {
		t.Error("no artifact should run when alignment fails")
	}
}

func TestForecastInferenceError(t *testing.T) {
	tests := []struct {
		name     string
		clf, reg *stubArtifact
		artifact string
	}{
		{
			name:     "classifier error",
			clf:      &stubArtifact{err: errors.New("shape mismatch")},
			reg:      &stubArtifact{},
			artifact: registry.ClassifierName,
		},
		{
			name:     "regressor error",
			clf:      &stubArtifact{out: model.Prediction{Label: "engine"}},
			reg:      &stubArtifact{err: errors.New("shape mismatch")},
			artifact: registry.RegressorName,
		},
		{
			name:     "regressor panic",
			clf:      &stubArtifact{out: model.Prediction{Label: "engine"}},
			reg:      &stubArtifact{panics: true},
			artifact: registry.RegressorName,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := New(newRegistry(t, tt.clf, tt.reg), 2025, WithLogger(quietLogger()))

			_, err := e.Forecast(context.Background(), camry)
			if !errors.Is(err, ErrInference) {
				t.Fatalf("expected ErrInference, got %v", err)
			}
			var ie *InferenceError
			if !errors.As(err, &ie) || ie.Artifact != tt.artifact {
				t.Errorf("error = %v, want artifact %s", err, tt.artifact)
			}
		})
	}
}

type mapCache struct {
	mu sync.Mutex
	m  map[model.ForecastRequest]model.ForecastResult
}

func (c *mapCache) Get(_ context.Context, req model.ForecastRequest) (model.ForecastResult, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	r, ok := c.m[req]
	return r, ok
}

func (c *mapCache) Set(_ context.Context, req model.ForecastRequest, res model.ForecastResult) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.m[req] = res
}

func TestForecastCachesModelResults(t *testing.T) {
	clf := &stubArtifact{out: model.Prediction{Label: "engine"}}
	reg := &stubArtifact{out: model.Prediction{Value: 300}}
	c := &mapCache{m: map[model.ForecastRequest]model.ForecastResult{}}
	e := New(newRegistry(t, clf, reg), 2025, WithCache(c), WithLogger(quietLogger()))

	for i := 0; i < 3; i++ {
		if _, err := e.Forecast(context.Background(), camry); err != nil {
			t.Fatalf("Forecast: %v", err)
		}
	}
	if n := clf.callCount(); n != 1 {
		t.Errorf("classifier ran %d times, want 1", n)
	}
}

func TestForecastDoesNotCacheSentinel(t *testing.T) {
	r := registry.New(memStore{}, nil, registry.WithLogger(quietLogger()))
	r.Load(context.Background())
	c := &mapCache{m: map[model.ForecastRequest]model.ForecastResult{}}
	e := New(r, 2025, WithCache(c), WithLogger(quietLogger()))

	if _, err := e.Forecast(context.Background(), camry); err != nil {
		t.Fatalf("Forecast: %v", err)
	}
	if len(c.m) != 0 {
		t.Errorf("sentinel must not be cached, cache = %v", c.m)
	}
}

func TestForecastWithRedisCache(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("failed to start miniredis: %v", err)
	}
	defer mr.Close()
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	clf := &stubArtifact{out: model.Prediction{Label: "engine"}}
	reg := &stubArtifact{out: model.Prediction{Value: 300}}
	e := New(newRegistry(t, clf, reg), 2025,
		WithCache(cache.New(client, time.Minute, quietLogger())), WithLogger(quietLogger()))

	first, err := e.Forecast(context.Background(), camry)
	if err != nil {
		t.Fatalf("Forecast: %v", err)
	}
	second, err := e.Forecast(context.Background(), camry)
	if err != nil {
		t.Fatalf("Forecast: %v", err)
	}
	if first != second {
		t.Errorf("cached result %+v differs from %+v", second, first)
	}
	if !mr.Exists(cache.Key(camry)) {
		t.Error("expected forecast stored in redis")
	}
	if clf.callCount() != 1 {
		t.Errorf("classifier ran %d times, want 1", clf.callCount())
	}
}

func TestForecastConcurrent(t *testing.T) {
	clf := &stubArtifact{out: model.Prediction{Label: "engine"}}
	reg := &stubArtifact{out: model.Prediction{Value: 300}}
	e := New(newRegistry(t, clf, reg), 2025, WithLogger(quietLogger()))

	var wg sync.WaitGroup
	errs := make(chan error, 50)
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(mileage int) {
			defer wg.Done()
			req := camry
			req.Mileage = mileage
			res, err := e.Forecast(context.Background(), req)
			if err == nil && res.PredictedIssue != "engine" {
				err = errors.New("unexpected label " + res.PredictedIssue)
			}
			if err != nil {
				errs <- err
			}
		}(i * 1000)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Error(err)
	}
	if clf.callCount() != 50 {
		t.Errorf("classifier ran %d times, want 50", clf.callCount())
	}
}

func TestHealth(t *testing.T) {
	clf := &stubArtifact{schema: model.Schema{Names: []string{"mileage"}}}
	reg := &stubArtifact{schema: model.Schema{Width: 4}}
	e := New(newRegistry(t, clf, reg), 2025)

	h := e.Health()
	if !h.Available || h.Regressor.InputWidth != 4 || h.Classifier.Plan != "named" {
		t.Errorf("Health = %+v", h)
	}
}
