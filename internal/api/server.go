// Package api serves forecasts, vehicle records and the make/model catalog
// over HTTP.
package api

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/google/uuid"
	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/crimson-sun/ucrf/internal/catalog"
	"github.com/crimson-sun/ucrf/internal/engine/registry"
	"github.com/crimson-sun/ucrf/internal/model"
	"github.com/crimson-sun/ucrf/internal/repository"
)

// Forecaster produces forecasts and reports model availability.
type Forecaster interface {
	Forecast(ctx context.Context, req model.ForecastRequest) (model.ForecastResult, error)
	Health() registry.Health
}

// Pinger checks a backing store.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Option configures a Server.
type Option func(*Server)

// WithRepositories enables the vehicle and service-history endpoints.
// db, when non-nil, is pinged by /health.
func WithRepositories(vehicles repository.VehicleRepository, history repository.ServiceHistoryRepository, db Pinger) Option {
	return func(s *Server) {
		s.vehicles = vehicles
		s.history = history
		s.db = db
	}
}

// WithCatalog serves c on /catalog.
func WithCatalog(c *catalog.Catalog) Option {
	return func(s *Server) { s.catalog = c }
}

// WithAllowedOrigins sets the CORS origins. Defaults to "*".
func WithAllowedOrigins(origins ...string) Option {
	return func(s *Server) { s.origins = origins }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) { s.logger = l }
}

// Server holds the HTTP handlers and their collaborators.
type Server struct {
	forecaster Forecaster
	vehicles   repository.VehicleRepository
	history    repository.ServiceHistoryRepository
	db         Pinger
	catalog    *catalog.Catalog
	origins    []string
	logger     *slog.Logger

	vehicleSchema *jsonschema.Schema
}

// New creates a Server. The forecaster is required.
func New(f Forecaster, opts ...Option) (*Server, error) {
	s := &Server{forecaster: f, origins: []string{"*"}}
	for _, o := range opts {
		o(s)
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	schema, err := compileSchema("vehicle.json", vehicleSchema)
	if err != nil {
		return nil, err
	}
	s.vehicleSchema = schema
	return s, nil
}

// Routes builds the router.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()

	r.Use(withRequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.origins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-Id"},
		ExposedHeaders: []string{"X-Request-Id"},
		MaxAge:         300,
	}))

	r.Get("/health", s.handleHealth)

	r.Post("/predict", s.handlePredict)
	r.Get("/forecast", s.handlePredict)

	r.Route("/vehicles", func(r chi.Router) {
		r.Use(s.requireRepositories)
		r.Post("/", s.handleCreateVehicle)
		r.Get("/", s.handleListVehicles)
	})
	r.With(s.requireRepositories).Get("/service-history", s.handleServiceHistory)

	r.Get("/catalog", s.handleCatalog)

	return r
}

// withRequestID tags each request with an ID, reusing the caller's
// X-Request-Id when present, and echoes it back.
func withRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(middleware.RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(middleware.RequestIDHeader, id)
		ctx := context.WithValue(r.Context(), middleware.RequestIDKey, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func requestID(ctx context.Context) string {
	return middleware.GetReqID(ctx)
}

func (s *Server) requireRepositories(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.vehicles == nil || s.history == nil {
			respondError(w, http.StatusServiceUnavailable, "database not configured")
			return
		}
		next.ServeHTTP(w, r)
	})
}
