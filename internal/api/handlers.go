package api

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/crimson-sun/ucrf/internal/engine/registry"
	"github.com/crimson-sun/ucrf/internal/model"
	"github.com/crimson-sun/ucrf/internal/repository"
)

const (
	defaultLimit = 50
	maxBodyBytes = 1 << 20
)

type healthResponse struct {
	Status   string          `json:"status"`
	Models   registry.Health `json:"models"`
	Database string          `json:"database"`
}

// handleHealth reports liveness. Missing models degrade the status but
// the service still answers with placeholder forecasts.
//
//	GET /health
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{Status: "ok", Models: s.forecaster.Health(), Database: "not_configured"}
	if !resp.Models.Available {
		resp.Status = "degraded"
	}
	if s.db != nil {
		resp.Database = "up"
		if err := s.db.Ping(r.Context()); err != nil {
			s.logger.Warn("database ping failed", "error", err)
			resp.Database = "down"
			resp.Status = "degraded"
		}
	}
	respondJSON(w, http.StatusOK, resp)
}

// handlePredict answers a forecast for one vehicle.
//
//	POST /predict?make=&model_name=&year=&mileage=
//	GET  /forecast?make=&model_name=&year=&mileage=
func (s *Server) handlePredict(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	req := model.ForecastRequest{
		Make:  strings.TrimSpace(q.Get("make")),
		Model: strings.TrimSpace(q.Get("model_name")),
	}
	if req.Make == "" || req.Model == "" {
		respondError(w, http.StatusBadRequest, "make and model_name are required")
		return
	}

	year, err := strconv.Atoi(q.Get("year"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "year must be an integer")
		return
	}
	req.Year = year

	if raw := q.Get("mileage"); raw != "" {
		mileage, err := strconv.Atoi(raw)
		if err != nil {
			respondError(w, http.StatusBadRequest, "mileage must be an integer")
			return
		}
		req.Mileage = mileage
	}

	res, err := s.forecaster.Forecast(r.Context(), req)
	if err != nil {
		s.internalError(w, r, "forecast failed", err)
		return
	}
	respondJSON(w, http.StatusOK, res)
}

type createVehicleRequest struct {
	Make         string  `json:"make"`
	Model        string  `json:"model"`
	Year         int     `json:"year"`
	Mileage      int     `json:"mileage"`
	EngineType   *string `json:"engine_type"`
	Transmission *string `json:"transmission"`
}

// POST /vehicles
func (s *Server) handleCreateVehicle(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		respondError(w, http.StatusBadRequest, "could not read body")
		return
	}
	var doc any
	if err := json.Unmarshal(body, &doc); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}
	if err := s.vehicleSchema.Validate(doc); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	var in createVehicleRequest
	if err := json.Unmarshal(body, &in); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}
	id, err := s.vehicles.Create(r.Context(), repository.Vehicle{
		Make:         in.Make,
		Model:        in.Model,
		Year:         in.Year,
		Mileage:      in.Mileage,
		EngineType:   in.EngineType,
		Transmission: in.Transmission,
	})
	if err != nil {
		s.internalError(w, r, "create vehicle failed", err)
		return
	}
	respondJSON(w, http.StatusCreated, map[string]int64{"id": id})
}

type vehicleSummary struct {
	ID    int64  `json:"id"`
	Make  string `json:"make"`
	Model string `json:"model"`
	Year  int    `json:"year"`
}

// GET /vehicles?skip=&limit=
func (s *Server) handleListVehicles(w http.ResponseWriter, r *http.Request) {
	skip, ok := queryInt(w, r, "skip", 0)
	if !ok {
		return
	}
	limit, ok := queryInt(w, r, "limit", defaultLimit)
	if !ok {
		return
	}

	vs, err := s.vehicles.List(r.Context(), skip, limit)
	if err != nil {
		s.internalError(w, r, "list vehicles failed", err)
		return
	}
	out := make([]vehicleSummary, len(vs))
	for i, v := range vs {
		out[i] = vehicleSummary{ID: v.ID, Make: v.Make, Model: v.Model, Year: v.Year}
	}
	respondJSON(w, http.StatusOK, out)
}

type serviceRecord struct {
	ID          int64   `json:"id"`
	VehicleID   int64   `json:"vehicle_id"`
	ServiceDate string  `json:"service_date"`
	ServiceType string  `json:"service_type"`
	Cost        float64 `json:"cost"`
}

// GET /service-history?vehicle_id=
func (s *Server) handleServiceHistory(w http.ResponseWriter, r *http.Request) {
	vehicleID, ok := queryInt(w, r, "vehicle_id", 0)
	if !ok {
		return
	}
	recs, err := s.history.List(r.Context(), int64(vehicleID))
	if err != nil {
		s.internalError(w, r, "list service history failed", err)
		return
	}
	out := make([]serviceRecord, len(recs))
	for i, rec := range recs {
		out[i] = serviceRecord{
			ID:          rec.ID,
			VehicleID:   rec.VehicleID,
			ServiceDate: rec.ServiceDate.Format("2006-01-02"),
			ServiceType: rec.ServiceType,
			Cost:        rec.Cost,
		}
	}
	respondJSON(w, http.StatusOK, out)
}

// GET /catalog
func (s *Server) handleCatalog(w http.ResponseWriter, r *http.Request) {
	if s.catalog == nil {
		respondError(w, http.StatusNotFound, "catalog not configured")
		return
	}
	respondJSON(w, http.StatusOK, s.catalog)
}

// queryInt reads a non-negative integer query parameter. On failure it
// writes a 400 and returns false.
func queryInt(w http.ResponseWriter, r *http.Request, key string, fallback int) (int, bool) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return fallback, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		respondError(w, http.StatusBadRequest, key+" must be a non-negative integer")
		return 0, false
	}
	return n, true
}
