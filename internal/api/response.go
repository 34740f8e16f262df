package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
)

// errorResponse is the error envelope for all API errors.
type errorResponse struct {
	Error string `json:"error"`
}

// respondJSON writes data with the given status code.
func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, errorResponse{Error: message})
}

// internalError logs err and answers with a generic 500 body.
func (s *Server) internalError(w http.ResponseWriter, r *http.Request, msg string, err error) {
	s.logger.Error(msg, "request_id", requestID(r.Context()), "path", r.URL.Path, "error", err)
	respondError(w, http.StatusInternalServerError, "internal server error")
}
