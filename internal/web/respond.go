package web

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
	json "github.com/goccy/go-json"
)

// ErrorResponse is the JSON structure for API error responses.
type ErrorResponse struct {
	Error string `json:"error"`
}

// respondJSON writes v as a JSON response with the given status.
func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("encoding response", "error", err)
	}
}

// respondError logs the technical error server-side and returns a JSON error
// body to the client.
func (s *Server) respondError(w http.ResponseWriter, r *http.Request, err error, status int) {
	slog.Error("request error",
		"path", r.URL.Path,
		"method", r.Method,
		"status", status,
		"error", err.Error(),
		"request_id", middleware.GetReqID(r.Context()),
	)
	respondJSON(w, status, ErrorResponse{Error: err.Error()})
}
