package http

import (
	"encoding/json"
	"net/http"
	"time"

	"ynabmetrics/internal/core"
	"ynabmetrics/internal/log"
)

// glanceClock is the 12-hour "updated" stamp dashboard widgets display.
const glanceClock = "03:04 PM"

type errorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeMetricError renders a metric failure. Every kind maps to 500.
func (s *Server) writeMetricError(w http.ResponseWriter, r *http.Request, err error) {
	kind := core.KindOf(err)
	log.FromContext(r.Context()).WithComponent(log.ComponentHTTP).WarnContext(r.Context(), "Metric unavailable",
		log.FieldPath, r.URL.Path,
		log.FieldErrorKind, string(kind),
		log.FieldError, err.Error())
	writeJSON(w, http.StatusInternalServerError, errorResponse{Error: err.Error(), Kind: string(kind)})
}

func (s *Server) updated() string {
	return s.now().Format(glanceClock)
}

func (s *Server) timestamp() string {
	return s.now().Format(time.RFC3339)
}
