package handlers

import (
	"log/slog"
	"net/http"

	"github.com/Brownie44l1/fitness-api/internal/metrics"
)

// NewRouter registers the service endpoints and wraps them in the CORS and
// request logging middleware.
func NewRouter(h *Handler, m *metrics.Metrics, logger *slog.Logger) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", h.Health)
	mux.HandleFunc("/evaluate", h.Evaluate)
	mux.Handle("/metrics", m.Handler())

	return enableCORS(logRequests(logger, m, mux))
}
