package api

import (
	"net/http"

	"github.com/okian/credence/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// HealthHandler handles health check requests.
type HealthHandler struct {
	stats StatsProvider
}

// NewHealthHandler creates a new health handler.
func NewHealthHandler(stats StatsProvider) *HealthHandler {
	return &HealthHandler{stats: stats}
}

type healthResponse struct {
	Status string `json:"status"`
}

// HandleHealth handles GET /healthz. It reports 503 until the engine has
// started.
func (h *HealthHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", ErrMethodNotAllowed)
		return
	}
	if !h.stats.Stats(r.Context()).Started {
		writeError(w, http.StatusServiceUnavailable, "not_started", ErrNotReady)
		return
	}
	writeJSON(w, http.StatusOK, healthResponse{Status: "ok"})
}

// NewMetricsHandler serves the global metrics registry in the Prometheus
// exposition format.
func NewMetricsHandler() http.Handler {
	return promhttp.HandlerFor(metrics.GetRegistry(), promhttp.HandlerOpts{})
}
