package api

import (
	"context"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/okian/scool/internal/domain/types"
	"github.com/okian/scool/pkg/metrics"
)

// HealthDependencies reports storage health.
type HealthDependencies interface {
	Health(ctx context.Context) types.Health
	DBCheck(ctx context.Context) (types.Counts, error)
}

// HealthHandler handles health check requests.
type HealthHandler struct {
	deps    HealthDependencies
	metrics http.Handler
}

// NewHealthHandler creates a new health handler.
func NewHealthHandler(deps HealthDependencies) *HealthHandler {
	return &HealthHandler{
		deps:    deps,
		metrics: promhttp.HandlerFor(metrics.GetRegistry(), promhttp.HandlerOpts{}),
	}
}

// HandleMetrics serves the Prometheus registry.
func (h *HealthHandler) HandleMetrics(w http.ResponseWriter, r *http.Request) {
	h.metrics.ServeHTTP(w, r)
}

// HandleHealth handles GET /health. The status is 200 even when the database
// is disconnected; the body reports it.
func (h *HealthHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.deps.Health(r.Context()))
}

type dbCheckResponse struct {
	Success bool         `json:"success"`
	Tables  types.Counts `json:"tables"`
}

// HandleDBCheck handles GET /api/db-check.
func (h *HealthHandler) HandleDBCheck(w http.ResponseWriter, r *http.Request) {
	counts, err := h.deps.DBCheck(r.Context())
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, dbCheckResponse{Success: true, Tables: counts})
}
