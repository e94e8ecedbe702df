package handlers

import (
	"context"
	"net/http"

	"github.com/ridgelineauto/scheduling-api/pkg/logging"
)

// Prober reports whether a dependency is reachable.
type Prober interface {
	HealthCheck(ctx context.Context) error
}

// CacheInfo reports the qualification cache state for readiness output.
type CacheInfo interface {
	Status(ctx context.Context) string
}

// HealthHandler serves liveness and readiness probes.
type HealthHandler struct {
	shop   Prober
	sheets Prober
	cache  CacheInfo
	logger *logging.Logger
}

// NewHealthHandler creates the handler. cache may be nil when no cache
// layer is configured.
func NewHealthHandler(shop, sheets Prober, cache CacheInfo, logger *logging.Logger) *HealthHandler {
	if logger == nil {
		logger = logging.Default()
	}
	return &HealthHandler{shop: shop, sheets: sheets, cache: cache, logger: logger}
}

// Health handles GET /health. It answers as long as the process is up.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

// Live handles GET /health/live.
func (h *HealthHandler) Live(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "alive"})
}

type readinessResponse struct {
	Status      string `json:"status"`
	Shopmonkey  string `json:"shopmonkey"`
	Sheets      string `json:"sheets"`
	SheetsCache string `json:"sheets_cache"`
}

// Ready handles GET /health/ready. It probes both upstream dependencies
// and answers 503 when either is unreachable.
func (h *HealthHandler) Ready(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	resp := readinessResponse{Status: "ready", Shopmonkey: "ok", Sheets: "ok", SheetsCache: "disabled"}

	if err := h.shop.HealthCheck(ctx); err != nil {
		h.logger.Warn("shopmonkey probe failed", "error", err)
		resp.Shopmonkey = "unreachable"
		resp.Status = "degraded"
	}
	if err := h.sheets.HealthCheck(ctx); err != nil {
		h.logger.Warn("sheets probe failed", "error", err)
		resp.Sheets = "unreachable"
		resp.Status = "degraded"
	}
	if h.cache != nil {
		resp.SheetsCache = h.cache.Status(ctx)
	}

	status := http.StatusOK
	if resp.Status != "ready" {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, resp)
}
