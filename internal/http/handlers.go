package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/kjstillabower/buoy-station-tools/internal/dashboard"
	"github.com/kjstillabower/buoy-station-tools/internal/lifecycle"
	"github.com/kjstillabower/buoy-station-tools/internal/models"
	"github.com/kjstillabower/buoy-station-tools/internal/reqctx"
	"github.com/kjstillabower/buoy-station-tools/internal/service"
	"github.com/kjstillabower/buoy-station-tools/internal/traffic"
)

// Flash keys carried on the redirect after POST /refresh.
const (
	flashRateLimited   = "rate_limited"
	flashRefreshFailed = "refresh_failed"
)

var flashMessages = map[string]string{
	flashRateLimited:   "Refresh limit reached, showing the current data. Try again in a few seconds.",
	flashRefreshFailed: "Refresh failed, showing the last imported data.",
}

// SnapshotService is the part of service.DashboardService the handlers use.
type SnapshotService interface {
	Snapshot(ctx context.Context) (models.Snapshot, error)
	Refresh(ctx context.Context, trigger string) (models.Snapshot, error)
}

// HealthConfig holds thresholds for the health handler.
type HealthConfig struct {
	DegradedWindow   time.Duration
	DegradedErrorPct int
	// CachePing, when set, is called to check cache reachability. Used when backend is memcached.
	CachePing func() error
}

// Handler holds dependencies for HTTP handlers.
type Handler struct {
	service          SnapshotService
	renderer         *dashboard.Renderer
	buoyID           string
	healthConfig     *HealthConfig
	logger           *zap.Logger
	healthStatusMu   sync.Mutex
	healthStatusPrev string
}

// NewHandler returns a new Handler.
func NewHandler(svc SnapshotService, renderer *dashboard.Renderer, buoyID string, healthConfig *HealthConfig, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		service:      svc,
		renderer:     renderer,
		buoyID:       buoyID,
		healthConfig: healthConfig,
		logger:       logger,
	}
}

// GetDashboard handles GET /.
func (h *Handler) GetDashboard(w http.ResponseWriter, r *http.Request) {
	snap, err := h.service.Snapshot(r.Context())
	if err != nil {
		requestLogger(r, h.logger).Warn("dashboard unavailable", zap.Error(err))
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(http.StatusServiceUnavailable)
		if rerr := h.renderer.RenderUnavailable(w, h.buoyID, "the buoy feed could not be loaded"); rerr != nil {
			requestLogger(r, h.logger).Error("render unavailable page", zap.Error(rerr))
		}
		return
	}

	q := r.URL.Query()
	data := dashboard.NewPageData(snap, dashboard.Panel(q.Get("tab")), flashMessages[q.Get("flash")])
	var buf bytes.Buffer
	if err := h.renderer.RenderPage(&buf, data); err != nil {
		requestLogger(r, h.logger).Error("render dashboard", zap.Error(err))
		writeError(w, r, http.StatusInternalServerError, "RENDER_FAILED", "Unable to render dashboard")
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	_, _ = buf.WriteTo(w)
}

// PostRefresh handles POST /refresh: one synchronous import, then back to the dashboard.
func (h *Handler) PostRefresh(w http.ResponseWriter, r *http.Request) {
	target := "/"
	if _, err := h.service.Refresh(r.Context(), service.TriggerManual); err != nil {
		requestLogger(r, h.logger).Warn("manual refresh failed", zap.Error(err))
		target = "/?flash=" + flashRefreshFailed
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}

// GetChart handles GET /charts/{panel}.svg.
func (h *Handler) GetChart(w http.ResponseWriter, r *http.Request) {
	panel, err := dashboard.ParsePanel(mux.Vars(r)["panel"])
	if err != nil {
		writeError(w, r, http.StatusNotFound, "UNKNOWN_PANEL", err.Error())
		return
	}
	snap, err := h.service.Snapshot(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	var buf bytes.Buffer
	if err := dashboard.RenderPanel(&buf, snap, panel); err != nil {
		if errors.Is(err, dashboard.ErrNotEnoughPoints) {
			writeError(w, r, http.StatusServiceUnavailable, "NOT_ENOUGH_DATA", err.Error())
			return
		}
		requestLogger(r, h.logger).Error("render chart", zap.String("panel", string(panel)), zap.Error(err))
		writeError(w, r, http.StatusInternalServerError, "RENDER_FAILED", "Unable to render chart")
		return
	}
	w.Header().Set("Content-Type", "image/svg+xml")
	w.Header().Set("Cache-Control", "no-store")
	_, _ = buf.WriteTo(w)
}

// GetObservations handles GET /api/observations.
func (h *Handler) GetObservations(w http.ResponseWriter, r *http.Request) {
	snap, err := h.service.Snapshot(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

// healthResult holds the computed health status and metadata for logging.
type healthResult struct {
	status     string
	statusCode int
	reason     string
}

// GetHealth handles GET /health.
func (h *Handler) GetHealth(w http.ResponseWriter, r *http.Request) {
	result := h.computeHealthStatus()

	h.healthStatusMu.Lock()
	prev := h.healthStatusPrev
	if prev != "" && prev != result.status {
		h.logger.Info("health status transition",
			zap.String("previous_status", prev),
			zap.String("current_status", result.status),
			zap.String("reason", result.reason))
	}
	h.healthStatusPrev = result.status
	h.healthStatusMu.Unlock()

	checks := map[string]string{"ndbcFeed": "healthy"}
	if result.status == "degraded" {
		checks["ndbcFeed"] = "unhealthy"
	}
	if h.healthConfig != nil && h.healthConfig.CachePing != nil {
		if h.healthConfig.CachePing() == nil {
			checks["cache"] = "healthy"
		} else {
			checks["cache"] = "unhealthy"
		}
	}
	writeJSON(w, result.statusCode, map[string]interface{}{
		"status":    result.status,
		"service":   "buoy-dashboard",
		"buoy":      h.buoyID,
		"checks":    checks,
		"uptime":    lifecycle.Uptime(time.Now()).Round(time.Second).String(),
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// computeHealthStatus evaluates, in order: shutting-down > degraded > healthy.
// Degraded means the import error rate over DegradedWindow reached DegradedErrorPct.
func (h *Handler) computeHealthStatus() healthResult {
	if lifecycle.IsShuttingDown() {
		return healthResult{"shutting-down", http.StatusServiceUnavailable, "signal"}
	}
	if h.healthConfig != nil && h.healthConfig.DegradedWindow > 0 && h.healthConfig.DegradedErrorPct > 0 {
		errs, total := traffic.ErrorRate(h.healthConfig.DegradedWindow)
		if total > 0 && float64(errs)*100/float64(total) >= float64(h.healthConfig.DegradedErrorPct) {
			return healthResult{"degraded", http.StatusServiceUnavailable, "error_rate_breach"}
		}
	}
	return healthResult{"healthy", http.StatusOK, ""}
}

func requestLogger(r *http.Request, fallback *zap.Logger) *zap.Logger {
	if l := reqctx.Logger(r.Context()); l != nil {
		return l
	}
	return fallback
}

// writeJSON writes v as JSON with the given status code.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError writes the standard error body: code, message and the request's correlation id.
func writeError(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	writeJSON(w, status, map[string]interface{}{
		"error": map[string]string{
			"code":      code,
			"message":   message,
			"requestId": reqctx.CorrelationID(r.Context()),
		},
	})
}

// writeServiceError writes 503 for a snapshot that could not be produced.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	code := "UPSTREAM_UNAVAILABLE"
	if errors.Is(err, service.ErrNoData) {
		code = "NO_DATA"
	}
	writeError(w, r, http.StatusServiceUnavailable, code, "Unable to load buoy data")
	if logger := reqctx.Logger(r.Context()); logger != nil {
		logger.Debug("snapshot error", zap.Error(err))
	}
}
