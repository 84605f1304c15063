package http

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/kjstillabower/buoy-station-tools/internal/observability"
)

// RouterConfig holds the per-route limits.
type RouterConfig struct {
	RequestTimeout time.Duration
	// RefreshLimiter throttles POST /refresh. nil disables throttling.
	RefreshLimiter *rate.Limiter
}

// NewRouter wires the dashboard routes and middleware.
func NewRouter(h *Handler, cfg RouterConfig, logger *zap.Logger) *mux.Router {
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 30 * time.Second
	}

	router := mux.NewRouter()
	router.Use(CorrelationIDMiddleware(logger))
	router.Use(MetricsMiddleware)
	router.HandleFunc("/health", h.GetHealth).Methods(http.MethodGet)
	router.Handle("/metrics", observability.MetricsHandler()).Methods(http.MethodGet)

	data := router.NewRoute().Subrouter()
	data.Use(TimeoutMiddleware(cfg.RequestTimeout))
	data.HandleFunc("/", h.GetDashboard).Methods(http.MethodGet)
	data.HandleFunc("/charts/{panel}.svg", h.GetChart).Methods(http.MethodGet)
	data.HandleFunc("/api/observations", h.GetObservations).Methods(http.MethodGet)

	refresh := router.NewRoute().Subrouter()
	refresh.Use(RateLimitMiddleware(cfg.RefreshLimiter))
	refresh.Use(TimeoutMiddleware(cfg.RequestTimeout))
	refresh.HandleFunc("/refresh", h.PostRefresh).Methods(http.MethodPost)

	return router
}
