package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/kjstillabower/buoy-station-tools/internal/buoy"
	"github.com/kjstillabower/buoy-station-tools/internal/cache"
	"github.com/kjstillabower/buoy-station-tools/internal/circuitbreaker"
	"github.com/kjstillabower/buoy-station-tools/internal/config"
	"github.com/kjstillabower/buoy-station-tools/internal/dashboard"
	httphandler "github.com/kjstillabower/buoy-station-tools/internal/http"
	"github.com/kjstillabower/buoy-station-tools/internal/lifecycle"
	"github.com/kjstillabower/buoy-station-tools/internal/ndbc"
	"github.com/kjstillabower/buoy-station-tools/internal/observability"
	"github.com/kjstillabower/buoy-station-tools/internal/service"
)

const breakerComponent = "ndbc_feed"

func main() {
	logger, err := observability.NewLogger("dashboard")
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("config", zap.Error(err))
	}

	feedClient, err := ndbc.NewClientWithRetry(
		cfg.FeedBaseURL,
		cfg.BuoyID,
		cfg.FeedTimeout,
		cfg.RetryAttempts,
		cfg.RetryBaseDelay,
		cfg.RetryMaxDelay,
	)
	if err != nil {
		logger.Fatal("feed client", zap.Error(err))
	}

	if cfg.CircuitBreakerEnabled {
		cb := circuitbreaker.New(circuitbreaker.Config{
			FailureThreshold: cfg.CircuitBreakerFailureThreshold,
			SuccessThreshold: cfg.CircuitBreakerSuccessThreshold,
			Timeout:          cfg.CircuitBreakerTimeout,
			Component:        breakerComponent,
			OnStateChange: func(component string, from, to circuitbreaker.State) {
				observability.RecordCircuitBreakerTransition(component, from.String(), to.String())
				observability.SetCircuitBreakerStateGauge(component, int(to))
			},
		})
		feedClient.SetCircuitBreaker(cb)
		observability.SetCircuitBreakerStateGauge(breakerComponent, int(circuitbreaker.StateClosed))
		logger.Info("circuit breaker enabled", zap.Int("failure_threshold", cfg.CircuitBreakerFailureThreshold), zap.Duration("timeout", cfg.CircuitBreakerTimeout))
	}

	pipeline, err := buoy.NewPipeline(cfg.BuoyID, feedClient, config.Location(cfg.DisplayTimezone), cfg.Cadence, logger)
	if err != nil {
		logger.Fatal("pipeline", zap.Error(err))
	}

	snapshotCache, memcacheCloser, err := newSnapshotCache(cfg)
	if err != nil {
		logger.Fatal("snapshot cache", zap.Error(err))
	}
	logger.Info("cache backend", zap.String("backend", cfg.CacheBackend))

	importTimeout := importBudget(cfg)
	dashboardService := service.NewDashboardService(pipeline, snapshotCache, cfg.BuoyID, cfg.CacheTTL, importTimeout, logger)

	renderer, err := dashboard.NewRenderer()
	if err != nil {
		logger.Fatal("dashboard templates", zap.Error(err))
	}

	healthConfig := &httphandler.HealthConfig{
		DegradedWindow:   cfg.DegradedWindow,
		DegradedErrorPct: cfg.DegradedErrorPct,
	}
	if memcacheCloser != nil {
		healthConfig.CachePing = memcacheCloser.Ping
	}
	handler := httphandler.NewHandler(dashboardService, renderer, cfg.BuoyID, healthConfig, logger)

	router := httphandler.NewRouter(handler, httphandler.RouterConfig{
		RequestTimeout: cfg.RequestTimeout,
		RefreshLimiter: newRefreshLimiter(cfg),
	}, logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	warmer := cache.NewCacheWarmer(dashboardService, logger)
	if cfg.AutoRefreshInterval > 0 {
		go func() {
			if err := warmer.WarmPeriodic(ctx, cfg.AutoRefreshInterval); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("periodic refresh stopped", zap.Error(err))
			}
		}()
	} else {
		warmCtx, warmCancel := context.WithTimeout(ctx, importTimeout)
		if err := warmer.Warm(warmCtx, cache.TriggerStartup); err != nil {
			logger.Warn("startup import failed; dashboard will retry on first request", zap.Error(err))
		}
		warmCancel()
	}

	srv := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: cfg.RequestTimeout + 5*time.Second,
	}

	go func() {
		lifecycle.MarkStarted(time.Now())
		logger.Info("server starting", zap.String("addr", srv.Addr), zap.String("buoy", cfg.BuoyID))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server", zap.Error(err))
		}
	}()

	<-ctx.Done()
	stop()

	logger.Info("graceful shutdown triggered")
	lifecycle.SetShuttingDown(true)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", zap.Error(err))
	}

	logger.Info("waiting for in-flight requests", zap.Int64("count", httphandler.InFlightCount()))
	if err := httphandler.WaitForInFlight(shutdownCtx, 100*time.Millisecond); err != nil {
		logger.Warn("in-flight requests not completed", zap.Error(err), zap.Int64("remaining", httphandler.InFlightCount()))
	}

	if memcacheCloser != nil {
		if err := memcacheCloser.Close(); err != nil {
			logger.Error("memcached close", zap.Error(err))
		}
	}
	logger.Info("shutdown complete")
	if err := observability.FlushTelemetry(context.Background(), logger); err != nil {
		fmt.Fprintf(os.Stderr, "telemetry flush: %v\n", err)
	}
}
