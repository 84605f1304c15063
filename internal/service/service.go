package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/kjstillabower/buoy-station-tools/internal/buoy"
	"github.com/kjstillabower/buoy-station-tools/internal/cache"
	"github.com/kjstillabower/buoy-station-tools/internal/models"
	"github.com/kjstillabower/buoy-station-tools/internal/observability"
	"github.com/kjstillabower/buoy-station-tools/internal/reqctx"
	"github.com/kjstillabower/buoy-station-tools/internal/traffic"
)

// Refresh triggers recorded in metrics. Startup and periodic come from the cache warmer.
const (
	TriggerManual    = "manual"
	TriggerCacheMiss = "cache_miss"
)

// ErrNoData is returned when an import fails and no earlier snapshot exists.
var ErrNoData = errors.New("no dashboard data available")

// Importer runs one full buoy import. Implemented by buoy.Pipeline.
type Importer interface {
	Run(ctx context.Context) (models.Snapshot, error)
}

// DashboardService serves the dashboard snapshot with a cache-aside read path.
// Imports are coalesced so concurrent misses and refresh clicks share one run.
// The last good snapshot is kept in process for stale fallback after a failed import.
type DashboardService struct {
	importer  Importer
	cache     cache.Cache
	key       string
	ttl       time.Duration
	coalescer *requestCoalescer
	logger    *zap.Logger
	now       func() time.Time

	mu   sync.RWMutex
	last *models.Snapshot
}

// NewDashboardService creates a DashboardService caching snapshots under key for ttl.
// importTimeout bounds one import, including both feed downloads.
func NewDashboardService(importer Importer, c cache.Cache, key string, ttl, importTimeout time.Duration, logger *zap.Logger) *DashboardService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DashboardService{
		importer:  importer,
		cache:     c,
		key:       key,
		ttl:       ttl,
		coalescer: newRequestCoalescer(importTimeout),
		logger:    logger,
		now:       time.Now,
	}
}

func (s *DashboardService) loggerFor(ctx context.Context) *zap.Logger {
	if l := reqctx.Logger(ctx); l != nil {
		return l
	}
	return s.logger
}

// Snapshot returns the cached snapshot, importing on a miss. When the import
// fails and an earlier snapshot exists, that snapshot is returned with Stale set.
func (s *DashboardService) Snapshot(ctx context.Context) (models.Snapshot, error) {
	logger := s.loggerFor(ctx)

	getStart := time.Now()
	cached, ok, err := s.cache.Get(ctx, s.key)
	getDuration := time.Since(getStart).Seconds()
	if err != nil {
		observability.CacheErrorsTotal.WithLabelValues("get", categorizeCacheError(err)).Inc()
		observability.CacheOperationDurationSeconds.WithLabelValues("get", "error").Observe(getDuration)
		logger.Warn("cache get failed", zap.String("key", s.key), zap.Error(err))
	} else if ok {
		observability.CacheOperationDurationSeconds.WithLabelValues("get", "success").Observe(getDuration)
		observability.CacheHitsTotal.WithLabelValues("snapshot").Inc()
		logger.Debug("cache hit", zap.String("key", s.key))
		return s.withCurrentFreshness(cached), nil
	}

	snap, err := s.Refresh(ctx, TriggerCacheMiss)
	if err == nil {
		return snap, nil
	}
	if stale, ok := s.staleSnapshot(); ok {
		observability.StaleSnapshotServesTotal.Inc()
		logger.Info("serving stale snapshot",
			zap.Time("generated_at", stale.GeneratedAt),
			zap.Error(err),
		)
		return s.withCurrentFreshness(stale), nil
	}
	return models.Snapshot{}, fmt.Errorf("%w: %w", ErrNoData, err)
}

// withCurrentFreshness re-measures data age against the clock so a snapshot
// served from cache does not report the age it had at import time.
func (s *DashboardService) withCurrentFreshness(snap models.Snapshot) models.Snapshot {
	snap.Freshness = buoy.CheckFreshness(snap.Observations, s.now())
	snap.Status = buoy.StatusText(snap.Freshness)
	return snap
}

// Refresh re-runs the import and stores the result. Callers that arrive while
// an import is running share its result.
func (s *DashboardService) Refresh(ctx context.Context, trigger string) (models.Snapshot, error) {
	logger := s.loggerFor(ctx)

	snap, shared, err := s.coalescer.GetOrDo(ctx, s.key, func(runCtx context.Context) (models.Snapshot, error) {
		return s.runImport(runCtx, trigger)
	})
	if shared {
		observability.RefreshCoalescedTotal.Inc()
		logger.Debug("joined in-flight import", zap.String("trigger", trigger))
	}
	return snap, err
}

// runImport executes one import, records its outcome and populates the cache.
func (s *DashboardService) runImport(ctx context.Context, trigger string) (models.Snapshot, error) {
	start := time.Now()
	snap, err := s.importer.Run(ctx)
	duration := time.Since(start)
	observability.RefreshDuration.Observe(duration.Seconds())
	if err != nil {
		observability.RefreshesTotal.WithLabelValues(trigger, "error").Inc()
		traffic.RecordError()
		s.logger.Warn("import failed",
			zap.String("trigger", trigger),
			zap.Duration("duration", duration),
			zap.Error(err),
		)
		return models.Snapshot{}, err
	}
	observability.RefreshesTotal.WithLabelValues(trigger, "success").Inc()
	traffic.RecordSuccess()
	recordSnapshotGauges(snap)

	setStart := time.Now()
	if setErr := s.cache.Set(ctx, s.key, snap, s.ttl); setErr != nil {
		observability.CacheErrorsTotal.WithLabelValues("set", categorizeCacheError(setErr)).Inc()
		observability.CacheOperationDurationSeconds.WithLabelValues("set", "error").Observe(time.Since(setStart).Seconds())
		s.logger.Warn("cache set failed", zap.String("key", s.key), zap.Error(setErr))
	} else {
		observability.CacheOperationDurationSeconds.WithLabelValues("set", "success").Observe(time.Since(setStart).Seconds())
	}

	s.mu.Lock()
	s.last = &snap
	s.mu.Unlock()

	s.logger.Info("import complete",
		zap.String("trigger", trigger),
		zap.Int("observations", len(snap.Observations)),
		zap.String("tier", snap.Tier),
		zap.String("status", snap.Status),
		zap.Duration("duration", duration),
	)
	return snap, nil
}

func (s *DashboardService) staleSnapshot() (models.Snapshot, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.last == nil {
		return models.Snapshot{}, false
	}
	stale := *s.last
	stale.Stale = true
	return stale, true
}

func recordSnapshotGauges(snap models.Snapshot) {
	observability.DataAgeSeconds.Set(snap.Freshness.SinceRead.Seconds())
	observability.ChopinessScore.Set(snap.LatestChopiness())
	counts := map[models.Track]int{models.TrackRead: 0, models.TrackInterpolated: 0}
	for _, o := range snap.Observations {
		counts[o.Track]++
	}
	for track, n := range counts {
		observability.ObservationsByTrack.WithLabelValues(string(track)).Set(float64(n))
	}
}

// categorizeCacheError returns a stable label for cache error metrics (timeout, connection, unknown).
func categorizeCacheError(err error) string {
	if err == nil {
		return "unknown"
	}
	errStr := err.Error()
	if strings.Contains(errStr, "timeout") {
		return "timeout"
	}
	if strings.Contains(errStr, "connection") || strings.Contains(errStr, "network") {
		return "connection"
	}
	return "unknown"
}
