package cache

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/kjstillabower/buoy-station-tools/internal/models"
)

// Trigger labels for refresh metrics.
const (
	TriggerStartup  = "startup"
	TriggerPeriodic = "periodic"
)

// SnapshotRefresher is implemented by the service layer to re-run the import and
// store the result. Used by CacheWarmer to avoid a circular dependency on the service package.
type SnapshotRefresher interface {
	Refresh(ctx context.Context, trigger string) (models.Snapshot, error)
}

// CacheWarmer keeps the dashboard snapshot populated ahead of page loads.
type CacheWarmer struct {
	refresher SnapshotRefresher
	logger    *zap.Logger
}

// NewCacheWarmer creates a CacheWarmer that uses the given refresher and logger.
func NewCacheWarmer(refresher SnapshotRefresher, logger *zap.Logger) *CacheWarmer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CacheWarmer{refresher: refresher, logger: logger}
}

// Warm runs one import with the given trigger label.
func (w *CacheWarmer) Warm(ctx context.Context, trigger string) error {
	start := time.Now()
	snap, err := w.refresher.Refresh(ctx, trigger)
	if err != nil {
		w.logger.Warn("cache warm failed", zap.String("trigger", trigger), zap.Error(err))
		return err
	}
	w.logger.Info("cache warmed",
		zap.String("trigger", trigger),
		zap.Int("observations", len(snap.Observations)),
		zap.Duration("duration", time.Since(start)),
	)
	return nil
}

// WarmPeriodic runs an initial Warm, then refreshes at the given interval until ctx is done.
// Failures are logged and the loop continues.
func (w *CacheWarmer) WarmPeriodic(ctx context.Context, interval time.Duration) error {
	_ = w.Warm(ctx, TriggerStartup)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			_ = w.Warm(ctx, TriggerPeriodic)
		}
	}
}
