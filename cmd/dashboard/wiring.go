package main

import (
	"time"

	"golang.org/x/time/rate"

	"github.com/kjstillabower/buoy-station-tools/internal/cache"
	"github.com/kjstillabower/buoy-station-tools/internal/config"
)

// importBudget bounds one import run: two feeds, each retried up to
// RetryAttempts times, plus one backoff at the cap.
func importBudget(cfg *config.Config) time.Duration {
	attempts := cfg.RetryAttempts
	if attempts < 1 {
		attempts = 1
	}
	return 2*cfg.FeedTimeout*time.Duration(attempts) + cfg.RetryMaxDelay
}

// newSnapshotCache returns the configured backend. mc is non-nil only for
// memcached so the caller can ping and close it.
func newSnapshotCache(cfg *config.Config) (c cache.Cache, mc *cache.MemcachedCache, err error) {
	if cfg.CacheBackend != "memcached" {
		return cache.NewInMemoryCache(), nil, nil
	}
	mc, err = cache.NewMemcachedCache(cfg.MemcachedAddrs, cfg.MemcachedTimeout, cfg.MemcachedMaxIdleConns)
	if err != nil {
		return nil, nil, err
	}
	return mc, mc, nil
}

// newRefreshLimiter returns nil when refresh rate limiting is off.
func newRefreshLimiter(cfg *config.Config) *rate.Limiter {
	if cfg.RefreshRateLimitRPS <= 0 {
		return nil
	}
	burst := cfg.RefreshRateLimitBurst
	if burst < 1 {
		burst = 1
	}
	return rate.NewLimiter(rate.Limit(cfg.RefreshRateLimitRPS), burst)
}
