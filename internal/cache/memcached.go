package cache

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/bradfitz/gomemcache/memcache"

	"github.com/kjstillabower/buoy-station-tools/internal/models"
)

// snapshotVersion is bumped whenever models.Snapshot changes shape. Entries
// written under another version read back as misses.
const snapshotVersion = 2

const (
	defaultMemcachedAddr = "localhost:11211"
	fallbackExpiry       = int32(3600)
	maxRelativeExpiry    = int64(30 * 24 * 60 * 60)
)

type envelope struct {
	Version  int             `json:"v"`
	StoredAt time.Time       `json:"storedAt"`
	Snapshot models.Snapshot `json:"snapshot"`
}

// MemcachedCache shares dashboard snapshots between replicas through memcached.
type MemcachedCache struct {
	client *memcache.Client
}

// NewMemcachedCache connects to the comma-separated server list addrs.
// Zero timeout or maxIdleConns keep the gomemcache defaults.
func NewMemcachedCache(addrs string, timeout time.Duration, maxIdleConns int) (*MemcachedCache, error) {
	servers := parseAddrs(addrs)
	if len(servers) == 0 {
		servers = []string{defaultMemcachedAddr}
	}

	mc := memcache.New(servers...)
	if timeout > 0 {
		mc.Timeout = timeout
	}
	if maxIdleConns > 0 {
		mc.MaxIdleConns = maxIdleConns
	}
	return &MemcachedCache{client: mc}, nil
}

func parseAddrs(s string) []string {
	fields := strings.Split(s, ",")
	servers := fields[:0]
	for _, f := range fields {
		if f = strings.TrimSpace(f); f != "" {
			servers = append(servers, f)
		}
	}
	return servers
}

// snapshotKey namespaces buoy ids; memcached keys may not contain spaces.
func snapshotKey(buoyID string) string {
	return "buoy:snapshot:" + strings.ReplaceAll(buoyID, " ", "_")
}

// Get reads the snapshot for buoyID. A missing key or an entry written under an
// older snapshot version is a miss.
func (c *MemcachedCache) Get(ctx context.Context, buoyID string) (models.Snapshot, bool, error) {
	if err := ctx.Err(); err != nil {
		return models.Snapshot{}, false, err
	}

	item, err := c.client.Get(snapshotKey(buoyID))
	switch {
	case errors.Is(err, memcache.ErrCacheMiss):
		return models.Snapshot{}, false, nil
	case err != nil:
		return models.Snapshot{}, false, err
	}

	var env envelope
	if err := json.Unmarshal(item.Value, &env); err != nil {
		return models.Snapshot{}, false, err
	}
	if env.Version != snapshotVersion {
		return models.Snapshot{}, false, nil
	}
	return env.Snapshot, true, nil
}

// Set stores snap under buoyID. Snapshots larger than the server item limit
// (1MB by default) fail with memcache.ErrServerError.
func (c *MemcachedCache) Set(ctx context.Context, buoyID string, snap models.Snapshot, ttl time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	raw, err := json.Marshal(envelope{
		Version:  snapshotVersion,
		StoredAt: time.Now().UTC(),
		Snapshot: snap,
	})
	if err != nil {
		return err
	}
	return c.client.Set(&memcache.Item{
		Key:        snapshotKey(buoyID),
		Value:      raw,
		Expiration: expirationSeconds(ttl),
	})
}

// expirationSeconds maps ttl onto memcached's relative expiry. Values outside
// (0, 30 days] would be read as absolute unix times, so they fall back to an hour.
func expirationSeconds(ttl time.Duration) int32 {
	secs := int64(ttl / time.Second)
	if secs <= 0 || secs > maxRelativeExpiry {
		return fallbackExpiry
	}
	return int32(secs)
}

// Ping reports whether every configured server answers. Used by /health.
func (c *MemcachedCache) Ping() error {
	return c.client.Ping()
}

// Close releases idle connections.
func (c *MemcachedCache) Close() error {
	return c.client.Close()
}
