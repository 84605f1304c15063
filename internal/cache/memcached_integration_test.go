//go:build integration

package cache

import (
	"context"
	"testing"
	"time"

	"github.com/bradfitz/gomemcache/memcache"
)

func dialMemcached(t *testing.T) *MemcachedCache {
	t.Helper()
	c, err := NewMemcachedCache(defaultMemcachedAddr, 500*time.Millisecond, 2)
	if err != nil {
		t.Fatalf("NewMemcachedCache() error = %v", err)
	}
	if err := c.Ping(); err != nil {
		t.Skipf("memcached not reachable at %s: %v", defaultMemcachedAddr, err)
	}
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestMemcachedCache_RoundTrip_Integration(t *testing.T) {
	c := dialMemcached(t)
	ctx := context.Background()

	want := testSnapshot("41002")
	if err := c.Set(ctx, want.Buoy, want, time.Minute); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	got, ok, err := c.Get(ctx, want.Buoy)
	if err != nil || !ok {
		t.Fatalf("Get() = ok %v, err %v", ok, err)
	}
	if got.Tier != want.Tier || len(got.Chopiness) != len(want.Chopiness) {
		t.Errorf("Get() = %+v, want %+v", got, want)
	}
}

func TestMemcachedCache_UnknownKeyIsMiss_Integration(t *testing.T) {
	c := dialMemcached(t)
	_, ok, err := c.Get(context.Background(), "no-such-buoy")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if ok {
		t.Error("Get() ok = true for unknown buoy")
	}
}

func TestMemcachedCache_OldVersionIsMiss_Integration(t *testing.T) {
	c := dialMemcached(t)
	err := c.client.Set(&memcache.Item{
		Key:        snapshotKey("44013"),
		Value:      []byte(`{"v":1,"snapshot":{"buoy":"44013"}}`),
		Expiration: 60,
	})
	if err != nil {
		t.Fatalf("raw Set() error = %v", err)
	}
	_, ok, err := c.Get(context.Background(), "44013")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if ok {
		t.Error("Get() ok = true for entry written under an older version")
	}
}
