package cache

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/kjstillabower/buoy-station-tools/internal/models"
)

// benchSnapshot is roughly what 45 days of half-hourly buoy data looks like.
func benchSnapshot() models.Snapshot {
	const n = 45 * 48
	start := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	snap := models.Snapshot{Buoy: "45183", Tier: "calm", Status: "Data is current"}
	for i := 0; i < n; i++ {
		snap.Observations = append(snap.Observations, models.BuoyObservation{
			Timestamp:  start.Add(time.Duration(i) * 30 * time.Minute),
			WindSpeed:  5,
			Gust:       7,
			WaveHeight: 0.4,
			AirTemp:    20,
			WaterTemp:  18,
			Track:      models.TrackRead,
		})
		snap.Chopiness = append(snap.Chopiness, 3.5)
	}
	return snap
}

func BenchmarkInMemoryCache_Get_Hit(b *testing.B) {
	c := NewInMemoryCache()
	ctx := context.Background()
	_ = c.Set(ctx, "45183", benchSnapshot(), 5*time.Minute)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _, _ = c.Get(ctx, "45183")
	}
}

func BenchmarkInMemoryCache_Set(b *testing.B) {
	c := NewInMemoryCache()
	ctx := context.Background()
	snap := benchSnapshot()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = c.Set(ctx, "45183", snap, 5*time.Minute)
	}
}

func BenchmarkInMemoryCache_Concurrent(b *testing.B) {
	c := NewInMemoryCache()
	ctx := context.Background()
	snap := benchSnapshot()
	_ = c.Set(ctx, "45183", snap, 5*time.Minute)

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			_, _, _ = c.Get(ctx, "45183")
		}
	})
}

// BenchmarkSnapshot_MarshalJSON measures the memcached encoding cost and reports the item size.
func BenchmarkSnapshot_MarshalJSON(b *testing.B) {
	snap := benchSnapshot()
	raw, _ := json.Marshal(snap)
	b.ReportMetric(float64(len(raw)), "bytes/item")

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = json.Marshal(snap)
	}
}
