package models

import "time"

// Track marks whether an observation was read from the feed or synthesized.
type Track string

const (
	TrackRead         Track = "read"
	TrackInterpolated Track = "interpolated"
)

// BuoyObservation is one 30-minute slot of merged buoy data. Units follow the
// NDBC feed: m/s, metres, seconds, degC, W/m2.
type BuoyObservation struct {
	Timestamp      time.Time `json:"timestamp"`
	WindDirection  float64   `json:"windDirection"`
	WindSpeed      float64   `json:"windSpeed"`
	Gust           float64   `json:"gust"`
	WaveHeight     float64   `json:"waveHeight"`
	DominantPeriod float64   `json:"dominantPeriod"`
	AirTemp        float64   `json:"airTemp"`
	WaterTemp      float64   `json:"waterTemp"`
	SolarRadiation float64   `json:"solarRadiation"`
	Track          Track     `json:"track"`
}

// Freshness describes how old the newest data in a series is.
type Freshness struct {
	Newest      time.Time     `json:"newest"`
	NewestTrack Track         `json:"newestTrack"`
	Age         time.Duration `json:"age"`
	LastRead    time.Time     `json:"lastRead"`
	SinceRead   time.Duration `json:"sinceRead"`
}

// Snapshot is everything the dashboard needs from one import run.
type Snapshot struct {
	Buoy         string            `json:"buoy"`
	Observations []BuoyObservation `json:"observations"`
	Chopiness    []float64         `json:"chopiness"`
	Freshness    Freshness         `json:"freshness"`
	Tier         string            `json:"tier"`
	Status       string            `json:"status"`
	GeneratedAt  time.Time         `json:"generatedAt"`
	Stale        bool              `json:"stale,omitempty"` // previous snapshot served after a failed refresh
}

// LatestChopiness returns the last value of the chopiness series, or 0 when empty.
func (s Snapshot) LatestChopiness() float64 {
	if len(s.Chopiness) == 0 {
		return 0
	}
	return s.Chopiness[len(s.Chopiness)-1]
}
