package buoy

import (
	"time"

	"github.com/kjstillabower/buoy-station-tools/internal/models"
)

// Status lines shown above the charts.
const (
	StatusCurrent = "Data is current"
	StatusStale   = "Data has not been read in over 30 minutes!"
)

// CheckFreshness reports how old the newest slot and the newest read slot are
// relative to now. obs must be ascending, as Fill returns it.
func CheckFreshness(obs []models.BuoyObservation, now time.Time) models.Freshness {
	var f models.Freshness
	if len(obs) == 0 {
		return f
	}
	newest := obs[len(obs)-1]
	f.Newest = newest.Timestamp
	f.NewestTrack = newest.Track
	f.Age = now.Sub(newest.Timestamp)

	for i := len(obs) - 1; i >= 0; i-- {
		if obs[i].Track == models.TrackRead {
			f.LastRead = obs[i].Timestamp
			f.SinceRead = now.Sub(obs[i].Timestamp)
			break
		}
	}
	return f
}

// StatusText is current only when the newest slot was read from the feed.
func StatusText(f models.Freshness) string {
	if f.NewestTrack == models.TrackRead {
		return StatusCurrent
	}
	return StatusStale
}
