package buoy

import (
	"errors"
	"fmt"
	"math"
)

// ErrLengthMismatch is returned when the chopiness inputs are not aligned.
var ErrLengthMismatch = errors.New("series length mismatch")

// Tier is the safety classification shown on the dashboard bar.
type Tier string

const (
	TierCalm    Tier = "calm"
	TierCaution Tier = "caution"
	TierUnsafe  Tier = "unsafe"
)

// Tier thresholds on the chopiness score.
const (
	CautionThreshold = 5.0
	UnsafeThreshold  = 20.0
)

// Chopiness derives the index from wave height (m), dominant period (s) and gust (m/s):
//
//	mean5( max3(WVHT*3) * max3(DPD+1) * max3(GST*0.3) )
//
// All windows are centered. Slots where any window is incomplete score 0, so the
// first and last few entries are always 0.
func Chopiness(waveHeight, period, gust []float64) ([]float64, error) {
	if len(waveHeight) != len(period) || len(period) != len(gust) {
		return nil, fmt.Errorf("%w: WVHT=%d DPD=%d GST=%d", ErrLengthMismatch, len(waveHeight), len(period), len(gust))
	}
	waves := RollingMax(Scale(waveHeight, 3), 3)
	periods := RollingMax(Offset(period, 1), 3)
	gusts := RollingMax(Scale(gust, 0.3), 3)

	product := make([]float64, len(waves))
	for i := range product {
		product[i] = waves[i] * periods[i] * gusts[i]
	}

	score := RollingMean(product, 5)
	zeroMissing(score)
	return score, nil
}

// Classify maps a chopiness score to a tier.
func Classify(score float64) Tier {
	switch {
	case math.IsNaN(score):
		return TierCalm
	case score < CautionThreshold:
		return TierCalm
	case score < UnsafeThreshold:
		return TierCaution
	default:
		return TierUnsafe
	}
}

// BarColor returns the dashboard colour class for the tier.
func (t Tier) BarColor() string {
	switch t {
	case TierCaution:
		return "warning"
	case TierUnsafe:
		return "danger"
	default:
		return "success"
	}
}
