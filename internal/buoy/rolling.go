package buoy

import "math"

// windowBounds returns how far a centered window of size w reaches left and
// right. Even windows lean left, matching the usual dataframe convention.
func windowBounds(w int) (left, right int) {
	left = w / 2
	right = w - 1 - left
	return left, right
}

// rolling applies agg over a centered window of size w. A window that runs off
// either end or contains NaN yields NaN.
func rolling(values []float64, w int, agg func([]float64) float64) []float64 {
	out := make([]float64, len(values))
	left, right := windowBounds(w)
	for i := range values {
		lo, hi := i-left, i+right
		if w <= 0 || lo < 0 || hi >= len(values) {
			out[i] = math.NaN()
			continue
		}
		window := values[lo : hi+1]
		complete := true
		for _, v := range window {
			if math.IsNaN(v) {
				complete = false
				break
			}
		}
		if !complete {
			out[i] = math.NaN()
			continue
		}
		out[i] = agg(window)
	}
	return out
}

// RollingMax is a centered rolling maximum over w samples.
func RollingMax(values []float64, w int) []float64 {
	return rolling(values, w, func(window []float64) float64 {
		m := window[0]
		for _, v := range window[1:] {
			if v > m {
				m = v
			}
		}
		return m
	})
}

// RollingMean is a centered rolling mean over w samples.
func RollingMean(values []float64, w int) []float64 {
	return rolling(values, w, func(window []float64) float64 {
		var sum float64
		for _, v := range window {
			sum += v
		}
		return sum / float64(len(window))
	})
}

// Scale returns values*factor.
func Scale(values []float64, factor float64) []float64 {
	out := make([]float64, len(values))
	for i, v := range values {
		out[i] = v * factor
	}
	return out
}

// Offset returns values+delta.
func Offset(values []float64, delta float64) []float64 {
	out := make([]float64, len(values))
	for i, v := range values {
		out[i] = v + delta
	}
	return out
}
