package buoy

import (
	"math"
	"testing"
	"time"
)

func minutes(n int) []time.Time {
	base := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	out := make([]time.Time, n)
	for i := range out {
		out[i] = base.Add(time.Duration(i) * 30 * time.Minute)
	}
	return out
}

func TestInterpolateQuadratic(t *testing.T) {
	nan := math.NaN()
	tests := []struct {
		name   string
		values []float64
		want   []float64
	}{
		{
			name:   "parabola recovered",
			values: []float64{0, 1, 4, nan, 16},
			want:   []float64{0, 1, 4, 9, 16},
		},
		{
			name:   "two points is linear",
			values: []float64{2, nan, nan, 8},
			want:   []float64{2, 4, 6, 8},
		},
		{
			name:   "edges untouched",
			values: []float64{nan, 1, nan, 3, nan},
			want:   []float64{nan, 1, 2, 3, nan},
		},
		{
			name:   "single point untouched",
			values: []float64{nan, 5, nan},
			want:   []float64{nan, 5, nan},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := append([]float64{}, tt.values...)
			interpolateQuadratic(minutes(len(got)), got)
			for i := range tt.want {
				if math.IsNaN(tt.want[i]) {
					if !math.IsNaN(got[i]) {
						t.Errorf("[%d] = %v, want NaN", i, got[i])
					}
					continue
				}
				if math.Abs(got[i]-tt.want[i]) > 1e-6 {
					t.Errorf("[%d] = %v, want %v", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestInterpolateQuadratic_LengthMismatchIsNoop(t *testing.T) {
	values := []float64{1, math.NaN(), 3}
	interpolateQuadratic(minutes(2), values)
	if !math.IsNaN(values[1]) {
		t.Errorf("values[1] = %v, want NaN", values[1])
	}
}
