package buoy

import (
	"math"
	"testing"
)

func equalWithNaN(a, b []float64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if math.IsNaN(a[i]) != math.IsNaN(b[i]) {
			return false
		}
		if !math.IsNaN(a[i]) && math.Abs(a[i]-b[i]) > 1e-9 {
			return false
		}
	}
	return true
}

func TestWindowBounds(t *testing.T) {
	tests := []struct{ w, left, right int }{
		{3, 1, 1},
		{5, 2, 2},
		{4, 2, 1},
		{12, 6, 5},
	}
	for _, tt := range tests {
		l, r := windowBounds(tt.w)
		if l != tt.left || r != tt.right {
			t.Errorf("windowBounds(%d) = %d,%d, want %d,%d", tt.w, l, r, tt.left, tt.right)
		}
	}
}

func TestRollingMax(t *testing.T) {
	nan := math.NaN()
	got := RollingMax([]float64{1, 3, 2, 5, 4}, 3)
	want := []float64{nan, 3, 5, 5, nan}
	if !equalWithNaN(got, want) {
		t.Errorf("RollingMax = %v, want %v", got, want)
	}
}

func TestRollingMean(t *testing.T) {
	nan := math.NaN()
	tests := []struct {
		name   string
		values []float64
		w      int
		want   []float64
	}{
		{"odd window", []float64{1, 2, 3, 4, 5}, 5, []float64{nan, nan, 3, nan, nan}},
		{"even window leans left", []float64{1, 2, 3, 4, 5}, 4, []float64{nan, nan, 2.5, 3.5, nan}},
		{"nan poisons window", []float64{1, nan, 3, 4, 5}, 3, []float64{nan, nan, nan, 4, nan}},
		{"window longer than input", []float64{1, 2}, 3, []float64{nan, nan}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := RollingMean(tt.values, tt.w); !equalWithNaN(got, tt.want) {
				t.Errorf("RollingMean = %v, want %v", got, tt.want)
			}
		})
	}
}
