package buoy

import (
	"errors"
	"math"
	"testing"
)

func repeat(v float64, n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = v
	}
	return out
}

func TestChopiness_AllZeroIsCalm(t *testing.T) {
	n := 12
	got, err := Chopiness(repeat(0, n), repeat(0, n), repeat(0, n))
	if err != nil {
		t.Fatalf("Chopiness: %v", err)
	}
	for i, v := range got {
		if v != 0 {
			t.Errorf("score[%d] = %v, want 0", i, v)
		}
	}
	if tier := Classify(got[len(got)-1]); tier != TierCalm {
		t.Errorf("Classify = %q, want calm", tier)
	}
}

func TestChopiness_ConstantInputs(t *testing.T) {
	n := 10
	// max3(1*3)=3, max3(4+1)=5, max3(10*0.3)=3
	got, err := Chopiness(repeat(1, n), repeat(4, n), repeat(10, n))
	if err != nil {
		t.Fatalf("Chopiness: %v", err)
	}
	want := []float64{0, 0, 0, 45, 45, 45, 45, 0, 0, 0}
	if !equalWithNaN(got, want) {
		t.Errorf("Chopiness = %v, want %v", got, want)
	}
}

func TestChopiness_VaryingInputs(t *testing.T) {
	waves := []float64{0, 1, 0, 2, 0, 1, 0, 0, 3, 1, 2}
	period := []float64{5, 0, 4, 6, 2, 0, 3, 1, 7, 2, 0}
	gust := []float64{10, 3, 8, 1, 12, 5, 7, 4, 2, 9, 6}
	got, err := Chopiness(waves, period, gust)
	if err != nil {
		t.Fatalf("Chopiness: %v", err)
	}
	want := []float64{0, 0, 0, 100.08, 94.32, 104.4, 113.04, 121.68, 0, 0, 0}
	if len(got) != len(want) {
		t.Fatalf("len = %d, want %d", len(got), len(want))
	}
	for i := range want {
		if math.Abs(got[i]-want[i]) > 1e-9 {
			t.Errorf("score[%d] = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestChopiness_LengthMismatch(t *testing.T) {
	_, err := Chopiness(repeat(1, 3), repeat(1, 4), repeat(1, 3))
	if !errors.Is(err, ErrLengthMismatch) {
		t.Fatalf("err = %v, want ErrLengthMismatch", err)
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		score float64
		tier  Tier
		color string
	}{
		{0, TierCalm, "success"},
		{4.99, TierCalm, "success"},
		{5, TierCaution, "warning"},
		{19.9, TierCaution, "warning"},
		{20, TierUnsafe, "danger"},
		{300, TierUnsafe, "danger"},
	}
	for _, tt := range tests {
		tier := Classify(tt.score)
		if tier != tt.tier {
			t.Errorf("Classify(%v) = %q, want %q", tt.score, tier, tt.tier)
		}
		if got := tier.BarColor(); got != tt.color {
			t.Errorf("%q.BarColor() = %q, want %q", tier, got, tt.color)
		}
	}
}
