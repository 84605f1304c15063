package buoy

import (
	"math"
	"time"
)

// interpolateQuadratic fills interior NaN gaps in values in place with a
// second-order polynomial through the two bracketing points and the next
// closest known point. With only two known points it falls back to a straight
// line. Leading and trailing gaps are left alone. This is not a global
// quadratic spline, so on gaps spanning several slots the filled values can
// differ from a spline fitted through every known point.
func interpolateQuadratic(times []time.Time, values []float64) {
	if len(times) == 0 || len(values) != len(times) {
		return
	}
	known := make([]int, 0, len(values))
	for i, v := range values {
		if !math.IsNaN(v) {
			known = append(known, i)
		}
	}
	if len(known) < 2 {
		return
	}

	origin := times[0]
	x := func(i int) float64 { return times[i].Sub(origin).Seconds() }

	k := 0 // known[k] is the first known index after i
	for i := known[0] + 1; i < known[len(known)-1]; i++ {
		for known[k] <= i {
			k++
		}
		if !math.IsNaN(values[i]) {
			continue
		}
		l, r := known[k-1], known[k]
		third := -1
		switch {
		case k-2 >= 0 && k+1 < len(known):
			if x(i)-x(known[k-2]) <= x(known[k+1])-x(i) {
				third = known[k-2]
			} else {
				third = known[k+1]
			}
		case k-2 >= 0:
			third = known[k-2]
		case k+1 < len(known):
			third = known[k+1]
		}

		if third < 0 {
			values[i] = linear(x(l), values[l], x(r), values[r], x(i))
			continue
		}
		values[i] = lagrange2(
			[3]float64{x(l), x(r), x(third)},
			[3]float64{values[l], values[r], values[third]},
			x(i),
		)
	}
}

func linear(x0, y0, x1, y1, at float64) float64 {
	return y0 + (y1-y0)*(at-x0)/(x1-x0)
}

// lagrange2 evaluates the quadratic through three points at at.
func lagrange2(xs, ys [3]float64, at float64) float64 {
	var sum float64
	for j := 0; j < 3; j++ {
		term := ys[j]
		for m := 0; m < 3; m++ {
			if m != j {
				term *= (at - xs[m]) / (xs[j] - xs[m])
			}
		}
		sum += term
	}
	return sum
}
