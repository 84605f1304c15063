package buoy

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strconv"
	"time"

	"github.com/kjstillabower/buoy-station-tools/internal/models"
)

// ErrMalformedValue is returned when a measurement is neither numeric nor the
// missing-data sentinel.
var ErrMalformedValue = errors.New("malformed value")

// Missing is the NDBC missing-data sentinel.
const Missing = "MM"

// DefaultCadence is the resampling step; the buoy reports on the hour and half hour.
const DefaultCadence = 30 * time.Minute

// Feed column names.
const (
	ColWindDirection  = "WDIR"
	ColWindSpeed      = "WSPD"
	ColGust           = "GST"
	ColWaveHeight     = "WVHT"
	ColDominantPeriod = "DPD"
	ColAirTemp        = "ATMP"
	ColWaterTemp      = "WTMP"
	ColSolar          = "SRAD1"
)

// MeasurementColumns are filled from neighbours and interpolated across empty slots.
var MeasurementColumns = []string{ColWindDirection, ColWindSpeed, ColGust, ColWaveHeight, ColAirTemp, ColWaterTemp, ColSolar}

// Series is the cadence-regular numeric result of Fill. Values are aligned with
// Times; NaN marks a value still missing at the current stage.
type Series struct {
	Times  []time.Time
	Track  []models.Track
	Values map[string][]float64
}

// Len returns the number of slots.
func (s *Series) Len() int {
	return len(s.Times)
}

// Fill converts a merged frame into a dense series:
//
//  1. "MM" in MeasurementColumns becomes missing, then forward-fill and back-fill
//     in merged-row order;
//  2. "MM" in DPD becomes 0;
//  3. every source row is tagged read;
//  4. rows are resampled onto a cadence grid, empty slots tagged interpolated;
//  5. MeasurementColumns are interpolated with a quadratic through nearby points;
//  6. anything still missing becomes 0.
func Fill(raw *RawFrame, cadence time.Duration) (*Series, error) {
	if cadence <= 0 {
		cadence = DefaultCadence
	}
	read, err := coerce(raw)
	if err != nil {
		return nil, err
	}
	out := resample(read, cadence)
	for _, name := range MeasurementColumns {
		interpolateQuadratic(out.Times, out.Values[name])
	}
	for _, values := range out.Values {
		zeroMissing(values)
	}
	return out, nil
}

// coerce turns the string cells into numbers and applies the sentinel policy.
func coerce(raw *RawFrame) (*Series, error) {
	s := &Series{
		Times:  append([]time.Time{}, raw.Times...),
		Track:  make([]models.Track, raw.Len()),
		Values: make(map[string][]float64, len(MeasurementColumns)+1),
	}
	for i := range s.Track {
		s.Track[i] = models.TrackRead
	}

	for _, name := range MeasurementColumns {
		values, err := numericColumn(raw, name, math.NaN())
		if err != nil {
			return nil, err
		}
		forwardFill(values)
		backFill(values)
		s.Values[name] = values
	}

	period, err := numericColumn(raw, ColDominantPeriod, 0)
	if err != nil {
		return nil, err
	}
	s.Values[ColDominantPeriod] = period
	return s, nil
}

// numericColumn parses column name, substituting sentinel for "MM". Empty cells
// (short feed rows) are missing.
func numericColumn(raw *RawFrame, name string, sentinel float64) ([]float64, error) {
	idx := raw.Column(name)
	if idx < 0 {
		return nil, fmt.Errorf("%w: %s", ErrMissingColumn, name)
	}
	values := make([]float64, raw.Len())
	for i, row := range raw.Cells {
		cell := row[idx]
		switch cell {
		case Missing:
			values[i] = sentinel
		case "":
			values[i] = math.NaN()
		default:
			v, err := strconv.ParseFloat(cell, 64)
			if err != nil {
				return nil, fmt.Errorf("%w: %s=%q at %s", ErrMalformedValue, name, cell, raw.Times[i].Format(time.RFC3339))
			}
			values[i] = v
		}
	}
	return values, nil
}

func forwardFill(values []float64) {
	last := math.NaN()
	for i, v := range values {
		if math.IsNaN(v) {
			values[i] = last
		} else {
			last = v
		}
	}
}

func backFill(values []float64) {
	next := math.NaN()
	for i := len(values) - 1; i >= 0; i-- {
		if math.IsNaN(values[i]) {
			values[i] = next
		} else {
			next = values[i]
		}
	}
}

func zeroMissing(values []float64) {
	for i, v := range values {
		if math.IsNaN(v) {
			values[i] = 0
		}
	}
}

// slotFloor aligns t down to the cadence grid anchored at local midnight.
func slotFloor(t time.Time, cadence time.Duration) time.Time {
	midnight := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
	n := t.Sub(midnight) / cadence
	return midnight.Add(n * cadence)
}

// resample sorts s by time and places it on a cadence grid from the slot of the
// earliest row to the slot of the latest. A slot takes the row whose timestamp
// equals it exactly (first one wins on duplicates); other slots are empty and
// tagged interpolated. Rows off the grid are dropped.
func resample(s *Series, cadence time.Duration) *Series {
	out := &Series{Values: make(map[string][]float64, len(s.Values))}
	if s.Len() == 0 {
		for name := range s.Values {
			out.Values[name] = nil
		}
		return out
	}

	order := make([]int, s.Len())
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return s.Times[order[a]].Before(s.Times[order[b]])
	})

	bySlot := make(map[int64]int, len(order))
	for _, i := range order {
		key := s.Times[i].UnixNano()
		if _, dup := bySlot[key]; !dup {
			bySlot[key] = i
		}
	}

	loc := s.Times[order[0]].Location()
	first := slotFloor(s.Times[order[0]], cadence)
	last := slotFloor(s.Times[order[len(order)-1]], cadence)
	for slot := first; !slot.After(last); slot = slot.Add(cadence) {
		out.Times = append(out.Times, slot.In(loc))
		src, ok := bySlot[slot.UnixNano()]
		if ok {
			out.Track = append(out.Track, s.Track[src])
		} else {
			out.Track = append(out.Track, models.TrackInterpolated)
		}
		for name, values := range s.Values {
			v := math.NaN()
			if ok {
				v = values[src]
			}
			out.Values[name] = append(out.Values[name], v)
		}
	}
	return out
}

// Observations converts a filled series into dashboard rows.
func (s *Series) Observations() []models.BuoyObservation {
	obs := make([]models.BuoyObservation, s.Len())
	col := func(name string, i int) float64 {
		if values := s.Values[name]; i < len(values) {
			return values[i]
		}
		return 0
	}
	for i, ts := range s.Times {
		obs[i] = models.BuoyObservation{
			Timestamp:      ts,
			WindDirection:  col(ColWindDirection, i),
			WindSpeed:      col(ColWindSpeed, i),
			Gust:           col(ColGust, i),
			WaveHeight:     col(ColWaveHeight, i),
			DominantPeriod: col(ColDominantPeriod, i),
			AirTemp:        col(ColAirTemp, i),
			WaterTemp:      col(ColWaterTemp, i),
			SolarRadiation: col(ColSolar, i),
			Track:          s.Track[i],
		}
	}
	return obs
}
