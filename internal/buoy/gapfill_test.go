package buoy

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/kjstillabower/buoy-station-tools/internal/models"
	"github.com/kjstillabower/buoy-station-tools/internal/ndbc"
)

var allColumns = []string{"WDIR", "WSPD", "GST", "WVHT", "DPD", "ATMP", "WTMP", "SRAD1"}

func frame(times []time.Time, rows ...[]string) *RawFrame {
	return &RawFrame{Times: times, Columns: allColumns, Cells: rows}
}

func TestFill_InsertsInterpolatedHalfHour(t *testing.T) {
	loc := eastern(t)
	raw, err := Normalize(mustFeed(t, ndbc.FeedMeteorological, sampleMeteorological), mustFeed(t, ndbc.FeedSolar, sampleSolar), loc)
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	s, err := Fill(raw, DefaultCadence)
	if err != nil {
		t.Fatalf("Fill: %v", err)
	}

	wantTimes := []time.Time{
		time.Date(2024, 6, 1, 8, 0, 0, 0, loc),
		time.Date(2024, 6, 1, 8, 30, 0, 0, loc),
		time.Date(2024, 6, 1, 9, 0, 0, 0, loc),
	}
	wantTrack := []models.Track{models.TrackRead, models.TrackInterpolated, models.TrackRead}
	if s.Len() != len(wantTimes) {
		t.Fatalf("Len() = %d, want %d", s.Len(), len(wantTimes))
	}
	for i := range wantTimes {
		if !s.Times[i].Equal(wantTimes[i]) {
			t.Errorf("Times[%d] = %v, want %v", i, s.Times[i], wantTimes[i])
		}
		if s.Track[i] != wantTrack[i] {
			t.Errorf("Track[%d] = %q, want %q", i, s.Track[i], wantTrack[i])
		}
	}

	// Two known points: the gap is a straight line between them.
	if got := s.Values[ColWindSpeed][1]; math.Abs(got-4.5) > 1e-9 {
		t.Errorf("WSPD at 08:30 = %v, want 4.5", got)
	}
	if got := s.Values[ColSolar][1]; math.Abs(got-395.25) > 1e-9 {
		t.Errorf("SRAD1 at 08:30 = %v, want 395.25", got)
	}
	// DPD is not interpolated: the empty slot becomes 0.
	if got := s.Values[ColDominantPeriod][1]; got != 0 {
		t.Errorf("DPD at 08:30 = %v, want 0", got)
	}
}

func TestFill_SentinelPolicy(t *testing.T) {
	loc := eastern(t)
	raw, err := Normalize(mustFeed(t, ndbc.FeedMeteorological, sampleMeteorological), mustFeed(t, ndbc.FeedSolar, sampleSolar), loc)
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	s, err := Fill(raw, DefaultCadence)
	if err != nil {
		t.Fatalf("Fill: %v", err)
	}

	// 08:00 had WVHT=MM: forward-filled from the 09:00 row that precedes it in feed order.
	if got := s.Values[ColWaveHeight][0]; got != 0.5 {
		t.Errorf("WVHT at 08:00 = %v, want 0.5", got)
	}
	// 08:00 had DPD=MM: zero.
	if got := s.Values[ColDominantPeriod][0]; got != 0 {
		t.Errorf("DPD at 08:00 = %v, want 0", got)
	}
	if got := s.Values[ColDominantPeriod][2]; got != 4 {
		t.Errorf("DPD at 09:00 = %v, want 4", got)
	}
}

func TestFill_NoMissingValuesRemain(t *testing.T) {
	base := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	raw := frame(
		[]time.Time{base, base.Add(90 * time.Minute), base.Add(4 * time.Hour), base.Add(5 * time.Hour)},
		[]string{"MM", "MM", "MM", "MM", "MM", "MM", "MM", "MM"},
		[]string{"180", "MM", "7.0", "MM", "MM", "MM", "12.0", "MM"},
		[]string{"MM", "3.0", "MM", "0.8", "5", "", "MM", "MM"},
		[]string{"MM", "MM", "MM", "MM", "MM", "MM", "MM", "MM"},
	)
	s, err := Fill(raw, DefaultCadence)
	if err != nil {
		t.Fatalf("Fill: %v", err)
	}
	if s.Len() != 11 {
		t.Fatalf("Len() = %d, want 11", s.Len())
	}
	for name, values := range s.Values {
		if len(values) != s.Len() {
			t.Errorf("%s has %d values, want %d", name, len(values), s.Len())
		}
		for i, v := range values {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				t.Errorf("%s[%d] = %v, want a number", name, i, v)
			}
		}
	}
	for i, track := range s.Track {
		if track != models.TrackRead && track != models.TrackInterpolated {
			t.Errorf("Track[%d] = %q", i, track)
		}
	}
	// SRAD1 was never reported: every slot is zero.
	for i, v := range s.Values[ColSolar] {
		if v != 0 {
			t.Errorf("SRAD1[%d] = %v, want 0", i, v)
		}
	}
}

func TestFill_DuplicateTimestampFirstWins(t *testing.T) {
	base := time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)
	raw := frame(
		[]time.Time{base, base},
		[]string{"1", "1", "1", "1", "1", "1", "1", "1"},
		[]string{"2", "2", "2", "2", "2", "2", "2", "2"},
	)
	s, err := Fill(raw, DefaultCadence)
	if err != nil {
		t.Fatalf("Fill: %v", err)
	}
	if s.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", s.Len())
	}
	if got := s.Values[ColWindSpeed][0]; got != 1 {
		t.Errorf("WSPD = %v, want 1", got)
	}
}

func TestFill_OffGridRowIsDropped(t *testing.T) {
	base := time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)
	raw := frame(
		[]time.Time{base, base.Add(40 * time.Minute), base.Add(time.Hour)},
		[]string{"1", "1", "1", "1", "1", "1", "1", "1"},
		[]string{"9", "9", "9", "9", "9", "9", "9", "9"},
		[]string{"3", "3", "3", "3", "3", "3", "3", "3"},
	)
	s, err := Fill(raw, DefaultCadence)
	if err != nil {
		t.Fatalf("Fill: %v", err)
	}
	if s.Len() != 3 {
		t.Fatalf("Len() = %d, want 3", s.Len())
	}
	if s.Track[1] != models.TrackInterpolated {
		t.Errorf("Track[1] = %q, want interpolated", s.Track[1])
	}
	if got := s.Values[ColWindSpeed][1]; math.Abs(got-2) > 1e-9 {
		t.Errorf("WSPD[1] = %v, want 2", got)
	}
}

func TestFill_MalformedValue(t *testing.T) {
	raw := frame(
		[]time.Time{time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)},
		[]string{"1", "fast", "1", "1", "1", "1", "1", "1"},
	)
	if _, err := Fill(raw, DefaultCadence); !errors.Is(err, ErrMalformedValue) {
		t.Fatalf("err = %v, want ErrMalformedValue", err)
	}
}

func TestFill_MissingColumn(t *testing.T) {
	raw := &RawFrame{
		Times:   []time.Time{time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)},
		Columns: []string{"WDIR"},
		Cells:   [][]string{{"1"}},
	}
	if _, err := Fill(raw, DefaultCadence); !errors.Is(err, ErrMissingColumn) {
		t.Fatalf("err = %v, want ErrMissingColumn", err)
	}
}

func TestFill_Empty(t *testing.T) {
	s, err := Fill(&RawFrame{Columns: allColumns}, DefaultCadence)
	if err != nil {
		t.Fatalf("Fill: %v", err)
	}
	if s.Len() != 0 {
		t.Errorf("Len() = %d, want 0", s.Len())
	}
	if got := s.Observations(); len(got) != 0 {
		t.Errorf("Observations() = %d rows, want 0", len(got))
	}
}

func TestSeries_Observations(t *testing.T) {
	ts := time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)
	s := &Series{
		Times: []time.Time{ts},
		Track: []models.Track{models.TrackRead},
		Values: map[string][]float64{
			ColWindDirection: {180}, ColWindSpeed: {5}, ColGust: {7}, ColWaveHeight: {0.4},
			ColDominantPeriod: {3}, ColAirTemp: {20}, ColWaterTemp: {18}, ColSolar: {400},
		},
	}
	got := s.Observations()
	want := models.BuoyObservation{
		Timestamp: ts, WindDirection: 180, WindSpeed: 5, Gust: 7, WaveHeight: 0.4,
		DominantPeriod: 3, AirTemp: 20, WaterTemp: 18, SolarRadiation: 400, Track: models.TrackRead,
	}
	if len(got) != 1 || got[0] != want {
		t.Errorf("Observations() = %+v, want [%+v]", got, want)
	}
}
