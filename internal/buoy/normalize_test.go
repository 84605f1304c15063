package buoy

import (
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/kjstillabower/buoy-station-tools/internal/ndbc"
)

func TestNormalize_MergesAndConverts(t *testing.T) {
	loc := eastern(t)
	raw, err := Normalize(mustFeed(t, ndbc.FeedMeteorological, sampleMeteorological), mustFeed(t, ndbc.FeedSolar, sampleSolar), loc)
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}

	wantCols := []string{"WDIR", "WSPD", "GST", "WVHT", "DPD", "ATMP", "WTMP", "SRAD1"}
	if !reflect.DeepEqual(raw.Columns, wantCols) {
		t.Errorf("Columns = %v, want %v", raw.Columns, wantCols)
	}
	if raw.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", raw.Len())
	}

	// Meteorological order is kept: 13:00 GMT first.
	want := []time.Time{
		time.Date(2024, 6, 1, 9, 0, 0, 0, loc),
		time.Date(2024, 6, 1, 8, 0, 0, 0, loc),
	}
	for i, ts := range raw.Times {
		if !ts.Equal(want[i]) {
			t.Errorf("Times[%d] = %v, want %v", i, ts, want[i])
		}
		if ts.Location() != loc {
			t.Errorf("Times[%d] location = %v, want %v", i, ts.Location(), loc)
		}
	}
	if got := raw.Cells[0][raw.Column("SRAD1")]; got != "410.0" {
		t.Errorf("SRAD1 of first row = %q, want 410.0", got)
	}
}

func TestNormalize_InnerJoin(t *testing.T) {
	solar := `#YY  MM DD hh mm SRAD1  SWRAD  LWRAD
#yr  mo dy hr mn w/m2   w/m2   w/m2
2024 06 01 12 00 380.5    MM     MM
2024 06 01 11 00 300.0    MM     MM
`
	raw, err := Normalize(mustFeed(t, ndbc.FeedMeteorological, sampleMeteorological), mustFeed(t, ndbc.FeedSolar, solar), time.UTC)
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if raw.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", raw.Len())
	}
	if want := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC); !raw.Times[0].Equal(want) {
		t.Errorf("Times[0] = %v, want %v", raw.Times[0], want)
	}
}

func TestNormalize_UnparseableTimestampNeverMatches(t *testing.T) {
	met := `#YY  MM DD hh mm WDIR WSPD GST  WVHT   DPD  ATMP  WTMP
#yr  mo dy hr mn degT m/s  m/s     m   sec  degC  degC
2024 06 01 13 xx 210  5.0  6.0   0.5     4  20.1  18.2
2024 02 30 12 00 200  4.0  5.0   0.4     4  19.8  18.1
2024 06 01 12 00 200  4.0  5.0   0.4     4  19.8  18.1
`
	raw, err := Normalize(mustFeed(t, ndbc.FeedMeteorological, met), mustFeed(t, ndbc.FeedSolar, sampleSolar), time.UTC)
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if raw.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", raw.Len())
	}
}

func TestNormalize_RaggedRowsFromHandBuiltFeed(t *testing.T) {
	met := mustFeed(t, ndbc.FeedMeteorological, sampleMeteorological)
	met.Rows = append(met.Rows, []string{"2024", "06"})
	solar := mustFeed(t, ndbc.FeedSolar, sampleSolar)
	solar.Rows = append(solar.Rows, []string{"2024", "06", "01", "11", "00", "120.0", "MM", "MM", "extra"})

	raw, err := Normalize(met, solar, time.UTC)
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if raw.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", raw.Len())
	}
	for i, cells := range raw.Cells {
		if len(cells) != len(raw.Columns) {
			t.Errorf("row %d has %d cells, want %d", i, len(cells), len(raw.Columns))
		}
	}
}

func TestNormalize_SharedColumnIsSuffixed(t *testing.T) {
	solar := `#YY  MM DD hh mm SRAD1  WTMP
#yr  mo dy hr mn w/m2   degC
2024 06 01 12 00 380.5  17.0
`
	raw, err := Normalize(mustFeed(t, ndbc.FeedMeteorological, sampleMeteorological), mustFeed(t, ndbc.FeedSolar, solar), time.UTC)
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if raw.Column("WTMP_srad") < 0 {
		t.Errorf("Columns = %v, want WTMP_srad", raw.Columns)
	}
}

func TestNormalize_MissingDateColumn(t *testing.T) {
	solar := `#YY  MM DD hh SRAD1
#yr  mo dy hr w/m2
2024 06 01 12 380.5
`
	_, err := Normalize(mustFeed(t, ndbc.FeedMeteorological, sampleMeteorological), mustFeed(t, ndbc.FeedSolar, solar), time.UTC)
	if !errors.Is(err, ErrMissingColumn) {
		t.Fatalf("err = %v, want ErrMissingColumn", err)
	}
}

func TestNormalize_NilLocation(t *testing.T) {
	if _, err := Normalize(ndbc.Feed{}, ndbc.Feed{}, nil); err == nil {
		t.Fatal("expected error for nil location")
	}
}

func TestParseTimestamp(t *testing.T) {
	tests := []struct {
		name  string
		parts []string
		want  time.Time
	}{
		{"valid", []string{"2024", "06", "01", "13", "30"}, time.Date(2024, 6, 1, 13, 30, 0, 0, time.UTC)},
		{"non numeric", []string{"2024", "06", "01", "MM", "30"}, time.Time{}},
		{"out of range day", []string{"2024", "02", "30", "13", "30"}, time.Time{}},
		{"out of range hour", []string{"2024", "06", "01", "24", "00"}, time.Time{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := parseTimestamp(tt.parts); !got.Equal(tt.want) {
				t.Errorf("parseTimestamp(%v) = %v, want %v", tt.parts, got, tt.want)
			}
		})
	}
}
