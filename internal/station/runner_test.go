package station

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/kjstillabower/buoy-station-tools/internal/models"
	"github.com/kjstillabower/buoy-station-tools/internal/validation"
)

type perStationSource map[string]*fakeSource

func (p perStationSource) DayTable(ctx context.Context, station string, date time.Time) (models.StationTable, error) {
	src, ok := p[station]
	if !ok {
		return models.StationTable{}, ErrTableNotFound
	}
	return src.DayTable(ctx, station, date)
}

func TestRunner_Run(t *testing.T) {
	src := perStationSource{
		"KMIGLENA6": {tables: map[string]models.StationTable{
			"2020-06-27": dayTable("12:04 AM"),
			"2020-06-28": dayTable("1:00 AM"),
		}},
		"KMIMAPLE4": {errs: map[string]error{"2020-06-27": errPage}},
	}
	dir := t.TempDir()
	r := &Runner{Accumulator: NewAccumulator(src, nil, nil), OutputDir: dir}

	results, err := r.Run(context.Background(), []string{"kmiglena6", "KMIMAPLE4", "bad/id"}, utcDay(27), DateRange(utcDay(28), utcDay(29)))
	if err == nil {
		t.Fatal("expected joined error")
	}
	if !errors.Is(err, errPage) || !errors.Is(err, validation.ErrIDInvalidChars) {
		t.Errorf("err = %v, want errPage and ErrIDInvalidChars", err)
	}
	if len(results) != 3 {
		t.Fatalf("got %d results, want 3", len(results))
	}

	ok := results[0]
	if ok.Err != nil || ok.Station != "KMIGLENA6" || ok.Records != 2 {
		t.Errorf("results[0] = %+v", ok)
	}
	if _, statErr := os.Stat(ok.Path); statErr != nil {
		t.Errorf("exported file missing: %v", statErr)
	}
	if results[1].Err == nil || results[2].Err == nil {
		t.Errorf("results = %+v, want failures for stations 2 and 3", results)
	}
}
