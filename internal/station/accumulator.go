package station

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/kjstillabower/buoy-station-tools/internal/models"
	"github.com/kjstillabower/buoy-station-tools/internal/observability"
)

// ErrMissingTimeColumn is returned when a history table has no Time column.
var ErrMissingTimeColumn = errors.New("missing Time column")

// ErrMalformedRow is returned when a row is too short to hold its Time cell.
var ErrMalformedRow = errors.New("malformed row")

// ErrBadTime is returned when a row's Time cell is not a 12-hour clock time.
var ErrBadTime = errors.New("unparseable time")

// Column names of the exported file that are not taken from the page.
const (
	TimeColumn      = "Time"
	DateColumn      = "Date"
	TimestampColumn = "timestamp"
)

// Day outcomes recorded in metrics.
const (
	outcomeOK         = "ok"
	outcomeSkipped    = "skipped"
	outcomeSeedFailed = "seed_failed"
)

var timeLayouts = []string{"3:04 PM", "3:04:05 PM"}

// TableSource yields the history table for one station and day.
type TableSource interface {
	DayTable(ctx context.Context, station string, date time.Time) (models.StationTable, error)
}

// Accumulator collects a station's history one day at a time.
type Accumulator struct {
	source TableSource
	loc    *time.Location
	logger *zap.Logger
}

// NewAccumulator returns an Accumulator reading from source. Row times are read
// as wall-clock times in loc; nil means UTC.
func NewAccumulator(source TableSource, loc *time.Location, logger *zap.Logger) *Accumulator {
	if loc == nil {
		loc = time.UTC
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Accumulator{source: source, loc: loc, logger: logger}
}

// Accumulate fetches the seed day, then each of dates in order, and appends
// their rows in fetch order. A seed failure is returned; a failure on any later
// day skips that day. Cancelling ctx stops the run with ctx's error.
func (a *Accumulator) Accumulate(ctx context.Context, station string, seed time.Time, dates []time.Time) (models.StationCollection, error) {
	logger := a.logger.With(zap.String("station", station))
	c := models.StationCollection{Station: station}

	records, columns, err := a.day(ctx, station, seed)
	if err != nil {
		observability.RecordStationDay(station, outcomeSeedFailed)
		return c, fmt.Errorf("seed %s: %w", seed.Format(DateLayout), err)
	}
	observability.RecordStationDay(station, outcomeOK)
	c.Columns = mergeColumns(c.Columns, columns)
	c.Records = append(c.Records, records...)

	for _, date := range dates {
		if err := ctx.Err(); err != nil {
			return c, err
		}
		records, columns, err := a.day(ctx, station, date)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return c, ctxErr
			}
			observability.RecordStationDay(station, outcomeSkipped)
			logger.Debug("day skipped", zap.String("date", date.Format(DateLayout)), zap.Error(err))
			continue
		}
		observability.RecordStationDay(station, outcomeOK)
		c.Columns = mergeColumns(c.Columns, columns)
		c.Records = append(c.Records, records...)
	}

	observability.StationRecordsTotal.WithLabelValues(observability.MetricStationLabel(station)).Add(float64(len(c.Records)))
	logger.Info("station accumulated",
		zap.Int("days", len(dates)+1),
		zap.Int("records", len(c.Records)),
	)
	return c, nil
}

func (a *Accumulator) day(ctx context.Context, station string, date time.Time) ([]models.StationRecord, []string, error) {
	table, err := a.source.DayTable(ctx, station, date)
	if err != nil {
		return nil, nil, err
	}
	records, err := NormalizeTable(table, date, a.loc)
	if err != nil {
		return nil, nil, err
	}
	return records, table.Columns, nil
}

// NormalizeTable drops the first row (a spacer row under the header on the
// history page), stamps each remaining row with date, and builds its timestamp
// from date and the 12-hour Time cell.
func NormalizeTable(table models.StationTable, date time.Time, loc *time.Location) ([]models.StationRecord, error) {
	timeIdx := -1
	for i, c := range table.Columns {
		if c == TimeColumn {
			timeIdx = i
			break
		}
	}
	if timeIdx < 0 {
		return nil, ErrMissingTimeColumn
	}

	rows := table.Rows
	if len(rows) > 0 {
		rows = rows[1:]
	}
	day := date.Format(DateLayout)
	records := make([]models.StationRecord, 0, len(rows))
	for i, row := range rows {
		if timeIdx >= len(row) {
			return nil, fmt.Errorf("%w: row %d has %d cells, Time is column %d", ErrMalformedRow, i+1, len(row), timeIdx)
		}
		ts, err := parseRowTime(day, row[timeIdx], loc)
		if err != nil {
			return nil, err
		}
		values := make(map[string]string, len(table.Columns))
		for i, col := range table.Columns {
			if i < len(row) {
				values[col] = row[i]
			}
		}
		records = append(records, models.StationRecord{Timestamp: ts, Date: day, Values: values})
	}
	return records, nil
}

func parseRowTime(day, clock string, loc *time.Location) (time.Time, error) {
	clock = strings.TrimSpace(clock)
	for _, layout := range timeLayouts {
		if ts, err := time.ParseInLocation(DateLayout+" "+layout, day+" "+clock, loc); err == nil {
			return ts, nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: %q on %s", ErrBadTime, clock, day)
}

// mergeColumns appends names not already in columns, keeping first-seen order.
func mergeColumns(columns, names []string) []string {
	for _, n := range names {
		found := false
		for _, c := range columns {
			if c == n {
				found = true
				break
			}
		}
		if !found {
			columns = append(columns, n)
		}
	}
	return columns
}
