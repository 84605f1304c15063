package buoy

import (
	"errors"
	"fmt"
	"strconv"
	"time"
	_ "time/tzdata" // America/New_York must resolve in minimal containers

	"github.com/kjstillabower/buoy-station-tools/internal/ndbc"
)

// ErrMissingColumn is returned when a feed lacks a column the pipeline needs.
var ErrMissingColumn = errors.New("missing column")

// EasternZone is the display zone for all buoy timestamps.
const EasternZone = "America/New_York"

var dateColumns = map[string]string{
	"#YY": "year",
	"MM":  "month",
	"DD":  "day",
	"hh":  "hour",
	"mm":  "minute",
}

var dateOrder = []string{"year", "month", "day", "hour", "minute"}

// Columns not used downstream. Absent ones are ignored.
var (
	meteorologicalDropped = []string{"APD", "MWD", "PRES", "DEWP", "VIS", "PTDY", "TIDE"}
	solarDropped          = []string{"SWRAD", "LWRAD"}
)

// RawFrame is the merged feed before any value coercion. A zero Times entry is a
// timestamp that failed to parse.
type RawFrame struct {
	Times   []time.Time
	Columns []string
	Cells   [][]string
}

// Column returns the index of name in Columns, or -1.
func (f *RawFrame) Column(name string) int {
	for i, c := range f.Columns {
		if c == name {
			return i
		}
	}
	return -1
}

// Len returns the number of rows.
func (f *RawFrame) Len() int {
	return len(f.Times)
}

// Normalize merges the meteorological and solar feeds on timestamp and converts
// the result to loc. Rows appear in meteorological-feed order.
func Normalize(met, solar ndbc.Feed, loc *time.Location) (*RawFrame, error) {
	if loc == nil {
		return nil, errors.New("normalize: nil location")
	}
	left, err := prepareFeed(met, meteorologicalDropped)
	if err != nil {
		return nil, err
	}
	right, err := prepareFeed(solar, solarDropped)
	if err != nil {
		return nil, err
	}

	columns := append([]string{}, left.Columns...)
	for _, c := range right.Columns {
		if left.Column(c) >= 0 {
			c += "_" + solar.Name
		}
		columns = append(columns, c)
	}

	bySlot := make(map[int64][]int, right.Len())
	for i, ts := range right.Times {
		if ts.IsZero() {
			continue
		}
		bySlot[ts.UnixNano()] = append(bySlot[ts.UnixNano()], i)
	}

	out := &RawFrame{Columns: columns}
	for i, ts := range left.Times {
		if ts.IsZero() {
			continue
		}
		for _, j := range bySlot[ts.UnixNano()] {
			row := make([]string, 0, len(columns))
			row = append(row, left.Cells[i]...)
			row = append(row, right.Cells[j]...)
			out.Times = append(out.Times, ts.In(loc))
			out.Cells = append(out.Cells, row)
		}
	}
	return out, nil
}

// prepareFeed renames the date columns, drops the units row, builds GMT
// timestamps and removes the date and dropped columns.
func prepareFeed(feed ndbc.Feed, dropped []string) (*RawFrame, error) {
	columns := make([]string, len(feed.Columns))
	for i, c := range feed.Columns {
		if renamed, ok := dateColumns[c]; ok {
			c = renamed
		}
		columns[i] = c
	}

	dateIdx := make([]int, len(dateOrder))
	for i, name := range dateOrder {
		dateIdx[i] = indexOf(columns, name)
		if dateIdx[i] < 0 {
			return nil, fmt.Errorf("%w: %s feed has no %s column", ErrMissingColumn, feed.Name, name)
		}
	}

	remove := make(map[int]bool, len(dateIdx)+len(dropped))
	for _, i := range dateIdx {
		remove[i] = true
	}
	for _, name := range dropped {
		if i := indexOf(columns, name); i >= 0 {
			remove[i] = true
		}
	}

	frame := &RawFrame{}
	for i, c := range columns {
		if !remove[i] {
			frame.Columns = append(frame.Columns, c)
		}
	}

	rows := feed.Rows
	if len(rows) > 0 {
		rows = rows[1:]
	}
	for _, row := range rows {
		row = fitRow(row, len(columns))
		parts := make([]string, len(dateIdx))
		for i, idx := range dateIdx {
			parts[i] = row[idx]
		}
		kept := make([]string, 0, len(frame.Columns))
		for i, cell := range row {
			if !remove[i] {
				kept = append(kept, cell)
			}
		}
		frame.Times = append(frame.Times, parseTimestamp(parts))
		frame.Cells = append(frame.Cells, kept)
	}
	return frame, nil
}

// fitRow pads a short row with empty cells and trims a long one so every row
// matches the header. A blank date cell yields a null timestamp.
func fitRow(row []string, n int) []string {
	if len(row) == n {
		return row
	}
	fitted := make([]string, n)
	copy(fitted, row)
	return fitted
}

// parseTimestamp builds a GMT time from year, month, day, hour, minute fields.
// Any unparseable or out-of-range field yields the zero time.
func parseTimestamp(parts []string) time.Time {
	var v [5]int
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil {
			return time.Time{}
		}
		v[i] = n
	}
	ts := time.Date(v[0], time.Month(v[1]), v[2], v[3], v[4], 0, 0, time.UTC)
	if ts.Year() != v[0] || int(ts.Month()) != v[1] || ts.Day() != v[2] || ts.Hour() != v[3] || ts.Minute() != v[4] {
		return time.Time{}
	}
	return ts
}

func indexOf(columns []string, name string) int {
	for i, c := range columns {
		if c == name {
			return i
		}
	}
	return -1
}
