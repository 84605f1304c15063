package ndbc

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"
)

// ErrMalformedFeed is returned when a feed body cannot be split into a header and rows.
var ErrMalformedFeed = errors.New("malformed feed")

// Feed is a whitespace-delimited NDBC realtime report. Columns is the first
// header line verbatim (e.g. "#YY", "MM", "DD", "hh", "mm", "WDIR", ...). Rows
// holds every following line, including the units line that the normalizer drops.
type Feed struct {
	Name    string
	Columns []string
	Rows    [][]string
}

// Column returns the index of name in Columns, or -1.
func (f Feed) Column(name string) int {
	for i, c := range f.Columns {
		if c == name {
			return i
		}
	}
	return -1
}

// ParseFeed reads a realtime2 report. Short rows are padded with empty fields;
// rows longer than the header are rejected.
func ParseFeed(name string, r io.Reader) (Feed, error) {
	feed := Feed{Name: name}
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	line := 0
	for sc.Scan() {
		line++
		fields := strings.Fields(sc.Text())
		if len(fields) == 0 {
			continue
		}
		if feed.Columns == nil {
			feed.Columns = fields
			continue
		}
		if len(fields) > len(feed.Columns) {
			return Feed{}, fmt.Errorf("%w: %s line %d has %d fields, header has %d", ErrMalformedFeed, name, line, len(fields), len(feed.Columns))
		}
		for len(fields) < len(feed.Columns) {
			fields = append(fields, "")
		}
		feed.Rows = append(feed.Rows, fields)
	}
	if err := sc.Err(); err != nil {
		return Feed{}, fmt.Errorf("read %s feed: %w", name, err)
	}
	if feed.Columns == nil {
		return Feed{}, fmt.Errorf("%w: %s feed is empty", ErrMalformedFeed, name)
	}
	return feed, nil
}
