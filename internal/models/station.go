package models

import "time"

// StationTable is one HTML table pulled from a station history page.
type StationTable struct {
	Columns []string
	Rows    [][]string
}

// StationRecord is one row of a station's daily history table.
type StationRecord struct {
	Timestamp time.Time
	Date      string // YYYY-MM-DD of the page the row came from
	Values    map[string]string
}

// StationCollection accumulates records for one station in fetch order.
type StationCollection struct {
	Station string
	Columns []string // source columns, first-seen order
	Records []StationRecord
}

// LastDate returns the calendar date of the last appended record (fetch order,
// not the latest timestamp). ok is false when the collection is empty.
func (c StationCollection) LastDate() (string, bool) {
	if len(c.Records) == 0 {
		return "", false
	}
	return c.Records[len(c.Records)-1].Timestamp.Format("2006-01-02"), true
}
