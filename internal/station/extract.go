package station

import (
	"errors"
	"fmt"
	"io"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/kjstillabower/buoy-station-tools/internal/models"
)

// ErrTableNotFound is returned when a page has fewer tables than the requested index.
var ErrTableNotFound = errors.New("table not found")

var innerWhitespace = regexp.MustCompile(`\s\s+`)

func cellText(s *goquery.Selection) string {
	return innerWhitespace.ReplaceAllString(strings.TrimSpace(s.Text()), " ")
}

// ExtractTables parses every <table> in an HTML document, outermost first in
// document order. Headers come from the first row holding <th> cells; every
// other row holding <td> cells is data. Rows are padded or cut to the header width.
func ExtractTables(r io.Reader) ([]models.StationTable, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	var tables []models.StationTable
	doc.Find("table").Each(func(_ int, sel *goquery.Selection) {
		tables = append(tables, parseTable(sel))
	})
	return tables, nil
}

// TableAt returns the table at index (zero-based) from an HTML document.
func TableAt(r io.Reader, index int) (models.StationTable, error) {
	tables, err := ExtractTables(r)
	if err != nil {
		return models.StationTable{}, err
	}
	if index < 0 || index >= len(tables) {
		return models.StationTable{}, fmt.Errorf("%w: index %d, page has %d", ErrTableNotFound, index, len(tables))
	}
	return tables[index], nil
}

func parseTable(table *goquery.Selection) models.StationTable {
	var t models.StationTable
	rows := table.Find("tr").FilterFunction(func(_ int, tr *goquery.Selection) bool {
		// Skip rows of tables nested inside this one.
		return tr.Closest("table").IsSelection(table)
	})

	headerSeen := false
	rows.Each(func(_ int, tr *goquery.Selection) {
		if !headerSeen {
			if th := tr.ChildrenFiltered("th"); th.Length() > 0 {
				th.Each(func(_ int, cell *goquery.Selection) {
					t.Columns = append(t.Columns, cellText(cell))
				})
				headerSeen = true
				return
			}
		}
		cells := tr.ChildrenFiltered("td, th")
		if cells.Length() == 0 {
			return
		}
		row := make([]string, 0, cells.Length())
		cells.Each(func(_ int, cell *goquery.Selection) {
			row = append(row, cellText(cell))
		})
		t.Rows = append(t.Rows, row)
	})

	if len(t.Columns) == 0 && len(t.Rows) > 0 {
		for i := range t.Rows[0] {
			t.Columns = append(t.Columns, fmt.Sprintf("%d", i))
		}
	}
	for i, row := range t.Rows {
		t.Rows[i] = fitRow(row, len(t.Columns))
	}
	return t
}

func fitRow(row []string, width int) []string {
	if len(row) > width {
		return row[:width]
	}
	for len(row) < width {
		row = append(row, "")
	}
	return row
}
