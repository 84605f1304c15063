package station

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"

	"github.com/kjstillabower/buoy-station-tools/internal/models"
)

// ErrEmptyCollection is returned when a collection has no records to export.
var ErrEmptyCollection = errors.New("empty collection")

// TimestampLayout is how record timestamps are written.
const TimestampLayout = "2006-01-02 15:04:05"

// FileName returns ws_<station>_<lastdate>.csv.
func FileName(station, lastDate string) string {
	return fmt.Sprintf("ws_%s_%s.csv", station, lastDate)
}

// Frame lays a collection out as a string-typed data frame: timestamp, the
// source columns in first-seen order, then Date. Cells a day did not report are empty.
func Frame(c models.StationCollection) (dataframe.DataFrame, error) {
	if len(c.Records) == 0 {
		return dataframe.DataFrame{}, fmt.Errorf("%w: %s", ErrEmptyCollection, c.Station)
	}

	header := []string{TimestampColumn}
	for _, col := range c.Columns {
		if col != TimestampColumn && col != DateColumn {
			header = append(header, col)
		}
	}
	header = append(header, DateColumn)

	records := make([][]string, 0, len(c.Records)+1)
	records = append(records, header)
	for _, r := range c.Records {
		row := make([]string, len(header))
		row[0] = r.Timestamp.Format(TimestampLayout)
		for i, col := range header[1 : len(header)-1] {
			row[i+1] = r.Values[col]
		}
		row[len(row)-1] = r.Date
		records = append(records, row)
	}

	df := dataframe.LoadRecords(records,
		dataframe.HasHeader(true),
		dataframe.DetectTypes(false),
		dataframe.DefaultType(series.String),
	)
	if df.Err != nil {
		return dataframe.DataFrame{}, fmt.Errorf("build frame for %s: %w", c.Station, df.Err)
	}
	return df, nil
}

// WriteCSV writes the collection as CSV with a header row.
func WriteCSV(w io.Writer, c models.StationCollection) error {
	df, err := Frame(c)
	if err != nil {
		return err
	}
	return df.WriteCSV(w)
}

// Export writes the collection to dir and returns the file path.
func Export(dir string, c models.StationCollection) (string, error) {
	lastDate, ok := c.LastDate()
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrEmptyCollection, c.Station)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create output dir: %w", err)
	}

	path := filepath.Join(dir, FileName(c.Station, lastDate))
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create %s: %w", path, err)
	}
	if err := WriteCSV(f, c); err != nil {
		f.Close()
		os.Remove(path)
		return "", err
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("close %s: %w", path, err)
	}
	return path, nil
}
