package station

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kjstillabower/buoy-station-tools/internal/validation"
)

// Result is the outcome of one station export.
type Result struct {
	Station string
	Path    string
	Records int
	Err     error
}

// Runner exports a list of stations one after another.
type Runner struct {
	Accumulator *Accumulator
	OutputDir   string
	Logger      *zap.Logger
}

// Run exports every station over seed plus dates. A failing station does not
// stop the others; the joined error lists every failure.
func (r *Runner) Run(ctx context.Context, stations []string, seed time.Time, dates []time.Time) ([]Result, error) {
	logger := r.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	results := make([]Result, 0, len(stations))
	var errs []error
	for _, raw := range stations {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		res := r.exportOne(ctx, raw, seed, dates)
		results = append(results, res)
		if res.Err != nil {
			logger.Error("station export failed", zap.String("station", res.Station), zap.Error(res.Err))
			errs = append(errs, fmt.Errorf("%s: %w", res.Station, res.Err))
			continue
		}
		logger.Info("station exported",
			zap.String("station", res.Station),
			zap.String("path", res.Path),
			zap.Int("records", res.Records),
		)
	}
	return results, errors.Join(errs...)
}

func (r *Runner) exportOne(ctx context.Context, raw string, seed time.Time, dates []time.Time) Result {
	station, err := validation.ValidateStationID(raw)
	if err != nil {
		return Result{Station: raw, Err: err}
	}
	c, err := r.Accumulator.Accumulate(ctx, station, seed, dates)
	if err != nil {
		return Result{Station: station, Err: err}
	}
	path, err := Export(r.OutputDir, c)
	if err != nil {
		return Result{Station: station, Records: len(c.Records), Err: err}
	}
	return Result{Station: station, Path: path, Records: len(c.Records)}
}
