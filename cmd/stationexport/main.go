package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kjstillabower/buoy-station-tools/internal/config"
	"github.com/kjstillabower/buoy-station-tools/internal/observability"
	"github.com/kjstillabower/buoy-station-tools/internal/station"
)

// options are the command-line overrides. Empty values fall back to config.
type options struct {
	configPath string
	stations   []string
	seed       string
	start      string
	end        string
	outDir     string
	headless   bool
	tableIndex int
}

// plan is everything one export run needs, resolved from config and flags.
type plan struct {
	stations []string
	seed     time.Time
	dates    []time.Time
	outDir   string
	headless bool
	table    int
	loc      *time.Location
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var opts options
	cmd := &cobra.Command{
		Use:   "stationexport [--stations ID,...] [--start YYYY-MM-DD] [--end YYYY-MM-DD]",
		Short: "Export daily history tables of personal weather stations to CSV.",
		Long: "Loads one history page per station and day, accumulates the rows and " +
			"writes ws_<station>_<lastdate>.csv per station. The seed day must load; " +
			"later days that fail are skipped.",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, opts)
		},
	}
	flags := cmd.Flags()
	flags.StringVar(&opts.configPath, "config", "", "config file (default config/$ENV_NAME.yaml)")
	flags.StringSliceVar(&opts.stations, "stations", nil, "station ids, comma separated")
	flags.StringVar(&opts.seed, "seed", "", "seed date YYYY-MM-DD")
	flags.StringVar(&opts.start, "start", "", "first date after the seed, YYYY-MM-DD")
	flags.StringVar(&opts.end, "end", "", "exclusive end date YYYY-MM-DD (default today)")
	flags.StringVar(&opts.outDir, "out", "", "output directory")
	flags.BoolVar(&opts.headless, "headless", true, "run Chrome headless")
	flags.IntVar(&opts.tableIndex, "table-index", -1, "zero-based index of the history table on the page")
	return cmd
}

func run(cmd *cobra.Command, opts options) error {
	logger, err := observability.NewLogger("stationexport")
	if err != nil {
		return fmt.Errorf("logger: %w", err)
	}
	defer func() { _ = observability.FlushTelemetry(context.Background(), logger) }()

	var cfg *config.Config
	if opts.configPath != "" {
		cfg, err = config.LoadFile(opts.configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		logger.Error("config", zap.Error(err))
		return err
	}

	p, err := resolvePlan(cfg, opts, cmd.Flags().Changed("headless"), time.Now())
	if err != nil {
		return err
	}
	observability.SetTrackedStations(p.stations)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	browser, err := station.NewChromeBrowser(station.ChromeOptions{
		BaseURL:      cfg.ScraperBaseURL,
		TableIndex:   p.table,
		ReadyTimeout: cfg.PageReadyTimeout,
		Headless:     p.headless,
		Logger:       logger,
	})
	if err != nil {
		logger.Error("browser", zap.Error(err))
		return err
	}
	defer browser.Close()

	runner := &station.Runner{
		Accumulator: station.NewAccumulator(station.PageTables{Browser: browser, TableIndex: p.table}, p.loc, logger),
		OutputDir:   p.outDir,
		Logger:      logger,
	}
	logger.Info("export starting",
		zap.Strings("stations", p.stations),
		zap.Time("seed", p.seed),
		zap.Int("days", len(p.dates)),
		zap.String("out", p.outDir),
	)
	results, runErr := runner.Run(ctx, p.stations, p.seed, p.dates)

	out := cmd.OutOrStdout()
	for _, res := range results {
		if res.Err != nil {
			fmt.Fprintf(out, "%-12s FAILED  %v\n", res.Station, res.Err)
			continue
		}
		fmt.Fprintf(out, "%-12s %6d rows  %s\n", res.Station, res.Records, res.Path)
	}
	return runErr
}

// resolvePlan merges flags over config. headlessSet reports whether --headless was given.
func resolvePlan(cfg *config.Config, opts options, headlessSet bool, now time.Time) (plan, error) {
	loc := config.Location(cfg.StationTimezone)

	stations := cfg.Stations
	if len(opts.stations) > 0 {
		stations = nil
		for _, s := range opts.stations {
			if s = strings.TrimSpace(s); s != "" {
				stations = append(stations, s)
			}
		}
	}
	if len(stations) == 0 {
		return plan{}, fmt.Errorf("no stations to export")
	}

	seed, err := station.ParseDate(pick(opts.seed, cfg.SeedDate), loc)
	if err != nil {
		return plan{}, fmt.Errorf("seed date: %w", err)
	}
	start, err := station.ParseDate(pick(opts.start, cfg.StartDate), loc)
	if err != nil {
		return plan{}, fmt.Errorf("start date: %w", err)
	}
	end := now.In(loc)
	if opts.end != "" {
		if end, err = station.ParseDate(opts.end, loc); err != nil {
			return plan{}, fmt.Errorf("end date: %w", err)
		}
	}

	headless := cfg.Headless
	if headlessSet {
		headless = opts.headless
	}
	table := cfg.TableIndex
	if opts.tableIndex >= 0 {
		table = opts.tableIndex
	}

	return plan{
		stations: stations,
		seed:     seed,
		dates:    station.DateRange(start, end),
		outDir:   pick(opts.outDir, cfg.OutputDir),
		headless: headless,
		table:    table,
		loc:      loc,
	}, nil
}

func pick(flag, fallback string) string {
	if strings.TrimSpace(flag) != "" {
		return flag
	}
	return fallback
}
