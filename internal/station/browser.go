package station

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/kjstillabower/buoy-station-tools/internal/models"
)

// DefaultBaseURL is the PWS dashboard root.
const DefaultBaseURL = "https://www.wunderground.com/dashboard/pws"

// ErrPageNotReady is returned when the history table does not appear before the ready timeout.
var ErrPageNotReady = errors.New("page not ready")

// StationBrowser loads a station's daily history page and returns its HTML.
type StationBrowser interface {
	DayPage(ctx context.Context, station string, date time.Time) (string, error)
}

// DayURL returns the daily history page for station on date.
func DayURL(baseURL, station string, date time.Time) string {
	day := date.Format(DateLayout)
	return fmt.Sprintf("%s/%s/table/%s/%s/daily", strings.TrimRight(baseURL, "/"), station, day, day)
}

// ChromeOptions configures ChromeBrowser.
type ChromeOptions struct {
	BaseURL string
	// TableIndex is the zero-based table the page must contain before it is read.
	TableIndex   int
	ReadyTimeout time.Duration
	Headless     bool
	Logger       *zap.Logger
}

// ChromeBrowser drives a single headless Chrome tab through the history pages.
type ChromeBrowser struct {
	baseURL      string
	tableIndex   int
	readyTimeout time.Duration
	logger       *zap.Logger

	tabCtx      context.Context
	cancelAlloc context.CancelFunc
	cancelTab   context.CancelFunc
}

// NewChromeBrowser starts Chrome. Close releases it.
func NewChromeBrowser(opts ChromeOptions) (*ChromeBrowser, error) {
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	if opts.ReadyTimeout <= 0 {
		opts.ReadyTimeout = 30 * time.Second
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	allocOpts := append([]chromedp.ExecAllocatorOption{}, chromedp.DefaultExecAllocatorOptions[:]...)
	allocOpts = append(allocOpts, chromedp.Flag("headless", opts.Headless))

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(context.Background(), allocOpts...)
	tabCtx, cancelTab := chromedp.NewContext(allocCtx)

	// The first Run launches the browser process.
	if err := chromedp.Run(tabCtx); err != nil {
		cancelTab()
		cancelAlloc()
		return nil, fmt.Errorf("start browser: %w", err)
	}

	return &ChromeBrowser{
		baseURL:      opts.BaseURL,
		tableIndex:   opts.TableIndex,
		readyTimeout: opts.ReadyTimeout,
		logger:       opts.Logger,
		tabCtx:       tabCtx,
		cancelAlloc:  cancelAlloc,
		cancelTab:    cancelTab,
	}, nil
}

// DayPage navigates to the day's page and waits until it holds more than
// TableIndex tables, bounded by the ready timeout.
func (b *ChromeBrowser) DayPage(ctx context.Context, station string, date time.Time) (string, error) {
	url := DayURL(b.baseURL, station, date)

	runCtx, cancel := context.WithTimeout(b.tabCtx, b.readyTimeout)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	var (
		ready bool
		html  string
	)
	start := time.Now()
	err := chromedp.Run(runCtx,
		chromedp.Navigate(url),
		chromedp.Poll(fmt.Sprintf(`document.querySelectorAll("table").length > %d`, b.tableIndex), &ready,
			chromedp.WithPollingTimeout(b.readyTimeout)),
		chromedp.Evaluate(`document.documentElement.outerHTML`, &html),
	)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", ctxErr
		}
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, chromedp.ErrPollingTimeout) {
			return "", fmt.Errorf("%w: %s after %s", ErrPageNotReady, url, b.readyTimeout)
		}
		return "", fmt.Errorf("load %s: %w", url, err)
	}

	b.logger.Debug("page loaded",
		zap.String("station", station),
		zap.String("date", date.Format(DateLayout)),
		zap.Duration("duration", time.Since(start)),
		zap.Int("bytes", len(html)),
	)
	return html, nil
}

// Close shuts the browser down.
func (b *ChromeBrowser) Close() {
	b.cancelTab()
	b.cancelAlloc()
}

// PageTables adapts a StationBrowser into a TableSource by picking one table per page.
type PageTables struct {
	Browser    StationBrowser
	TableIndex int
}

// DayTable loads the page and extracts the configured table.
func (p PageTables) DayTable(ctx context.Context, station string, date time.Time) (models.StationTable, error) {
	html, err := p.Browser.DayPage(ctx, station, date)
	if err != nil {
		return models.StationTable{}, err
	}
	return TableAt(strings.NewReader(html), p.TableIndex)
}
