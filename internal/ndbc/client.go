package ndbc

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/kjstillabower/buoy-station-tools/internal/circuitbreaker"
	"github.com/kjstillabower/buoy-station-tools/internal/observability"
	"github.com/kjstillabower/buoy-station-tools/internal/reqctx"
)

// Feed names, also used as the NDBC file extension and the metrics label.
const (
	FeedMeteorological = "txt"
	FeedSolar          = "srad"
)

// DefaultBaseURL is the NDBC realtime directory.
const DefaultBaseURL = "https://www.ndbc.noaa.gov/data/realtime2"

// FeedClient downloads the two realtime reports for one buoy.
type FeedClient interface {
	FetchFeed(ctx context.Context, name string) (Feed, error)
}

var (
	ErrFeedNotFound    = errors.New("feed not found")
	ErrUpstreamFailure = errors.New("upstream failure")
	ErrRateLimited     = errors.New("rate limited")
	ErrInvalidBuoyID   = errors.New("invalid buoy id")
)

// Client fetches NDBC realtime files over HTTP.
type Client struct {
	baseURL        string
	buoyID         string
	timeout        time.Duration
	client         *http.Client
	retryAttempts  int
	retryBaseDelay time.Duration
	retryMaxDelay  time.Duration
	breaker        *circuitbreaker.CircuitBreaker
}

// NewClient returns a Client that makes a single attempt per feed.
func NewClient(baseURL, buoyID string, timeout time.Duration) (*Client, error) {
	return NewClientWithRetry(baseURL, buoyID, timeout, 1, 100*time.Millisecond, 2*time.Second)
}

// NewClientWithRetry returns a Client that retries rate-limited, 5xx and timed-out
// downloads up to retryAttempts times in total with jittered exponential backoff.
func NewClientWithRetry(baseURL, buoyID string, timeout time.Duration, retryAttempts int, retryBaseDelay, retryMaxDelay time.Duration) (*Client, error) {
	buoyID = strings.TrimSpace(buoyID)
	if buoyID == "" {
		return nil, fmt.Errorf("%w: buoy id is required", ErrInvalidBuoyID)
	}
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if _, err := url.Parse(baseURL); err != nil {
		return nil, fmt.Errorf("invalid feed URL: %w", err)
	}
	if retryAttempts <= 0 {
		retryAttempts = 1
	}

	return &Client{
		baseURL:        strings.TrimRight(baseURL, "/"),
		buoyID:         buoyID,
		timeout:        timeout,
		retryAttempts:  retryAttempts,
		retryBaseDelay: retryBaseDelay,
		retryMaxDelay:  retryMaxDelay,
		client: &http.Client{
			Timeout: timeout,
		},
	}, nil
}

// SetCircuitBreaker guards every download with cb. nil disables the breaker.
func (c *Client) SetCircuitBreaker(cb *circuitbreaker.CircuitBreaker) {
	c.breaker = cb
}

// BuoyID returns the station id the client downloads.
func (c *Client) BuoyID() string {
	return c.buoyID
}

// FetchFeed downloads and parses <base>/<buoy>.<name>.
func (c *Client) FetchFeed(ctx context.Context, name string) (Feed, error) {
	var lastErr error

	for attempt := 0; attempt < c.retryAttempts; attempt++ {
		if attempt > 0 {
			observability.FeedRetriesTotal.Inc()
			delay := c.calculateBackoff(attempt)
			select {
			case <-ctx.Done():
				return Feed{}, ctx.Err()
			case <-time.After(delay):
			}
		}

		var feed Feed
		call := func() error {
			var err error
			feed, err = c.download(ctx, name)
			return err
		}
		var err error
		if c.breaker != nil {
			err = c.breaker.Call(ctx, call)
		} else {
			err = call()
		}
		if err == nil {
			return feed, nil
		}

		lastErr = err
		if !c.isRetryable(err) {
			return Feed{}, err
		}
	}

	if c.retryAttempts == 1 {
		return Feed{}, lastErr
	}
	return Feed{}, fmt.Errorf("exhausted retries: %w", lastErr)
}

func (c *Client) download(ctx context.Context, name string) (Feed, error) {
	start := time.Now()

	reqCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := c.buildRequest(reqCtx, name)
	if err != nil {
		observability.FeedFetchesTotal.WithLabelValues(name, "error").Inc()
		return Feed{}, fmt.Errorf("build request: %w", err)
	}

	if corrID := reqctx.CorrelationID(ctx); corrID != "" {
		req.Header.Set("X-Correlation-ID", corrID)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		duration := time.Since(start).Seconds()
		observability.FeedFetchesTotal.WithLabelValues(name, "error").Inc()
		observability.FeedFetchDuration.WithLabelValues(name, "error").Observe(duration)

		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			return Feed{}, fmt.Errorf("%s feed request timeout: %w", name, err)
		}
		return Feed{}, fmt.Errorf("%s feed request failed: %w", name, err)
	}
	defer resp.Body.Close()

	status := statusLabel(resp.StatusCode)
	if err := c.handleErrorResponse(resp); err != nil {
		observability.FeedFetchesTotal.WithLabelValues(name, status).Inc()
		observability.FeedFetchDuration.WithLabelValues(name, status).Observe(time.Since(start).Seconds())
		return Feed{}, fmt.Errorf("%s feed: %w", name, err)
	}

	feed, err := ParseFeed(name, resp.Body)
	observability.FeedFetchesTotal.WithLabelValues(name, status).Inc()
	observability.FeedFetchDuration.WithLabelValues(name, status).Observe(time.Since(start).Seconds())
	if err != nil {
		return Feed{}, err
	}
	return feed, nil
}

func (c *Client) isRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, circuitbreaker.ErrOpen) {
		return false
	}
	if errors.Is(err, ErrRateLimited) || errors.Is(err, ErrUpstreamFailure) {
		return true
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	return strings.Contains(err.Error(), "timeout")
}

func (c *Client) calculateBackoff(attempt int) time.Duration {
	delay := float64(c.retryBaseDelay) * math.Pow(2, float64(attempt-1))
	if delay > float64(c.retryMaxDelay) {
		delay = float64(c.retryMaxDelay)
	}

	jitter := delay * 0.1 * rand.Float64()
	return time.Duration(delay + jitter)
}

func (c *Client) feedURL(name string) string {
	return c.baseURL + "/" + url.PathEscape(c.buoyID) + "." + name
}

func (c *Client) buildRequest(ctx context.Context, name string) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.feedURL(name), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "text/plain")
	return req, nil
}

func (c *Client) handleErrorResponse(resp *http.Response) error {
	switch resp.StatusCode {
	case http.StatusNotFound:
		return fmt.Errorf("%w: buoy %s", ErrFeedNotFound, c.buoyID)
	case http.StatusTooManyRequests:
		return fmt.Errorf("%w", ErrRateLimited)
	case http.StatusInternalServerError, http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return fmt.Errorf("%w: HTTP %d", ErrUpstreamFailure, resp.StatusCode)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%w: HTTP %d", ErrUpstreamFailure, resp.StatusCode)
	}
	return nil
}

func statusLabel(statusCode int) string {
	if statusCode >= 200 && statusCode < 300 {
		return "success"
	}
	if statusCode == 429 {
		return "rate_limited"
	}
	if statusCode >= 400 && statusCode < 500 {
		return "client_error"
	}
	if statusCode >= 500 {
		return "server_error"
	}
	return "error"
}
