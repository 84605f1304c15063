package service

import (
	"context"
	"sync"
	"time"

	"github.com/kjstillabower/buoy-station-tools/internal/models"
)

// inFlightRequest tracks a single import that multiple callers may wait for.
type inFlightRequest struct {
	mu      sync.Mutex
	result  models.Snapshot
	err     error
	done    bool
	waiters []chan struct{} // closed when result is ready
}

// requestCoalescer runs at most one import per key at a time. Callers arriving
// while an import is in flight wait for its result instead of starting another.
type requestCoalescer struct {
	mu       sync.Mutex
	inFlight map[string]*inFlightRequest
	timeout  time.Duration
}

func newRequestCoalescer(timeout time.Duration) *requestCoalescer {
	return &requestCoalescer{
		inFlight: make(map[string]*inFlightRequest),
		timeout:  timeout,
	}
}

// GetOrDo joins the in-flight import for key or starts fn. shared is true when
// the caller joined an import started by someone else. fn runs detached from
// ctx's cancellation, bounded by the coalescer timeout, so one caller leaving
// does not fail the others.
func (rc *requestCoalescer) GetOrDo(ctx context.Context, key string, fn func(context.Context) (models.Snapshot, error)) (result models.Snapshot, shared bool, err error) {
	rc.mu.Lock()
	req, exists := rc.inFlight[key]
	if !exists {
		req = &inFlightRequest{}
		rc.inFlight[key] = req

		runCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), rc.timeout)
		go func() {
			defer cancel()
			result, err := fn(runCtx)

			req.mu.Lock()
			req.result = result
			req.err = err
			req.done = true
			waiters := req.waiters
			req.waiters = nil
			req.mu.Unlock()

			rc.cleanup(key)
			for _, notify := range waiters {
				close(notify)
			}
		}()
	}
	notify := make(chan struct{})
	req.mu.Lock()
	if req.done {
		result, err := req.result, req.err
		req.mu.Unlock()
		rc.mu.Unlock()
		return result, exists, err
	}
	req.waiters = append(req.waiters, notify)
	req.mu.Unlock()
	rc.mu.Unlock()

	waitCtx, cancel := context.WithTimeout(ctx, rc.timeout)
	defer cancel()
	select {
	case <-notify:
		req.mu.Lock()
		result, err := req.result, req.err
		req.mu.Unlock()
		return result, exists, err
	case <-waitCtx.Done():
		return models.Snapshot{}, exists, waitCtx.Err()
	}
}

// cleanup removes the in-flight request for key. Called once the import completes.
func (rc *requestCoalescer) cleanup(key string) {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	delete(rc.inFlight, key)
}
