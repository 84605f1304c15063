// Package traffic keeps a sliding window of import outcomes and refresh
// denials. The health check reads the import error rate from here.
package traffic

import (
	"sync"
	"time"
)

// Retention is how long outcomes are kept. Windows longer than this see only
// the retained part.
const Retention = 15 * time.Minute

var defaultTracker = NewTracker(Retention)

// RecordSuccess records a successful import.
func RecordSuccess() { defaultTracker.RecordSuccess() }

// RecordError records a failed import.
func RecordError() { defaultTracker.RecordError() }

// RecordDenied records a refresh request denied by the rate limiter.
func RecordDenied() { defaultTracker.RecordDenied() }

// ErrorRate returns import errors and total imports within window.
func ErrorRate(window time.Duration) (errors, total int) {
	return defaultTracker.ErrorRate(window)
}

// DenialCount returns refresh denials within window.
func DenialCount(window time.Duration) int {
	return defaultTracker.DenialCount(window)
}

// Reset clears the process-wide tracker. For tests only.
func Reset() { defaultTracker.Reset() }

type outcome uint8

const (
	outcomeSuccess outcome = iota
	outcomeError
	outcomeDenied
)

type event struct {
	at   time.Time
	kind outcome
}

// Tracker holds outcome events in arrival order.
type Tracker struct {
	mu        sync.Mutex
	retention time.Duration
	events    []event
	now       func() time.Time
}

// NewTracker creates a Tracker that forgets events older than retention.
func NewTracker(retention time.Duration) *Tracker {
	return &Tracker{retention: retention, now: time.Now}
}

// RecordSuccess records a successful import.
func (t *Tracker) RecordSuccess() {
	t.record(outcomeSuccess)
}

// RecordError records a failed import.
func (t *Tracker) RecordError() {
	t.record(outcomeError)
}

// RecordDenied records a rate limiter denial.
func (t *Tracker) RecordDenied() {
	t.record(outcomeDenied)
}

func (t *Tracker) record(kind outcome) {
	t.mu.Lock()
	defer t.mu.Unlock()
	now := t.now()
	t.events = append(t.events, event{at: now, kind: kind})
	t.pruneLocked(now)
}

// ErrorRate returns (errors, successes+errors) within window. Denials are
// not imports and do not count toward total.
func (t *Tracker) ErrorRate(window time.Duration) (errors, total int) {
	counts := t.count(window)
	return counts[outcomeError], counts[outcomeError] + counts[outcomeSuccess]
}

// DenialCount returns rate limiter denials within window.
func (t *Tracker) DenialCount(window time.Duration) int {
	return t.count(window)[outcomeDenied]
}

func (t *Tracker) count(window time.Duration) [3]int {
	t.mu.Lock()
	defer t.mu.Unlock()
	var counts [3]int
	cutoff := t.now().Add(-window)
	for i := len(t.events) - 1; i >= 0; i-- {
		if t.events[i].at.Before(cutoff) {
			break
		}
		counts[t.events[i].kind]++
	}
	return counts
}

// Reset drops all events.
func (t *Tracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.events = nil
}

// pruneLocked drops events older than the retention. Caller holds mu.
func (t *Tracker) pruneLocked(now time.Time) {
	cutoff := now.Add(-t.retention)
	i := 0
	for i < len(t.events) && t.events[i].at.Before(cutoff) {
		i++
	}
	if i > 0 {
		t.events = append(t.events[:0], t.events[i:]...)
	}
}
