// Package lifecycle holds process-wide drain state read by the health check.
package lifecycle

import (
	"sync/atomic"
	"time"
)

var (
	shuttingDown atomic.Bool
	startedAt    atomic.Int64
)

func init() {
	startedAt.Store(time.Now().UnixNano())
}

// SetShuttingDown sets the drain flag. main sets it on SIGTERM/SIGINT before
// stopping the server so /health reports shutting-down while requests drain.
func SetShuttingDown(v bool) {
	shuttingDown.Store(v)
}

// IsShuttingDown reports whether the process is draining.
func IsShuttingDown() bool {
	return shuttingDown.Load()
}

// MarkStarted records the moment the server began accepting requests.
func MarkStarted(t time.Time) {
	startedAt.Store(t.UnixNano())
}

// Uptime returns time since MarkStarted (or process init).
func Uptime(now time.Time) time.Duration {
	return now.Sub(time.Unix(0, startedAt.Load()))
}
