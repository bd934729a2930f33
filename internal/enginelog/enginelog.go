// Package enginelog wraps github.com/charmbracelet/log the way
// SPEC_FULL.md §A.1 describes: one tagged logger per stream, plus a tiny
// per-key rate limiter for protocol-anomaly warnings (spec §4.2, §7
// "Protocol anomaly... Logged rate-limited").
package enginelog

import (
	"os"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/lestrrat-go/strftime"
)

// Base is the package-level logger every tagged logger derives from.
var Base = log.NewWithOptions(os.Stderr, log.Options{
	ReportTimestamp: true,
	ReportCaller:    false,
})

// For returns a logger tagged with the given stream direction and
// sample rate in Hz, the way a per-channel logger would be built in the
// control domain before a stream starts.
func For(direction string, rate uint32) *log.Logger {
	return Base.With("direction", direction, "rate", rate)
}

// Limiter suppresses repeated warnings for the same anomaly kind within a
// window, so a misbehaving device can't flood the log from inside the
// callback domain's hot path.
type Limiter struct {
	window time.Duration

	mu   sync.Mutex
	seen map[string]time.Time
}

// NewLimiter builds a Limiter that allows at most one message per kind
// per window.
func NewLimiter(window time.Duration) *Limiter {
	return &Limiter{window: window, seen: make(map[string]time.Time)}
}

// Allow reports whether a message tagged kind should be emitted now.
func (l *Limiter) Allow(kind string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	if last, ok := l.seen[kind]; ok && now.Sub(last) < l.window {
		return false
	}
	l.seen[kind] = now
	return true
}

// DiagnosticFileName expands a strftime pattern (config's
// LogDiagnosticPattern, e.g. "amdtp-%Y%m%d.log") against now, the same
// way xmit.go/tq.go name a fresh timestamped audio save file. Returns
// the pattern unexpanded if it is malformed.
func DiagnosticFileName(pattern string, now time.Time) string {
	formatted, err := strftime.Format(pattern, now)
	if err != nil {
		return pattern
	}
	return formatted
}
