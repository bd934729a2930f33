// Package ticks provides monotonic-clock sampling for the control
// domain's suspension-point timeouts (CMP establish, vendor command
// round trips, first-callback wait — spec §5 "Suspension points"),
// grounded on the same golang.org/x/sys/unix the teacher already
// requires. CLOCK_MONOTONIC_RAW is used instead of time.Now() so NTP
// step adjustments during a long capture never shorten a timeout.
package ticks

import (
	"time"

	"golang.org/x/sys/unix"
)

// fallbackEpoch carries Go's monotonic clock reading; Now measures from it
// when CLOCK_MONOTONIC_RAW cannot be read.
var fallbackEpoch = time.Now()

// Now returns a monotonic timestamp suitable only for measuring elapsed
// durations with Since; it has no relation to wall-clock time.
func Now() time.Duration {
	var ts unix.Timespec
	if err := unix.ClockGettime(unix.CLOCK_MONOTONIC_RAW, &ts); err != nil {
		// CLOCK_MONOTONIC_RAW is unavailable on some platforms (and in
		// sandboxes); fall back to the ordinary monotonic clock rather
		// than fail a control-domain call over a clock read.
		return time.Since(fallbackEpoch)
	}
	return time.Duration(ts.Sec)*time.Second + time.Duration(ts.Nsec)
}

// Since returns the elapsed duration since a value returned by Now.
func Since(start time.Duration) time.Duration {
	return Now() - start
}
