// Package engineerr defines the typed failure categories from spec §7
// "Error handling design". The control domain always returns one of
// these from start/stop/rate-change entry points; the callback domain
// never surfaces errors synchronously.
package engineerr

import (
	"errors"
	"fmt"
)

// Kind classifies a failure into one of spec §7's six categories.
type Kind int

const (
	// InvalidArgument: rate not in table, channel count out of range,
	// format unsupported. Stream state is unchanged.
	InvalidArgument Kind = iota
	// ResourceExhaustion: packet buffer or transport context could not
	// be allocated. Stream returns to Configured.
	ResourceExhaustion
	// Timeout: a vendor command never matched, or the first callback
	// never fired. Partially started resources are torn down.
	Timeout
	// BusResetInvalidation: the CMP reservation was lost across a bus
	// reset. The PCM device is aborted and the stream is stopped.
	BusResetInvalidation
	// ProtocolAnomaly: a malformed CIP header or unexpected FMT/sequence
	// number was observed. Never returned from a control-domain call —
	// it is only ever logged, rate-limited, locally.
	ProtocolAnomaly
	// StreamingFault: packet-queue submission failed mid-stream.
	// packet_index becomes -1 and the stream transitions to Errored.
	StreamingFault
)

func (k Kind) String() string {
	switch k {
	case InvalidArgument:
		return "invalid argument"
	case ResourceExhaustion:
		return "resource exhaustion"
	case Timeout:
		return "timeout"
	case BusResetInvalidation:
		return "bus reset invalidation"
	case ProtocolAnomaly:
		return "protocol anomaly"
	case StreamingFault:
		return "streaming fault"
	default:
		return fmt.Sprintf("engineerr.Kind(%d)", int(k))
	}
}

// Error wraps an underlying cause with a Kind so callers can branch on
// category with errors.As while still seeing the original error text.
type Error struct {
	Kind  Kind
	Cause error
}

func New(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Cause: fmt.Errorf(format, args...)}
}

func Wrap(kind Kind, cause error) *Error {
	return &Error{Kind: kind, Cause: cause}
}

func (e *Error) Error() string {
	if e.Cause == nil {
		return e.Kind.String()
	}
	return fmt.Sprintf("%s: %v", e.Kind, e.Cause)
}

func (e *Error) Unwrap() error { return e.Cause }

// Of extracts the Kind from err, if err wraps an *Error anywhere in its
// chain.
func Of(err error) (Kind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return 0, false
}
