package stream

import "sync/atomic"

// State is the stream lifecycle state machine, spec §4.4 "State
// machine". It is stored as an atomic so the callback domain can read it
// without taking the stream mutex; the callback domain's only write is
// the Running -> Errored compare-and-swap on a streaming fault.
type State int32

const (
	Uninitialised State = iota
	Idle
	Configured
	Running
	Errored
)

func (s State) String() string {
	switch s {
	case Uninitialised:
		return "uninitialised"
	case Idle:
		return "idle"
	case Configured:
		return "configured"
	case Running:
		return "running"
	case Errored:
		return "errored"
	default:
		return "unknown"
	}
}

type stateBox struct{ v atomic.Int32 }

func (b *stateBox) load() State    { return State(b.v.Load()) }
func (b *stateBox) store(s State)  { b.v.Store(int32(s)) }
func (b *stateBox) cas(old, new_ State) bool {
	return b.v.CompareAndSwap(int32(old), int32(new_))
}
