package stream

import "sync/atomic"

// PCMDevice is the host-side PCM substream a stream is attached to. A
// transmit stream pulls frames from it; a receive stream pushes frames
// into it. Abort transitions it to XRUN without touching the transport
// (spec §5 "Cancellation").
type PCMDevice interface {
	NextFrame(out []int32) (ok bool)
	PutFrame(frame []int32)
	Abort()
}

// MIDIDevice is one of a stream's up to 8 MIDI ports: a transmit port is
// a byte queue, a receive port is a byte sink (spec §3 "MIDI state").
type MIDIDevice interface {
	NextByte(port int) (b byte, ok bool)
	PutByte(port int, b byte)
}

type pcmSlot struct{ dev PCMDevice }
type midiSlot struct{ dev MIDIDevice }

// pcmRef holds the current PCM substream reference and the pointers the
// callback domain advances, following spec §5 "Shared-state discipline":
// written only from the callback domain, read from both, with a plain
// atomic word — no lock taken in the hot path.
type pcmRef struct {
	dev           atomic.Pointer[pcmSlot]
	bufferPointer atomic.Uint64 // frames
	periodPointer atomic.Uint64 // frames since last period-elapsed notification
	flushPending  atomic.Bool
}

func (r *pcmRef) trigger(dev PCMDevice) {
	if dev == nil {
		r.dev.Store(nil)
		return
	}
	r.dev.Store(&pcmSlot{dev: dev})
}

func (r *pcmRef) get() PCMDevice {
	s := r.dev.Load()
	if s == nil {
		return nil
	}
	return s.dev
}

// advance moves the buffer pointer forward by frames and reports whether
// a period boundary was crossed, resetting the period counter if so
// (spec §4.4 "schedule a period-elapsed notification when the period
// pointer crosses a period boundary").
func (r *pcmRef) advance(frames uint64, periodFrames uint64) (crossed bool) {
	r.bufferPointer.Add(frames)
	if periodFrames == 0 {
		return false
	}
	newPeriod := r.periodPointer.Add(frames)
	if newPeriod >= periodFrames {
		r.periodPointer.Add(-periodFrames * (newPeriod / periodFrames))
		return true
	}
	return false
}

func (r *pcmRef) pointer() uint64 { return r.bufferPointer.Load() }

type midiRefs [8]atomic.Pointer[midiSlot]

func (m *midiRefs) trigger(port int, dev MIDIDevice) {
	if dev == nil {
		m[port].Store(nil)
		return
	}
	m[port].Store(&midiSlot{dev: dev})
}

func (m *midiRefs) get(port int) MIDIDevice {
	s := m[port].Load()
	if s == nil {
		return nil
	}
	return s.dev
}
