package main

import "sync"

// frameRing is a small mutex-protected FIFO of interleaved PCM frames,
// backing the portaudio callbacks on both sides of the demo loopback.
// It is not meant to be a production low-latency ring — just enough to
// let the portaudio callback (producer or consumer) and the AMDTP
// engine's transport-callback-domain caller (the other side) meet. Both
// sides take a short mutex, so the engine side is not wait-free.
type frameRing struct {
	mu       sync.Mutex
	channels int
	frames   [][]int32
}

func newFrameRing(channels int) *frameRing {
	return &frameRing{channels: channels}
}

func (r *frameRing) push(frame []int32) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := make([]int32, len(frame))
	copy(cp, frame)
	r.frames = append(r.frames, cp)
	if len(r.frames) > 8192 {
		r.frames = r.frames[len(r.frames)-8192:]
	}
}

// pop fills out with the next frame's samples and reports whether one
// was available. When empty it reports false and leaves out untouched,
// matching spec §4.2 "If no PCM substream is attached, emit silence."
func (r *frameRing) pop(out []int32) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.frames) == 0 {
		return false
	}
	copy(out, r.frames[0])
	r.frames = r.frames[1:]
	return true
}
