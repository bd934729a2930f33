package main

// micSource is the transmit-side PCMDevice: portaudio's input callback
// pushes captured frames in, the AMDTP transmit callback pulls them out.
type micSource struct {
	ring    *frameRing
	aborted bool
}

func (m *micSource) NextFrame(out []int32) bool {
	if m.aborted {
		return false
	}
	return m.ring.pop(out)
}

func (m *micSource) PutFrame(frame []int32) {} // unused on the transmit side

func (m *micSource) Abort() { m.aborted = true }

// speakerSink is the receive-side PCMDevice: the AMDTP receive callback
// pushes decoded frames in, portaudio's output callback drains them.
type speakerSink struct {
	ring    *frameRing
	aborted bool
}

func (s *speakerSink) NextFrame(out []int32) bool { return false } // unused on the receive side

func (s *speakerSink) PutFrame(frame []int32) {
	if s.aborted {
		return
	}
	s.ring.push(frame)
}

func (s *speakerSink) Abort() { s.aborted = true }
