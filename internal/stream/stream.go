// Package stream implements the AMDTP stream core: lifecycle state
// machine, the transmit/receive packet-queue callbacks, PCM/MIDI
// bridging, and bus-reset/cancellation handling (spec §4.4, §5).
package stream

import (
	"sync"
	"time"

	"github.com/amdtp/engine/internal/cip"
	"github.com/amdtp/engine/internal/enginelog"
	"github.com/amdtp/engine/internal/engineerr"
	"github.com/amdtp/engine/internal/packetbuf"
	"github.com/amdtp/engine/internal/rate"
)

// FirstCallbackTimeout bounds how long WaitFirstCallback blocks, spec §6
// "Fixed parameters".
const FirstCallbackTimeout = 100 * time.Millisecond

// Stream is one AMDTP transmit or receive stream. The zero value is not
// usable; build one with New.
type Stream struct {
	cfg Config

	mu    sync.Mutex // held across start/stop in the control domain only
	state stateBox

	transport Transport
	buf       *packetbuf.Buffer
	gen       *rate.Generator

	packetIndex  packetIndexBox
	dbc          uint8
	skipRemain   int
	anomalyLimit *enginelog.Limiter
	log          interface {
		Warnf(format string, args ...any)
		Infof(format string, args ...any)
	}

	pcmDev  pcmRef
	midiDev midiRefs

	firstCallback     chan struct{}
	firstCallbackOnce sync.Once
	firstCallbackFlag boolBox

	remain []sortEntry // deferred receive-side sort entries from the previous callback

	// OnPeriodElapsed is invoked (from the callback domain) whenever the
	// PCM period pointer crosses a boundary. Must not block.
	OnPeriodElapsed func()
	// OnStreamingFault is invoked when packet_index becomes -1; callers
	// typically abort the PCM device from here.
	OnStreamingFault func(err error)
}

type boolBox struct{ v atomicBool }

// New builds a Stream in the Idle state. The CMP-negotiated payload
// ceiling is given later, to Start.
func New() *Stream {
	s := &Stream{
		firstCallback: make(chan struct{}),
	}
	s.state.store(Idle)
	s.packetIndex.store(0)
	s.anomalyLimit = enginelog.NewLimiter(time.Second)
	s.log = enginelog.Base
	return s
}

// Config returns the stream's current configuration.
func (s *Stream) Config() Config { return s.cfg }

// State returns the current lifecycle state (spec §4.4).
func (s *Stream) State() State { return s.state.load() }

// SetParameters validates cfg and moves Idle/Configured -> Configured
// (spec §4.4). It must not be called while Running.
func (s *Stream) SetParameters(cfg Config) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if st := s.state.load(); st == Running {
		return engineerr.New(engineerr.InvalidArgument, "cannot set_parameters while running")
	}
	if cfg.MIDIPorts == 0 {
		cfg.MIDIPosition = -1
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	if cfg.MaxPacketBytes() > maxPacketBytesCeiling {
		return engineerr.New(engineerr.InvalidArgument, "packet size %d exceeds transport ceiling", cfg.MaxPacketBytes())
	}

	s.cfg = cfg
	s.state.store(Configured)
	return nil
}

// maxPacketBytesCeiling is a sanity ceiling, independent of any specific
// CMP negotiation, so SetParameters can reject obviously-unbuildable
// configurations before Start even allocates the packet buffer.
const maxPacketBytesCeiling = 8 + 255*4*32

// SetPCMFormat sets the sample format while Configured.
func (s *Stream) SetPCMFormat(f cip.SampleFormat) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if st := s.state.load(); st != Configured {
		return engineerr.New(engineerr.InvalidArgument, "set_pcm_format requires Configured state, have %v", st)
	}
	s.cfg.Format = f
	return nil
}

// Start allocates the packet buffer, creates the transport context,
// queues initial packets, and starts the transport: Configured -> Running
// (spec §4.4). maxPayload is the CMP-negotiated ceiling (0 = unbounded).
func (s *Stream) Start(transport Transport, maxPayload int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if st := s.state.load(); st != Configured {
		return engineerr.New(engineerr.InvalidArgument, "start requires Configured state, have %v", st)
	}

	buf, err := packetbuf.New(int(s.cfg.SFC.SytInterval()), s.cfg.DataBlockQuadlets(), maxPayload)
	if err != nil {
		return engineerr.Wrap(engineerr.ResourceExhaustion, err)
	}

	if err := transport.CreateContext(buf); err != nil {
		return engineerr.Wrap(engineerr.ResourceExhaustion, err)
	}

	s.transport = transport
	s.buf = buf
	s.gen = rate.New(s.cfg.SFC, s.cfg.Mode == Blocking)
	s.dbc = 0
	s.packetIndex.store(0)
	s.skipRemain = rate.SkipCycles(s.cfg.SFC)
	s.remain = nil
	s.firstCallback = make(chan struct{})
	s.firstCallbackOnce = sync.Once{}
	s.firstCallbackFlag.store(false)
	s.log = enginelog.For(s.cfg.Direction.String(), s.cfg.SFC.Rate())

	if err := transport.StartContext(); err != nil {
		transport.DestroyContext()
		return engineerr.Wrap(engineerr.ResourceExhaustion, err)
	}

	s.state.store(Running)
	return nil
}

// Stop is idempotent: it stops and destroys the transport context, frees
// the packet buffer, and clears the first-callback flag (spec §5
// "Cancellation"). It always succeeds and returns to Configured.
func (s *Stream) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := s.state.load()
	if st != Running && st != Errored {
		return
	}
	if s.transport != nil {
		s.transport.StopContext()
		s.transport.DestroyContext()
	}
	s.buf = nil
	s.transport = nil
	s.firstCallbackFlag.store(false)
	s.state.store(Configured)
}

// Destroy tears the stream down from Idle (or Configured) back to
// Uninitialised.
func (s *Stream) Destroy() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state.load() == Running {
		s.mu.Unlock()
		s.Stop()
		s.mu.Lock()
	}
	s.state.store(Uninitialised)
}

// Update re-reads the local node ID after a bus reset (spec §3
// "Ownership and lifecycle"). Callers invoke this from CMP/bus-reset
// handling (internal/cmp, internal/busreset) before resuming traffic.
func (s *Stream) Update(nodeID uint8) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cfg.SourceNodeIDField = nodeID & 0x3f
}

// PCMTrigger attaches or detaches the PCM substream (pcm_or_null), spec
// §6 "pcm_trigger".
func (s *Stream) PCMTrigger(dev PCMDevice) { s.pcmDev.trigger(dev) }

// MIDITrigger attaches or detaches a MIDI port, spec §6 "midi_trigger".
func (s *Stream) MIDITrigger(port int, dev MIDIDevice) {
	if port < 0 || port >= 8 {
		return
	}
	s.midiDev.trigger(port, dev)
}

// PCMPointer returns the current PCM buffer pointer in frames, spec §6
// "pcm_pointer".
func (s *Stream) PCMPointer() uint64 { return s.pcmDev.pointer() }

// WaitFirstCallback blocks until the first transport callback has fired
// or FirstCallbackTimeout elapses, spec §4.4 "First callback".
func (s *Stream) WaitFirstCallback() bool {
	select {
	case <-s.firstCallback:
		return true
	case <-time.After(FirstCallbackTimeout):
		return false
	}
}

// markFirstCallback fires the first-callback flag exactly once per Start.
func (s *Stream) markFirstCallback() {
	s.firstCallbackOnce.Do(func() {
		s.firstCallbackFlag.store(true)
		close(s.firstCallback)
	})
}

// setErrored sets the sticky error flag and notifies OnStreamingFault,
// spec §7 "Streaming fault".
func (s *Stream) setErrored(err error) {
	s.packetIndex.storeError()
	s.state.cas(Running, Errored)
	if s.OnStreamingFault != nil {
		s.OnStreamingFault(err)
	}
}
