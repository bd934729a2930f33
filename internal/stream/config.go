package stream

import (
	"github.com/amdtp/engine/internal/cip"
	"github.com/amdtp/engine/internal/engineerr"
	"github.com/amdtp/engine/internal/sfc"
)

// Direction is transmit (host→device) or receive (device→host), spec §3.
type Direction int

const (
	Transmit Direction = iota
	Receive
)

func (d Direction) String() string {
	if d == Transmit {
		return "transmit"
	}
	return "receive"
}

// Mode is AMDTP's two framing disciplines, spec §3 "mode".
type Mode int

const (
	NonBlocking Mode = iota
	Blocking
)

// SyncRole identifies who drives SYT for a duplex pair, spec §3
// "sync_role".
type SyncRole int

const (
	SyncStandalone SyncRole = iota
	SyncMaster
	SyncSlave
)

const maxPCMChannels = 64
const maxMIDIPorts = 8

// Config is a stream's immutable-once-started parameter set, spec §3
// "Stream configuration".
type Config struct {
	Direction Direction
	Mode      Mode
	SFC       sfc.Code

	// PCMChannels is the wire-exposed channel count: in dual-wire mode
	// this is already twice the logical channel count (spec §3
	// "dual_wire").
	PCMChannels int
	MIDIPorts   int
	DualWire    bool

	// HigherProtocol carries vendor-specific bits discovered alongside
	// dual-wire at format-probe time. It is carried but not interpreted
	// here; dual-wire packing is selected by DualWire alone
	// (SPEC_FULL.md §D.2).
	HigherProtocol uint32

	// PCMPositions holds one quadlet offset per *logical* PCM channel
	// (len == PCMChannels/2 in dual-wire mode, else PCMChannels).
	// Discovered from the device, or identity 0..N-1 if unknown
	// (spec §3 "pcm_positions").
	PCMPositions []int
	// MIDIPosition is the quadlet offset for the single MPX-MIDI
	// channel; -1 when MIDIPorts == 0.
	MIDIPosition int

	Format cip.SampleFormat

	SyncRole  SyncRole
	SyncSlave *Stream // non-nil only when SyncRole == SyncMaster

	// SourceNodeIDField is the 6-bit local node ID, refreshed by
	// Update() after a bus reset (spec §3 "source_node_id_field").
	SourceNodeIDField uint8

	// PCMPeriodFrames is the period size in frames; crossing a
	// multiple of it schedules a period-elapsed notification
	// (spec §4.4 "Transmit callback").
	PCMPeriodFrames uint64

	// BlocksForMIDI bounds how many of a packet's leading data blocks
	// may carry MIDI payload; some devices ignore MIDI after block 7
	// (spec §4.2).
	BlocksForMIDI int
}

// DataBlockQuadlets is pcm_channels + ceil(midi_ports/8), spec §3.
func (c Config) DataBlockQuadlets() int {
	midiQuads := (c.MIDIPorts + 7) / 8
	if c.MIDIPorts > 0 && midiQuads == 0 {
		midiQuads = 1
	}
	return c.PCMChannels + midiQuads
}

// Layout derives the cip.BlockLayout this config packs/unpacks with.
func (c Config) Layout() cip.BlockLayout {
	return cip.BlockLayout{
		DataBlockQuadlets: c.DataBlockQuadlets(),
		PCMPositions:      c.PCMPositions,
		DualWire:          c.DualWire,
		MIDIPosition:      c.MIDIPosition,
		BlocksForMIDI:     c.BlocksForMIDI,
		Format:            c.Format,
	}
}

// MaxPacketBytes is the largest packet this config can emit:
// 8 + syt_interval * data_block_quadlets * 4 (spec §3 "Packet buffer").
func (c Config) MaxPacketBytes() int {
	return 8 + int(c.SFC.SytInterval())*c.DataBlockQuadlets()*4
}

// Validate checks the invariants spec §7 "Invalid argument" names:
// rate must be one of the supported seven, channel counts bounded,
// dual-wire requires blocking mode and a period aligned to syt_interval.
func (c Config) Validate() error {
	if !c.SFC.Valid() {
		return engineerr.New(engineerr.InvalidArgument, "unsupported sample rate code %v", c.SFC)
	}
	if c.PCMChannels < 0 || c.PCMChannels > maxPCMChannels {
		return engineerr.New(engineerr.InvalidArgument, "pcm channels %d out of range [0,%d]", c.PCMChannels, maxPCMChannels)
	}
	if c.MIDIPorts < 0 || c.MIDIPorts > maxMIDIPorts {
		return engineerr.New(engineerr.InvalidArgument, "midi ports %d out of range [0,%d]", c.MIDIPorts, maxMIDIPorts)
	}
	if c.DualWire {
		if c.Mode != Blocking {
			return engineerr.New(engineerr.InvalidArgument, "dual_wire requires blocking mode")
		}
		if c.PCMPeriodFrames%uint64(c.SFC.SytInterval()) != 0 {
			return engineerr.New(engineerr.InvalidArgument, "dual_wire requires a PCM period that is a multiple of syt_interval")
		}
	}
	wantPositions := c.PCMChannels
	if c.DualWire {
		wantPositions = c.PCMChannels / 2
	}
	if len(c.PCMPositions) != wantPositions {
		return engineerr.New(engineerr.InvalidArgument, "pcm_positions has %d entries, want %d", len(c.PCMPositions), wantPositions)
	}
	if c.MIDIPorts == 0 && c.MIDIPosition >= 0 {
		return engineerr.New(engineerr.InvalidArgument, "midi_position set without midi_ports")
	}
	return nil
}

// IdentityPCMPositions returns the identity layout 0..n-1, used when the
// device does not report a cluster_type != 0x0a channel map (spec §3
// "pcm_positions").
func IdentityPCMPositions(n int) []int {
	p := make([]int, n)
	for i := range p {
		p[i] = i
	}
	return p
}
