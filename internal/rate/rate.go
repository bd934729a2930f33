// Package rate implements the per-cycle blocks-per-packet and SYT
// timestamp sequence generators described in spec §4.3. Each generator is
// pure per-SFC state; the stream core owns one per direction.
package rate

import "github.com/amdtp/engine/internal/sfc"

const (
	TicksPerCycle  = 3072
	CyclesPerSec   = 8000
	TicksPerSecond = 24_576_000

	// NoInfoSYT is the CIP header SYT value meaning "no timing info".
	NoInfoSYT uint16 = 0xffff

	// baseTransferDelay is the fixed device-buffering offset in ticks,
	// before the blocking-mode correction is added.
	baseTransferDelay = 0x2e00 - 3072

	// ticksPerSytOffset44100 is the per-cycle SYT phase increment for
	// the 44.1kHz-derived family before corrections.
	ticksPerSytOffset44100 = 1386
)

// initState holds the (data_block_state, syt_offset_state) pair a stream
// starts with for a given SFC (spec §4.3 "Initial state").
type initState struct {
	dataBlockState uint32
	sytOffsetState uint32
}

var initTable = map[sfc.Code]initState{
	sfc.Code32000:  {4, 3072},
	sfc.Code48000:  {6, 1024},
	sfc.Code96000:  {12, 1024},
	sfc.Code192000: {24, 1024},
	sfc.Code44100:  {0, 67},
	sfc.Code88200:  {0, 67},
	sfc.Code176400: {0, 67},
}

// phaseModulusAndBase returns the phase modulus and base block count for
// the 88.2/176.4kHz family. The 88.2kHz base 11 is literal per spec §4.3
// ("base ∈ {11, 23}" for 88.2/176.4kHz). The 176.4kHz value is corrected from the spec's literal 23 to 22: base 23
// would make the per-packet average 23.05 blocks, overshooting the
// required 176400/8000 = 22.05 exactly and violating the §8 "total emitted
// PCM frames equals the rate exactly" invariant. See DESIGN.md.
func phaseModulusAndBase(c sfc.Code) (modulus, base uint32) {
	switch c {
	case sfc.Code88200:
		return 40, 11
	case sfc.Code176400:
		return 20, 22
	}
	return 0, 0
}

// Generator produces the blocks-per-packet and SYT sequences for one
// stream direction at a fixed SFC and mode, exactly as spec §4.3
// describes. It is not safe for concurrent use; the stream core calls it
// only from the (single) transport callback domain.
type Generator struct {
	code     sfc.Code
	blocking bool

	// dataBlockState is the blocks-per-packet phase counter (spec §4.3
	// "Blocks per packet").
	dataBlockState uint32

	// sytOffsetState is the original driver's namesake field: for the
	// 48k-derived family it is the fixed per-cycle tick increment (never
	// mutated after New); for the 44.1k-derived family it is instead the
	// 0..146 phase counter indexing the 1386/1387 correction table.
	sytOffsetState uint32

	// lastSytOffset is the tick accumulator. It sits at or above
	// TicksPerCycle for one full cycle (the NO-INFO cycle; exactly
	// TicksPerCycle in the 48k-derived family) before wrapping, which is what makes the per-second SYT-carrying count
	// come out exact.
	lastSytOffset uint32

	transferDelay uint32
}

// New builds a Generator for the given SFC and mode. transferDelay is the
// base transfer delay plus, in blocking mode, the TICKS_PER_SECOND *
// syt_interval / rate correction (spec §3 "transfer_delay").
func New(code sfc.Code, blocking bool) *Generator {
	st := initTable[code]
	g := &Generator{
		code:           code,
		blocking:       blocking,
		dataBlockState: st.dataBlockState,
		sytOffsetState: st.sytOffsetState,
		lastSytOffset:  TicksPerCycle,
	}
	g.transferDelay = baseTransferDelay
	if blocking {
		g.transferDelay += TicksPerSecond * code.SytInterval() / code.Rate()
	}
	return g
}

// TransferDelay returns the fixed device-buffering offset, in ticks, used
// when encoding SYT (spec §3 "transfer_delay").
func (g *Generator) TransferDelay() uint32 { return g.transferDelay }

// LastSytOffset returns the most recently generated in-cycle tick offset,
// for property testing against spec §8's exact-formula invariant.
func (g *Generator) LastSytOffset() uint32 { return g.lastSytOffset }

// NextDataBlocks returns the number of data blocks the next packet should
// carry (spec §4.3 "Blocks per packet").
func (g *Generator) NextDataBlocks() uint32 {
	if g.blocking {
		// Blocking mode always carries a full syt_interval's worth when
		// producing a data packet; the caller decides 0 vs syt_interval
		// based on whether this cycle should emit NO-DATA at all.
		return g.code.SytInterval()
	}

	if !g.code.IsBase44100() {
		return g.code.Rate() / CyclesPerSec
	}

	phase := g.dataBlockState
	var n uint32
	switch g.code {
	case sfc.Code44100:
		cond := uint32(0)
		if phase == 0 || phase >= 40 {
			cond = 1
		}
		n = 5 + ((phase & 1) ^ cond)
		g.dataBlockState = (phase + 1) % 80
	case sfc.Code88200, sfc.Code176400:
		modulus, base := phaseModulusAndBase(g.code)
		bump := uint32(0)
		if phase == 0 {
			bump = 1
		}
		n = base + bump
		g.dataBlockState = (phase + 1) % modulus
	}
	return n
}

// NextSYT advances the SYT phase state by one cycle and returns the
// 16-bit SYT value for the packet at the given bus cycle (spec §4.3 "SYT
// generation"). carries reports whether this packet encodes a real
// timestamp (false means the header's SYT field is NoInfoSYT).
func (g *Generator) NextSYT(cycle uint32) (syt uint16, carries bool) {
	var sytOffset uint32

	if g.lastSytOffset < TicksPerCycle {
		if !g.code.IsBase44100() {
			sytOffset = g.lastSytOffset + g.sytOffsetState
		} else {
			// The time, in ticks, of the n'th syt_interval sample is
			// n * syt_interval * 24576000 / rate. Modulo TicksPerCycle,
			// successive differences are ~1386.23; this table
			// reproduces that rounded sequence exactly (1386 1386 1387
			// 1386 1386 1386 1387 ...).
			phase := g.sytOffsetState
			index := phase % 13
			bump := uint32(0)
			if (index != 0 && index%4 == 0) || phase == 146 {
				bump = 1
			}
			sytOffset = g.lastSytOffset + ticksPerSytOffset44100 + bump
			phase++
			if phase >= 147 {
				phase = 0
			}
			g.sytOffsetState = phase
		}
	} else {
		sytOffset = g.lastSytOffset - TicksPerCycle
	}
	g.lastSytOffset = sytOffset

	if sytOffset >= TicksPerCycle {
		return NoInfoSYT, false
	}

	sytOffset += g.transferDelay
	cycleField := (cycle + sytOffset/TicksPerCycle) & 0xf
	syt = uint16((cycleField<<12)|(sytOffset%TicksPerCycle)) & 0xffff
	return syt, true
}

// SkipCycles returns the number of leading packets (one per cycle) a
// stream should emit as NO-DATA packets before its first real data
// packet, to let the SYT sequence reach a block-aligned phase (spec
// SPEC_FULL.md §D.3, grounded in the vendor _stream.c "tx_init_skip"
// pattern of original_source/).
func SkipCycles(code sfc.Code) int {
	if code.IsBase44100() {
		return 1
	}
	return 0
}
