package rate

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/amdtp/engine/internal/sfc"
)

// TestNonBlockingTotalFramesPerSecondIsExact checks spec §8's strongest
// invariant: summed over CyclesPerSec consecutive packets, the blocks
// generator must emit exactly `rate` frames — not merely on average.
func TestNonBlockingTotalFramesPerSecondIsExact(t *testing.T) {
	for _, code := range []sfc.Code{
		sfc.Code32000, sfc.Code44100, sfc.Code48000,
		sfc.Code88200, sfc.Code96000, sfc.Code176400, sfc.Code192000,
	} {
		g := New(code, false)
		var total uint32
		for i := 0; i < CyclesPerSec; i++ {
			total += g.NextDataBlocks()
		}
		assert.Equal(t, code.Rate(), total, "code %v should emit exactly one second of frames", code)
	}
}

// TestFourFourOneScenario pins the worked example from spec §8 scenario 1:
// a 44.1kHz non-blocking stream's first five packets carry 6,6,5,6,5 blocks.
func TestFourFourOneScenario(t *testing.T) {
	g := New(sfc.Code44100, false)
	want := []uint32{6, 6, 5, 6, 5}
	got := make([]uint32, len(want))
	for i := range got {
		got[i] = g.NextDataBlocks()
	}
	assert.Equal(t, want, got)
}

func TestBlockingModeAlwaysFullInterval(t *testing.T) {
	g := New(sfc.Code48000, true)
	for i := 0; i < 100; i++ {
		assert.Equal(t, sfc.Code48000.SytInterval(), g.NextDataBlocks())
	}
}

// expectedSytOffset computes spec §8's exact formula: the n'th SYT-carrying
// cycle (0-indexed) must land on round(n*syt_interval*24_576_000/rate) mod
// TicksPerCycle.
func expectedSytOffset(n uint64, sytInterval, rate uint32) uint32 {
	ticks := float64(n) * float64(sytInterval) * float64(TicksPerSecond)
	rounded := math.Round(ticks / float64(rate))
	return uint32(math.Mod(rounded, float64(TicksPerCycle)))
}

// TestNextSYTCycleFieldWraps checks the full two-second SYT sequence against
// spec §8's exact formula for every SFC, and that the count of SYT-carrying
// cycles over that span matches rate/syt_interval exactly (two seconds,
// since the 44.1kHz-derived family's rate/syt_interval is not itself an
// integer — e.g. 44100/8 = 5512.5 — but is exact over an even number of
// seconds).
func TestNextSYTCycleFieldWraps(t *testing.T) {
	const seconds = 2

	for _, code := range []sfc.Code{
		sfc.Code32000, sfc.Code44100, sfc.Code48000,
		sfc.Code88200, sfc.Code96000, sfc.Code176400, sfc.Code192000,
	} {
		g := New(code, false)
		sytInterval := code.SytInterval()
		rate := code.Rate()

		var n uint64
		for cycle := uint32(0); cycle < seconds*CyclesPerSec; cycle++ {
			syt, carries := g.NextSYT(cycle)
			if !carries {
				continue
			}
			want := expectedSytOffset(n, sytInterval, rate)
			assert.Equalf(t, want, g.LastSytOffset(),
				"code %v: %d'th SYT-carrying cycle (bus cycle %d, syt=%#04x)", code, n, cycle, syt)
			n++
		}

		assert.Equal(t, uint64(seconds*rate/sytInterval), n,
			"code %v: SYT-carrying count over %d seconds should equal seconds*rate/syt_interval", code, seconds)
	}
}

func TestTransferDelayAddsBlockingCorrection(t *testing.T) {
	nonBlocking := New(sfc.Code48000, false)
	blocking := New(sfc.Code48000, true)
	assert.Less(t, nonBlocking.TransferDelay(), blocking.TransferDelay())
}

func TestSkipCyclesOnlyForFourFourOneFamily(t *testing.T) {
	assert.Equal(t, 1, SkipCycles(sfc.Code44100))
	assert.Equal(t, 1, SkipCycles(sfc.Code88200))
	assert.Equal(t, 1, SkipCycles(sfc.Code176400))
	assert.Equal(t, 0, SkipCycles(sfc.Code48000))
	assert.Equal(t, 0, SkipCycles(sfc.Code96000))
}
