package cip

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestHeaderEncodeDecodeRoundTrip(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		hdr := Header{
			SourceNodeID:     uint8(rapid.IntRange(0, 0x3f).Draw(rt, "node")),
			DataBlockQuads:   uint8(rapid.IntRange(0, 255).Draw(rt, "dbq")),
			DataBlockCounter: uint8(rapid.IntRange(0, 255).Draw(rt, "dbc")),
			FDF:              uint8(rapid.IntRange(0, 255).Draw(rt, "fdf")),
			SYT:              uint16(rapid.IntRange(0, 0xffff).Draw(rt, "syt")),
		}
		buf := make([]byte, 8)
		hdr.Encode(buf)
		got, err := Decode(buf)
		require.NoError(t, err)
		assert.Equal(t, hdr, got)
	})
}

func TestDecodeRejectsBadEOH(t *testing.T) {
	buf := make([]byte, 8)
	hdr := Header{FDF: 2}
	hdr.Encode(buf)
	buf[0] |= 0x80 // set EOH in word 0, which must stay clear
	_, err := Decode(buf)
	assert.Error(t, err)
}

func TestDecodeRejectsNonAM824(t *testing.T) {
	buf := make([]byte, 8)
	hdr := Header{}
	hdr.Encode(buf)
	buf[4] = 0x20 << 2 // corrupt the FMT field away from 0x10
	_, err := Decode(buf)
	assert.Error(t, err)
}

func TestPackPCMSampleS16RoundTrips(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		s := int16(rapid.IntRange(-32768, 32767).Draw(rt, "sample"))
		q := PackPCMSample(int32(s), FormatS16)
		assert.Equal(t, uint32(PCMLabel), q>>24)
		got := UnpackPCMSample(q)
		assert.Equal(t, int32(s)<<16, got, "S16 should round-trip through its top 16 bits of the 32-bit value")
	})
}

func TestPackPCMSampleS32TruncatesToTop24Bits(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		s := rapid.Int32Range(-1<<31, 1<<31-1).Draw(rt, "sample")
		q := PackPCMSample(s, FormatS32)
		assert.Equal(t, uint32(PCMLabel), q>>24)
		got := UnpackPCMSample(q)
		assert.Equal(t, (s>>8)<<8, got)
	})
}

func TestMIDIPackUnpackRoundTrip(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		b := byte(rapid.IntRange(0, 255).Draw(rt, "byte"))
		q := PackMIDISample(b, true)
		got, present := UnpackMIDISample(q)
		assert.True(t, present)
		assert.Equal(t, b, got)
	})
}

func TestMIDIEmptyQuadletNotPresent(t *testing.T) {
	q := PackMIDISample(0, false)
	_, present := UnpackMIDISample(q)
	assert.False(t, present)
}

func TestMIDIPortForBlockWraps(t *testing.T) {
	assert.Equal(t, 0, MIDIPortForBlock(0, 0))
	assert.Equal(t, 7, MIDIPortForBlock(0, 7))
	assert.Equal(t, 0, MIDIPortForBlock(0, 8))
	assert.Equal(t, 3, MIDIPortForBlock(250, 9)) // (250+9) mod 8 == 3
}

func TestBuildAndParsePacketRoundTrip(t *testing.T) {
	layout := BlockLayout{
		DataBlockQuadlets: 3,
		PCMPositions:      []int{0, 1},
		MIDIPosition:      2,
		BlocksForMIDI:     8,
		Format:            FormatS32,
	}
	frames := [][]int32{{100, -200}, {300, -400}}
	i := 0
	pcmSrc := fakePCMSource{next: func(out []int32) bool {
		if i >= len(frames) {
			return false
		}
		copy(out, frames[i])
		i++
		return true
	}}
	midiSrc := fakeMIDISource{next: func(port int) (byte, bool) {
		if port == 5 { // block 0 of a packet with dbc 5: (5+0) mod 8
			return 0x90, true
		}
		return 0, false
	}}

	dst := make([]byte, 8+2*12)
	hdr := Header{DataBlockCounter: 5}
	n, err := BuildPacket(dst, hdr, 2, layout, pcmSrc, midiSrc)
	require.NoError(t, err)
	assert.Equal(t, 8+2*12, n)

	var gotFrames [][]int32
	var gotMIDI []byte
	pcmSink := fakePCMSink{put: func(frame []int32) {
		cp := append([]int32(nil), frame...)
		gotFrames = append(gotFrames, cp)
	}}
	midiSink := fakeMIDISink{put: func(port int, b byte) { gotMIDI = append(gotMIDI, b) }}

	parsedHdr, dataBlocks, err := ParsePacket(dst[:n], layout, pcmSink, midiSink)
	require.NoError(t, err)
	assert.Equal(t, 2, dataBlocks)
	assert.Equal(t, hdr.DataBlockCounter, parsedHdr.DataBlockCounter)
	require.Len(t, gotFrames, 2)
	assert.Equal(t, (int32(100)>>8)<<8, gotFrames[0][0]>>8<<8) // sanity: value survived pack/unpack at S32 precision loss
	assert.Equal(t, []byte{0x90}, gotMIDI)
}

func TestParsePacketIgnoresNoData(t *testing.T) {
	layout := BlockLayout{DataBlockQuadlets: 2, PCMPositions: []int{0}, MIDIPosition: -1}
	dst := make([]byte, 8+2*4)
	hdr := Header{FDF: NoDataFDF}
	hdr.Encode(dst[:8])
	_, dataBlocks, err := ParsePacket(dst, layout, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, 0, dataBlocks)
}

func TestBuildPacketZeroBlocksForcesNoDataFDF(t *testing.T) {
	layout := BlockLayout{DataBlockQuadlets: 2, PCMPositions: []int{0}, MIDIPosition: -1}
	dst := make([]byte, 8)
	_, err := BuildPacket(dst, Header{FDF: 2}, 0, layout, nil, nil)
	require.NoError(t, err)
	hdr, err := Decode(dst)
	require.NoError(t, err)
	assert.Equal(t, uint8(NoDataFDF), hdr.FDF)
}

type fakePCMSource struct{ next func([]int32) bool }

func (f fakePCMSource) NextFrame(out []int32) bool { return f.next(out) }

type fakeMIDISource struct{ next func(int) (byte, bool) }

func (f fakeMIDISource) NextByte(port int) (byte, bool) { return f.next(port) }

type fakePCMSink struct{ put func([]int32) }

func (f fakePCMSink) PutFrame(frame []int32) { f.put(frame) }

type fakeMIDISink struct{ put func(int, byte) }

func (f fakeMIDISink) PutByte(port int, b byte) { f.put(port, b) }
