package cip

import "fmt"

// BlockLayout describes where, inside one data block, each PCM channel
// and the MIDI channel live, and how many of a packet's leading blocks
// may carry MIDI (spec §3, §4.2).
type BlockLayout struct {
	DataBlockQuadlets int
	PCMPositions      []int // quadlet offset within a block, one per logical PCM channel
	DualWire          bool  // spec §3 "dual_wire": each logical sample occupies two adjacent quadlets
	MIDIPosition      int
	BlocksForMIDI     int // only the first N blocks of a packet may carry MIDI (some devices ignore the rest)
	Format            SampleFormat
}

// quadletsPerChannel is 2 in dual-wire mode (two consecutive samples of
// each logical channel packed per block) and 1 otherwise.
func (l BlockLayout) quadletsPerChannel() int {
	if l.DualWire {
		return 2
	}
	return 1
}

// PCMSource supplies the next frame of samples, one per logical PCM
// channel (or, in dual-wire mode, one pair per logical channel). ok is
// false when no PCM substream is attached, in which case the codec emits
// silence.
type PCMSource interface {
	NextFrame(out []int32) (ok bool)
}

// MIDISource supplies the next pending byte for a MIDI port, if any.
type MIDISource interface {
	NextByte(port int) (b byte, ok bool)
}

// PCMSink receives one decoded frame of samples.
type PCMSink interface {
	PutFrame(frame []int32)
}

// MIDISink receives one decoded MIDI byte for a port.
type MIDISink interface {
	PutByte(port int, b byte)
}

// BuildPacket writes a complete AMDTP packet (CIP header plus dataBlocks
// data blocks) into dst and returns the payload length written. hdr.FDF
// is overridden to NoDataFDF when dataBlocks == 0 (spec §4.2 "If N = 0,
// replace the sfc field with 0xFF").
func BuildPacket(dst []byte, hdr Header, dataBlocks int, layout BlockLayout, pcm PCMSource, midi MIDISource) (int, error) {
	blockBytes := layout.DataBlockQuadlets * 4
	need := headerBytes + dataBlocks*blockBytes
	if len(dst) < need {
		return 0, fmt.Errorf("cip: dst too small: have %d need %d", len(dst), need)
	}

	if dataBlocks == 0 {
		hdr.FDF = NoDataFDF
	}
	hdr.Encode(dst[:headerBytes])

	qpc := layout.quadletsPerChannel()
	frame := make([]int32, len(layout.PCMPositions)*qpc)

	for b := 0; b < dataBlocks; b++ {
		block := dst[headerBytes+b*blockBytes : headerBytes+(b+1)*blockBytes]
		for i := range block {
			block[i] = 0
		}

		haveFrame := false
		if pcm != nil {
			haveFrame = pcm.NextFrame(frame)
		}
		for ch, pos := range layout.PCMPositions {
			for w := 0; w < qpc; w++ {
				var q uint32
				if haveFrame {
					q = PackPCMSample(frame[ch*qpc+w], layout.Format)
				} else {
					q = SilencePCMQuadlet
				}
				putQuadlet(block, pos*qpc+w, q)
			}
		}

		if layout.MIDIPosition >= 0 {
			var q uint32 = EmptyMIDIQuadlet
			if b < layout.BlocksForMIDI {
				port := MIDIPortForBlock(hdr.DataBlockCounter, b)
				if midi != nil {
					if by, ok := midi.NextByte(port); ok {
						q = PackMIDISample(by, true)
					}
				}
			}
			putQuadlet(block, layout.MIDIPosition, q)
		}
	}

	return need, nil
}

// ParsePacket decodes a received AMDTP packet: it validates and parses
// the CIP header, derives the number of data blocks from the payload
// length (never trusting the device's dbs/dbc, spec §4.2), and feeds
// decoded PCM/MIDI to the given sinks. It returns the parsed header and
// the derived data block count. A NO-DATA packet (FDF == NoDataFDF) or a
// too-short payload yields (hdr, 0, nil) with nothing delivered to the
// sinks, per spec §4.2 "Ignore packets with payload_quadlets < 3 or FDF =
// 0xFF".
func ParsePacket(src []byte, layout BlockLayout, pcm PCMSink, midi MIDISink) (Header, int, error) {
	if len(src) < headerBytes {
		return Header{}, 0, fmt.Errorf("cip: packet shorter than header: %d bytes", len(src))
	}
	hdr, err := Decode(src[:headerBytes])
	if err != nil {
		return Header{}, 0, err
	}

	payloadQuadlets := (len(src) - headerBytes) / 4
	if payloadQuadlets < 3 || hdr.FDF == NoDataFDF {
		return hdr, 0, nil
	}

	blockBytes := layout.DataBlockQuadlets * 4
	dataBlocks := (len(src) - headerBytes) / blockBytes

	qpc := layout.quadletsPerChannel()
	frame := make([]int32, len(layout.PCMPositions)*qpc)

	for b := 0; b < dataBlocks; b++ {
		block := src[headerBytes+b*blockBytes : headerBytes+(b+1)*blockBytes]

		for ch, pos := range layout.PCMPositions {
			for w := 0; w < qpc; w++ {
				frame[ch*qpc+w] = UnpackPCMSample(getQuadlet(block, pos*qpc+w))
			}
		}
		if pcm != nil {
			pcm.PutFrame(frame)
		}

		if layout.MIDIPosition >= 0 && b < layout.BlocksForMIDI {
			q := getQuadlet(block, layout.MIDIPosition)
			if by, ok := UnpackMIDISample(q); ok {
				port := MIDIPortForBlock(hdr.DataBlockCounter, b)
				if midi != nil {
					midi.PutByte(port, by)
				}
			}
		}
	}

	return hdr, dataBlocks, nil
}

func putQuadlet(block []byte, quadIdx int, v uint32) {
	off := quadIdx * 4
	putBE32(block[off:off+4], v)
}

func getQuadlet(block []byte, quadIdx int) uint32 {
	off := quadIdx * 4
	return be32(block[off : off+4])
}
