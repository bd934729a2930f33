// Package packetbuf implements the fixed-length ring of DMA-shaped packet
// slots described in spec §3 "Packet buffer" and §4.1. It is allocated
// once when a stream starts and destroyed only when the stream stops; no
// other code path may resize or re-map it.
package packetbuf

import "fmt"

// QueueLength is the fixed ring depth, spec §6 "Fixed parameters".
const QueueLength = 48

// Slot is one DMA-mappable packet region: Offset is the byte offset into
// the mapped region (handed to the isochronous controller for
// submission), Buffer is the host-visible byte slice the codec reads and
// writes directly.
type Slot struct {
	Offset int
	Buffer []byte
}

// Buffer is the fixed ring of QueueLength equal-size slots.
type Buffer struct {
	slotSize int
	region   []byte
	slots    [QueueLength]Slot
}

// New allocates a ring whose slots are each large enough for one
// maximum-size AMDTP packet: 8 + sytInterval*dataBlockQuadlets*4 bytes
// (spec §3). It returns an error if that size would exceed maxPayload,
// the CMP-negotiated payload ceiling (SPEC_FULL.md §D.1).
func New(sytInterval, dataBlockQuadlets, maxPayload int) (*Buffer, error) {
	slotSize := 8 + sytInterval*dataBlockQuadlets*4
	if maxPayload > 0 && slotSize > maxPayload {
		return nil, fmt.Errorf("packetbuf: max packet size %d exceeds negotiated max payload %d", slotSize, maxPayload)
	}

	b := &Buffer{
		slotSize: slotSize,
		region:   make([]byte, slotSize*QueueLength),
	}
	for i := 0; i < QueueLength; i++ {
		b.slots[i] = Slot{
			Offset: i * slotSize,
			Buffer: b.region[i*slotSize : (i+1)*slotSize],
		}
	}
	return b, nil
}

// SlotSize returns the fixed per-slot byte size.
func (b *Buffer) SlotSize() int { return b.slotSize }

// Slot returns the slot at ring index i. i must be in [0, QueueLength).
func (b *Buffer) Slot(i int) Slot { return b.slots[i] }
