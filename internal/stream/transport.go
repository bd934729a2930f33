package stream

import "github.com/amdtp/engine/internal/packetbuf"

// Transport is the isochronous-controller side of a stream: everything
// this package needs from the actual bus transport, which spec §1 treats
// as an external collaborator out of scope for this engine. A real
// implementation submits/collects DMA packets on the wire; tests use an
// in-process fake exactly the way the teacher's atest.go drives its
// decoder pipeline without a real sound card.
type Transport interface {
	// CreateContext sizes the low-level isochronous context to buf's
	// slots. Returns a resource-exhaustion error if the context cannot
	// be allocated.
	CreateContext(buf *packetbuf.Buffer) error
	// QueueSlot submits the slot at index i, whose first payloadLen
	// bytes are valid, for transmission (or, for a receive stream,
	// re-arms it to receive the next packet). A non-nil error is a
	// streaming fault (spec §7).
	QueueSlot(index int, payloadLen int) error
	// StartContext starts the context running on the bus.
	StartContext() error
	// StopContext halts the context; idempotent.
	StopContext()
	// DestroyContext releases the context; idempotent.
	DestroyContext()
}

// RxSlotHeader is one entry of the per-cycle header region a receive
// callback is handed: spec §4.4 "Header region contains one 4-byte
// ISO-header per packet giving the deposited payload length."
type RxSlotHeader struct {
	SlotIndex  int
	PayloadLen int
}
