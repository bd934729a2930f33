package main

import "github.com/amdtp/engine/internal/packetbuf"

// loopbackPair stands in for a real FireWire isochronous bus: it hands
// the transmit stream's queued slot straight to the receive stream's
// buffer at the same ring index, since both sides share QueueLength.
// Nothing here claims to model the wire itself — it exists only so the
// demo can exercise the stream core without real hardware.
type loopbackPair struct {
	txBuf *packetbuf.Buffer
	rxBuf *packetbuf.Buffer
	ch    chan loopMsg
}

type loopMsg struct {
	idx        int
	payloadLen int
}

// loopTxTransport implements stream.Transport for the transmit side: it
// just remembers the buffer and forwards queued slots over the channel.
type loopTxTransport struct {
	pair *loopbackPair
}

func (t *loopTxTransport) CreateContext(buf *packetbuf.Buffer) error {
	t.pair.txBuf = buf
	return nil
}

func (t *loopTxTransport) QueueSlot(index, payloadLen int) error {
	t.pair.ch <- loopMsg{idx: index, payloadLen: payloadLen}
	return nil
}

func (t *loopTxTransport) StartContext() error { return nil }
func (t *loopTxTransport) StopContext()        {}
func (t *loopTxTransport) DestroyContext()     {}

// loopRxTransport implements stream.Transport for the receive side. Its
// QueueSlot just re-arms the slot, matching how a real DMA context would
// be told a slot is free to receive again; the loopback driver goroutine
// is what actually delivers data into it.
type loopRxTransport struct {
	pair *loopbackPair
}

func (r *loopRxTransport) CreateContext(buf *packetbuf.Buffer) error {
	r.pair.rxBuf = buf
	return nil
}

func (r *loopRxTransport) QueueSlot(index, payloadLen int) error { return nil }
func (r *loopRxTransport) StartContext() error                   { return nil }
func (r *loopRxTransport) StopContext()                          {}
func (r *loopRxTransport) DestroyContext()                       {}
