package stream

import "sync/atomic"

// atomicBool is a tiny wrapper kept separate from atomic.Bool only so
// boolBox reads the same whether the stdlib type gains new methods.
type atomicBool struct{ v atomic.Bool }

func (b *atomicBool) store(val bool) { b.v.Store(val) }
func (b *atomicBool) load() bool     { return b.v.Load() }

func (b *boolBox) store(val bool) { b.v.store(val) }
func (b *boolBox) load() bool     { return b.v.load() }

// packetIndexBox holds the ring cursor. -1 is sticky: spec §3 invariant 1
// "packet_index ∈ [0, QUEUE_LENGTH) ∪ {−1}; −1 is sticky until restart."
type packetIndexBox struct{ v atomic.Int32 }

func (p *packetIndexBox) store(i int)  { p.v.Store(int32(i)) }
func (p *packetIndexBox) load() int32  { return p.v.Load() }
func (p *packetIndexBox) storeError()  { p.v.Store(-1) }
func (p *packetIndexBox) isErrored() bool { return p.v.Load() < 0 }
