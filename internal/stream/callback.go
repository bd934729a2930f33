package stream

import (
	"sort"

	"github.com/amdtp/engine/internal/cip"
	"github.com/amdtp/engine/internal/engineerr"
	"github.com/amdtp/engine/internal/packetbuf"
)

// dualWireFrameFactor scales a PCM pointer advance: dual-wire mode packs
// two presentation samples per wire sample (spec §4.4 and scenario 6).
func (s *Stream) dualWireFrameFactor() uint64 {
	if s.cfg.DualWire {
		return 2
	}
	return 1
}

// --- transmit ---------------------------------------------------------

type txPCMAdapter struct{ s *Stream }

func (a txPCMAdapter) NextFrame(out []int32) bool {
	dev := a.s.pcmDev.get()
	if dev == nil {
		return false
	}
	return dev.NextFrame(out)
}

type txMIDIAdapter struct{ s *Stream }

func (a txMIDIAdapter) NextByte(port int) (byte, bool) {
	dev := a.s.midiDev.get(port)
	if dev == nil {
		return 0, false
	}
	return dev.NextByte(port)
}

// TransmitCycle is the transmit packet-queue callback, invoked by the
// transport with (cycle, packets_since_last_call) — spec §4.4 "Transmit
// callback". It is wait-free: on any queueing error it sets the sticky
// error flag and returns, never blocking.
func (s *Stream) TransmitCycle(cycle uint32, packets int) {
	if s.packetIndex.isErrored() {
		return
	}

	layout := s.cfg.Layout()
	pcmSrc := txPCMAdapter{s}
	midiSrc := txMIDIAdapter{s}

	for p := 0; p < packets; p++ {
		syt, carries := s.gen.NextSYT(cycle + uint32(p))

		var dataBlocks int
		switch {
		case s.skipRemain > 0:
			dataBlocks = 0
			s.skipRemain--
		case s.cfg.Mode == Blocking:
			if carries {
				dataBlocks = int(s.cfg.SFC.SytInterval())
			}
		default:
			dataBlocks = int(s.gen.NextDataBlocks())
		}

		idx := int(s.packetIndex.load())
		slot := s.buf.Slot(idx)

		hdr := cip.Header{
			SourceNodeID:     s.cfg.SourceNodeIDField,
			DataBlockQuads:   uint8(layout.DataBlockQuadlets),
			DataBlockCounter: s.dbc,
			FDF:              uint8(s.cfg.SFC),
			SYT:              syt,
		}

		n, err := cip.BuildPacket(slot.Buffer, hdr, dataBlocks, layout, pcmSrc, midiSrc)
		if err != nil {
			s.setErrored(engineerr.Wrap(engineerr.StreamingFault, err))
			return
		}

		if err := s.transport.QueueSlot(idx, n); err != nil {
			s.setErrored(engineerr.Wrap(engineerr.StreamingFault, err))
			return
		}

		s.dbc = byte(uint32(s.dbc) + uint32(dataBlocks))
		s.packetIndex.store((idx + 1) % packetbuf.QueueLength)

		if dataBlocks > 0 {
			frames := uint64(dataBlocks) * s.dualWireFrameFactor()
			if s.pcmDev.advance(frames, s.cfg.PCMPeriodFrames) && s.OnPeriodElapsed != nil {
				s.OnPeriodElapsed()
			}
		}

		s.markFirstCallback()
	}
}

// --- receive ------------------------------------------------------------

type rxPCMAdapter struct{ s *Stream }

func (a rxPCMAdapter) PutFrame(frame []int32) {
	if dev := a.s.pcmDev.get(); dev != nil {
		dev.PutFrame(frame)
	}
}

type rxMIDIAdapter struct{ s *Stream }

func (a rxMIDIAdapter) PutByte(port int, b byte) {
	if dev := a.s.midiDev.get(port); dev != nil {
		dev.PutByte(port, b)
	}
}

// dbcThreshold is DBC_THRESHOLD from spec §9 Open Questions: differences
// greater than this are treated as wraparound.
const dbcThreshold = 0x80

// sortEntry is one row of the receive-side reorder table (spec §4.4
// "Receive callback"): a snapshot of the packet bytes plus its dbc, kept
// independent of the originating slot since that slot is re-queued before
// a deferred entry is processed.
type sortEntry struct {
	dbc     uint8
	payload []byte
}

func dbcDiff(a, b uint8) int {
	d := int(a) - int(b)
	if d > dbcThreshold {
		d -= 256
	} else if d < -dbcThreshold {
		d += 256
	}
	return d
}

// ReceiveCycle is the receive packet-queue callback (spec §4.4 "Receive
// callback"). headers carries, for each packet deposited this callback,
// which ring slot it landed in and how many bytes are valid. Processing
// order is established by sorting table = remain ++ new entries with a
// wrap-aware dbc comparator, then consuming the earliest
// (len(remain)+packets-newRemain) of them; the trailing newRemain are
// copied into scratch for the next callback. Exactly len(headers) slots
// are re-queued afterward regardless of how many were processed, to keep
// the ring full.
func (s *Stream) ReceiveCycle(headers []RxSlotHeader) {
	if s.packetIndex.isErrored() {
		return
	}

	packets := len(headers)
	if packets == 0 {
		return
	}

	layout := s.cfg.Layout()
	pcmSink := rxPCMAdapter{s}
	midiSink := rxMIDIAdapter{s}

	table := make([]sortEntry, 0, len(s.remain)+packets)
	table = append(table, s.remain...)
	for _, h := range headers {
		slot := s.buf.Slot(h.SlotIndex)
		n := h.PayloadLen
		if n > len(slot.Buffer) {
			n = len(slot.Buffer)
		}
		hdr, err := cip.Decode(slot.Buffer[:8])
		if err != nil {
			if s.anomalyLimit.Allow("malformed-header") {
				s.log.Warnf("dropping packet with malformed CIP header: %v", err)
			}
			continue
		}
		payload := make([]byte, n)
		copy(payload, slot.Buffer[:n])
		table = append(table, sortEntry{dbc: hdr.DataBlockCounter, payload: payload})
	}

	sort.SliceStable(table, func(i, j int) bool {
		return dbcDiff(table[i].dbc, table[j].dbc) < 0
	})

	newRemain := packets / 4
	processCount := len(table) - newRemain
	if processCount < 0 {
		processCount = 0
	}
	if processCount > len(table) {
		processCount = len(table)
	}

	for _, entry := range table[:processCount] {
		hdr, dataBlocks, err := cip.ParsePacket(entry.payload, layout, pcmSink, midiSink)
		if err != nil {
			if s.anomalyLimit.Allow("parse-error") {
				s.log.Warnf("dropping unparseable packet: %v", err)
			}
			continue
		}
		if dataBlocks > 0 {
			frames := uint64(dataBlocks) * s.dualWireFrameFactor()
			if s.pcmDev.advance(frames, s.cfg.PCMPeriodFrames) && s.OnPeriodElapsed != nil {
				s.OnPeriodElapsed()
			}
			if s.cfg.SyncRole == SyncMaster && s.cfg.SyncSlave != nil && hdr.SYT != 0xffff {
				s.cfg.SyncSlave.driveFromMaster(hdr.SYT, s.gen.TransferDelay())
			}
		}
	}

	if processCount < len(table) {
		s.remain = append([]sortEntry(nil), table[processCount:]...)
	} else {
		s.remain = nil
	}

	for _, h := range headers {
		if err := s.transport.QueueSlot(h.SlotIndex, s.buf.SlotSize()); err != nil {
			s.setErrored(engineerr.Wrap(engineerr.StreamingFault, err))
			return
		}
	}

	s.markFirstCallback()
}
