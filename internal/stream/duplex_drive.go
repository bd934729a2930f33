package stream

import (
	"github.com/amdtp/engine/internal/cip"
	"github.com/amdtp/engine/internal/engineerr"
	"github.com/amdtp/engine/internal/packetbuf"
)

// driveFromMaster builds and queues exactly one transmit packet on a
// slave stream, driven by a SYT value extracted from the master's
// receive side plus its own transfer_delay (spec §4.4 "Master-drives-
// slave"). The slave's own transport callback is stubbed — its pacing
// comes entirely from here — so this bypasses the normal NextSYT/
// NextDataBlocks sequencing and simply re-encodes the master's timing.
func (s *Stream) driveFromMaster(masterSYT uint16, extraDelay uint32) {
	if s.packetIndex.isErrored() || s.state.load() != Running {
		return
	}

	driven := (uint32(masterSYT) + extraDelay) & 0xffff

	layout := s.cfg.Layout()
	dataBlocks := int(s.cfg.SFC.SytInterval())

	idx := int(s.packetIndex.load())
	slot := s.buf.Slot(idx)

	hdr := cip.Header{
		SourceNodeID:     s.cfg.SourceNodeIDField,
		DataBlockQuads:   uint8(layout.DataBlockQuadlets),
		DataBlockCounter: s.dbc,
		FDF:              uint8(s.cfg.SFC),
		SYT:              uint16(driven),
	}

	n, err := cip.BuildPacket(slot.Buffer, hdr, dataBlocks, layout, txPCMAdapter{s}, txMIDIAdapter{s})
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

	frames := uint64(dataBlocks) * s.dualWireFrameFactor()
	if s.pcmDev.advance(frames, s.cfg.PCMPeriodFrames) && s.OnPeriodElapsed != nil {
		s.OnPeriodElapsed()
	}
	s.markFirstCallback()
}
