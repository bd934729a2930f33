// Package duplex implements the master/slave duplex coordinator of spec
// §4.7: it picks a timing master from the device clock source, wires the
// sync roles, and sequences start/stop and sample-rate changes across
// both directions of a stream pair.
package duplex

import (
	"context"
	"fmt"

	"github.com/amdtp/engine/internal/engineerr"
	"github.com/amdtp/engine/internal/sfc"
	"github.com/amdtp/engine/internal/stream"
)

// ClockSource reports whether the device is acting as the clock master
// or is slaved to (matching) the host's clock.
type ClockSource int

const (
	// HostMatch means the device follows the host's clock: the
	// receive stream is not forced to be timing master.
	HostMatch ClockSource = iota
	// DeviceMaster means the device is the clock master: the receive
	// stream drives SYT and the transmit stream is slaved to it.
	DeviceMaster
)

// RateSetter is the vendor command operation used to change the device's
// sample rate (spec §4.7 "It sets the sample rate via the vendor command
// layer").
type RateSetter interface {
	SetSampleRate(ctx context.Context, rate uint32) error
}

// ActivityProbe reports whether a stream currently carries PCM or MIDI
// traffic, used to decide whether it's safe to stop a stream across a
// rate change (spec §4.7 "Before changing the sample rate, the
// coordinator stops any running stream that is not currently carrying
// PCM").
type ActivityProbe interface {
	HasActivePCM(s *stream.Stream) bool
	HasActiveMIDI(s *stream.Stream) bool
}

// Coordinator owns a transmit/receive stream pair and sequences their
// start/stop and sample-rate changes (spec §4.7).
type Coordinator struct {
	Rx, Tx  *stream.Stream
	Rates   RateSetter
	Probe   ActivityProbe
	Clock   ClockSource
}

// Wire sets the sync roles on Rx and Tx config per the clock source:
// if the device is the clock master, Rx is SyncMaster with SyncSlave
// pointing at Tx, and Tx is SyncSlave (with no back-reference);
// otherwise both run standalone (host-match
// mode does not force a master/slave pairing). Must be called before
// either stream's SetParameters.
func (c *Coordinator) Wire(rx, tx stream.Config) (stream.Config, stream.Config) {
	if c.Clock == DeviceMaster {
		rx.SyncRole = stream.SyncMaster
		rx.SyncSlave = c.Tx
		tx.SyncRole = stream.SyncSlave
		tx.SyncSlave = nil
	} else {
		rx.SyncRole = stream.SyncStandalone
		tx.SyncRole = stream.SyncStandalone
	}
	return rx, tx
}

// master returns the stream acting as timing master for the current
// clock source, or nil if neither is forced.
func (c *Coordinator) master() *stream.Stream {
	if c.Clock == DeviceMaster {
		return c.Rx
	}
	return nil
}

// SetRate stops any stream that is idle (per Probe), sets the device
// sample rate, then restarts master first and the other stream after
// (spec §4.7). txTransport/rxTransport/maxPayload are used if a stop
// requires a subsequent restart.
func (c *Coordinator) SetRate(ctx context.Context, rate uint32, txTransport, rxTransport stream.Transport, maxPayload int) error {
	code, ok := sfc.FromRate(rate)
	_ = code
	if !ok {
		return engineerr.New(engineerr.InvalidArgument, "duplex: unsupported rate %d", rate)
	}

	stopped := make(map[*stream.Stream]bool)
	for _, s := range []*stream.Stream{c.Rx, c.Tx} {
		if s == nil || s.State() != stream.Running {
			continue
		}
		if c.Probe != nil && (c.Probe.HasActivePCM(s)) {
			continue
		}
		s.Stop()
		stopped[s] = true
	}

	if err := c.Rates.SetSampleRate(ctx, rate); err != nil {
		return fmt.Errorf("duplex: set sample rate: %w", err)
	}

	m := c.master()
	if m != nil && stopped[m] && m.State() == stream.Configured {
		if err := m.Start(pick(m, txTransport, rxTransport), maxPayload); err != nil {
			return fmt.Errorf("duplex: restart master: %w", err)
		}
	}
	for _, s := range []*stream.Stream{c.Rx, c.Tx} {
		if s == nil || s == m {
			continue
		}
		if stopped[s] && s.State() == stream.Configured {
			if err := s.Start(pick(s, txTransport, rxTransport), maxPayload); err != nil {
				return fmt.Errorf("duplex: restart stream: %w", err)
			}
		}
	}
	return nil
}

func pick(s *stream.Stream, tx, rx stream.Transport) stream.Transport {
	if s.Config().Direction == stream.Transmit {
		return tx
	}
	return rx
}

// StopAll reverses start order: stops the non-master stream first, then
// stops the master only when neither side still carries PCM or MIDI
// (spec §4.7 "Stopping reverses the order and only stops the master when
// no PCM or MIDI remains active on either side").
func (c *Coordinator) StopAll() {
	m := c.master()
	for _, s := range []*stream.Stream{c.Tx, c.Rx} {
		if s == nil || s == m {
			continue
		}
		if s.State() == stream.Running {
			s.Stop()
		}
	}
	if m == nil {
		return
	}
	if c.anyActive() {
		return
	}
	if m.State() == stream.Running {
		m.Stop()
	}
}

func (c *Coordinator) anyActive() bool {
	if c.Probe == nil {
		return false
	}
	for _, s := range []*stream.Stream{c.Rx, c.Tx} {
		if s == nil {
			continue
		}
		if c.Probe.HasActivePCM(s) || c.Probe.HasActiveMIDI(s) {
			return true
		}
	}
	return false
}
