package duplex

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/amdtp/engine/internal/cip"
	"github.com/amdtp/engine/internal/sfc"
	"github.com/amdtp/engine/internal/stream"
)

type fakeRateSetter struct {
	lastRate uint32
	err      error
}

func (f *fakeRateSetter) SetSampleRate(ctx context.Context, rate uint32) error {
	f.lastRate = rate
	return f.err
}

type alwaysIdleProbe struct{}

func (alwaysIdleProbe) HasActivePCM(s *stream.Stream) bool  { return false }
func (alwaysIdleProbe) HasActiveMIDI(s *stream.Stream) bool { return false }

func newConfiguredPair(t *testing.T, clock ClockSource) (*Coordinator, *stream.Stream, *stream.Stream) {
	rx := stream.New()
	tx := stream.New()

	rxCfg := stream.Config{
		Direction: stream.Receive, Mode: stream.NonBlocking, SFC: sfc.Code48000,
		PCMChannels: 2, MIDIPosition: -1, PCMPositions: stream.IdentityPCMPositions(2), Format: cip.FormatS32,
	}
	txCfg := rxCfg
	txCfg.Direction = stream.Transmit

	c := &Coordinator{Rx: rx, Tx: tx, Rates: &fakeRateSetter{}, Probe: alwaysIdleProbe{}, Clock: clock}
	wiredRx, wiredTx := c.Wire(rxCfg, txCfg)
	require.NoError(t, rx.SetParameters(wiredRx))
	require.NoError(t, tx.SetParameters(wiredTx))
	return c, rx, tx
}

func TestWireDeviceMasterSetsRoles(t *testing.T) {
	_, rx, tx := newConfiguredPair(t, DeviceMaster)
	assert.Equal(t, stream.SyncMaster, rx.Config().SyncRole)
	assert.Equal(t, stream.SyncSlave, tx.Config().SyncRole)
	assert.Same(t, tx, rx.Config().SyncSlave)
}

func TestWireHostMatchIsStandalone(t *testing.T) {
	_, rx, tx := newConfiguredPair(t, HostMatch)
	assert.Equal(t, stream.SyncStandalone, rx.Config().SyncRole)
	assert.Equal(t, stream.SyncStandalone, tx.Config().SyncRole)
}

func TestSetRateRejectsUnsupportedRate(t *testing.T) {
	c, _, _ := newConfiguredPair(t, HostMatch)
	err := c.SetRate(context.Background(), 12345, nil, nil, 0)
	assert.Error(t, err)
}

func TestSetRateInvokesRateSetter(t *testing.T) {
	c, _, _ := newConfiguredPair(t, HostMatch)
	rs := c.Rates.(*fakeRateSetter)
	require.NoError(t, c.SetRate(context.Background(), 96000, nil, nil, 0))
	assert.Equal(t, uint32(96000), rs.lastRate)
}
