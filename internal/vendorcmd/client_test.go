package vendorcmd

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type respondingBus struct {
	client *Client
	delay  time.Duration
	drop   bool
}

func (b *respondingBus) WriteCommand(ctx context.Context, data []byte) error {
	if b.drop {
		b.drop = false // drop exactly once, then succeed on retry
		return nil
	}
	req, err := Decode(data)
	if err != nil {
		return err
	}
	go func() {
		if b.delay > 0 {
			time.Sleep(b.delay)
		}
		resp := Message{
			Header: Header{Version: ProtocolVersion, Sequence: req.Sequence, Category: req.Category, Command: req.Command, Retval: RetvalOK},
			Params: []uint32{0x1234},
		}
		b.client.HandleIncomingWrite(resp.Encode())
	}()
	return nil
}

func TestSendMatchesResponse(t *testing.T) {
	bus := &respondingBus{}
	client := New(bus)
	bus.client = client

	params, err := client.Send(context.Background(), 1, 2, []uint32{9})
	require.NoError(t, err)
	assert.Equal(t, []uint32{0x1234}, params)
}

func TestSendRetriesAfterDroppedWrite(t *testing.T) {
	bus := &respondingBus{drop: true}
	client := New(bus)
	bus.client = client

	params, err := client.Send(context.Background(), 1, 2, nil)
	require.NoError(t, err)
	assert.Equal(t, []uint32{0x1234}, params)
}

type silentBus struct{}

func (silentBus) WriteCommand(ctx context.Context, data []byte) error { return nil }

func TestSendTimesOutWithNoResponse(t *testing.T) {
	client := New(silentBus{})
	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()
	_, err := client.Send(ctx, 1, 1, nil)
	assert.Error(t, err)
}

func TestHandleIncomingWriteIgnoresUnknownSequence(t *testing.T) {
	client := New(silentBus{})
	msg := Message{Header: Header{Sequence: 999, Retval: RetvalOK}}
	client.HandleIncomingWrite(msg.Encode()) // must not panic
}
