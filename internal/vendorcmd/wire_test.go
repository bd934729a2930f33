package vendorcmd

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMessageEncodeDecodeRoundTrip(t *testing.T) {
	msg := Message{
		Header: Header{Version: ProtocolVersion, Sequence: 7, Category: 2, Command: 9, Retval: RetvalOK},
		Params: []uint32{1, 2, 0xdeadbeef},
	}
	wire := msg.Encode()
	got, err := Decode(wire)
	require.NoError(t, err)
	assert.Equal(t, msg.Sequence, got.Sequence)
	assert.Equal(t, msg.Category, got.Category)
	assert.Equal(t, msg.Command, got.Command)
	assert.Equal(t, msg.Retval, got.Retval)
	assert.Equal(t, msg.Params, got.Params)
	assert.Equal(t, uint32(len(wire)), got.Length)
}

func TestDecodeRejectsShortMessage(t *testing.T) {
	_, err := Decode(make([]byte, HeaderBytes-1))
	assert.Error(t, err)
}

func TestDecodeRejectsMisalignedParams(t *testing.T) {
	buf := make([]byte, HeaderBytes+3)
	_, err := Decode(buf)
	assert.Error(t, err)
}
