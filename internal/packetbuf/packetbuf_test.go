package packetbuf

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSizesSlots(t *testing.T) {
	buf, err := New(8, 3, 0)
	require.NoError(t, err)
	assert.Equal(t, 8+8*3*4, buf.SlotSize())
	for i := 0; i < QueueLength; i++ {
		s := buf.Slot(i)
		assert.Len(t, s.Buffer, buf.SlotSize())
		assert.Equal(t, i*buf.SlotSize(), s.Offset)
	}
}

func TestNewRejectsOversizeSlot(t *testing.T) {
	_, err := New(32, 32, 256)
	assert.Error(t, err)
}

func TestSlotsAreDistinctBackingMemory(t *testing.T) {
	buf, err := New(8, 2, 0)
	require.NoError(t, err)
	buf.Slot(0).Buffer[0] = 0xaa
	assert.NotEqual(t, byte(0xaa), buf.Slot(1).Buffer[0])
}
