package busreset

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestStopWithoutRunIsSafe checks the Stop-before-Run path a caller
// might hit if setup is aborted before the watcher ever starts running.
func TestStopWithoutRunIsSafe(t *testing.T) {
	called := false
	w := New("/sys/bus/firewire/devices/fw0", func(ctx context.Context) { called = true })
	assert.NotPanics(t, func() { w.Stop() })
	assert.False(t, called)
}

func TestNewRecordsSyspathWithoutFiringHandler(t *testing.T) {
	var gotCtx context.Context
	w := New("/sys/bus/firewire/devices/fw0", func(ctx context.Context) { gotCtx = ctx })
	assert.Equal(t, "/sys/bus/firewire/devices/fw0", w.unitSyspath)
	assert.Nil(t, gotCtx)
}
