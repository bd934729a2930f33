// Package busreset turns a udev "firewire" subsystem hotplug event for
// the engine's unit directory into the bus-reset-invalidation signal
// spec §4.5/§5 describes: re-validate the CMP reservation via Update(),
// and on failure abort the PCM device and stop the stream. This is the
// direct analogue of the kernel's bus-generation-change notification
// (SPEC_FULL.md §B).
package busreset

import (
	"context"

	"github.com/jochenvg/go-udev"

	"github.com/amdtp/engine/internal/enginelog"
)

// Handler is invoked once per detected bus reset for the watched unit.
type Handler func(ctx context.Context)

// Watcher subscribes to udev "firewire" subsystem add/remove/change
// events for a single device path and invokes Handler on any event that
// touches it.
type Watcher struct {
	unitSyspath string
	handler     Handler
	cancel      context.CancelFunc
}

// New builds a Watcher for the given FireWire unit sysfs path (e.g.
// "/sys/bus/firewire/devices/fw0").
func New(unitSyspath string, handler Handler) *Watcher {
	return &Watcher{unitSyspath: unitSyspath, handler: handler}
}

// Run subscribes and blocks, delivering events to Handler, until ctx is
// canceled or Stop is called. It is meant to be run in its own goroutine
// from the control domain — it never touches the callback domain
// directly.
func (w *Watcher) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	w.cancel = cancel
	defer cancel()

	u := udev.Udev{}
	mon := u.NewMonitorFromNetlink("udev")
	if err := mon.FilterAddMatchSubsystem("firewire"); err != nil {
		return err
	}

	deviceCh, errCh, err := mon.DeviceChan(ctx)
	if err != nil {
		return err
	}

	log := enginelog.Base.With("component", "busreset")
	for {
		select {
		case <-ctx.Done():
			return nil
		case err := <-errCh:
			if err != nil {
				log.Warnf("udev monitor error: %v", err)
			}
		case dev, ok := <-deviceCh:
			if !ok {
				return nil
			}
			if dev.Syspath() != w.unitSyspath {
				continue
			}
			log.Infof("bus reset observed on %s (action=%s)", dev.Syspath(), dev.Action())
			w.handler(ctx)
		}
	}
}

// Stop ends a running Run call.
func (w *Watcher) Stop() {
	if w.cancel != nil {
		w.cancel()
	}
}
