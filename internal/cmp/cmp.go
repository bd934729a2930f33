// Package cmp implements the Connection Management Procedure client glue
// described in spec §4.5: reserving bandwidth and a bus channel around a
// stream, and detecting bus-reset invalidation of that reservation.
package cmp

import (
	"context"
	"fmt"
	"sync"

	"github.com/amdtp/engine/internal/engineerr"
)

// Direction mirrors stream.Direction without importing it, so this
// package has no dependency on the stream core (spec §4.5 is glue around
// the stream, not inside it).
type Direction int

const (
	Input Direction = iota
	Output
)

// Bus is the minimal bus-level operation set a CMP client needs: standard
// IEC 61883-1 oPCR/iPCR reservation plus a way to notice the reservation
// was dropped. A real implementation talks to the 1394 bus; tests use a
// fake.
type Bus interface {
	// Reserve negotiates a channel and speed for the given plug and
	// direction, honoring maxPayload.
	Reserve(ctx context.Context, plug int, dir Direction, maxPayload int) (channel int, speed int, err error)
	// Release tears down a previously reserved channel.
	Release(ctx context.Context, plug int, dir Direction, channel int) error
	// StillValid reports whether a previously reserved channel survived
	// the most recent bus reset.
	StillValid(ctx context.Context, plug int, dir Direction, channel int) bool
}

// Client is one stream's CMP connection: reserve/establish/break/update
// (spec §4.5).
type Client struct {
	bus       Bus
	plug      int
	direction Direction

	mu      sync.Mutex
	channel int
	speed   int
	valid   bool
}

// Init records intent: which plug and direction this client will
// reserve for. It does not touch the bus.
func Init(bus Bus, dir Direction, plug int) *Client {
	return &Client{bus: bus, plug: plug, direction: dir}
}

// Establish negotiates an isochronous channel and speed with the device
// and the bus, honoring maxPayload. The stream core calls this before
// transport.Start (spec §4.5).
func (c *Client) Establish(ctx context.Context, maxPayload int) (channel, speed int, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	ch, sp, err := c.bus.Reserve(ctx, c.plug, c.direction, maxPayload)
	if err != nil {
		return 0, 0, engineerr.Wrap(engineerr.ResourceExhaustion, fmt.Errorf("cmp: establish: %w", err))
	}
	c.channel, c.speed, c.valid = ch, sp, true
	return ch, sp, nil
}

// Break releases the channel and bandwidth. The stream core calls this
// after transport.Stop (spec §4.5).
func (c *Client) Break(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.valid {
		return nil
	}
	err := c.bus.Release(ctx, c.plug, c.direction, c.channel)
	c.valid = false
	if err != nil {
		return fmt.Errorf("cmp: break: %w", err)
	}
	return nil
}

// Update re-validates the reservation after a bus reset; it fails if the
// reservation was lost (spec §4.5, §7 "Bus reset invalidation").
func (c *Client) Update(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.valid {
		return engineerr.New(engineerr.BusResetInvalidation, "cmp: no reservation to validate")
	}
	if !c.bus.StillValid(ctx, c.plug, c.direction, c.channel) {
		c.valid = false
		return engineerr.New(engineerr.BusResetInvalidation, "cmp: reservation lost across bus reset")
	}
	return nil
}

// Channel and Speed return the currently-established values, valid only
// while Established.
func (c *Client) Channel() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.channel
}

func (c *Client) Speed() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.speed
}
