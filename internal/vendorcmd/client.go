package vendorcmd

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/amdtp/engine/internal/engineerr"
)

const (
	// MaxTries and TryTimeout and RetryDelay are the fixed retry
	// parameters from spec §4.6/§6.
	MaxTries   = 3
	TryTimeout = 125 * time.Millisecond
	RetryDelay = 5 * time.Millisecond
)

// Bus is the single operation a Client needs from the underlying
// transport: write a request to CommandAddress. Responses arrive
// out-of-band via HandleIncomingWrite (spec §4.6 "writes it to the
// command address, and waits for a response to arrive at the response
// address via an incoming write callback").
type Bus interface {
	WriteCommand(ctx context.Context, data []byte) error
}

type pending struct {
	matchMask []byte
	matchVal  []byte
	header    Header // expected sequence/category/command for completion cross-check
	respCh    chan Message
	busReset  chan struct{}
}

// Client sequences requests to a single device, matching responses by a
// per-request byte mask (spec §4.6 "Matching").
type Client struct {
	bus Bus
	seq atomic.Uint32

	mu      sync.Mutex
	pending map[uint32]*pending
}

func New(bus Bus) *Client {
	return &Client{bus: bus, pending: make(map[uint32]*pending)}
}

// HandleIncomingWrite is called by the owning unit-address glue (out of
// scope for this package) when a write lands in the response region. It
// completes the first pending transaction whose match mask agrees.
func (c *Client) HandleIncomingWrite(data []byte) {
	msg, err := Decode(data)
	if err != nil {
		return
	}

	c.mu.Lock()
	p, ok := c.pending[msg.Sequence]
	c.mu.Unlock()
	if !ok {
		return
	}

	for i, want := range p.matchVal {
		if p.matchMask[i] == 0 {
			continue
		}
		if i >= len(data) || data[i] != want {
			return
		}
	}
	if msg.Sequence != p.header.Sequence || msg.Category != p.header.Category ||
		msg.Command != p.header.Command || msg.Retval != RetvalOK {
		return
	}

	select {
	case p.respCh <- msg:
	default:
	}
}

// NotifyBusReset nudges every pending transaction so its waiter retries
// immediately instead of waiting out its current 125ms try (spec §4.6
// "Retries... On bus-reset the pending transaction is nudged to a
// 'bus_reset' state").
func (c *Client) NotifyBusReset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, p := range c.pending {
		select {
		case p.busReset <- struct{}{}:
		default:
		}
	}
}

// Send builds a request for category/command/params, sends it, and
// returns the matched response parameters. It makes up to MaxTries tries
// in total with RetryDelay spacing, each try bounded by TryTimeout, and
// returns a Timeout-kind error if no try matches (spec §4.6, §7
// "Timeout").
func (c *Client) Send(ctx context.Context, category, command uint32, params []uint32) ([]uint32, error) {
	seq := c.seq.Add(1)

	req := Message{
		Header: Header{Version: ProtocolVersion, Sequence: seq, Category: category, Command: command, Retval: 0},
		Params: params,
	}
	wire := req.Encode()

	matchMask := make([]byte, HeaderBytes)
	for i := 8; i < 20; i++ { // sequence, category, command quadlets
		matchMask[i] = 1
	}
	matchVal := make([]byte, HeaderBytes)
	copy(matchVal, wire[:HeaderBytes])

	p := &pending{
		matchMask: matchMask,
		matchVal:  matchVal,
		header:    Header{Sequence: seq, Category: category, Command: command, Retval: RetvalOK},
		respCh:    make(chan Message, 1),
		busReset:  make(chan struct{}, 1),
	}

	c.mu.Lock()
	c.pending[seq] = p
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		delete(c.pending, seq)
		c.mu.Unlock()
	}()

	var lastErr error
	for try := 0; try < MaxTries; try++ {
		if try > 0 {
			select {
			case <-time.After(RetryDelay):
			case <-ctx.Done():
				return nil, engineerr.Wrap(engineerr.Timeout, ctx.Err())
			}
		}

		if err := c.bus.WriteCommand(ctx, wire); err != nil {
			lastErr = err
			continue
		}

		select {
		case msg := <-p.respCh:
			return msg.Params, nil
		case <-p.busReset:
			// Retry immediately; the bus has just settled.
			continue
		case <-time.After(TryTimeout):
			lastErr = fmt.Errorf("try %d: no matching response within %s", try+1, TryTimeout)
		case <-ctx.Done():
			return nil, engineerr.Wrap(engineerr.Timeout, ctx.Err())
		}
	}

	return nil, engineerr.New(engineerr.Timeout, "vendorcmd: sequence %d: %v", seq, lastErr)
}
