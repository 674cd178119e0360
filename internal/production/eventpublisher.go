package production

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/comalice/hfsm"
)

// ErrPublisherClosed is returned by a publisher after Close.
var ErrPublisherClosed = errors.New("publisher closed")

// Transition is one hop of a machine, as published to subscribers.
type Transition[ID comparable] struct {
	Machine string
	From    ID
	To      ID
	At      time.Time
}

// ChannelPublisher forwards transitions to a Go channel.
// Non-blocking publish with drop on backpressure.
type ChannelPublisher[ID comparable] struct {
	ch      chan<- Transition[ID]
	mu      sync.RWMutex
	closed  bool
	dropped atomic.Uint64
	now     func() time.Time
}

// NewChannelPublisher creates a ChannelPublisher with the given output channel.
func NewChannelPublisher[ID comparable](ch chan<- Transition[ID]) *ChannelPublisher[ID] {
	return &ChannelPublisher[ID]{ch: ch, now: time.Now}
}

// Publish sends t without blocking. A full channel drops t; a cancelled
// context or a closed publisher is reported.
func (p *ChannelPublisher[ID]) Publish(ctx context.Context, t Transition[ID]) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return ErrPublisherClosed
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	select {
	case p.ch <- t:
	default:
		p.dropped.Add(1)
	}
	return nil
}

// Subscriber returns a transition callback for a machine named name. Pass it to
// Machine.OnTransition.
func (p *ChannelPublisher[ID]) Subscriber(ctx context.Context, name string) func(from, to ID) {
	return func(from, to ID) {
		_ = p.Publish(ctx, Transition[ID]{Machine: name, From: from, To: to, At: p.now()})
	}
}

// Attach subscribes p to root and every nested machine below it. Published
// transitions carry the machine's path from root.
func (p *ChannelPublisher[ID]) Attach(ctx context.Context, root *hfsm.Machine[ID]) {
	walk(root, root.Name(), func(m *hfsm.Machine[ID], path string) {
		m.OnTransition(p.Subscriber(ctx, path))
	})
}

// Dropped returns the number of transitions dropped on backpressure.
func (p *ChannelPublisher[ID]) Dropped() uint64 {
	return p.dropped.Load()
}

// Close closes the output channel. Later publishes fail with
// ErrPublisherClosed.
func (p *ChannelPublisher[ID]) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return ErrPublisherClosed
	}
	p.closed = true
	close(p.ch)
	return nil
}
