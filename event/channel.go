package event

import (
	"sync"

	"github.com/vothanachyes/telegram-user-tracking-sub004/telemetry"
)

// defaultChannelBuffer is used when Channel is called with a non-positive buffer.
// Subscribers that can't keep up will have events dropped (non-blocking send).
const defaultChannelBuffer = 64

// channelSubscriber forwards events into a buffered channel
type channelSubscriber struct {
	mu     sync.Mutex
	ch     chan Event
	closed bool
}

func (c *channelSubscriber) Handle(e Event) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}

	// Non-blocking send - drop if buffer full
	select {
	case c.ch <- e:
	default:
		telemetry.BusChannelDropsTotal.Inc()
	}
	return nil
}

// close closes the channel if not already closed
func (c *channelSubscriber) close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.closed {
		c.closed = true
		close(c.ch)
	}
}

// Channel subscribes a buffered channel to kind and returns it with a cancel
// function. If the reader cannot keep up, events are dropped. The channel is
// closed by cancel or Clear; cancel is idempotent.
func (b *Bus) Channel(kind Kind, buffer int) (<-chan Event, func()) {
	if buffer <= 0 {
		buffer = defaultChannelBuffer
	}

	sub := &channelSubscriber{ch: make(chan Event, buffer)}
	cancel := b.subscribe(kind, sub, sub.close)
	return sub.ch, cancel
}
