// Copyright (c) 2025 The privchat authors
// SPDX-License-Identifier: AGPL-3.0-or-later

package events

import "sync"

// =============================================================================
// CHANNEL
// =============================================================================

// Channel is an unbounded FIFO of events with a coalescing ready
// signal. Post is safe from any goroutine; Drain must only be called
// from the presentation loop.
type Channel struct {
	mu    sync.Mutex
	queue []Event
	ready chan struct{}
}

// NewChannel creates an empty event channel.
func NewChannel() *Channel {
	return &Channel{
		ready: make(chan struct{}, 1),
	}
}

// Post appends an event and signals readiness. Never blocks: the queue
// is unbounded and the ready signal coalesces.
func (c *Channel) Post(ev Event) {
	c.mu.Lock()
	c.queue = append(c.queue, ev)
	c.mu.Unlock()

	select {
	case c.ready <- struct{}{}:
	default:
	}
}

// Drain returns all queued events in post order and empties the queue.
func (c *Channel) Drain() []Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	q := c.queue
	c.queue = nil
	return q
}

// Ready is signalled when at least one event has been posted since the
// last receive. One receive may cover many events; always Drain after.
func (c *Channel) Ready() <-chan struct{} {
	return c.ready
}

// Len reports the number of queued events.
func (c *Channel) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.queue)
}
