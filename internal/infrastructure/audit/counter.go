// Package audit persists the append-only decision and execution trail.
package audit

import (
	"sync/atomic"

	"github.com/doeshing/cmdgate/internal/ports"
)

// Counter is an in-memory atomic sequence source. Seed it with the store's
// last known sequence number so numbers keep strictly increasing across
// restarts.
type Counter struct {
	last atomic.Uint64
}

// NewCounter builds a counter that continues after seed.
func NewCounter(seed uint64) *Counter {
	c := &Counter{}
	c.last.Store(seed)
	return c
}

// Next returns the next sequence number. Safe for concurrent use; numbers
// are never reused.
func (c *Counter) Next() uint64 {
	return c.last.Add(1)
}

var _ ports.SequenceSource = (*Counter)(nil)
