package engine

import "sync/atomic"

// Clock hands out command sequence numbers within one transaction.
//
// Every command the owner receives is stamped with the next seq. The seq
// appears in debug logs and names the command's savepoint, so it must be
// unique within the transaction.
//
// Thread-safety: Clock is safe for concurrent use (atomic operations),
// though only the owner goroutine calls Next.
type Clock struct {
	seq atomic.Int64
}

// NewClock creates a new clock starting at 0.
func NewClock() *Clock {
	return &Clock{}
}

// Next returns the next sequence number and increments the clock.
func (c *Clock) Next() int64 {
	return c.seq.Add(1)
}

// Current returns the current sequence number without incrementing.
func (c *Clock) Current() int64 {
	return c.seq.Load()
}
