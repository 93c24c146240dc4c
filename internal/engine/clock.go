package engine

import "sync/atomic"

// Sequencer hands out strictly increasing sequence numbers.
// Clock is the production implementation; tests may substitute a resettable
// one.
type Sequencer interface {
	Next() int64
	Current() int64
}

// Clock is the monotonic logical clock that orders a program's history.
//
// Every trigger and every selected event is stamped with a strictly
// increasing seq from this clock. Recorded sessions are ordered by seq,
// never by wall-clock time, so replay reproduces the same order.
//
// Clock is safe for concurrent use, although a program only calls Next from
// whichever goroutine is driving it.
type Clock struct {
	seq atomic.Int64
}

// NewClock creates a new clock starting at 0.
func NewClock() *Clock {
	return &Clock{}
}

// NewClockAt creates a new clock starting at a specific sequence number.
func NewClockAt(start int64) *Clock {
	c := &Clock{}
	c.seq.Store(start)
	return c
}

// Next returns the next sequence number and increments the clock.
func (c *Clock) Next() int64 {
	return c.seq.Add(1)
}

// Current returns the current sequence number without incrementing.
func (c *Clock) Current() int64 {
	return c.seq.Load()
}
