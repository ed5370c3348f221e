package sequencer

import "sync/atomic"

// eventCursor hands out event offsets to workers.
//
// Each call to claim returns a distinct offset in increasing order, so the
// range [0, count) is covered exactly once no matter how many workers pull
// from it. Once stop is called, claim reports exhaustion; events that were
// already claimed are unaffected.
//
// Thread-safety: safe for concurrent use (atomic operations).
type eventCursor struct {
	next    atomic.Uint64
	count   uint64
	stopped atomic.Bool
}

func newEventCursor(count uint64) *eventCursor {
	return &eventCursor{count: count}
}

// claim returns the next unclaimed offset, or false when the range is
// exhausted or the cursor was stopped.
func (c *eventCursor) claim() (uint64, bool) {
	if c.stopped.Load() {
		return 0, false
	}
	off := c.next.Add(1) - 1
	if off >= c.count {
		return 0, false
	}
	return off, true
}

// stop prevents further claims.
func (c *eventCursor) stop() {
	c.stopped.Store(true)
}

// isStopped reports whether stop was called.
func (c *eventCursor) isStopped() bool {
	return c.stopped.Load()
}
