package director

// Clock is the queue's logical clock. Every queue insertion is stamped
// with a strictly increasing sequence number, so entries sharing a ready
// tick are totally ordered by arrival and replay produces identical order.
//
// Clock is not safe for concurrent use; State is owned by one host.
type Clock struct {
	seq int64
}

// NewClock creates a new clock starting at 0.
func NewClock() *Clock {
	return &Clock{}
}

// NewClockAt creates a clock at a specific sequence number.
// Used on restore to resume from the snapshot's position.
func NewClockAt(start int64) *Clock {
	return &Clock{seq: start}
}

// Next returns the next sequence number and increments the clock.
func (c *Clock) Next() int64 {
	c.seq++
	return c.seq
}

// Current returns the current sequence number without incrementing.
func (c *Clock) Current() int64 {
	return c.seq
}
