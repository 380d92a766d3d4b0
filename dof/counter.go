package dof

import "sync/atomic"

// Counter is an append allocator for a fixed capacity list filled by many writers.
// Reserve hands out consecutive slots; reservations past the capacity fail and
// their writes must be discarded. The raw count keeps growing past the capacity so
// the overflow can be reported.
type Counter struct {
	n        atomic.Uint32
	capacity uint32
}

func NewCounter(capacity int) *Counter {
	return &Counter{capacity: uint32(capacity)}
}

func (c *Counter) Reset() {
	c.n.Store(0)
}

func (c *Counter) Reserve() (slot int, ok bool) {
	s := c.n.Add(1) - 1
	return int(s), s < c.capacity
}

func (c *Counter) Capacity() int {
	return int(c.capacity)
}

// Count is the number of reservations since the last reset, including failed ones.
func (c *Counter) Count() int {
	return int(c.n.Load())
}

// FinalizeCount is the number of valid slots.
func (c *Counter) FinalizeCount() int {
	return ClampCount(c.Count(), c.Capacity())
}

func (c *Counter) Dropped() int {
	return c.Count() - c.FinalizeCount()
}

func ClampCount(count, capacity int) int {
	if count > capacity {
		return capacity
	}
	return count
}
