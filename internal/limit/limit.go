// Package limit provides an atomic, give/take resource counter, adapted
// from biscuit's Sysatomic_t (biscuit/src/limits/limits.go) where it
// bounds system-wide resources like process counts and socket buffers.
// Here it bounds the NUMA page map's physical page pool: one simulated
// system, across all of its domains, cannot allocate more physical pages
// than it was configured with, which surfaces address-translation exhaustion instead of letting
// the allocation counter run forever.
package limit

import "sync/atomic"

// Counter tracks a remaining budget that can be taken from and given
// back to. The zero value has a budget of zero; use New to set a cap.
type Counter struct {
	remaining int64
}

// New returns a Counter with the given budget. A negative or zero cap
// means unbounded (Take always succeeds).
func New(cap int64) *Counter {
	if cap <= 0 {
		return &Counter{remaining: -1}
	}
	return &Counter{remaining: cap}
}

// Take decrements the budget by one and reports whether it succeeded.
// An unbounded Counter always succeeds.
func (c *Counter) Take() bool {
	return c.Taken(1)
}

// Taken decrements the budget by n and reports whether it succeeded,
// restoring the budget on failure.
func (c *Counter) Taken(n uint) bool {
	if atomic.LoadInt64(&c.remaining) < 0 {
		return true
	}
	delta := int64(n)
	g := atomic.AddInt64(&c.remaining, -delta)
	if g >= 0 {
		return true
	}
	atomic.AddInt64(&c.remaining, delta)
	return false
}

// Give returns one unit to the budget.
func (c *Counter) Give() {
	c.Given(1)
}

// Given returns n units to the budget.
func (c *Counter) Given(n uint) {
	if atomic.LoadInt64(&c.remaining) < 0 {
		return
	}
	atomic.AddInt64(&c.remaining, int64(n))
}

// Remaining reports the current remaining budget, or -1 if unbounded.
func (c *Counter) Remaining() int64 {
	return atomic.LoadInt64(&c.remaining)
}
