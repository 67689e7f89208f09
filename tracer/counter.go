package tracer

import "sync"

// StepCounter accumulates the number of synthesized steps. A dry run
// without a tracer advances it exactly as a recording run would, so
// Drain after each pass yields comparable counts.
// A nil *StepCounter ignores additions.
type StepCounter struct {
	mu sync.Mutex
	n  uint64
}

// Add advances the counter by n.
func (c *StepCounter) Add(n uint64) {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.n += n
	c.mu.Unlock()
}

// Drain returns the count and resets it to zero.
func (c *StepCounter) Drain() uint64 {
	if c == nil {
		return 0
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	n := c.n
	c.n = 0
	return n
}

// Peek returns the count without resetting it.
func (c *StepCounter) Peek() uint64 {
	if c == nil {
		return 0
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.n
}
