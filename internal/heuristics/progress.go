package heuristics

import "sync"

// counter serializes progress callbacks so done is reported monotonically
// even when fetch workers finish concurrently.
type counter struct {
	mu    sync.Mutex
	phase string
	done  int
	total int
	fn    ProgressFunc
}

func newCounter(phase string, total int, fn ProgressFunc) *counter {
	return &counter{phase: phase, total: total, fn: fn}
}

func (c *counter) inc() {
	if c.fn == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.done++
	c.fn(c.phase, c.done, c.total)
}
