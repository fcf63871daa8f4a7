package testutil

import (
	"sync"
	"time"
)

// Clock is a manually advanced clock safe for concurrent use.
// Example:
//
//	clk := NewClock(time.Date(2024, time.November, 1, 9, 0, 0, 0, time.UTC))
//	eng := engine.New(func(o *engine.Options) { o.Clock = clk.Now })
//	clk.Advance(73 * time.Hour)
type Clock struct {
	mu  sync.Mutex
	now time.Time
}

// NewClock creates a clock frozen at t.
func NewClock(t time.Time) *Clock { return &Clock{now: t} }

// Now returns the current fake time.
func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance moves the clock forward by d.
func (c *Clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// Set moves the clock to t.
func (c *Clock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

// PeakSeason is a November date (wedding season).
func PeakSeason() time.Time { return time.Date(2024, time.November, 12, 9, 0, 0, 0, time.UTC) }

// NormalSeason is a March date (no seasonal adjustment).
func NormalSeason() time.Time { return time.Date(2024, time.March, 12, 9, 0, 0, 0, time.UTC) }
