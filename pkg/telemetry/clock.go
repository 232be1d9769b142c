package telemetry

import (
	"sync"
	"time"
)

// Clock provides the current time. Tests inject a TestClock.
type Clock interface {
	Now() time.Time
}

// RealClock reads the system clock.
type RealClock struct{}

func (RealClock) Now() time.Time {
	// Strip the monotonic reading so differences match wall time across
	// system sleep.
	return time.Now().Round(0)
}

// TestClock is a manually advanced clock.
type TestClock struct {
	mu          sync.Mutex
	CurrentTime time.Time
}

func (c *TestClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.CurrentTime
}

// Advance moves the clock forward by d.
func (c *TestClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.CurrentTime = c.CurrentTime.Add(d)
}
