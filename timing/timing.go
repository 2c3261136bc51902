// Package timing supplies the elapsed-time source used to enforce planning
// budgets. The clock is injected so tests can drive it by hand.
package timing

import (
	"math"
	"sync"
	"time"
)

type Clock interface {
	Now() time.Time
}

type wallClock struct{}

func (wallClock) Now() time.Time {
	return time.Now()
}

// WallClock returns the system clock.
func WallClock() Clock {
	return wallClock{}
}

// FakeClock only moves when told to. If Step is non-zero every call to Now
// advances the clock by Step after reading it, which models work that takes
// a fixed amount of time per poll.
type FakeClock struct {
	mu   sync.Mutex
	now  time.Time
	Step time.Duration
}

func NewFakeClock(start time.Time) *FakeClock {
	return &FakeClock{now: start}
}

func (c *FakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now
	c.now = c.now.Add(c.Step)
	return now
}

func (c *FakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.now = c.now.Add(d)
}

// Stopwatch measures elapsed time since its last restart.
type Stopwatch struct {
	clock Clock
	start time.Time
}

// NewStopwatch returns a stopwatch already started.
func NewStopwatch(clock Clock) *Stopwatch {
	return &Stopwatch{clock: clock, start: clock.Now()}
}

func (s *Stopwatch) Restart() {
	s.start = s.clock.Now()
}

func (s *Stopwatch) Elapsed() time.Duration {
	return s.clock.Now().Sub(s.start)
}

func (s *Stopwatch) ElapsedSeconds() float64 {
	return s.Elapsed().Seconds()
}

// Seconds converts a fractional number of seconds to a Duration. Budgets too
// large for a Duration, +Inf included, saturate at the largest Duration;
// negative and NaN inputs give 0.
func Seconds(seconds float64) time.Duration {
	switch {
	case math.IsNaN(seconds) || seconds <= 0:
		return 0
	case seconds*float64(time.Second) >= math.MaxInt64:
		return math.MaxInt64
	}
	return time.Duration(seconds * float64(time.Second))
}

// Sleep blocks for a fractional number of seconds.
func Sleep(seconds float64) {
	if seconds <= 0 {
		return
	}
	time.Sleep(Seconds(seconds))
}
