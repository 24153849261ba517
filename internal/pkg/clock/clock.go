package clock

import (
	"sync"
	"time"
)

// Clock is the time source of every timestamp written to the offer store.
type Clock interface {
	Now() time.Time
}

// Precision matches the timestamp resolution of both store drivers, so a
// value read back compares equal to the value written.
const Precision = time.Microsecond

type RealClock struct{}

func NewRealClock() Clock {
	return RealClock{}
}

func (RealClock) Now() time.Time {
	return time.Now().UTC().Truncate(Precision)
}

// MockClock is a settable clock for tests. With a non-zero step every Now
// call advances it, so consecutive timestamps are strictly ordered.
type MockClock struct {
	mu   sync.Mutex
	now  time.Time
	step time.Duration
}

func NewMockClock(t time.Time) *MockClock {
	return &MockClock{now: t}
}

func NewSteppingClock(t time.Time, step time.Duration) *MockClock {
	return &MockClock{now: t, step: step}
}

func (c *MockClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.now
	c.now = c.now.Add(c.step)
	return now
}

func (c *MockClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

func (c *MockClock) Add(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}
