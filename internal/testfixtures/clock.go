package testfixtures

import (
	"sync"
	"time"

	"github.com/example/room-booking/internal/scheduler"
)

// Clock is a manually driven time source. The zero value is not usable; call
// NewClock.
type Clock struct {
	mu  sync.Mutex
	now time.Time
}

// NewClock starts a clock at start, or at ReferenceTime when start is zero.
func NewClock(start time.Time) *Clock {
	if start.IsZero() {
		start = ReferenceTime()
	}
	return &Clock{now: start.UTC()}
}

func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// NowFunc returns Now for injection into services. A nil clock yields time.Now.
func (c *Clock) NowFunc() func() time.Time {
	if c == nil {
		return time.Now
	}
	return c.Now
}

func (c *Clock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t.UTC()
}

// Advance moves the clock forward by d and returns the new time.
func (c *Clock) Advance(d time.Duration) time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
	return c.now
}

// At moves the clock to the given wall time on a YYYY-MM-DD booking day.
func (c *Clock) At(date, clock string) time.Time {
	t := Date(date).Add(time.Duration(scheduler.MustParseClock(clock)) * time.Minute)
	c.Set(t)
	return t
}
