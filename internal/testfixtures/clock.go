package testfixtures

import (
	"sync"
	"time"

	"github.com/example/academy-timetable/internal/timeclock"
)

// Clock is a settable time source for services under test.
type Clock struct {
	mu  sync.Mutex
	now time.Time
}

// NewClock starts the clock at start, or at ReferenceTime when start is zero.
func NewClock(start time.Time) *Clock {
	if start.IsZero() {
		start = ReferenceTime()
	}
	return &Clock{now: start}
}

// Now returns the clock's current instant.
func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// NowFunc returns Now for injection as a service's now function.
func (c *Clock) NowFunc() func() time.Time {
	if c == nil {
		return time.Now
	}
	return c.Now
}

// Advance moves the clock forward by d and returns the new instant.
func (c *Clock) Advance(d time.Duration) time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
	return c.now
}

// SetWeekClock moves the clock to the given weekday and "HH:MM" wall clock of
// the current Sunday-based week, keeping the clock's location.
func (c *Clock) SetWeekClock(weekday time.Weekday, clock string) (time.Time, error) {
	minute, err := timeclock.ParseClock(clock)
	if err != nil {
		return time.Time{}, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	y, m, d := c.now.Date()
	day := d + int(weekday) - int(c.now.Weekday())
	c.now = time.Date(y, m, day, minute/timeclock.MinutesPerHour, minute%timeclock.MinutesPerHour, 0, 0, c.now.Location())
	return c.now, nil
}
