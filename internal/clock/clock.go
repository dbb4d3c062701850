package clock

import (
	"sort"
	"sync"
	"time"
)

// Clock provides an abstraction for time operations to enable deterministic testing.
type Clock interface {
	// Now returns the current time.
	Now() time.Time

	// AfterFunc schedules f to run once d has elapsed.
	// The returned Timer can cancel the callback before it fires.
	AfterFunc(d time.Duration, f func()) Timer
}

// Timer is a cancellable scheduled callback.
type Timer interface {
	// Stop prevents the callback from firing. It reports whether the
	// call stopped the timer (false if it already fired or was stopped).
	Stop() bool
}

// RealClock implements Clock using the system time.
type RealClock struct{}

// Now returns the current system time.
func (c *RealClock) Now() time.Time {
	return time.Now()
}

// AfterFunc schedules f on the runtime timer.
func (c *RealClock) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// FakeClock implements Clock with a manually advanced time for testing.
// Callbacks scheduled with AfterFunc run synchronously inside Advance or
// Set once their deadline is reached.
type FakeClock struct {
	mu      sync.Mutex
	current time.Time
	timers  []*fakeTimer
}

// NewFakeClock creates a new FakeClock with the given time.
func NewFakeClock(t time.Time) *FakeClock {
	return &FakeClock{current: t}
}

// Now returns the fixed time.
func (c *FakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

// Set updates the fixed time and fires any timers that are now due.
func (c *FakeClock) Set(t time.Time) {
	c.mu.Lock()
	c.current = t
	due := c.takeDueLocked()
	c.mu.Unlock()
	runAll(due)
}

// Advance moves the fixed time forward by the given duration and fires
// any timers that are now due, in deadline order.
func (c *FakeClock) Advance(d time.Duration) {
	c.Set(c.Now().Add(d))
}

// AfterFunc registers f to run when the fake time reaches now+d.
func (c *FakeClock) AfterFunc(d time.Duration, f func()) Timer {
	c.mu.Lock()
	t := &fakeTimer{clock: c, deadline: c.current.Add(d), fn: f}
	c.timers = append(c.timers, t)
	due := c.takeDueLocked()
	c.mu.Unlock()
	runAll(due)
	return t
}

// Pending returns the number of timers that have neither fired nor been stopped.
func (c *FakeClock) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.timers)
}

func (c *FakeClock) takeDueLocked() []*fakeTimer {
	var due, rest []*fakeTimer
	for _, t := range c.timers {
		if !t.deadline.After(c.current) {
			due = append(due, t)
		} else {
			rest = append(rest, t)
		}
	}
	c.timers = rest
	sort.SliceStable(due, func(i, j int) bool {
		return due[i].deadline.Before(due[j].deadline)
	})
	return due
}

func (c *FakeClock) remove(t *fakeTimer) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i, other := range c.timers {
		if other == t {
			c.timers = append(c.timers[:i], c.timers[i+1:]...)
			return true
		}
	}
	return false
}

func runAll(timers []*fakeTimer) {
	for _, t := range timers {
		t.fn()
	}
}

type fakeTimer struct {
	clock    *FakeClock
	deadline time.Time
	fn       func()
}

func (t *fakeTimer) Stop() bool {
	return t.clock.remove(t)
}
