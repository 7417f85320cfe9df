// Package clock converts external frames into simulation hours and
// day-boundary notifications.
package clock

import (
	"fmt"
	"math"
)

// FramesPerStep is how many frames make up one clock step. Each step
// advances the clock by 24/ticsPerDay hours.
const FramesPerStep = 10

// DayListener receives a notification each time a simulated day passes.
type DayListener interface {
	OnDayPassed()
}

// DayFunc adapts a function to DayListener. Use a pointer so the
// subscription has an identity: Subscribe(&f) / Unsubscribe(&f).
type DayFunc func()

// OnDayPassed calls f.
func (f *DayFunc) OnDayPassed() { (*f)() }

// SpeedMode selects how many clock steps make up a day.
type SpeedMode int

const (
	SpeedSlow    SpeedMode = -1
	SpeedNormal  SpeedMode = 0
	SpeedFast    SpeedMode = 1
	SpeedFastest SpeedMode = 2
)

// TicsPerDay returns the number of clock steps per day for the mode.
// Unknown modes panic.
func (m SpeedMode) TicsPerDay() int {
	switch m {
	case SpeedSlow:
		return 48
	case SpeedNormal:
		return 24
	case SpeedFast:
		return 18
	case SpeedFastest:
		return 12
	}
	panic(fmt.Sprintf("clock: unknown speed mode %d", int(m)))
}

func (m SpeedMode) String() string {
	switch m {
	case SpeedSlow:
		return "slow"
	case SpeedNormal:
		return "normal"
	case SpeedFast:
		return "fast"
	case SpeedFastest:
		return "fastest"
	}
	panic(fmt.Sprintf("clock: unknown speed mode %d", int(m)))
}

// ParseSpeed validates a mode coming from outside the process.
func ParseSpeed(mode int) (SpeedMode, error) {
	m := SpeedMode(mode)
	switch m {
	case SpeedSlow, SpeedNormal, SpeedFast, SpeedFastest:
		return m, nil
	}
	return 0, fmt.Errorf("unknown speed mode %d (want -1..2)", mode)
}

// Clock accumulates frames and notifies subscribers on each day
// boundary. It is not safe for concurrent use.
type Clock struct {
	tics       int
	ticsPerDay int
	speed      SpeedMode
	hours      float64
	paused     bool
	notifying  bool
	listeners  []DayListener
}

// New returns a running clock at normal speed.
func New() *Clock {
	return &Clock{speed: SpeedNormal, ticsPerDay: SpeedNormal.TicsPerDay()}
}

// Tick advances the clock by one frame. It does nothing while paused.
// Calling Tick from a day listener panics.
func (c *Clock) Tick() {
	if c.notifying {
		panic("clock: Tick called during day notification")
	}
	if c.paused {
		return
	}
	c.tics++
	if c.tics%FramesPerStep == 0 {
		c.hours += 24 / float64(c.ticsPerDay)
	}
	// >= because a speed change may shrink the day mid-count.
	if c.tics >= c.ticsPerDay*FramesPerStep {
		c.tics = 0
		c.notify()
	}
}

func (c *Clock) notify() {
	snapshot := make([]DayListener, len(c.listeners))
	copy(snapshot, c.listeners)

	c.notifying = true
	defer func() { c.notifying = false }()
	for _, l := range snapshot {
		l.OnDayPassed()
	}
}

// SetSpeed changes the day length. The frame accumulator is kept.
func (c *Clock) SetSpeed(mode SpeedMode) {
	c.ticsPerDay = mode.TicsPerDay()
	c.speed = mode
}

// Speed returns the current speed mode.
func (c *Clock) Speed() SpeedMode { return c.speed }

// Subscribe adds a listener. Listeners added during a notification are
// first notified on the next day.
func (c *Clock) Subscribe(l DayListener) {
	c.listeners = append(c.listeners, l)
}

// Unsubscribe removes the first subscription identical to l.
func (c *Clock) Unsubscribe(l DayListener) {
	for i, s := range c.listeners {
		if s == l {
			c.listeners = append(c.listeners[:i:i], c.listeners[i+1:]...)
			return
		}
	}
}

// Listeners returns the number of current subscriptions.
func (c *Clock) Listeners() int { return len(c.listeners) }

// Pause stops Tick from advancing the clock.
func (c *Clock) Pause() { c.paused = true }

// Resume undoes Pause.
func (c *Clock) Resume() { c.paused = false }

// Paused reports whether the clock is paused.
func (c *Clock) Paused() bool { return c.paused }

// Hours returns hours since start.
func (c *Clock) Hours() float64 { return c.hours }

// DaysSinceStart returns whole days since start.
func (c *Clock) DaysSinceStart() int {
	// Hours accumulate in fractions of 24/18; absorb float drift.
	return int(math.Floor(c.hours/24 + 1e-9))
}

// WeeksSinceStart returns whole weeks since start.
func (c *Clock) WeeksSinceStart() int { return c.DaysSinceStart() / 7 }

// SimTime formats the clock position, e.g. "Week 2 Day 3, 14:00".
func (c *Clock) SimTime() string {
	days := c.DaysSinceStart()
	hour := int(c.hours+1e-9) % 24
	return fmt.Sprintf("Week %d Day %d, %02d:00", days/7+1, days%7+1, hour)
}
