// Package events holds the time-driven parts of a session: modifiers
// that revert after a number of days and the random narrative events.
package events

import (
	"fmt"
	"log/slog"

	"github.com/talgya/outbreak/internal/clock"
)

// Clock is the subscription side of clock.Clock.
type Clock interface {
	Subscribe(clock.DayListener)
	Unsubscribe(clock.DayListener)
}

// Modifier is a change applied now and reverted after Remaining days.
type Modifier struct {
	Name      string `json:"name"`
	Remaining int    `json:"remaining_days"`
	Done      bool   `json:"done"`

	clock   Clock
	reverse func()
}

// OnDayPassed counts down and, at zero, unsubscribes and reverts once.
func (m *Modifier) OnDayPassed() {
	if m.Done {
		return
	}
	m.Remaining--
	if m.Remaining > 0 {
		return
	}
	m.Done = true
	m.clock.Unsubscribe(m)
	m.reverse()
	slog.Debug("modifier expired", "name", m.Name)
}

// Scheduler creates modifiers bound to a clock.
type Scheduler struct {
	clock  Clock
	active []*Modifier
}

// NewScheduler returns a scheduler that subscribes modifiers to c.
func NewScheduler(c Clock) *Scheduler {
	return &Scheduler{clock: c}
}

// After runs apply now and reverse after days day boundaries. days must
// be positive.
func (s *Scheduler) After(name string, days int, apply, reverse func()) *Modifier {
	if days < 1 {
		panic(fmt.Sprintf("events: modifier %q needs a positive duration, got %d", name, days))
	}
	m := &Modifier{Name: name, Remaining: days, clock: s.clock, reverse: reverse}
	apply()
	s.clock.Subscribe(m)
	s.active = append(s.active, m)
	return m
}

// Active returns the modifiers still counting down.
func (s *Scheduler) Active() []Modifier {
	live := s.active[:0]
	for _, m := range s.active {
		if !m.Done {
			live = append(live, m)
		}
	}
	s.active = live

	out := make([]Modifier, len(live))
	for i, m := range live {
		out[i] = *m
	}
	return out
}
