// Package policy implements the player's levers: measures, research,
// hiring and skills. Every action either fully applies or returns false
// and leaves the session unchanged.
package policy

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/talgya/outbreak/internal/config"
	"github.com/talgya/outbreak/internal/economy"
)

var (
	ErrUnknownMeasure = errors.New("unknown measure")
	ErrUnknownSkill   = errors.New("unknown skill")
)

// Calendar reports the current simulated day.
type Calendar interface {
	DaysSinceStart() int
}

// Measure is a catalogue measure plus its toggle state.
type Measure struct {
	config.Measure
	Active        bool `json:"active"`
	LastActivated int  `json:"last_activated_day"`
}

// Measures toggles public-health measures with a one-day cooldown.
type Measures struct {
	ledger *economy.Ledger
	cal    Calendar
	list   []*Measure
}

// NewMeasures builds the toggle state for a catalogue.
func NewMeasures(catalogue []config.Measure, l *economy.Ledger, cal Calendar) *Measures {
	m := &Measures{ledger: l, cal: cal}
	for _, def := range catalogue {
		m.list = append(m.list, &Measure{Measure: def, LastActivated: -1})
	}
	return m
}

// Lookup returns the named measure.
func (m *Measures) Lookup(name string) (*Measure, error) {
	for _, ms := range m.list {
		if ms.Name == name {
			return ms, nil
		}
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownMeasure, name)
}

// Toggle activates an inactive measure or deactivates an active one.
// It fails for unknown measures, on the day the measure was last
// activated, and when an activation cannot pay one day of the measure.
func (m *Measures) Toggle(name string) bool {
	ms, err := m.Lookup(name)
	if err != nil {
		return false
	}
	day := m.cal.DaysSinceStart()
	if ms.LastActivated == day {
		return false
	}
	if !ms.Active && !m.ledger.CanAfford(ms.DailyCost) {
		return false
	}

	s := &m.ledger.Stats
	if ms.Active {
		s.Happiness -= ms.HappinessDelta
		s.BasicInteractionRate *= ms.IsolationFactor
		s.MaxInteractionVariance *= ms.IsolationFactor
	} else {
		s.Happiness += ms.HappinessDelta
		s.BasicInteractionRate /= ms.IsolationFactor
		s.MaxInteractionVariance /= ms.IsolationFactor
	}
	ms.Active = !ms.Active
	if ms.Active {
		ms.LastActivated = day
	}

	slog.Info("measure toggled", "measure", ms.Name, "active", ms.Active, "day", day)
	return true
}

// DailyCost sums the daily cost of every active measure.
func (m *Measures) DailyCost() int64 {
	var total int64
	for _, ms := range m.list {
		if ms.Active {
			total += ms.DailyCost
		}
	}
	return total
}

// List returns a copy of every measure in catalogue order.
func (m *Measures) List() []Measure {
	out := make([]Measure, len(m.list))
	for i, ms := range m.list {
		out[i] = *ms
	}
	return out
}
