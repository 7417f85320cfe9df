package policy

import (
	"fmt"
	"log/slog"

	"github.com/talgya/outbreak/internal/config"
	"github.com/talgya/outbreak/internal/economy"
	"github.com/talgya/outbreak/internal/events"
)

// Skill is a catalogue skill plus whether it is in effect.
type Skill struct {
	config.Skill
	Active bool `json:"active"`

	mod *events.Modifier
}

// Skills activates purchasable stat modifiers. Timed skills revert via
// the scheduler; the rest last for the session.
type Skills struct {
	ledger *economy.Ledger
	sched  *events.Scheduler
	list   []*Skill
}

// NewSkills builds the skill state for a catalogue.
func NewSkills(catalogue []config.Skill, l *economy.Ledger, sched *events.Scheduler) *Skills {
	s := &Skills{ledger: l, sched: sched}
	for _, def := range catalogue {
		s.list = append(s.list, &Skill{Skill: def})
	}
	return s
}

// Lookup returns the named skill.
func (s *Skills) Lookup(name string) (*Skill, error) {
	for _, sk := range s.list {
		if sk.Name == name {
			sk.refresh()
			return sk, nil
		}
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownSkill, name)
}

// Activate buys and applies a skill. It fails for unknown or already
// active skills and when the cost is not affordable.
func (s *Skills) Activate(name string) bool {
	sk, err := s.Lookup(name)
	if err != nil || sk.Active {
		return false
	}
	if !s.ledger.Buy(1, sk.Cost) {
		return false
	}

	field := s.ledger.Stats.Field(sk.Stat)
	mult, delta := sk.Multiplier, sk.Delta
	apply := func() { *field = *field*mult + delta }
	if sk.Days > 0 {
		sk.mod = s.sched.After(sk.Name, sk.Days, apply, func() { *field = (*field - delta) / mult })
	} else {
		apply()
	}
	sk.Active = true

	slog.Info("skill activated", "skill", sk.Name, "stat", sk.Stat, "value", *field, "days", sk.Days)
	return true
}

// List returns a copy of every skill in catalogue order.
func (s *Skills) List() []Skill {
	out := make([]Skill, len(s.list))
	for i, sk := range s.list {
		sk.refresh()
		out[i] = *sk
	}
	return out
}

// refresh clears Active once a timed skill has expired.
func (sk *Skill) refresh() {
	if sk.mod != nil && sk.mod.Done {
		sk.Active = false
		sk.mod = nil
	}
}
