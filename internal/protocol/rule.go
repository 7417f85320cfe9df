// Package protocol implements the population protocol: an append-only
// table of pairwise transition rules and the engine that samples random
// pairs of agents once per day and applies the matching rule.
package protocol

import (
	"errors"
	"fmt"

	"github.com/talgya/outbreak/internal/agents"
)

// ErrOverlappingRule is returned when a rule's unordered input pair is
// already covered by the table.
var ErrOverlappingRule = errors.New("overlapping rule")

// Result is what a rule effect decided.
type Result uint8

const (
	Blocked Result = iota
	Applied
)

// Effect performs a rule's ledger side effects and decides whether the
// state transition happens. It must be total: no panics, no I/O.
type Effect func() Result

// Rule maps an unordered pair of input states to output states. When the
// pair matches in reverse order the outputs are swapped to follow it.
type Rule struct {
	Name   string
	In1    agents.HealthState
	In2    agents.HealthState
	Out1   agents.HealthState
	Out2   agents.HealthState
	Effect Effect
}

func (r Rule) String() string {
	return fmt.Sprintf("%s: (%s, %s) -> (%s, %s)", r.Name, r.In1, r.In2, r.Out1, r.Out2)
}

type pairKey struct{ a, b agents.HealthState }

func key(a, b agents.HealthState) pairKey {
	if a > b {
		a, b = b, a
	}
	return pairKey{a, b}
}

// Table is the ordered, append-only rule collection of a session.
type Table struct {
	rules []Rule
	index map[pairKey]int
	cured bool
}

// NewTable returns an empty rule table.
func NewTable() *Table {
	return &Table{index: make(map[pairKey]int)}
}

// Add appends a rule, rejecting it if its input pair is already covered.
func (t *Table) Add(r Rule) error {
	if !r.In1.Valid() || !r.In2.Valid() || !r.Out1.Valid() || !r.Out2.Valid() {
		return fmt.Errorf("rule %q: invalid state", r.Name)
	}
	if r.Out1 == agents.Deceased && r.Out2 == agents.Deceased {
		return fmt.Errorf("rule %q: at most one agent may die per interaction", r.Name)
	}
	if r.Effect == nil {
		return fmt.Errorf("rule %q: nil effect", r.Name)
	}
	k := key(r.In1, r.In2)
	if i, ok := t.index[k]; ok {
		return fmt.Errorf("%w: %q covers the same pair as %q", ErrOverlappingRule, r.Name, t.rules[i].Name)
	}
	t.index[k] = len(t.rules)
	t.rules = append(t.rules, r)
	return nil
}

// MustAdd is Add for rule sets built at startup; an overlap is a bug.
func (t *Table) MustAdd(rules ...Rule) {
	for _, r := range rules {
		if err := t.Add(r); err != nil {
			panic(err)
		}
	}
}

// AddCureRules appends the cure rules once. Later calls are no-ops and
// return false.
func (t *Table) AddCureRules(rules ...Rule) bool {
	if t.cured {
		return false
	}
	t.MustAdd(rules...)
	t.cured = true
	return true
}

// HasCure reports whether the cure rules are in the table.
func (t *Table) HasCure() bool { return t.cured }

// Len returns the number of rules.
func (t *Table) Len() int { return len(t.rules) }

// Rules returns a copy of the rules in insertion order.
func (t *Table) Rules() []Rule {
	out := make([]Rule, len(t.rules))
	copy(out, t.rules)
	return out
}

// Match finds the rule for the pair (s1, s2). reversed is true when the
// rule matched as (s2, s1).
func (t *Table) Match(s1, s2 agents.HealthState) (rule Rule, reversed, ok bool) {
	i, ok := t.index[key(s1, s2)]
	if !ok {
		return Rule{}, false, false
	}
	rule = t.rules[i]
	reversed = !(rule.In1 == s1 && rule.In2 == s2)
	return rule, reversed, true
}
