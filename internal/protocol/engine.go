package protocol

import (
	"math"

	"github.com/talgya/outbreak/internal/agents"
	"github.com/talgya/outbreak/internal/economy"
	"github.com/talgya/outbreak/internal/entropy"
)

const tooFewAgents = "protocol: population protocol needs at least two agents"

// StepReport summarizes one day of interactions.
type StepReport struct {
	Rate       float64 `json:"rate"`
	Selections int     `json:"selections"`
	Applied    int     `json:"applied"`
	Blocked    int     `json:"blocked"`
	Unmatched  int     `json:"unmatched"`
	Removed    int     `json:"removed"`
}

// Engine runs the daily pairwise interactions.
type Engine struct {
	pop    *agents.Population
	table  *Table
	ledger *economy.Ledger
	rng    entropy.Source
}

// NewEngine wires the engine to its store, rules, ledger and randomness.
func NewEngine(pop *agents.Population, table *Table, ledger *economy.Ledger, rng entropy.Source) *Engine {
	return &Engine{pop: pop, table: table, ledger: ledger, rng: rng}
}

// Table returns the engine's rule table.
func (e *Engine) Table() *Table { return e.table }

// Step runs one day. The interaction rate is perturbed by the maximum
// variance with a single sign drawn for the whole day. The population
// must hold at least two agents throughout; anything less panics.
func (e *Engine) Step() StepReport {
	if e.pop.Len() < 2 {
		panic(tooFewAgents)
	}
	s := &e.ledger.Stats
	sign := 1.0
	if e.rng.Float() < 0.5 {
		sign = -1
	}
	rate := s.BasicInteractionRate + sign*s.MaxInteractionVariance

	rep := StepReport{Rate: rate}
	rep.Selections = int(math.Floor(rate * float64(e.pop.Len())))
	if rep.Selections < 0 {
		rep.Selections = 0
	}

	for range rep.Selections {
		i, j := e.drawPair()
		switch e.interact(i, j) {
		case outcomeApplied:
			rep.Applied++
		case outcomeBlocked:
			rep.Blocked++
		case outcomeUnmatched:
			rep.Unmatched++
		case outcomeRemoved:
			rep.Applied++
			rep.Removed++
		}
	}
	return rep
}

type interaction uint8

const (
	outcomeUnmatched interaction = iota
	outcomeBlocked
	outcomeApplied
	outcomeRemoved
)

func (e *Engine) drawPair() (int, int) {
	n := e.pop.Len()
	if n < 2 {
		panic(tooFewAgents)
	}
	i := e.rng.IntRange(0, n-1)
	j := e.rng.IntRange(0, n-1)
	for j == i {
		j = e.rng.IntRange(0, n-1)
	}
	return i, j
}

func (e *Engine) interact(i, j int) interaction {
	s1, s2 := e.pop.At(i).Health, e.pop.At(j).Health
	rule, reversed, ok := e.table.Match(s1, s2)
	if !ok {
		return outcomeUnmatched
	}
	if rule.Effect() != Applied {
		return outcomeBlocked
	}

	out1, out2 := rule.Out1, rule.Out2
	if reversed {
		out1, out2 = out2, out1
	}
	e.pop.SetHealth(i, out1)
	e.pop.SetHealth(j, out2)

	// One removal per interaction at most.
	switch {
	case out1 == agents.Deceased:
		e.ledger.RecordRemoval(e.pop.Remove(i))
	case out2 == agents.Deceased:
		e.ledger.RecordRemoval(e.pop.Remove(j))
	default:
		return outcomeApplied
	}
	return outcomeRemoved
}
