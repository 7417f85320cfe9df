package protocol

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talgya/outbreak/internal/agents"
	"github.com/talgya/outbreak/internal/config"
	"github.com/talgya/outbreak/internal/economy"
	"github.com/talgya/outbreak/internal/entropy"
)

func always() Result { return Applied }
func never() Result  { return Blocked }

func newLedger(t *testing.T, basic, variance float64) (*economy.Ledger, *config.Preset) {
	t.Helper()
	p := config.Normal()
	p.BasicInteractionRate = basic
	p.MaxInteractionVariance = variance
	return economy.NewLedger(&p), &p
}

func TestTableRejectsOverlapInEitherOrder(t *testing.T) {
	tbl := NewTable()
	require.NoError(t, tbl.Add(Rule{Name: "a", In1: agents.Healthy, In2: agents.Infected, Out1: agents.Healthy, Out2: agents.Infected, Effect: always}))

	err := tbl.Add(Rule{Name: "b", In1: agents.Infected, In2: agents.Healthy, Out1: agents.Immune, Out2: agents.Immune, Effect: always})
	assert.ErrorIs(t, err, ErrOverlappingRule)
	assert.Equal(t, 1, tbl.Len())

	err = tbl.Add(Rule{Name: "c", In1: agents.Infected, In2: agents.Infected, Out1: agents.Deceased, Out2: agents.Deceased, Effect: always})
	assert.Error(t, err)

	err = tbl.Add(Rule{Name: "d", In1: agents.Immune, In2: agents.Immune, Out1: agents.Immune, Out2: agents.Immune})
	assert.Error(t, err)
}

func TestDefaultAndCureRulesDoNotOverlap(t *testing.T) {
	l, p := newLedger(t, 1, 0)
	tbl := NewTable()
	assert.NotPanics(t, func() {
		tbl.MustAdd(DefaultRules(l, p, entropy.NewSeeded(1))...)
		tbl.AddCureRules(CureRules(l)...)
	})
	assert.Equal(t, 10, tbl.Len())
}

func TestCureRulesAddedOnce(t *testing.T) {
	l, _ := newLedger(t, 1, 0)
	tbl := NewTable()
	assert.True(t, tbl.AddCureRules(CureRules(l)...))
	assert.False(t, tbl.AddCureRules(CureRules(l)...))
	assert.Equal(t, 3, tbl.Len())
	assert.True(t, tbl.HasCure())
}

func TestMatchReportsOrientation(t *testing.T) {
	tbl := NewTable()
	tbl.MustAdd(Rule{Name: "r", In1: agents.Healthy, In2: agents.Infected, Out1: agents.UnknowinglyInfected, Out2: agents.Infected, Effect: always})

	_, reversed, ok := tbl.Match(agents.Healthy, agents.Infected)
	require.True(t, ok)
	assert.False(t, reversed)

	_, reversed, ok = tbl.Match(agents.Infected, agents.Healthy)
	require.True(t, ok)
	assert.True(t, reversed)

	_, _, ok = tbl.Match(agents.Immune, agents.Cure)
	assert.False(t, ok)
}

func TestStepSelectionCount(t *testing.T) {
	l, _ := newLedger(t, 0.1, 0)
	pop := agents.NewPopulation(1000, 0, entropy.NewSeeded(9))
	e := NewEngine(pop, NewTable(), l, entropy.NewSeeded(9))

	rep := e.Step()
	assert.Equal(t, 100, rep.Selections)
	assert.Equal(t, 100, rep.Unmatched)
}

func TestStepVarianceSignIsPerDay(t *testing.T) {
	l, _ := newLedger(t, 0.5, 0.2)
	pop := agents.NewPopulation(100, 0, entropy.NewSeeded(9))

	low := NewEngine(pop, NewTable(), l, &entropy.Sequence{Floats: []float64{0.1, 0.3, 0.6}})
	assert.Equal(t, 30, low.Step().Selections)

	high := NewEngine(pop, NewTable(), l, &entropy.Sequence{Floats: []float64{0.9, 0.3, 0.6}})
	assert.Equal(t, 70, high.Step().Selections)
}

func TestTransmissionScenario(t *testing.T) {
	l, p := newLedger(t, 0.5, 0)
	l.Stats.UnknowinglyInfected = 1
	pop := agents.NewPopulation(2, 0, entropy.NewSeeded(1))
	pop.SetHealth(1, agents.UnknowinglyInfected)

	rng := entropy.NewSeeded(4)
	tbl := NewTable()
	tbl.MustAdd(DefaultRules(l, p, rng)...)
	rep := NewEngine(pop, tbl, l, rng).Step()

	assert.Equal(t, 1, rep.Applied)
	assert.Equal(t, agents.UnknowinglyInfected, pop.At(0).Health)
	assert.Equal(t, agents.UnknowinglyInfected, pop.At(1).Health)
	assert.Equal(t, 2, l.Stats.UnknowinglyInfected)
}

func TestReversedMatchSwapsOutputs(t *testing.T) {
	l, _ := newLedger(t, 0.5, 0)
	pop := agents.NewPopulation(2, 0, entropy.NewSeeded(1))
	pop.SetHealth(0, agents.Infected)

	tbl := NewTable()
	tbl.MustAdd(Rule{Name: "spread", In1: agents.Healthy, In2: agents.Infected, Out1: agents.UnknowinglyInfected, Out2: agents.Infected, Effect: always})

	// Draws pick index 1 then index 0, so the pair is (Healthy, Infected).
	rng := &entropy.Sequence{Floats: []float64{0.9, 0.9, 0.1}}
	NewEngine(pop, tbl, l, rng).Step()
	assert.Equal(t, agents.Infected, pop.At(0).Health)
	assert.Equal(t, agents.UnknowinglyInfected, pop.At(1).Health)

	// Pair drawn as (Infected, Healthy) from index 0 then 1.
	pop2 := agents.NewPopulation(2, 0, entropy.NewSeeded(1))
	pop2.SetHealth(0, agents.Infected)
	rng = &entropy.Sequence{Floats: []float64{0.9, 0.1, 0.9}}
	NewEngine(pop2, tbl, l, rng).Step()
	assert.Equal(t, agents.Infected, pop2.At(0).Health)
	assert.Equal(t, agents.UnknowinglyInfected, pop2.At(1).Health)
}

func TestBlockedEffectLeavesStates(t *testing.T) {
	l, _ := newLedger(t, 1, 0)
	pop := agents.NewPopulation(10, 10, entropy.NewSeeded(1))
	tbl := NewTable()
	tbl.MustAdd(Rule{Name: "noop", In1: agents.UnknowinglyInfected, In2: agents.UnknowinglyInfected, Out1: agents.Immune, Out2: agents.Immune, Effect: never})

	rep := NewEngine(pop, tbl, l, entropy.NewSeeded(2)).Step()
	assert.Equal(t, 10, rep.Blocked)
	assert.Equal(t, 10, pop.CountHealth(agents.UnknowinglyInfected))
}

func TestDeceasedAreRemovedSameTick(t *testing.T) {
	l, _ := newLedger(t, 0.5, 0)
	l.Stats.Population = 2
	pop := agents.NewPopulation(2, 0, entropy.NewSeeded(1))
	pop.SetHealth(0, agents.Infected)
	pop.SetHealth(1, agents.Infected)

	tbl := NewTable()
	tbl.MustAdd(Rule{Name: "die", In1: agents.Infected, In2: agents.Infected, Out1: agents.Infected, Out2: agents.Deceased, Effect: always})

	rep := NewEngine(pop, tbl, l, entropy.NewSeeded(3)).Step()
	assert.Equal(t, 1, rep.Removed)
	assert.Equal(t, 1, pop.Len())
	assert.Zero(t, pop.CountHealth(agents.Deceased))
	assert.Equal(t, 1, l.Stats.Population)
}

func TestStepPanicsOnDegeneratePopulation(t *testing.T) {
	l, _ := newLedger(t, 2, 0)
	pop := agents.NewPopulation(1, 0, entropy.NewSeeded(1))
	e := NewEngine(pop, NewTable(), l, entropy.NewSeeded(1))
	assert.PanicsWithValue(t, tooFewAgents, func() { e.Step() })

	// Even a day with no selections refuses to run.
	l.Stats.BasicInteractionRate, l.Stats.MaxInteractionVariance = 0, 0
	assert.PanicsWithValue(t, tooFewAgents, func() { e.Step() })
}

func TestStepPanicsWhenDeathsCollapsePopulation(t *testing.T) {
	l, p := newLedger(t, 2, 0)
	p.MortalityRate = 1
	pop := agents.NewPopulation(3, 0, entropy.NewSeeded(1))
	for i := range pop.Len() {
		pop.SetHealth(i, agents.Infected)
	}
	l.Stats.Infected = 3
	tbl := NewTable()
	tbl.MustAdd(DefaultRules(l, p, entropy.NewSeeded(2))...)
	e := NewEngine(pop, tbl, l, entropy.NewSeeded(3))

	assert.PanicsWithValue(t, tooFewAgents, func() { e.Step() })
	assert.Equal(t, 1, pop.Len())
	assert.Equal(t, 2, l.Stats.Deceased)
}

func TestTestingRuleGatedOnBudget(t *testing.T) {
	l, p := newLedger(t, 1, 0)
	tbl := NewTable()
	tbl.MustAdd(DefaultRules(l, p, entropy.NewSeeded(1))...)
	rule, _, ok := tbl.Match(agents.TestKit, agents.UnknowinglyInfected)
	require.True(t, ok)

	l.Stats.UnknowinglyInfected = 1
	l.Stats.Budget = l.Stats.TestKitPrice - 1
	assert.Equal(t, Blocked, rule.Effect())
	assert.Zero(t, l.Stats.TestKitsToday)

	l.Stats.Budget = l.Stats.TestKitPrice
	assert.Equal(t, Applied, rule.Effect())
	assert.Equal(t, 1, l.Stats.TestKitsToday)
	assert.Equal(t, 1, l.Stats.Infected)
	assert.Zero(t, l.Stats.UnknowinglyInfected)
	assert.True(t, l.Stats.FirstCaseFound)
}

func TestCureRulesGatedOnVaccinationPrice(t *testing.T) {
	l, _ := newLedger(t, 1, 0)
	rules := CureRules(l)
	l.Stats.Infected = 3
	l.Stats.Budget = 0
	assert.Equal(t, Blocked, rules[1].Effect())
	assert.Equal(t, 3, l.Stats.Infected)

	l.Stats.Budget = 1000
	assert.Equal(t, Applied, rules[1].Effect())
	assert.Equal(t, 2, l.Stats.Infected)
	assert.Equal(t, 1, l.Stats.VaccinesToday)
	assert.Equal(t, 1, l.Stats.Cured)

	assert.Equal(t, Applied, rules[0].Effect())
	assert.Equal(t, 1, l.Stats.Cured)
}
