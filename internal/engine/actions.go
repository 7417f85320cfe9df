package engine

import (
	"fmt"
	"log/slog"

	"github.com/talgya/outbreak/internal/agents"
	"github.com/talgya/outbreak/internal/clock"
	"github.com/talgya/outbreak/internal/economy"
	"github.com/talgya/outbreak/internal/policy"
)

// Status is a read-only view of the session for outer layers.
type Status struct {
	Day        int              `json:"day"`
	Week       int              `json:"week"`
	SimTime    string           `json:"sim_time"`
	Speed      string           `json:"speed"`
	Paused     bool             `json:"paused"`
	Outcome    string           `json:"outcome"`
	Budget     string           `json:"budget"`
	Ratio      float64          `json:"infection_ratio"`
	Cure       bool             `json:"cure"`
	Stats      economy.Stats    `json:"stats"`
	Measures   []policy.Measure `json:"measures"`
	Skills     []policy.Skill   `json:"skills"`
	Population int              `json:"agents"`
}

// Status returns the current session view.
func (s *Simulation) Status() Status {
	return Status{
		Day:        s.Clock.DaysSinceStart(),
		Week:       s.Clock.WeeksSinceStart(),
		SimTime:    s.Clock.SimTime(),
		Speed:      s.Clock.Speed().String(),
		Paused:     s.Clock.Paused(),
		Outcome:    s.outcome.String(),
		Budget:     s.Ledger.BudgetString(),
		Ratio:      s.Ledger.InfectionRatio(),
		Cure:       s.Rules.HasCure(),
		Stats:      s.Ledger.Stats,
		Measures:   s.Measures.List(),
		Skills:     s.Skills.List(),
		Population: s.Pop.Len(),
	}
}

// Weekly returns a copy of the weekly history.
func (s *Simulation) Weekly() economy.Weekly {
	return s.Ledger.Weekly.Clone()
}

// IncomeForWeek returns the aggregate statement of week n.
func (s *Simulation) IncomeForWeek(n int) (economy.IncomeStatement, bool) {
	return s.Ledger.IncomeForWeek(n)
}

// SetSpeed validates and applies a speed mode.
func (s *Simulation) SetSpeed(mode int) error {
	m, err := clock.ParseSpeed(mode)
	if err != nil {
		return err
	}
	s.Clock.SetSpeed(m)
	slog.Info("speed changed", "speed", m)
	return nil
}

// Pause stops the clock. Timed modifiers and countdowns stall with it.
func (s *Simulation) Pause() { s.Clock.Pause() }

// Resume restarts the clock.
func (s *Simulation) Resume() { s.Clock.Resume() }

// ToggleMeasure flips a measure on or off. The error is non-nil only for
// unknown measures; ok is false when the toggle was refused.
func (s *Simulation) ToggleMeasure(name string) (bool, error) {
	if _, err := s.Measures.Lookup(name); err != nil {
		return false, err
	}
	if !s.Measures.Toggle(name) {
		return false, nil
	}
	ms, _ := s.Measures.Lookup(name)
	verb := "lifted"
	if ms.Active {
		verb = "imposed"
	}
	s.policyEvent(fmt.Sprintf("%s %s", ms.Name, verb), map[string]any{"measure": ms.Name, "active": ms.Active})
	return true, nil
}

// BuyResearch buys the next research level.
func (s *Simulation) BuyResearch() bool {
	cured := s.Rules.HasCure()
	if !s.Research.Buy() {
		return false
	}
	s.policyEvent(fmt.Sprintf("research reached level %d", s.Research.Level()), map[string]any{"level": s.Research.Level()})
	if !cured && s.Rules.HasCure() {
		s.policyEvent("a cure is available", map[string]any{"hw_count": s.Ledger.Stats.HWCount})
	}
	return true
}

// HireHealthWorkers hires up to n health workers.
func (s *Simulation) HireHealthWorkers(n int, asTestKit bool) bool {
	before := s.Ledger.Stats.HWHired
	if !s.Hiring.HireHealthWorkers(n, asTestKit) {
		return false
	}
	hired := s.Ledger.Stats.HWHired - before
	s.policyEvent(fmt.Sprintf("%d health workers hired", hired), map[string]any{"count": hired, "test_kit": asTestKit})
	return true
}

// HirePolice hires up to n police officers.
func (s *Simulation) HirePolice(n int) bool {
	before := s.Ledger.Stats.PoliceHired
	if !s.Hiring.HirePolice(n) {
		return false
	}
	hired := s.Ledger.Stats.PoliceHired - before
	s.policyEvent(fmt.Sprintf("%d police hired", hired), map[string]any{"count": hired})
	return true
}

// ActivateSkill buys a skill. The error is non-nil only for unknown skills.
func (s *Simulation) ActivateSkill(name string) (bool, error) {
	if _, err := s.Skills.Lookup(name); err != nil {
		return false, err
	}
	if !s.Skills.Activate(name) {
		return false, nil
	}
	s.policyEvent(fmt.Sprintf("skill %s activated", name), map[string]any{"skill": name})
	return true, nil
}

// AddNewPopulation inserts amt healthy citizens and counts them.
func (s *Simulation) AddNewPopulation(amt int) {
	if amt <= 0 {
		return
	}
	s.Pop.AddNewPopulation(amt)
	s.Ledger.AddPopulation(amt)
}

// DistributeNewRoles reassigns up to amt citizens to role and records
// them as staff without charging a hiring fee.
func (s *Simulation) DistributeNewRoles(amt int, role agents.Role, asTestKit bool) bool {
	s.Ledger.RecordHires(role, s.Pop.Retrain(amt, role, asTestKit))
	return true
}

// Buy spends amount*price from the budget, all or nothing.
func (s *Simulation) Buy(amount int, price int64) bool {
	return s.Ledger.Buy(amount, price)
}

func (s *Simulation) policyEvent(desc string, meta map[string]any) {
	day := s.Clock.DaysSinceStart()
	s.emit(Event{Day: day, Description: desc, Category: "policy", Meta: meta})
	slog.Info("policy", "day", day, "description", desc, "budget", s.Ledger.BudgetString())
}
