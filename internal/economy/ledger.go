package economy

import (
	"fmt"
	"math"

	"github.com/dustin/go-humanize"

	"github.com/talgya/outbreak/internal/agents"
	"github.com/talgya/outbreak/internal/config"
)

// Stats holds every scalar counter of a session.
type Stats struct {
	Population          int  `json:"population"`
	Deceased            int  `json:"deceased"`
	Infected            int  `json:"infected"`
	UnknowinglyInfected int  `json:"unknowingly_infected"`
	Cured               int  `json:"cured"`
	FirstCaseFound      bool `json:"first_case_found"`

	// Infection ratio bookkeeping, reset at the start of each day.
	NewInfections    int `json:"new_infections"`
	ActiveAtDayStart int `json:"active_at_day_start"`

	Budget              int64   `json:"budget"`
	BankruptcyThreshold int64   `json:"bankruptcy_threshold"`
	Income              int64   `json:"income"`
	MaxIncome           int64   `json:"max_income"`
	IncomeMultiplier    float64 `json:"income_multiplier"`
	Happiness           float64 `json:"happiness"`
	HappinessRate       float64 `json:"happiness_rate"`
	Compliance          float64 `json:"compliance"`

	BasicInteractionRate   float64 `json:"basic_interaction_rate"`
	MaxInteractionVariance float64 `json:"max_interaction_variance"`

	HWSalary         int64 `json:"hw_salary"`
	PoliceSalary     int64 `json:"police_salary"`
	TestKitPrice     int64 `json:"test_kit_price"`
	VaccinationPrice int64 `json:"vaccination_price"`

	HWCount     int `json:"hw_count"`
	PoliceCount int `json:"police_count"`
	HWHired     int `json:"hw_hired"`
	PoliceHired int `json:"police_hired"`

	ResearchLevel int `json:"research_level"`

	TestKitsToday int `json:"test_kits_today"`
	VaccinesToday int `json:"vaccines_today"`
}

// Ledger owns the session's Stats and weekly history.
type Ledger struct {
	Stats    Stats
	Weekly   Weekly
	currency string
}

// NewLedger initializes the ledger from a preset. Headcounts start at
// zero; the composition root records the initial staff once roles are
// distributed.
func NewLedger(p *config.Preset) *Ledger {
	l := &Ledger{
		currency: p.Currency,
		Stats: Stats{
			Population:             p.Population,
			UnknowinglyInfected:    p.InitialInfected,
			Budget:                 p.Budget,
			BankruptcyThreshold:    p.BankruptcyThreshold,
			MaxIncome:              p.MaxIncome,
			IncomeMultiplier:       1,
			Happiness:              p.Happiness,
			HappinessRate:          p.HappinessRate,
			BasicInteractionRate:   p.BasicInteractionRate,
			MaxInteractionVariance: p.MaxInteractionVariance,
			HWSalary:               p.HWSalary,
			PoliceSalary:           p.PoliceSalary,
			TestKitPrice:           p.TestKitPrice,
			VaccinationPrice:       p.VaccinationPrice,
		},
	}
	l.Stats.Compliance = Compliance(l.Stats.Happiness)
	return l
}

// Compliance maps happiness in [0, 100] onto compliance: 10 at 0, 100 at 100.
func Compliance(happiness float64) float64 {
	return (19.0/4950.0)*happiness*happiness + (511.0/990.0)*happiness + 10
}

// Income returns the day's tax income for a compliance level.
func Income(compliance float64, maxIncome int64) int64 {
	switch {
	case compliance > 70:
		return maxIncome
	case compliance < 20:
		return 0
	}
	return int64(math.Floor((compliance - 20) * 2 * float64(maxIncome) / 100))
}

// BeginDay resets the per-day infection bookkeeping.
func (l *Ledger) BeginDay() {
	l.Stats.NewInfections = 0
	l.Stats.ActiveAtDayStart = l.Stats.Infected + l.Stats.UnknowinglyInfected
}

// CloseDay runs the daily recompute and returns the day's statement.
// days is the number of whole days since the session started.
func (l *Ledger) CloseDay(days int, measureCost int64) IncomeStatement {
	s := &l.Stats

	s.Happiness = clamp(s.Happiness+s.HappinessRate, 0, 100)
	s.Compliance = Compliance(s.Happiness)

	income := Income(s.Compliance, s.MaxIncome)
	if s.IncomeMultiplier != 1 {
		income = int64(math.Floor(float64(income) * s.IncomeMultiplier))
	}
	s.Income = income

	st := IncomeStatement{
		Taxes:        income,
		PoliceSalary: int64(s.PoliceCount) * s.PoliceSalary,
		HWSalary:     int64(s.HWCount) * s.HWSalary,
		TestKits:     int64(s.TestKitsToday) * s.TestKitPrice,
		Vaccines:     int64(s.VaccinesToday) * s.VaccinationPrice,
		Measures:     measureCost,
	}

	s.Budget += st.Net()

	l.Weekly.rollup(days, s, st)
	s.TestKitsToday = 0
	s.VaccinesToday = 0
	return st
}

// CanAfford reports whether the budget covers amount right now.
func (l *Ledger) CanAfford(amount int64) bool {
	return l.Stats.Budget >= amount
}

// CanAffordConsumable reports whether one more consumable at price fits
// in the budget once today's pending consumables are paid.
func (l *Ledger) CanAffordConsumable(price int64) bool {
	s := &l.Stats
	pending := int64(s.TestKitsToday)*s.TestKitPrice + int64(s.VaccinesToday)*s.VaccinationPrice
	return s.Budget-pending >= price
}

// Buy spends amount*price if the budget allows it. Nothing changes on false.
func (l *Ledger) Buy(amount int, price int64) bool {
	if amount <= 0 {
		return false
	}
	total := int64(amount) * price
	if !l.CanAfford(total) {
		return false
	}
	l.Stats.Budget -= total
	return true
}

// RecordNewInfection counts one healthy agent becoming unknowingly infected.
func (l *Ledger) RecordNewInfection() {
	l.Stats.UnknowinglyInfected++
	l.Stats.NewInfections++
}

// RecordDetection moves one case from unknowingly infected to infected.
func (l *Ledger) RecordDetection() {
	l.Stats.UnknowinglyInfected--
	l.Stats.Infected++
	l.Stats.FirstCaseFound = true
}

// RecordRemoval updates counters for an agent removed from the store.
func (l *Ledger) RecordRemoval(a agents.Agent) {
	l.Stats.Population--
	switch a.Role {
	case agents.RolePolice:
		l.Stats.PoliceCount--
	case agents.RoleHealthWorker:
		l.Stats.HWCount--
	}
}

// RecordStaff adds newly assigned staff to headcount and hire totals.
func (l *Ledger) RecordStaff(role agents.Role, n int) {
	switch role {
	case agents.RolePolice:
		l.Stats.PoliceCount += n
		l.Stats.PoliceHired += n
	case agents.RoleHealthWorker:
		l.Stats.HWCount += n
		l.Stats.HWHired += n
	default:
		panic(fmt.Sprintf("economy: staff role %s", role))
	}
}

// RecordHires records staff converted from the given citizens. Health
// workers drop their previous health state, so any infection they
// carried leaves the counters with them.
func (l *Ledger) RecordHires(role agents.Role, replaced []agents.Agent) {
	l.RecordStaff(role, len(replaced))
	if role != agents.RoleHealthWorker {
		return
	}
	for _, a := range replaced {
		switch a.Health {
		case agents.Infected:
			l.Stats.Infected--
		case agents.UnknowinglyInfected:
			l.Stats.UnknowinglyInfected--
		}
	}
}

// AddPopulation counts amt newcomers.
func (l *Ledger) AddPopulation(amt int) {
	l.Stats.Population += amt
}

// BudgetString formats the budget with digit grouping, e.g. "-$1,250".
func (l *Ledger) BudgetString() string {
	b := l.Stats.Budget
	if b < 0 {
		return "-" + l.currency + humanize.Comma(-b)
	}
	return l.currency + humanize.Comma(b)
}

// InfectionRatio is an R-like figure: today's new infections per case
// active at the start of the day.
func (l *Ledger) InfectionRatio() float64 {
	active := l.Stats.ActiveAtDayStart
	if active < 1 {
		active = 1
	}
	return float64(l.Stats.NewInfections) / float64(active)
}

// IncomeForWeek returns the aggregate statement for week n.
func (l *Ledger) IncomeForWeek(n int) (IncomeStatement, bool) {
	if n < 0 || n >= len(l.Weekly.Statements) {
		return IncomeStatement{}, false
	}
	return l.Weekly.Statements[n], true
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

// Field returns the modifiable stat named by key. Keys come from
// config.StatKeys; anything else panics.
func (s *Stats) Field(key string) *float64 {
	switch key {
	case config.StatHappinessRate:
		return &s.HappinessRate
	case config.StatBasicInteractionRate:
		return &s.BasicInteractionRate
	case config.StatMaxInteractionVariance:
		return &s.MaxInteractionVariance
	case config.StatIncomeMultiplier:
		return &s.IncomeMultiplier
	}
	panic(fmt.Sprintf("economy: unknown stat %q", key))
}

// AdjustBudget adds delta to the budget. Used by narrative events.
func (l *Ledger) AdjustBudget(delta int64) {
	l.Stats.Budget += delta
}

// AdjustHappiness adds delta to happiness, clamped to [0, 100].
func (l *Ledger) AdjustHappiness(delta float64) {
	l.Stats.Happiness = clamp(l.Stats.Happiness+delta, 0, 100)
}
