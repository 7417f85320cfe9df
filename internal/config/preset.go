// Package config holds the difficulty presets and the static catalogues
// (measures, skills, narrative events) a session is created from.
package config

import (
	"errors"
	"fmt"
	"slices"
)

// ErrUnknownPreset is returned when a difficulty name has no preset.
var ErrUnknownPreset = errors.New("unknown difficulty preset")

// Preset carries every initial scalar of a session.
type Preset struct {
	Name     string `yaml:"name" json:"name"`
	Currency string `yaml:"currency" json:"currency"`

	// Population
	Population           int `yaml:"population" json:"population"`
	InitialInfected      int `yaml:"initial_infected" json:"initial_infected"`
	InitialHealthWorkers int `yaml:"initial_health_workers" json:"initial_health_workers"`
	InitialPolice        int `yaml:"initial_police" json:"initial_police"`
	CureBatch            int `yaml:"cure_batch" json:"cure_batch"`

	// Protocol
	BasicInteractionRate   float64 `yaml:"basic_interaction_rate" json:"basic_interaction_rate"`
	MaxInteractionVariance float64 `yaml:"max_interaction_variance" json:"max_interaction_variance"`
	SymptomRate            float64 `yaml:"symptom_rate" json:"symptom_rate"`
	MortalityRate          float64 `yaml:"mortality_rate" json:"mortality_rate"`
	RecoveryRate           float64 `yaml:"recovery_rate" json:"recovery_rate"`

	// Economy
	Budget              int64   `yaml:"budget" json:"budget"`
	BankruptcyThreshold int64   `yaml:"bankruptcy_threshold" json:"bankruptcy_threshold"`
	MaxIncome           int64   `yaml:"max_income" json:"max_income"`
	Happiness           float64 `yaml:"happiness" json:"happiness"`
	HappinessRate       float64 `yaml:"happiness_rate" json:"happiness_rate"`
	HWSalary            int64   `yaml:"hw_salary" json:"hw_salary"`
	PoliceSalary        int64   `yaml:"police_salary" json:"police_salary"`
	TestKitPrice        int64   `yaml:"test_kit_price" json:"test_kit_price"`
	VaccinationPrice    int64   `yaml:"vaccination_price" json:"vaccination_price"`
	HWHirePrice         int64   `yaml:"hw_hire_price" json:"hw_hire_price"`
	PoliceHirePrice     int64   `yaml:"police_hire_price" json:"police_hire_price"`
	ResearchPrices      []int64 `yaml:"research_prices" json:"research_prices"`

	Measures []Measure   `yaml:"measures" json:"measures"`
	Skills   []Skill     `yaml:"skills" json:"skills"`
	Events   []EventTier `yaml:"events" json:"events"`
}

// Measure is a toggleable policy definition.
type Measure struct {
	Name            string  `yaml:"name" json:"name"`
	DailyCost       int64   `yaml:"daily_cost" json:"daily_cost"`
	HappinessDelta  float64 `yaml:"happiness_delta" json:"happiness_delta"`
	IsolationFactor float64 `yaml:"isolation_factor" json:"isolation_factor"`
}

// Skill is a purchasable stat modifier. The target stat becomes
// stat*Multiplier + Delta; Days > 0 reverts it after that many days.
type Skill struct {
	Name       string  `yaml:"name" json:"name"`
	Cost       int64   `yaml:"cost" json:"cost"`
	Stat       string  `yaml:"stat" json:"stat"`
	Multiplier float64 `yaml:"multiplier" json:"multiplier"`
	Delta      float64 `yaml:"delta" json:"delta"`
	Days       int     `yaml:"days" json:"days"`
}

// Stat keys a skill or event may modify.
const (
	StatHappinessRate          = "happiness_rate"
	StatBasicInteractionRate   = "basic_interaction_rate"
	StatMaxInteractionVariance = "max_interaction_variance"
	StatIncomeMultiplier       = "income_multiplier"
)

// StatKeys lists every modifiable stat key.
var StatKeys = []string{
	StatHappinessRate,
	StatBasicInteractionRate,
	StatMaxInteractionVariance,
	StatIncomeMultiplier,
}

// Rarities lists the narrative tiers from most common to rarest.
var Rarities = []string{"common", "rare", "very_rare", "epic", "legendary"}

// EventTier is one rarity tier of narrative events.
type EventTier struct {
	Rarity string     `yaml:"rarity" json:"rarity"`
	Min    int        `yaml:"min_days" json:"min_days"`
	Max    int        `yaml:"max_days" json:"max_days"`
	Events []EventDef `yaml:"events" json:"events"`
}

// EventDef describes the numeric effect of one narrative event.
// Budget and Happiness are scaled by the session's sentiment field.
type EventDef struct {
	Name       string  `yaml:"name" json:"name"`
	Budget     int64   `yaml:"budget" json:"budget"`
	Happiness  float64 `yaml:"happiness" json:"happiness"`
	Population int     `yaml:"population" json:"population"`
	Stat       string  `yaml:"stat" json:"stat"`
	Multiplier float64 `yaml:"multiplier" json:"multiplier"`
	Days       int     `yaml:"days" json:"days"`
}

// ResearchLevels is the top of the research ladder.
const ResearchLevels = 10

// Validate checks a preset for values the core cannot run with.
func (p *Preset) Validate() error {
	if p.Population < 2 {
		return fmt.Errorf("preset %q: population must be at least 2, got %d", p.Name, p.Population)
	}
	if p.InitialInfected < 0 || p.InitialInfected > p.Population {
		return fmt.Errorf("preset %q: initial_infected out of range", p.Name)
	}
	if p.InitialHealthWorkers+p.InitialPolice > p.Population {
		return fmt.Errorf("preset %q: more staff than population", p.Name)
	}
	if len(p.ResearchPrices) != ResearchLevels {
		return fmt.Errorf("preset %q: need %d research prices, got %d", p.Name, ResearchLevels, len(p.ResearchPrices))
	}
	if p.BankruptcyThreshold >= 0 {
		return fmt.Errorf("preset %q: bankruptcy_threshold must be negative", p.Name)
	}
	for _, m := range p.Measures {
		if m.IsolationFactor <= 0 {
			return fmt.Errorf("measure %q: isolation_factor must be positive", m.Name)
		}
	}
	for _, s := range p.Skills {
		if !slices.Contains(StatKeys, s.Stat) {
			return fmt.Errorf("skill %q: unknown stat %q", s.Name, s.Stat)
		}
		if s.Multiplier == 0 {
			return fmt.Errorf("skill %q: multiplier must be non-zero", s.Name)
		}
	}
	for _, tier := range p.Events {
		if !slices.Contains(Rarities, tier.Rarity) {
			return fmt.Errorf("event tier %q: unknown rarity", tier.Rarity)
		}
		if tier.Min < 1 || tier.Max < tier.Min {
			return fmt.Errorf("event tier %q: bad countdown range [%d, %d]", tier.Rarity, tier.Min, tier.Max)
		}
		for _, e := range tier.Events {
			if e.Stat != "" && !slices.Contains(StatKeys, e.Stat) {
				return fmt.Errorf("event %q: unknown stat %q", e.Name, e.Stat)
			}
			if e.Stat != "" && e.Multiplier <= 0 {
				return fmt.Errorf("event %q: multiplier must be positive", e.Name)
			}
		}
	}
	return nil
}

// Normal returns the default difficulty.
func Normal() Preset {
	return Preset{
		Name:     "normal",
		Currency: "$",

		Population:           1000,
		InitialInfected:      5,
		InitialHealthWorkers: 10,
		InitialPolice:        10,
		CureBatch:            40,

		BasicInteractionRate:   1.2,
		MaxInteractionVariance: 0.3,
		SymptomRate:            0.35,
		MortalityRate:          0.08,
		RecoveryRate:           0.5,

		Budget:              50_000,
		BankruptcyThreshold: -20_000,
		MaxIncome:           6_000,
		Happiness:           70,
		HappinessRate:       0,
		HWSalary:            60,
		PoliceSalary:        40,
		TestKitPrice:        15,
		VaccinationPrice:    30,
		HWHirePrice:         250,
		PoliceHirePrice:     150,
		ResearchPrices:      []int64{2000, 2500, 3000, 3500, 4000, 5000, 6000, 7000, 8500, 10000},

		Measures: DefaultMeasures(),
		Skills:   DefaultSkills(),
		Events:   DefaultEvents(),
	}
}

// Easy returns a forgiving difficulty.
func Easy() Preset {
	p := Normal()
	p.Name = "easy"
	p.InitialInfected = 3
	p.Budget = 80_000
	p.BankruptcyThreshold = -40_000
	p.MaxIncome = 8_000
	p.Happiness = 80
	p.MortalityRate = 0.04
	return p
}

// Hard returns a punishing difficulty.
func Hard() Preset {
	p := Normal()
	p.Name = "hard"
	p.InitialInfected = 12
	p.Budget = 30_000
	p.BankruptcyThreshold = -10_000
	p.MaxIncome = 5_000
	p.Happiness = 55
	p.HappinessRate = -0.5
	p.BasicInteractionRate = 1.5
	p.MortalityRate = 0.12
	p.ResearchPrices = []int64{3000, 3500, 4000, 5000, 6000, 7000, 8000, 9500, 11000, 13000}
	return p
}

// ByName returns the built-in preset with the given name.
func ByName(name string) (Preset, error) {
	switch name {
	case "easy":
		return Easy(), nil
	case "", "normal":
		return Normal(), nil
	case "hard":
		return Hard(), nil
	}
	return Preset{}, fmt.Errorf("%w: %q", ErrUnknownPreset, name)
}

// DefaultMeasures returns the built-in measure catalogue.
func DefaultMeasures() []Measure {
	return []Measure{
		{Name: "social_distancing", DailyCost: 300, HappinessDelta: -5, IsolationFactor: 1.5},
		{Name: "mask_mandate", DailyCost: 150, HappinessDelta: -3, IsolationFactor: 1.2},
		{Name: "school_closure", DailyCost: 600, HappinessDelta: -8, IsolationFactor: 1.8},
		{Name: "lockdown", DailyCost: 1500, HappinessDelta: -20, IsolationFactor: 3},
	}
}

// DefaultSkills returns the built-in skill catalogue.
func DefaultSkills() []Skill {
	return []Skill{
		{Name: "awareness_campaign", Cost: 1200, Stat: StatHappinessRate, Multiplier: 1, Delta: 1, Days: 7},
		{Name: "contact_tracing", Cost: 4000, Stat: StatBasicInteractionRate, Multiplier: 0.9, Days: 0},
		{Name: "stimulus_package", Cost: 5000, Stat: StatIncomeMultiplier, Multiplier: 1.25, Days: 14},
		{Name: "hygiene_training", Cost: 2500, Stat: StatMaxInteractionVariance, Multiplier: 0.5, Days: 0},
	}
}

// DefaultEvents returns the built-in narrative event tiers.
func DefaultEvents() []EventTier {
	return []EventTier{
		{Rarity: "common", Min: 3, Max: 7, Events: []EventDef{
			{Name: "local_fundraiser", Budget: 400},
			{Name: "protest", Happiness: -3},
			{Name: "good_weather", Happiness: 2},
		}},
		{Rarity: "rare", Min: 8, Max: 15, Events: []EventDef{
			{Name: "donation", Budget: 2000},
			{Name: "festival", Happiness: 5, Stat: StatBasicInteractionRate, Multiplier: 1.3, Days: 2},
		}},
		{Rarity: "very_rare", Min: 15, Max: 30, Events: []EventDef{
			{Name: "immigration_wave", Population: 50},
			{Name: "market_crash", Budget: -3000, Stat: StatIncomeMultiplier, Multiplier: 0.8, Days: 7},
		}},
		{Rarity: "epic", Min: 30, Max: 60, Events: []EventDef{
			{Name: "foreign_aid", Budget: 10000},
			{Name: "mass_gathering", Happiness: 4, Stat: StatBasicInteractionRate, Multiplier: 1.8, Days: 3},
		}},
		{Rarity: "legendary", Min: 60, Max: 120, Events: []EventDef{
			{Name: "national_unity", Happiness: 15, Stat: StatIncomeMultiplier, Multiplier: 1.2, Days: 14},
		}},
	}
}
