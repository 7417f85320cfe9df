package events

import (
	"fmt"
	"log/slog"
	"math"

	opensimplex "github.com/ojrac/opensimplex-go"

	"github.com/talgya/outbreak/internal/agents"
	"github.com/talgya/outbreak/internal/config"
	"github.com/talgya/outbreak/internal/economy"
	"github.com/talgya/outbreak/internal/entropy"
)

// Tier is a narrative rarity tier. Higher tiers win ties.
type Tier int

const (
	Common Tier = iota
	Rare
	VeryRare
	Epic
	Legendary
	numTiers
)

// Valid reports whether t is a defined tier.
func (t Tier) Valid() bool { return t >= 0 && t < numTiers }

func (t Tier) String() string {
	if !t.Valid() {
		panic(fmt.Sprintf("events: unknown tier %d", int(t)))
	}
	return config.Rarities[t]
}

// ParseTier maps a preset rarity name to its tier.
func ParseTier(name string) (Tier, bool) {
	for i, r := range config.Rarities {
		if r == name {
			return Tier(i), true
		}
	}
	return 0, false
}

// Fired records one narrative event that took effect.
type Fired struct {
	Day        int     `json:"day"`
	Tier       string  `json:"tier"`
	Name       string  `json:"name"`
	Severity   float64 `json:"severity"`
	Budget     int64   `json:"budget"`
	Happiness  float64 `json:"happiness"`
	Population int     `json:"population"`
}

type tierState struct {
	def       config.EventTier
	countdown int
	present   bool
}

// sentimentScale is the noise frequency along the day axis. Low values
// make consecutive events of similar magnitude.
const sentimentScale = 0.15

// Narrative fires random events on tier countdowns. At most one event
// fires per day: the rarest tier whose countdown reached zero.
type Narrative struct {
	tiers  [numTiers]tierState
	ledger *economy.Ledger
	pop    *agents.Population
	sched  *Scheduler
	rng    entropy.Source
	noise  opensimplex.Noise
	day    int

	history []Fired

	// OnFire, if set, is called after each event is applied.
	OnFire func(Fired)
}

// NewNarrative draws the first countdown of every tier in the catalogue.
// Tiers must carry known rarities (config.Preset.Validate checks this).
func NewNarrative(catalogue []config.EventTier, l *economy.Ledger, pop *agents.Population, sched *Scheduler, rng entropy.Source, seed int64) *Narrative {
	n := &Narrative{
		ledger: l,
		pop:    pop,
		sched:  sched,
		rng:    rng,
		noise:  opensimplex.NewNormalized(seed),
	}
	for _, def := range catalogue {
		t, ok := ParseTier(def.Rarity)
		if !ok {
			panic(fmt.Sprintf("events: unknown rarity %q", def.Rarity))
		}
		n.tiers[t] = tierState{def: def, present: true}
		n.redraw(t)
	}
	return n
}

// Countdown returns the days left on tier t, or -1 if the tier is not
// in the catalogue.
func (n *Narrative) Countdown(t Tier) int {
	if !t.Valid() {
		panic(fmt.Sprintf("events: unknown tier %d", int(t)))
	}
	if !n.tiers[t].present {
		return -1
	}
	return n.tiers[t].countdown
}

// History returns the events fired so far, oldest first.
func (n *Narrative) History() []Fired {
	out := make([]Fired, len(n.history))
	copy(out, n.history)
	return out
}

// OnDayPassed advances every countdown and fires at most one event.
func (n *Narrative) OnDayPassed() {
	n.day++
	fire := Tier(-1)
	for t := Common; t < numTiers; t++ {
		st := &n.tiers[t]
		if !st.present {
			continue
		}
		st.countdown--
		if st.countdown > 0 {
			continue
		}
		n.redraw(t)
		fire = t // ascending loop, so the rarest zero wins
	}
	if fire >= 0 {
		n.fire(fire)
	}
}

func (n *Narrative) redraw(t Tier) {
	st := &n.tiers[t]
	st.countdown = n.rng.IntRange(st.def.Min, st.def.Max)
}

// Sentiment returns the public-sentiment multiplier for a day, in
// [0.5, 1.5].
func (n *Narrative) Sentiment(day int, t Tier) float64 {
	return 0.5 + n.noise.Eval2(float64(day)*sentimentScale, float64(t))
}

func (n *Narrative) fire(t Tier) {
	defs := n.tiers[t].def.Events
	if len(defs) == 0 {
		return
	}
	def := defs[n.rng.IntRange(0, len(defs)-1)]
	sev := n.Sentiment(n.day, t)

	f := Fired{
		Day:        n.day,
		Tier:       t.String(),
		Name:       def.Name,
		Severity:   sev,
		Budget:     int64(math.Round(float64(def.Budget) * sev)),
		Happiness:  def.Happiness * sev,
		Population: int(math.Round(float64(def.Population) * sev)),
	}

	if f.Budget != 0 {
		n.ledger.AdjustBudget(f.Budget)
	}
	if f.Happiness != 0 {
		n.ledger.AdjustHappiness(f.Happiness)
	}
	if f.Population > 0 {
		n.pop.AddNewPopulation(f.Population)
		n.ledger.AddPopulation(f.Population)
	}
	if def.Stat != "" && def.Days > 0 {
		field := n.ledger.Stats.Field(def.Stat)
		mult := def.Multiplier
		n.sched.After(def.Name, def.Days,
			func() { *field *= mult },
			func() { *field /= mult },
		)
	}

	n.history = append(n.history, f)
	slog.Info("narrative event",
		"day", f.Day,
		"tier", f.Tier,
		"name", f.Name,
		"severity", fmt.Sprintf("%.2f", f.Severity),
		"budget", f.Budget,
		"happiness", fmt.Sprintf("%.1f", f.Happiness),
		"population", f.Population,
	)
	if n.OnFire != nil {
		n.OnFire(f)
	}
}
