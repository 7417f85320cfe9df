// Package engine assembles one outbreak session and drives it frame by
// frame: the clock, the daily pipeline and the outcome check.
package engine

import (
	"fmt"
	"log/slog"
	"math"

	"github.com/talgya/outbreak/internal/agents"
	"github.com/talgya/outbreak/internal/clock"
	"github.com/talgya/outbreak/internal/config"
	"github.com/talgya/outbreak/internal/economy"
	"github.com/talgya/outbreak/internal/entropy"
	"github.com/talgya/outbreak/internal/events"
	"github.com/talgya/outbreak/internal/policy"
	"github.com/talgya/outbreak/internal/protocol"
)

// maxEvents bounds the in-memory event log.
const maxEvents = 1000

// Event is a notable occurrence in the session.
type Event struct {
	Day         int            `json:"day"`
	Description string         `json:"description"`
	Category    string         `json:"category"` // "narrative", "policy", "outcome"
	Meta        map[string]any `json:"meta,omitempty"`
}

// DayReport summarizes one completed day.
type DayReport struct {
	Day       int                     `json:"day"`
	Week      int                     `json:"week"`
	SimTime   string                  `json:"sim_time"`
	Step      protocol.StepReport     `json:"step"`
	Statement economy.IncomeStatement `json:"statement"`
	Stats     economy.Stats           `json:"stats"`
	Ratio     float64                 `json:"infection_ratio"`
	Events    []events.Fired          `json:"events,omitempty"`
}

// Notifier receives the session outcome once it is decided, together
// with the day it was decided on.
type Notifier interface {
	Notify(outcome economy.Outcome, day int)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(economy.Outcome, int)

// Notify calls f.
func (f NotifierFunc) Notify(o economy.Outcome, day int) { f(o, day) }

// Option configures a Simulation.
type Option func(*Simulation)

// WithNotifier adds an outcome sink.
func WithNotifier(n Notifier) Option {
	return func(s *Simulation) { s.notifiers = append(s.notifiers, n) }
}

// WithDayHook adds a callback run after every daily report.
func WithDayHook(fn func(DayReport)) Option {
	return func(s *Simulation) { s.dayHooks = append(s.dayHooks, fn) }
}

// WithEventHook adds a callback run for every logged event.
func WithEventHook(fn func(Event)) Option {
	return func(s *Simulation) { s.eventHooks = append(s.eventHooks, fn) }
}

// Simulation holds one session and wires its services together. It is
// not safe for concurrent use; Runner serializes access.
type Simulation struct {
	Preset config.Preset

	Clock     *clock.Clock
	Pop       *agents.Population
	Ledger    *economy.Ledger
	Rules     *protocol.Table
	Protocol  *protocol.Engine
	Measures  *policy.Measures
	Research  *policy.Research
	Hiring    *policy.Hiring
	Skills    *policy.Skills
	Scheduler *events.Scheduler
	Narrative *events.Narrative

	Events []Event
	Frames uint64

	last       DayReport
	fired      []events.Fired
	outcome    economy.Outcome
	notifiers  []Notifier
	dayHooks   []func(DayReport)
	eventHooks []func(Event)
}

// NewSimulation builds every service of a session from a validated preset.
func NewSimulation(p config.Preset, rng entropy.Source, opts ...Option) (*Simulation, error) {
	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("new simulation: %w", err)
	}

	s := &Simulation{Preset: p, Clock: clock.New()}
	for _, opt := range opts {
		opt(s)
	}

	s.Pop = agents.NewPopulation(p.Population, p.InitialInfected, rng)
	s.Ledger = economy.NewLedger(&s.Preset)
	s.Ledger.RecordHires(agents.RoleHealthWorker, s.Pop.Retrain(p.InitialHealthWorkers, agents.RoleHealthWorker, true))
	s.Ledger.RecordHires(agents.RolePolice, s.Pop.Retrain(p.InitialPolice, agents.RolePolice, false))

	s.Rules = protocol.NewTable()
	s.Rules.MustAdd(protocol.DefaultRules(s.Ledger, &s.Preset, rng)...)
	s.Protocol = protocol.NewEngine(s.Pop, s.Rules, s.Ledger, rng)

	// The pipeline subscribes first so that modifiers scheduled later
	// always observe a closed day.
	s.Clock.Subscribe(s)
	s.Scheduler = events.NewScheduler(s.Clock)

	s.Measures = policy.NewMeasures(p.Measures, s.Ledger, s.Clock)
	s.Research = policy.NewResearch(&s.Preset, s.Ledger, s.Rules, s.Pop)
	s.Hiring = policy.NewHiring(&s.Preset, s.Ledger, s.Pop)
	s.Skills = policy.NewSkills(p.Skills, s.Ledger, s.Scheduler)

	seed := int64(rng.IntRange(0, math.MaxInt32))
	s.Narrative = events.NewNarrative(p.Events, s.Ledger, s.Pop, s.Scheduler, rng, seed)
	s.Narrative.OnFire = s.onNarrative

	slog.Info("session created",
		"difficulty", p.Name,
		"population", s.Pop.Len(),
		"infected", p.InitialInfected,
		"health_workers", s.Ledger.Stats.HWCount,
		"police", s.Ledger.Stats.PoliceCount,
		"budget", s.Ledger.BudgetString(),
		"rules", s.Rules.Len(),
	)
	return s, nil
}

// Frame advances the clock by one frame and then checks the outcome.
// The first outcome is latched and reported once; the session keeps
// running afterwards.
func (s *Simulation) Frame() {
	s.Frames++
	s.Clock.Tick()
	s.checkOutcome()
}

// AdvanceDays runs frames until n more days have passed. It returns the
// number of days actually run, which is short only if the clock is paused.
func (s *Simulation) AdvanceDays(n int) int {
	if s.Clock.Paused() {
		return 0
	}
	target := s.Clock.DaysSinceStart() + n
	for s.Clock.DaysSinceStart() < target {
		s.Frame()
	}
	return n
}

// Outcome returns the latched outcome, or OutcomeNone.
func (s *Simulation) Outcome() economy.Outcome { return s.outcome }

func (s *Simulation) checkOutcome() {
	if s.outcome != economy.OutcomeNone {
		return
	}
	o := s.Ledger.Evaluate()
	if o == economy.OutcomeNone {
		return
	}
	s.outcome = o
	day := s.Clock.DaysSinceStart()
	s.emit(Event{
		Day:         day,
		Description: fmt.Sprintf("session ended: %s", o),
		Category:    "outcome",
		Meta:        map[string]any{"outcome": o.String(), "won": o.Won()},
	})
	slog.Info("outcome decided", "outcome", o, "won", o.Won(), "day", day, "budget", s.Ledger.BudgetString())
	for _, n := range s.notifiers {
		n.Notify(o, day)
	}
}

// OnDayPassed runs the day pipeline in fixed order: interactions, ledger
// close, narrative events. Timed modifiers follow as separate clock
// listeners.
func (s *Simulation) OnDayPassed() {
	day := s.Clock.DaysSinceStart()
	s.fired = s.fired[:0]

	s.Ledger.BeginDay()
	// Panics once fewer than two agents remain, whether at the start of
	// the day or after deaths during it.
	step := s.Protocol.Step()
	st := s.Ledger.CloseDay(day, s.Measures.DailyCost())
	s.Narrative.OnDayPassed()

	rep := DayReport{
		Day:       day,
		Week:      s.Clock.WeeksSinceStart(),
		SimTime:   s.Clock.SimTime(),
		Step:      step,
		Statement: st,
		Stats:     s.Ledger.Stats,
		Ratio:     s.Ledger.InfectionRatio(),
		Events:    append([]events.Fired(nil), s.fired...),
	}
	s.last = rep

	stats := &s.Ledger.Stats
	slog.Info("daily report",
		"day", day,
		"time", rep.SimTime,
		"population", stats.Population,
		"infected", stats.Infected,
		"unknowingly_infected", stats.UnknowinglyInfected,
		"deceased", stats.Deceased,
		"cured", stats.Cured,
		"selections", step.Selections,
		"applied", step.Applied,
		"blocked", step.Blocked,
		"ratio", fmt.Sprintf("%.2f", rep.Ratio),
		"happiness", fmt.Sprintf("%.1f", stats.Happiness),
		"compliance", fmt.Sprintf("%.1f", stats.Compliance),
		"income", st.Taxes,
		"expenses", st.Expenses(),
		"budget", s.Ledger.BudgetString(),
	)

	for _, fn := range s.dayHooks {
		fn(rep)
	}
}

// LastReport returns the most recent day report.
func (s *Simulation) LastReport() DayReport { return s.last }

func (s *Simulation) onNarrative(f events.Fired) {
	s.fired = append(s.fired, f)
	s.emit(Event{
		Day:         f.Day,
		Description: fmt.Sprintf("%s event: %s", f.Tier, f.Name),
		Category:    "narrative",
		Meta: map[string]any{
			"severity":   f.Severity,
			"budget":     f.Budget,
			"happiness":  f.Happiness,
			"population": f.Population,
		},
	})
}

// emit appends to the event log, keeping the most recent entries.
func (s *Simulation) emit(e Event) {
	s.Events = append(s.Events, e)
	if len(s.Events) > maxEvents {
		s.Events = s.Events[len(s.Events)-maxEvents:]
	}
	for _, fn := range s.eventHooks {
		fn(e)
	}
}

// RecentEvents returns up to n of the latest events, oldest first.
func (s *Simulation) RecentEvents(n int) []Event {
	start := max(0, len(s.Events)-n)
	return append([]Event(nil), s.Events[start:]...)
}
