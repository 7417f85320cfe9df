package protocol

import (
	"github.com/talgya/outbreak/internal/agents"
	"github.com/talgya/outbreak/internal/config"
	"github.com/talgya/outbreak/internal/economy"
	"github.com/talgya/outbreak/internal/entropy"
)

// DefaultRules returns the startup rule set. The pairs never overlap.
func DefaultRules(l *economy.Ledger, p *config.Preset, rng entropy.Source) []Rule {
	s := &l.Stats
	chance := func(prob float64) bool { return rng.Float() < prob }

	return []Rule{
		{
			Name:   "transmission",
			In1:    agents.Healthy,
			In2:    agents.UnknowinglyInfected,
			Out1:   agents.UnknowinglyInfected,
			Out2:   agents.UnknowinglyInfected,
			Effect: func() Result {
				l.RecordNewInfection()
				return Applied
			},
		},
		{
			// Known cases are isolated unless they break quarantine.
			Name:   "quarantine_breach",
			In1:    agents.Healthy,
			In2:    agents.Infected,
			Out1:   agents.UnknowinglyInfected,
			Out2:   agents.Infected,
			Effect: func() Result {
				if rng.Float() < s.Compliance/100 {
					return Blocked
				}
				l.RecordNewInfection()
				return Applied
			},
		},
		{
			Name:   "testing",
			In1:    agents.UnknowinglyInfected,
			In2:    agents.TestKit,
			Out1:   agents.Infected,
			Out2:   agents.TestKit,
			Effect: func() Result {
				if !l.CanAffordConsumable(s.TestKitPrice) {
					return Blocked
				}
				s.TestKitsToday++
				l.RecordDetection()
				return Applied
			},
		},
		{
			Name:   "symptom_onset",
			In1:    agents.UnknowinglyInfected,
			In2:    agents.UnknowinglyInfected,
			Out1:   agents.UnknowinglyInfected,
			Out2:   agents.Infected,
			Effect: func() Result {
				if !chance(p.SymptomRate) {
					return Blocked
				}
				l.RecordDetection()
				return Applied
			},
		},
		{
			Name:   "fatality",
			In1:    agents.Infected,
			In2:    agents.Infected,
			Out1:   agents.Infected,
			Out2:   agents.Deceased,
			Effect: func() Result {
				if !chance(p.MortalityRate) {
					return Blocked
				}
				s.Infected--
				s.Deceased++
				return Applied
			},
		},
		{
			Name:   "recovery",
			In1:    agents.Infected,
			In2:    agents.Immune,
			Out1:   agents.Immune,
			Out2:   agents.Immune,
			Effect: func() Result {
				if !chance(p.RecoveryRate) {
					return Blocked
				}
				s.Infected--
				s.Cured++
				return Applied
			},
		},
		{
			Name:   "silent_recovery",
			In1:    agents.UnknowinglyInfected,
			In2:    agents.Immune,
			Out1:   agents.Immune,
			Out2:   agents.Immune,
			Effect: func() Result {
				if !chance(p.RecoveryRate) {
					return Blocked
				}
				s.UnknowinglyInfected--
				s.Cured++
				return Applied
			},
		},
	}
}

// CureRules returns the vaccination rules unlocked at the top of the
// research ladder. Each fires only if one more vaccination is affordable.
func CureRules(l *economy.Ledger) []Rule {
	s := &l.Stats
	vaccinate := func(counter *int) Effect {
		return func() Result {
			if !l.CanAffordConsumable(s.VaccinationPrice) {
				return Blocked
			}
			s.VaccinesToday++
			if counter != nil {
				*counter--
				s.Cured++
			}
			return Applied
		}
	}

	return []Rule{
		{
			Name:   "vaccinate_healthy",
			In1:    agents.Healthy,
			In2:    agents.Cure,
			Out1:   agents.Immune,
			Out2:   agents.Cure,
			Effect: vaccinate(nil),
		},
		{
			Name:   "vaccinate_infected",
			In1:    agents.Infected,
			In2:    agents.Cure,
			Out1:   agents.Immune,
			Out2:   agents.Cure,
			Effect: vaccinate(&s.Infected),
		},
		{
			Name:   "vaccinate_unknowingly_infected",
			In1:    agents.UnknowinglyInfected,
			In2:    agents.Cure,
			Out1:   agents.Immune,
			Out2:   agents.Cure,
			Effect: vaccinate(&s.UnknowinglyInfected),
		},
	}
}
