package economy

import "fmt"

// Outcome is an end-of-game condition.
type Outcome uint8

const (
	OutcomeNone Outcome = iota
	OutcomeFullEradication
	OutcomeSoftWin
	OutcomePopulationCollapse
	OutcomeBankruptcy
)

func (o Outcome) String() string {
	switch o {
	case OutcomeNone:
		return "none"
	case OutcomeFullEradication:
		return "full_eradication"
	case OutcomeSoftWin:
		return "soft_win"
	case OutcomePopulationCollapse:
		return "population_collapse"
	case OutcomeBankruptcy:
		return "bankruptcy"
	}
	panic(fmt.Sprintf("economy: unknown outcome %d", o))
}

// Won reports whether the outcome is a victory.
func (o Outcome) Won() bool {
	return o == OutcomeFullEradication || o == OutcomeSoftWin
}

// Evaluate returns the first end condition that holds, in fixed priority:
// full eradication, soft win, population collapse, bankruptcy.
func (l *Ledger) Evaluate() Outcome {
	s := &l.Stats
	switch {
	case s.Infected == 0 && s.UnknowinglyInfected == 0:
		return OutcomeFullEradication
	case s.Infected == 0 && s.FirstCaseFound:
		return OutcomeSoftWin
	case s.Population-s.HWCount <= 0:
		return OutcomePopulationCollapse
	case s.Budget < s.BankruptcyThreshold:
		return OutcomeBankruptcy
	}
	return OutcomeNone
}
