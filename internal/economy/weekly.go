package economy

import "slices"

// Weekly holds one slot per week since the session started.
// Headcount and hire series are snapshots; consumables and statements
// accumulate over the week.
type Weekly struct {
	Dead        []int             `json:"dead"`
	Cured       []int             `json:"cured"`
	Infected    []int             `json:"infected"`
	HiredHW     []int             `json:"hired_hw"`
	HiredPolice []int             `json:"hired_police"`
	Research    []int             `json:"research"`
	TestKits    []int             `json:"test_kits"`
	Vaccines    []int             `json:"vaccines"`
	Statements  []IncomeStatement `json:"statements"`
}

// Len returns the number of weekly slots.
func (w Weekly) Len() int { return len(w.Statements) }

func (w *Weekly) rollup(days int, s *Stats, st IncomeStatement) {
	if days%7 == 1 || w.Len() == 0 {
		w.Dead = append(w.Dead, 0)
		w.Cured = append(w.Cured, 0)
		w.Infected = append(w.Infected, 0)
		w.HiredHW = append(w.HiredHW, 0)
		w.HiredPolice = append(w.HiredPolice, 0)
		w.Research = append(w.Research, 0)
		w.TestKits = append(w.TestKits, 0)
		w.Vaccines = append(w.Vaccines, 0)
		w.Statements = append(w.Statements, IncomeStatement{})
	}

	i := w.Len() - 1
	w.Dead[i] = s.Deceased
	w.Cured[i] = s.Cured
	w.Infected[i] = s.Infected
	w.HiredHW[i] = s.HWHired
	w.HiredPolice[i] = s.PoliceHired
	w.Research[i] = s.ResearchLevel
	w.TestKits[i] += s.TestKitsToday
	w.Vaccines[i] += s.VaccinesToday
	w.Statements[i] = w.Statements[i].Add(st)
}

// Clone returns a deep copy for readers outside the session goroutine.
func (w *Weekly) Clone() Weekly {
	return Weekly{
		Dead:        slices.Clone(w.Dead),
		Cured:       slices.Clone(w.Cured),
		Infected:    slices.Clone(w.Infected),
		HiredHW:     slices.Clone(w.HiredHW),
		HiredPolice: slices.Clone(w.HiredPolice),
		Research:    slices.Clone(w.Research),
		TestKits:    slices.Clone(w.TestKits),
		Vaccines:    slices.Clone(w.Vaccines),
		Statements:  slices.Clone(w.Statements),
	}
}
