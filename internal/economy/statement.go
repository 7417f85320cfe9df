// Package economy provides the stats ledger: daily income and expenses,
// happiness and compliance, weekly history and the end-of-game checks.
package economy

// IncomeStatement is one period's taxes and itemized expenses. Values are
// never mutated after construction; Add returns a new statement.
type IncomeStatement struct {
	Taxes        int64 `json:"taxes"`
	PoliceSalary int64 `json:"police_salary"`
	HWSalary     int64 `json:"hw_salary"`
	TestKits     int64 `json:"test_kits"`
	Vaccines     int64 `json:"vaccines"`
	Measures     int64 `json:"measures"`
}

// Add returns the field-wise sum of two statements.
func (s IncomeStatement) Add(o IncomeStatement) IncomeStatement {
	return IncomeStatement{
		Taxes:        s.Taxes + o.Taxes,
		PoliceSalary: s.PoliceSalary + o.PoliceSalary,
		HWSalary:     s.HWSalary + o.HWSalary,
		TestKits:     s.TestKits + o.TestKits,
		Vaccines:     s.Vaccines + o.Vaccines,
		Measures:     s.Measures + o.Measures,
	}
}

// Expenses is the sum of every expense line.
func (s IncomeStatement) Expenses() int64 {
	return s.PoliceSalary + s.HWSalary + s.TestKits + s.Vaccines + s.Measures
}

// Net is taxes minus expenses.
func (s IncomeStatement) Net() int64 {
	return s.Taxes - s.Expenses()
}
