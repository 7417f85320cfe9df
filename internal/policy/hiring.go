package policy

import (
	"log/slog"

	"github.com/talgya/outbreak/internal/agents"
	"github.com/talgya/outbreak/internal/config"
	"github.com/talgya/outbreak/internal/economy"
)

// Hiring converts citizens into staff for a one-off hiring fee.
type Hiring struct {
	ledger      *economy.Ledger
	pop         *agents.Population
	hwPrice     int64
	policePrice int64
}

// NewHiring returns a hiring desk priced from the preset.
func NewHiring(p *config.Preset, l *economy.Ledger, pop *agents.Population) *Hiring {
	return &Hiring{ledger: l, pop: pop, hwPrice: p.HWHirePrice, policePrice: p.PoliceHirePrice}
}

// HireHealthWorkers hires up to n health workers carrying test kits
// (asTestKit) or cures. n is clamped to the available citizens and only
// the clamped count is paid for.
func (h *Hiring) HireHealthWorkers(n int, asTestKit bool) bool {
	return h.hire(n, agents.RoleHealthWorker, asTestKit, h.hwPrice)
}

// HirePolice hires up to n police officers.
func (h *Hiring) HirePolice(n int) bool {
	return h.hire(n, agents.RolePolice, false, h.policePrice)
}

func (h *Hiring) hire(n int, role agents.Role, asTestKit bool, price int64) bool {
	n = min(n, h.pop.Count(agents.RoleCitizen))
	if n <= 0 || !h.ledger.Buy(n, price) {
		return false
	}
	replaced := h.pop.Retrain(n, role, asTestKit)
	h.ledger.RecordHires(role, replaced)
	slog.Info("staff hired", "role", role, "count", len(replaced), "budget", h.ledger.BudgetString())
	return true
}
