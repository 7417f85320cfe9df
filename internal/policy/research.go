package policy

import (
	"log/slog"

	"github.com/talgya/outbreak/internal/agents"
	"github.com/talgya/outbreak/internal/config"
	"github.com/talgya/outbreak/internal/economy"
	"github.com/talgya/outbreak/internal/protocol"
)

// Research is the ladder towards a cure. Reaching the top level adds the
// vaccination rules and trains a batch of citizens as cure carriers.
type Research struct {
	ledger    *economy.Ledger
	prices    []int64
	table     *protocol.Table
	pop       *agents.Population
	cureBatch int
}

// NewResearch wires the ladder to the session's rules and population.
func NewResearch(p *config.Preset, l *economy.Ledger, table *protocol.Table, pop *agents.Population) *Research {
	return &Research{
		ledger:    l,
		prices:    p.ResearchPrices,
		table:     table,
		pop:       pop,
		cureBatch: p.CureBatch,
	}
}

// Level returns the current research level.
func (r *Research) Level() int { return r.ledger.Stats.ResearchLevel }

// NextPrice returns the price of the next level, or false at the top.
func (r *Research) NextPrice() (int64, bool) {
	lvl := r.Level()
	if lvl >= config.ResearchLevels {
		return 0, false
	}
	return r.prices[lvl], true
}

// Buy purchases one level.
func (r *Research) Buy() bool {
	price, ok := r.NextPrice()
	if !ok || !r.ledger.Buy(1, price) {
		return false
	}
	r.ledger.Stats.ResearchLevel++
	slog.Info("research bought", "level", r.Level(), "price", price)

	if r.Level() == config.ResearchLevels {
		r.introduceCure()
	}
	return true
}

func (r *Research) introduceCure() {
	if !r.table.AddCureRules(protocol.CureRules(r.ledger)...) {
		return
	}
	replaced := r.pop.Retrain(r.cureBatch, agents.RoleHealthWorker, false)
	r.ledger.RecordHires(agents.RoleHealthWorker, replaced)
	slog.Info("cure introduced", "carriers", len(replaced), "rules", r.table.Len())
}
