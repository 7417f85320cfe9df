package agents

import (
	"fmt"
	"slices"

	"github.com/talgya/outbreak/internal/entropy"
)

// Population is the authoritative collection of agents. Agents are
// addressed by index only for the duration of a tick; removals and
// insertions shift indices.
type Population struct {
	agents []Agent
	rng    entropy.Source
}

// NewPopulation creates a store of size healthy citizens, of which
// infected randomly chosen ones start out unknowingly infected.
func NewPopulation(size, infected int, rng entropy.Source) *Population {
	if infected > size {
		infected = size
	}
	p := &Population{
		agents: make([]Agent, size),
		rng:    rng,
	}
	for _, i := range p.pickDistinct(infected, func(Agent) bool { return true }) {
		p.agents[i].Health = UnknowinglyInfected
	}
	return p
}

// Len returns the number of living agents in the store.
func (p *Population) Len() int { return len(p.agents) }

// At returns the agent at index i.
func (p *Population) At(i int) Agent { return p.agents[i] }

// SetHealth overwrites the health state of the agent at index i.
func (p *Population) SetHealth(i int, h HealthState) {
	if !h.Valid() {
		panic(fmt.Sprintf("agents: invalid health state %d", h))
	}
	p.agents[i].Health = h
}

// Remove deletes the agent at index i, shrinking the store.
func (p *Population) Remove(i int) Agent {
	a := p.agents[i]
	p.agents = slices.Delete(p.agents, i, i+1)
	return a
}

// Count returns how many agents hold the given role.
func (p *Population) Count(role Role) int {
	n := 0
	for _, a := range p.agents {
		if a.Role == role {
			n++
		}
	}
	return n
}

// CountHealth returns how many agents are in the given health state.
func (p *Population) CountHealth(h HealthState) int {
	n := 0
	for _, a := range p.agents {
		if a.Health == h {
			n++
		}
	}
	return n
}

// Snapshot returns a copy of the agents for read-only consumers.
func (p *Population) Snapshot() []Agent {
	return slices.Clone(p.agents)
}

// DistributeNewRoles reassigns amt randomly chosen citizens to role.
// Police keep their health state; health workers start as TestKit or
// Cure carriers depending on asTestKit. amt is clamped to the number of
// eligible citizens, so the call always proceeds and reports true.
func (p *Population) DistributeNewRoles(amt int, role Role, asTestKit bool) bool {
	p.Retrain(amt, role, asTestKit)
	return true
}

// Retrain is DistributeNewRoles returning the agents as they were before
// reassignment, so callers can settle counters for lost health states.
func (p *Population) Retrain(amt int, role Role, asTestKit bool) []Agent {
	if role == RoleCitizen {
		panic("agents: cannot distribute the citizen role")
	}
	if !role.Valid() {
		panic(fmt.Sprintf("agents: unknown role %d", role))
	}

	picked := p.pickDistinct(amt, func(a Agent) bool { return a.Role == RoleCitizen })
	replaced := make([]Agent, 0, len(picked))
	for _, i := range picked {
		replaced = append(replaced, p.agents[i])
		health := p.agents[i].Health
		if role == RoleHealthWorker {
			health = Cure
			if asTestKit {
				health = TestKit
			}
		}
		p.agents[i] = Agent{Role: role, Health: health}
	}
	return replaced
}

// AddNewPopulation inserts amt healthy citizens at random positions.
func (p *Population) AddNewPopulation(amt int) {
	for range amt {
		pos := p.rng.IntRange(0, len(p.agents))
		p.agents = slices.Insert(p.agents, pos, Agent{Role: RoleCitizen, Health: Healthy})
	}
}

// pickDistinct returns up to n distinct indices of agents matching
// eligible, uniformly at random (partial Fisher-Yates over candidates).
func (p *Population) pickDistinct(n int, eligible func(Agent) bool) []int {
	candidates := make([]int, 0, len(p.agents))
	for i, a := range p.agents {
		if eligible(a) {
			candidates = append(candidates, i)
		}
	}
	if n > len(candidates) {
		n = len(candidates)
	}
	if n <= 0 {
		return nil
	}
	for i := 0; i < n; i++ {
		j := p.rng.IntRange(i, len(candidates)-1)
		candidates[i], candidates[j] = candidates[j], candidates[i]
	}
	return candidates[:n]
}
