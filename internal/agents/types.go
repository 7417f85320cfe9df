// Package agents provides the agent data model and the population store
// the protocol engine samples from.
package agents

import "fmt"

// Role is an agent's function in the population. It is fixed for the
// lifetime of an Agent value; reassignment replaces the agent.
type Role uint8

const (
	RoleCitizen Role = iota
	RolePolice
	RoleHealthWorker
)

func (r Role) String() string {
	switch r {
	case RoleCitizen:
		return "citizen"
	case RolePolice:
		return "police"
	case RoleHealthWorker:
		return "health_worker"
	}
	panic(fmt.Sprintf("agents: unknown role %d", r))
}

// Valid reports whether r is a defined role.
func (r Role) Valid() bool { return r <= RoleHealthWorker }

// ParseRole maps a role name from outside the process to a Role.
func ParseRole(name string) (Role, error) {
	for _, r := range []Role{RoleCitizen, RolePolice, RoleHealthWorker} {
		if r.String() == name {
			return r, nil
		}
	}
	return 0, fmt.Errorf("unknown role %q", name)
}

// HealthState is the finite state an agent carries through interactions.
// Cure and TestKit only have meaning for health-worker agents; the rule
// table, not the type, enforces that.
type HealthState uint8

const (
	Healthy HealthState = iota
	UnknowinglyInfected
	Infected
	Cure
	TestKit
	Immune
	Deceased
)

// NumHealthStates is the number of defined health states.
const NumHealthStates = 7

func (h HealthState) String() string {
	switch h {
	case Healthy:
		return "healthy"
	case UnknowinglyInfected:
		return "unknowingly_infected"
	case Infected:
		return "infected"
	case Cure:
		return "cure"
	case TestKit:
		return "test_kit"
	case Immune:
		return "immune"
	case Deceased:
		return "deceased"
	}
	panic(fmt.Sprintf("agents: unknown health state %d", h))
}

// Valid reports whether h is a defined health state.
func (h HealthState) Valid() bool { return h < NumHealthStates }

// Agent is one anonymous member of the population.
type Agent struct {
	Role   Role        `json:"role"`
	Health HealthState `json:"health"`
}
