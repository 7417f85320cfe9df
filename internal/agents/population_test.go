package agents

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talgya/outbreak/internal/entropy"
)

func TestNewPopulationSeedsInfections(t *testing.T) {
	p := NewPopulation(500, 12, entropy.NewSeeded(3))
	assert.Equal(t, 500, p.Len())
	assert.Equal(t, 12, p.CountHealth(UnknowinglyInfected))
	assert.Equal(t, 488, p.CountHealth(Healthy))
	assert.Equal(t, 500, p.Count(RoleCitizen))
}

func TestDistributeNewRolesPolicePreservesHealth(t *testing.T) {
	p := NewPopulation(50, 50, entropy.NewSeeded(1))

	require.True(t, p.DistributeNewRoles(10, RolePolice, false))
	assert.Equal(t, 10, p.Count(RolePolice))
	for _, a := range p.Snapshot() {
		assert.Equal(t, UnknowinglyInfected, a.Health)
	}
}

func TestDistributeNewRolesHealthWorkerVariants(t *testing.T) {
	p := NewPopulation(40, 0, entropy.NewSeeded(2))

	assert.True(t, p.DistributeNewRoles(5, RoleHealthWorker, true))
	assert.Equal(t, 5, p.CountHealth(TestKit))

	assert.True(t, p.DistributeNewRoles(7, RoleHealthWorker, false))
	assert.Equal(t, 7, p.CountHealth(Cure))
	assert.Equal(t, 12, p.Count(RoleHealthWorker))
}

func TestDistributeNewRolesClampsToEligible(t *testing.T) {
	p := NewPopulation(10, 0, entropy.NewSeeded(4))
	p.DistributeNewRoles(4, RolePolice, false)

	assert.True(t, p.DistributeNewRoles(100, RoleHealthWorker, true))
	assert.Equal(t, 6, p.Count(RoleHealthWorker))
	assert.Equal(t, 4, p.Count(RolePolice), "police are never converted")
	assert.Equal(t, 0, p.Count(RoleCitizen))

	// No citizens left: still proceeds, nothing changes.
	assert.True(t, p.DistributeNewRoles(3, RolePolice, false))
	assert.Equal(t, 4, p.Count(RolePolice))
	assert.Empty(t, p.Retrain(3, RolePolice, false))
}

func TestDistributeCitizenRolePanics(t *testing.T) {
	p := NewPopulation(10, 0, entropy.NewSeeded(4))
	assert.Panics(t, func() { p.DistributeNewRoles(1, RoleCitizen, false) })
	assert.PanicsWithValue(t, "agents: unknown role 9", func() { p.DistributeNewRoles(1, Role(9), false) })
	assert.True(t, RoleHealthWorker.Valid())
	assert.False(t, Role(3).Valid())
}

func TestAddNewPopulationInsertsHealthyCitizens(t *testing.T) {
	p := NewPopulation(10, 10, entropy.NewSeeded(5))
	p.AddNewPopulation(15)
	assert.Equal(t, 25, p.Len())
	assert.Equal(t, 15, p.CountHealth(Healthy))
	assert.Equal(t, 10, p.CountHealth(UnknowinglyInfected))
}

func TestRemoveShrinksStore(t *testing.T) {
	p := NewPopulation(3, 0, entropy.NewSeeded(5))
	p.SetHealth(1, Deceased)
	removed := p.Remove(1)
	assert.Equal(t, Deceased, removed.Health)
	assert.Equal(t, 2, p.Len())
	assert.Zero(t, p.CountHealth(Deceased))
}

func TestUnknownEnumerantsPanic(t *testing.T) {
	assert.Panics(t, func() { _ = HealthState(42).String() })
	assert.Panics(t, func() { _ = Role(42).String() })
	p := NewPopulation(2, 0, entropy.NewSeeded(5))
	assert.Panics(t, func() { p.SetHealth(0, HealthState(42)) })
}

func TestRetrainReturnsPreviousAgents(t *testing.T) {
	p := NewPopulation(20, 20, entropy.NewSeeded(8))
	replaced := p.Retrain(4, RoleHealthWorker, false)
	require.Len(t, replaced, 4)
	for _, a := range replaced {
		assert.Equal(t, RoleCitizen, a.Role)
		assert.Equal(t, UnknowinglyInfected, a.Health)
	}
	assert.Equal(t, 4, p.CountHealth(Cure))
	assert.Equal(t, 16, p.CountHealth(UnknowinglyInfected))
}

func TestParseRole(t *testing.T) {
	r, err := ParseRole("health_worker")
	require.NoError(t, err)
	assert.Equal(t, RoleHealthWorker, r)
	_, err = ParseRole("mayor")
	assert.Error(t, err)
}
