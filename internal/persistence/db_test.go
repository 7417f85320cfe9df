package persistence

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talgya/outbreak/internal/config"
	"github.com/talgya/outbreak/internal/economy"
	"github.com/talgya/outbreak/internal/engine"
	"github.com/talgya/outbreak/internal/entropy"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestRecorderWritesDaysEventsAndOutcome(t *testing.T) {
	db := openTestDB(t)
	p := config.Normal()
	p.Budget = 1_000_000

	rec, err := NewRecorder(db, p)
	require.NoError(t, err)
	sim, err := engine.NewSimulation(p, entropy.NewSeeded(21), rec.Options()...)
	require.NoError(t, err)

	ok, err := sim.ToggleMeasure("mask_mandate")
	require.NoError(t, err)
	require.True(t, ok)
	sim.AdvanceDays(3)

	rows, err := db.History(rec.SessionID())
	require.NoError(t, err)
	require.Len(t, rows, 3)
	for i, r := range rows {
		assert.Equal(t, i+1, r.Day)
	}
	last := sim.LastReport()
	assert.Equal(t, last.Stats.Budget, rows[2].Budget)
	assert.Equal(t, last.Stats.Infected, rows[2].Infected)
	assert.Equal(t, int64(150), last.Statement.Measures)

	evs, err := db.RecentEvents(rec.SessionID(), 10)
	require.NoError(t, err)
	require.NotEmpty(t, evs)
	oldest := evs[len(evs)-1]
	assert.Equal(t, "policy", oldest.Category)
	assert.Equal(t, "mask_mandate", oldest.Meta["measure"])

	_, found, err := db.Outcome(rec.SessionID())
	require.NoError(t, err)
	assert.False(t, found)

	rec.Notify(economy.OutcomeBankruptcy, 5)
	rec.Notify(economy.OutcomeSoftWin, 6)
	outcome, found, err := db.Outcome(rec.SessionID())
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "bankruptcy", outcome.Outcome)
	assert.Equal(t, 5, outcome.Day)
	assert.False(t, outcome.Won)
}

func TestOutcomeRecordedOnDecidingDay(t *testing.T) {
	db := openTestDB(t)
	p := config.Normal()
	p.InitialInfected = 0

	rec, err := NewRecorder(db, p)
	require.NoError(t, err)
	sim, err := engine.NewSimulation(p, entropy.NewSeeded(4), rec.Options()...)
	require.NoError(t, err)

	// No infections at all: the first frame already decides the session,
	// before any day has been recorded.
	sim.Frame()
	require.Equal(t, economy.OutcomeFullEradication, sim.Outcome())

	outcome, found, err := db.Outcome(rec.SessionID())
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "full_eradication", outcome.Outcome)
	assert.Equal(t, 0, outcome.Day)
	assert.True(t, outcome.Won)

	// Later days do not move the recorded outcome.
	sim.AdvanceDays(2)
	outcome, _, err = db.Outcome(rec.SessionID())
	require.NoError(t, err)
	assert.Equal(t, 0, outcome.Day)
}

func TestSaveDayRejectsUnencodableMeta(t *testing.T) {
	db := openTestDB(t)
	id, err := db.StartSession(config.Normal())
	require.NoError(t, err)

	bad := []engine.Event{{Day: 1, Description: "broken", Category: "policy", Meta: map[string]any{"ch": make(chan int)}}}
	err = db.SaveDay(id, engine.DayReport{Day: 1}, bad)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "encode event meta")

	// The day row was rolled back with the event.
	rows, err := db.History(id)
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestSessionsListed(t *testing.T) {
	db := openTestDB(t)
	a, err := db.StartSession(config.Easy())
	require.NoError(t, err)
	b, err := db.StartSession(config.Hard())
	require.NoError(t, err)
	assert.NotEqual(t, a, b)

	sessions, err := db.Sessions(10)
	require.NoError(t, err)
	require.Len(t, sessions, 2)
	assert.Equal(t, b, sessions[0].ID)
	assert.Equal(t, "hard", sessions[0].Difficulty)
}
