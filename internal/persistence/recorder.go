package persistence

import (
	"log/slog"

	"github.com/talgya/outbreak/internal/config"
	"github.com/talgya/outbreak/internal/economy"
	"github.com/talgya/outbreak/internal/engine"
)

// Recorder streams one session into the database. Its methods run on the
// simulation goroutine as engine hooks; write failures are logged and
// never stop the session.
type Recorder struct {
	db        *DB
	sessionID string
	pending   []engine.Event
}

// NewRecorder records a new session for preset p. Install it with
// Options before the session starts.
func NewRecorder(db *DB, p config.Preset) (*Recorder, error) {
	id, err := db.StartSession(p)
	if err != nil {
		return nil, err
	}
	return &Recorder{db: db, sessionID: id}, nil
}

// Options returns the simulation hooks that feed the recorder.
func (r *Recorder) Options() []engine.Option {
	return []engine.Option{
		engine.WithDayHook(r.OnDay),
		engine.WithEventHook(r.OnEvent),
		engine.WithNotifier(r),
	}
}

// SessionID returns the recorded session's ID.
func (r *Recorder) SessionID() string { return r.sessionID }

// OnEvent buffers an event until the day closes.
func (r *Recorder) OnEvent(e engine.Event) {
	r.pending = append(r.pending, e)
}

// OnDay writes the day report and the buffered events.
func (r *Recorder) OnDay(rep engine.DayReport) {
	if err := r.db.SaveDay(r.sessionID, rep, r.pending); err != nil {
		slog.Error("failed to record day", "session", r.sessionID, "day", rep.Day, "error", err)
		return
	}
	r.pending = r.pending[:0]
}

// Notify records the session outcome and the day it was decided.
func (r *Recorder) Notify(o economy.Outcome, day int) {
	if err := r.db.SaveOutcome(r.sessionID, day, o); err != nil {
		slog.Error("failed to record outcome", "session", r.sessionID, "outcome", o, "error", err)
	}
}
