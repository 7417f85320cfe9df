// Package persistence records session history in SQLite: one row per
// closed day, the event log and the final outcome. It is an audit trail
// only; sessions are never restored from it.
package persistence

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/talgya/outbreak/internal/config"
	"github.com/talgya/outbreak/internal/economy"
	"github.com/talgya/outbreak/internal/engine"
)

// DB wraps a SQLite connection for session history.
type DB struct {
	conn *sqlx.DB
}

// Open opens or creates a SQLite database at the given path.
func Open(path string) (*DB, error) {
	conn, err := sqlx.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	// One writer; SQLite serializes anyway.
	conn.SetMaxOpenConns(1)

	db := &DB{conn: conn}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return db, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

func (db *DB) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS sessions (
		id TEXT PRIMARY KEY,
		difficulty TEXT NOT NULL,
		started_at INTEGER NOT NULL,
		preset_json TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS day_reports (
		session_id TEXT NOT NULL REFERENCES sessions(id),
		day INTEGER NOT NULL,
		week INTEGER NOT NULL,
		population INTEGER NOT NULL,
		infected INTEGER NOT NULL,
		unknowingly_infected INTEGER NOT NULL,
		deceased INTEGER NOT NULL,
		cured INTEGER NOT NULL,
		budget INTEGER NOT NULL,
		happiness REAL NOT NULL,
		compliance REAL NOT NULL,
		infection_ratio REAL NOT NULL,
		taxes INTEGER NOT NULL,
		expenses INTEGER NOT NULL,
		report_json TEXT NOT NULL,
		PRIMARY KEY (session_id, day)
	);

	CREATE TABLE IF NOT EXISTS events (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		session_id TEXT NOT NULL REFERENCES sessions(id),
		day INTEGER NOT NULL,
		description TEXT NOT NULL,
		category TEXT NOT NULL,
		meta_json TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS outcomes (
		session_id TEXT PRIMARY KEY REFERENCES sessions(id),
		day INTEGER NOT NULL,
		outcome TEXT NOT NULL,
		won INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_events_session ON events(session_id, day);
	`
	_, err := db.conn.Exec(schema)
	return err
}

// Session is a recorded session header.
type Session struct {
	ID         string `db:"id" json:"id"`
	Difficulty string `db:"difficulty" json:"difficulty"`
	StartedAt  int64  `db:"started_at" json:"started_at"`
}

// DayRow is the queryable part of a recorded day report.
type DayRow struct {
	Day                 int     `db:"day" json:"day"`
	Week                int     `db:"week" json:"week"`
	Population          int     `db:"population" json:"population"`
	Infected            int     `db:"infected" json:"infected"`
	UnknowinglyInfected int     `db:"unknowingly_infected" json:"unknowingly_infected"`
	Deceased            int     `db:"deceased" json:"deceased"`
	Cured               int     `db:"cured" json:"cured"`
	Budget              int64   `db:"budget" json:"budget"`
	Happiness           float64 `db:"happiness" json:"happiness"`
	Compliance          float64 `db:"compliance" json:"compliance"`
	InfectionRatio      float64 `db:"infection_ratio" json:"infection_ratio"`
	Taxes               int64   `db:"taxes" json:"taxes"`
	Expenses            int64   `db:"expenses" json:"expenses"`
}

// StartSession records a new session and returns its ID.
func (db *DB) StartSession(p config.Preset) (string, error) {
	id := uuid.NewString()
	preset, err := json.Marshal(p)
	if err != nil {
		return "", fmt.Errorf("encode preset: %w", err)
	}
	_, err = db.conn.Exec(
		"INSERT INTO sessions (id, difficulty, started_at, preset_json) VALUES (?, ?, ?, ?)",
		id, p.Name, time.Now().Unix(), string(preset),
	)
	if err != nil {
		return "", fmt.Errorf("insert session: %w", err)
	}
	slog.Info("session recorded", "session", id, "difficulty", p.Name)
	return id, nil
}

// SaveDay writes one day report together with the events logged since
// the previous day.
func (db *DB) SaveDay(sessionID string, rep engine.DayReport, events []engine.Event) error {
	reportJSON, err := json.Marshal(rep)
	if err != nil {
		return fmt.Errorf("encode report: %w", err)
	}

	tx, err := db.conn.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	st := rep.Stats
	_, err = tx.Exec(`INSERT OR REPLACE INTO day_reports
		(session_id, day, week, population, infected, unknowingly_infected,
		 deceased, cured, budget, happiness, compliance, infection_ratio,
		 taxes, expenses, report_json)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		sessionID, rep.Day, rep.Week, st.Population, st.Infected, st.UnknowinglyInfected,
		st.Deceased, st.Cured, st.Budget, st.Happiness, st.Compliance, rep.Ratio,
		rep.Statement.Taxes, rep.Statement.Expenses(), string(reportJSON),
	)
	if err != nil {
		return fmt.Errorf("insert day %d: %w", rep.Day, err)
	}

	for _, e := range events {
		metaJSON, err := json.Marshal(e.Meta)
		if err != nil {
			return fmt.Errorf("encode event meta: %w", err)
		}
		_, err = tx.Exec(
			"INSERT INTO events (session_id, day, description, category, meta_json) VALUES (?, ?, ?, ?, ?)",
			sessionID, e.Day, e.Description, e.Category, string(metaJSON),
		)
		if err != nil {
			return fmt.Errorf("insert event: %w", err)
		}
	}

	return tx.Commit()
}

// SaveOutcome records how a session ended. Only the first outcome per
// session is kept.
func (db *DB) SaveOutcome(sessionID string, day int, o economy.Outcome) error {
	won := 0
	if o.Won() {
		won = 1
	}
	_, err := db.conn.Exec(
		"INSERT OR IGNORE INTO outcomes (session_id, day, outcome, won) VALUES (?, ?, ?, ?)",
		sessionID, day, o.String(), won,
	)
	return err
}

// Sessions returns recorded sessions, newest first.
func (db *DB) Sessions(limit int) ([]Session, error) {
	var out []Session
	err := db.conn.Select(&out,
		"SELECT id, difficulty, started_at FROM sessions ORDER BY started_at DESC, rowid DESC LIMIT ?",
		limit,
	)
	return out, err
}

// History returns every recorded day of a session in day order.
func (db *DB) History(sessionID string) ([]DayRow, error) {
	var rows []DayRow
	err := db.conn.Select(&rows, `SELECT day, week, population, infected, unknowingly_infected,
		deceased, cured, budget, happiness, compliance, infection_ratio, taxes, expenses
		FROM day_reports WHERE session_id = ? ORDER BY day`, sessionID)
	return rows, err
}

// OutcomeRow is a recorded session outcome.
type OutcomeRow struct {
	Day     int    `db:"day" json:"day"`
	Outcome string `db:"outcome" json:"outcome"`
	Won     bool   `db:"won" json:"won"`
}

// Outcome returns the recorded outcome of a session, if any.
func (db *DB) Outcome(sessionID string) (OutcomeRow, bool, error) {
	var row OutcomeRow
	err := db.conn.Get(&row, "SELECT day, outcome, won FROM outcomes WHERE session_id = ?", sessionID)
	if errors.Is(err, sql.ErrNoRows) {
		return OutcomeRow{}, false, nil
	}
	if err != nil {
		return OutcomeRow{}, false, err
	}
	return row, true, nil
}

// RecentEvents returns the most recent N events of a session, newest first.
func (db *DB) RecentEvents(sessionID string, limit int) ([]engine.Event, error) {
	var rows []struct {
		Day         int    `db:"day"`
		Description string `db:"description"`
		Category    string `db:"category"`
		MetaJSON    string `db:"meta_json"`
	}
	err := db.conn.Select(&rows,
		"SELECT day, description, category, meta_json FROM events WHERE session_id = ? ORDER BY id DESC LIMIT ?",
		sessionID, limit,
	)
	if err != nil {
		return nil, err
	}

	events := make([]engine.Event, 0, len(rows))
	for _, r := range rows {
		e := engine.Event{Day: r.Day, Description: r.Description, Category: r.Category}
		if err := json.Unmarshal([]byte(r.MetaJSON), &e.Meta); err != nil {
			return nil, fmt.Errorf("decode event meta: %w", err)
		}
		events = append(events, e)
	}
	return events, nil
}
