package db

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/banshee-data/pulse.report/internal/monitoring"
)

// Session is one acquisition run.
type Session struct {
	ID        string    `json:"id"`
	Source    string    `json:"source"`
	StartedAt time.Time `json:"started_at"`
	EndedAt   time.Time `json:"ended_at,omitzero"`
	Samples   int64     `json:"samples"`
	Lines     int64     `json:"lines"`
	Overflows int64     `json:"overflows"`
	Malformed int64     `json:"malformed"`
	Accepted  int64     `json:"accepted"`
	Outcome   string    `json:"outcome,omitempty"`
	Error     string    `json:"error,omitempty"`
}

// Running reports whether the session has not been finished.
func (s *Session) Running() bool { return s.EndedAt.IsZero() }

// SessionEnd carries what FinishSession records about a run.
type SessionEnd struct {
	EndedAt time.Time
	Outcome string
	Err     error
	Stats   monitoring.StatsSnapshot
}

const sessionColumns = `id, source, started_unix_nanos, ended_unix_nanos,
	samples, lines, overflows, malformed, accepted, outcome, error`

// StartSession inserts a new running session and returns its id.
func (db *DB) StartSession(source string, startedAt time.Time) (string, error) {
	id := uuid.NewString()
	_, err := db.Exec(
		`INSERT INTO sessions (id, source, started_unix_nanos) VALUES (?, ?, ?)`,
		id, source, startedAt.UnixNano(),
	)
	if err != nil {
		return "", fmt.Errorf("failed to start session: %w", err)
	}
	return id, nil
}

// FinishSession records the end of a session with its final counters.
func (db *DB) FinishSession(id string, end SessionEnd) error {
	var errText sql.NullString
	if end.Err != nil {
		errText = sql.NullString{String: end.Err.Error(), Valid: true}
	}
	res, err := db.Exec(`
		UPDATE sessions SET
			ended_unix_nanos = ?, outcome = ?, error = ?,
			samples = ?, lines = ?, overflows = ?, malformed = ?, accepted = ?
		WHERE id = ?`,
		end.EndedAt.UnixNano(), end.Outcome, errText,
		end.Stats.Samples, end.Stats.Lines, end.Stats.Overflows, end.Stats.Malformed, end.Stats.Accepted,
		id,
	)
	if err != nil {
		return fmt.Errorf("failed to finish session %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to finish session %s: %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("failed to finish session %s: %w", id, ErrSessionNotFound)
	}
	return nil
}

// GetSession returns one session by id.
func (db *DB) GetSession(id string) (*Session, error) {
	row := db.QueryRow(`SELECT `+sessionColumns+` FROM sessions WHERE id = ?`, id)
	s, err := scanSession(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session %s: %w", id, err)
	}
	return s, nil
}

// Sessions returns the most recent sessions first. A limit <= 0 returns all.
func (db *DB) Sessions(limit int) ([]Session, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := db.Query(
		`SELECT `+sessionColumns+` FROM sessions ORDER BY started_unix_nanos DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	defer rows.Close()

	var sessions []Session
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan session: %w", err)
		}
		sessions = append(sessions, *s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	return sessions, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanSession(row scanner) (*Session, error) {
	var (
		s       Session
		started int64
		ended   sql.NullInt64
		outcome sql.NullString
		errText sql.NullString
	)
	if err := row.Scan(&s.ID, &s.Source, &started, &ended,
		&s.Samples, &s.Lines, &s.Overflows, &s.Malformed, &s.Accepted, &outcome, &errText); err != nil {
		return nil, err
	}
	s.StartedAt = time.Unix(0, started).UTC()
	if ended.Valid {
		s.EndedAt = time.Unix(0, ended.Int64).UTC()
	}
	s.Outcome = outcome.String
	s.Error = errText.String
	return &s, nil
}
