// Package tracestore records wand sessions (raw samples plus emitted
// events) in SQLite so a run can be replayed deterministically through a
// fresh engine. It is a diagnostics surface: it never feeds calibration back
// into the engine.
package tracestore

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/helmside/paddlesense/internal/gesture"
)

// Store wraps the trace database.
type Store struct {
	*sql.DB
	path string
}

// Open opens (or creates) the trace database at path and applies pending
// migrations.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	if _, err := db.Exec(`
		PRAGMA journal_mode = WAL;
		PRAGMA busy_timeout = 5000;
		PRAGMA foreign_keys = ON;
	`); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set pragmas: %w", err)
	}

	s := &Store{DB: db, path: path}
	if err := s.MigrateUp(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Session describes one recorded run.
type Session struct {
	ID         string     `json:"id"`
	StartedAt  time.Time  `json:"started_at"`
	EndedAt    *time.Time `json:"ended_at,omitempty"`
	Note       string     `json:"note"`
	ConfigJSON string     `json:"config_json"`
	Samples    int        `json:"samples"`
	Events     int        `json:"events"`
}

// EventRow is one recorded engine event.
type EventRow struct {
	Seq       int       `json:"seq"`
	Time      time.Time `json:"time"`
	Kind      string    `json:"kind"`
	Side      string    `json:"side,omitempty"`
	Intensity float64   `json:"intensity,omitempty"`
	Detail    string    `json:"detail"`
}

// BeginSession creates a new session row and returns its ID. cfg is stored
// as JSON so a replay can reconstruct the exact engine tuning.
func (s *Store) BeginSession(now time.Time, note string, cfg gesture.Config) (string, error) {
	cfgJSON, err := json.Marshal(cfg)
	if err != nil {
		return "", fmt.Errorf("failed to encode config: %w", err)
	}

	id := uuid.NewString()
	_, err = s.Exec(
		`INSERT INTO sessions (id, started_at, note, config_json) VALUES (?, ?, ?, ?)`,
		id, now.UnixNano(), note, string(cfgJSON),
	)
	if err != nil {
		return "", fmt.Errorf("failed to create session: %w", err)
	}
	return id, nil
}

// EndSession stamps the session's end time.
func (s *Store) EndSession(id string, now time.Time) error {
	res, err := s.Exec(`UPDATE sessions SET ended_at = ? WHERE id = ?`, now.UnixNano(), id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("unknown session %q", id)
	}
	return nil
}

// AppendSamples writes a batch of raw samples in one transaction, numbered
// from seqStart. Batching keeps the 50 Hz hot path off per-row commits.
func (s *Store) AppendSamples(sessionID string, seqStart int, samples []gesture.RawSample) error {
	if len(samples) == 0 {
		return nil
	}

	tx, err := s.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(
		`INSERT INTO samples (session_id, seq, t_ns, angle, pitch, yaw, accel) VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i, raw := range samples {
		if _, err := stmt.Exec(sessionID, seqStart+i, raw.Timestamp.UnixNano(),
			raw.Angle, raw.Pitch, raw.Yaw, raw.Accel); err != nil {
			return fmt.Errorf("failed to insert sample %d: %w", seqStart+i, err)
		}
	}
	return tx.Commit()
}

// AppendEvent records one emitted engine event. The full event is kept as
// JSON detail; kind/side/intensity are lifted into columns for querying.
func (s *Store) AppendEvent(sessionID string, seq int, ev gesture.Event) error {
	detail, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("failed to encode event: %w", err)
	}

	var side string
	var intensity float64
	switch e := ev.(type) {
	case gesture.PaddleStroke:
		side = string(e.Side)
		intensity = e.Intensity
	case gesture.ForwardThrust:
		intensity = e.Intensity
	}

	_, err = s.Exec(
		`INSERT INTO events (session_id, seq, t_ns, kind, side, intensity, detail) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		sessionID, seq, ev.At().UnixNano(), string(ev.Kind()), side, intensity, string(detail),
	)
	return err
}

// Sessions lists all recorded sessions, newest first, with row counts.
func (s *Store) Sessions() ([]Session, error) {
	rows, err := s.Query(`
		SELECT s.id, s.started_at, s.ended_at, s.note, s.config_json,
		       (SELECT COUNT(*) FROM samples WHERE session_id = s.id),
		       (SELECT COUNT(*) FROM events WHERE session_id = s.id)
		FROM sessions s
		ORDER BY s.started_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Session
	for rows.Next() {
		var sess Session
		var startedNS int64
		var endedNS sql.NullInt64
		if err := rows.Scan(&sess.ID, &startedNS, &endedNS, &sess.Note, &sess.ConfigJSON,
			&sess.Samples, &sess.Events); err != nil {
			return nil, err
		}
		sess.StartedAt = time.Unix(0, startedNS)
		if endedNS.Valid {
			t := time.Unix(0, endedNS.Int64)
			sess.EndedAt = &t
		}
		out = append(out, sess)
	}
	return out, rows.Err()
}

// LoadSamples returns a session's raw samples in sequence order, ready to
// replay through a fresh engine.
func (s *Store) LoadSamples(sessionID string) ([]gesture.RawSample, error) {
	rows, err := s.Query(
		`SELECT t_ns, angle, pitch, yaw, accel FROM samples WHERE session_id = ? ORDER BY seq`,
		sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []gesture.RawSample
	for rows.Next() {
		var tns int64
		var raw gesture.RawSample
		if err := rows.Scan(&tns, &raw.Angle, &raw.Pitch, &raw.Yaw, &raw.Accel); err != nil {
			return nil, err
		}
		raw.Timestamp = time.Unix(0, tns)
		out = append(out, raw)
	}
	return out, rows.Err()
}

// LoadEvents returns a session's recorded events in sequence order.
func (s *Store) LoadEvents(sessionID string) ([]EventRow, error) {
	rows, err := s.Query(
		`SELECT seq, t_ns, kind, side, intensity, detail FROM events WHERE session_id = ? ORDER BY seq`,
		sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []EventRow
	for rows.Next() {
		var ev EventRow
		var tns int64
		if err := rows.Scan(&ev.Seq, &tns, &ev.Kind, &ev.Side, &ev.Intensity, &ev.Detail); err != nil {
			return nil, err
		}
		ev.Time = time.Unix(0, tns)
		out = append(out, ev)
	}
	return out, rows.Err()
}

// SessionConfig reconstructs the engine tuning a session was recorded with.
func (s *Store) SessionConfig(sessionID string) (gesture.Config, error) {
	var cfgJSON string
	err := s.QueryRow(`SELECT config_json FROM sessions WHERE id = ?`, sessionID).Scan(&cfgJSON)
	if err != nil {
		return gesture.Config{}, err
	}
	cfg := gesture.DefaultConfig()
	if err := json.Unmarshal([]byte(cfgJSON), &cfg); err != nil {
		return gesture.Config{}, fmt.Errorf("failed to decode session config: %w", err)
	}
	return cfg, nil
}

// DeleteSession removes a session and, via cascade, its samples and events.
func (s *Store) DeleteSession(id string) error {
	res, err := s.Exec(`DELETE FROM sessions WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("unknown session %q", id)
	}
	return nil
}
