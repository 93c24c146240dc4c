package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/bsync/internal/ir"
)

// ErrSessionNotFound is returned when a session id has no record.
var ErrSessionNotFound = errors.New("session not found")

// ReadSession retrieves a single session by ID.
// Returns ErrSessionNotFound if it does not exist.
func (s *Store) ReadSession(ctx context.Context, id string) (ir.Session, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, program, program_hash, strategy, seed, max_steps, created_at_seq
		FROM sessions
		WHERE id = ?
	`, id)

	sess, err := scanSession(row)
	if errors.Is(err, sql.ErrNoRows) {
		return ir.Session{}, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	return sess, err
}

// ReadSessions returns every session, oldest first. Sessions written at the
// same created_at_seq are ordered by id.
func (s *Store) ReadSessions(ctx context.Context) ([]ir.Session, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, program, program_hash, strategy, seed, max_steps, created_at_seq
		FROM sessions
		ORDER BY created_at_seq ASC, rowid ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query sessions: %w", err)
	}
	defer rows.Close()

	sessions := []ir.Session{}
	for rows.Next() {
		sess, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, sess)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sessions: %w", err)
	}
	return sessions, nil
}

// LatestSession returns the most recently written session.
// Returns ErrSessionNotFound if the store is empty.
func (s *Store) LatestSession(ctx context.Context) (ir.Session, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, program, program_hash, strategy, seed, max_steps, created_at_seq
		FROM sessions
		ORDER BY rowid DESC
		LIMIT 1
	`)

	sess, err := scanSession(row)
	if errors.Is(err, sql.ErrNoRows) {
		return ir.Session{}, ErrSessionNotFound
	}
	return sess, err
}

// ReadTriggers returns a session's triggers ordered by seq.
// Returns an empty slice (not nil) if there are none.
func (s *Store) ReadTriggers(ctx context.Context, sessionID string) ([]ir.TriggerRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT session_id, seq, type, data
		FROM triggers
		WHERE session_id = ?
		ORDER BY seq ASC
	`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("query triggers: %w", err)
	}
	defer rows.Close()

	triggers := []ir.TriggerRecord{}
	for rows.Next() {
		var (
			rec  ir.TriggerRecord
			data string
		)
		if err := rows.Scan(&rec.SessionID, &rec.Seq, &rec.Type, &data); err != nil {
			return nil, fmt.Errorf("scan trigger: %w", err)
		}
		if rec.Data, err = unmarshalData(data); err != nil {
			return nil, err
		}
		triggers = append(triggers, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate triggers: %w", err)
	}
	return triggers, nil
}

// ReadSelections returns a session's selected events ordered by seq.
// Returns an empty slice (not nil) if there are none.
func (s *Store) ReadSelections(ctx context.Context, sessionID string) ([]ir.SelectionRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT session_id, seq, type, data, strand, hash
		FROM selections
		WHERE session_id = ?
		ORDER BY seq ASC
	`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("query selections: %w", err)
	}
	defer rows.Close()

	selections := []ir.SelectionRecord{}
	for rows.Next() {
		var (
			rec  ir.SelectionRecord
			data string
		)
		if err := rows.Scan(&rec.SessionID, &rec.Seq, &rec.Type, &data, &rec.Strand, &rec.Hash); err != nil {
			return nil, fmt.Errorf("scan selection: %w", err)
		}
		if rec.Data, err = unmarshalData(data); err != nil {
			return nil, err
		}
		selections = append(selections, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate selections: %w", err)
	}
	return selections, nil
}

// scanner is satisfied by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanSession(row scanner) (ir.Session, error) {
	var sess ir.Session
	err := row.Scan(&sess.ID, &sess.Program, &sess.ProgramHash, &sess.Strategy, &sess.Seed, &sess.MaxSteps, &sess.CreatedAtSeq)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ir.Session{}, err
		}
		return ir.Session{}, fmt.Errorf("scan session: %w", err)
	}
	return sess, nil
}
