package store

import (
	"context"
	"fmt"

	"github.com/roach88/bsync/internal/ir"
)

// WriteSession inserts a session record.
// Uses ON CONFLICT(id) DO NOTHING for idempotency - a session id written
// twice keeps its first record.
func (s *Store) WriteSession(ctx context.Context, sess ir.Session) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sessions
		(id, program, program_hash, strategy, seed, max_steps, created_at_seq)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`,
		sess.ID,
		sess.Program,
		sess.ProgramHash,
		sess.Strategy,
		sess.Seed,
		sess.MaxSteps,
		sess.CreatedAtSeq,
	)
	if err != nil {
		return fmt.Errorf("write session: %w", err)
	}
	return nil
}

// WriteTrigger inserts an external event injected into a session.
// Note: The session must exist (foreign key constraint).
func (s *Store) WriteTrigger(ctx context.Context, rec ir.TriggerRecord) error {
	dataJSON, err := marshalData(rec.Data)
	if err != nil {
		return fmt.Errorf("write trigger: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO triggers (session_id, seq, type, data)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(session_id, seq) DO NOTHING
	`,
		rec.SessionID,
		rec.Seq,
		rec.Type,
		dataJSON,
	)
	if err != nil {
		return fmt.Errorf("write trigger: %w", err)
	}
	return nil
}

// WriteSelection inserts one selected event.
// Note: The session must exist (foreign key constraint).
func (s *Store) WriteSelection(ctx context.Context, rec ir.SelectionRecord) error {
	dataJSON, err := marshalData(rec.Data)
	if err != nil {
		return fmt.Errorf("write selection: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO selections (session_id, seq, type, data, strand, hash)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(session_id, seq) DO NOTHING
	`,
		rec.SessionID,
		rec.Seq,
		rec.Type,
		dataJSON,
		rec.Strand,
		rec.Hash,
	)
	if err != nil {
		return fmt.Errorf("write selection: %w", err)
	}
	return nil
}
