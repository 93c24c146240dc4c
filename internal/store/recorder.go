package store

import (
	"context"
	"fmt"

	"github.com/roach88/bsync/internal/engine"
	"github.com/roach88/bsync/internal/ir"
)

// Recorder persists a program's triggers and selections as they happen.
//
// It is an ordinary stream subscriber, so a write failure surfaces where any
// listener error would: a failed trigger write aborts that Trigger call
// before the event is injected, and a failed selection write is returned as
// a FEEDBACK_FAILED error.
type Recorder struct {
	store   *Store
	ctx     context.Context
	session ir.Session
	sub     *engine.Stream[engine.Message]
}

// Record writes sess and subscribes to p. sess.ID should be p.SessionID().
// Subscribe before adding feedback handlers so a selection is stored even
// when a later handler fails.
func (s *Store) Record(ctx context.Context, p *engine.Program, sess ir.Session) (*Recorder, error) {
	if err := s.WriteSession(ctx, sess); err != nil {
		return nil, err
	}

	r := &Recorder{store: s, ctx: ctx, session: sess}
	r.sub = p.Subscribe(r.handle)
	return r, nil
}

// Session returns the session being recorded.
func (r *Recorder) Session() ir.Session { return r.session }

// Stop detaches the recorder. Already written records stay.
func (r *Recorder) Stop() {
	r.sub.Disconnect()
}

func (r *Recorder) handle(m engine.Message) error {
	switch m.Kind {
	case engine.KindTrigger:
		data, err := ir.FromGo(m.Event.Data)
		if err != nil {
			return fmt.Errorf("record trigger %s: %w", m.Event.Type, err)
		}
		return r.store.WriteTrigger(r.ctx, ir.TriggerRecord{
			SessionID: r.session.ID,
			Seq:       m.Seq,
			Type:      string(m.Event.Type),
			Data:      data,
		})

	case engine.KindSelect:
		data, err := ir.FromGo(m.Event.Data)
		if err != nil {
			return fmt.Errorf("record selection %s: %w", m.Event.Type, err)
		}
		rec, err := ir.NewSelectionRecord(r.session.ID, m.Seq, string(m.Event.Type), data)
		if err != nil {
			return err
		}
		rec.Strand = m.Strand
		return r.store.WriteSelection(r.ctx, rec)
	}
	return nil
}
