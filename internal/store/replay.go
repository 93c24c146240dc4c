package store

import (
	"context"
	"fmt"

	"github.com/roach88/bsync/internal/engine"
	"github.com/roach88/bsync/internal/ir"
)

// ReplayResult compares a recorded session with a fresh run.
type ReplayResult struct {
	SessionID    string
	Expected     []ir.SelectionRecord
	Actual       []ir.SelectionRecord
	ExpectedHash string
	ActualHash   string

	// Divergence is the index of the first differing selection, or -1.
	Divergence int

	// TriggerErrors holds errors returned while re-applying triggers.
	// Replay continues past them; the recorded run saw the same errors.
	TriggerErrors []string
}

// Match reports whether the fresh run reproduced the recording exactly.
func (r *ReplayResult) Match() bool {
	return r.ExpectedHash == r.ActualHash
}

// Replay re-applies a session's recorded triggers to p and compares the
// resulting selections with the stored ones by content hash.
//
// p must be a fresh program built from the same program file, strategy and
// seed as the recording, with a clock starting where the recording's did.
// Selections are compared including their seq, so any difference in step
// order shows up as a divergence.
//
// p is run once before the first trigger, as a recording host does after
// adding its strands. Every recorded trigger is then re-applied from the
// top level. A recording whose
// feedback handlers triggered events replays those events after the cascade
// that issued them, so it is only reproducible without such handlers.
func (s *Store) Replay(ctx context.Context, sessionID string, p *engine.Program) (*ReplayResult, error) {
	expected, err := s.ReadSelections(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("replay: %w", err)
	}
	triggers, err := s.ReadTriggers(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("replay: %w", err)
	}

	result := &ReplayResult{
		SessionID:  sessionID,
		Expected:   expected,
		Actual:     []ir.SelectionRecord{},
		Divergence: -1,
	}

	var capErr error
	sub := p.Subscribe(func(m engine.Message) error {
		if m.Kind != engine.KindSelect {
			return nil
		}
		data, err := ir.FromGo(m.Event.Data)
		if err != nil {
			capErr = err
			return nil
		}
		rec, err := ir.NewSelectionRecord(sessionID, m.Seq, string(m.Event.Type), data)
		if err != nil {
			capErr = err
			return nil
		}
		rec.Strand = m.Strand
		result.Actual = append(result.Actual, rec)
		return nil
	})
	defer sub.Disconnect()

	if err := p.Run(); err != nil {
		result.TriggerErrors = append(result.TriggerErrors, fmt.Sprintf("initial run: %v", err))
	}
	for _, t := range triggers {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		ev := engine.Event{Type: engine.EventType(t.Type), Data: ir.ToGo(t.Data)}
		if err := p.Trigger(ev); err != nil {
			result.TriggerErrors = append(result.TriggerErrors, fmt.Sprintf("seq %d %s: %v", t.Seq, t.Type, err))
		}
	}
	if capErr != nil {
		return nil, fmt.Errorf("replay: capture selection: %w", capErr)
	}

	if result.ExpectedHash, err = traceHash(expected); err != nil {
		return nil, err
	}
	if result.ActualHash, err = traceHash(result.Actual); err != nil {
		return nil, err
	}
	result.Divergence = firstDivergence(expected, result.Actual)

	return result, nil
}

func traceHash(recs []ir.SelectionRecord) (string, error) {
	hashes := make([]string, len(recs))
	for i, r := range recs {
		hashes[i] = r.Hash
	}
	return ir.TraceHash(hashes)
}

func firstDivergence(a, b []ir.SelectionRecord) int {
	n := min(len(a), len(b))
	for i := range n {
		if a[i].Hash != b[i].Hash {
			return i
		}
	}
	if len(a) != len(b) {
		return n
	}
	return -1
}
