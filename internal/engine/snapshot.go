package engine

import "slices"

// Snapshot is a debug projection of one step: every candidate with the
// strands blocking or interrupting it, the blocked idioms, and the strands
// parked in pending.
type Snapshot struct {
	Candidates []CandidateView `json:"candidates"`
	Blocked    []BlockedView   `json:"blocked"`
	Pending    []string        `json:"pending"`
	Selected   *Event          `json:"selected,omitempty"`
}

// CandidateView describes one candidate. Candidates are sorted by priority.
type CandidateView struct {
	Strand     string    `json:"strand"`
	Trigger    bool      `json:"trigger"`
	Selected   bool      `json:"selected"`
	Type       EventType `json:"type"`
	Data       any       `json:"data,omitempty"`
	Priority   int       `json:"priority"`
	BlockedBy  string    `json:"blocked_by,omitempty"`
	Interrupts string    `json:"interrupts,omitempty"`
}

// BlockedView is one block idiom and the strand holding it.
type BlockedView struct {
	Strand string `json:"strand"`
	Idiom  string `json:"idiom"`
}

// buildSnapshot formats the step state. BlockedBy and Interrupts name the
// first pending strand whose block or interrupt idiom matches the candidate.
func buildSnapshot(candidates []Candidate, pending []*bid, selected *Candidate) *Snapshot {
	snap := &Snapshot{
		Candidates: make([]CandidateView, 0, len(candidates)),
		Blocked:    []BlockedView{},
		Pending:    make([]string, 0, len(pending)),
	}

	for _, b := range pending {
		snap.Pending = append(snap.Pending, b.name)
		for _, id := range b.rules.Block {
			snap.Blocked = append(snap.Blocked, BlockedView{Strand: b.name, Idiom: id.String()})
		}
	}

	for _, c := range candidates {
		view := CandidateView{
			Strand:   c.Strand,
			Trigger:  c.Trigger,
			Type:     c.Event.Type,
			Data:     c.Event.Data,
			Priority: c.Priority,
		}
		if selected != nil {
			view.Selected = sameRequest(*selected, c)
		}
		for _, b := range pending {
			if view.BlockedBy == "" && matchesAny(b.rules.Block, c.Event) {
				view.BlockedBy = b.name
			}
			if view.Interrupts == "" && matchesAny(b.rules.Interrupt, c.Event) {
				view.Interrupts = b.name
			}
		}
		snap.Candidates = append(snap.Candidates, view)
	}
	slices.SortStableFunc(snap.Candidates, func(a, b CandidateView) int {
		return a.Priority - b.Priority
	})

	if selected != nil {
		ev := selected.Event
		snap.Selected = &ev
	}
	return snap
}

// sameRequest reports whether c would be promoted by selecting sel: same
// template, or same type for concrete requests.
func sameRequest(sel, c Candidate) bool {
	if c.template != nil {
		return c.template == sel.template
	}
	return c.Event.Type == sel.Event.Type
}
