package harness

import "github.com/roach88/bsync/internal/ir"

// Trace event kinds.
const (
	KindTrigger = "trigger"
	KindSelect  = "select"
)

// TraceEvent is one recorded entry of a scenario run: an injected trigger
// or a selected event. Data is the canonical IR form of the payload.
type TraceEvent struct {
	Kind   string     `json:"kind"`
	Seq    int64      `json:"seq"`
	Type   string     `json:"type"`
	Data   ir.IRValue `json:"data"`
	Strand string     `json:"strand,omitempty"`
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass is true when every trigger behaved as expected and every
	// assertion held.
	Pass bool `json:"pass"`

	SessionID string `json:"session_id"`

	// Trace holds triggers and selections merged in seq order, read back
	// from the store the run was recorded into.
	Trace []TraceEvent `json:"trace"`

	// TraceHash is ir.TraceHash over the selection hashes.
	TraceHash string `json:"trace_hash"`

	// Running and Pending are the strand names left after the last trigger.
	Running []string `json:"running"`
	Pending []string `json:"pending"`

	// Errors contains trigger and assertion failures.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:    true,
		Trace:   []TraceEvent{},
		Running: []string{},
		Pending: []string{},
		Errors:  []string{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// Selected returns only the selected events, in order.
func (r *Result) Selected() []TraceEvent {
	out := make([]TraceEvent, 0, len(r.Trace))
	for _, ev := range r.Trace {
		if ev.Kind == KindSelect {
			out = append(out, ev)
		}
	}
	return out
}

// SelectedTypes returns the types of the selected events, in order.
func (r *Result) SelectedTypes() []string {
	sel := r.Selected()
	out := make([]string, len(sel))
	for i, ev := range sel {
		out[i] = ev.Type
	}
	return out
}
