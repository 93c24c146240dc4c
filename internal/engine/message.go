package engine

// MessageKind distinguishes messages on a program's stream.
type MessageKind string

const (
	// KindSelect carries the event chosen by a step. Feedback listens here.
	KindSelect MessageKind = "select"
	// KindTrigger records an externally injected event.
	KindTrigger MessageKind = "trigger"
	// KindState carries a debug snapshot of one step.
	KindState MessageKind = "state"
	// KindWarning reports a recoverable misuse, such as a duplicate strand name.
	KindWarning MessageKind = "warning"
	// KindFeedbackError reports a feedback handler failure.
	KindFeedbackError MessageKind = "feedback_error"
	// KindStrandError reports a strand that panicked under fault isolation.
	KindStrandError MessageKind = "strand_error"
	// KindRestrictedTrigger reports an event refused by a restricted trigger.
	KindRestrictedTrigger MessageKind = "restricted_trigger_error"
)

// Message is one emission on a program's stream. Seq is set on select and
// trigger messages; the other fields depend on Kind.
type Message struct {
	Kind     MessageKind
	Seq      int64
	Event    Event
	Snapshot *Snapshot
	Strand   string
	Warning  string
	Err      error
}
