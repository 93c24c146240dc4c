package engine

// EventType names an event. Matching by type is exact string equality.
type EventType string

// Event is the unit of selection: the engine picks exactly one per step.
type Event struct {
	Type EventType
	Data any
}

// Idiom matches events. When Assert is set it decides alone; otherwise the
// event type must equal Type. An idiom with neither matches nothing.
type Idiom struct {
	Type   EventType
	Assert func(Event) bool
}

// On matches events of the given type.
func On(t EventType) Idiom {
	return Idiom{Type: t}
}

// Match matches events for which fn returns true.
func Match(fn func(Event) bool) Idiom {
	return Idiom{Assert: fn}
}

// Any matches every event.
func Any() Idiom {
	return Idiom{Assert: func(Event) bool { return true }}
}

// Matches applies the matching rule used for both blocking and promotion.
func (i Idiom) Matches(ev Event) bool {
	if i.Assert != nil {
		return i.Assert(ev)
	}
	if i.Type == "" {
		return false
	}
	return i.Type == ev.Type
}

// String describes the idiom for snapshots and logs.
func (i Idiom) String() string {
	switch {
	case i.Assert != nil && i.Type != "":
		return string(i.Type) + "?"
	case i.Assert != nil:
		return "<assert>"
	case i.Type != "":
		return string(i.Type)
	default:
		return "<none>"
	}
}

func matchesAny(idioms []Idiom, ev Event) bool {
	for _, id := range idioms {
		if id.Matches(ev) {
			return true
		}
	}
	return false
}

// EventTemplate computes a requested event lazily, each time candidates are
// built. A template is identified by its pointer: a strand requesting a
// template is promoted only when an event built from that same template is
// selected.
type EventTemplate struct {
	build func() Event
}

// NewTemplate wraps build as a request template.
func NewTemplate(build func() Event) *EventTemplate {
	return &EventTemplate{build: build}
}

// Event builds the current event.
func (t *EventTemplate) Event() Event {
	return t.build()
}

// Request is an event a strand proposes for selection. Either Type (with
// optional Data) or Template is set.
type Request struct {
	Type     EventType
	Data     any
	Template *EventTemplate
}

// Emit requests an event with the given type and data.
func Emit(t EventType, data any) Request {
	return Request{Type: t, Data: data}
}

// Deferred requests whatever event tmpl builds at selection time.
func Deferred(tmpl *EventTemplate) Request {
	return Request{Template: tmpl}
}

// event resolves the request into a concrete event.
func (r Request) event() Event {
	if r.Template != nil {
		return r.Template.Event()
	}
	return Event{Type: r.Type, Data: r.Data}
}

// RuleSet is a strand's declared interest at one synchronization point.
// Interrupt idioms terminate the strand when a matching event is selected.
type RuleSet struct {
	WaitFor   []Idiom
	Request   []Request
	Block     []Idiom
	Interrupt []Idiom
}

// WaitFor builds a rule set that waits for any of the idioms.
func WaitFor(idioms ...Idiom) RuleSet {
	return RuleSet{WaitFor: idioms}
}

// Block builds a rule set that blocks any of the idioms.
func Block(idioms ...Idiom) RuleSet {
	return RuleSet{Block: idioms}
}

// Interrupt builds a rule set that is interrupted by any of the idioms.
func Interrupt(idioms ...Idiom) RuleSet {
	return RuleSet{Interrupt: idioms}
}

// Requests builds a rule set that requests the given events.
func Requests(reqs ...Request) RuleSet {
	return RuleSet{Request: reqs}
}

// Merge combines rule set fragments into one synchronization point,
// concatenating each list in argument order.
func Merge(parts ...RuleSet) RuleSet {
	var out RuleSet
	for _, p := range parts {
		out.WaitFor = append(out.WaitFor, p.WaitFor...)
		out.Request = append(out.Request, p.Request...)
		out.Block = append(out.Block, p.Block...)
		out.Interrupt = append(out.Interrupt, p.Interrupt...)
	}
	return out
}

// With is Merge with r as the first fragment.
func (r RuleSet) With(parts ...RuleSet) RuleSet {
	return Merge(append([]RuleSet{r}, parts...)...)
}

// requested reports whether one of the rule set's requests produced the
// selected candidate. Template requests compare by template identity,
// concrete requests by type.
func (r RuleSet) requested(c Candidate) bool {
	for _, req := range r.Request {
		if req.Template != nil {
			if req.Template == c.template {
				return true
			}
			continue
		}
		if req.Type == c.Event.Type {
			return true
		}
	}
	return false
}
