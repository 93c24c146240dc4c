package ir

// ProgramSpec is the compiled, data-only form of a program file.
// It is what the compiler produces and what gets hashed; turning it into
// runnable strands is the compiler's Build step.
type ProgramSpec struct {
	Name     string       `json:"name"`
	Strategy string       `json:"strategy,omitempty"`
	Public   []string     `json:"public,omitempty"`
	Strands  []StrandSpec `json:"strands"`
}

// StrandSpec declares one strand. Declaration order is registration order.
type StrandSpec struct {
	Name   string     `json:"name"`
	Repeat bool       `json:"repeat,omitempty"`
	Rules  []RuleSpec `json:"rules"`
}

// RuleSpec is one synchronization point of a strand.
type RuleSpec struct {
	WaitFor   []IdiomSpec   `json:"wait_for,omitempty"`
	Request   []RequestSpec `json:"request,omitempty"`
	Block     []IdiomSpec   `json:"block,omitempty"`
	Interrupt []IdiomSpec   `json:"interrupt,omitempty"`
}

// IdiomSpec is an event matcher. Assert holds expression source evaluated
// against the event's type and data; when set it takes precedence over Type.
type IdiomSpec struct {
	Type   string `json:"type,omitempty"`
	Assert string `json:"assert,omitempty"`
}

// IsEmpty reports whether the idiom can never match anything.
func (i IdiomSpec) IsEmpty() bool {
	return i.Type == "" && i.Assert == ""
}

// RequestSpec is a concrete event a strand proposes.
type RequestSpec struct {
	Type string  `json:"type"`
	Data IRValue `json:"data,omitempty"`
}

func (s ProgramSpec) toIR() IRObject {
	strands := make(IRArray, len(s.Strands))
	for i, st := range s.Strands {
		rules := make(IRArray, len(st.Rules))
		for j, r := range st.Rules {
			rules[j] = r.toIR()
		}
		strands[i] = IRObject{
			"name":   IRString(st.Name),
			"repeat": IRBool(st.Repeat),
			"rules":  rules,
		}
	}
	public := make(IRArray, len(s.Public))
	for i, p := range s.Public {
		public[i] = IRString(p)
	}
	return IRObject{
		"name":     IRString(s.Name),
		"strategy": IRString(s.Strategy),
		"public":   public,
		"strands":  strands,
	}
}

func (r RuleSpec) toIR() IRObject {
	requests := make(IRArray, len(r.Request))
	for i, req := range r.Request {
		data := req.Data
		if data == nil {
			data = IRNull{}
		}
		requests[i] = IRObject{"type": IRString(req.Type), "data": data}
	}
	return IRObject{
		"wait_for":  idiomsToIR(r.WaitFor),
		"request":   requests,
		"block":     idiomsToIR(r.Block),
		"interrupt": idiomsToIR(r.Interrupt),
	}
}

func idiomsToIR(idioms []IdiomSpec) IRArray {
	out := make(IRArray, len(idioms))
	for i, id := range idioms {
		out[i] = IRObject{"type": IRString(id.Type), "assert": IRString(id.Assert)}
	}
	return out
}
