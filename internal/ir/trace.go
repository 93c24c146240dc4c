package ir

// Session is one recorded program run.
// CreatedAtSeq is the logical clock value when the session started, never
// wall-clock time.
type Session struct {
	ID           string `json:"id"`
	Program      string `json:"program"`
	ProgramHash  string `json:"program_hash"`
	Strategy     string `json:"strategy"`
	Seed         int64  `json:"seed"`
	MaxSteps     int    `json:"max_steps"`
	CreatedAtSeq int64  `json:"created_at_seq"`
}

// TriggerRecord is an external event injected into a session.
type TriggerRecord struct {
	SessionID string  `json:"session_id"`
	Seq       int64   `json:"seq"`
	Type      string  `json:"type"`
	Data      IRValue `json:"data"`
}

// SelectionRecord is one event the engine selected.
// Hash is SelectionHash(Seq, Type, Data); Strand names the requesting strand
// and is not part of the hash.
type SelectionRecord struct {
	SessionID string  `json:"session_id"`
	Seq       int64   `json:"seq"`
	Type      string  `json:"type"`
	Data      IRValue `json:"data"`
	Strand    string  `json:"strand,omitempty"`
	Hash      string  `json:"hash"`
}

// NewSelectionRecord builds a record with its content hash filled in.
func NewSelectionRecord(sessionID string, seq int64, eventType string, data IRValue) (SelectionRecord, error) {
	if data == nil {
		data = IRNull{}
	}
	h, err := SelectionHash(seq, eventType, data)
	if err != nil {
		return SelectionRecord{}, err
	}
	return SelectionRecord{
		SessionID: sessionID,
		Seq:       seq,
		Type:      eventType,
		Data:      data,
		Hash:      h,
	}, nil
}
