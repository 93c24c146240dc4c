package testutil

import "github.com/roach88/bsync/internal/engine"

// DefaultSessionID is used when a scenario does not name its session.
const DefaultSessionID = "test-session-default"

// FixedSessionGenerator generates the same session id every time.
//
// Golden traces embed the session id, so a scenario run twice with the same
// generator produces byte-identical output.
//
// Unlike engine.FixedGenerator, which hands out ids in sequence and panics
// when exhausted, this generator never runs out.
//
// Thread-safety: FixedSessionGenerator is stateless and safe for concurrent use.
type FixedSessionGenerator struct {
	id string
}

var _ engine.SessionIDGenerator = (*FixedSessionGenerator)(nil)

// NewFixedSessionGenerator creates a generator that always returns id.
// If id is empty, Generate() returns DefaultSessionID.
func NewFixedSessionGenerator(id string) *FixedSessionGenerator {
	if id == "" {
		id = DefaultSessionID
	}
	return &FixedSessionGenerator{id: id}
}

// Generate returns the fixed session id.
func (g *FixedSessionGenerator) Generate() string {
	return g.id
}
