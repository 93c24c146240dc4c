package ir

import (
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSelectionHashDeterminism(t *testing.T) {
	data := IRObject{"temp": IRInt(90)}

	h1, err := SelectionHash(3, "hot", data)
	require.NoError(t, err)
	h2, err := SelectionHash(3, "hot", data)
	require.NoError(t, err)

	assert.Equal(t, h1, h2, "SelectionHash must be deterministic")
	assert.Len(t, h1, 64, "SHA-256 hex is 64 characters")
}

func TestSelectionHashChangesWithInput(t *testing.T) {
	base := MustSelectionHash(1, "hot", IRNull{})

	assert.NotEqual(t, base, MustSelectionHash(2, "hot", IRNull{}), "different seq")
	assert.NotEqual(t, base, MustSelectionHash(1, "cold", IRNull{}), "different type")
	assert.NotEqual(t, base, MustSelectionHash(1, "hot", IRInt(1)), "different data")
}

func TestSelectionHashNilDataIsNull(t *testing.T) {
	assert.Equal(t, MustSelectionHash(1, "hot", nil), MustSelectionHash(1, "hot", IRNull{}))
}

func TestSelectionHashKeyOrdering(t *testing.T) {
	a := IRObject{"x": IRInt(1), "y": IRInt(2)}
	b := IRObject{"y": IRInt(2), "x": IRInt(1)}
	assert.Equal(t, MustSelectionHash(1, "move", a), MustSelectionHash(1, "move", b))
}

func TestSelectionHashRejectsFloats(t *testing.T) {
	_, err := SelectionHash(1, "x", IRObject{"bad": IRArray{nil}})
	require.NoError(t, err, "nil elements encode as null")

	assert.Panics(t, func() {
		MustSelectionHash(1, "x", badValue{})
	})
}

// badValue satisfies IRValue without being one of the sealed kinds.
type badValue struct{}

func (badValue) irValue() {}

func TestTraceHash(t *testing.T) {
	h1 := MustSelectionHash(1, "hot", nil)
	h2 := MustSelectionHash(2, "cold", nil)

	t1, err := TraceHash([]string{h1, h2})
	require.NoError(t, err)
	t2, err := TraceHash([]string{h2, h1})
	require.NoError(t, err)
	empty, err := TraceHash(nil)
	require.NoError(t, err)

	assert.NotEqual(t, t1, t2, "order matters")
	assert.Len(t, empty, 64)
}

func TestProgramHash(t *testing.T) {
	spec := ProgramSpec{
		Name:     "hot-cold",
		Strategy: "priority",
		Strands: []StrandSpec{
			{Name: "addHot", Rules: []RuleSpec{
				{WaitFor: []IdiomSpec{{Type: "start"}}},
				{Request: []RequestSpec{{Type: "hot"}}},
			}},
		},
	}

	h1, err := ProgramHash(spec)
	require.NoError(t, err)
	h2, err := ProgramHash(spec)
	require.NoError(t, err)
	assert.Equal(t, h1, h2)

	spec.Strands[0].Repeat = true
	h3, err := ProgramHash(spec)
	require.NoError(t, err)
	assert.NotEqual(t, h1, h3)
}

func TestDomainSeparationPreventsCrossTypeCollision(t *testing.T) {
	data := []byte(`["x"]`)
	assert.NotEqual(t,
		hashWithDomain(DomainSelection, data),
		hashWithDomain(DomainTrace, data),
	)
}

func TestHashWithDomainNullSeparator(t *testing.T) {
	// "ab" + 0x00 + "c" must differ from "a" + 0x00 + "bc"
	assert.NotEqual(t,
		hashWithDomain("ab", []byte("c")),
		hashWithDomain("a", []byte("bc")),
	)
}

func TestDomainConstants(t *testing.T) {
	assert.Equal(t, "bsync/selection/v1", DomainSelection)
	assert.Equal(t, "bsync/trace/v1", DomainTrace)
	assert.Equal(t, "bsync/program/v1", DomainProgram)
}

func TestHashHexEncoding(t *testing.T) {
	h := MustSelectionHash(1, "hot", nil)
	_, err := hex.DecodeString(h)
	assert.NoError(t, err)
}

func TestNewSelectionRecord(t *testing.T) {
	rec, err := NewSelectionRecord("s-1", 4, "cold", nil)
	require.NoError(t, err)

	assert.Equal(t, "s-1", rec.SessionID)
	assert.Equal(t, int64(4), rec.Seq)
	assert.Equal(t, IRNull{}, rec.Data)
	assert.Equal(t, MustSelectionHash(4, "cold", IRNull{}), rec.Hash)
}

func TestIdiomSpecIsEmpty(t *testing.T) {
	assert.True(t, IdiomSpec{}.IsEmpty())
	assert.False(t, IdiomSpec{Type: "hot"}.IsEmpty())
	assert.False(t, IdiomSpec{Assert: "data > 1"}.IsEmpty())
}
