package store

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/bsync/internal/engine"
	"github.com/roach88/bsync/internal/ir"
)

func selectionTypes(recs []ir.SelectionRecord) []string {
	out := make([]string, len(recs))
	for i, r := range recs {
		out[i] = r.Type
	}
	return out
}

func TestRecorderWritesTriggersAndSelections(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	p := quietProgram("rec-1")
	defer p.Close()
	hotCold(t, p)

	r, err := s.Record(ctx, p, testSession(p.SessionID()))
	require.NoError(t, err)
	defer r.Stop()
	assert.Equal(t, "rec-1", r.Session().ID)

	require.NoError(t, p.Trigger(engine.Event{Type: "start", Data: map[string]any{"by": "test"}}))

	triggers, err := s.ReadTriggers(ctx, "rec-1")
	require.NoError(t, err)
	require.Len(t, triggers, 1)
	assert.Equal(t, int64(1), triggers[0].Seq)
	assert.Equal(t, "start", triggers[0].Type)
	assert.Equal(t, ir.IRObject{"by": ir.IRString("test")}, triggers[0].Data)

	selections, err := s.ReadSelections(ctx, "rec-1")
	require.NoError(t, err)
	assert.Equal(t, []string{"start", "hot", "cold", "hot", "cold", "hot", "cold"}, selectionTypes(selections))
	assert.Equal(t, int64(2), selections[0].Seq, "trigger and selections share one clock")
	assert.Equal(t, "addHot", selections[1].Strand)
	assert.Equal(t, ir.MustSelectionHash(3, "hot", ir.IRNull{}), selections[1].Hash)
}

func TestRecorderStop(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	p := quietProgram("rec-2")
	defer p.Close()

	r, err := s.Record(ctx, p, testSession(p.SessionID()))
	require.NoError(t, err)

	require.NoError(t, p.Trigger(engine.Event{Type: "a"}))
	r.Stop()
	require.NoError(t, p.Trigger(engine.Event{Type: "b"}))

	selections, err := s.ReadSelections(ctx, "rec-2")
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, selectionTypes(selections))
}

func TestRecorderRejectsFloatData(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	p := quietProgram("rec-3")
	defer p.Close()

	_, err := s.Record(ctx, p, testSession(p.SessionID()))
	require.NoError(t, err)

	err = p.Trigger(engine.Event{Type: "temp", Data: 36.6})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "float")
	assert.Empty(t, p.Running(), "the refused trigger was never injected")
	assert.Empty(t, p.Pending())
}

func TestRecorderKeepsSelectionWhenFeedbackFails(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	p := quietProgram("rec-4")
	defer p.Close()

	_, err := s.Record(ctx, p, testSession(p.SessionID()))
	require.NoError(t, err)
	p.Feedback(engine.Handlers{"boom": func(any) error { return errors.New("handler failed") }})

	err = p.Trigger(engine.Event{Type: "boom"})
	require.Error(t, err)
	assert.True(t, engine.IsFeedbackError(err))

	selections, err := s.ReadSelections(ctx, "rec-4")
	require.NoError(t, err)
	assert.Equal(t, []string{"boom"}, selectionTypes(selections))
}

func TestReplayReproducesRecording(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	orig := quietProgram("orig")
	hotCold(t, orig)
	r, err := s.Record(ctx, orig, testSession("orig"))
	require.NoError(t, err)
	require.NoError(t, orig.Trigger(engine.Event{Type: "start"}))
	require.NoError(t, orig.Trigger(engine.Event{Type: "noise", Data: int64(3)}))
	r.Stop()
	orig.Close()

	fresh := quietProgram("fresh")
	defer fresh.Close()
	hotCold(t, fresh)

	result, err := s.Replay(ctx, "orig", fresh)
	require.NoError(t, err)
	assert.True(t, result.Match())
	assert.Equal(t, -1, result.Divergence)
	assert.Len(t, result.Actual, 8)
	assert.Empty(t, result.TriggerErrors)
}

func TestReplayDetectsDivergence(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	orig := quietProgram("orig")
	hotCold(t, orig)
	_, err := s.Record(ctx, orig, testSession("orig"))
	require.NoError(t, err)
	require.NoError(t, orig.Trigger(engine.Event{Type: "start"}))
	orig.Close()

	// Without the interleaving strand the hot requests all win first.
	fresh := quietProgram("fresh")
	defer fresh.Close()
	hot := engine.Requests(engine.Emit("hot", nil))
	cold := engine.Requests(engine.Emit("cold", nil))
	require.NoError(t, fresh.Add(
		engine.Named("addHot", engine.NewStrand(engine.WaitFor(engine.On("start")), hot, hot, hot)),
		engine.Named("addCold", engine.NewStrand(engine.WaitFor(engine.On("start")), cold, cold, cold)),
	))

	result, err := s.Replay(ctx, "orig", fresh)
	require.NoError(t, err)
	assert.False(t, result.Match())
	assert.Equal(t, 2, result.Divergence, "start and the first hot agree")
	assert.Equal(t, []string{"start", "hot", "hot", "hot", "cold", "cold", "cold"}, selectionTypes(result.Actual))
}

func TestReplayRunsBeforeFirstTrigger(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	build := func(id string) *engine.Program {
		p := quietProgram(id)
		require.NoError(t, p.Add(
			engine.Named("boot", engine.NewStrand(engine.Requests(engine.Emit("ready", nil)))),
			engine.Named("serve", engine.NewStrand(engine.WaitFor(engine.On("ready")), engine.WaitFor(engine.On("go")))),
		))
		return p
	}

	orig := build("orig")
	_, err := s.Record(ctx, orig, testSession("orig"))
	require.NoError(t, err)
	require.NoError(t, orig.Run())
	require.NoError(t, orig.Trigger(engine.Event{Type: "go"}))
	orig.Close()

	fresh := build("fresh")
	defer fresh.Close()

	result, err := s.Replay(ctx, "orig", fresh)
	require.NoError(t, err)
	assert.True(t, result.Match())
	assert.Equal(t, []string{"ready", "go"}, selectionTypes(result.Actual))
	assert.Equal(t, int64(1), result.Actual[0].Seq)
}

func TestFirstDivergence(t *testing.T) {
	a := []ir.SelectionRecord{{Hash: "1"}, {Hash: "2"}}

	assert.Equal(t, -1, firstDivergence(a, a))
	assert.Equal(t, 1, firstDivergence(a, []ir.SelectionRecord{{Hash: "1"}, {Hash: "x"}}))
	assert.Equal(t, 1, firstDivergence(a, a[:1]), "shorter run diverges where it stops")
	assert.Equal(t, 0, firstDivergence(nil, a))
}
