package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func candidate(strand string, priority int, t EventType) Candidate {
	return Candidate{Strand: strand, Priority: priority, Event: Event{Type: t}}
}

func TestUnblocked(t *testing.T) {
	cs := []Candidate{
		candidate("a", 1, "hot"),
		candidate("b", 2, "cold"),
		candidate("c", 3, "warm"),
	}

	got := Unblocked(cs, []Idiom{On("cold"), Match(func(ev Event) bool { return ev.Type == "warm" })})

	require.Len(t, got, 1)
	assert.Equal(t, "a", got[0].Strand)
	assert.Len(t, cs, 3, "input is not modified")
}

func TestPriority_SelectsLowest(t *testing.T) {
	cs := []Candidate{
		candidate("c", 3, "c"),
		candidate("a", 1, "a"),
		candidate("b", 2, "b"),
	}

	got, ok := Priority{}.Select(cs, nil)
	require.True(t, ok)
	assert.Equal(t, "a", got.Strand)
	assert.Equal(t, "c", cs[0].Strand, "input order is preserved")
}

func TestPriority_TieGoesToFirst(t *testing.T) {
	cs := []Candidate{
		candidate("x", 2, "x"),
		candidate("y", 2, "y"),
	}

	got, ok := Priority{}.Select(cs, nil)
	require.True(t, ok)
	assert.Equal(t, "x", got.Strand)
}

func TestPriority_AllBlocked(t *testing.T) {
	_, ok := Priority{}.Select([]Candidate{candidate("a", 1, "a")}, []Idiom{On("a")})
	assert.False(t, ok)

	_, ok = Priority{}.Select(nil, nil)
	assert.False(t, ok)
}

func TestRandomizedPriority_DistinctPrioritiesStayOrdered(t *testing.T) {
	s := NewRandomizedPriority(42)
	cs := []Candidate{
		candidate("b", 2, "b"),
		candidate("a", 1, "a"),
		candidate("c", 3, "c"),
	}

	for range 50 {
		got, ok := s.Select(cs, nil)
		require.True(t, ok)
		assert.Equal(t, "a", got.Strand)
	}
}

func TestRandomizedPriority_RandomizesTies(t *testing.T) {
	s := NewRandomizedPriority(7)
	cs := []Candidate{
		candidate("x", 1, "x"),
		candidate("y", 1, "y"),
		candidate("z", 5, "z"),
	}

	seen := map[string]int{}
	for range 200 {
		got, ok := s.Select(cs, nil)
		require.True(t, ok)
		seen[got.Strand]++
	}
	assert.Positive(t, seen["x"])
	assert.Positive(t, seen["y"])
	assert.Zero(t, seen["z"])
}

func TestRandomizedStrategies_SeedIsReproducible(t *testing.T) {
	cs := []Candidate{
		candidate("a", 1, "a"),
		candidate("b", 1, "b"),
		candidate("c", 1, "c"),
		candidate("d", 2, "d"),
	}

	pick := func(s Strategy) []string {
		var out []string
		for range 30 {
			got, _ := s.Select(cs, nil)
			out = append(out, got.Strand)
		}
		return out
	}

	assert.Equal(t, pick(NewRandomizedPriority(3)), pick(NewRandomizedPriority(3)))
	assert.Equal(t, pick(NewChaos(3)), pick(NewChaos(3)))
}

func TestChaos_IgnoresPriority(t *testing.T) {
	s := NewChaos(1)
	cs := []Candidate{
		candidate("a", 1, "a"),
		candidate("b", 100, "b"),
		candidate("blocked", 0, "nope"),
	}

	seen := map[string]int{}
	for range 200 {
		got, ok := s.Select(cs, []Idiom{On("nope")})
		require.True(t, ok)
		seen[got.Strand]++
	}
	assert.Positive(t, seen["a"])
	assert.Positive(t, seen["b"])
	assert.Zero(t, seen["blocked"])
}

func TestParseStrategy(t *testing.T) {
	tests := []struct {
		name string
		want string
	}{
		{"", StrategyPriority},
		{"priority", StrategyPriority},
		{"randomizedPriority", StrategyRandomizedPriority},
		{"randomized_priority", StrategyRandomizedPriority},
		{"randomized-priority", StrategyRandomizedPriority},
		{"CHAOS", StrategyChaos},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := ParseStrategy(tt.name, 1)
			require.NoError(t, err)
			assert.Equal(t, tt.want, s.Name())
		})
	}

	_, err := ParseStrategy("fifo", 0)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "fifo")
}

func TestProgram_ChaosStillRespectsBlocks(t *testing.T) {
	for seed := range int64(20) {
		p := newTestProgram(t, WithStrategy(NewChaos(seed)))
		trace := recordSelections(p)
		require.NoError(t, p.Add(hotColdStrands()...))
		require.NoError(t, p.Trigger(Event{Type: "start"}))

		// mixHotCold forces alternation whatever the strategy picks.
		require.Len(t, *trace, 7)
		for i := 2; i < len(*trace); i++ {
			assert.NotEqual(t, (*trace)[i-1], (*trace)[i], "seed %d: %v", seed, *trace)
		}
	}
}
