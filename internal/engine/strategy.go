package engine

import (
	"fmt"
	"math/rand/v2"
	"slices"
	"strings"
)

// Candidate is one requested event, tagged with the priority of the strand
// that requested it.
type Candidate struct {
	Strand   string
	Priority int
	Trigger  bool
	Event    Event

	template *EventTemplate
}

// Strategy selects the next event from the step's candidates. It returns
// false when no unblocked candidate exists. A strategy must return one of
// the candidates it was given.
type Strategy interface {
	Name() string
	Select(candidates []Candidate, blocked []Idiom) (Candidate, bool)
}

// Strategy names accepted by ParseStrategy.
const (
	StrategyPriority           = "priority"
	StrategyRandomizedPriority = "randomizedPriority"
	StrategyChaos              = "chaos"
)

// Unblocked filters out candidates matched by any blocked idiom, keeping the
// original order.
func Unblocked(candidates []Candidate, blocked []Idiom) []Candidate {
	out := make([]Candidate, 0, len(candidates))
	for _, c := range candidates {
		if !matchesAny(blocked, c.Event) {
			out = append(out, c)
		}
	}
	return out
}

func sortByPriority(cs []Candidate) {
	slices.SortStableFunc(cs, func(a, b Candidate) int {
		return a.Priority - b.Priority
	})
}

// Priority selects the lowest priority number; ties go to the earliest
// candidate.
type Priority struct{}

func (Priority) Name() string { return StrategyPriority }

func (Priority) Select(candidates []Candidate, blocked []Idiom) (Candidate, bool) {
	filtered := Unblocked(candidates, blocked)
	if len(filtered) == 0 {
		return Candidate{}, false
	}
	sortByPriority(filtered)
	return filtered[0], true
}

// RandomizedPriority shuffles the unblocked candidates and then stable-sorts
// them by priority. Distinct priorities keep their order; only ties between
// equal priorities are randomized.
type RandomizedPriority struct {
	rng *rand.Rand
}

// NewRandomizedPriority returns a RandomizedPriority seeded for reproducible
// runs.
func NewRandomizedPriority(seed int64) *RandomizedPriority {
	return &RandomizedPriority{rng: newRand(seed)}
}

func (*RandomizedPriority) Name() string { return StrategyRandomizedPriority }

func (s *RandomizedPriority) Select(candidates []Candidate, blocked []Idiom) (Candidate, bool) {
	filtered := Unblocked(candidates, blocked)
	if len(filtered) == 0 {
		return Candidate{}, false
	}
	s.rng.Shuffle(len(filtered), func(i, j int) {
		filtered[i], filtered[j] = filtered[j], filtered[i]
	})
	sortByPriority(filtered)
	return filtered[0], true
}

// Chaos picks uniformly among the unblocked candidates, ignoring priority.
type Chaos struct {
	rng *rand.Rand
}

// NewChaos returns a Chaos strategy seeded for reproducible runs.
func NewChaos(seed int64) *Chaos {
	return &Chaos{rng: newRand(seed)}
}

func (*Chaos) Name() string { return StrategyChaos }

func (s *Chaos) Select(candidates []Candidate, blocked []Idiom) (Candidate, bool) {
	filtered := Unblocked(candidates, blocked)
	if len(filtered) == 0 {
		return Candidate{}, false
	}
	return filtered[s.rng.IntN(len(filtered))], true
}

func newRand(seed int64) *rand.Rand {
	return rand.New(rand.NewPCG(uint64(seed), 0x9e3779b97f4a7c15))
}

// ParseStrategy builds a strategy by name. Randomized strategies use seed.
// Names are matched case-insensitively and accept snake_case and kebab-case.
func ParseStrategy(name string, seed int64) (Strategy, error) {
	key := strings.ToLower(strings.NewReplacer("_", "", "-", "").Replace(name))
	switch key {
	case "", "priority":
		return Priority{}, nil
	case "randomizedpriority":
		return NewRandomizedPriority(seed), nil
	case "chaos":
		return NewChaos(seed), nil
	default:
		return nil, fmt.Errorf("unknown strategy %q (want %s, %s or %s)",
			name, StrategyPriority, StrategyRandomizedPriority, StrategyChaos)
	}
}
