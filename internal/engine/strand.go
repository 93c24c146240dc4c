package engine

import (
	"iter"
	"math/rand/v2"
)

// Strand is a resumable unit of logic yielding one RuleSet per
// synchronization point. It is re-iterable: each registration or loop cycle
// starts a fresh pass.
type Strand func(yield func(RuleSet) bool)

// seq exposes the strand as an iterator for iter.Pull.
func (s Strand) seq() iter.Seq[RuleSet] {
	return iter.Seq[RuleSet](s)
}

// NewStrand yields each rule set in order, then completes.
func NewStrand(rules ...RuleSet) Strand {
	return func(yield func(RuleSet) bool) {
		for _, r := range rules {
			if !yield(r) {
				return
			}
		}
	}
}

// Sync is a strand with a single synchronization point.
func Sync(parts ...RuleSet) Strand {
	return NewStrand(Merge(parts...))
}

// Thread runs strands one after another.
func Thread(strands ...Strand) Strand {
	return func(yield func(RuleSet) bool) {
		for _, s := range strands {
			for r := range s {
				if !yield(r) {
					return
				}
			}
		}
	}
}

// Delegate chains strands sequentially. It is Thread under the name the
// generator idiom uses.
func Delegate(strands ...Strand) Strand {
	return Thread(strands...)
}

// Loop repeats s while guard returns true. guard is checked before every
// cycle; nil means forever. A cycle that yields nothing ends the loop so an
// empty body cannot spin inside a single resumption.
func Loop(s Strand, guard func() bool) Strand {
	if guard == nil {
		guard = func() bool { return true }
	}
	return func(yield func(RuleSet) bool) {
		for guard() {
			yielded := false
			for r := range s {
				yielded = true
				if !yield(r) {
					return
				}
			}
			if !yielded {
				return
			}
		}
	}
}

// Forever repeats s indefinitely.
func Forever(s Strand) Strand {
	return Loop(s, nil)
}

// RandomEvent picks one of events using rng. Combine with NewTemplate to
// request a different random event at every step.
func RandomEvent(rng *rand.Rand, events ...Event) Event {
	if len(events) == 0 {
		return Event{}
	}
	return events[rng.IntN(len(events))]
}

// ShuffleSyncs returns a strand yielding the rule sets in an order chosen by
// rng. The order is drawn afresh on every pass, so looping a shuffled strand
// visits a new permutation per cycle.
func ShuffleSyncs(rng *rand.Rand, rules ...RuleSet) Strand {
	return func(yield func(RuleSet) bool) {
		order := make([]RuleSet, len(rules))
		copy(order, rules)
		rng.Shuffle(len(order), func(i, j int) {
			order[i], order[j] = order[j], order[i]
		})
		for _, r := range order {
			if !yield(r) {
				return
			}
		}
	}
}
