package engine

import "slices"

// bid is a registered strand: its coroutine plus, once it has yielded, the
// rule set it is parked on.
type bid struct {
	name     string
	priority int
	trigger  bool

	next func() (RuleSet, bool)
	stop func()

	rules RuleSet
}

// bidSet is an insertion-ordered collection keyed by strand name.
// Re-inserting a removed name appends it to the end.
type bidSet struct {
	order  []string
	byName map[string]*bid
}

func newBidSet() *bidSet {
	return &bidSet{byName: make(map[string]*bid)}
}

func (s *bidSet) set(b *bid) {
	if _, ok := s.byName[b.name]; !ok {
		s.order = append(s.order, b.name)
	}
	s.byName[b.name] = b
}

func (s *bidSet) remove(name string) {
	if _, ok := s.byName[name]; !ok {
		return
	}
	delete(s.byName, name)
	if i := slices.Index(s.order, name); i >= 0 {
		s.order = slices.Delete(s.order, i, i+1)
	}
}

func (s *bidSet) has(name string) bool {
	_, ok := s.byName[name]
	return ok
}

func (s *bidSet) len() int {
	return len(s.order)
}

// first returns the earliest inserted bid.
func (s *bidSet) first() (*bid, bool) {
	if len(s.order) == 0 {
		return nil, false
	}
	return s.byName[s.order[0]], true
}

// list returns the bids in insertion order. The slice is a copy, so callers
// may mutate the set while ranging over it.
func (s *bidSet) list() []*bid {
	out := make([]*bid, len(s.order))
	for i, name := range s.order {
		out[i] = s.byName[name]
	}
	return out
}

func (s *bidSet) names() []string {
	return slices.Clone(s.order)
}

// StrandStatus reports where a named strand currently sits. A strand that is
// neither running nor pending has terminated or was never added.
type StrandStatus struct {
	Running bool `json:"running"`
	Pending bool `json:"pending"`
}

// Terminated reports whether the strand is in neither collection.
func (s StrandStatus) Terminated() bool {
	return !s.Running && !s.Pending
}
