package engine

import "sync"

// Stream is a minimal synchronous pub/sub channel. Publish calls every
// listener in subscription order on the caller's goroutine; the first error
// stops the emission and is returned.
//
// Subscribe and Map return derived streams, so listeners chain:
//
//	selects := Map(p.Stream(), func(m Message) (Event, bool) {
//		return m.Event, m.Kind == KindSelect
//	})
//	selects.Subscribe(func(ev Event) error { ... })
type Stream[T any] struct {
	mu        sync.Mutex
	listeners []*listener[T]
	detach    func()
}

type listener[T any] struct {
	fn func(T) error
}

// NewStream creates a stream with no listeners.
func NewStream[T any]() *Stream[T] {
	return &Stream[T]{}
}

// Publish delivers v to every listener.
func (s *Stream[T]) Publish(v T) error {
	s.mu.Lock()
	ls := make([]*listener[T], len(s.listeners))
	copy(ls, s.listeners)
	s.mu.Unlock()

	for _, l := range ls {
		if err := l.fn(v); err != nil {
			return err
		}
	}
	return nil
}

// Subscribe registers fn and returns a derived stream that re-emits every
// value fn accepted without error. Call Disconnect on the derived stream to
// remove fn.
func (s *Stream[T]) Subscribe(fn func(T) error) *Stream[T] {
	derived := &Stream[T]{}
	l := &listener[T]{fn: func(v T) error {
		if err := fn(v); err != nil {
			return err
		}
		return derived.Publish(v)
	}}
	derived.detach = s.add(l)
	return derived
}

// Map derives a stream of fn's results. Values for which fn returns false
// are dropped.
func Map[T, U any](s *Stream[T], fn func(T) (U, bool)) *Stream[U] {
	derived := &Stream[U]{}
	l := &listener[T]{fn: func(v T) error {
		u, ok := fn(v)
		if !ok {
			return nil
		}
		return derived.Publish(u)
	}}
	derived.detach = s.add(l)
	return derived
}

// Disconnect detaches a derived stream from its source. It is a no-op on a
// root stream and safe to call more than once.
func (s *Stream[T]) Disconnect() {
	s.mu.Lock()
	detach := s.detach
	s.detach = nil
	s.mu.Unlock()

	if detach != nil {
		detach()
	}
}

// Len returns the number of direct listeners.
func (s *Stream[T]) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.listeners)
}

func (s *Stream[T]) add(l *listener[T]) func() {
	s.mu.Lock()
	s.listeners = append(s.listeners, l)
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		for i, cur := range s.listeners {
			if cur == l {
				s.listeners = append(s.listeners[:i:i], s.listeners[i+1:]...)
				return
			}
		}
	}
}
