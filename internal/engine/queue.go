package engine

import (
	"context"
	"sync"
)

// eventQueue is a thread-safe FIFO queue of events waiting to be triggered.
//
// The queue is unbounded so producers never block on a busy program.
// It uses a channel for signaling to enable context-aware waiting in the
// Run loop.
type eventQueue struct {
	mu     sync.Mutex
	events []Event
	closed bool
	signal chan struct{} // Signals event availability (buffered, size 1)
}

// newEventQueue creates an empty event queue.
func newEventQueue() *eventQueue {
	return &eventQueue{
		events: make([]Event, 0, 64),
		signal: make(chan struct{}, 1),
	}
}

// Enqueue adds an event to the back of the queue.
// Returns false if the queue is closed.
func (q *eventQueue) Enqueue(e Event) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return false
	}

	q.events = append(q.events, e)

	// Non-blocking: the buffer of 1 coalesces multiple signals
	select {
	case q.signal <- struct{}{}:
	default:
	}

	return true
}

// TryDequeue attempts to dequeue without blocking.
// Returns (Event{}, false) if queue is empty.
func (q *eventQueue) TryDequeue() (Event, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.events) == 0 {
		return Event{}, false
	}

	e := q.events[0]

	// Nil out the slot so the event's data can be collected.
	q.events[0] = Event{}

	if len(q.events) == 1 {
		q.events = q.events[:0]
	} else {
		q.events = q.events[1:]
	}

	return e, true
}

// Wait returns a channel that signals when events may be available.
func (q *eventQueue) Wait() <-chan struct{} {
	return q.signal
}

// Len returns the current queue length.
func (q *eventQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.events)
}

// Close signals that no more events will be enqueued.
// Wakes any blocked waiters by closing the signal channel.
func (q *eventQueue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return
	}

	q.closed = true
	close(q.signal)
}

// EventLoop serializes triggers from many goroutines onto one Program.
//
// Thread-safety model:
//   - Enqueue(): safe from any goroutine
//   - Run(): must be called from exactly one goroutine, which then owns the
//     program until Run returns
//
// Events are triggered in FIFO order. A failed trigger is logged with the
// event and the loop continues; retrying would make the history depend on
// timing.
type EventLoop struct {
	program *Program
	queue   *eventQueue
	onError func(Event, error)
}

// EventLoopOption configures an EventLoop.
type EventLoopOption func(*EventLoop)

// WithErrorHandler receives every failed trigger in addition to the log.
func WithErrorHandler(fn func(Event, error)) EventLoopOption {
	return func(l *EventLoop) {
		l.onError = fn
	}
}

// NewEventLoop wraps p.
func NewEventLoop(p *Program, opts ...EventLoopOption) *EventLoop {
	l := &EventLoop{
		program: p,
		queue:   newEventQueue(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Enqueue submits an event for the Run loop.
// Returns false if the loop has been stopped.
func (l *EventLoop) Enqueue(ev Event) bool {
	return l.queue.Enqueue(ev)
}

// QueueLen returns the number of events not yet triggered.
func (l *EventLoop) QueueLen() int {
	return l.queue.Len()
}

// Run triggers queued events until ctx is cancelled or Stop is called.
// After Stop, events already queued are still drained before Run returns nil.
func (l *EventLoop) Run(ctx context.Context) error {
	l.program.logger.Info("event loop starting")

	for {
		if ev, ok := l.queue.TryDequeue(); ok {
			if err := l.program.Trigger(ev); err != nil {
				l.program.logger.Error("trigger failed",
					"type", ev.Type,
					"error", err,
				)
				if l.onError != nil {
					l.onError(ev, err)
				}
			}
			continue
		}

		select {
		case <-ctx.Done():
			l.program.logger.Info("event loop stopping: context cancelled")
			l.queue.Close()
			return ctx.Err()

		case <-l.queue.Wait():
			// The signal channel closes with the queue, so this fires
			// immediately once stopped.
			l.queue.mu.Lock()
			done := l.queue.closed && len(l.queue.events) == 0
			l.queue.mu.Unlock()
			if done {
				l.program.logger.Info("event loop stopping: queue closed")
				return nil
			}
		}
	}
}

// Stop closes the queue. Run drains what is queued and returns.
func (l *EventLoop) Stop() {
	l.queue.Close()
}
