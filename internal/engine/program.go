package engine

import (
	"fmt"
	"iter"
	"log/slog"
	"slices"
	"strings"
	"sync"
)

// DefaultMaxSteps is the default maximum number of selections per cascade.
// This stops a strand that requests forever from holding the caller hostage.
const DefaultMaxSteps = 10000

// Program is one behavioral program instance: its running and pending
// strands, its strategy, and its message stream.
//
// A Program is single-threaded. Add, Trigger, Run and Close must be called
// from one goroutine at a time; feedback handlers run synchronously inside
// Trigger and may call Trigger again. Use EventLoop to feed a program from
// many goroutines.
//
// INVARIANTS:
//   - A strand is in exactly one of running or pending until it terminates
//   - running and pending iterate in insertion order
//   - Trigger strands have priority 0; added strands get len(running)+1
type Program struct {
	running *bidSet
	pending *bidSet
	stream  *Stream[Message]

	strategy       Strategy
	clock          Sequencer
	logger         *slog.Logger
	sessionGen     SessionIDGenerator
	sessionID      string
	debug          bool
	maxSteps       int
	faultIsolation bool

	triggers    int            // trigger strands created, for unique names
	depth       int            // nesting of run calls; feedback may re-enter Trigger
	quota       *QuotaEnforcer // shared by every step of the outermost run
	snapshots   int            // active UseSnapshot listeners
	disconnects []func()
	closed      bool
}

// ProgramOption allows configuration of program parameters.
type ProgramOption func(*Program)

// WithStrategy sets the event selection strategy. Default: Priority.
func WithStrategy(s Strategy) ProgramOption {
	return func(p *Program) {
		p.strategy = s
	}
}

// WithDebug publishes a state snapshot on every step.
func WithDebug(debug bool) ProgramOption {
	return func(p *Program) {
		p.debug = debug
	}
}

// WithMaxSteps sets the maximum selections per cascade.
//
// Default: 10000 steps (DefaultMaxSteps). Zero or less disables the limit.
func WithMaxSteps(maxSteps int) ProgramOption {
	return func(p *Program) {
		p.maxSteps = maxSteps
	}
}

// WithFaultIsolation terminates a panicking strand and keeps stepping
// instead of aborting the cascade. The failure is published as a
// strand_error message.
func WithFaultIsolation(enabled bool) ProgramOption {
	return func(p *Program) {
		p.faultIsolation = enabled
	}
}

// WithLogger sets the structured logger. Default: slog.Default().
func WithLogger(logger *slog.Logger) ProgramOption {
	return func(p *Program) {
		p.logger = logger
	}
}

// WithClock sets the logical clock. Used for replay to resume from a
// specific sequence number.
func WithClock(clock Sequencer) ProgramOption {
	return func(p *Program) {
		p.clock = clock
	}
}

// WithSessionID sets the session id generator. Default: UUIDv7Generator.
func WithSessionID(gen SessionIDGenerator) ProgramOption {
	return func(p *Program) {
		p.sessionGen = gen
	}
}

// New creates a Program with no strands.
func New(opts ...ProgramOption) *Program {
	p := &Program{
		running:    newBidSet(),
		pending:    newBidSet(),
		stream:     NewStream[Message](),
		strategy:   Priority{},
		clock:      NewClock(),
		sessionGen: UUIDv7Generator{},
		maxSteps:   DefaultMaxSteps,
	}

	for _, opt := range opts {
		opt(p)
	}

	if p.logger == nil {
		p.logger = slog.Default()
	}
	p.sessionID = p.sessionGen.Generate()
	p.logger = p.logger.With("session", p.sessionID)
	p.quota = NewQuotaEnforcer(p.maxSteps)

	return p
}

// SessionID returns the id assigned at construction.
func (p *Program) SessionID() string { return p.sessionID }

// Strategy returns the selection strategy.
func (p *Program) Strategy() Strategy { return p.strategy }

// Clock returns the program's logical clock.
func (p *Program) Clock() Sequencer { return p.clock }

// MaxSteps returns the per-cascade selection limit; zero or less means none.
func (p *Program) MaxSteps() int { return p.maxSteps }

// Stream returns the root message stream.
func (p *Program) Stream() *Stream[Message] { return p.stream }

// NamedStrand pairs a strand with the name it registers under.
type NamedStrand struct {
	Name   string
	Strand Strand
}

// Named pairs name with s for Add.
func Named(name string, s Strand) NamedStrand {
	return NamedStrand{Name: name, Strand: s}
}

// TriggerStrandPrefix starts the name of every trigger strand. Add refuses
// names with this prefix so a user strand is never replaced by a trigger.
const TriggerStrandPrefix = "trigger:"

// Add registers strands in argument order. Each enters running with
// priority len(running)+1, so earlier strands win ties under Priority.
// Added strands first resume on the next Trigger or Run.
//
// A name already running or pending, or one starting with
// TriggerStrandPrefix, is ignored with a warning message.
func (p *Program) Add(strands ...NamedStrand) error {
	if p.closed {
		return errClosed
	}

	for _, ns := range strands {
		var warning string
		switch {
		case strings.HasPrefix(ns.Name, TriggerStrandPrefix):
			warning = fmt.Sprintf("strand name %q uses the reserved %q prefix; ignored", ns.Name, TriggerStrandPrefix)
		case p.running.has(ns.Name) || p.pending.has(ns.Name):
			warning = fmt.Sprintf("strand %q already exists; duplicate ignored", ns.Name)
		}
		if warning != "" {
			p.logger.Warn("strand ignored", "strand", ns.Name, "reason", warning)
			msg := Message{Kind: KindWarning, Strand: ns.Name, Warning: warning}
			if err := p.stream.Publish(msg); err != nil {
				return fmt.Errorf("publish warning: %w", err)
			}
			continue
		}

		next, stop := iter.Pull(ns.Strand.seq())
		p.running.set(&bid{
			name:     ns.Name,
			priority: p.running.len() + 1,
			next:     next,
			stop:     stop,
		})
		p.logger.Debug("strand added", "strand", ns.Name)
	}
	return nil
}

// Run steps the program until no strand is running.
func (p *Program) Run() error {
	if p.closed {
		return errClosed
	}
	return p.run()
}

// Trigger injects ev as a one-shot strand with priority 0 and runs the
// program until no strand is running. If ev is blocked the trigger strand
// stays pending and is consumed by the next selected event.
func (p *Program) Trigger(ev Event) error {
	if p.closed {
		return errClosed
	}

	seq := p.clock.Next()
	p.logger.Debug("event triggered", "type", ev.Type, "seq", seq)
	if err := p.stream.Publish(Message{Kind: KindTrigger, Seq: seq, Event: ev}); err != nil {
		return fmt.Errorf("publish trigger: %w", err)
	}

	p.triggers++
	one := Sync(Requests(Emit(ev.Type, ev.Data)), WaitFor(Any()))
	next, stop := iter.Pull(one.seq())
	p.running.set(&bid{
		name:     fmt.Sprintf("%s%s#%d", TriggerStrandPrefix, ev.Type, p.triggers),
		priority: 0,
		trigger:  true,
		next:     next,
		stop:     stop,
	})

	return p.run()
}

// TriggerFunc injects an event. Returned by RestrictedTrigger and
// PublicTrigger for handing to less trusted callers.
type TriggerFunc func(Event) error

// RestrictedTrigger returns a trigger that refuses the listed event types.
func (p *Program) RestrictedTrigger(restricted ...EventType) TriggerFunc {
	return func(ev Event) error {
		if slices.Contains(restricted, ev.Type) {
			return p.refuse(ev)
		}
		return p.Trigger(ev)
	}
}

// PublicTrigger returns a trigger that accepts only the listed event types.
func (p *Program) PublicTrigger(public ...EventType) TriggerFunc {
	return func(ev Event) error {
		if !slices.Contains(public, ev.Type) {
			return p.refuse(ev)
		}
		return p.Trigger(ev)
	}
}

func (p *Program) refuse(ev Event) error {
	err := NewRestrictedEventError(ev.Type)
	p.logger.Warn("trigger refused", "type", ev.Type)
	_ = p.stream.Publish(Message{Kind: KindRestrictedTrigger, Event: ev, Err: err})
	return err
}

// Feedback subscribes handlers to selected events. Each select message
// calls the handler registered under the event's type, if any. A handler
// error stops the emission and is returned from the Trigger or Run that
// selected the event.
//
// The returned function disconnects the handlers; Close does it too. On a
// closed program nothing is attached and the function does nothing.
func (p *Program) Feedback(handlers Handlers) (disconnect func()) {
	if p.closed {
		return func() {}
	}
	sub := p.stream.Subscribe(func(m Message) error {
		if m.Kind != KindSelect {
			return nil
		}
		h, ok := handlers[m.Event.Type]
		if !ok {
			return nil
		}
		return h(m.Event.Data)
	})
	return p.onClose(sub.Disconnect)
}

// UseSnapshot subscribes fn to step snapshots. Snapshots are built while at
// least one listener is attached or debug is on.
func (p *Program) UseSnapshot(fn func(*Snapshot) error) (disconnect func()) {
	if p.closed {
		return func() {}
	}
	snaps := Map(p.stream, func(m Message) (*Snapshot, bool) {
		return m.Snapshot, m.Kind == KindState
	})
	sub := snaps.Subscribe(fn)
	p.snapshots++
	return p.onClose(func() {
		sub.Disconnect()
		snaps.Disconnect()
		p.snapshots--
	})
}

// Subscribe attaches fn to every message. The returned stream's Disconnect
// detaches it. A closed program returns a detached stream and never calls fn.
func (p *Program) Subscribe(fn func(Message) error) *Stream[Message] {
	if p.closed {
		return NewStream[Message]()
	}
	sub := p.stream.Subscribe(fn)
	p.onClose(sub.Disconnect)
	return sub
}

// onClose registers fn to run once, either when the returned function is
// called or on Close.
func (p *Program) onClose(fn func()) func() {
	once := sync.OnceFunc(fn)
	p.disconnects = append(p.disconnects, once)
	return once
}

// Has reports whether name is running or pending.
func (p *Program) Has(name string) StrandStatus {
	return StrandStatus{
		Running: p.running.has(name),
		Pending: p.pending.has(name),
	}
}

// Running lists running strand names in resumption order.
func (p *Program) Running() []string { return p.running.names() }

// Pending lists pending strand names in insertion order.
func (p *Program) Pending() []string { return p.pending.names() }

// Close disconnects every subscription made through the program, stops all
// strand coroutines, and makes further calls fail with PROGRAM_CLOSED.
// Close is idempotent.
func (p *Program) Close() error {
	if p.closed {
		return nil
	}
	p.closed = true

	for _, fn := range p.disconnects {
		fn()
	}
	p.disconnects = nil

	for _, b := range p.running.list() {
		b.stop()
	}
	for _, b := range p.pending.list() {
		b.stop()
	}
	p.running = newBidSet()
	p.pending = newBidSet()

	p.logger.Debug("program closed")
	return nil
}
