package harness

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"

	"github.com/roach88/bsync/internal/compiler"
	"github.com/roach88/bsync/internal/engine"
	"github.com/roach88/bsync/internal/ir"
	"github.com/roach88/bsync/internal/store"
	"github.com/roach88/bsync/internal/testutil"
)

// RunOption configures a single scenario run.
type RunOption func(*runConfig)

type runConfig struct {
	store       *store.Store
	sessions    engine.SessionIDGenerator
	logger      *slog.Logger
	programOpts []engine.ProgramOption
	strategy    string
	seed        int64
}

// WithStore records the run into st instead of a fresh in-memory database.
// The caller keeps ownership of st.
func WithStore(st *store.Store) RunOption {
	return func(c *runConfig) {
		c.store = st
	}
}

// WithSessionGenerator overrides the fixed scenario session id, e.g. with
// engine.UUIDv7Generator when several runs share one database.
func WithSessionGenerator(gen engine.SessionIDGenerator) RunOption {
	return func(c *runConfig) {
		c.sessions = gen
	}
}

// WithLogger sets the logger handed to the program. Runs are silent by
// default.
func WithLogger(logger *slog.Logger) RunOption {
	return func(c *runConfig) {
		c.logger = logger
	}
}

// WithProgramOptions adds engine options, e.g. from a config file. The
// scenario's own max_steps and fault_isolation are applied after them.
func WithProgramOptions(opts ...engine.ProgramOption) RunOption {
	return func(c *runConfig) {
		c.programOpts = append(c.programOpts, opts...)
	}
}

// WithDefaults sets the strategy used when neither the scenario nor the
// program names one, and the seed used when the scenario leaves it zero.
func WithDefaults(strategy string, seed int64) RunOption {
	return func(c *runConfig) {
		c.strategy = strategy
		c.seed = seed
	}
}

// Run executes a scenario and returns its result.
//
// An error is returned only when the scenario cannot be executed at all
// (program fails to compile, store cannot be opened). Trigger and assertion
// failures are reported in Result.Errors.
//
// Execution flow:
// 1. Compile the program and instantiate it with the scenario's strategy
// 2. Start recording into the store
// 3. Run the program once so strands that request without a trigger proceed
// 4. Apply each trigger, checking expect_error
// 5. Read the trace back and evaluate assertions
func Run(scenario *Scenario, opts ...RunOption) (*Result, error) {
	cfg := runConfig{logger: testutil.DiscardLogger()}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.sessions == nil {
		cfg.sessions = testutil.NewFixedSessionGenerator(scenario.SessionID)
	}

	pf, err := compiler.LoadProgram(scenario.Program)
	if err != nil {
		return nil, fmt.Errorf("failed to load program: %w", err)
	}
	programHash, err := ir.ProgramHash(*pf.Spec)
	if err != nil {
		return nil, err
	}

	st := cfg.store
	if st == nil {
		st, err = store.Open(":memory:")
		if err != nil {
			return nil, fmt.Errorf("failed to create in-memory store: %w", err)
		}
		defer st.Close()
	}

	strategy := scenario.Strategy
	if strategy == "" && pf.Spec.Strategy == "" {
		strategy = cfg.strategy
	}
	seed := cfg.seed
	if scenario.Seed != nil {
		seed = *scenario.Seed
	}

	clock := testutil.NewDeterministicClock()
	programOpts := []engine.ProgramOption{
		engine.WithClock(clock),
		engine.WithSessionID(cfg.sessions),
		engine.WithLogger(cfg.logger),
	}
	programOpts = append(programOpts, cfg.programOpts...)
	if scenario.MaxSteps > 0 {
		programOpts = append(programOpts, engine.WithMaxSteps(scenario.MaxSteps))
	}
	if scenario.FaultIsolation {
		programOpts = append(programOpts, engine.WithFaultIsolation(true))
	}

	p, err := compiler.Instantiate(pf.Spec, strategy, seed, programOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to instantiate program: %w", err)
	}
	defer p.Close()

	ctx := context.Background()
	session := ir.Session{
		ID:           p.SessionID(),
		Program:      scenario.Program,
		ProgramHash:  programHash,
		Strategy:     p.Strategy().Name(),
		Seed:         seed,
		MaxSteps:     p.MaxSteps(),
		CreatedAtSeq: clock.Current(),
	}
	rec, err := st.Record(ctx, p, session)
	if err != nil {
		return nil, fmt.Errorf("failed to start recording: %w", err)
	}
	defer rec.Stop()

	result := NewResult()
	result.SessionID = session.ID

	if err := p.Run(); err != nil {
		result.AddError(fmt.Sprintf("initial run: %v", err))
	}

	trigger := compiler.Trigger(p, pf.Spec)
	for i, step := range scenario.Triggers {
		data, err := ir.FromGo(step.Data)
		if err != nil {
			return nil, fmt.Errorf("trigger %d: %w", i, err)
		}
		ev := engine.Event{Type: engine.EventType(step.Type), Data: ir.ToGo(data)}

		err = trigger(ev)
		if msg := checkTrigger(step, err); msg != "" {
			result.AddError(fmt.Sprintf("triggers[%d] %s: %s", i, step.Type, msg))
		}
		cfg.logger.Debug("trigger applied",
			"step", i,
			"type", step.Type,
			"error", err,
		)
	}

	result.Trace, result.TraceHash, err = ReadTrace(ctx, st, session.ID)
	if err != nil {
		return nil, err
	}
	result.Running = p.Running()
	result.Pending = p.Pending()

	for _, msg := range EvaluateAssertions(result, scenario.Assertions) {
		result.AddError(msg)
	}
	return result, nil
}

// checkTrigger compares a trigger's outcome with its expectation and
// returns a failure message, or "" when they agree.
func checkTrigger(step TriggerStep, err error) string {
	if step.ExpectError == "" {
		if err != nil {
			return fmt.Sprintf("unexpected error: %v", err)
		}
		return ""
	}

	if err == nil {
		return fmt.Sprintf("expected error %s, got none", step.ExpectError)
	}
	var rtErr *engine.RuntimeError
	if !errors.As(err, &rtErr) {
		return fmt.Sprintf("expected error %s, got %v", step.ExpectError, err)
	}
	if string(rtErr.Code) != step.ExpectError {
		return fmt.Sprintf("expected error %s, got %s", step.ExpectError, rtErr.Code)
	}
	return ""
}

// ReadTrace reads a recorded session back from the store: triggers and
// selections merged by seq, plus the trace hash over the selections.
func ReadTrace(ctx context.Context, st *store.Store, sessionID string) ([]TraceEvent, string, error) {
	triggers, err := st.ReadTriggers(ctx, sessionID)
	if err != nil {
		return nil, "", err
	}
	selections, err := st.ReadSelections(ctx, sessionID)
	if err != nil {
		return nil, "", err
	}

	trace := make([]TraceEvent, 0, len(triggers)+len(selections))
	for _, t := range triggers {
		trace = append(trace, TraceEvent{Kind: KindTrigger, Seq: t.Seq, Type: t.Type, Data: t.Data})
	}
	hashes := make([]string, len(selections))
	for i, s := range selections {
		trace = append(trace, TraceEvent{Kind: KindSelect, Seq: s.Seq, Type: s.Type, Data: s.Data, Strand: s.Strand})
		hashes[i] = s.Hash
	}
	slices.SortStableFunc(trace, func(a, b TraceEvent) int {
		return cmp.Compare(a.Seq, b.Seq)
	})

	hash, err := ir.TraceHash(hashes)
	if err != nil {
		return nil, "", err
	}
	return trace, hash, nil
}
