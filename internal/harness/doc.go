// Package harness runs YAML scenarios against compiled programs and checks
// the recorded trace.
//
// A scenario names a program file, a strategy and seed, a list of triggers,
// and assertions over the resulting selections. Run builds the program with
// compiler.Instantiate, records it into a store through store.Recorder, applies
// the triggers through the program's public trigger, and reads the trace back
// from the store. The trace is therefore exactly what `bsync trace` and
// `bsync replay` would later see.
//
// Runs are deterministic: the clock is a testutil.DeterministicClock starting
// at zero and the session id is fixed, so a scenario run twice produces
// byte-identical golden output. The CLI swaps pieces through run options:
// WithStore for a persistent database, WithSessionGenerator for fresh ids,
// WithProgramOptions and WithDefaults for values from bsync.toml. Scenario
// keys still win over WithDefaults.
//
// # Scenario Format
//
// Scenarios are defined in YAML files with the following structure:
//
//	name: hot_cold
//	description: "What this scenario validates"
//	program: ../programs/hot-cold.cue   # relative to the scenario file
//	strategy: priority                  # optional, overrides the program
//	seed: 0                             # randomized strategies; 0 still overrides config
//	max_steps: 0                        # optional quota override
//	fault_isolation: false
//	session_id: ""                      # optional fixed session id
//	triggers:
//	  - type: start
//	    data: { by: test }
//	  - type: hot
//	    expect_error: RESTRICTED_EVENT
//	assertions:
//	  - type: trace_exact
//	    events: [start, hot, cold, hot, cold, hot, cold]
//	  - type: trace_contains
//	    event: start
//	    data: { by: test }
//	  - type: pending
//	    strand: mixHotCold
//
// # Assertion Types
//
// Trace assertions look at selected events only; trigger records are in
// the trace for golden comparison but are not matched.
//
//   - trace_exact: selected event types equal the list exactly
//   - trace_order: listed events appear as an ordered subsequence
//   - trace_count: an event type was selected exactly N times
//   - trace_contains: an event was selected with data as a subset
//   - pending: a strand is waiting after the last trigger
//   - terminated: a strand is neither running nor pending
//
// # Golden Traces
//
// GoldenBytes renders the merged trigger/select trace, the session id and
// the trace hash as canonical JSON. RunWithGolden compares it with
// testdata/golden/<name>.golden through goldie; `bsync test` stores golden
// files next to the scenarios.
package harness
