package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"gopkg.in/yaml.v3"

	"github.com/roach88/bsync/internal/engine"
	"github.com/roach88/bsync/internal/ir"
)

// Scenario is a reproducible run of one program: which program, how events
// are chosen, what is triggered, and what the resulting trace must show.
type Scenario struct {
	// Name uniquely identifies this scenario. It also names the golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Program is the path to a CUE program file or directory.
	// LoadScenario resolves it relative to the scenario file.
	Program string `yaml:"program"`

	// Strategy overrides the program's own strategy when set.
	Strategy string `yaml:"strategy,omitempty"`

	// Seed feeds the randomized strategies. Nil falls back to the run
	// defaults; an explicit 0 is kept.
	Seed *int64 `yaml:"seed,omitempty"`

	// MaxSteps overrides the per-cascade step quota when positive.
	MaxSteps int `yaml:"max_steps,omitempty"`

	// FaultIsolation terminates panicking strands instead of aborting.
	FaultIsolation bool `yaml:"fault_isolation,omitempty"`

	// SessionID is a fixed session id for golden comparison.
	// Defaults to testutil.DefaultSessionID.
	SessionID string `yaml:"session_id,omitempty"`

	// Triggers are applied in order after the program's first run.
	Triggers []TriggerStep `yaml:"triggers,omitempty"`

	// Assertions validate the final trace and strand state.
	Assertions []Assertion `yaml:"assertions"`
}

// TriggerStep injects one external event.
type TriggerStep struct {
	Type string `yaml:"type"`

	// Data is the event payload. Floats are rejected at load time.
	Data any `yaml:"data,omitempty"`

	// ExpectError is the RuntimeError code the trigger must fail with,
	// e.g. QUOTA_EXCEEDED. Empty means the trigger must succeed.
	ExpectError string `yaml:"expect_error,omitempty"`
}

// Assertion validates the selected events or the strands left behind.
type Assertion struct {
	// Type specifies the assertion type:
	// - "trace_exact": selected event types equal Events exactly
	// - "trace_order": Events appear as an ordered subsequence
	// - "trace_count": Event was selected exactly Count times
	// - "trace_contains": Event was selected with Data as a subset
	// - "pending": Strand is waiting
	// - "terminated": Strand is neither running nor pending
	Type string `yaml:"type"`

	Events []string       `yaml:"events,omitempty"`
	Event  string         `yaml:"event,omitempty"`
	Data   map[string]any `yaml:"data,omitempty"`
	Count  int            `yaml:"count,omitempty"`
	Strand string         `yaml:"strand,omitempty"`
}

// Assertion type constants.
const (
	AssertTraceExact    = "trace_exact"
	AssertTraceOrder    = "trace_order"
	AssertTraceCount    = "trace_count"
	AssertTraceContains = "trace_contains"
	AssertPending       = "pending"
	AssertTerminated    = "terminated"
)

var knownErrorCodes = []engine.RuntimeErrorCode{
	engine.ErrCodeStrandPanic,
	engine.ErrCodeFeedbackFailed,
	engine.ErrCodeQuotaExceeded,
	engine.ErrCodeRestrictedEvent,
	engine.ErrCodeProgramClosed,
}

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
// A relative program path is resolved against the scenario's directory.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	scenario, err := ParseScenario(data)
	if err != nil {
		return nil, err
	}

	if scenario.Program != "" && !filepath.IsAbs(scenario.Program) {
		scenario.Program = filepath.Join(filepath.Dir(path), scenario.Program)
	}
	if _, err := os.Stat(scenario.Program); err != nil {
		return nil, fmt.Errorf("invalid scenario: program not found: %s", scenario.Program)
	}

	return scenario, nil
}

// ParseScenario decodes and validates scenario YAML without touching the
// filesystem. The program path is left as written.
func ParseScenario(data []byte) (*Scenario, error) {
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true) // catches "assertion:" vs "assertions:"
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Program == "" {
		return fmt.Errorf("program is required")
	}
	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}
	if s.MaxSteps < 0 {
		return fmt.Errorf("max_steps must be non-negative")
	}
	if s.Strategy != "" {
		if _, err := engine.ParseStrategy(s.Strategy, 0); err != nil {
			return err
		}
	}

	for i, step := range s.Triggers {
		if step.Type == "" {
			return fmt.Errorf("triggers[%d]: type is required", i)
		}
		if _, err := ir.FromGo(step.Data); err != nil {
			return fmt.Errorf("triggers[%d]: data: %w", i, err)
		}
		if step.ExpectError != "" && !slices.Contains(knownErrorCodes, engine.RuntimeErrorCode(step.ExpectError)) {
			return fmt.Errorf("triggers[%d]: unknown expect_error %q", i, step.ExpectError)
		}
	}

	for i, assertion := range s.Assertions {
		if err := validateAssertion(i, &assertion); err != nil {
			return err
		}
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertTraceExact:
		// An empty list asserts that nothing was selected.
	case AssertTraceOrder:
		if len(a.Events) == 0 {
			return fmt.Errorf("assertions[%d]: events list is required for trace_order", index)
		}
	case AssertTraceCount:
		if a.Event == "" {
			return fmt.Errorf("assertions[%d]: event is required for trace_count", index)
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for trace_count", index)
		}
	case AssertTraceContains:
		if a.Event == "" {
			return fmt.Errorf("assertions[%d]: event is required for trace_contains", index)
		}
		if _, err := ir.FromGo(a.Data); err != nil {
			return fmt.Errorf("assertions[%d]: data: %w", index, err)
		}
	case AssertPending, AssertTerminated:
		if a.Strand == "" {
			return fmt.Errorf("assertions[%d]: strand is required for %s", index, a.Type)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}
