package cli

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/roach88/bsync/internal/engine"
	"github.com/roach88/bsync/internal/harness"
	"github.com/roach88/bsync/internal/ir"
	"github.com/roach88/bsync/internal/store"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Database string
	Strategy string
	Seed     int64
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run <scenario.yaml>",
		Short: "Run a scenario and record its trace",
		Long: `Run one scenario: build its program, apply its triggers and check its
assertions. With --db (or database in the config file) the session is
recorded so it can be inspected with trace and checked with replay.

Flags override the scenario, which overrides the config file.

Example:
  bsync run --db ./bsync.db scenarios/hot_cold.yaml
  bsync run --strategy chaos --seed 7 scenarios/hot_cold.yaml --verbose`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("strategy") {
				if _, err := engine.ParseStrategy(opts.Strategy, 0); err != nil {
					return WrapExitError(ExitCommandError, "invalid --strategy", err)
				}
			}
			return runScenarioCommand(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (default from config; in-memory if unset)")
	cmd.Flags().StringVar(&opts.Strategy, "strategy", "", "selection strategy (priority|randomizedPriority|chaos)")
	cmd.Flags().Int64Var(&opts.Seed, "seed", 0, "seed for randomized strategies")

	return cmd
}

// RunSummary is the output of the run command.
type RunSummary struct {
	Scenario   string               `json:"scenario"`
	Pass       bool                 `json:"pass"`
	SessionID  string               `json:"session_id"`
	TraceHash  string               `json:"trace_hash"`
	Selections int                  `json:"selections"`
	Trace      []harness.TraceEvent `json:"trace"`
	Pending    []string             `json:"pending"`
	Running    []string             `json:"running"`
	Errors     []string             `json:"errors,omitempty"`
}

func runScenarioCommand(opts *RunOptions, path string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)
	log := opts.logger()

	scenario, err := harness.LoadScenario(path)
	if err != nil {
		_ = formatter.Error(ErrCodeNotFound, err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to load scenario", err)
	}
	// Recorded sessions keep the program path for replay from any directory.
	if abs, err := filepath.Abs(scenario.Program); err == nil {
		scenario.Program = abs
	}
	if cmd.Flags().Changed("strategy") {
		scenario.Strategy = opts.Strategy
	}
	if cmd.Flags().Changed("seed") {
		seed := opts.Seed
		scenario.Seed = &seed
	}

	dbPath := opts.Database
	if dbPath == "" {
		dbPath = opts.Config.Database
	}
	if dbPath == "" {
		dbPath = ":memory:"
	}
	log.Debug("opening database", "path", dbPath)
	st, err := store.Open(dbPath)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer func() {
		if closeErr := st.Close(); closeErr != nil {
			log.Error("error closing database", "error", closeErr)
		}
	}()

	runOpts := []harness.RunOption{
		harness.WithStore(st),
		harness.WithLogger(log),
		harness.WithProgramOptions(opts.Config.ProgramOptions()...),
		harness.WithDefaults(opts.Config.Strategy, opts.Config.Seed),
	}
	// A scenario's session_id is kept; otherwise every run gets a fresh id
	// so runs can share a database.
	if scenario.SessionID == "" {
		runOpts = append(runOpts, harness.WithSessionGenerator(engine.UUIDv7Generator{}))
	}

	log.Info("running scenario", "scenario", scenario.Name, "program", scenario.Program)
	result, err := harness.Run(scenario, runOpts...)
	if err != nil {
		_ = formatter.Error(ErrCodeGeneric, err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to run scenario", err)
	}
	log.Info("scenario finished", "scenario", scenario.Name, "session", result.SessionID, "pass", result.Pass)

	summary := RunSummary{
		Scenario:   scenario.Name,
		Pass:       result.Pass,
		SessionID:  result.SessionID,
		TraceHash:  result.TraceHash,
		Selections: len(result.Selected()),
		Trace:      result.Trace,
		Pending:    result.Pending,
		Running:    result.Running,
		Errors:     result.Errors,
	}

	if formatter.JSON() {
		resp := CLIResponse{Status: "ok", Data: summary, SessionID: result.SessionID}
		if !result.Pass {
			resp.Status = "error"
		}
		if err := formatter.Encode(resp); err != nil {
			return err
		}
	} else {
		outputRunText(formatter, summary)
	}

	if !result.Pass {
		return NewExitError(ExitFailure, fmt.Sprintf("scenario %s failed", scenario.Name))
	}
	return nil
}

func outputRunText(formatter *OutputFormatter, s RunSummary) {
	w := formatter.Writer
	mark := "✓"
	if !s.Pass {
		mark = "✗"
	}
	fmt.Fprintf(w, "%s %s\n", mark, s.Scenario)
	fmt.Fprintf(w, "  session:    %s\n", s.SessionID)
	fmt.Fprintf(w, "  selections: %d\n", s.Selections)
	fmt.Fprintf(w, "  trace hash: %s\n", s.TraceHash)
	if len(s.Pending) > 0 {
		fmt.Fprintf(w, "  pending:    %v\n", s.Pending)
	}

	if formatter.Verbose {
		fmt.Fprintln(w)
		for _, ev := range s.Trace {
			fmt.Fprintln(w, formatTraceLine(ev.Kind, ev.Seq, ev.Type, ev.Data, ev.Strand))
		}
	}

	for _, e := range s.Errors {
		fmt.Fprintf(w, "\n  %s\n", e)
	}
}

// formatTraceLine renders one trigger or selection for text output.
func formatTraceLine(kind string, seq int64, eventType string, data ir.IRValue, strand string) string {
	line := fmt.Sprintf("  [%d] %-7s %s", seq, kind, eventType)
	if _, isNull := data.(ir.IRNull); data != nil && !isNull {
		if b, err := ir.MarshalCanonical(data); err == nil {
			line += " " + string(b)
		}
	}
	if strand != "" {
		line += "  (" + strand + ")"
	}
	return line
}
