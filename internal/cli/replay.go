package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/bsync/internal/compiler"
	"github.com/roach88/bsync/internal/engine"
	"github.com/roach88/bsync/internal/ir"
	"github.com/roach88/bsync/internal/store"
)

// ReplayOptions holds flags for the replay command.
type ReplayOptions struct {
	*RootOptions
	Database  string
	SessionID string // optional - specific session only
}

// ReplaySessionResult holds the replay result for a single session.
type ReplaySessionResult struct {
	SessionID      string   `json:"session_id"`
	Program        string   `json:"program"`
	Strategy       string   `json:"strategy"`
	Seed           int64    `json:"seed"`
	Selections     int      `json:"selections"`
	Replayed       int      `json:"replayed"`
	ExpectedHash   string   `json:"expected_hash"`
	ActualHash     string   `json:"actual_hash"`
	Divergence     int      `json:"divergence"` // index of first differing selection, -1 if none
	ProgramChanged bool     `json:"program_changed,omitempty"`
	TriggerErrors  []string `json:"trigger_errors,omitempty"`
	Deterministic  bool     `json:"deterministic"`
}

// ReplayResult holds the overall replay result.
type ReplayResult struct {
	Sessions         []ReplaySessionResult `json:"sessions"`
	TotalSessions    int                   `json:"total_sessions"`
	AllDeterministic bool                  `json:"all_deterministic"`
}

// NewReplayCommand creates the replay command.
func NewReplayCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ReplayOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "replay",
		Short: "Replay recorded sessions and verify determinism",
		Long: `Rebuild each recorded session's program from its program file, strategy
and seed, re-apply the recorded triggers, and compare every selection with
the recording by content hash.

Exit codes:
  0 - All sessions reproduced exactly
  1 - A session diverged, or its program file changed
  2 - Command error (database not found, program missing, etc.)

Examples:
  bsync replay --db ./bsync.db
  bsync replay --db ./bsync.db --session 01890a5d-ac96-774b-bcce-b302099a8057
  bsync replay --db ./bsync.db --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReplay(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (default from config)")
	cmd.Flags().StringVar(&opts.SessionID, "session", "", "replay specific session only")

	return cmd
}

func runReplay(opts *ReplayOptions, cmd *cobra.Command) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	formatter := newFormatter(opts.RootOptions, cmd)

	st, err := openExistingStore(opts.RootOptions, opts.Database)
	if err != nil {
		return err
	}
	defer st.Close()

	var sessions []ir.Session
	if opts.SessionID != "" {
		sess, err := st.ReadSession(ctx, opts.SessionID)
		if err != nil {
			_ = formatter.Error(ErrCodeNotFound, err.Error(), nil)
			return WrapExitError(ExitCommandError, "failed to find session", err)
		}
		sessions = []ir.Session{sess}
	} else {
		sessions, err = st.ReadSessions(ctx)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to list sessions", err)
		}
	}

	result := ReplayResult{
		Sessions:         make([]ReplaySessionResult, 0, len(sessions)),
		TotalSessions:    len(sessions),
		AllDeterministic: true,
	}

	if len(sessions) == 0 {
		if formatter.JSON() {
			return formatter.Success(result)
		}
		fmt.Fprintln(formatter.Writer, "No sessions found in database.")
		return nil
	}

	for _, sess := range sessions {
		sr, err := replaySession(ctx, st, sess, opts.RootOptions)
		if err != nil {
			_ = formatter.Error(ErrCodeGeneric, err.Error(), map[string]string{"session_id": sess.ID})
			return WrapExitError(ExitCommandError, fmt.Sprintf("failed to replay session %s", sess.ID), err)
		}
		result.Sessions = append(result.Sessions, sr)
		if !sr.Deterministic {
			result.AllDeterministic = false
		}
	}

	if formatter.JSON() {
		resp := CLIResponse{Status: "ok", Data: result}
		if !result.AllDeterministic {
			resp.Status = "error"
			resp.Error = &CLIError{Code: "E_NONDETERMINISTIC", Message: "replay diverged from recording"}
		}
		if err := formatter.Encode(resp); err != nil {
			return err
		}
	} else {
		outputReplayText(formatter, result)
	}

	if !result.AllDeterministic {
		return NewExitError(ExitFailure, "replay diverged from recording")
	}
	return nil
}

// replaySession rebuilds sess's program and replays it against the store.
func replaySession(ctx context.Context, st *store.Store, sess ir.Session, opts *RootOptions) (ReplaySessionResult, error) {
	log := opts.logger().With("session", sess.ID)

	pf, err := LoadProgram(sess.Program)
	if err != nil {
		return ReplaySessionResult{}, err
	}
	programHash, err := ir.ProgramHash(*pf.Spec)
	if err != nil {
		return ReplaySessionResult{}, err
	}
	changed := programHash != sess.ProgramHash
	if changed {
		log.Warn("program changed since recording", "program", sess.Program)
	}

	programOpts := append(opts.Config.ProgramOptions(),
		engine.WithMaxSteps(sess.MaxSteps),
		engine.WithClock(engine.NewClockAt(sess.CreatedAtSeq)),
		engine.WithSessionID(engine.NewFixedGenerator(sess.ID)),
		engine.WithLogger(log),
	)
	p, err := compiler.Instantiate(pf.Spec, sess.Strategy, sess.Seed, programOpts...)
	if err != nil {
		return ReplaySessionResult{}, err
	}
	defer p.Close()

	rr, err := st.Replay(ctx, sess.ID, p)
	if err != nil {
		return ReplaySessionResult{}, err
	}
	log.Debug("session replayed",
		"selections", len(rr.Expected),
		"replayed", len(rr.Actual),
		"match", rr.Match(),
	)

	return ReplaySessionResult{
		SessionID:      sess.ID,
		Program:        sess.Program,
		Strategy:       sess.Strategy,
		Seed:           sess.Seed,
		Selections:     len(rr.Expected),
		Replayed:       len(rr.Actual),
		ExpectedHash:   rr.ExpectedHash,
		ActualHash:     rr.ActualHash,
		Divergence:     rr.Divergence,
		ProgramChanged: changed,
		TriggerErrors:  rr.TriggerErrors,
		Deterministic:  rr.Match() && !changed,
	}, nil
}

func outputReplayText(formatter *OutputFormatter, result ReplayResult) {
	w := formatter.Writer

	for _, s := range result.Sessions {
		mark := "✓"
		if !s.Deterministic {
			mark = "✗"
		}
		fmt.Fprintf(w, "%s %s (%s, seed %d): %d selection(s)\n", mark, s.SessionID, s.Strategy, s.Seed, s.Selections)
		if s.ProgramChanged {
			fmt.Fprintf(w, "  program changed since recording: %s\n", s.Program)
		}
		if s.Divergence >= 0 {
			fmt.Fprintf(w, "  diverged at selection %d (recorded %d, replayed %d)\n", s.Divergence, s.Selections, s.Replayed)
		}
		if formatter.Verbose {
			fmt.Fprintf(w, "  expected hash: %s\n", s.ExpectedHash)
			fmt.Fprintf(w, "  actual hash:   %s\n", s.ActualHash)
			for _, e := range s.TriggerErrors {
				fmt.Fprintf(w, "  trigger error: %s\n", e)
			}
		}
	}

	fmt.Fprintln(w)
	if result.AllDeterministic {
		fmt.Fprintf(w, "✓ All %d session(s) deterministic\n", result.TotalSessions)
		return
	}
	fmt.Fprintln(w, "✗ Replay diverged from recording")
}
