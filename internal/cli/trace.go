package cli

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/bsync/internal/harness"
	"github.com/roach88/bsync/internal/ir"
	"github.com/roach88/bsync/internal/store"
)

// TraceOptions holds flags for the trace command.
type TraceOptions struct {
	*RootOptions
	Database  string
	SessionID string // optional - latest session when empty
	Event     string // optional - filter to one event type
}

// TraceResult holds the complete trace output.
type TraceResult struct {
	Session   ir.Session           `json:"session"`
	Timeline  []harness.TraceEvent `json:"timeline"`
	TraceHash string               `json:"trace_hash"`
	Stats     TraceStats           `json:"stats"`
}

// TraceStats holds summary statistics for the trace.
type TraceStats struct {
	Triggers   int            `json:"triggers"`
	Selections int            `json:"selections"`
	ByType     map[string]int `json:"by_type"`
	ByStrand   map[string]int `json:"by_strand"`
}

// NewTraceCommand creates the trace command.
func NewTraceCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TraceOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "trace",
		Short: "Show the recorded trace of a session",
		Long: `Show a recorded session: its program, strategy and seed, then every
trigger and selected event in seq order with the strand that requested it.

Without --session the most recently recorded session is shown.

Examples:
  bsync trace --db ./bsync.db
  bsync trace --db ./bsync.db --session 01890a5d-ac96-774b-bcce-b302099a8057
  bsync trace --db ./bsync.db --event hot --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTrace(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (default from config)")
	cmd.Flags().StringVar(&opts.SessionID, "session", "", "session id to show (default latest)")
	cmd.Flags().StringVar(&opts.Event, "event", "", "filter to one event type")

	return cmd
}

func runTrace(opts *TraceOptions, cmd *cobra.Command) error {
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

	sess, err := resolveSession(ctx, st, opts.SessionID)
	if err != nil {
		_ = formatter.Error(ErrCodeNotFound, err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to find session", err)
	}

	timeline, hash, err := harness.ReadTrace(ctx, st, sess.ID)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read trace", err)
	}

	result := TraceResult{
		Session:   sess,
		Timeline:  filterTimeline(timeline, opts.Event),
		TraceHash: hash,
		Stats:     traceStats(timeline),
	}

	if formatter.JSON() {
		return formatter.Success(result)
	}
	outputTraceText(formatter, result)
	return nil
}

// openExistingStore opens the database named by the flag or the config.
// Unlike run, trace and replay never create a database.
func openExistingStore(opts *RootOptions, flag string) (*store.Store, error) {
	path := flag
	if path == "" {
		path = opts.Config.Database
	}
	if path == "" {
		return nil, NewExitError(ExitCommandError, "no database: pass --db or set database in the config file")
	}
	if _, err := os.Stat(path); err != nil {
		return nil, WrapExitError(ExitCommandError, fmt.Sprintf("%s: database not found", ErrCodeNotFound), err)
	}

	st, err := store.Open(path)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to open database", err)
	}
	return st, nil
}

// resolveSession reads the named session, or the latest one when id is "".
func resolveSession(ctx context.Context, st *store.Store, id string) (ir.Session, error) {
	if id != "" {
		return st.ReadSession(ctx, id)
	}
	sess, err := st.LatestSession(ctx)
	if errors.Is(err, store.ErrSessionNotFound) {
		return ir.Session{}, errors.New("no sessions recorded")
	}
	return sess, err
}

func filterTimeline(timeline []harness.TraceEvent, eventType string) []harness.TraceEvent {
	if eventType == "" {
		return timeline
	}
	out := []harness.TraceEvent{}
	for _, ev := range timeline {
		if ev.Type == eventType {
			out = append(out, ev)
		}
	}
	return out
}

func traceStats(timeline []harness.TraceEvent) TraceStats {
	stats := TraceStats{ByType: map[string]int{}, ByStrand: map[string]int{}}
	for _, ev := range timeline {
		if ev.Kind == harness.KindTrigger {
			stats.Triggers++
			continue
		}
		stats.Selections++
		stats.ByType[ev.Type]++
		stats.ByStrand[ev.Strand]++
	}
	return stats
}

func outputTraceText(formatter *OutputFormatter, result TraceResult) {
	w := formatter.Writer
	s := result.Session

	fmt.Fprintf(w, "Session %s\n", s.ID)
	fmt.Fprintf(w, "  program:  %s\n", s.Program)
	fmt.Fprintf(w, "  strategy: %s (seed %d)\n", s.Strategy, s.Seed)
	formatter.VerboseLog("  program hash: %s", s.ProgramHash)
	fmt.Fprintln(w)

	if len(result.Timeline) == 0 {
		fmt.Fprintln(w, "  (no events)")
	}
	for _, ev := range result.Timeline {
		fmt.Fprintln(w, formatTraceLine(ev.Kind, ev.Seq, ev.Type, ev.Data, ev.Strand))
	}

	fmt.Fprintln(w)
	fmt.Fprintf(w, "%d trigger(s), %d selection(s)\n", result.Stats.Triggers, result.Stats.Selections)
	fmt.Fprintf(w, "trace hash: %s\n", result.TraceHash)
}
