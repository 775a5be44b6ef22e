package cli

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/storylet/internal/ir"
	"github.com/roach88/storylet/internal/store"
)

// InspectOptions holds flags for the inspect command.
type InspectOptions struct {
	*RootOptions
	Database string
	RunID    string
	Tick     int64
}

// RunListing is one row of the run list.
type RunListing struct {
	RunID    string `json:"run_id"`
	Scenario string `json:"scenario"`
	Seed     int64  `json:"seed"`
	Steps    int    `json:"steps"`
}

// RunDetail summarizes one run.
type RunDetail struct {
	RunID         string                 `json:"run_id"`
	Scenario      string                 `json:"scenario"`
	ScenarioPath  string                 `json:"scenario_path,omitempty"`
	Seed          int64                  `json:"seed"`
	ConfigDigest  string                 `json:"config_digest"`
	LibraryDigest string                 `json:"library_digest"`
	Steps         int                    `json:"steps"`
	LastTick      int64                  `json:"last_tick"`
	FireCounts    map[ir.StoryletKey]int `json:"fire_counts"`
	Expired       int                    `json:"expired"`
	Evicted       int                    `json:"evicted"`
	Diagnostics   int                    `json:"diagnostics"`
	SnapshotTicks []int64                `json:"snapshot_ticks"`
}

// TickDetail is one logged step, with the snapshot stored at that tick.
type TickDetail struct {
	RunID        string        `json:"run_id"`
	Tick         int64         `json:"tick"`
	Result       ir.StepResult `json:"result"`
	ResultDigest string        `json:"result_digest"`
	StateDigest  string        `json:"state_digest"`
	Snapshot     *ir.Snapshot  `json:"snapshot,omitempty"`
}

// NewInspectCommand creates the inspect command.
func NewInspectCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &InspectOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "inspect",
		Short: "Inspect recorded runs",
		Long: `Inspect the run database.

Without --run, lists every recorded run. With --run, summarizes the run:
fire counts per storylet, expirations, evictions, diagnostics and stored
snapshots. With --run and --tick, prints that step's result and the
snapshot stored at that tick, if any.

Examples:
  storylet inspect --db ./storylet.db
  storylet inspect --db ./storylet.db --run 0192f3a1-...
  storylet inspect --db ./storylet.db --run 0192f3a1-... --tick 12 --format json`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInspect(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (default $STORYLET_DB)")
	cmd.Flags().StringVar(&opts.RunID, "run", "", "run to inspect")
	cmd.Flags().Int64Var(&opts.Tick, "tick", 0, "tick to inspect (requires --run)")

	return cmd
}

func runInspect(opts *InspectOptions, cmd *cobra.Command) error {
	ctx := context.Background()
	formatter := opts.formatter(cmd)

	if opts.Tick != 0 && opts.RunID == "" {
		return formatter.Fail(ExitCommandError, ErrCodeGeneric, "--tick requires --run", nil)
	}

	dbPath, err := opts.dbPath(opts.Database)
	if err != nil {
		return err
	}
	st, err := openExisting(dbPath)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeDatabase, "failed to open database", err)
	}
	defer st.Close()

	switch {
	case opts.RunID == "":
		return inspectRuns(ctx, st, formatter)
	case opts.Tick == 0:
		return inspectRun(ctx, st, formatter, opts.RunID)
	}
	return inspectTick(ctx, st, formatter, opts.RunID, opts.Tick)
}

func inspectRuns(ctx context.Context, st *store.Store, formatter *OutputFormatter) error {
	runs, err := st.ListRuns(ctx)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeDatabase, "failed to list runs", err)
	}
	listing := make([]RunListing, len(runs))
	for i, r := range runs {
		listing[i] = RunListing{RunID: r.ID, Scenario: r.ScenarioName, Seed: r.Seed, Steps: r.StepCount}
	}

	if formatter.JSON() {
		return formatter.Success(listing)
	}
	w := formatter.Writer
	if len(listing) == 0 {
		fmt.Fprintln(w, "No runs found in database.")
		return nil
	}
	for _, r := range listing {
		fmt.Fprintf(w, "%s  %-24s seed %-6d %d steps\n", r.RunID, r.Scenario, r.Seed, r.Steps)
	}
	return nil
}

func inspectRun(ctx context.Context, st *store.Store, formatter *OutputFormatter, runID string) error {
	log, err := st.GetRunLog(ctx, runID)
	if errors.Is(err, sql.ErrNoRows) {
		return formatter.Fail(ExitCommandError, ErrCodeNotFound, fmt.Sprintf("run %s not found", runID), nil)
	}
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeDatabase, "failed to read run", err)
	}

	detail := RunDetail{
		RunID:         log.Run.ID,
		Scenario:      log.Run.ScenarioName,
		ScenarioPath:  log.Run.ScenarioPath,
		Seed:          log.Run.Seed,
		ConfigDigest:  log.Run.ConfigDigest,
		LibraryDigest: log.Run.LibraryDigest,
		Steps:         len(log.Steps),
		LastTick:      log.LastTick,
		FireCounts:    log.FireCounts,
		Expired:       log.Expired,
		Evicted:       log.Evicted,
		Diagnostics:   log.Diagnostics,
		SnapshotTicks: log.SnapshotTicks,
	}

	if formatter.JSON() {
		return formatter.Success(detail)
	}
	w := formatter.Writer
	fmt.Fprintf(w, "Run %s (%s)\n", detail.RunID, detail.Scenario)
	fmt.Fprintf(w, "  seed %d, %d steps, last tick %d\n", detail.Seed, detail.Steps, detail.LastTick)
	fmt.Fprintf(w, "  config  %s\n", detail.ConfigDigest)
	fmt.Fprintf(w, "  library %s\n", detail.LibraryDigest)
	fmt.Fprintf(w, "  expired %d, evicted %d, diagnostics %d\n", detail.Expired, detail.Evicted, detail.Diagnostics)
	fmt.Fprintf(w, "  snapshots at ticks %v\n", detail.SnapshotTicks)
	fmt.Fprintln(w, "  fired:")
	for _, k := range log.FiredKeys() {
		fmt.Fprintf(w, "    storylet %-6d %d time(s)\n", k, detail.FireCounts[k])
	}
	return nil
}

func inspectTick(ctx context.Context, st *store.Store, formatter *OutputFormatter, runID string, tick int64) error {
	step, err := st.ReadStep(ctx, runID, tick)
	if errors.Is(err, sql.ErrNoRows) {
		return formatter.Fail(ExitCommandError, ErrCodeNotFound, fmt.Sprintf("run %s has no step at tick %d", runID, tick), nil)
	}
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeDatabase, "failed to read step", err)
	}

	detail := TickDetail{
		RunID:        runID,
		Tick:         tick,
		Result:       step.Result,
		ResultDigest: step.ResultDigest,
		StateDigest:  step.StateDigest,
	}
	snap, err := st.ReadSnapshot(ctx, runID, tick)
	switch {
	case err == nil:
		detail.Snapshot = &snap
	case !errors.Is(err, sql.ErrNoRows):
		return formatter.Fail(ExitCommandError, ErrCodeDatabase, "failed to read snapshot", err)
	}

	if formatter.JSON() {
		return formatter.Success(detail)
	}
	writeTickText(formatter.Writer, detail)
	return nil
}

func writeTickText(w io.Writer, d TickDetail) {
	r := d.Result
	fmt.Fprintf(w, "Run %s, tick %d\n", d.RunID, d.Tick)
	if r.Fired != nil {
		fmt.Fprintf(w, "  fired storylet %d (%s, score %.4g) outcome %q\n", r.Fired.Key, r.Fired.Source, r.Fired.Score, r.Fired.Outcome)
	} else {
		fmt.Fprintln(w, "  nothing fired")
	}
	fmt.Fprintf(w, "  heat %g, %d candidate(s)\n", r.Heat, r.Candidates)
	if len(r.Expired) > 0 {
		fmt.Fprintf(w, "  expired %v\n", r.Expired)
	}
	if len(r.Evicted) > 0 {
		fmt.Fprintf(w, "  evicted %v\n", r.Evicted)
	}
	for _, diag := range r.Diagnostics {
		fmt.Fprintf(w, "  [%s] %s\n", diag.Code, diag.Message)
	}
	fmt.Fprintf(w, "  state %s\n", d.StateDigest)

	if d.Snapshot == nil {
		return
	}
	s := d.Snapshot
	fmt.Fprintf(w, "  snapshot: heat %g, next seq %d, %d cooldown(s)\n", s.Heat, s.NextSeq, len(s.Cooldowns))
	for _, p := range s.Pressures {
		fmt.Fprintf(w, "    pressure %s = %g (cooldown %d)\n", p.ID, p.Value, p.CooldownRemaining)
	}
	for _, m := range s.Milestones {
		fmt.Fprintf(w, "    milestone %s stage %d, progress %g\n", m.ID, m.Stage, m.Progress)
	}
	for _, e := range s.Queue {
		fmt.Fprintf(w, "    queued storylet %d (%s) ready at %d, seq %d\n", e.Key, e.Source, e.ReadyTick, e.Seq)
	}
}
