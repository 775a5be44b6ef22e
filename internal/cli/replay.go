package cli

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/storylet/internal/harness"
	"github.com/roach88/storylet/internal/store"
)

// ReplayOptions holds flags for the replay command.
type ReplayOptions struct {
	*RootOptions
	Database string
	RunID    string // optional - defaults to the latest run
	All      bool
}

// ReplayRunResult holds the replay result for a single run.
type ReplayRunResult struct {
	RunID         string `json:"run_id"`
	Scenario      string `json:"scenario"`
	Steps         int    `json:"steps"`
	Deterministic bool   `json:"deterministic"`
	Divergence    string `json:"divergence,omitempty"`
}

// ReplayResult holds the overall replay result.
type ReplayResult struct {
	Runs             []ReplayRunResult `json:"runs"`
	TotalRuns        int               `json:"total_runs"`
	AllDeterministic bool              `json:"all_deterministic"`
}

// NewReplayCommand creates the replay command.
func NewReplayCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ReplayOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "replay",
		Short: "Re-execute recorded runs and verify determinism",
		Long: `Re-execute recorded runs from their stored scenario and seed, and compare
every step's result digest and state digest against the log.

A run whose library or config changed since recording reports drift
instead of stepping.

Exit codes:
  0 - Every replayed run matched its log
  1 - A run diverged or drifted
  2 - Command error (database not found, unknown run, etc.)

Examples:
  storylet replay --db ./storylet.db
  storylet replay --db ./storylet.db --run 0192f3a1-...
  storylet replay --db ./storylet.db --all --format json`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReplay(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (default $STORYLET_DB)")
	cmd.Flags().StringVar(&opts.RunID, "run", "", "replay a specific run (default: latest)")
	cmd.Flags().BoolVar(&opts.All, "all", false, "replay every recorded run")
	cmd.MarkFlagsMutuallyExclusive("run", "all")

	return cmd
}

func runReplay(opts *ReplayOptions, cmd *cobra.Command) error {
	ctx := context.Background()
	formatter := opts.formatter(cmd)
	logger := opts.logger(cmd)

	dbPath, err := opts.dbPath(opts.Database)
	if err != nil {
		return err
	}
	st, err := openExisting(dbPath)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeDatabase, "failed to open database", err)
	}
	defer st.Close()

	runIDs, err := replayTargets(ctx, st, opts)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeNotFound, "failed to find runs", err)
	}

	if len(runIDs) == 0 {
		if formatter.JSON() {
			return outputReplayJSON(formatter, ReplayResult{Runs: []ReplayRunResult{}, AllDeterministic: true})
		}
		fmt.Fprintln(formatter.Writer, "No runs found in database.")
		return nil
	}

	result := ReplayResult{
		Runs:             make([]ReplayRunResult, 0, len(runIDs)),
		TotalRuns:        len(runIDs),
		AllDeterministic: true,
	}
	for _, id := range runIDs {
		formatter.VerboseLog("Replaying run %s", id)
		report, err := harness.Replay(ctx, st, id, logger)
		if err != nil {
			return formatter.Fail(ExitCommandError, ErrCodeScenario, fmt.Sprintf("failed to replay run %s", id), err)
		}
		run, err := st.GetRun(ctx, id)
		if err != nil {
			return formatter.Fail(ExitCommandError, ErrCodeDatabase, fmt.Sprintf("failed to read run %s", id), err)
		}

		rr := ReplayRunResult{
			RunID:         id,
			Scenario:      run.ScenarioName,
			Steps:         report.Steps,
			Deterministic: report.Err == nil,
		}
		if report.Err != nil {
			rr.Divergence = report.Err.Error()
			result.AllDeterministic = false
		}
		result.Runs = append(result.Runs, rr)
	}

	if formatter.JSON() {
		return outputReplayJSON(formatter, result)
	}
	return outputReplayText(formatter, result)
}

// replayTargets resolves which runs to replay.
func replayTargets(ctx context.Context, st *store.Store, opts *ReplayOptions) ([]string, error) {
	switch {
	case opts.RunID != "":
		if _, err := st.GetRun(ctx, opts.RunID); err != nil {
			return nil, err
		}
		return []string{opts.RunID}, nil
	case opts.All:
		runs, err := st.ListRuns(ctx)
		if err != nil {
			return nil, err
		}
		ids := make([]string, len(runs))
		for i, r := range runs {
			ids[i] = r.ID
		}
		return ids, nil
	}
	run, err := st.LatestRun(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return []string{run.ID}, nil
}

// outputReplayJSON outputs the replay result as JSON.
func outputReplayJSON(formatter *OutputFormatter, result ReplayResult) error {
	response := CLIResponse{
		Status: "ok",
		Data:   result,
	}

	if !result.AllDeterministic {
		response.Status = "error"
		response.Error = &CLIError{
			Code:    ErrCodeDeterminism,
			Message: "determinism verification failed",
		}
	}

	if err := formatter.Respond(response); err != nil {
		return err
	}

	if !result.AllDeterministic {
		// Determinism failure = exit code 1
		return NewExitError(ExitFailure, "determinism verification failed")
	}
	return nil
}

// outputReplayText outputs the replay result as text.
func outputReplayText(formatter *OutputFormatter, result ReplayResult) error {
	w := formatter.Writer

	fmt.Fprintf(w, "Replay Summary: %d run(s)\n", result.TotalRuns)
	fmt.Fprintln(w)

	for _, run := range result.Runs {
		if run.Deterministic {
			fmt.Fprintf(w, "✓ %s (%s): %d steps match\n", run.RunID, run.Scenario, run.Steps)
			continue
		}
		fmt.Fprintf(w, "✗ %s (%s)\n", run.RunID, run.Scenario)
		fmt.Fprintf(w, "  %s\n", run.Divergence)
	}

	fmt.Fprintln(w)
	if !result.AllDeterministic {
		fmt.Fprintln(w, "✗ Determinism verification failed")
		return NewExitError(ExitFailure, "determinism verification failed")
	}
	fmt.Fprintln(w, "✓ All runs deterministic")
	return nil
}
