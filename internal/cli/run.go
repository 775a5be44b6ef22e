package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/storylet/internal/harness"
	"github.com/roach88/storylet/internal/ir"
	"github.com/roach88/storylet/internal/store"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Database string
	Seed     int64

	// RunIDs allows overriding the run ID generator (for testing).
	// If nil, defaults to UUIDv7Generator.
	RunIDs store.RunIDGenerator
}

// RunSummary is the outcome of a recorded scenario run.
type RunSummary struct {
	RunID       string   `json:"run_id"`
	Scenario    string   `json:"scenario"`
	Seed        int64    `json:"seed"`
	Ticks       int      `json:"ticks"`
	Fired       int      `json:"fired"`
	Expired     int      `json:"expired"`
	Evicted     int      `json:"evicted"`
	Diagnostics int      `json:"diagnostics"`
	FinalDigest string   `json:"final_digest"`
	Pass        bool     `json:"pass"`
	Errors      []string `json:"errors,omitempty"`
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	return newRunCommand(rootOpts, nil)
}

func newRunCommand(rootOpts *RootOptions, ids store.RunIDGenerator) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts, RunIDs: ids}

	cmd := &cobra.Command{
		Use:   "run <scenario.yaml>",
		Short: "Run a scenario and record it",
		Long: `Run a scenario through the director and record the run in a SQLite
database: the run record, every step result and state digest, and
snapshots per the scenario's snapshot_every plus the final state.

The seed comes from --seed, then STORYLET_SEED, then the scenario.

Exit codes:
  0 - Run recorded and every assertion held
  1 - Run recorded but an assertion failed or the run was nondeterministic
  2 - Command error (scenario not found, database error, etc.)

Example:
  storylet run --db ./storylet.db scenarios/famine.yaml
  storylet run --db /tmp/test.db scenarios/famine.yaml --seed 42 --verbose`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScenarioFile(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (default $STORYLET_DB)")
	cmd.Flags().Int64Var(&opts.Seed, "seed", 0, "override the scenario seed")

	return cmd
}

func runScenarioFile(opts *RunOptions, path string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)
	logger := opts.logger(cmd)

	dbPath, err := opts.dbPath(opts.Database)
	if err != nil {
		return err
	}

	s, err := harness.LoadScenario(path)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeScenario, "failed to load scenario", err)
	}
	switch {
	case cmd.Flags().Changed("seed"):
		s.Seed = opts.Seed
	case opts.Env.Seed != 0:
		s.Seed = opts.Env.Seed
	}

	logger.Info("opening database", "path", dbPath)
	st, err := store.Open(dbPath)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeDatabase, "failed to open database", err)
	}
	defer func() {
		if closeErr := st.Close(); closeErr != nil {
			logger.Error("error closing database", "error", closeErr)
		}
	}()

	ids := opts.RunIDs
	if ids == nil {
		ids = store.UUIDv7Generator{}
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	logger.Info("running scenario", "scenario", s.Name, "seed", s.Seed, "ticks", s.Ticks)
	result, err := harness.Run(ctx, s, harness.WithLogger(logger), harness.WithStore(st, ids))
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeScenario, "failed to run scenario", err)
	}

	summary, err := summarize(s, result)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeGeneric, "failed to digest final state", err)
	}
	logger.Info("run recorded", "run", summary.RunID, "fired", summary.Fired, "pass", summary.Pass)

	if formatter.JSON() {
		resp := CLIResponse{Status: "ok", Data: summary}
		if !summary.Pass {
			resp.Status = "error"
			resp.Error = &CLIError{Code: ErrCodeTestFailed, Message: fmt.Sprintf("%d assertion(s) failed", len(summary.Errors))}
		}
		if err := formatter.Respond(resp); err != nil {
			return err
		}
	} else {
		outputRunText(formatter, summary)
	}

	if !summary.Pass {
		return NewExitError(ExitFailure, fmt.Sprintf("scenario %s failed", s.Name))
	}
	return nil
}

func summarize(s *harness.Scenario, result *harness.Result) (RunSummary, error) {
	final, err := ir.SnapshotDigest(result.Final)
	if err != nil {
		return RunSummary{}, err
	}
	summary := RunSummary{
		RunID:       result.RunID,
		Scenario:    s.Name,
		Seed:        s.Seed,
		Ticks:       len(result.Steps),
		FinalDigest: final,
		Pass:        result.Pass,
		Errors:      result.Errors,
	}
	for _, st := range result.Steps {
		if st.Fired != nil {
			summary.Fired++
		}
		summary.Expired += len(st.Expired)
		summary.Evicted += len(st.Evicted)
		summary.Diagnostics += len(st.Diagnostics)
	}
	return summary, nil
}

func outputRunText(formatter *OutputFormatter, summary RunSummary) {
	w := formatter.Writer
	mark := "✓"
	if !summary.Pass {
		mark = "✗"
	}
	fmt.Fprintf(w, "%s %s (run %s)\n", mark, summary.Scenario, summary.RunID)
	fmt.Fprintf(w, "  seed %d, %d ticks, %d fired, %d expired, %d evicted, %d diagnostics\n",
		summary.Seed, summary.Ticks, summary.Fired, summary.Expired, summary.Evicted, summary.Diagnostics)
	fmt.Fprintf(w, "  final state %s\n", summary.FinalDigest)
	for _, e := range summary.Errors {
		fmt.Fprintf(w, "  %s\n", e)
	}
}
