package cli

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/storylet/internal/ir"
	"github.com/roach88/storylet/internal/snapshot"
)

// ExportOptions holds flags for the export command.
type ExportOptions struct {
	*RootOptions
	Database string
	RunID    string
	Tick     int64 // 0 = latest snapshot
	Out      string
}

// ExportResult describes a written snapshot file.
type ExportResult struct {
	RunID  string `json:"run_id"`
	Tick   int64  `json:"tick"`
	Digest string `json:"digest"`
	Path   string `json:"path"`
}

// NewExportCommand creates the export command.
func NewExportCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ExportOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export a stored snapshot to a file",
		Long: `Export a snapshot stored for a run to a zstd-compressed snapshot file.

Without --tick, the run's latest snapshot is exported. The written file is
read back and its digest checked before the command succeeds.

Examples:
  storylet export --db ./storylet.db --run 0192f3a1-... --out final.snap.zst
  storylet export --db ./storylet.db --run 0192f3a1-... --tick 10 --out t10.snap.zst`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExport(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (default $STORYLET_DB)")
	cmd.Flags().StringVar(&opts.RunID, "run", "", "run to export from")
	cmd.Flags().Int64Var(&opts.Tick, "tick", 0, "snapshot tick (default: latest)")
	cmd.Flags().StringVar(&opts.Out, "out", "", "output file")
	_ = cmd.MarkFlagRequired("run")
	_ = cmd.MarkFlagRequired("out")

	return cmd
}

func runExport(opts *ExportOptions, cmd *cobra.Command) error {
	ctx := context.Background()
	formatter := opts.formatter(cmd)

	dbPath, err := opts.dbPath(opts.Database)
	if err != nil {
		return err
	}
	st, err := openExisting(dbPath)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeDatabase, "failed to open database", err)
	}
	defer st.Close()

	var snap ir.Snapshot
	if opts.Tick == 0 {
		snap, err = st.LatestSnapshot(ctx, opts.RunID)
	} else {
		snap, err = st.ReadSnapshot(ctx, opts.RunID, opts.Tick)
	}
	if errors.Is(err, sql.ErrNoRows) {
		msg := fmt.Sprintf("run %s has no snapshot", opts.RunID)
		if opts.Tick != 0 {
			msg = fmt.Sprintf("run %s has no snapshot at tick %d", opts.RunID, opts.Tick)
		}
		return formatter.Fail(ExitCommandError, ErrCodeNotFound, msg, nil)
	}
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeDatabase, "failed to read snapshot", err)
	}

	formatter.VerboseLog("Writing snapshot %s@%d to %s", opts.RunID, snap.Tick, opts.Out)
	if err := snapshot.Write(opts.Out, opts.RunID, snap); err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeGeneric, "failed to write snapshot", err)
	}
	header, _, err := snapshot.Read(opts.Out)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeValidation, "written snapshot does not read back", err)
	}

	result := ExportResult{RunID: opts.RunID, Tick: header.Tick, Digest: header.Digest, Path: opts.Out}
	if formatter.JSON() {
		return formatter.Success(result)
	}
	fmt.Fprintf(formatter.Writer, "✓ Exported %s@%d to %s\n", result.RunID, result.Tick, result.Path)
	fmt.Fprintf(formatter.Writer, "  digest %s\n", result.Digest)
	return nil
}
