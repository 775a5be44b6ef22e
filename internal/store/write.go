package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/roach88/storylet/internal/ir"
)

// Run is one recorded execution of a scenario.
type Run struct {
	ID            string
	Seq           int64 // Creation order, assigned by CreateRun
	Seed          int64
	ConfigDigest  string
	LibraryDigest string
	ScenarioName  string
	ScenarioPath  string
	Scenario      string // Scenario source, kept so the run can be replayed
	StepCount     int    // Filled by GetRun and ListRuns
}

// Step is one logged tick of a run.
type Step struct {
	RunID        string
	Tick         int64
	Result       ir.StepResult
	ResultDigest string
	StateDigest  string
}

// CreateRun inserts a run record and assigns its seq.
// Returns the run with Seq set. A duplicate ID is an error.
func (s *Store) CreateRun(ctx context.Context, run Run) (Run, error) {
	if run.ID == "" {
		return Run{}, fmt.Errorf("create run: empty id")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Run{}, fmt.Errorf("create run: begin transaction: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	if err := tx.QueryRowContext(ctx, `SELECT COALESCE(MAX(seq), 0) + 1 FROM runs`).Scan(&run.Seq); err != nil {
		return Run{}, fmt.Errorf("create run: next seq: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO runs
		(id, seq, seed, config_digest, library_digest, scenario_name, scenario_path, scenario)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`,
		run.ID,
		run.Seq,
		run.Seed,
		run.ConfigDigest,
		run.LibraryDigest,
		run.ScenarioName,
		run.ScenarioPath,
		run.Scenario,
	)
	if err != nil {
		return Run{}, fmt.Errorf("create run %s: %w", run.ID, err)
	}

	if err := tx.Commit(); err != nil {
		return Run{}, fmt.Errorf("create run: commit: %w", err)
	}
	return run, nil
}

// WriteStep logs the result of one tick together with the state digest
// after the step. Writing the same tick twice is an error: the log is
// append-only.
func (s *Store) WriteStep(ctx context.Context, runID string, result ir.StepResult, stateDigest string) error {
	resultJSON, err := marshalResult(result)
	if err != nil {
		return fmt.Errorf("write step: %w", err)
	}
	resultDigest, err := ir.ResultDigest(result)
	if err != nil {
		return fmt.Errorf("write step: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO steps
		(run_id, tick, fired_key, result_json, result_digest, state_digest)
		VALUES (?, ?, ?, ?, ?, ?)
	`,
		runID,
		result.Tick,
		firedKey(result),
		resultJSON,
		resultDigest,
		stateDigest,
	)
	if err != nil {
		return fmt.Errorf("write step %s@%d: %w", runID, result.Tick, err)
	}
	return nil
}

// WriteSnapshot stores snap for runID at snap.Tick, replacing any snapshot
// already stored at that tick. All rows are written in one transaction.
func (s *Store) WriteSnapshot(ctx context.Context, runID string, snap ir.Snapshot) error {
	digest, err := ir.SnapshotDigest(snap)
	if err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("write snapshot: begin transaction: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	for _, table := range snapshotTables {
		if _, err := tx.ExecContext(ctx, `DELETE FROM `+table+` WHERE run_id = ? AND tick = ?`, runID, snap.Tick); err != nil {
			return fmt.Errorf("write snapshot: clear %s: %w", table, err)
		}
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO snapshots (run_id, tick, version, seed, heat_bits, next_seq, digest)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, runID, snap.Tick, snap.Version, snap.Seed, floatToBits(snap.Heat), snap.NextSeq, digest)
	if err != nil {
		return fmt.Errorf("write snapshot %s@%d: %w", runID, snap.Tick, err)
	}

	if err := writeSnapshotRows(ctx, tx, runID, snap); err != nil {
		return fmt.Errorf("write snapshot %s@%d: %w", runID, snap.Tick, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("write snapshot: commit: %w", err)
	}
	return nil
}

// snapshotTables lists snapshot tables children first.
var snapshotTables = []string{
	"snapshot_cooldowns",
	"snapshot_pressures",
	"snapshot_milestones",
	"snapshot_queue",
	"snapshots",
}

func writeSnapshotRows(ctx context.Context, tx *sql.Tx, runID string, snap ir.Snapshot) error {
	for _, c := range snap.Cooldowns {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO snapshot_cooldowns (run_id, tick, key, last_fired)
			VALUES (?, ?, ?, ?)
		`, runID, snap.Tick, int64(c.Key), c.LastFired)
		if err != nil {
			return fmt.Errorf("cooldown %d: %w", c.Key, err)
		}
	}
	for _, p := range snap.Pressures {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO snapshot_pressures (run_id, tick, id, value_bits, cooldown_remaining)
			VALUES (?, ?, ?, ?, ?)
		`, runID, snap.Tick, p.ID, floatToBits(p.Value), p.CooldownRemaining)
		if err != nil {
			return fmt.Errorf("pressure %s: %w", p.ID, err)
		}
	}
	for _, m := range snap.Milestones {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO snapshot_milestones (run_id, tick, id, stage, progress_bits)
			VALUES (?, ?, ?, ?, ?)
		`, runID, snap.Tick, m.ID, m.Stage, floatToBits(m.Progress))
		if err != nil {
			return fmt.Errorf("milestone %s: %w", m.ID, err)
		}
	}
	for _, e := range snap.Queue {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO snapshot_queue (run_id, tick, seq, key, source, ready_tick, max_wait_ticks, origin)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		`, runID, snap.Tick, e.Seq, int64(e.Key), e.Source.String(), e.ReadyTick, e.MaxWaitTicks, e.Origin)
		if err != nil {
			return fmt.Errorf("queue entry %d: %w", e.Seq, err)
		}
	}
	return nil
}
