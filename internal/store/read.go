package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/roach88/storylet/internal/ir"
)

const runColumns = `
	r.id, r.seq, r.seed, r.config_digest, r.library_digest,
	r.scenario_name, r.scenario_path, r.scenario,
	(SELECT COUNT(*) FROM steps s WHERE s.run_id = r.id)
`

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (Run, error) {
	var run Run
	err := row.Scan(
		&run.ID,
		&run.Seq,
		&run.Seed,
		&run.ConfigDigest,
		&run.LibraryDigest,
		&run.ScenarioName,
		&run.ScenarioPath,
		&run.Scenario,
		&run.StepCount,
	)
	return run, err
}

// GetRun retrieves a run by ID.
// Returns an error wrapping sql.ErrNoRows if not found.
func (s *Store) GetRun(ctx context.Context, id string) (Run, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs r WHERE r.id = ?`, id)
	run, err := scanRun(row)
	if err != nil {
		return Run{}, fmt.Errorf("get run %s: %w", id, err)
	}
	return run, nil
}

// ListRuns returns every run in creation order.
// Returns an empty slice (not nil) if there are none.
func (s *Store) ListRuns(ctx context.Context) ([]Run, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+runColumns+` FROM runs r ORDER BY r.seq ASC`)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	runs := []Run{}
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}

// LatestRun returns the run with the highest seq.
// Returns an error wrapping sql.ErrNoRows if the store is empty.
func (s *Store) LatestRun(ctx context.Context) (Run, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs r ORDER BY r.seq DESC LIMIT 1`)
	run, err := scanRun(row)
	if err != nil {
		return Run{}, fmt.Errorf("latest run: %w", err)
	}
	return run, nil
}

func scanStep(row rowScanner) (Step, error) {
	var (
		st         Step
		resultJSON string
	)
	if err := row.Scan(&st.RunID, &st.Tick, &resultJSON, &st.ResultDigest, &st.StateDigest); err != nil {
		return Step{}, err
	}
	result, err := unmarshalResult(resultJSON)
	if err != nil {
		return Step{}, fmt.Errorf("step %s@%d: %w", st.RunID, st.Tick, err)
	}
	st.Result = result
	return st, nil
}

// ReadSteps returns every logged step of a run ordered by tick.
// Returns an empty slice (not nil) if the run has no steps.
func (s *Store) ReadSteps(ctx context.Context, runID string) ([]Step, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT run_id, tick, result_json, result_digest, state_digest
		FROM steps
		WHERE run_id = ?
		ORDER BY tick ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("query steps: %w", err)
	}
	defer rows.Close()

	steps := []Step{}
	for rows.Next() {
		st, err := scanStep(rows)
		if err != nil {
			return nil, fmt.Errorf("scan step: %w", err)
		}
		steps = append(steps, st)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate steps: %w", err)
	}
	return steps, nil
}

// ReadStep returns the step logged for runID at tick.
// Returns an error wrapping sql.ErrNoRows if not found.
func (s *Store) ReadStep(ctx context.Context, runID string, tick int64) (Step, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT run_id, tick, result_json, result_digest, state_digest
		FROM steps
		WHERE run_id = ? AND tick = ?
	`, runID, tick)
	st, err := scanStep(row)
	if err != nil {
		return Step{}, fmt.Errorf("read step %s@%d: %w", runID, tick, err)
	}
	return st, nil
}

// ReadSnapshot loads the snapshot stored for runID at tick and checks it
// against its stored digest.
// Returns an error wrapping sql.ErrNoRows if not found.
func (s *Store) ReadSnapshot(ctx context.Context, runID string, tick int64) (ir.Snapshot, error) {
	snap := ir.Snapshot{Tick: tick}
	var (
		heatBits int64
		digest   string
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT version, seed, heat_bits, next_seq, digest
		FROM snapshots
		WHERE run_id = ? AND tick = ?
	`, runID, tick).Scan(&snap.Version, &snap.Seed, &heatBits, &snap.NextSeq, &digest)
	if err != nil {
		return ir.Snapshot{}, fmt.Errorf("read snapshot %s@%d: %w", runID, tick, err)
	}
	snap.Heat = bitsToFloat(heatBits)

	if err := s.readSnapshotRows(ctx, runID, &snap); err != nil {
		return ir.Snapshot{}, fmt.Errorf("read snapshot %s@%d: %w", runID, tick, err)
	}

	got, err := ir.SnapshotDigest(snap)
	if err != nil {
		return ir.Snapshot{}, fmt.Errorf("read snapshot %s@%d: %w", runID, tick, err)
	}
	if got != digest {
		return ir.Snapshot{}, fmt.Errorf("read snapshot %s@%d: digest mismatch: stored %s, computed %s", runID, tick, digest, got)
	}
	return snap, nil
}

// LatestSnapshot loads the snapshot with the highest tick for runID.
// Returns an error wrapping sql.ErrNoRows if the run has none.
func (s *Store) LatestSnapshot(ctx context.Context, runID string) (ir.Snapshot, error) {
	var tick int64
	err := s.db.QueryRowContext(ctx, `
		SELECT tick FROM snapshots WHERE run_id = ? ORDER BY tick DESC LIMIT 1
	`, runID).Scan(&tick)
	if err != nil {
		return ir.Snapshot{}, fmt.Errorf("latest snapshot %s: %w", runID, err)
	}
	return s.ReadSnapshot(ctx, runID, tick)
}

// SnapshotTicks lists the ticks with a stored snapshot, ascending.
func (s *Store) SnapshotTicks(ctx context.Context, runID string) ([]int64, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT tick FROM snapshots WHERE run_id = ? ORDER BY tick ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("query snapshot ticks: %w", err)
	}
	defer rows.Close()

	ticks := []int64{}
	for rows.Next() {
		var tick int64
		if err := rows.Scan(&tick); err != nil {
			return nil, fmt.Errorf("scan snapshot tick: %w", err)
		}
		ticks = append(ticks, tick)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate snapshot ticks: %w", err)
	}
	return ticks, nil
}

func (s *Store) readSnapshotRows(ctx context.Context, runID string, snap *ir.Snapshot) error {
	snap.Cooldowns = []ir.CooldownEntry{}
	err := s.each(ctx, `
		SELECT key, last_fired FROM snapshot_cooldowns
		WHERE run_id = ? AND tick = ?
		ORDER BY key ASC
	`, runID, snap.Tick, func(rows *sql.Rows) error {
		var (
			c   ir.CooldownEntry
			key int64
		)
		if err := rows.Scan(&key, &c.LastFired); err != nil {
			return err
		}
		c.Key = ir.StoryletKey(key)
		snap.Cooldowns = append(snap.Cooldowns, c)
		return nil
	})
	if err != nil {
		return fmt.Errorf("cooldowns: %w", err)
	}

	snap.Pressures = []ir.PressureEntry{}
	err = s.each(ctx, `
		SELECT id, value_bits, cooldown_remaining FROM snapshot_pressures
		WHERE run_id = ? AND tick = ?
		ORDER BY id COLLATE BINARY ASC
	`, runID, snap.Tick, func(rows *sql.Rows) error {
		var (
			p    ir.PressureEntry
			bits int64
		)
		if err := rows.Scan(&p.ID, &bits, &p.CooldownRemaining); err != nil {
			return err
		}
		p.Value = bitsToFloat(bits)
		snap.Pressures = append(snap.Pressures, p)
		return nil
	})
	if err != nil {
		return fmt.Errorf("pressures: %w", err)
	}

	snap.Milestones = []ir.MilestoneEntry{}
	err = s.each(ctx, `
		SELECT id, stage, progress_bits FROM snapshot_milestones
		WHERE run_id = ? AND tick = ?
		ORDER BY id COLLATE BINARY ASC
	`, runID, snap.Tick, func(rows *sql.Rows) error {
		var (
			m    ir.MilestoneEntry
			bits int64
		)
		if err := rows.Scan(&m.ID, &m.Stage, &bits); err != nil {
			return err
		}
		m.Progress = bitsToFloat(bits)
		snap.Milestones = append(snap.Milestones, m)
		return nil
	})
	if err != nil {
		return fmt.Errorf("milestones: %w", err)
	}

	snap.Queue = []ir.QueuedEvent{}
	err = s.each(ctx, `
		SELECT seq, key, source, ready_tick, max_wait_ticks, origin FROM snapshot_queue
		WHERE run_id = ? AND tick = ?
		ORDER BY ready_tick ASC, seq ASC
	`, runID, snap.Tick, func(rows *sql.Rows) error {
		var (
			e      ir.QueuedEvent
			key    int64
			source string
		)
		if err := rows.Scan(&e.Seq, &key, &source, &e.ReadyTick, &e.MaxWaitTicks, &e.Origin); err != nil {
			return err
		}
		src, err := ir.ParseSource(source)
		if err != nil {
			return fmt.Errorf("seq %d: %w", e.Seq, err)
		}
		e.Key = ir.StoryletKey(key)
		e.Source = src
		snap.Queue = append(snap.Queue, e)
		return nil
	})
	if err != nil {
		return fmt.Errorf("queue: %w", err)
	}
	return nil
}

// each runs query and calls fn for every row.
func (s *Store) each(ctx context.Context, query string, runID string, tick int64, fn func(*sql.Rows) error) error {
	rows, err := s.db.QueryContext(ctx, query, runID, tick)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		if err := fn(rows); err != nil {
			return err
		}
	}
	return rows.Err()
}
