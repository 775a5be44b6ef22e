package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/roach88/storylet/internal/compiler"
	"github.com/roach88/storylet/internal/config"
	"github.com/roach88/storylet/internal/director"
	"github.com/roach88/storylet/internal/ir"
	"github.com/roach88/storylet/internal/store"
)

// Option configures a scenario run.
type Option func(*options)

type options struct {
	logger *slog.Logger
	store  *store.Store
	runIDs store.RunIDGenerator
}

// WithLogger sets the logger handed to the director. Runs discard logs
// by default.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithStore records the run: a run record, every step, and snapshots per
// the scenario's snapshot_every plus the final state.
func WithStore(st *store.Store, ids store.RunIDGenerator) Option {
	return func(o *options) {
		o.store = st
		o.runIDs = ids
	}
}

// Build loads the scenario's configuration and library and creates a
// director over them. A nil logger discards.
func Build(s *Scenario, logger *slog.Logger) (*director.Director, error) {
	if logger == nil {
		logger = discardLogger()
	}
	cfg := config.Default()
	if p := s.ConfigPath(); p != "" {
		var err error
		if cfg, err = config.Load(p); err != nil {
			return nil, fmt.Errorf("scenario %s: %w", s.Name, err)
		}
	}
	lib, err := compiler.LoadLibrary(s.LibraryPath())
	if err != nil {
		return nil, fmt.Errorf("scenario %s: %w", s.Name, err)
	}
	d, err := director.New(cfg, lib, director.WithLogger(logger))
	if err != nil {
		return nil, fmt.Errorf("scenario %s: %w", s.Name, err)
	}
	return d, nil
}

// Run executes a scenario and returns the result.
//
// Execution flow:
//  1. Load the configuration and compile the library
//  2. Step the director tick by tick, with the scripted host applying
//     inputs and outcome effects
//  3. Run the scenario a second time and compare state and result digests
//  4. Evaluate assertions against the first run
//  5. Record the run when a store is configured
//
// An error is returned when the scenario cannot be executed; assertion
// failures and nondeterminism are reported in Result.Errors.
func Run(ctx context.Context, s *Scenario, opts ...Option) (*Result, error) {
	o := options{logger: discardLogger()}
	for _, opt := range opts {
		opt(&o)
	}

	d, err := Build(s, o.logger)
	if err != nil {
		return nil, err
	}

	result, snaps, err := Execute(d, s)
	if err != nil {
		return nil, err
	}
	second, _, err := Execute(d, s)
	if err != nil {
		return nil, err
	}
	if err := director.Compare(result.Trace(), second.Trace()); err != nil {
		result.AddError(err.Error())
	}

	for _, msg := range EvaluateAssertions(result, s.Assertions) {
		result.AddError(msg)
	}

	if o.store != nil {
		if err := record(ctx, o.store, o.runIDs, s, result, snaps); err != nil {
			return nil, err
		}
	}
	return result, nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// Execute steps a fresh state through the scenario once. It returns the
// result without assertions, and the snapshots to record.
func Execute(d *director.Director, s *Scenario) (*Result, []ir.Snapshot, error) {
	result := NewResult()
	var err error
	if result.ConfigDigest, err = d.Config().Digest(); err != nil {
		return nil, nil, err
	}
	if result.LibraryDigest, err = d.Library().Digest(); err != nil {
		return nil, nil, err
	}

	st := d.NewState(s.Seed)
	h := newHost(s)
	var snaps []ir.Snapshot

	for tick := int64(1); tick <= s.Ticks; tick++ {
		res := d.Step(st, h.input(tick))
		digest, err := st.Digest()
		if err != nil {
			return nil, nil, fmt.Errorf("scenario %s: tick %d: %w", s.Name, tick, err)
		}
		result.Steps = append(result.Steps, res)
		result.Digests = append(result.Digests, digest)

		if res.Fired != nil {
			h.apply(res.Fired, tick)
		}
		if s.SnapshotEvery > 0 && tick%s.SnapshotEvery == 0 && tick != s.Ticks {
			snaps = append(snaps, st.Snapshot())
		}
	}
	result.Final = st.Snapshot()
	snaps = append(snaps, result.Final)
	return result, snaps, nil
}

func record(ctx context.Context, st *store.Store, ids store.RunIDGenerator, s *Scenario, result *Result, snaps []ir.Snapshot) error {
	if ids == nil {
		ids = store.UUIDv7Generator{}
	}
	run, err := st.CreateRun(ctx, store.Run{
		ID:            ids.Generate(),
		Seed:          s.Seed,
		ConfigDigest:  result.ConfigDigest,
		LibraryDigest: result.LibraryDigest,
		ScenarioName:  s.Name,
		ScenarioPath:  s.Path(),
		Scenario:      string(s.Source()),
	})
	if err != nil {
		return fmt.Errorf("record scenario %s: %w", s.Name, err)
	}
	for i, res := range result.Steps {
		if err := st.WriteStep(ctx, run.ID, res, result.Digests[i]); err != nil {
			return fmt.Errorf("record scenario %s: %w", s.Name, err)
		}
	}
	for _, snap := range snaps {
		if err := st.WriteSnapshot(ctx, run.ID, snap); err != nil {
			return fmt.Errorf("record scenario %s: %w", s.Name, err)
		}
	}
	result.RunID = run.ID
	return nil
}
