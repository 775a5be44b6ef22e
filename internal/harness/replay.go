package harness

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/roach88/storylet/internal/store"
)

// DriftError reports that a recorded run's configuration or library no
// longer matches what its scenario loads today.
type DriftError struct {
	RunID    string
	What     string // "config" or "library"
	Recorded string
	Current  string
}

// Error implements the error interface.
func (e *DriftError) Error() string {
	return fmt.Sprintf("run %s: %s changed since recording (digest %s, now %s)", e.RunID, e.What, e.Recorded, e.Current)
}

// ReplayReport is the outcome of re-executing a recorded run.
type ReplayReport struct {
	RunID string
	Steps int
	// Err is nil when every step matched. Otherwise it is a *DriftError or a
	// *store.StepMismatch.
	Err error
}

// Replay re-executes a recorded run from its stored scenario source and
// compares every step against the log. The recorded seed overrides the
// scenario's. Relative paths in the scenario resolve against the directory
// of the recorded scenario path.
func Replay(ctx context.Context, st *store.Store, runID string, logger *slog.Logger) (*ReplayReport, error) {
	run, err := st.GetRun(ctx, runID)
	if err != nil {
		return nil, fmt.Errorf("replay: %w", err)
	}
	s, err := ParseScenario([]byte(run.Scenario), filepath.Dir(run.ScenarioPath))
	if err != nil {
		return nil, fmt.Errorf("replay %s: %w", runID, err)
	}
	s.path = run.ScenarioPath
	s.Seed = run.Seed

	d, err := Build(s, logger)
	if err != nil {
		return nil, fmt.Errorf("replay %s: %w", runID, err)
	}
	result, _, err := Execute(d, s)
	if err != nil {
		return nil, fmt.Errorf("replay %s: %w", runID, err)
	}

	report := &ReplayReport{RunID: runID, Steps: len(result.Steps)}
	switch {
	case result.ConfigDigest != run.ConfigDigest:
		report.Err = &DriftError{RunID: runID, What: "config", Recorded: run.ConfigDigest, Current: result.ConfigDigest}
		return report, nil
	case result.LibraryDigest != run.LibraryDigest:
		report.Err = &DriftError{RunID: runID, What: "library", Recorded: run.LibraryDigest, Current: result.LibraryDigest}
		return report, nil
	}

	steps, err := st.ReadSteps(ctx, runID)
	if err != nil {
		return nil, fmt.Errorf("replay %s: %w", runID, err)
	}
	report.Err = store.CompareSteps(steps, result.Steps, result.Digests)
	return report, nil
}
