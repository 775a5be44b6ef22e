package store

import (
	"context"
	"fmt"
	"slices"

	"github.com/roach88/storylet/internal/ir"
)

// RunLog is a run together with everything logged for it, for replay
// verification and inspection.
type RunLog struct {
	Run           Run
	Steps         []Step
	SnapshotTicks []int64
	LastTick      int64
	FireCounts    map[ir.StoryletKey]int
	Expired       int // Queue entries dropped for waiting too long
	Evicted       int // Queue entries dropped on overflow
	Diagnostics   int
}

// FiredKeys returns the keys in FireCounts in ascending order.
func (l RunLog) FiredKeys() []ir.StoryletKey {
	keys := make([]ir.StoryletKey, 0, len(l.FireCounts))
	for k := range l.FireCounts {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// GetRunLog loads a run, its steps and its snapshot ticks, and tallies
// the step results.
func (s *Store) GetRunLog(ctx context.Context, runID string) (RunLog, error) {
	run, err := s.GetRun(ctx, runID)
	if err != nil {
		return RunLog{}, fmt.Errorf("get run log: %w", err)
	}
	steps, err := s.ReadSteps(ctx, runID)
	if err != nil {
		return RunLog{}, fmt.Errorf("get run log: %w", err)
	}
	ticks, err := s.SnapshotTicks(ctx, runID)
	if err != nil {
		return RunLog{}, fmt.Errorf("get run log: %w", err)
	}

	log := RunLog{
		Run:           run,
		Steps:         steps,
		SnapshotTicks: ticks,
		FireCounts:    make(map[ir.StoryletKey]int),
	}
	for _, st := range steps {
		r := st.Result
		log.LastTick = max(log.LastTick, r.Tick)
		if r.Fired != nil {
			log.FireCounts[r.Fired.Key]++
		}
		log.Expired += len(r.Expired)
		log.Evicted += len(r.Evicted)
		log.Diagnostics += len(r.Diagnostics)
	}
	return log, nil
}

// StepMismatch is the first logged step that a re-execution disagrees with.
type StepMismatch struct {
	Tick     int64
	Field    string // "state_digest", "result_digest" or "length"
	Expected string
	Got      string
}

// Error implements the error interface.
func (m *StepMismatch) Error() string {
	return fmt.Sprintf("replay diverged at tick %d: %s %s != %s", m.Tick, m.Field, m.Got, m.Expected)
}

// CompareSteps checks re-executed step results and state digests against
// the logged steps, in tick order. Returns nil when they agree.
func CompareSteps(logged []Step, results []ir.StepResult, stateDigests []string) error {
	if len(results) != len(stateDigests) {
		return fmt.Errorf("compare steps: %d results vs %d digests", len(results), len(stateDigests))
	}
	if len(logged) != len(results) {
		var tick int64
		if n := min(len(logged), len(results)); n > 0 {
			tick = logged[n-1].Tick
		}
		return &StepMismatch{
			Tick:     tick,
			Field:    "length",
			Expected: fmt.Sprint(len(logged)),
			Got:      fmt.Sprint(len(results)),
		}
	}
	for i, st := range logged {
		if st.StateDigest != stateDigests[i] {
			return &StepMismatch{Tick: st.Tick, Field: "state_digest", Expected: st.StateDigest, Got: stateDigests[i]}
		}
		got, err := ir.ResultDigest(results[i])
		if err != nil {
			return fmt.Errorf("compare steps: %w", err)
		}
		if st.ResultDigest != got {
			return &StepMismatch{Tick: st.Tick, Field: "result_digest", Expected: st.ResultDigest, Got: got}
		}
	}
	return nil
}
