package director

import (
	"fmt"

	"github.com/roach88/storylet/internal/ir"
)

// Trace is the record of a run: every step result and the state digest
// after each step.
type Trace struct {
	Results []ir.StepResult
	Digests []string
	Final   ir.Snapshot
}

// Run steps a fresh state for seed through inputs.
//
// Inputs must not share mutable world or memory values that change
// between calls if the trace is to be compared with another run.
func (d *Director) Run(seed int64, inputs []StepInput) (*Trace, error) {
	return d.RunFrom(d.NewState(seed), inputs)
}

// RunFrom steps st through inputs, recording results and digests.
func (d *Director) RunFrom(st *State, inputs []StepInput) (*Trace, error) {
	tr := &Trace{
		Results: make([]ir.StepResult, 0, len(inputs)),
		Digests: make([]string, 0, len(inputs)),
	}
	for _, in := range inputs {
		tr.Results = append(tr.Results, d.Step(st, in))
		digest, err := st.Digest()
		if err != nil {
			return nil, fmt.Errorf("digest after tick %d: %w", st.Tick(), err)
		}
		tr.Digests = append(tr.Digests, digest)
	}
	tr.Final = st.Snapshot()
	return tr, nil
}

// DeterminismError reports the first step at which two runs diverged.
type DeterminismError struct {
	Step     int
	Tick     int64
	Expected string
	Got      string
}

// Error implements the error interface.
func (e *DeterminismError) Error() string {
	return fmt.Sprintf("nondeterministic: step %d (tick %d) digest %s != %s", e.Step, e.Tick, e.Got, e.Expected)
}

// Compare checks got against want step by step, by state digest and
// result digest.
func Compare(want, got *Trace) error {
	if len(want.Digests) != len(got.Digests) {
		return fmt.Errorf("nondeterministic: %d steps vs %d", len(got.Digests), len(want.Digests))
	}
	for i := range want.Digests {
		if want.Digests[i] != got.Digests[i] {
			return &DeterminismError{Step: i, Tick: want.Results[i].Tick, Expected: want.Digests[i], Got: got.Digests[i]}
		}
		wr, err := ir.ResultDigest(want.Results[i])
		if err != nil {
			return err
		}
		gr, err := ir.ResultDigest(got.Results[i])
		if err != nil {
			return err
		}
		if wr != gr {
			return &DeterminismError{Step: i, Tick: want.Results[i].Tick, Expected: wr, Got: gr}
		}
	}
	return nil
}

// VerifyDeterminism runs inputs twice from seed and fails on the first
// divergence. World and memory in inputs must be immutable snapshots.
func (d *Director) VerifyDeterminism(seed int64, inputs []StepInput) error {
	first, err := d.Run(seed, inputs)
	if err != nil {
		return err
	}
	second, err := d.Run(seed, inputs)
	if err != nil {
		return err
	}
	return Compare(first, second)
}
