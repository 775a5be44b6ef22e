package harness

import (
	"github.com/roach88/storylet/internal/director"
	"github.com/roach88/storylet/internal/ir"
)

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass indicates overall success: every assertion held and the
	// second run matched the first.
	Pass bool `json:"pass"`

	// Steps contains every StepResult in tick order.
	Steps []ir.StepResult `json:"steps"`

	// Digests contains the state digest after each step.
	Digests []string `json:"digests"`

	// Final is the director state after the last tick.
	Final ir.Snapshot `json:"final"`

	// RunID is set when the run was recorded to a store.
	RunID string `json:"run_id,omitempty"`

	ConfigDigest  string `json:"config_digest"`
	LibraryDigest string `json:"library_digest"`

	// Errors contains assertion failures and determinism mismatches.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:    true,
		Steps:   []ir.StepResult{},
		Digests: []string{},
		Errors:  []string{},
	}
}

// AddError adds an error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// Trace returns the run as a director trace for comparison.
func (r *Result) Trace() *director.Trace {
	return &director.Trace{Results: r.Steps, Digests: r.Digests, Final: r.Final}
}

// Fired returns the firing at tick, or nil.
func (r *Result) Fired(tick int64) *ir.Firing {
	for _, st := range r.Steps {
		if st.Tick == tick {
			return st.Fired
		}
	}
	return nil
}

// FireTicks returns the ticks at which key fired.
func (r *Result) FireTicks(key ir.StoryletKey) []int64 {
	var ticks []int64
	for _, st := range r.Steps {
		if st.Fired != nil && st.Fired.Key == key {
			ticks = append(ticks, st.Tick)
		}
	}
	return ticks
}
