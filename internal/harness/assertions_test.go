package harness

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/storylet/internal/ir"
)

// syntheticResult fires key 1 at tick 1, nothing at tick 2, key 2 at
// tick 3 and key 1 again at tick 4. Key 5 expires at tick 3.
func syntheticResult() *Result {
	r := NewResult()
	r.Steps = []ir.StepResult{
		{Tick: 1, Heat: 20, Fired: &ir.Firing{Key: 1, Outcome: "a", Source: ir.SourceFresh, Score: 1}},
		{Tick: 2, Heat: 25},
		{Tick: 3, Heat: 40, Expired: []ir.StoryletKey{5}, Fired: &ir.Firing{Key: 2, Outcome: "b", Source: ir.SourcePressure, Score: 3}},
		{Tick: 4, Heat: 35, Fired: &ir.Firing{Key: 1, Outcome: "a", Source: ir.SourceFresh, Score: 1}},
	}
	r.Final = ir.Snapshot{Tick: 4, Queue: []ir.QueuedEvent{{Key: 3, ReadyTick: 9, Seq: 4}}}
	return r
}

func TestAssertFiredAt(t *testing.T) {
	r := syntheticResult()

	assert.NoError(t, assertFiredAt(r, Assertion{Type: AssertFiredAt, Key: 2, Tick: 3}))

	err := assertFiredAt(r, Assertion{Type: AssertFiredAt, Key: 2, Tick: 1})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "storylet 1 fired")

	err = assertFiredAt(r, Assertion{Type: AssertFiredAt, Key: 2, Tick: 2})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "nothing fired")

	err = assertFiredAt(r, Assertion{Type: AssertFiredAt, Key: 2, Tick: 9})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "tick 9 not run")
}

func TestAssertNoFireAt(t *testing.T) {
	r := syntheticResult()

	assert.NoError(t, assertNoFireAt(r, Assertion{Type: AssertNoFireAt, Tick: 2}))

	err := assertNoFireAt(r, Assertion{Type: AssertNoFireAt, Tick: 3})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "storylet 2 fired")
}

func TestAssertFireCount(t *testing.T) {
	r := syntheticResult()

	assert.NoError(t, assertFireCount(r, Assertion{Type: AssertFireCount, Key: 1, Count: 2}))
	assert.NoError(t, assertFireCount(r, Assertion{Type: AssertFireCount, Key: 9, Count: 0}))

	err := assertFireCount(r, Assertion{Type: AssertFireCount, Key: 1, Count: 3})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "2 firings at ticks [1 4]")
}

func TestAssertNeverFired(t *testing.T) {
	r := syntheticResult()

	assert.NoError(t, assertNeverFired(r, Assertion{Type: AssertNeverFired, Key: 3}))

	err := assertNeverFired(r, Assertion{Type: AssertNeverFired, Key: 2})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "fired at ticks [3]")
}

func TestAssertExpired(t *testing.T) {
	r := syntheticResult()

	assert.NoError(t, assertExpired(r, Assertion{Type: AssertExpired, Key: 5}))
	assert.NoError(t, assertExpired(r, Assertion{Type: AssertExpired, Key: 5, Tick: 3}))

	err := assertExpired(r, Assertion{Type: AssertExpired, Key: 5, Tick: 4})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "expired at ticks [3]")

	err = assertExpired(r, Assertion{Type: AssertExpired, Key: 1})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "never expired")
}

func TestAssertHeatBetween(t *testing.T) {
	r := syntheticResult()

	assert.NoError(t, assertHeatBetween(r, Assertion{Type: AssertHeatBetween, Min: 20, Max: 40}))
	assert.NoError(t, assertHeatBetween(r, Assertion{Type: AssertHeatBetween, Min: 25, Max: 25, Tick: 2}))

	err := assertHeatBetween(r, Assertion{Type: AssertHeatBetween, Min: 0, Max: 30})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "heat 40 at tick 3")

	err = assertHeatBetween(r, Assertion{Type: AssertHeatBetween, Min: 0, Max: 100, Tick: 7})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "tick 7 not run")
}

func TestAssertFinalQueueLen(t *testing.T) {
	r := syntheticResult()

	assert.NoError(t, assertFinalQueueLen(r, Assertion{Type: AssertFinalQueueLen, Count: 1}))

	err := assertFinalQueueLen(r, Assertion{Type: AssertFinalQueueLen, Count: 0})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 queued entries")
}

func TestEvaluateAssertions_AllPass(t *testing.T) {
	r := syntheticResult()

	errs := EvaluateAssertions(r, []Assertion{
		{Type: AssertFiredAt, Key: 1, Tick: 1},
		{Type: AssertNoFireAt, Tick: 2},
		{Type: AssertFireCount, Key: 2, Count: 1},
		{Type: AssertNeverFired, Key: 4},
		{Type: AssertExpired, Key: 5},
		{Type: AssertHeatBetween, Min: 0, Max: 100},
		{Type: AssertFinalQueueLen, Count: 1},
	})
	assert.Empty(t, errs)
}

func TestEvaluateAssertions_SomeFail(t *testing.T) {
	r := syntheticResult()

	errs := EvaluateAssertions(r, []Assertion{
		{Type: AssertFiredAt, Key: 1, Tick: 1},
		{Type: AssertNeverFired, Key: 1},
		{Type: AssertFinalQueueLen, Count: 3},
	})
	require.Len(t, errs, 2)
	assert.Contains(t, errs[0], "Assertion failed: never_fired")
	assert.Contains(t, errs[1], "Assertion failed: final_queue_len")
}

func TestEvaluateAssertions_UnknownType(t *testing.T) {
	errs := EvaluateAssertions(syntheticResult(), []Assertion{{Type: "fired_eventually"}})
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0], `unknown assertion type "fired_eventually"`)
}

func TestAssertionError_ErrorFormat(t *testing.T) {
	r := syntheticResult()
	err := &AssertionError{
		Type:     AssertFiredAt,
		Expected: "storylet 9 fires at tick 1",
		Actual:   "storylet 1 fired",
		Steps:    r.Steps,
	}

	msg := err.Error()
	assert.Contains(t, msg, "Assertion failed: fired_at")
	assert.Contains(t, msg, "Expected: storylet 9 fires at tick 1")
	assert.Contains(t, msg, "Actual: storylet 1 fired")
	assert.Contains(t, msg, "[tick 1] storylet 1 (fresh, score 1)")
	assert.Contains(t, msg, "[tick 3] storylet 2 (pressure, score 3)")
	assert.NotContains(t, msg, "[tick 2]")
}

func TestAssertionError_NoFirings(t *testing.T) {
	err := &AssertionError{Type: AssertFiredAt, Steps: []ir.StepResult{{Tick: 1}}}
	assert.Contains(t, err.Error(), "(none)")
}

func TestResult_Helpers(t *testing.T) {
	r := syntheticResult()

	require.NotNil(t, r.Fired(3))
	assert.Equal(t, ir.StoryletKey(2), r.Fired(3).Key)
	assert.Nil(t, r.Fired(2))
	assert.Nil(t, r.Fired(42))
	assert.Equal(t, []int64{1, 4}, r.FireTicks(1))
	assert.Nil(t, r.FireTicks(8))

	assert.True(t, r.Pass)
	r.AddError("boom")
	assert.False(t, r.Pass)
	assert.Equal(t, []string{"boom"}, r.Errors)
}
