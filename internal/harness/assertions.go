package harness

import (
	"fmt"
	"slices"
	"strings"

	"github.com/roach88/storylet/internal/ir"
)

// AssertionError is returned when an assertion fails.
// It includes the firing timeline to help debug the failure.
type AssertionError struct {
	Type     string          // Assertion type for categorization
	Expected string          // Human-readable expected outcome
	Actual   string          // Human-readable actual outcome
	Steps    []ir.StepResult // Full run for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	fmt.Fprintf(&buf, "\nFirings:\n")
	fired := false
	for _, st := range e.Steps {
		if st.Fired != nil {
			fmt.Fprintf(&buf, "  [tick %d] storylet %d (%s, score %.4g)\n",
				st.Tick, st.Fired.Key, st.Fired.Source, st.Fired.Score)
			fired = true
		}
	}
	if !fired {
		fmt.Fprintf(&buf, "  (none)\n")
	}
	return buf.String()
}

func stepAt(steps []ir.StepResult, tick int64) (ir.StepResult, bool) {
	for _, st := range steps {
		if st.Tick == tick {
			return st, true
		}
	}
	return ir.StepResult{}, false
}

func describeFiring(st ir.StepResult) string {
	if st.Fired == nil {
		return "nothing fired"
	}
	return fmt.Sprintf("storylet %d fired", st.Fired.Key)
}

// assertFiredAt checks that the storylet fired at the tick.
func assertFiredAt(r *Result, a Assertion) error {
	st, ok := stepAt(r.Steps, a.Tick)
	if ok && st.Fired != nil && st.Fired.Key == a.Key {
		return nil
	}
	actual := fmt.Sprintf("tick %d not run", a.Tick)
	if ok {
		actual = describeFiring(st)
	}
	return &AssertionError{
		Type:     AssertFiredAt,
		Expected: fmt.Sprintf("storylet %d fires at tick %d", a.Key, a.Tick),
		Actual:   actual,
		Steps:    r.Steps,
	}
}

// assertNoFireAt checks that nothing fired at the tick.
func assertNoFireAt(r *Result, a Assertion) error {
	st, ok := stepAt(r.Steps, a.Tick)
	if ok && st.Fired == nil {
		return nil
	}
	actual := fmt.Sprintf("tick %d not run", a.Tick)
	if ok {
		actual = describeFiring(st)
	}
	return &AssertionError{
		Type:     AssertNoFireAt,
		Expected: fmt.Sprintf("nothing fires at tick %d", a.Tick),
		Actual:   actual,
		Steps:    r.Steps,
	}
}

// assertFireCount checks that the storylet fired exactly Count times.
func assertFireCount(r *Result, a Assertion) error {
	ticks := r.FireTicks(a.Key)
	if len(ticks) == a.Count {
		return nil
	}
	return &AssertionError{
		Type:     AssertFireCount,
		Expected: fmt.Sprintf("%d firings of storylet %d", a.Count, a.Key),
		Actual:   fmt.Sprintf("%d firings at ticks %v", len(ticks), ticks),
		Steps:    r.Steps,
	}
}

// assertNeverFired checks that the storylet never fired.
func assertNeverFired(r *Result, a Assertion) error {
	ticks := r.FireTicks(a.Key)
	if len(ticks) == 0 {
		return nil
	}
	return &AssertionError{
		Type:     AssertNeverFired,
		Expected: fmt.Sprintf("storylet %d never fires", a.Key),
		Actual:   fmt.Sprintf("fired at ticks %v", ticks),
		Steps:    r.Steps,
	}
}

// assertExpired checks that the storylet expired from the queue, at Tick
// when one is given.
func assertExpired(r *Result, a Assertion) error {
	var ticks []int64
	for _, st := range r.Steps {
		if slices.Contains(st.Expired, a.Key) {
			if a.Tick == 0 || st.Tick == a.Tick {
				return nil
			}
			ticks = append(ticks, st.Tick)
		}
	}
	expected := fmt.Sprintf("storylet %d expires", a.Key)
	if a.Tick != 0 {
		expected += fmt.Sprintf(" at tick %d", a.Tick)
	}
	actual := "never expired"
	if len(ticks) > 0 {
		actual = fmt.Sprintf("expired at ticks %v", ticks)
	}
	return &AssertionError{Type: AssertExpired, Expected: expected, Actual: actual, Steps: r.Steps}
}

// assertHeatBetween checks heat at Tick, or at every tick when Tick is 0.
func assertHeatBetween(r *Result, a Assertion) error {
	for _, st := range r.Steps {
		if a.Tick != 0 && st.Tick != a.Tick {
			continue
		}
		if st.Heat < a.Min || st.Heat > a.Max {
			return &AssertionError{
				Type:     AssertHeatBetween,
				Expected: fmt.Sprintf("heat in [%g, %g]", a.Min, a.Max),
				Actual:   fmt.Sprintf("heat %g at tick %d", st.Heat, st.Tick),
				Steps:    r.Steps,
			}
		}
		if a.Tick != 0 {
			return nil
		}
	}
	if a.Tick != 0 {
		return &AssertionError{
			Type:     AssertHeatBetween,
			Expected: fmt.Sprintf("heat in [%g, %g] at tick %d", a.Min, a.Max, a.Tick),
			Actual:   fmt.Sprintf("tick %d not run", a.Tick),
			Steps:    r.Steps,
		}
	}
	return nil
}

// assertFinalQueueLen checks the queue length after the last tick.
func assertFinalQueueLen(r *Result, a Assertion) error {
	if n := len(r.Final.Queue); n != a.Count {
		return &AssertionError{
			Type:     AssertFinalQueueLen,
			Expected: fmt.Sprintf("%d queued entries", a.Count),
			Actual:   fmt.Sprintf("%d queued entries", n),
			Steps:    r.Steps,
		}
	}
	return nil
}

// EvaluateAssertions evaluates all assertions against the result.
// Returns a slice of error messages for failed assertions.
func EvaluateAssertions(result *Result, assertions []Assertion) []string {
	var errors []string

	for i, assertion := range assertions {
		var err error

		switch assertion.Type {
		case AssertFiredAt:
			err = assertFiredAt(result, assertion)
		case AssertNoFireAt:
			err = assertNoFireAt(result, assertion)
		case AssertFireCount:
			err = assertFireCount(result, assertion)
		case AssertNeverFired:
			err = assertNeverFired(result, assertion)
		case AssertExpired:
			err = assertExpired(result, assertion)
		case AssertHeatBetween:
			err = assertHeatBetween(result, assertion)
		case AssertFinalQueueLen:
			err = assertFinalQueueLen(result, assertion)
		default:
			err = fmt.Errorf("assertion[%d]: unknown assertion type %q", i, assertion.Type)
		}

		if err != nil {
			errors = append(errors, err.Error())
		}
	}

	return errors
}
