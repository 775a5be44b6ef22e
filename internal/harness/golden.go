package harness

import (
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/storylet/internal/ir"
)

// GoldenTrace renders a result as canonical JSON: the scenario identity,
// every step result, the state digest after each step and the digest of
// the final state.
func GoldenTrace(s *Scenario, result *Result) ([]byte, error) {
	steps := make(ir.IRArray, len(result.Steps))
	for i, st := range result.Steps {
		obj := st.IR()
		obj["state_digest"] = ir.IRString(result.Digests[i])
		steps[i] = obj
	}
	final, err := ir.SnapshotDigest(result.Final)
	if err != nil {
		return nil, err
	}
	return ir.MarshalCanonical(ir.IRObject{
		"scenario":       ir.IRString(s.Name),
		"seed":           ir.IRInt(s.Seed),
		"config_digest":  ir.IRString(result.ConfigDigest),
		"library_digest": ir.IRString(result.LibraryDigest),
		"steps":          steps,
		"final_digest":   ir.IRString(final),
	})
}

// RunWithGolden executes a scenario and compares its trace against a golden
// file in testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Returns the result so callers can check assertions; test failure (via
// goldie) occurs if the trace doesn't match the golden file.
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(t.Context(), scenario)
	if err != nil {
		return nil, err
	}
	if err := AssertGolden(t, scenario, result); err != nil {
		return nil, err
	}
	return result, nil
}

// AssertGolden compares an existing result against the scenario's golden
// file without re-running.
func AssertGolden(t *testing.T, scenario *Scenario, result *Result) error {
	t.Helper()

	return assertGoldenIn(t, "testdata/golden", scenario, result)
}

func assertGoldenIn(t *testing.T, dir string, scenario *Scenario, result *Result) error {
	t.Helper()

	traceJSON, err := GoldenTrace(scenario, result)
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir(dir),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenario.Name, traceJSON)
	return nil
}
