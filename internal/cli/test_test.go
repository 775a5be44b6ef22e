package cli

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/storylet/internal/harness"
)

func TestTestCommandGoldenLifecycle(t *testing.T) {
	_, scenario := copyFixtures(t)
	dir := filepath.Dir(scenario)
	golden := harness.GoldenPath(scenario)

	// No golden file yet: assertions alone decide.
	out, err := execute(t, "--format", "json", "test", dir)
	require.NoError(t, err)
	var result TestResult
	decodeData(t, out, &result)
	require.Len(t, result.Scenarios, 1)
	assert.Equal(t, goldenMissing, result.Scenarios[0].Golden)
	assert.True(t, result.Scenarios[0].Pass)
	assert.Equal(t, "village_year", result.Scenarios[0].Name)

	out, err = execute(t, "test", dir, "--update")
	require.NoError(t, err)
	assert.Contains(t, out, "✓ village_year (golden updated)")
	assert.FileExists(t, golden)

	out, err = execute(t, "--format", "json", "test", dir)
	require.NoError(t, err)
	result = TestResult{}
	decodeData(t, out, &result)
	require.Len(t, result.Scenarios, 1)
	assert.Equal(t, goldenMatch, result.Scenarios[0].Golden)
	assert.Equal(t, 1, result.Passed)
	assert.Equal(t, 0, result.Failed)
}

func TestTestCommandGoldenMismatch(t *testing.T) {
	_, scenario := copyFixtures(t)
	dir := filepath.Dir(scenario)
	golden := harness.GoldenPath(scenario)
	require.NoError(t, os.MkdirAll(filepath.Dir(golden), 0o755))
	require.NoError(t, os.WriteFile(golden, []byte("stale trace\n"), 0o644))

	out, err := execute(t, "test", dir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "✗ village_year")
	assert.Contains(t, out, "trace does not match golden file")
	assert.Contains(t, out, "Test Summary: 0 passed, 1 failed, 1 total")
}

func TestTestCommandFailingAssertion(t *testing.T) {
	root, scenario := copyFixtures(t)
	data, err := os.ReadFile(scenario)
	require.NoError(t, err)
	broken := strings.Replace(string(data), "assertions:", "assertions:\n  - { type: no_fire_at, tick: 1 }", 1)
	require.NoError(t, os.WriteFile(filepath.Join(root, "scenarios", "broken.yaml"), []byte(broken), 0o644))

	out, err := execute(t, "--format", "json", "test", filepath.Dir(scenario))
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	resp := decodeResponse(t, out)
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeTestFailed, resp.Error.Code)

	var result TestResult
	decodeData(t, out, &result)
	assert.Equal(t, 2, result.Total)
	assert.Equal(t, 1, result.Passed)
	assert.Equal(t, 1, result.Failed)
	assert.Equal(t, filepath.Join(filepath.Dir(scenario), "broken.yaml"), result.Scenarios[0].File)
	assert.False(t, result.Scenarios[0].Pass)
}

func TestTestCommandFilter(t *testing.T) {
	_, scenario := copyFixtures(t)

	out, err := execute(t, "test", filepath.Dir(scenario), "--filter", "famine*")
	require.NoError(t, err)
	assert.Contains(t, out, "No scenarios found.")

	out, err = execute(t, "--format", "json", "test", filepath.Dir(scenario), "--filter", "village*")
	require.NoError(t, err)
	var result TestResult
	decodeData(t, out, &result)
	assert.Equal(t, 1, result.Total)
}

func TestTestCommandMissingDirectory(t *testing.T) {
	out, err := execute(t, "test", "/nonexistent/scenarios")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, "scenarios directory not found")
}

func TestTestCommandUnloadableScenario(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "bad.yaml"), []byte("name: [unclosed"), 0o644))

	out, err := execute(t, "test", dir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "failed to load scenario")
}
