package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFiles(t *testing.T, dir string, names ...string) {
	t.Helper()
	for _, name := range names {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("name: x\n"), 0o644))
	}
}

func TestFindScenarios(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, "war.yaml", "famine.yml", "notes.txt", "festival.yaml")
	require.NoError(t, os.Mkdir(filepath.Join(dir, "golden.yaml"), 0o755))

	files, err := FindScenarios(dir, "")
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(dir, "famine.yml"),
		filepath.Join(dir, "festival.yaml"),
		filepath.Join(dir, "war.yaml"),
	}, files)
}

func TestFindScenarios_Filter(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, "war.yaml", "famine.yml", "festival.yaml")

	files, err := FindScenarios(dir, "f*")
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(dir, "famine.yml"),
		filepath.Join(dir, "festival.yaml"),
	}, files)

	files, err = FindScenarios(dir, "war")
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(dir, "war.yaml")}, files)
}

func TestFindScenarios_NoMatch(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, "war.yaml")

	_, err := FindScenarios(dir, "peace*")
	var notFound *ScenarioNotFoundError
	require.ErrorAs(t, err, &notFound)
	assert.Equal(t, "peace*", notFound.Filter)
	assert.Contains(t, err.Error(), `match "peace*"`)

	_, err = FindScenarios(t.TempDir(), "")
	require.ErrorAs(t, err, &notFound)
	assert.Contains(t, err.Error(), "no scenario files in")
}

func TestFindScenarios_BadFilter(t *testing.T) {
	_, err := FindScenarios(t.TempDir(), "[")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid filter")
}

func TestFindScenarios_MissingDir(t *testing.T) {
	_, err := FindScenarios(filepath.Join(t.TempDir(), "absent"), "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read scenario dir")
}

func TestFindScenarios_Testdata(t *testing.T) {
	files, err := FindScenarios(filepath.Join("testdata", "scenarios"), "")
	require.NoError(t, err)
	assert.Equal(t, []string{villageScenario}, files)
}

func TestGoldenPath(t *testing.T) {
	assert.Equal(t,
		filepath.Join("scenarios", "golden", "famine.golden"),
		GoldenPath(filepath.Join("scenarios", "famine.yaml")))
	assert.Equal(t,
		filepath.Join("golden", "war.golden"),
		GoldenPath("war.yml"))
}
