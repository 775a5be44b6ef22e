package cli

import (
	"bytes"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/storylet/internal/store"
)

// fixtures is the village scenario shared with the harness tests.
const fixtures = "../harness/testdata"

// copyFixtures copies the village library, config and scenario into a temp
// dir, keeping their relative layout.
func copyFixtures(t *testing.T) (root, scenarioPath string) {
	t.Helper()
	root = t.TempDir()
	for _, rel := range []string{
		"director.yaml",
		filepath.Join("library", "village.cue"),
		filepath.Join("scenarios", "village_year.yaml"),
	} {
		data, err := os.ReadFile(filepath.Join(fixtures, rel))
		require.NoError(t, err)
		dst := filepath.Join(root, rel)
		require.NoError(t, os.MkdirAll(filepath.Dir(dst), 0o755))
		require.NoError(t, os.WriteFile(dst, data, 0o644))
	}
	return root, filepath.Join(root, "scenarios", "village_year.yaml")
}

// execute runs the root command with args and returns stdout.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	buf := &bytes.Buffer{}
	cmd := NewRootCommand()
	cmd.SetOut(buf)
	cmd.SetErr(io.Discard)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

// recordRun runs a scenario into dbPath and returns the new run's ID.
func recordRun(t *testing.T, dbPath, scenario string, ids store.RunIDGenerator) string {
	t.Helper()
	buf := &bytes.Buffer{}
	cmd := newRunCommand(&RootOptions{Format: "json"}, ids)
	cmd.SetOut(buf)
	cmd.SetErr(io.Discard)
	cmd.SetArgs([]string{"--db", dbPath, scenario})
	require.NoError(t, cmd.Execute())

	var summary RunSummary
	decodeData(t, buf.String(), &summary)
	require.NotEmpty(t, summary.RunID)
	return summary.RunID
}

type rawResponse struct {
	Status string          `json:"status"`
	Data   json.RawMessage `json:"data"`
	Error  *CLIError       `json:"error"`
}

func decodeResponse(t *testing.T, out string) rawResponse {
	t.Helper()
	var resp rawResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp), "output: %s", out)
	return resp
}

func decodeData(t *testing.T, out string, v any) {
	t.Helper()
	resp := decodeResponse(t, out)
	require.NotEmpty(t, resp.Data, "output: %s", out)
	require.NoError(t, json.Unmarshal(resp.Data, v))
}
