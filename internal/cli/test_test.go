package cli

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/souissim/gridpath/internal/harness"
)

var casesDir = filepath.Join("..", "harness", "testdata", "cases")

func TestTestCommand_AllCasesPass(t *testing.T) {
	out, err := execute(t, NewTestCommand(&RootOptions{Format: "text"}), casesDir)
	require.NoError(t, err, out)
	assert.Contains(t, out, "✓ carbon_cap_soft\n")
	assert.Contains(t, out, "Test Summary: 4 passed, 0 failed, 4 total")
	assert.Contains(t, out, "✓ All cases passed")
}

func TestTestCommand_Filter(t *testing.T) {
	out, err := execute(t, NewTestCommand(&RootOptions{Format: "json"}), "--filter", "carbon_*", casesDir)
	require.NoError(t, err)

	var resp struct {
		Status string              `json:"status"`
		Data   harness.SuiteResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp), out)
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, 1, resp.Data.Total)
	assert.Equal(t, "carbon_cap_soft", resp.Data.Cases[0].Case)
}

func TestTestCommand_InvalidFilter(t *testing.T) {
	_, err := execute(t, NewTestCommand(&RootOptions{Format: "text"}), "--filter", "[", casesDir)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestTestCommand_NoCases(t *testing.T) {
	out, err := execute(t, NewTestCommand(&RootOptions{Format: "text"}), t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, "No cases found.\n", out)
}

func TestTestCommand_MissingDirectory(t *testing.T) {
	_, err := execute(t, NewTestCommand(&RootOptions{Format: "text"}), filepath.Join(t.TempDir(), "none"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

// writeCase writes a single case against the harness's basic scenario.
func writeCase(t *testing.T, objective string) string {
	t.Helper()
	inputs, err := filepath.Abs(filepath.Join("..", "harness", "testdata", "scenarios", "basic"))
	require.NoError(t, err)
	dir := filepath.Join(t.TempDir(), "cases")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	body := "name: tiny\ndescription: basic objective\ninputs: " + inputs + "\nassertions:\n  - type: objective\n    value: " + objective + "\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "tiny.yaml"), []byte(body), 0o644))
	return dir
}

func TestTestCommand_FailingCase(t *testing.T) {
	dir := writeCase(t, "1")

	out, err := execute(t, NewTestCommand(&RootOptions{Format: "text"}), dir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "✗ tiny")
	assert.Contains(t, out, "Test Summary: 0 passed, 1 failed, 1 total")
}

func TestTestCommand_UpdateThenCompareGolden(t *testing.T) {
	dir := writeCase(t, "53200")
	golden := filepath.Join(filepath.Dir(dir), "golden")

	out, err := execute(t, NewTestCommand(&RootOptions{Format: "text"}), "--update", dir)
	require.NoError(t, err, out)
	assert.Contains(t, out, "✓ tiny (golden updated)")
	require.FileExists(t, filepath.Join(golden, "tiny.golden"))

	_, err = execute(t, NewTestCommand(&RootOptions{Format: "text"}), dir)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(golden, "tiny.golden"), []byte("stale\n"), 0o644))
	out, err = execute(t, NewTestCommand(&RootOptions{Format: "text"}), dir)
	require.Error(t, err)
	assert.Contains(t, out, "does not match golden file")
}
