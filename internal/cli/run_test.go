package cli

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/souissim/gridpath/internal/compose"
	"github.com/souissim/gridpath/internal/scenario"
	"github.com/souissim/gridpath/internal/store"
)

type runResponse struct {
	Status string    `json:"status"`
	Data   RunReport `json:"data"`
	Error  *CLIError `json:"error"`
}

func runJSON(t *testing.T, args ...string) (runResponse, error) {
	t.Helper()
	out, _, err := executeSplit(t, NewRunCommand(&RootOptions{Format: "json"}), args...)
	var resp runResponse
	if out != "" {
		require.NoError(t, json.Unmarshal([]byte(out), &resp), out)
	}
	return resp, err
}

func TestRunCommand_Text(t *testing.T) {
	db := filepath.Join(t.TempDir(), "gridpath.db")

	out, logs, err := executeSplit(t, NewRunCommand(&RootOptions{Format: "text"}),
		"--db", db, "--scenario", "base", defsDir)
	require.NoError(t, err)
	assert.Contains(t, out, "scenario base (id 1)")
	assert.Contains(t, out, "✓ default optimal objective")
	assert.Contains(t, logs, "running scenario")

	st, err := store.Open(db)
	require.NoError(t, err)
	defer st.Close()
	run, ok, err := st.GetRun(context.Background(), store.Scope{ScenarioID: 1})
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, store.RunSucceeded, run.Status)
}

func TestRunCommand_AllScenarios(t *testing.T) {
	db := filepath.Join(t.TempDir(), "gridpath.db")

	resp, err := runJSON(t, "--db", db, defsDir)
	require.NoError(t, err)
	assert.Equal(t, "ok", resp.Status)
	require.Len(t, resp.Data.Scenarios, 2)

	objectives := make(map[string]float64)
	for _, s := range resp.Data.Scenarios {
		require.Len(t, s.Results, 1)
		r := s.Results[0]
		require.True(t, r.Succeeded(), r.Message)
		require.NotNil(t, r.Objective)
		assert.Equal(t, scenario.Key{}, r.Key)
		assert.NotEmpty(t, r.RunID)
		objectives[s.Name] = *r.Objective
	}
	assert.InDelta(t, 53200, objectives["base"], 1e-3)
	assert.InDelta(t, 44400, objectives["nocap"], 1e-3)
	assert.Zero(t, resp.Data.Failed())
}

func TestRunCommand_Errors(t *testing.T) {
	t.Setenv("GRIDPATH_DATABASE", "")
	db := filepath.Join(t.TempDir(), "gridpath.db")

	tests := []struct {
		name string
		args []string
		code int
		want string
	}{
		{"no database", []string{defsDir}, ExitCommandError, "no database"},
		{"unknown scenario", []string{"--db", db, "--scenario", "hydro", defsDir}, ExitCommandError, `scenario "hydro" not defined`},
		{"missing definitions", []string{"--db", db, "testdata/none"}, ExitCommandError, "failed to load definitions"},
		{"zero workers", []string{"--db", db, "--workers", "0", defsDir}, ExitCommandError, "workers must be at least 1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := execute(t, NewRunCommand(&RootOptions{Format: "text"}), tt.args...)
			require.Error(t, err)
			assert.Equal(t, tt.code, GetExitCode(err))
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestRunCommand_DatabaseFromEnvironment(t *testing.T) {
	db := filepath.Join(t.TempDir(), "env.db")
	t.Setenv("GRIDPATH_DATABASE", db)

	_, err := runJSON(t, "--scenario", "nocap", defsDir)
	require.NoError(t, err)
	assert.FileExists(t, db)
}

func TestRunCommand_FromDB(t *testing.T) {
	db := filepath.Join(t.TempDir(), "gridpath.db")

	// Nothing imported yet: the key fails while loading.
	resp, err := runJSON(t, "--db", db, "--from-db", "--scenario", "base", defsDir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, err.Error(), "1 key(s) failed")
	require.Len(t, resp.Data.Scenarios, 1)
	assert.False(t, resp.Data.Scenarios[0].Results[0].Succeeded())

	_, err = execute(t, NewImportCommand(&RootOptions{Format: "text"}), "--db", db, "--scenario", "base", defsDir)
	require.NoError(t, err)

	resp, err = runJSON(t, "--db", db, "--from-db", "--scenario", "base", defsDir)
	require.NoError(t, err)
	r := resp.Data.Scenarios[0].Results[0]
	require.NotNil(t, r.Objective)
	assert.InDelta(t, 53200, *r.Objective, 1e-3)
}

func TestRunCommand_StageResultsAndMetrics(t *testing.T) {
	defs, inputs := writeDefs(t, `scenario: base: {
	id:     7
	inputs: _inputs
}`)
	dir := t.TempDir()
	metricsFile := filepath.Join(dir, "gridpath.prom")

	_, err := runJSON(t, "--db", filepath.Join(dir, "gridpath.db"), "--stage-results", "--metrics-file", metricsFile, defs)
	require.NoError(t, err)

	assert.FileExists(t, filepath.Join(inputs, "results", "project_period.tab"))

	data, err := os.ReadFile(metricsFile)
	require.NoError(t, err)
	assert.Contains(t, string(data), "gridpath_scenario_runs_total")
}

func TestRunCommand_TraceFile(t *testing.T) {
	defs, _ := writeDefs(t, `scenario: base: {
	id:     8
	inputs: _inputs
}`)
	dir := t.TempDir()
	traceFile := filepath.Join(dir, "gridpath.trace")

	_, err := runJSON(t, "--db", filepath.Join(dir, "gridpath.db"), "--trace-file", traceFile, defs)
	require.NoError(t, err)

	f, err := os.Open(traceFile)
	require.NoError(t, err)
	defer f.Close()

	names := map[string]int{}
	dec := json.NewDecoder(f)
	for dec.More() {
		var span struct{ Name string }
		require.NoError(t, dec.Decode(&span))
		names[span.Name]++
	}
	assert.Equal(t, 1, names["compose.Run"])
	assert.Equal(t, 1, names["compose.RunKey"])
	for _, phase := range []string{"declare", "validate", "load", "contribute", "assemble", "solve", "export", "persist"} {
		assert.Equal(t, 1, names["compose.phase."+phase], phase)
	}
}

func TestRunCommand_FailedKeyIsReported(t *testing.T) {
	defs, inputs := writeDefs(t, `scenario: broken: {
	id:     3
	inputs: _inputs
}`)
	require.NoError(t, os.Remove(filepath.Join(inputs, "inputs", "periods.tab")))

	out, _, err := executeSplit(t, NewRunCommand(&RootOptions{Format: "text"}),
		"--db", filepath.Join(t.TempDir(), "gridpath.db"), defs)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "✗ default failed")
	assert.Contains(t, out, "periods")
}

func TestRunReport_String(t *testing.T) {
	obj := 12.5
	r := RunReport{Scenarios: []ScenarioReport{{
		Name:    "base",
		ID:      1,
		Results: []compose.KeyResult{
			{Key: scenario.Key{}, Status: store.RunSucceeded, SolverStatus: "optimal", Objective: &obj, Tables: []string{"a", "b"}},
			{Key: scenario.Key{Weather: "low"}, Status: store.RunFailed, Phase: "solve", Message: "infeasible"},
		},
	}}}

	assert.Equal(t, `scenario base (id 1)
  ✓ default optimal objective 12.5 (2 tables)
  ✗ weather=low failed at solve: infeasible`, r.String())
	assert.Equal(t, 1, r.Failed())
}
