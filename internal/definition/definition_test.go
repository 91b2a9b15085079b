package definition

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/souissim/gridpath/internal/modules"
	"github.com/souissim/gridpath/internal/scenario"
)

func TestCompileString_Full(t *testing.T) {
	s, err := CompileString(`
scenario: base: {
	id:          7
	description: "two weather years"
	inputs:      "in"
	modules:     ["temporal", "objective"]
	structure: {weather: ["1", "2"], subproblems: ["a"]}
	solver: {backend: "gonum", timeout: "1m30s", node_limit: 200}
}`, "base")
	require.NoError(t, err)

	assert.Equal(t, &Scenario{
		Name:        "base",
		ID:          7,
		Description: "two weather years",
		Inputs:      "in",
		Modules:     []string{"temporal", "objective"},
		Structure:   scenario.Structure{Weather: []string{"1", "2"}, Subproblems: []string{"a"}},
		Solver:      Solver{Backend: "gonum", Timeout: 90 * time.Second, NodeLimit: 200},
	}, s)
}

func TestCompileString_Minimal(t *testing.T) {
	s, err := CompileString(`scenario: m: id: 3`, "m")
	require.NoError(t, err)
	assert.Equal(t, int64(3), s.ID)
	assert.Empty(t, s.Modules)
	assert.Equal(t, 1, s.Structure.Len())
	assert.Zero(t, s.Solver.Timeout)
}

func TestCompileString_SchemaErrors(t *testing.T) {
	tests := []struct {
		name string
		src  string
	}{
		{"missing id", `scenario: s: description: "x"`},
		{"zero id", `scenario: s: id: 0`},
		{"unknown field", `scenario: s: {id: 1, moduels: ["temporal"]}`},
		{"wrong type", `scenario: s: {id: 1, modules: "temporal"}`},
		{"negative node limit", `scenario: s: {id: 1, solver: node_limit: -1}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := CompileString(tt.src, "s")
			require.Error(t, err)
			var ce *CompileError
			assert.ErrorAs(t, err, &ce)
		})
	}
}

func TestCompileString_BadTimeout(t *testing.T) {
	_, err := CompileString(`scenario: s: {id: 1, solver: timeout: "soon"}`, "s")
	require.Error(t, err)

	var ce *CompileError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, "solver.timeout", ce.Field)
	assert.Contains(t, ce.Message, `"soon"`)
}

func TestLoad_Directory(t *testing.T) {
	dir := filepath.Join("testdata", "valid")
	res, errs := Load(dir, LoadModeCollectAll)
	require.Empty(t, errs)

	assert.Equal(t, 1, res.FileCount)
	require.Len(t, res.Scenarios, 2)
	assert.Equal(t, "base", res.Scenarios[0].Name)
	assert.Equal(t, "weather", res.Scenarios[1].Name)

	base, ok := res.Scenario("base")
	require.True(t, ok)
	assert.Equal(t, filepath.Join(dir, "../inputs"), base.Inputs)
	assert.Equal(t, modules.Default(), base.Modules)
	assert.Equal(t, 30*time.Second, base.Solver.Timeout)

	w, ok := res.Scenario("weather")
	require.True(t, ok)
	assert.Equal(t, []string{"high", "low"}, w.Structure.Weather)
	assert.Equal(t, 500, w.Solver.NodeLimit)

	_, ok = res.Scenario("absent")
	assert.False(t, ok)
}

func TestLoad_Errors(t *testing.T) {
	t.Run("missing directory", func(t *testing.T) {
		_, errs := Load(filepath.Join(t.TempDir(), "nope"), LoadModeFailFast)
		require.Len(t, errs, 1)
		assertLoadCode(t, errs[0], ErrCodeNotFound)
	})

	t.Run("no cue files", func(t *testing.T) {
		dir := t.TempDir()
		require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644))
		_, errs := Load(dir, LoadModeFailFast)
		require.Len(t, errs, 1)
		assertLoadCode(t, errs[0], ErrCodeNoFiles)
	})

	t.Run("syntax error", func(t *testing.T) {
		dir := t.TempDir()
		require.NoError(t, os.WriteFile(filepath.Join(dir, "bad.cue"), []byte("package s\nscenario: {"), 0o644))
		_, errs := Load(dir, LoadModeFailFast)
		require.Len(t, errs, 1)
		assertLoadCode(t, errs[0], ErrCodeLoadFailed)
	})

	t.Run("collects schema errors", func(t *testing.T) {
		dir := t.TempDir()
		src := "package s\nscenario: a: id: 0\nscenario: b: {id: 2, bogus: true}\nscenario: c: id: 3\n"
		require.NoError(t, os.WriteFile(filepath.Join(dir, "s.cue"), []byte(src), 0o644))

		res, errs := Load(dir, LoadModeCollectAll)
		require.Len(t, errs, 2)
		for _, err := range errs {
			assertLoadCode(t, err, ErrCodeSchema)
		}
		require.Len(t, res.Scenarios, 1)
		assert.Equal(t, "c", res.Scenarios[0].Name)

		_, errs = Load(dir, LoadModeFailFast)
		assert.Len(t, errs, 1)
	})

	t.Run("no scenario struct", func(t *testing.T) {
		dir := t.TempDir()
		require.NoError(t, os.WriteFile(filepath.Join(dir, "s.cue"), []byte("package s\nother: 1\n"), 0o644))
		_, errs := Load(dir, LoadModeFailFast)
		require.Len(t, errs, 1)
		assertLoadCode(t, errs[0], ErrCodeGeneric)
	})
}

func assertLoadCode(t *testing.T, err error, code string) {
	t.Helper()
	var le *LoadError
	require.ErrorAs(t, err, &le)
	assert.Equal(t, code, le.Code, le.Message)
}

func TestFindCUEFiles_TopLevelOnly(t *testing.T) {
	dir := t.TempDir()
	sub := filepath.Join(dir, "nested")
	require.NoError(t, os.MkdirAll(sub, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "root.cue"), []byte("package s"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notcue.txt"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(sub, "nested.cue"), []byte("package s"), 0o644))

	files, err := FindCUEFiles(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(dir, "root.cue")}, files)
}
