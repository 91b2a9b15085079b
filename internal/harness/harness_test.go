package harness

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/souissim/gridpath/internal/compose"
	"github.com/souissim/gridpath/internal/scenario"
	"github.com/souissim/gridpath/internal/store"
	"github.com/souissim/gridpath/internal/tabfile"
)

func loadTestCase(t *testing.T, name string) *Case {
	t.Helper()
	c, err := LoadCase(filepath.Join("testdata", "cases", name+".yaml"))
	require.NoError(t, err)
	return c
}

func TestRun_CarbonCapSoftGolden(t *testing.T) {
	c := loadTestCase(t, "carbon_cap_soft")

	result, err := RunWithGolden(t, c)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
	require.Len(t, result.Keys, 1)
	assert.Equal(t, store.RunSucceeded, result.Keys[0].Status)
}

func TestRun_NoCarbonCap(t *testing.T) {
	c := loadTestCase(t, "no_carbon_cap")

	result, err := Run(context.Background(), c)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)

	_, ok := result.Keys[0].Table("project_vintage")
	assert.True(t, ok)
}

func TestRun_WeatherIterationsSolveIndependently(t *testing.T) {
	c := loadTestCase(t, "weather_iterations")

	result, err := Run(context.Background(), c)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
	require.Len(t, result.Keys, 2)
	assert.Equal(t, "high", result.Keys[0].Key.Weather)
	assert.Equal(t, "low", result.Keys[1].Key.Weather)
}

func TestRun_UnknownModuleIsRunError(t *testing.T) {
	c := loadTestCase(t, "unknown_module")

	result, err := Run(context.Background(), c)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
	assert.Equal(t, string(compose.ErrCodeUnknownModule), result.RunErrorCode)
	assert.Contains(t, result.RunError, "storage")
	require.Len(t, result.Keys, 1)
	assert.Equal(t, compose.StatusSkipped, result.Keys[0].Status)
	assert.Empty(t, result.Keys[0].Tables)
}

func TestRun_ValidationFailureIsRecorded(t *testing.T) {
	ctx := context.Background()
	src := scenario.NewStage(filepath.Join("testdata", "scenarios", "basic"))
	dir := t.TempDir()
	dst := scenario.NewStage(dir)
	for _, name := range []string{
		"periods", "load_zones", "load_mwh", "projects", "gen_spec_capacity",
		"gen_new_lin_vintage_costs", "gen_new_bin_vintage_costs", "gen_new_bin_build_size",
	} {
		tbl, err := src.Table(ctx, scenario.Key{}, name)
		require.NoError(t, err)
		require.NoError(t, dst.WriteTable(ctx, scenario.Key{}, tbl))
	}
	caps := tabfile.New("carbon_cap", "load_zone", "period", "carbon_cap_tco2", "violation_penalty_per_tco2")
	require.NoError(t, caps.Append("z1", "2050", "3000", "."))
	require.NoError(t, dst.WriteTable(ctx, scenario.Key{}, caps))

	none := 0
	c := &Case{
		Name:        "bad_cap_period",
		Description: "cap in a period outside the calendar",
		Inputs:      dir,
		Assertions: []Assertion{
			{Type: AssertStatus, Status: store.RunFailed},
			{Type: AssertValidationIssue, Module: "carbon_cap", Severity: "High"},
			{Type: AssertRowCount, Table: "project_period", Count: &none},
		},
	}

	result, err := Run(ctx, c)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
	require.Len(t, result.Keys[0].Issues, 1)
	assert.Equal(t, "carbon_cap", result.Keys[0].Issues[0].Module)
}

func TestRun_FailedAssertionsAreReported(t *testing.T) {
	c := loadTestCase(t, "no_carbon_cap")
	wrong := 1.0
	c.Assertions = []Assertion{{Type: AssertObjective, Value: &wrong}}

	result, err := Run(context.Background(), c)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "objective 44400")
}

func TestRun_CancelledContextIsError(t *testing.T) {
	c := loadTestCase(t, "no_carbon_cap")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Run(ctx, c)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNew_WithRegistry(t *testing.T) {
	reg := compose.NewRegistry()
	c := loadTestCase(t, "no_carbon_cap")

	result, err := New(WithRegistry(reg)).Run(context.Background(), c)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	assert.Equal(t, string(compose.ErrCodeUnknownModule), result.RunErrorCode)
}
