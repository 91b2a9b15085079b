package modules_test

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/souissim/gridpath/internal/compose"
	"github.com/souissim/gridpath/internal/modules"
	"github.com/souissim/gridpath/internal/modules/carboncap"
	"github.com/souissim/gridpath/internal/modules/gennewbin"
	"github.com/souissim/gridpath/internal/results"
	"github.com/souissim/gridpath/internal/scenario"
	"github.com/souissim/gridpath/internal/solver"
	"github.com/souissim/gridpath/internal/store"
	"github.com/souissim/gridpath/internal/tabfile"
)

const tol = 1e-4

// The basic scenario has one zone and two periods. Wind is capped at 3 MW,
// so 2030 needs 4380 MWh more than wind supplies. The carbon cap makes coal
// above 4000 MWh cost 60/MWh, which pays for building the 1 MW CCGT.
func basicInputs(t *testing.T) *scenario.Memory {
	t.Helper()
	stage := scenario.NewStage(filepath.Join("testdata", "basic"))
	mem := scenario.NewMemory()
	for _, name := range []string{
		"periods", "load_zones", "load_mwh", "projects", "gen_spec_capacity",
		"gen_new_lin_vintage_costs", "gen_new_bin_vintage_costs", "gen_new_bin_build_size", "carbon_cap",
	} {
		tbl, err := stage.Table(context.Background(), scenario.Key{}, name)
		require.NoError(t, err)
		mem.Put(scenario.Key{}, tbl)
	}
	return mem
}

func createTestStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func runScenario(t *testing.T, inputs scenario.InputSource, names []string, st compose.Persister) (*compose.Summary, *scenario.Stage) {
	t.Helper()
	out := scenario.NewStage(t.TempDir())
	c, err := compose.New(modules.Registry(), names, inputs, solver.NewGonum(solver.Options{}), st, compose.Config{
		ScenarioID:   1,
		Logger:       slog.New(slog.NewTextHandler(io.Discard, nil)),
		RunIDs:       compose.NewFixedGenerator("run-1", "run-2", "run-3"),
		ResultsStage: out,
	})
	require.NoError(t, err)
	sum, err := c.Run(context.Background(), []scenario.Key{{}})
	require.NoError(t, err)
	require.Len(t, sum.Results, 1)
	return sum, out
}

func value(t *testing.T, rows []results.Row, column string, index ...string) float64 {
	t.Helper()
	for _, r := range rows {
		if assert.ObjectsAreEqual(index, r.Index) {
			v, ok := r.Values[column]
			require.True(t, ok, "%s has no value at %v", column, index)
			return v
		}
	}
	t.Fatalf("no row %v", index)
	return 0
}

func TestRegistry_ListsBuiltins(t *testing.T) {
	assert.Equal(t, []string{
		"carbon_cap", "gen_new_bin", "gen_new_lin", "gen_spec", "load_zones", "objective", "project", "temporal",
	}, modules.Registry().Names())
}

func TestDefault_IsDependencyOrdered(t *testing.T) {
	c, err := compose.New(modules.Registry(), modules.Default(), scenario.NewMemory(), solver.NewGonum(solver.Options{}), nil, compose.Config{})
	require.NoError(t, err)
	assert.Equal(t, modules.Default(), c.Order())
}

func TestPlan_BuiltinsCompose(t *testing.T) {
	c, err := compose.New(modules.Registry(), modules.Default(), scenario.NewMemory(), solver.NewGonum(solver.Options{}), nil, compose.Config{})
	require.NoError(t, err)

	p, err := c.Plan(context.Background())
	require.NoError(t, err)

	owners := make(map[string]string)
	for _, e := range p.Entities {
		owners[e.Name] = e.Owner
	}
	assert.Equal(t, "temporal", owners["PERIODS"])
	assert.Equal(t, "gen_new_bin", owners[gennewbin.ConstraintBuildOnce])
	assert.Equal(t, "carbon_cap", owners[carboncap.ConstraintCap])
	assert.Equal(t, "gen_new_lin", owners["GenNewLin_Energy_MWh"])
}

func TestRun_BasicScenario(t *testing.T) {
	st := createTestStore(t)
	sum, out := runScenario(t, basicInputs(t), modules.Default(), st)

	res := sum.Results[0]
	require.NoError(t, res.Err)
	assert.Equal(t, store.RunSucceeded, res.Status)
	require.NotNil(t, res.Objective)
	assert.InDelta(t, 53200, *res.Objective, tol)
	assert.Equal(t, []string{"load_zone_period", "period", "project_period", "project_vintage"}, res.Tables)

	scope := store.Scope{ScenarioID: 1}
	ctx := context.Background()

	pp, err := st.GetRows(ctx, scope, "project_period")
	require.NoError(t, err)
	assert.Len(t, pp, 5)
	assert.InDelta(t, 8760, value(t, pp, "gen_new_lin_energy_mwh", "wind", "2020"), tol)
	assert.InDelta(t, 13140, value(t, pp, "gen_new_lin_energy_mwh", "wind", "2030"), tol)
	assert.InDelta(t, 3, value(t, pp, "gen_new_lin_capacity_mw", "wind", "2030"), tol)
	assert.InDelta(t, 0, value(t, pp, "gen_spec_energy_mwh", "coal", "2020"), tol)
	assert.InDelta(t, 4000, value(t, pp, "gen_spec_energy_mwh", "coal", "2030"), tol)
	assert.InDelta(t, 1.5, value(t, pp, "gen_spec_capacity_mw", "coal", "2030"), tol)
	assert.InDelta(t, 380, value(t, pp, "gen_new_bin_energy_mwh", "ccgt", "2030"), tol)
	assert.InDelta(t, 1, value(t, pp, "gen_new_bin_capacity_mw", "ccgt", "2030"), tol)
	assert.Equal(t, 1.0, value(t, pp, "operational", "ccgt", "2030"))
	assert.Equal(t, 1.0, value(t, pp, "financial", "wind", "2030"))

	pv, err := st.GetRows(ctx, scope, "project_vintage")
	require.NoError(t, err)
	assert.InDelta(t, 3, value(t, pv, "gen_new_lin_build_mw", "wind", "2020"), tol)
	assert.InDelta(t, 1, value(t, pv, "gen_new_bin_build", "ccgt", "2030"), tol)

	lz, err := st.GetRows(ctx, scope, "load_zone_period")
	require.NoError(t, err)
	assert.InDelta(t, 0, value(t, lz, "unserved_energy_mwh", "z1", "2030"), tol)
	assert.InDelta(t, 4000, value(t, lz, "carbon_emissions_tco2", "z1", "2030"), tol)
	assert.InDelta(t, 0, value(t, lz, "carbon_cap_violation_tco2", "z1", "2030"), tol)

	prd, err := st.GetRows(ctx, scope, "period")
	require.NoError(t, err)
	assert.InDelta(t, 300, value(t, prd, "annual_cost", "2020"), tol)
	assert.InDelta(t, 52900, value(t, prd, "annual_cost", "2030"), tol)

	staged, err := tabfile.ReadFile(out.ResultsPath(scenario.Key{}, "project_vintage.tab"))
	require.NoError(t, err)
	assert.Equal(t, []string{"project", "vintage", "gen_new_lin_build_mw", "gen_new_bin_build"}, staged.Columns)
	assert.Len(t, staged.Rows, 2)
}

func TestRun_WithoutCarbonCapKeepsCoal(t *testing.T) {
	names := []string{"temporal", "objective", "load_zones", "project", "gen_spec", "gen_new_lin", "gen_new_bin"}
	st := createTestStore(t)
	sum, _ := runScenario(t, basicInputs(t), names, st)

	res := sum.Results[0]
	require.NoError(t, res.Err)
	require.NotNil(t, res.Objective)
	// Coal covers the 4380 MWh gap at 10/MWh; the CCGT is not worth building.
	assert.InDelta(t, 44400, *res.Objective, tol)

	pv, err := st.GetRows(context.Background(), store.Scope{ScenarioID: 1}, "project_vintage")
	require.NoError(t, err)
	assert.InDelta(t, 0, value(t, pv, "gen_new_bin_build", "ccgt", "2030"), tol)

	lz, err := st.GetRows(context.Background(), store.Scope{ScenarioID: 1}, "load_zone_period")
	require.NoError(t, err)
	for _, r := range lz {
		assert.NotContains(t, r.Values, "carbon_emissions_tco2")
	}
}

func TestRun_HardCapForcesBuild(t *testing.T) {
	inputs := basicInputs(t)
	caps := tabfile.New("carbon_cap", "load_zone", "period", "carbon_cap_tco2", "violation_penalty_per_tco2")
	require.NoError(t, caps.Append("z1", "2030", "3000", "."))
	inputs.Put(scenario.Key{}, caps)

	st := createTestStore(t)
	sum, _ := runScenario(t, inputs, modules.Default(), st)

	res := sum.Results[0]
	require.NoError(t, res.Err)
	require.NotNil(t, res.Objective)
	// 2030: wind 300, coal 3000 MWh at 10, CCGT 1380 MWh at 20 plus 5000.
	assert.InDelta(t, 300+30000+27600+5000+300, *res.Objective, tol)

	lz, err := st.GetRows(context.Background(), store.Scope{ScenarioID: 1}, "load_zone_period")
	require.NoError(t, err)
	assert.InDelta(t, 3000, value(t, lz, "carbon_emissions_tco2", "z1", "2030"), tol)
	assert.InDelta(t, 0, value(t, lz, "carbon_cap_violation_tco2", "z1", "2030"), tol)
}

func TestRun_UnknownPeriodFailsValidation(t *testing.T) {
	inputs := basicInputs(t)
	caps := tabfile.New("carbon_cap", "load_zone", "period", "carbon_cap_tco2", "violation_penalty_per_tco2")
	require.NoError(t, caps.Append("z1", "2050", "3000", "."))
	inputs.Put(scenario.Key{}, caps)

	st := createTestStore(t)
	sum, _ := runScenario(t, inputs, modules.Default(), st)

	res := sum.Results[0]
	assert.Equal(t, store.RunFailed, res.Status)
	assert.Equal(t, compose.PhaseValidate, res.Phase)
	require.Len(t, res.Issues, 1)
	assert.Equal(t, "carbon_cap", res.Issues[0].Module)

	issues, err := st.ValidationIssues(context.Background(), store.Scope{ScenarioID: 1})
	require.NoError(t, err)
	assert.Len(t, issues, 1)
}

func TestRun_VintageOutsideCalendarFails(t *testing.T) {
	inputs := basicInputs(t)
	vnts := tabfile.New("gen_new_bin_vintage_costs",
		"project", "vintage", "operational_lifetime_yrs", "financial_lifetime_yrs", "annualized_real_cost_per_mw_yr", "fixed_cost_per_mw_yr")
	require.NoError(t, vnts.Append("ccgt", "2050", "10", ".", "5000", "."))
	inputs.Put(scenario.Key{}, vnts)

	sum, _ := runScenario(t, inputs, modules.Default(), createTestStore(t))

	res := sum.Results[0]
	assert.Equal(t, store.RunFailed, res.Status)
	assert.Equal(t, compose.PhaseLoad, res.Phase)
	assert.Contains(t, res.Message, "2050")
}
