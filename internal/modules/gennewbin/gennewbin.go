// Package gennewbin implements the "gen_new_bin" capacity type: new
// generation built at a fixed size or not at all.
//
// A project may be built in at most one of the vintages relevant in any
// period, so capacity never exceeds the build size while a vintage is
// still operational.
package gennewbin

import (
	"context"
	"fmt"

	"github.com/souissim/gridpath/internal/model"
	"github.com/souissim/gridpath/internal/module"
	"github.com/souissim/gridpath/internal/modules/project"
	"github.com/souissim/gridpath/internal/results"
	"github.com/souissim/gridpath/internal/scenario"
	"github.com/souissim/gridpath/internal/temporal"
)

// Name is the module and capacity type name.
const Name = "gen_new_bin"

// Entity names declared by the module.
const (
	SetVintages          = "GEN_NEW_BIN_VNTS"
	VarBuild             = "GenNewBin_Build"
	ConstraintBuildOnce  = "GenNewBin_Only_Build_Once_Constraint"
	ParamBuildSize       = "gen_new_bin_build_size_mw"
	ParamOperationalLife = "gen_new_bin_operational_lifetime_yrs"
	ParamFinancialLife   = "gen_new_bin_financial_lifetime_yrs"
	ParamAnnualizedCost  = "gen_new_bin_annualized_real_cost_per_mw_yr"
	ParamFixedCost       = "gen_new_bin_fixed_cost_per_mw_yr"
)

const (
	tableVintages  = "gen_new_bin_vintage_costs"
	tableBuildSize = "gen_new_bin_build_size"
)

var fleet = project.Fleet{CapacityType: Name, SetPrefix: "GEN_NEW_BIN", Prefix: "GenNewBin"}

// Module builds fixed-size new capacity.
type Module struct{ module.Base }

// New creates the module.
func New() module.Module {
	return &Module{module.Base{
		ModuleName: Name,
		Deps:       []string{project.Name},
		Tables: []module.TableSpec{
			{
				Name: tableVintages,
				Columns: []module.Column{
					{Name: "project", Required: true},
					{Name: "vintage", Required: true},
					{Name: "operational_lifetime_yrs", Required: true, Numeric: true, NonNegative: true},
					{Name: "financial_lifetime_yrs", Numeric: true, NonNegative: true},
					{Name: "annualized_real_cost_per_mw_yr", Required: true, Numeric: true, NonNegative: true},
					{Name: "fixed_cost_per_mw_yr", Numeric: true, NonNegative: true},
				},
				Key: []string{"project", "vintage"},
			},
			{
				Name: tableBuildSize,
				Columns: []module.Column{
					{Name: "project", Required: true},
					{Name: "build_size_mw", Required: true, Numeric: true, NonNegative: true},
				},
				Key: []string{"project"},
			},
		},
	}}
}

func (m *Module) Declare(_ context.Context, inst *module.Instance) error {
	s := inst.Scope(m)
	if err := fleet.Declare(s); err != nil {
		return err
	}
	if _, err := s.Set(SetVintages, "project", "vintage"); err != nil {
		return err
	}
	if _, err := s.Var(VarBuild, model.Binary, "project", "vintage"); err != nil {
		return err
	}
	if _, err := s.Constraint(ConstraintBuildOnce, "project", "period"); err != nil {
		return err
	}
	size, err := s.Param(ParamBuildSize, "project")
	if err != nil {
		return err
	}
	size.NonNegative()
	for _, name := range []string{ParamOperationalLife, ParamFinancialLife, ParamAnnualizedCost, ParamFixedCost} {
		p, err := s.Param(name, "project", "vintage")
		if err != nil {
			return err
		}
		p.NonNegative()
		if name == ParamFixedCost {
			p.WithDefault(0)
		}
	}
	return nil
}

func (m *Module) Load(ctx context.Context, inst *module.Instance, src scenario.InputSource) error {
	vt, err := m.Table(ctx, inst.Key, src, tableVintages)
	if err != nil {
		return err
	}
	st, err := m.Table(ctx, inst.Key, src, tableBuildSize)
	if err != nil {
		return err
	}
	cal, err := inst.Calendar()
	if err != nil {
		return err
	}

	md := inst.Model
	vnts, _ := md.Set(SetVintages)
	build, _ := md.Var(VarBuild)
	once, _ := md.Constraint(ConstraintBuildOnce)
	size, _ := md.Param(ParamBuildSize)
	oprLife, _ := md.Param(ParamOperationalLife)
	finLife, _ := md.Param(ParamFinancialLife)
	annualized, _ := md.Param(ParamAnnualizedCost)
	fixed, _ := md.Param(ParamFixedCost)

	if err := module.LoadSet(vnts, vt, "project", "vintage"); err != nil {
		return err
	}
	if err := module.LoadParam(size, st, "build_size_mw", "project"); err != nil {
		return err
	}
	for _, load := range []struct {
		p   *model.Param
		col string
	}{
		{oprLife, "operational_lifetime_yrs"},
		{finLife, "financial_lifetime_yrs"},
		{annualized, "annualized_real_cost_per_mw_yr"},
		{fixed, "fixed_cost_per_mw_yr"},
	} {
		if err := module.LoadParam(load.p, vt, load.col, "project", "vintage"); err != nil {
			return err
		}
	}

	projects, err := fleet.Projects(md)
	if err != nil {
		return err
	}
	ours := make(map[string]bool, len(projects))
	for _, p := range projects {
		ours[p] = true
	}
	var vintages []temporal.Vintage
	for _, ix := range vnts.Members() {
		if !ours[ix[0]] {
			return fmt.Errorf("%s: project %s is not a %s project", tableVintages, ix[0], Name)
		}
		if !size.Has(ix[0]) {
			return &scenario.MissingInputError{Key: inst.Key, Table: tableBuildSize, Detail: "no build size for " + ix[0]}
		}
		vintages = append(vintages, temporal.Vintage{Asset: ix[0], Period: ix[1]})
	}
	if err := build.Materialize(vnts.Members()); err != nil {
		return err
	}

	opr, err := temporal.NewRelevanceIndex(cal, vintages, func(v temporal.Vintage) float64 {
		return oprLife.Value(v.Asset, v.Period)
	})
	if err != nil {
		return err
	}
	fin, err := temporal.NewRelevanceIndex(cal, vintages, func(v temporal.Vintage) float64 {
		if l, err := finLife.Get(v.Asset, v.Period); err == nil {
			return l
		}
		return oprLife.Value(v.Asset, v.Period)
	})
	if err != nil {
		return err
	}

	if err := module.BuildOnce(once, build, opr.BuildOnceGroups()); err != nil {
		return err
	}

	costs := make(map[string]model.LinExpr)
	var caps []project.Capacity
	for _, ap := range opr.AssetPeriods() {
		mw := size.Value(ap.Asset)
		var built, om []model.LinExpr
		for _, v := range opr.AssetVintagesRelevantIn(ap.Asset, ap.Period) {
			b, _ := build.Expr(model.Idx(ap.Asset, v))
			built = append(built, b.Scale(mw))
			om = append(om, b.Scale(mw*fixed.Value(ap.Asset, v)))
		}
		caps = append(caps, project.Capacity{Project: ap.Asset, Period: ap.Period, MW: model.Sum(built...)})
		costs[ap.Period] = model.Sum(append(om, costs[ap.Period])...)
	}
	for _, ap := range fin.AssetPeriods() {
		mw := size.Value(ap.Asset)
		var capital []model.LinExpr
		for _, v := range fin.AssetVintagesRelevantIn(ap.Asset, ap.Period) {
			b, _ := build.Expr(model.Idx(ap.Asset, v))
			capital = append(capital, b.Scale(mw*annualized.Value(ap.Asset, v)))
		}
		costs[ap.Period] = model.Sum(append(capital, costs[ap.Period])...)
	}
	return fleet.Build(inst, caps, fin.AssetPeriods(), costs)
}

func (m *Module) Contribute(_ context.Context, inst *module.Instance) error {
	return fleet.Contribute(inst.Ledger)
}

func (m *Module) Export(_ context.Context, inst *module.Instance, sol *model.Solution) ([]results.Rows, error) {
	rs, err := fleet.Export(inst, sol)
	if err != nil {
		return nil, err
	}
	build, err := inst.Model.Var(VarBuild)
	if err != nil {
		return nil, err
	}
	builds := results.Rows{
		Table:        "project_vintage",
		IndexColumns: []string{"project", "vintage"},
		Columns:      []string{"gen_new_bin_build"},
	}
	for _, ix := range build.Indexes() {
		builds.Add(ix, map[string]float64{"gen_new_bin_build": sol.Value(build, ix...)})
	}
	return []results.Rows{rs, builds}, nil
}
