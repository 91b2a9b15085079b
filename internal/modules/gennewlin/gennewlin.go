// Package gennewlin implements the "gen_new_lin" capacity type: new
// generation the optimization can build in any amount, per vintage.
//
// Capacity built in a vintage is operational in the periods relevant under
// its operational lifetime and incurs annualized capital cost in the
// periods relevant under its financial lifetime.
package gennewlin

import (
	"context"
	"fmt"
	"math"

	"github.com/souissim/gridpath/internal/model"
	"github.com/souissim/gridpath/internal/module"
	"github.com/souissim/gridpath/internal/modules/project"
	"github.com/souissim/gridpath/internal/results"
	"github.com/souissim/gridpath/internal/scenario"
	"github.com/souissim/gridpath/internal/temporal"
)

// Name is the module and capacity type name.
const Name = "gen_new_lin"

// Entity names declared by the module.
const (
	SetVintages          = "GEN_NEW_LIN_VNTS"
	VarBuild             = "GenNewLin_Build_MW"
	ParamOperationalLife = "gen_new_lin_operational_lifetime_yrs"
	ParamFinancialLife   = "gen_new_lin_financial_lifetime_yrs"
	ParamAnnualizedCost  = "gen_new_lin_annualized_real_cost_per_mw_yr"
	ParamFixedCost       = "gen_new_lin_fixed_cost_per_mw_yr"
)

const tableVintages = "gen_new_lin_vintage_costs"

var fleet = project.Fleet{CapacityType: Name, SetPrefix: "GEN_NEW_LIN", Prefix: "GenNewLin"}

// Module builds continuous new capacity.
type Module struct{ module.Base }

// New creates the module.
func New() module.Module {
	return &Module{module.Base{
		ModuleName: Name,
		Deps:       []string{project.Name},
		Tables: []module.TableSpec{{
			Name: tableVintages,
			Columns: []module.Column{
				{Name: "project", Required: true},
				{Name: "vintage", Required: true},
				{Name: "operational_lifetime_yrs", Required: true, Numeric: true, NonNegative: true},
				{Name: "financial_lifetime_yrs", Numeric: true, NonNegative: true},
				{Name: "annualized_real_cost_per_mw_yr", Required: true, Numeric: true, NonNegative: true},
				{Name: "fixed_cost_per_mw_yr", Numeric: true, NonNegative: true},
				{Name: "max_new_build_mw", Numeric: true, NonNegative: true},
			},
			Key: []string{"project", "vintage"},
		}},
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
	if _, err := s.Var(VarBuild, model.NonNegativeReals, "project", "vintage"); err != nil {
		return err
	}
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
	t, err := m.Table(ctx, inst.Key, src, tableVintages)
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
	oprLife, _ := md.Param(ParamOperationalLife)
	finLife, _ := md.Param(ParamFinancialLife)
	annualized, _ := md.Param(ParamAnnualizedCost)
	fixed, _ := md.Param(ParamFixedCost)

	if err := module.LoadSet(vnts, t, "project", "vintage"); err != nil {
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
		if err := module.LoadParam(load.p, t, load.col, "project", "vintage"); err != nil {
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
		vintages = append(vintages, temporal.Vintage{Asset: ix[0], Period: ix[1]})
	}
	if err := build.Materialize(vnts.Members()); err != nil {
		return err
	}
	for _, rec := range t.Records() {
		limit, ok, err := rec.Float("max_new_build_mw")
		if err != nil {
			return err
		}
		if !ok {
			continue
		}
		prj, _ := rec.String("project")
		v, _ := rec.String("vintage")
		if err := build.SetBounds(0, limit, prj, v); err != nil {
			return err
		}
	}

	opr, err := temporal.NewRelevanceIndex(cal, vintages, func(v temporal.Vintage) float64 {
		return oprLife.Value(v.Asset, v.Period)
	})
	if err != nil {
		return err
	}
	fin, err := temporal.NewRelevanceIndex(cal, vintages, func(v temporal.Vintage) float64 {
		// A missing financial lifetime defaults to the operational one.
		if l, err := finLife.Get(v.Asset, v.Period); err == nil {
			return l
		}
		return oprLife.Value(v.Asset, v.Period)
	})
	if err != nil {
		return err
	}

	costs := make(map[string]model.LinExpr)
	var caps []project.Capacity
	for _, ap := range opr.AssetPeriods() {
		var mw, om []model.LinExpr
		for _, v := range opr.AssetVintagesRelevantIn(ap.Asset, ap.Period) {
			b, _ := build.Expr(model.Idx(ap.Asset, v))
			mw = append(mw, b)
			om = append(om, b.Scale(fixed.Value(ap.Asset, v)))
		}
		caps = append(caps, project.Capacity{Project: ap.Asset, Period: ap.Period, MW: model.Sum(mw...)})
		costs[ap.Period] = model.Sum(append(om, costs[ap.Period])...)
	}
	for _, ap := range fin.AssetPeriods() {
		var capital []model.LinExpr
		for _, v := range fin.AssetVintagesRelevantIn(ap.Asset, ap.Period) {
			b, _ := build.Expr(model.Idx(ap.Asset, v))
			capital = append(capital, b.Scale(annualized.Value(ap.Asset, v)))
		}
		costs[ap.Period] = model.Sum(append(capital, costs[ap.Period])...)
	}
	inst.Logger.Debug("gen_new_lin relevance resolved",
		"vintages", len(vintages),
		"operational_pairs", opr.Pairs(),
		"financial_pairs", fin.Pairs(),
	)
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
		Columns:      []string{"gen_new_lin_build_mw"},
	}
	for _, ix := range build.Indexes() {
		builds.Add(ix, map[string]float64{"gen_new_lin_build_mw": cleanZero(sol.Value(build, ix...))})
	}
	return []results.Rows{rs, builds}, nil
}

// cleanZero drops solver noise around zero.
func cleanZero(v float64) float64 {
	if math.Abs(v) < 1e-9 {
		return 0
	}
	return v
}
