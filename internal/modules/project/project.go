// Package project implements the "project" module and the operational
// helper shared by the capacity-type modules.
//
// The project module loads project attributes (capacity type, load zone,
// variable cost, emission rate, capacity factor) and owns the operational
// and financial period-set ledgers: every capacity type appends the
// (project, period) set of its own projects, and the project module joins
// them into PRJ_OPR_PRDS and PRJ_FIN_PRDS.
package project

import (
	"context"
	"fmt"

	"github.com/souissim/gridpath/internal/ledger"
	"github.com/souissim/gridpath/internal/model"
	"github.com/souissim/gridpath/internal/module"
	"github.com/souissim/gridpath/internal/modules/loadzones"
	"github.com/souissim/gridpath/internal/modules/periods"
	"github.com/souissim/gridpath/internal/results"
	"github.com/souissim/gridpath/internal/scenario"
)

// Name is the module name.
const Name = "project"

// Entity names declared by the module.
const (
	SetProjects         = "PROJECTS"
	SetLoadZones        = "PROJECT_LOAD_ZONES"
	SetCapacityTypes    = "PROJECT_CAPACITY_TYPES"
	SetOperational      = "PRJ_OPR_PRDS"
	SetFinancial        = "PRJ_FIN_PRDS"
	ParamVariableCost   = "variable_cost_per_mwh"
	ParamEmissionRate   = "carbon_emissions_tco2_per_mwh"
	ParamCapacityFactor = "capacity_factor"
)

const tableProjects = "projects"

// Module loads project attributes and joins the capacity-type period sets.
type Module struct{ module.Base }

// New creates the module.
func New() module.Module {
	return &Module{module.Base{
		ModuleName: Name,
		Deps:       []string{periods.Name, loadzones.Name},
		Tables: []module.TableSpec{{
			Name: tableProjects,
			Columns: []module.Column{
				{Name: "project", Required: true},
				{Name: "capacity_type", Required: true},
				{Name: "load_zone", Required: true},
				{Name: "variable_cost_per_mwh", Numeric: true, NonNegative: true},
				{Name: "carbon_emissions_tco2_per_mwh", Numeric: true, NonNegative: true},
				{Name: "capacity_factor", Numeric: true, NonNegative: true},
			},
			Key: []string{"project"},
		}},
	}}
}

func (m *Module) Declare(_ context.Context, inst *module.Instance) error {
	s := inst.Scope(m)
	if _, err := inst.Model.Set(loadzones.SetLoadZones); err != nil {
		return err
	}
	for _, set := range []struct {
		name string
		dims []string
	}{
		{SetProjects, []string{"project"}},
		{SetLoadZones, []string{"project", "load_zone"}},
		{SetCapacityTypes, []string{"project", "capacity_type"}},
		{SetOperational, []string{"project", "period"}},
		{SetFinancial, []string{"project", "period"}},
	} {
		if _, err := s.Set(set.name, set.dims...); err != nil {
			return err
		}
	}
	for _, param := range []struct {
		name string
		def  float64
	}{
		{ParamVariableCost, 0},
		{ParamEmissionRate, 0},
		{ParamCapacityFactor, 1},
	} {
		p, err := s.Param(param.name, "project")
		if err != nil {
			return err
		}
		p.WithDefault(param.def).NonNegative()
	}
	if err := inst.Ledger.Register(Name, ledger.OperationalPeriodSets, "project", "period"); err != nil {
		return err
	}
	return inst.Ledger.Register(Name, ledger.FinancialPeriodSets, "project", "period")
}

// Validate adds a check that capacity factors do not exceed 1.
func (m *Module) Validate(ctx context.Context, key scenario.Key, src scenario.InputSource) []module.ValidationIssue {
	issues := m.Base.Validate(ctx, key, src)
	if module.HasHigh(issues) {
		return issues
	}
	t, err := m.Table(ctx, key, src, tableProjects)
	if err != nil {
		return issues
	}
	for _, rec := range t.Records() {
		if cf, ok, _ := rec.Float("capacity_factor"); ok && cf > 1 {
			issues = append(issues, module.ValidationIssue{
				Module:   Name,
				Table:    tableProjects,
				Column:   "capacity_factor",
				Severity: module.SeverityHigh,
				Message:  fmt.Sprintf("line %d: capacity factor %g exceeds 1", rec.Line(), cf),
			})
		}
	}
	return issues
}

func (m *Module) Load(ctx context.Context, inst *module.Instance, src scenario.InputSource) error {
	t, err := m.Table(ctx, inst.Key, src, tableProjects)
	if err != nil {
		return err
	}
	md := inst.Model
	for _, load := range []struct {
		set  string
		cols []string
	}{
		{SetProjects, []string{"project"}},
		{SetLoadZones, []string{"project", "load_zone"}},
		{SetCapacityTypes, []string{"project", "capacity_type"}},
	} {
		s, _ := md.Set(load.set)
		if err := module.LoadSet(s, t, load.cols...); err != nil {
			return err
		}
	}
	for _, name := range []string{ParamVariableCost, ParamEmissionRate, ParamCapacityFactor} {
		p, _ := md.Param(name)
		if err := module.LoadParam(p, t, name, "project"); err != nil {
			return err
		}
	}
	return nil
}

func (m *Module) Assemble(_ context.Context, inst *module.Instance) error {
	for _, join := range []struct {
		list ledger.List
		set  string
	}{
		{ledger.OperationalPeriodSets, SetOperational},
		{ledger.FinancialPeriodSets, SetFinancial},
	} {
		members, err := inst.Ledger.UnionSets(inst.Model, join.list)
		if err != nil {
			return err
		}
		s, _ := inst.Model.Set(join.set)
		for _, ix := range members {
			if err := s.Add(ix...); err != nil {
				return err
			}
		}
	}
	return nil
}

func (m *Module) Export(_ context.Context, inst *module.Instance, _ *model.Solution) ([]results.Rows, error) {
	opr, _ := inst.Model.Set(SetOperational)
	fin, _ := inst.Model.Set(SetFinancial)

	rs := results.Rows{
		Table:        "project_period",
		IndexColumns: []string{"project", "period"},
		Columns:      []string{"operational", "financial"},
	}
	flag := func(b bool) float64 {
		if b {
			return 1
		}
		return 0
	}
	seen := make(map[string]bool)
	for _, ix := range append(opr.Members(), fin.Members()...) {
		if seen[ix.Key()] {
			continue
		}
		seen[ix.Key()] = true
		rs.Add(ix, map[string]float64{
			"operational": flag(opr.Contains(ix...)),
			"financial":   flag(fin.Contains(ix...)),
		})
	}
	return []results.Rows{rs}, nil
}
