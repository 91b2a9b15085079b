// Package genspec implements the "gen_spec" capacity type: generators with
// exogenously specified capacity per period. Capacity is a constant; the
// module decides only dispatch and pays fixed O&M on what exists.
package genspec

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
const Name = "gen_spec"

// Entity names declared by the module.
const (
	ParamCapacity  = "gen_spec_capacity_mw"
	ParamFixedCost = "gen_spec_fixed_cost_per_mw_yr"
)

const tableCapacity = "gen_spec_capacity"

var fleet = project.Fleet{CapacityType: Name, SetPrefix: "GEN_SPEC", Prefix: "GenSpec"}

// Module dispatches specified-capacity generators.
type Module struct{ module.Base }

// New creates the module.
func New() module.Module {
	return &Module{module.Base{
		ModuleName: Name,
		Deps:       []string{project.Name},
		Tables: []module.TableSpec{{
			Name: tableCapacity,
			Columns: []module.Column{
				{Name: "project", Required: true},
				{Name: "period", Required: true},
				{Name: "specified_capacity_mw", Required: true, Numeric: true, NonNegative: true},
				{Name: "fixed_cost_per_mw_yr", Numeric: true, NonNegative: true},
			},
			Key: []string{"project", "period"},
		}},
	}}
}

func (m *Module) Declare(_ context.Context, inst *module.Instance) error {
	s := inst.Scope(m)
	if err := fleet.Declare(s); err != nil {
		return err
	}
	capacity, err := s.Param(ParamCapacity, "project", "period")
	if err != nil {
		return err
	}
	capacity.NonNegative()
	fixed, err := s.Param(ParamFixedCost, "project", "period")
	if err != nil {
		return err
	}
	fixed.WithDefault(0).NonNegative()
	return nil
}

func (m *Module) Load(ctx context.Context, inst *module.Instance, src scenario.InputSource) error {
	t, err := m.Table(ctx, inst.Key, src, tableCapacity)
	if err != nil {
		return err
	}
	md := inst.Model
	capacity, _ := md.Param(ParamCapacity)
	fixed, _ := md.Param(ParamFixedCost)
	if err := module.LoadParam(capacity, t, "specified_capacity_mw", "project", "period"); err != nil {
		return err
	}
	if err := module.LoadParam(fixed, t, "fixed_cost_per_mw_yr", "project", "period"); err != nil {
		return err
	}

	projects, err := fleet.Projects(md)
	if err != nil {
		return err
	}
	ours := make(map[string]bool, len(projects))
	for _, p := range projects {
		ours[p] = true
	}
	cal, err := inst.Calendar()
	if err != nil {
		return err
	}

	var (
		caps      []project.Capacity
		financial []temporal.AssetPeriod
	)
	fixedCost := make(map[string]model.LinExpr)
	for _, rec := range t.Records() {
		prj, _ := rec.String("project")
		prd, _ := rec.String("period")
		if !ours[prj] {
			return fmt.Errorf("%s line %d: project %s is not a %s project", tableCapacity, rec.Line(), prj, Name)
		}
		if _, ok := cal.Period(prd); !ok {
			return &temporal.InvalidInputError{Asset: prj, Period: prd, Message: "not a period in the calendar"}
		}
		mw := capacity.Value(prj, prd)
		caps = append(caps, project.Capacity{Project: prj, Period: prd, MW: model.Const(mw)})
		financial = append(financial, temporal.AssetPeriod{Asset: prj, Period: prd})
		fixedCost[prd] = fixedCost[prd].PlusConst(mw * fixed.Value(prj, prd))
	}
	return fleet.Build(inst, caps, financial, fixedCost)
}

func (m *Module) Contribute(_ context.Context, inst *module.Instance) error {
	return fleet.Contribute(inst.Ledger)
}

func (m *Module) Export(_ context.Context, inst *module.Instance, sol *model.Solution) ([]results.Rows, error) {
	rs, err := fleet.Export(inst, sol)
	if err != nil {
		return nil, err
	}
	return []results.Rows{rs}, nil
}
