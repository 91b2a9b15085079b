// Package loadzones implements the "load_zones" module: zonal energy
// balance. It owns the production and consumption ledgers and requires, in
// every zone and period, that folded production minus folded consumption
// meets load. Unserved energy keeps the balance feasible at a penalty.
package loadzones

import (
	"context"
	"fmt"

	"github.com/souissim/gridpath/internal/ledger"
	"github.com/souissim/gridpath/internal/model"
	"github.com/souissim/gridpath/internal/module"
	"github.com/souissim/gridpath/internal/modules/objective"
	"github.com/souissim/gridpath/internal/modules/periods"
	"github.com/souissim/gridpath/internal/results"
	"github.com/souissim/gridpath/internal/scenario"
)

// Name is the module name.
const Name = "load_zones"

// Entity names declared by the module.
const (
	SetLoadZones       = "LOAD_ZONES"
	ParamPenalty       = "unserved_energy_penalty_per_mwh"
	ParamLoad          = "load_mwh"
	VarUnserved        = "Unserved_Energy_MWh"
	ExprPenaltyCosts   = "Unserved_Energy_Penalty_Costs"
	ConstraintMeetLoad = "Meet_Load_Constraint"
)

const (
	tableZones = "load_zones"
	tableLoad  = "load_mwh"
)

// Module balances energy per zone and period.
type Module struct{ module.Base }

// New creates the module.
func New() module.Module {
	return &Module{module.Base{
		ModuleName: Name,
		Deps:       []string{periods.Name, objective.Name},
		Tables: []module.TableSpec{
			{
				Name: tableZones,
				Columns: []module.Column{
					{Name: "load_zone", Required: true},
					{Name: "unserved_energy_penalty_per_mwh", Required: true, Numeric: true, NonNegative: true},
				},
				Key: []string{"load_zone"},
			},
			{
				Name: tableLoad,
				Columns: []module.Column{
					{Name: "load_zone", Required: true},
					{Name: "period", Required: true},
					{Name: "load_mwh", Required: true, Numeric: true, NonNegative: true},
				},
				Key: []string{"load_zone", "period"},
			},
		},
	}}
}

func (m *Module) Declare(_ context.Context, inst *module.Instance) error {
	s := inst.Scope(m)
	if _, err := inst.Model.Set(periods.SetPeriods); err != nil {
		return err
	}
	if _, err := s.Set(SetLoadZones, "load_zone"); err != nil {
		return err
	}
	penalty, err := s.Param(ParamPenalty, "load_zone")
	if err != nil {
		return err
	}
	penalty.NonNegative()
	load, err := s.Param(ParamLoad, "load_zone", "period")
	if err != nil {
		return err
	}
	load.WithDefault(0).NonNegative()
	if _, err := s.Var(VarUnserved, model.NonNegativeReals, "load_zone", "period"); err != nil {
		return err
	}
	if _, err := s.Expression(ExprPenaltyCosts, "period"); err != nil {
		return err
	}
	if _, err := s.Constraint(ConstraintMeetLoad, "load_zone", "period"); err != nil {
		return err
	}
	if err := inst.Ledger.Register(Name, ledger.LoadBalanceProduction, "load_zone", "period"); err != nil {
		return err
	}
	return inst.Ledger.Register(Name, ledger.LoadBalanceConsumption, "load_zone", "period")
}

// Validate adds a check that every load row names a declared zone.
func (m *Module) Validate(ctx context.Context, key scenario.Key, src scenario.InputSource) []module.ValidationIssue {
	issues := m.Base.Validate(ctx, key, src)
	if module.HasHigh(issues) {
		return issues
	}
	zones, err := m.Table(ctx, key, src, tableZones)
	if err != nil {
		return issues
	}
	load, err := m.Table(ctx, key, src, tableLoad)
	if err != nil {
		return issues
	}
	known := make(map[string]bool)
	for _, rec := range zones.Records() {
		z, _ := rec.String("load_zone")
		known[z] = true
	}
	for _, rec := range load.Records() {
		if z, _ := rec.String("load_zone"); !known[z] {
			issues = append(issues, module.ValidationIssue{
				Module:   Name,
				Table:    tableLoad,
				Column:   "load_zone",
				Severity: module.SeverityHigh,
				Message:  fmt.Sprintf("line %d: unknown load zone %q", rec.Line(), z),
			})
		}
	}
	return issues
}

func (m *Module) Load(ctx context.Context, inst *module.Instance, src scenario.InputSource) error {
	zt, err := m.Table(ctx, inst.Key, src, tableZones)
	if err != nil {
		return err
	}
	lt, err := m.Table(ctx, inst.Key, src, tableLoad)
	if err != nil {
		return err
	}

	md := inst.Model
	zones, _ := md.Set(SetLoadZones)
	penalty, _ := md.Param(ParamPenalty)
	load, _ := md.Param(ParamLoad)
	unserved, _ := md.Var(VarUnserved)
	costs, _ := md.Expression(ExprPenaltyCosts)
	prds, _ := md.Set(periods.SetPeriods)

	if err := module.LoadSet(zones, zt, "load_zone"); err != nil {
		return err
	}
	if err := module.LoadParam(penalty, zt, "unserved_energy_penalty_per_mwh", "load_zone"); err != nil {
		return err
	}
	if err := module.LoadParam(load, lt, "load_mwh", "load_zone", "period"); err != nil {
		return err
	}

	for _, p := range prds.Values() {
		parts := make([]model.LinExpr, 0, zones.Len())
		for _, z := range zones.Values() {
			u, err := unserved.At(z, p)
			if err != nil {
				return err
			}
			parts = append(parts, u.Scale(penalty.Value(z)))
		}
		if err := costs.Define(model.Sum(parts...), p); err != nil {
			return err
		}
	}
	return nil
}

func (m *Module) Contribute(_ context.Context, inst *module.Instance) error {
	if err := inst.Ledger.Append(ledger.LoadBalanceProduction, VarUnserved); err != nil {
		return err
	}
	return inst.Ledger.Append(ledger.CostComponents, ExprPenaltyCosts)
}

func (m *Module) Assemble(_ context.Context, inst *module.Instance) error {
	prod, err := inst.Ledger.Fold(inst.Model, ledger.LoadBalanceProduction)
	if err != nil {
		return err
	}
	cons, err := inst.Ledger.Fold(inst.Model, ledger.LoadBalanceConsumption)
	if err != nil {
		return err
	}

	md := inst.Model
	zones, _ := md.Set(SetLoadZones)
	prds, _ := md.Set(periods.SetPeriods)
	load, _ := md.Param(ParamLoad)
	balance, _ := md.Constraint(ConstraintMeetLoad)
	for _, z := range zones.Values() {
		for _, p := range prds.Values() {
			lhs := prod.At(z, p).Minus(cons.At(z, p))
			if err := balance.Add(lhs, model.Equal, model.Const(load.Value(z, p)), z, p); err != nil {
				return err
			}
		}
	}
	return nil
}

func (m *Module) Export(_ context.Context, inst *module.Instance, sol *model.Solution) ([]results.Rows, error) {
	md := inst.Model
	zones, _ := md.Set(SetLoadZones)
	prds, _ := md.Set(periods.SetPeriods)
	load, _ := md.Param(ParamLoad)
	unserved, _ := md.Var(VarUnserved)

	rs := results.Rows{
		Table:        "load_zone_period",
		IndexColumns: []string{"load_zone", "period"},
		Columns:      []string{"load_mwh", "unserved_energy_mwh"},
	}
	for _, z := range zones.Values() {
		for _, p := range prds.Values() {
			rs.Add([]string{z, p}, map[string]float64{
				"load_mwh":            load.Value(z, p),
				"unserved_energy_mwh": sol.Value(unserved, z, p),
			})
		}
	}
	return []results.Rows{rs}, nil
}
