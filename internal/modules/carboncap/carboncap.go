// Package carboncap implements the "carbon_cap" module: a cap on folded
// emissions per load zone and period.
//
// The module owns the emissions ledger. Capacity types append their
// emission expressions when it is registered. A cap row with a violation
// penalty is soft: overage is allowed and costed in the objective.
package carboncap

import (
	"context"
	"fmt"

	"github.com/souissim/gridpath/internal/ledger"
	"github.com/souissim/gridpath/internal/model"
	"github.com/souissim/gridpath/internal/module"
	"github.com/souissim/gridpath/internal/modules/loadzones"
	"github.com/souissim/gridpath/internal/modules/objective"
	"github.com/souissim/gridpath/internal/modules/periods"
	"github.com/souissim/gridpath/internal/results"
	"github.com/souissim/gridpath/internal/scenario"
)

// Name is the module name.
const Name = "carbon_cap"

// Entity names declared by the module.
const (
	SetCapZonePeriods = "CARBON_CAP_ZONE_PERIODS"
	ParamCap          = "carbon_cap_tco2"
	ParamPenalty      = "carbon_cap_violation_penalty_per_tco2"
	VarViolation      = "Carbon_Cap_Violation_tCO2"
	ExprPenaltyCosts  = "Carbon_Cap_Violation_Penalty_Costs"
	ConstraintCap     = "Carbon_Cap_Constraint"
)

const tableCap = "carbon_cap"

// Module caps emissions.
type Module struct{ module.Base }

// New creates the module.
func New() module.Module {
	return &Module{module.Base{
		ModuleName: Name,
		Deps:       []string{periods.Name, loadzones.Name, objective.Name},
		Tables: []module.TableSpec{{
			Name: tableCap,
			Columns: []module.Column{
				{Name: "load_zone", Required: true},
				{Name: "period", Required: true},
				{Name: "carbon_cap_tco2", Required: true, Numeric: true, NonNegative: true},
				{Name: "violation_penalty_per_tco2", Numeric: true, NonNegative: true},
			},
			Key: []string{"load_zone", "period"},
		}},
	}}
}

func (m *Module) Declare(_ context.Context, inst *module.Instance) error {
	s := inst.Scope(m)
	if _, err := inst.Model.Set(loadzones.SetLoadZones); err != nil {
		return err
	}
	if _, err := s.Set(SetCapZonePeriods, "load_zone", "period"); err != nil {
		return err
	}
	capParam, err := s.Param(ParamCap, "load_zone", "period")
	if err != nil {
		return err
	}
	capParam.NonNegative()
	penalty, err := s.Param(ParamPenalty, "load_zone", "period")
	if err != nil {
		return err
	}
	penalty.NonNegative()
	if _, err := s.Var(VarViolation, model.NonNegativeReals, "load_zone", "period"); err != nil {
		return err
	}
	if _, err := s.Expression(ExprPenaltyCosts, "period"); err != nil {
		return err
	}
	if _, err := s.Constraint(ConstraintCap, "load_zone", "period"); err != nil {
		return err
	}
	return inst.Ledger.Register(Name, ledger.EmissionComponents, "load_zone", "period")
}

// Validate adds a check that every cap row names a period of the scenario.
func (m *Module) Validate(ctx context.Context, key scenario.Key, src scenario.InputSource) []module.ValidationIssue {
	issues := m.Base.Validate(ctx, key, src)
	if module.HasHigh(issues) {
		return issues
	}
	caps, err := m.Table(ctx, key, src, tableCap)
	if err != nil {
		return issues
	}
	prds, err := src.Table(ctx, key, periods.TablePeriods)
	if err != nil {
		return issues
	}
	known := make(map[string]bool)
	for _, rec := range prds.Records() {
		p, _ := rec.String("period")
		known[p] = true
	}
	for _, rec := range caps.Records() {
		if p, _ := rec.String("period"); !known[p] {
			issues = append(issues, module.ValidationIssue{
				Module:   Name,
				Table:    tableCap,
				Column:   "period",
				Severity: module.SeverityHigh,
				Message:  fmt.Sprintf("line %d: unknown period %q", rec.Line(), p),
			})
		}
	}
	return issues
}

func (m *Module) Load(ctx context.Context, inst *module.Instance, src scenario.InputSource) error {
	t, err := m.Table(ctx, inst.Key, src, tableCap)
	if err != nil {
		return err
	}
	md := inst.Model
	zp, _ := md.Set(SetCapZonePeriods)
	capParam, _ := md.Param(ParamCap)
	penalty, _ := md.Param(ParamPenalty)
	violation, _ := md.Var(VarViolation)
	costs, _ := md.Expression(ExprPenaltyCosts)
	zones, _ := md.Set(loadzones.SetLoadZones)
	prds, err := md.Set(periods.SetPeriods)
	if err != nil {
		return err
	}

	if err := module.LoadSet(zp, t, "load_zone", "period"); err != nil {
		return err
	}
	if err := module.LoadParam(capParam, t, "carbon_cap_tco2", "load_zone", "period"); err != nil {
		return err
	}
	if err := module.LoadParam(penalty, t, "violation_penalty_per_tco2", "load_zone", "period"); err != nil {
		return err
	}

	parts := make(map[string][]model.LinExpr)
	for _, ix := range zp.Members() {
		if !zones.Contains(ix[0]) {
			return fmt.Errorf("%s: unknown load zone %s", tableCap, ix[0])
		}
		if !penalty.Has(ix...) {
			continue
		}
		v, err := violation.At(ix...)
		if err != nil {
			return err
		}
		parts[ix[1]] = append(parts[ix[1]], v.Scale(penalty.Value(ix...)))
	}
	for _, p := range prds.Values() {
		if err := costs.Define(model.Sum(parts[p]...), p); err != nil {
			return err
		}
	}
	return nil
}

func (m *Module) Contribute(_ context.Context, inst *module.Instance) error {
	return inst.Ledger.Append(ledger.CostComponents, ExprPenaltyCosts)
}

func (m *Module) Assemble(_ context.Context, inst *module.Instance) error {
	emissions, err := inst.Ledger.Fold(inst.Model, ledger.EmissionComponents)
	if err != nil {
		return err
	}
	md := inst.Model
	zp, _ := md.Set(SetCapZonePeriods)
	capParam, _ := md.Param(ParamCap)
	violation, _ := md.Var(VarViolation)
	limit, _ := md.Constraint(ConstraintCap)
	for _, ix := range zp.Members() {
		lhs := emissions.At(ix...)
		if v, ok := violation.Expr(ix); ok {
			lhs = lhs.Minus(v)
		}
		if err := limit.Add(lhs, model.LessEqual, model.Const(capParam.Value(ix...)), ix...); err != nil {
			return err
		}
	}
	return nil
}

func (m *Module) Export(_ context.Context, inst *module.Instance, sol *model.Solution) ([]results.Rows, error) {
	emissions, err := inst.Ledger.Folded(ledger.EmissionComponents)
	if err != nil {
		return nil, err
	}
	md := inst.Model
	zp, _ := md.Set(SetCapZonePeriods)
	capParam, _ := md.Param(ParamCap)
	violation, _ := md.Var(VarViolation)

	rs := results.Rows{
		Table:        "load_zone_period",
		IndexColumns: []string{"load_zone", "period"},
		Columns:      []string{"carbon_emissions_tco2", "carbon_cap_tco2", "carbon_cap_violation_tco2"},
	}
	for _, ix := range zp.Members() {
		var over float64
		if v, ok := violation.Expr(ix); ok {
			over = sol.Eval(v)
		}
		rs.Add(ix, map[string]float64{
			"carbon_emissions_tco2":     sol.Eval(emissions.At(ix...)),
			"carbon_cap_tco2":           capParam.Value(ix...),
			"carbon_cap_violation_tco2": over,
		})
	}
	return []results.Rows{rs}, nil
}
