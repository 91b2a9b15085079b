// Package objective implements the "objective" module. It owns the cost
// ledger: other modules append per-period cost expressions and the module
// minimizes their sum, weighted by each period's discount factor and years
// represented.
package objective

import (
	"context"

	"github.com/souissim/gridpath/internal/ledger"
	"github.com/souissim/gridpath/internal/model"
	"github.com/souissim/gridpath/internal/module"
	"github.com/souissim/gridpath/internal/modules/periods"
	"github.com/souissim/gridpath/internal/results"
)

// Name is the module name.
const Name = "objective"

// ObjectiveName is the name of the model objective.
const ObjectiveName = "NPV"

// Module folds the cost ledger into the objective.
type Module struct{ module.Base }

// New creates the module.
func New() module.Module {
	return &Module{module.Base{ModuleName: Name, Deps: []string{periods.Name}}}
}

func (m *Module) Declare(_ context.Context, inst *module.Instance) error {
	if _, err := inst.Model.Set(periods.SetPeriods); err != nil {
		return err
	}
	return inst.Ledger.Register(Name, ledger.CostComponents, "period")
}

func (m *Module) Assemble(_ context.Context, inst *module.Instance) error {
	costs, err := inst.Ledger.Fold(inst.Model, ledger.CostComponents)
	if err != nil {
		return err
	}
	prds, _ := inst.Model.Set(periods.SetPeriods)

	parts := make([]model.LinExpr, 0, prds.Len())
	for _, p := range prds.Values() {
		w, err := periods.Weight(inst.Model, p)
		if err != nil {
			return err
		}
		parts = append(parts, costs.At(p).Scale(w))
	}
	return inst.Scope(m).Objective(ObjectiveName, model.Minimize, model.Sum(parts...))
}

func (m *Module) Export(_ context.Context, inst *module.Instance, sol *model.Solution) ([]results.Rows, error) {
	costs, err := inst.Ledger.Folded(ledger.CostComponents)
	if err != nil {
		return nil, err
	}
	prds, _ := inst.Model.Set(periods.SetPeriods)

	rs := results.Rows{
		Table:        "period",
		IndexColumns: []string{"period"},
		Columns:      []string{"annual_cost", "weighted_cost"},
	}
	for _, p := range prds.Values() {
		w, err := periods.Weight(inst.Model, p)
		if err != nil {
			return nil, err
		}
		annual := sol.Eval(costs.At(p))
		rs.Add([]string{p}, map[string]float64{"annual_cost": annual, "weighted_cost": annual * w})
	}
	return []results.Rows{rs}, nil
}
