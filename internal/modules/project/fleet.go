package project

import (
	"fmt"
	"sort"

	"github.com/souissim/gridpath/internal/ledger"
	"github.com/souissim/gridpath/internal/model"
	"github.com/souissim/gridpath/internal/module"
	"github.com/souissim/gridpath/internal/modules/periods"
	"github.com/souissim/gridpath/internal/results"
	"github.com/souissim/gridpath/internal/temporal"
)

// HoursPerYear converts capacity in MW to annual energy in MWh.
const HoursPerYear = 8760

// Fleet is the operational side of one capacity type. Given the capacity of
// each of its projects in each operational period, it declares an energy
// variable capped by capacity and the per-zone energy, per-period cost, and
// per-zone emission expressions the capacity type contributes.
//
// Entity names derive from SetPrefix (e.g. GEN_NEW_LIN_OPR_PRDS) and Prefix
// (e.g. GenNewLin_Energy_MWh).
type Fleet struct {
	// CapacityType selects the projects whose capacity_type matches.
	CapacityType string
	SetPrefix    string
	Prefix       string
}

func (f Fleet) OperationalSet() string { return f.SetPrefix + "_OPR_PRDS" }
func (f Fleet) FinancialSet() string   { return f.SetPrefix + "_FIN_PRDS" }
func (f Fleet) CapacityExpr() string   { return f.Prefix + "_Capacity_MW" }
func (f Fleet) EnergyVar() string      { return f.Prefix + "_Energy_MWh" }
func (f Fleet) MaxEnergy() string      { return f.Prefix + "_Max_Energy_Constraint" }
func (f Fleet) ZoneEnergy() string     { return f.Prefix + "_Zone_Energy_MWh" }
func (f Fleet) Costs() string          { return f.Prefix + "_Costs" }
func (f Fleet) Emissions() string      { return f.Prefix + "_Emissions_tCO2" }

// Declare declares the fleet's entities in the capacity type's scope.
func (f Fleet) Declare(s *model.Scope) error {
	m := s.Model()
	for _, name := range []string{SetProjects, SetLoadZones, SetCapacityTypes} {
		if _, err := m.Set(name); err != nil {
			return err
		}
	}
	for _, name := range []string{f.OperationalSet(), f.FinancialSet()} {
		if _, err := s.Set(name, "project", "period"); err != nil {
			return err
		}
	}
	if _, err := s.Expression(f.CapacityExpr(), "project", "period"); err != nil {
		return err
	}
	if _, err := s.Var(f.EnergyVar(), model.NonNegativeReals, "project", "period"); err != nil {
		return err
	}
	if _, err := s.Constraint(f.MaxEnergy(), "project", "period"); err != nil {
		return err
	}
	if _, err := s.Expression(f.ZoneEnergy(), "load_zone", "period"); err != nil {
		return err
	}
	if _, err := s.Expression(f.Costs(), "period"); err != nil {
		return err
	}
	_, err := s.Expression(f.Emissions(), "load_zone", "period")
	return err
}

// Projects returns the fleet's projects in load order.
func (f Fleet) Projects(m *model.Model) ([]string, error) {
	types, err := m.Set(SetCapacityTypes)
	if err != nil {
		return nil, err
	}
	out := []string{}
	for _, ix := range types.Filter(1, f.CapacityType) {
		out = append(out, ix[0])
	}
	return out, nil
}

// Capacity is the capacity of one project in one operational period.
type Capacity struct {
	Project string
	Period  string
	MW      model.LinExpr
}

// Build defines the fleet's operational entities.
//
// capacity lists every operational (project, period) with its capacity.
// financial lists the (project, period) pairs incurring capital cost.
// fixed holds the capacity type's own per-period costs (capital and fixed
// O&M); variable costs are added here.
func (f Fleet) Build(inst *module.Instance, capacity []Capacity, financial []temporal.AssetPeriod, fixed map[string]model.LinExpr) error {
	md := inst.Model
	zoneOf, err := projectZones(md)
	if err != nil {
		return err
	}
	oprSet, _ := md.Set(f.OperationalSet())
	finSet, _ := md.Set(f.FinancialSet())
	capExpr, _ := md.Expression(f.CapacityExpr())
	energy, _ := md.Var(f.EnergyVar())
	maxEnergy, _ := md.Constraint(f.MaxEnergy())
	zoneEnergy, _ := md.Expression(f.ZoneEnergy())
	costs, _ := md.Expression(f.Costs())
	emissions, _ := md.Expression(f.Emissions())
	varCost, _ := md.Param(ParamVariableCost)
	rate, _ := md.Param(ParamEmissionRate)
	cf, _ := md.Param(ParamCapacityFactor)
	prds, err := md.Set(periods.SetPeriods)
	if err != nil {
		return err
	}

	type zonePeriod struct{ zone, period string }
	zoneParts := make(map[zonePeriod][]model.LinExpr)
	emissionParts := make(map[zonePeriod][]model.LinExpr)
	costParts := make(map[string][]model.LinExpr)

	for _, c := range capacity {
		zone, ok := zoneOf[c.Project]
		if !ok {
			return fmt.Errorf("project %s has no load zone", c.Project)
		}
		if err := oprSet.Add(c.Project, c.Period); err != nil {
			return err
		}
		if err := capExpr.Define(c.MW, c.Project, c.Period); err != nil {
			return err
		}
		e, err := energy.At(c.Project, c.Period)
		if err != nil {
			return err
		}
		limit := c.MW.Scale(HoursPerYear * cf.Value(c.Project))
		if err := maxEnergy.Add(e, model.LessEqual, limit, c.Project, c.Period); err != nil {
			return err
		}

		zp := zonePeriod{zone, c.Period}
		zoneParts[zp] = append(zoneParts[zp], e)
		emissionParts[zp] = append(emissionParts[zp], e.Scale(rate.Value(c.Project)))
		costParts[c.Period] = append(costParts[c.Period], e.Scale(varCost.Value(c.Project)))
	}
	for _, ap := range financial {
		if err := finSet.Add(ap.Asset, ap.Period); err != nil {
			return err
		}
	}

	keys := make([]zonePeriod, 0, len(zoneParts))
	for zp := range zoneParts {
		keys = append(keys, zp)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].zone != keys[j].zone {
			return keys[i].zone < keys[j].zone
		}
		return keys[i].period < keys[j].period
	})
	for _, zp := range keys {
		if err := zoneEnergy.Define(model.Sum(zoneParts[zp]...), zp.zone, zp.period); err != nil {
			return err
		}
		if err := emissions.Define(model.Sum(emissionParts[zp]...), zp.zone, zp.period); err != nil {
			return err
		}
	}
	for _, p := range prds.Values() {
		total := model.Sum(append(costParts[p], fixed[p])...)
		if err := costs.Define(total, p); err != nil {
			return err
		}
	}
	return nil
}

// Contribute appends the fleet's entities to the ledgers. Emissions are
// appended only when a carbon policy registered the emissions list.
func (f Fleet) Contribute(l *ledger.Ledger) error {
	for _, e := range []struct {
		list   ledger.List
		entity string
	}{
		{ledger.LoadBalanceProduction, f.ZoneEnergy()},
		{ledger.CostComponents, f.Costs()},
		{ledger.OperationalPeriodSets, f.OperationalSet()},
		{ledger.FinancialPeriodSets, f.FinancialSet()},
	} {
		if err := l.Append(e.list, e.entity); err != nil {
			return err
		}
	}
	if l.Registered(ledger.EmissionComponents) {
		return l.Append(ledger.EmissionComponents, f.Emissions())
	}
	return nil
}

// Export returns the fleet's capacity and energy per (project, period),
// in columns prefixed with the capacity type.
func (f Fleet) Export(inst *module.Instance, sol *model.Solution) (results.Rows, error) {
	md := inst.Model
	capExpr, err := md.Expression(f.CapacityExpr())
	if err != nil {
		return results.Rows{}, err
	}
	energy, err := md.Var(f.EnergyVar())
	if err != nil {
		return results.Rows{}, err
	}
	capCol := f.CapacityType + "_capacity_mw"
	energyCol := f.CapacityType + "_energy_mwh"
	rs := results.Rows{
		Table:        "project_period",
		IndexColumns: []string{"project", "period"},
		Columns:      []string{capCol, energyCol},
	}
	for _, ix := range capExpr.Indexes() {
		mw, _ := capExpr.At(ix...)
		rs.Add(ix, map[string]float64{
			capCol:    sol.Eval(mw),
			energyCol: sol.Value(energy, ix...),
		})
	}
	return rs, nil
}

func projectZones(m *model.Model) (map[string]string, error) {
	s, err := m.Set(SetLoadZones)
	if err != nil {
		return nil, err
	}
	out := make(map[string]string, s.Len())
	for _, ix := range s.Members() {
		out[ix[0]] = ix[1]
	}
	return out, nil
}
