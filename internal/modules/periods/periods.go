// Package periods implements the "temporal" module: the investment period
// calendar every other module indexes by.
package periods

import (
	"context"
	"fmt"
	"math"

	"github.com/souissim/gridpath/internal/model"
	"github.com/souissim/gridpath/internal/module"
	"github.com/souissim/gridpath/internal/results"
	"github.com/souissim/gridpath/internal/scenario"
	"github.com/souissim/gridpath/internal/tabfile"
	"github.com/souissim/gridpath/internal/temporal"
)

// Name is the module name.
const Name = "temporal"

// Entity names declared by the module.
const (
	SetPeriods       = "PERIODS"
	ParamDiscount    = "discount_factor"
	ParamYearsInPrd  = "number_years_represented"
	ParamPeriodStart = "period_start_year"
)

// TablePeriods is the input table holding the period calendar.
const TablePeriods = "periods"

// Module loads periods.tab into PERIODS and the instance calendar.
type Module struct{ module.Base }

// New creates the module.
func New() module.Module {
	return &Module{module.Base{
		ModuleName: Name,
		Tables: []module.TableSpec{{
			Name: TablePeriods,
			Columns: []module.Column{
				{Name: "period", Required: true},
				{Name: "start_year", Required: true, Numeric: true},
				{Name: "end_year", Required: true, Numeric: true},
				{Name: "discount_factor", Numeric: true, NonNegative: true},
				{Name: "number_years_represented", Numeric: true, NonNegative: true},
			},
			Key: []string{"period"},
		}},
	}}
}

func (m *Module) Declare(_ context.Context, inst *module.Instance) error {
	s := inst.Scope(m)
	if _, err := s.Set(SetPeriods, "period"); err != nil {
		return err
	}
	df, err := s.Param(ParamDiscount, "period")
	if err != nil {
		return err
	}
	df.WithDefault(1).NonNegative()
	yrs, err := s.Param(ParamYearsInPrd, "period")
	if err != nil {
		return err
	}
	yrs.NonNegative()
	_, err = s.Param(ParamPeriodStart, "period")
	return err
}

// Validate adds calendar checks to the table checks.
func (m *Module) Validate(ctx context.Context, key scenario.Key, src scenario.InputSource) []module.ValidationIssue {
	issues := m.Base.Validate(ctx, key, src)
	if module.HasHigh(issues) {
		return issues
	}
	t, err := m.Table(ctx, key, src, TablePeriods)
	if err != nil {
		return issues
	}
	if _, err := readCalendar(t); err != nil {
		issues = append(issues, module.ValidationIssue{
			Module:   Name,
			Table:    TablePeriods,
			Severity: module.SeverityHigh,
			Message:  err.Error(),
		})
	}
	return issues
}

func (m *Module) Load(ctx context.Context, inst *module.Instance, src scenario.InputSource) error {
	t, err := m.Table(ctx, inst.Key, src, TablePeriods)
	if err != nil {
		return err
	}
	cal, err := readCalendar(t)
	if err != nil {
		return err
	}
	inst.SetCalendar(cal)

	set, _ := inst.Model.Set(SetPeriods)
	df, _ := inst.Model.Param(ParamDiscount)
	yrs, _ := inst.Model.Param(ParamYearsInPrd)
	start, _ := inst.Model.Param(ParamPeriodStart)
	for _, p := range cal.Periods() {
		if err := set.Add(p.ID); err != nil {
			return err
		}
		if err := df.Set(p.DiscountFactor, p.ID); err != nil {
			return err
		}
		if err := yrs.Set(p.YearsRepresented, p.ID); err != nil {
			return err
		}
		if err := start.Set(float64(p.StartYear), p.ID); err != nil {
			return err
		}
	}
	inst.Logger.Debug("periods loaded", "periods", cal.Len())
	return nil
}

func (m *Module) Export(_ context.Context, inst *module.Instance, _ *model.Solution) ([]results.Rows, error) {
	cal, err := inst.Calendar()
	if err != nil {
		return nil, err
	}
	rs := results.Rows{
		Table:        "period",
		IndexColumns: []string{"period"},
		Columns:      []string{"discount_factor", "number_years_represented"},
	}
	for _, p := range cal.Periods() {
		rs.Add([]string{p.ID}, map[string]float64{
			"discount_factor":          p.DiscountFactor,
			"number_years_represented": p.YearsRepresented,
		})
	}
	return []results.Rows{rs}, nil
}

// readCalendar builds the calendar from periods.tab. A null discount factor
// is 1 and a null years represented is the period's span.
func readCalendar(t *tabfile.Table) (*temporal.Calendar, error) {
	var periods []temporal.Period
	for _, rec := range t.Records() {
		id, _ := rec.String("period")
		start, err := year(rec, "start_year")
		if err != nil {
			return nil, err
		}
		end, err := year(rec, "end_year")
		if err != nil {
			return nil, err
		}
		p := temporal.Period{ID: id, StartYear: start, EndYear: end, DiscountFactor: 1, YearsRepresented: float64(end - start)}
		if v, ok, err := rec.Float("discount_factor"); err != nil {
			return nil, err
		} else if ok {
			p.DiscountFactor = v
		}
		if v, ok, err := rec.Float("number_years_represented"); err != nil {
			return nil, err
		} else if ok {
			p.YearsRepresented = v
		}
		periods = append(periods, p)
	}
	return temporal.NewCalendar(periods)
}

func year(rec tabfile.Record, col string) (int, error) {
	v, ok, err := rec.Float(col)
	if err != nil {
		return 0, err
	}
	if !ok || v != math.Trunc(v) {
		return 0, &temporal.InvalidInputError{Message: fmt.Sprintf("line %d: %s must be a whole year", rec.Line(), col)}
	}
	return int(v), nil
}

// Weight returns the objective weight of a period: its discount factor times
// the number of years it represents.
func Weight(m *model.Model, period string) (float64, error) {
	df, err := m.Param(ParamDiscount)
	if err != nil {
		return 0, err
	}
	yrs, err := m.Param(ParamYearsInPrd)
	if err != nil {
		return 0, err
	}
	d, err := df.Get(period)
	if err != nil {
		return 0, err
	}
	y, err := yrs.Get(period)
	if err != nil {
		return 0, err
	}
	return d * y, nil
}
