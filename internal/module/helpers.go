package module

import (
	"fmt"

	"github.com/souissim/gridpath/internal/model"
	"github.com/souissim/gridpath/internal/tabfile"
	"github.com/souissim/gridpath/internal/temporal"
)

// BuildOnce adds one row per build-once group to c, capping the sum of the
// build variable over the group's vintages at 1. build must be indexed by
// (asset, vintage) and c by (asset, period).
func BuildOnce(c *model.Constraint, build *model.Var, groups []temporal.BuildOnceGroup) error {
	for _, g := range groups {
		parts := make([]model.LinExpr, 0, len(g.Vintages))
		for _, v := range g.Vintages {
			e, err := build.At(g.Asset, v)
			if err != nil {
				return fmt.Errorf("build-once %s in %s: %w", g.Asset, g.Period, err)
			}
			parts = append(parts, e)
		}
		if err := c.Add(model.Sum(parts...), model.LessEqual, model.Const(1), g.Asset, g.Period); err != nil {
			return fmt.Errorf("build-once %s in %s: %w", g.Asset, g.Period, err)
		}
	}
	return nil
}

// LoadParam sets p from a value column of t, indexed by the index columns.
// Null values are skipped so the parameter default applies.
func LoadParam(p *model.Param, t *tabfile.Table, value string, index ...string) error {
	for _, rec := range t.Records() {
		v, ok, err := rec.Float(value)
		if err != nil {
			return err
		}
		if !ok {
			continue
		}
		idx, err := recordIndex(rec, t.Name, index)
		if err != nil {
			return err
		}
		if err := p.Set(v, idx...); err != nil {
			return fmt.Errorf("%s line %d: %w", t.Name, rec.Line(), err)
		}
	}
	return nil
}

// LoadSet adds the index columns of every row of t to s.
func LoadSet(s *model.Set, t *tabfile.Table, index ...string) error {
	for _, rec := range t.Records() {
		idx, err := recordIndex(rec, t.Name, index)
		if err != nil {
			return err
		}
		if err := s.Add(idx...); err != nil {
			return fmt.Errorf("%s line %d: %w", t.Name, rec.Line(), err)
		}
	}
	return nil
}

func recordIndex(rec tabfile.Record, table string, cols []string) ([]string, error) {
	idx := make([]string, len(cols))
	for i, c := range cols {
		v, ok := rec.String(c)
		if !ok {
			return nil, fmt.Errorf("%s line %d: index column %s is null", table, rec.Line(), c)
		}
		idx[i] = v
	}
	return idx, nil
}
