package model

import (
	"math"
)

// Domain restricts the values a decision variable may take.
type Domain int

const (
	NonNegativeReals Domain = iota
	Binary
	NonNegativeIntegers
)

func (d Domain) String() string {
	switch d {
	case Binary:
		return "binary"
	case NonNegativeIntegers:
		return "non-negative integers"
	default:
		return "non-negative reals"
	}
}

// Integer reports whether the domain is discrete.
func (d Domain) Integer() bool {
	return d == Binary || d == NonNegativeIntegers
}

func (d Domain) bounds() (float64, float64) {
	if d == Binary {
		return 0, 1
	}
	return 0, math.Inf(1)
}

// Column is one scalar decision variable: a Var at a single index.
type Column struct {
	ID      int
	Var     string
	Index   Index
	Lower   float64
	Upper   float64
	Integer bool
}

// Var is an indexed family of decision variables.
//
// Columns are created on first reference, so a Var only carries the
// indexes a module actually uses.
type Var struct {
	header
	m      *Model
	domain Domain
	cols   map[string]int
	order  []Index
}

func newVar(h header, m *Model, d Domain) *Var {
	return &Var{header: h, m: m, domain: d, cols: make(map[string]int)}
}

func (v *Var) Kind() Kind { return KindVar }

// Domain returns the variable domain.
func (v *Var) Domain() Domain { return v.domain }

// At returns the expression for the variable at an index, creating its
// column on first use.
func (v *Var) At(idx ...string) (LinExpr, error) {
	col, err := v.column(Index(idx))
	if err != nil {
		return LinExpr{}, err
	}
	return term(col, 1), nil
}

// Materialize creates columns for every index in members.
func (v *Var) Materialize(members []Index) error {
	for _, ix := range members {
		if _, err := v.column(ix); err != nil {
			return err
		}
	}
	return nil
}

// SetBounds narrows the bounds of the variable at an index.
func (v *Var) SetBounds(lower, upper float64, idx ...string) error {
	ix := Index(idx)
	col, err := v.column(ix)
	if err != nil {
		return err
	}
	dl, du := v.domain.bounds()
	if lower < dl || upper > du || lower > upper || math.IsInf(lower, 0) {
		return &DomainError{Entity: v.name, Index: ix.clone(), Value: lower}
	}
	c := &v.m.columns[col]
	c.Lower, c.Upper = lower, upper
	return nil
}

// Column returns the column ID of an existing index.
func (v *Var) Column(idx ...string) (int, bool) {
	col, ok := v.cols[Index(idx).Key()]
	return col, ok
}

// Indexes returns the materialized indexes in creation order.
func (v *Var) Indexes() []Index {
	out := make([]Index, len(v.order))
	for i, ix := range v.order {
		out[i] = ix.clone()
	}
	return out
}

// Expr returns the expression for an already materialized index.
func (v *Var) Expr(ix Index) (LinExpr, bool) {
	col, ok := v.cols[ix.Key()]
	if !ok {
		return LinExpr{}, false
	}
	return term(col, 1), true
}

func (v *Var) column(ix Index) (int, error) {
	if err := v.checkIndex(ix); err != nil {
		return 0, err
	}
	k := ix.Key()
	if col, ok := v.cols[k]; ok {
		return col, nil
	}
	lo, hi := v.domain.bounds()
	col := len(v.m.columns)
	v.m.columns = append(v.m.columns, Column{
		ID:      col,
		Var:     v.name,
		Index:   ix.clone(),
		Lower:   lo,
		Upper:   hi,
		Integer: v.domain.Integer(),
	})
	v.cols[k] = col
	v.order = append(v.order, ix.clone())
	return col, nil
}
