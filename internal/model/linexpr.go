package model

import (
	"sort"
)

// Term is one coefficient-column pair of a linear expression.
type Term struct {
	Column int
	Coef   float64
}

// LinExpr is an affine expression over variable columns.
//
// The zero value is the constant 0. LinExpr values are immutable: every
// operation returns a new expression. Terms whose coefficients cancel to
// exactly zero are dropped, so two expressions built from the same summands
// in any order compare Equal.
type LinExpr struct {
	terms    map[int]float64
	constant float64
}

// Const returns the constant expression c.
func Const(c float64) LinExpr {
	return LinExpr{constant: c}
}

// term returns coef times a single column.
func term(col int, coef float64) LinExpr {
	if coef == 0 {
		return LinExpr{}
	}
	return LinExpr{terms: map[int]float64{col: coef}}
}

// Sum adds expressions together.
func Sum(exprs ...LinExpr) LinExpr {
	out := LinExpr{terms: make(map[int]float64)}
	for _, e := range exprs {
		out.constant += e.constant
		for col, coef := range e.terms {
			out.addTerm(col, coef)
		}
	}
	return out
}

// Plus returns e + o.
func (e LinExpr) Plus(o LinExpr) LinExpr {
	return Sum(e, o)
}

// Minus returns e - o.
func (e LinExpr) Minus(o LinExpr) LinExpr {
	return Sum(e, o.Scale(-1))
}

// PlusConst returns e + c.
func (e LinExpr) PlusConst(c float64) LinExpr {
	out := e.clone()
	out.constant += c
	return out
}

// Scale returns k * e.
func (e LinExpr) Scale(k float64) LinExpr {
	if k == 0 {
		return LinExpr{}
	}
	out := LinExpr{terms: make(map[int]float64, len(e.terms)), constant: e.constant * k}
	for col, coef := range e.terms {
		out.terms[col] = coef * k
	}
	return out
}

// Constant returns the constant part.
func (e LinExpr) Constant() float64 {
	return e.constant
}

// Coef returns the coefficient of a column (0 if absent).
func (e LinExpr) Coef(col int) float64 {
	return e.terms[col]
}

// Len returns the number of non-zero terms.
func (e LinExpr) Len() int {
	return len(e.terms)
}

// Terms returns the non-zero terms ordered by column.
func (e LinExpr) Terms() []Term {
	out := make([]Term, 0, len(e.terms))
	for col, coef := range e.terms {
		out = append(out, Term{Column: col, Coef: coef})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Column < out[j].Column })
	return out
}

// IsZero reports whether e is the constant 0.
func (e LinExpr) IsZero() bool {
	return len(e.terms) == 0 && e.constant == 0
}

// Equal reports whether two expressions have identical terms and constant.
func (e LinExpr) Equal(o LinExpr) bool {
	if e.constant != o.constant || len(e.terms) != len(o.terms) {
		return false
	}
	for col, coef := range e.terms {
		if oc, ok := o.terms[col]; !ok || oc != coef {
			return false
		}
	}
	return true
}

// Eval evaluates e given column values.
func (e LinExpr) Eval(values []float64) float64 {
	v := e.constant
	for col, coef := range e.terms {
		if col < len(values) {
			v += coef * values[col]
		}
	}
	return v
}

func (e *LinExpr) addTerm(col int, coef float64) {
	if coef == 0 {
		return
	}
	if e.terms == nil {
		e.terms = make(map[int]float64)
	}
	next := e.terms[col] + coef
	if next == 0 {
		delete(e.terms, col)
		return
	}
	e.terms[col] = next
}

func (e LinExpr) clone() LinExpr {
	out := LinExpr{terms: make(map[int]float64, len(e.terms)), constant: e.constant}
	for col, coef := range e.terms {
		out.terms[col] = coef
	}
	return out
}
