package model

import "math"

// Status is the outcome of a solve.
type Status string

const (
	StatusOptimal    Status = "optimal"
	StatusInfeasible Status = "infeasible"
	StatusTimeout    Status = "timeout"
	StatusError      Status = "error"
)

// Solution holds solved column values.
type Solution struct {
	Status    Status
	Objective float64
	values    []float64
}

// NewSolution wraps solved column values, indexed by column ID.
func NewSolution(status Status, objective float64, values []float64) *Solution {
	v := make([]float64, len(values))
	copy(v, values)
	return &Solution{Status: status, Objective: objective, values: v}
}

// Column returns the value of a column.
func (s *Solution) Column(id int) float64 {
	if id < 0 || id >= len(s.values) {
		return 0
	}
	return s.values[id]
}

// Value returns the solved value of a variable at an index. Indexes that were
// never materialized are zero.
func (s *Solution) Value(v *Var, idx ...string) float64 {
	col, ok := v.Column(idx...)
	if !ok {
		return 0
	}
	return s.Column(col)
}

// Eval evaluates an expression at the solution.
func (s *Solution) Eval(e LinExpr) float64 {
	return e.Eval(s.values)
}

// Round returns v with values within tol of an integer snapped to it.
func Round(v, tol float64) float64 {
	r := math.Round(v)
	if math.Abs(v-r) <= tol {
		return r
	}
	return v
}
