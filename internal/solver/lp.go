package solver

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/optimize/convex/lp"

	"github.com/souissim/gridpath/internal/model"
)

const (
	feasTol    = 1e-7
	simplexTol = 1e-10
)

type lpStatus int

const (
	lpOptimal lpStatus = iota
	lpInfeasible
	lpUnbounded
)

// problem is a model flattened for repeated relaxation solves. Costs are
// stored in minimization form.
type problem struct {
	n        int
	cost     []float64
	constant float64
	maximize bool
	rows     []model.Row
	lower    []float64
	upper    []float64
	integer  []bool
	inRows   []bool
}

func newProblem(m *model.Model) *problem {
	cols := m.Columns()
	p := &problem{
		n:       len(cols),
		cost:    make([]float64, len(cols)),
		rows:    m.Rows(),
		lower:   make([]float64, len(cols)),
		upper:   make([]float64, len(cols)),
		integer: make([]bool, len(cols)),
		inRows:  make([]bool, len(cols)),
	}
	for i, c := range cols {
		p.lower[i], p.upper[i], p.integer[i] = c.Lower, c.Upper, c.Integer
	}
	for _, r := range p.rows {
		for _, t := range r.Expr.Terms() {
			p.inRows[t.Column] = true
		}
	}
	if obj := m.Objective(); obj != nil {
		sign := 1.0
		if obj.Sense == model.Maximize {
			p.maximize = true
			sign = -1
		}
		for _, t := range obj.Expr.Terms() {
			p.cost[t.Column] = sign * t.Coef
		}
		p.constant = sign * obj.Expr.Constant()
	}
	return p
}

// lpRow is one standard-form row before the slack column is attached.
type lpRow struct {
	coef  map[int]float64
	rhs   float64
	slack float64
}

// relax solves the LP relaxation under the given column bounds and returns
// the minimization objective and a value per model column.
//
// Each column is shifted by its lower bound. Columns that are fixed, or that
// appear in no row, are resolved without the LP. Every remaining row gets its
// own slack column, so the standard-form matrix always has full row rank;
// equality rows become a <= and a >= row for the same reason.
func (p *problem) relax(lo, hi []float64) (lpStatus, float64, []float64, error) {
	x := make([]float64, p.n)
	obj := p.constant
	include := make([]int, p.n)
	var width []float64
	nInc := 0

	for j := 0; j < p.n; j++ {
		if hi[j] < lo[j]-feasTol {
			return lpInfeasible, 0, nil, nil
		}
		x[j] = lo[j]
		obj += p.cost[j] * lo[j]
		include[j] = -1
		w := hi[j] - lo[j]
		switch {
		case w <= feasTol:
		case !p.inRows[j]:
			if p.cost[j] < 0 {
				if math.IsInf(hi[j], 1) {
					return lpUnbounded, 0, nil, nil
				}
				x[j] = hi[j]
				obj += p.cost[j] * w
			}
		default:
			include[j] = nInc
			width = append(width, w)
			nInc++
		}
	}

	var rows []lpRow
	for _, r := range p.rows {
		rhs := r.RHS
		coef := make(map[int]float64)
		for _, t := range r.Expr.Terms() {
			rhs -= t.Coef * x[t.Column]
			if k := include[t.Column]; k >= 0 {
				coef[k] += t.Coef
			}
		}
		if len(coef) == 0 {
			if !satisfied(r.Sense, rhs) {
				return lpInfeasible, 0, nil, nil
			}
			continue
		}
		switch r.Sense {
		case model.LessEqual:
			rows = append(rows, lpRow{coef: coef, rhs: rhs, slack: 1})
		case model.GreaterEqual:
			rows = append(rows, lpRow{coef: coef, rhs: rhs, slack: -1})
		case model.Equal:
			rows = append(rows, lpRow{coef: coef, rhs: rhs, slack: 1}, lpRow{coef: coef, rhs: rhs, slack: -1})
		}
	}
	for k, w := range width {
		if !math.IsInf(w, 1) {
			rows = append(rows, lpRow{coef: map[int]float64{k: 1}, rhs: w, slack: 1})
		}
	}

	if len(rows) == 0 {
		return lpOptimal, obj, x, nil
	}

	m := len(rows)
	A := mat.NewDense(m, nInc+m, nil)
	b := make([]float64, m)
	for i, r := range rows {
		sign := 1.0
		if r.rhs < 0 {
			sign = -1
		}
		for k, v := range r.coef {
			A.Set(i, k, sign*v)
		}
		A.Set(i, nInc+i, sign*r.slack)
		b[i] = sign * r.rhs
	}
	c := make([]float64, nInc+m)
	for j, k := range include {
		if k >= 0 {
			c[k] = p.cost[j]
		}
	}

	optF, optX, err := lp.Simplex(c, A, b, simplexTol, nil)
	switch {
	case errors.Is(err, lp.ErrInfeasible):
		return lpInfeasible, 0, nil, nil
	case errors.Is(err, lp.ErrUnbounded):
		return lpUnbounded, 0, nil, nil
	case err != nil:
		return 0, 0, nil, fmt.Errorf("simplex: %w", err)
	}

	for j, k := range include {
		if k >= 0 {
			x[j] += optX[k]
		}
	}
	return lpOptimal, obj + optF, x, nil
}

func satisfied(s model.Sense, rhs float64) bool {
	switch s {
	case model.LessEqual:
		return 0 <= rhs+feasTol
	case model.GreaterEqual:
		return 0 >= rhs-feasTol
	default:
		return math.Abs(rhs) <= feasTol
	}
}

// mostFractional returns the integer column farthest from integrality, or -1
// when every integer column is integral within tol.
func (p *problem) mostFractional(x []float64, tol float64) int {
	best, bestDist := -1, tol
	for j, isInt := range p.integer {
		if !isInt {
			continue
		}
		f := x[j] - math.Floor(x[j])
		d := math.Min(f, 1-f)
		if d > bestDist {
			best, bestDist = j, d
		}
	}
	return best
}
