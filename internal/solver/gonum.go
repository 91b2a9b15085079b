package solver

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/souissim/gridpath/internal/model"
)

// Gonum is the built-in backend.
type Gonum struct {
	opts Options
}

// NewGonum returns the built-in backend.
func NewGonum(opts Options) *Gonum {
	return &Gonum{opts: opts.withDefaults()}
}

type node struct {
	lo, hi []float64
}

// Solve implements Solver.
func (g *Gonum) Solve(ctx context.Context, m *model.Model) (*model.Solution, error) {
	p := newProblem(m)
	stack := []node{{lo: p.lower, hi: p.upper}}
	var best []float64
	bestObj := math.Inf(1)

	for nodes := 0; len(stack) > 0; nodes++ {
		if err := ctx.Err(); err != nil {
			return interrupted(err)
		}
		if nodes >= g.opts.NodeLimit {
			return fail(model.StatusTimeout, fmt.Sprintf("node limit %d reached", g.opts.NodeLimit), nil)
		}

		nd := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		st, obj, x, err := p.relax(nd.lo, nd.hi)
		if err != nil {
			return fail(model.StatusError, "", err)
		}
		switch st {
		case lpInfeasible:
			continue
		case lpUnbounded:
			return fail(model.StatusError, "problem is unbounded", nil)
		}
		if obj >= bestObj-1e-9*math.Max(1, math.Abs(bestObj)) {
			continue
		}

		j := p.mostFractional(x, g.opts.IntegralityTol)
		if j < 0 {
			best, bestObj = x, obj
			continue
		}

		f := math.Floor(x[j])
		down := node{lo: nd.lo, hi: withBound(nd.hi, j, f)}
		up := node{lo: withBound(nd.lo, j, f+1), hi: nd.hi}
		// The branch nearer the relaxed value is pushed last so it is
		// explored first.
		if x[j]-f > 0.5 {
			stack = append(stack, down, up)
		} else {
			stack = append(stack, up, down)
		}
	}

	if best == nil {
		return fail(model.StatusInfeasible, "", nil)
	}
	for j, isInt := range p.integer {
		if isInt {
			best[j] = model.Round(best[j], g.opts.IntegralityTol)
		}
	}
	if p.maximize {
		bestObj = -bestObj
	}
	return model.NewSolution(model.StatusOptimal, bestObj, best), nil
}

func withBound(b []float64, j int, v float64) []float64 {
	out := make([]float64, len(b))
	copy(out, b)
	out[j] = v
	return out
}

func fail(status model.Status, reason string, err error) (*model.Solution, error) {
	return model.NewSolution(status, 0, nil), &Failure{Status: status, Reason: reason, Err: err}
}

// interrupted maps a context error to a failure: an expired deadline is a
// timeout, a cancellation an error.
func interrupted(err error) (*model.Solution, error) {
	if errors.Is(err, context.DeadlineExceeded) {
		return fail(model.StatusTimeout, "", err)
	}
	return fail(model.StatusError, "cancelled", err)
}
