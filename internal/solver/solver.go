// Package solver defines the solver contract and ships a built-in LP/MILP
// backend.
//
// A Solver accepts a fully assembled model and returns a Solution. Any
// status other than optimal is also returned as a *Failure error, so callers
// can mark the scenario failed without inspecting the solution.
//
// The built-in "gonum" backend solves the LP relaxation with gonum's simplex
// implementation and handles integer columns by depth-first branch and bound.
// It checks the context between nodes; a single LP solve is not interrupted.
package solver

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/souissim/gridpath/internal/model"
)

// Solver solves an assembled model.
type Solver interface {
	Solve(ctx context.Context, m *model.Model) (*model.Solution, error)
}

// Options configure a backend. Wall-clock limits arrive through the
// context passed to Solve.
type Options struct {
	// NodeLimit bounds the branch-and-bound tree. Zero uses DefaultNodeLimit.
	NodeLimit int

	// IntegralityTol is the distance from an integer below which an integer
	// column counts as integral. Zero uses DefaultIntegralityTol.
	IntegralityTol float64
}

const (
	DefaultNodeLimit      = 10000
	DefaultIntegralityTol = 1e-6
)

func (o Options) withDefaults() Options {
	if o.NodeLimit <= 0 {
		o.NodeLimit = DefaultNodeLimit
	}
	if o.IntegralityTol <= 0 {
		o.IntegralityTol = DefaultIntegralityTol
	}
	return o
}

// Failure is a non-optimal solve: infeasible, timed out, or errored.
type Failure struct {
	Status model.Status
	Reason string
	Err    error
}

func (f *Failure) Error() string {
	msg := fmt.Sprintf("solver: %s", f.Status)
	if f.Reason != "" {
		msg += ": " + f.Reason
	}
	if f.Err != nil {
		msg += ": " + f.Err.Error()
	}
	return msg
}

func (f *Failure) Unwrap() error {
	return f.Err
}

// IsFailure returns true if err is or wraps a Failure.
func IsFailure(err error) bool {
	var f *Failure
	return errors.As(err, &f)
}

// FailureStatus returns the status of a wrapped Failure, or StatusError.
func FailureStatus(err error) model.Status {
	var f *Failure
	if errors.As(err, &f) {
		return f.Status
	}
	return model.StatusError
}

// UnknownBackendError is returned by New for an unregistered backend.
type UnknownBackendError struct {
	Name string
}

func (e *UnknownBackendError) Error() string {
	return fmt.Sprintf("unknown solver backend %q (available: %v)", e.Name, Backends())
}

// DefaultBackend is the backend used when none is configured.
const DefaultBackend = "gonum"

var backends = map[string]func(Options) Solver{
	DefaultBackend: func(o Options) Solver { return NewGonum(o) },
}

// Backends lists the registered backend names.
func Backends() []string {
	out := make([]string, 0, len(backends))
	for name := range backends {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// New returns the named backend. An empty name selects DefaultBackend.
func New(name string, opts Options) (Solver, error) {
	if name == "" {
		name = DefaultBackend
	}
	f, ok := backends[name]
	if !ok {
		return nil, &UnknownBackendError{Name: name}
	}
	return f(opts), nil
}
