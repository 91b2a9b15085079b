package model

import "fmt"

// Scope declares entities on behalf of one owner.
type Scope struct {
	m     *Model
	owner string
}

// Owner returns the owning module name.
func (s *Scope) Owner() string { return s.owner }

// Model returns the model the scope declares into.
func (s *Scope) Model() *Model { return s.m }

// Set declares a set with the given dimensions.
func (s *Scope) Set(name string, dims ...string) (*Set, error) {
	e, err := s.m.declare(s.owner, name, KindSet, dims, func(h header) Entity { return newSet(h) })
	if err != nil {
		return nil, err
	}
	return e.(*Set), nil
}

// Param declares a parameter.
func (s *Scope) Param(name string, dims ...string) (*Param, error) {
	e, err := s.m.declare(s.owner, name, KindParam, dims, func(h header) Entity { return newParam(h) })
	if err != nil {
		return nil, err
	}
	return e.(*Param), nil
}

// Var declares a variable family.
func (s *Scope) Var(name string, domain Domain, dims ...string) (*Var, error) {
	e, err := s.m.declare(s.owner, name, KindVar, dims, func(h header) Entity { return newVar(h, s.m, domain) })
	if err != nil {
		return nil, err
	}
	v := e.(*Var)
	if v.domain != domain {
		return nil, &DuplicateEntityError{Name: name, Kind: KindVar, Owner: s.owner, ExistingOwner: v.owner, ExistingKind: KindVar}
	}
	return v, nil
}

// Expression declares a derived expression family.
func (s *Scope) Expression(name string, dims ...string) (*Expression, error) {
	e, err := s.m.declare(s.owner, name, KindExpression, dims, func(h header) Entity { return newExpression(h) })
	if err != nil {
		return nil, err
	}
	return e.(*Expression), nil
}

// Constraint declares a constraint family.
func (s *Scope) Constraint(name string, dims ...string) (*Constraint, error) {
	e, err := s.m.declare(s.owner, name, KindConstraint, dims, func(h header) Entity { return newConstraint(h, s.m) })
	if err != nil {
		return nil, err
	}
	return e.(*Constraint), nil
}

// Objective sets the model objective. Only one owner may set it.
func (s *Scope) Objective(name string, sense ObjectiveSense, expr LinExpr) error {
	if o := s.m.objective; o != nil && o.Owner != s.owner {
		return fmt.Errorf("objective already set by %s", o.Owner)
	}
	s.m.objective = &Objective{Name: name, Owner: s.owner, Sense: sense, Expr: expr}
	return nil
}
