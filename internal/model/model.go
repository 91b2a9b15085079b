package model

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// ObjectiveSense is the direction of optimization.
type ObjectiveSense int

const (
	Minimize ObjectiveSense = iota
	Maximize
)

// Objective is the model's objective function.
type Objective struct {
	Name  string
	Owner string
	Sense ObjectiveSense
	Expr  LinExpr
}

// Model is one scenario's optimization model.
//
// A Model is not safe for concurrent use; each scenario key builds its own.
type Model struct {
	entities  map[string]Entity
	order     []string
	columns   []Column
	rows      []Row
	objective *Objective
}

// New creates an empty model.
func New() *Model {
	return &Model{entities: make(map[string]Entity)}
}

// Scope returns a declaration scope attributing entities to owner.
func (m *Model) Scope(owner string) *Scope {
	return &Scope{m: m, owner: owner}
}

// Lookup returns any entity by name.
func (m *Model) Lookup(name string) (Entity, error) {
	e, ok := m.entities[name]
	if !ok {
		return nil, &MissingEntityError{Name: name}
	}
	return e, nil
}

// Set returns a declared set.
func (m *Model) Set(name string) (*Set, error) {
	e, err := m.lookupKind(name, KindSet)
	if err != nil {
		return nil, err
	}
	return e.(*Set), nil
}

// Param returns a declared parameter.
func (m *Model) Param(name string) (*Param, error) {
	e, err := m.lookupKind(name, KindParam)
	if err != nil {
		return nil, err
	}
	return e.(*Param), nil
}

// Var returns a declared variable.
func (m *Model) Var(name string) (*Var, error) {
	e, err := m.lookupKind(name, KindVar)
	if err != nil {
		return nil, err
	}
	return e.(*Var), nil
}

// Expression returns a declared expression.
func (m *Model) Expression(name string) (*Expression, error) {
	e, err := m.lookupKind(name, KindExpression)
	if err != nil {
		return nil, err
	}
	return e.(*Expression), nil
}

// Constraint returns a declared constraint.
func (m *Model) Constraint(name string) (*Constraint, error) {
	e, err := m.lookupKind(name, KindConstraint)
	if err != nil {
		return nil, err
	}
	return e.(*Constraint), nil
}

// Entities returns every entity in declaration order.
func (m *Model) Entities() []Entity {
	out := make([]Entity, len(m.order))
	for i, name := range m.order {
		out[i] = m.entities[name]
	}
	return out
}

// Columns returns a copy of every variable column.
func (m *Model) Columns() []Column {
	out := make([]Column, len(m.columns))
	copy(out, m.columns)
	return out
}

// Rows returns every constraint row in declaration order.
func (m *Model) Rows() []Row {
	out := make([]Row, len(m.rows))
	copy(out, m.rows)
	return out
}

// Objective returns the objective, or nil if none was set.
func (m *Model) Objective() *Objective {
	if m.objective == nil {
		return nil
	}
	o := *m.objective
	return &o
}

// Format renders an expression with variable names, terms ordered by
// column, e.g. "2 Build[battery,2020] + 3".
func (m *Model) Format(e LinExpr) string {
	var parts []string
	for _, t := range e.Terms() {
		name := fmt.Sprintf("x%d", t.Column)
		if t.Column < len(m.columns) {
			c := m.columns[t.Column]
			name = c.Var + c.Index.String()
		}
		parts = append(parts, formatCoef(t.Coef)+name)
	}
	if e.Constant() != 0 || len(parts) == 0 {
		parts = append(parts, strconv.FormatFloat(e.Constant(), 'g', -1, 64))
	}
	return strings.Join(parts, " + ")
}

// Stats summarizes model size.
type Stats struct {
	Entities     int
	Columns      int
	Integer      int
	Rows         int
	ByKind       map[string]int
	HasObjective bool
}

// Stats returns model size counters.
func (m *Model) Stats() Stats {
	s := Stats{
		Entities:     len(m.entities),
		Columns:      len(m.columns),
		Rows:         len(m.rows),
		ByKind:       make(map[string]int),
		HasObjective: m.objective != nil,
	}
	for _, c := range m.columns {
		if c.Integer {
			s.Integer++
		}
	}
	for _, e := range m.entities {
		s.ByKind[e.Kind().String()]++
	}
	return s
}

// EntityNames returns declared names sorted.
func (m *Model) EntityNames() []string {
	out := make([]string, len(m.order))
	copy(out, m.order)
	sort.Strings(out)
	return out
}

func formatCoef(c float64) string {
	if c == 1 {
		return ""
	}
	return strconv.FormatFloat(c, 'g', -1, 64) + " "
}

func (m *Model) lookupKind(name string, kind Kind) (Entity, error) {
	e, ok := m.entities[name]
	if !ok {
		return nil, &MissingEntityError{Name: name, Kind: kind}
	}
	if e.Kind() != kind {
		return nil, &MissingEntityError{Name: name, Kind: kind, Found: e.Kind()}
	}
	return e, nil
}

// declare registers an entity or returns the existing one when the same
// owner redeclares the same kind and dimensions.
func (m *Model) declare(owner, name string, kind Kind, dims []string, build func(header) Entity) (Entity, error) {
	if existing, ok := m.entities[name]; ok {
		if existing.Owner() == owner && existing.Kind() == kind && sameDims(existing.Dims(), dims) {
			return existing, nil
		}
		return nil, &DuplicateEntityError{
			Name:          name,
			Kind:          kind,
			Owner:         owner,
			ExistingOwner: existing.Owner(),
			ExistingKind:  existing.Kind(),
		}
	}
	d := make([]string, len(dims))
	copy(d, dims)
	e := build(header{name: name, owner: owner, dims: d})
	m.entities[name] = e
	m.order = append(m.order, name)
	return e, nil
}
