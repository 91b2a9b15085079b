package model

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScope_DeclareIsIdempotentForSameOwner(t *testing.T) {
	m := New()
	s := m.Scope("gen_new_bin")

	first, err := s.Set("GEN_NEW_BIN_VNTS", "project", "period")
	require.NoError(t, err)
	require.NoError(t, first.Add("battery", "2020"))

	again, err := s.Set("GEN_NEW_BIN_VNTS", "project", "period")
	require.NoError(t, err)

	assert.Same(t, first, again)
	assert.Equal(t, 1, again.Len(), "redeclare keeps loaded members")
}

func TestScope_DuplicateAcrossOwnersFails(t *testing.T) {
	m := New()
	_, err := m.Scope("temporal").Set("PERIODS", "period")
	require.NoError(t, err)

	_, err = m.Scope("load_zones").Set("PERIODS", "period")
	require.Error(t, err)

	var de *DuplicateEntityError
	require.True(t, errors.As(err, &de))
	assert.Equal(t, "PERIODS", de.Name)
	assert.Equal(t, "load_zones", de.Owner)
	assert.Equal(t, "temporal", de.ExistingOwner)
	assert.True(t, IsDuplicateEntity(err))
}

func TestScope_RedeclareWithDifferentShapeFails(t *testing.T) {
	m := New()
	s := m.Scope("x")
	_, err := s.Param("cost", "project")
	require.NoError(t, err)

	_, err = s.Param("cost", "project", "period")
	assert.True(t, IsDuplicateEntity(err))

	_, err = s.Set("cost", "project")
	assert.True(t, IsDuplicateEntity(err))
	assert.Contains(t, err.Error(), "redeclared by x as set")
}

func TestModel_LookupMissingAndWrongKind(t *testing.T) {
	m := New()
	_, err := m.Scope("temporal").Set("PERIODS", "period")
	require.NoError(t, err)

	_, err = m.Param("period_discount_factor")
	var me *MissingEntityError
	require.True(t, errors.As(err, &me))
	assert.Equal(t, KindParam, me.Kind)
	assert.Equal(t, "param \"period_discount_factor\" is not declared", err.Error())

	_, err = m.Var("PERIODS")
	require.True(t, errors.As(err, &me))
	assert.Equal(t, KindSet, me.Found)
	assert.True(t, IsMissingEntity(err))
}

func TestSet_MembersAreUniqueAndOrdered(t *testing.T) {
	m := New()
	s, err := m.Scope("o").Set("PV", "project", "period")
	require.NoError(t, err)

	require.NoError(t, s.Add("b", "2030"))
	require.NoError(t, s.Add("a", "2020"))
	require.NoError(t, s.Add("b", "2030"))

	assert.Equal(t, []Index{{"b", "2030"}, {"a", "2020"}}, s.Members())
	assert.True(t, s.Contains("a", "2020"))
	assert.False(t, s.Contains("a", "2030"))
	assert.Equal(t, []Index{{"b", "2030"}}, s.Filter(0, "b"))

	var dimErr *DimensionError
	assert.True(t, errors.As(s.Add("only-one"), &dimErr))
}

func TestParam_DefaultsAndDomain(t *testing.T) {
	m := New()
	p, err := m.Scope("o").Param("size_mw", "project")
	require.NoError(t, err)
	p.NonNegative()

	_, err = p.Get("battery")
	var mv *MissingValueError
	require.True(t, errors.As(err, &mv))

	p.WithDefault(5)
	v, err := p.Get("battery")
	require.NoError(t, err)
	assert.Equal(t, 5.0, v)
	assert.False(t, p.Has("battery"))

	require.NoError(t, p.Set(12, "battery"))
	assert.Equal(t, 12.0, p.Value("battery"))

	var de *DomainError
	assert.True(t, errors.As(p.Set(-1, "battery"), &de))
	assert.True(t, errors.As(p.Set(math.NaN(), "battery"), &de))
}

func TestVar_ColumnsCreatedOnceWithDomainBounds(t *testing.T) {
	m := New()
	s := m.Scope("o")
	build, err := s.Var("Build", Binary, "project", "period")
	require.NoError(t, err)
	dispatch, err := s.Var("Dispatch", NonNegativeReals, "project")
	require.NoError(t, err)

	a, err := build.At("battery", "2020")
	require.NoError(t, err)
	b, err := build.At("battery", "2020")
	require.NoError(t, err)
	assert.True(t, a.Equal(b))

	_, err = dispatch.At("gas")
	require.NoError(t, err)

	cols := m.Columns()
	require.Len(t, cols, 2)
	assert.Equal(t, Column{ID: 0, Var: "Build", Index: Index{"battery", "2020"}, Lower: 0, Upper: 1, Integer: true}, cols[0])
	assert.True(t, math.IsInf(cols[1].Upper, 1))
	assert.False(t, cols[1].Integer)

	require.NoError(t, dispatch.SetBounds(0, 40, "gas"))
	assert.Equal(t, 40.0, m.Columns()[1].Upper)
	assert.Error(t, build.SetBounds(0, 2, "battery", "2020"), "binary upper bound cannot exceed 1")

	_, err = s.Var("Build", NonNegativeReals, "project", "period")
	assert.True(t, IsDuplicateEntity(err), "domain change is a conflicting redeclare")
}

func TestLinExpr_OrderIndependentSum(t *testing.T) {
	x := term(0, 1)
	y := term(1, 2)
	z := term(2, -3).PlusConst(4)

	left := Sum(x, y, z)
	right := z.Plus(y).Plus(x)

	assert.True(t, left.Equal(right))
	assert.Equal(t, []Term{{0, 1}, {1, 2}, {2, -3}}, left.Terms())
	assert.Equal(t, 4.0, left.Constant())
}

func TestLinExpr_CancellationDropsTerms(t *testing.T) {
	x := term(0, 2)
	e := x.Minus(x)

	assert.True(t, e.IsZero())
	assert.Equal(t, 0, e.Len())
	assert.True(t, e.Equal(LinExpr{}))
}

func TestLinExpr_ScaleAndEval(t *testing.T) {
	e := Sum(term(0, 1), term(1, 3), Const(2)).Scale(2)

	assert.Equal(t, 2.0*(1*5+3*1+2), e.Eval([]float64{5, 1}))
	assert.True(t, e.Scale(0).IsZero())
}

func TestConstraint_MovesConstantToRHS(t *testing.T) {
	m := New()
	s := m.Scope("o")
	v, err := s.Var("Build", Binary, "period")
	require.NoError(t, err)
	c, err := s.Constraint("Only_Build_Once", "period")
	require.NoError(t, err)

	x, _ := v.At("2020")
	y, _ := v.At("2030")
	require.NoError(t, c.Add(Sum(x, y, Const(-1)), LessEqual, Const(0), "2040"))

	row, ok := c.Row("2040")
	require.True(t, ok)
	assert.Equal(t, 1.0, row.RHS)
	assert.Equal(t, 0.0, row.Expr.Constant())
	assert.Equal(t, LessEqual, row.Sense)
	assert.Equal(t, "Build[2020] + Build[2030]", m.Format(row.Expr))

	require.NoError(t, c.Add(x, LessEqual, Const(1), "2040"))
	assert.Len(t, m.Rows(), 1, "re-adding an index replaces the row")
}

func TestObjective_SingleOwner(t *testing.T) {
	m := New()
	require.NoError(t, m.Scope("objective").Objective("Total_Cost", Minimize, Const(1)))
	require.NoError(t, m.Scope("objective").Objective("Total_Cost", Minimize, Const(2)))
	assert.Error(t, m.Scope("other").Objective("Other", Minimize, Const(0)))

	assert.Equal(t, 2.0, m.Objective().Expr.Constant())
	assert.True(t, m.Stats().HasObjective)
}

func TestSolution_ValueAndEval(t *testing.T) {
	m := New()
	v, err := m.Scope("o").Var("Build", NonNegativeReals, "p")
	require.NoError(t, err)
	a, _ := v.At("a")
	b, _ := v.At("b")

	sol := NewSolution(StatusOptimal, 7, []float64{3, 4})

	assert.Equal(t, 3.0, sol.Value(v, "a"))
	assert.Equal(t, 0.0, sol.Value(v, "never"))
	assert.Equal(t, 3.0+2*4, sol.Eval(Sum(a, b.Scale(2))))
	assert.Equal(t, 1.0, Round(0.9999999, 1e-6))
	assert.Equal(t, 0.5, Round(0.5, 1e-6))
}
