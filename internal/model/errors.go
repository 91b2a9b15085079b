package model

import (
	"errors"
	"fmt"
	"strings"
)

// DuplicateEntityError is returned when a name is already declared by a
// different owner, or by the same owner with a different kind or shape.
type DuplicateEntityError struct {
	Name          string
	Kind          Kind
	Owner         string
	ExistingOwner string
	ExistingKind  Kind
}

func (e *DuplicateEntityError) Error() string {
	if e.Owner == e.ExistingOwner {
		return fmt.Sprintf("entity %q redeclared by %s as %s (was %s)", e.Name, e.Owner, e.Kind, e.ExistingKind)
	}
	return fmt.Sprintf("entity %q declared by %s already declared by %s", e.Name, e.Owner, e.ExistingOwner)
}

// MissingEntityError is returned when a lookup names an entity that has not
// been declared, or that was declared with another kind.
type MissingEntityError struct {
	Name string
	Kind Kind
	// Found is set when an entity with the name exists but has another kind.
	Found Kind
}

func (e *MissingEntityError) Error() string {
	if e.Found != KindUnknown {
		return fmt.Sprintf("entity %q is a %s, not a %s", e.Name, e.Found, e.Kind)
	}
	return fmt.Sprintf("%s %q is not declared", e.Kind, e.Name)
}

// DimensionError is returned when an index does not match an entity's
// declared dimensions.
type DimensionError struct {
	Entity string
	Dims   []string
	Index  Index
}

func (e *DimensionError) Error() string {
	return fmt.Sprintf("%s indexed by (%s) got %s", e.Entity, strings.Join(e.Dims, ","), e.Index)
}

// MissingValueError is returned when a parameter has no value and no default
// for an index.
type MissingValueError struct {
	Param string
	Index Index
}

func (e *MissingValueError) Error() string {
	return fmt.Sprintf("param %s has no value for %s and no default", e.Param, e.Index)
}

// IsMissingEntity returns true if err is or wraps a MissingEntityError.
func IsMissingEntity(err error) bool {
	var me *MissingEntityError
	return errors.As(err, &me)
}

// IsDuplicateEntity returns true if err is or wraps a DuplicateEntityError.
func IsDuplicateEntity(err error) bool {
	var de *DuplicateEntityError
	return errors.As(err, &de)
}

// DomainError is returned when a value falls outside an entity's domain.
type DomainError struct {
	Entity string
	Index  Index
	Value  float64
}

func (e *DomainError) Error() string {
	return fmt.Sprintf("%s%s: value %g outside domain", e.Entity, e.Index, e.Value)
}
