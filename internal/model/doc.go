// Package model is the entity declaration layer for optimization models.
//
// A Model holds named, indexed entities: sets, parameters, decision
// variables, derived expressions, and constraints. Entities are declared
// through an owner-scoped Scope so collisions can be attributed to the
// module that caused them:
//
//	s := m.Scope("gen_new_bin")
//	build, err := s.Var("GenNewBin_Build", model.Binary, "project", "period")
//
// Entity names are unique within a model. Declaring a name owned by another
// module fails with a DuplicateEntityError; re-declaring the same entity from
// the same owner returns the existing one, so declaration is idempotent.
//
// Linear expressions (LinExpr) reference variable columns by index and are
// normalized so that sums built in any order compare equal.
package model
