// Package store provides SQLite-backed persistence for scenario inputs,
// results, run status, and validation issues.
//
// Every row is scoped by (scenario_id, weather, hydro, availability,
// subproblem, stage). The store exposes the three primitives the composer
// relies on:
//   - GetRows: read result rows for a scope and table
//   - DeleteRows: delete every result of a scope
//   - BulkInsert: insert one merged result table for a scope
//
// ReplaceResults combines delete and insert in a single transaction, so a
// rerun of the same scenario replaces its results and a failure while
// writing leaves the previous results intact.
//
// # Write ordering
//
// Writes for one scope are serialized with a per-scope lock. Writes for
// different scopes may interleave. All reads are ordered explicitly
// (ORDER BY ... COLLATE BINARY) so results are deterministic.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
package store
