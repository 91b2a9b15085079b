// Package harness runs conformance cases against the built-in modules.
//
// A case stages a scenario, composes a module set over it, solves every
// scenario key, and checks the persisted outcome.
//
// # Case Format
//
// Cases are YAML files:
//
//	name: carbon_cap_soft
//	description: "A soft carbon cap pays for a new CCGT"
//	inputs: ../scenarios/basic
//	modules: [temporal, objective, load_zones, project, gen_spec, carbon_cap]
//	structure:
//	  weather: ["1", "2"]
//	solver:
//	  backend: gonum
//	  timeout: 30s
//	tolerance: 1e-6
//	assertions:
//	  - type: status
//	    status: succeeded
//	  - type: objective
//	    value: 53200
//	  - type: result_value
//	    table: project_period
//	    where: { project: coal, period: "2030" }
//	    column: gen_spec_energy_mwh
//	    value: 4000
//
// inputs is a staged scenario directory, resolved relative to the case
// file. modules defaults to every built-in module; structure defaults to the
// single default key.
//
// # Assertion Types
//
//   - status: the key's run status (succeeded, failed) and, optionally, its
//     solver status
//   - objective: the key's objective value, within tolerance
//   - result_value: one persisted result cell, located by its index columns
//   - row_count: the number of persisted rows of a result table
//   - validation_issue: a recorded validation issue of a module
//   - run_error: the run aborted with a composition error code
//
// Assertions apply to every key unless they name one with key.
//
// # Determinism
//
// Each case runs on a fresh in-memory store with fixed run ids, and the
// golden rendering rounds values to six decimals, so repeated runs render
// byte-identical snapshots.
package harness
