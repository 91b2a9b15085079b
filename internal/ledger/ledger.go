// Package ledger implements the dynamic aggregation ledgers that let modules
// extend system-level sums without knowing about each other.
//
// A consumer module registers a list with its index dimensions during
// declaration. Contributor modules append entity names to the list. After
// every module has contributed, the consumer folds the list: each named
// expression or variable is resolved in the model and summed per index.
package ledger

import (
	"fmt"
	"sort"
	"strings"
)

// List names a ledger. The set of lists is fixed.
type List string

const (
	// CostComponents collects per-period cost expressions for the objective.
	CostComponents List = "cost_components"
	// EmissionComponents collects per-(zone, period) carbon emissions.
	EmissionComponents List = "carbon_cap_emission_components"
	// LoadBalanceProduction collects per-(zone, period) energy injections.
	LoadBalanceProduction List = "load_balance_production_components"
	// LoadBalanceConsumption collects per-(zone, period) energy withdrawals.
	LoadBalanceConsumption List = "load_balance_consumption_components"
	// OperationalPeriodSets collects (project, period) sets of operational capacity.
	OperationalPeriodSets List = "capacity_type_operational_period_sets"
	// FinancialPeriodSets collects (project, period) sets incurring capital cost.
	FinancialPeriodSets List = "capacity_type_financial_period_sets"
)

// Known returns every list name in a stable order.
func Known() []List {
	return []List{
		CostComponents,
		EmissionComponents,
		LoadBalanceProduction,
		LoadBalanceConsumption,
		OperationalPeriodSets,
		FinancialPeriodSets,
	}
}

func isKnown(name List) bool {
	for _, l := range Known() {
		if l == name {
			return true
		}
	}
	return false
}

type entries struct {
	owner   string
	dims    []string
	names   []string
	present map[string]bool
}

// Ledger holds the registered lists of one scenario instance.
// A Ledger is not safe for concurrent use.
type Ledger struct {
	lists map[List]*entries
	folds map[List]*Folded
}

// New creates an empty ledger.
func New() *Ledger {
	return &Ledger{lists: make(map[List]*entries), folds: make(map[List]*Folded)}
}

// Register creates a list with the given index dimensions on behalf of a
// consumer module. Registering a list twice fails unless the same owner
// registers the same dimensions again.
func (l *Ledger) Register(owner string, name List, dims ...string) error {
	if !isKnown(name) {
		return &UnknownListError{List: name, Op: "register"}
	}
	if existing, ok := l.lists[name]; ok {
		if existing.owner == owner && strings.Join(existing.dims, ",") == strings.Join(dims, ",") {
			return nil
		}
		return &DuplicateListError{List: name, Owner: owner, ExistingOwner: existing.owner}
	}
	d := make([]string, len(dims))
	copy(d, dims)
	l.lists[name] = &entries{owner: owner, dims: d, present: make(map[string]bool)}
	return nil
}

// Registered reports whether a list exists.
func (l *Ledger) Registered(name List) bool {
	_, ok := l.lists[name]
	return ok
}

// Append adds an entity name to a list. Appending a name already present is
// a no-op. A folded list is closed.
func (l *Ledger) Append(name List, entity string) error {
	e, ok := l.lists[name]
	if !ok {
		return &UnknownListError{List: name, Entity: entity, Op: "append"}
	}
	if _, done := l.folds[name]; done {
		return &FoldError{List: name, Entity: entity, Reason: "list already folded"}
	}
	if e.present[entity] {
		return nil
	}
	e.present[entity] = true
	e.names = append(e.names, entity)
	return nil
}

// Entries returns the entity names of a list in append order.
func (l *Ledger) Entries(name List) ([]string, error) {
	e, ok := l.lists[name]
	if !ok {
		return nil, &UnknownListError{List: name, Op: "read"}
	}
	out := make([]string, len(e.names))
	copy(out, e.names)
	return out, nil
}

// Dims returns the index dimensions of a list.
func (l *Ledger) Dims(name List) ([]string, error) {
	e, ok := l.lists[name]
	if !ok {
		return nil, &UnknownListError{List: name, Op: "read"}
	}
	out := make([]string, len(e.dims))
	copy(out, e.dims)
	return out, nil
}

// Snapshot returns every registered list with its sorted entries.
func (l *Ledger) Snapshot() map[List][]string {
	out := make(map[List][]string, len(l.lists))
	for name, e := range l.lists {
		names := make([]string, len(e.names))
		copy(names, e.names)
		sort.Strings(names)
		out[name] = names
	}
	return out
}

// UnknownListError is returned for operations on a list that was never
// registered. It indicates a programming error in a module.
type UnknownListError struct {
	List   List
	Entity string
	Op     string
}

func (e *UnknownListError) Error() string {
	if e.Entity != "" {
		return fmt.Sprintf("ledger %s: %s %q: list not registered", e.Op, e.List, e.Entity)
	}
	return fmt.Sprintf("ledger %s: %s: list not registered", e.Op, e.List)
}

// DuplicateListError is returned when two consumers register the same list.
type DuplicateListError struct {
	List          List
	Owner         string
	ExistingOwner string
}

func (e *DuplicateListError) Error() string {
	return fmt.Sprintf("ledger list %s registered by %s already registered by %s", e.List, e.Owner, e.ExistingOwner)
}
