package ledger

import (
	"fmt"
	"sort"
	"strings"

	"github.com/souissim/gridpath/internal/model"
)

// Folded is the per-index sum of every entity in a list.
type Folded struct {
	List  List
	Dims  []string
	sums  map[string]model.LinExpr
	index []model.Index
}

// At returns the folded expression at an index. Indexes no entity
// contributed to fold to the zero expression.
func (f *Folded) At(idx ...string) model.LinExpr {
	return f.sums[model.Index(idx).Key()]
}

// Indexes returns every index some entity contributed to, sorted.
func (f *Folded) Indexes() []model.Index {
	out := make([]model.Index, len(f.index))
	copy(out, f.index)
	return out
}

// Total sums the folded expression over all indexes.
func (f *Folded) Total() model.LinExpr {
	parts := make([]model.LinExpr, 0, len(f.index))
	for _, ix := range f.index {
		parts = append(parts, f.sums[ix.Key()])
	}
	return model.Sum(parts...)
}

// Equal reports whether two folds have identical expressions at every index.
func (f *Folded) Equal(o *Folded) bool {
	if len(f.sums) != len(o.sums) {
		return false
	}
	for k, e := range f.sums {
		oe, ok := o.sums[k]
		if !ok || !e.Equal(oe) {
			return false
		}
	}
	return true
}

// Fold resolves every entity name in a list and sums them per index.
//
// Entries must be expressions or variables whose dimensions equal the list
// dimensions. Entries are summed in name order so the result does not depend
// on the order modules appended them. An empty list folds to zero everywhere.
//
// A list is folded once; later readers use Folded.
func (l *Ledger) Fold(m *model.Model, name List) (*Folded, error) {
	e, ok := l.lists[name]
	if !ok {
		return nil, &UnknownListError{List: name, Op: "fold"}
	}
	if _, done := l.folds[name]; done {
		return nil, &FoldError{List: name, Reason: "list already folded"}
	}

	names := make([]string, len(e.names))
	copy(names, e.names)
	sort.Strings(names)

	parts := make(map[string][]model.LinExpr)
	indexes := make(map[string]model.Index)
	add := func(ix model.Index, expr model.LinExpr) {
		k := ix.Key()
		if _, seen := indexes[k]; !seen {
			indexes[k] = ix
		}
		parts[k] = append(parts[k], expr)
	}

	for _, entity := range names {
		ent, err := m.Lookup(entity)
		if err != nil {
			return nil, &FoldError{List: name, Entity: entity, Reason: "unresolved entity", Err: err}
		}
		if !sameDims(ent.Dims(), e.dims) {
			return nil, &FoldError{
				List:   name,
				Entity: entity,
				Reason: fmt.Sprintf("indexed by (%s), list expects (%s)", strings.Join(ent.Dims(), ","), strings.Join(e.dims, ",")),
			}
		}
		switch x := ent.(type) {
		case *model.Expression:
			for _, ix := range x.Indexes() {
				expr, _ := x.At(ix...)
				add(ix, expr)
			}
		case *model.Var:
			for _, ix := range x.Indexes() {
				expr, _ := x.Expr(ix)
				add(ix, expr)
			}
		default:
			return nil, &FoldError{List: name, Entity: entity, Reason: fmt.Sprintf("cannot fold a %s", ent.Kind())}
		}
	}

	f := &Folded{
		List: name,
		Dims: append([]string(nil), e.dims...),
		sums: make(map[string]model.LinExpr, len(parts)),
	}
	for k, exprs := range parts {
		f.sums[k] = model.Sum(exprs...)
		f.index = append(f.index, indexes[k])
	}
	sort.Slice(f.index, func(i, j int) bool { return f.index[i].Less(f.index[j]) })
	l.folds[name] = f
	return f, nil
}

// Folded returns the result of an earlier Fold of the list.
func (l *Ledger) Folded(name List) (*Folded, error) {
	if _, ok := l.lists[name]; !ok {
		return nil, &UnknownListError{List: name, Op: "read fold"}
	}
	f, ok := l.folds[name]
	if !ok {
		return nil, &FoldError{List: name, Reason: "list not folded yet"}
	}
	return f, nil
}

// UnionSets resolves every entry of a list as a set and returns the sorted
// union of their members.
func (l *Ledger) UnionSets(m *model.Model, name List) ([]model.Index, error) {
	e, ok := l.lists[name]
	if !ok {
		return nil, &UnknownListError{List: name, Op: "union"}
	}

	seen := make(map[string]bool)
	out := []model.Index{}
	for _, entity := range e.names {
		s, err := m.Set(entity)
		if err != nil {
			return nil, &FoldError{List: name, Entity: entity, Reason: "unresolved set", Err: err}
		}
		if !sameDims(s.Dims(), e.dims) {
			return nil, &FoldError{
				List:   name,
				Entity: entity,
				Reason: fmt.Sprintf("indexed by (%s), list expects (%s)", strings.Join(s.Dims(), ","), strings.Join(e.dims, ",")),
			}
		}
		for _, ix := range s.Members() {
			if !seen[ix.Key()] {
				seen[ix.Key()] = true
				out = append(out, ix)
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Less(out[j]) })
	return out, nil
}

// FoldError is returned when a list entry cannot be folded. Like
// UnknownListError it indicates a programming error in a module.
type FoldError struct {
	List   List
	Entity string
	Reason string
	Err    error
}

func (e *FoldError) Error() string {
	if e.Entity == "" {
		return fmt.Sprintf("fold %s: %s", e.List, e.Reason)
	}
	return fmt.Sprintf("fold %s: entry %q: %s", e.List, e.Entity, e.Reason)
}

func (e *FoldError) Unwrap() error {
	return e.Err
}

func sameDims(a, b []string) bool {
	return strings.Join(a, "\x1f") == strings.Join(b, "\x1f") && len(a) == len(b)
}
