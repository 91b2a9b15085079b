// Package scenario addresses scenario variants and their staged files.
//
// A Key selects one variant in the weather × hydro × availability ×
// subproblem × stage space. Every input file and persisted row of a variant
// is scoped by its key, and staged files live under the key's directory:
//
//	<root>/<weather>/<hydro>/<availability>/<subproblem>/<stage>/inputs/<table>.tab
//
// Empty key components are skipped, so a single-variant scenario stages its
// inputs directly under <root>/inputs.
package scenario

import (
	"path/filepath"
	"strings"
)

// Key identifies one scenario variant. Components default to "".
type Key struct {
	Weather      string `json:"weather,omitempty" yaml:"weather,omitempty"`
	Hydro        string `json:"hydro,omitempty" yaml:"hydro,omitempty"`
	Availability string `json:"availability,omitempty" yaml:"availability,omitempty"`
	Subproblem   string `json:"subproblem,omitempty" yaml:"subproblem,omitempty"`
	Stage        string `json:"stage,omitempty" yaml:"stage,omitempty"`
}

// Components returns the key components in directory order.
func (k Key) Components() []string {
	return []string{k.Weather, k.Hydro, k.Availability, k.Subproblem, k.Stage}
}

// Dir returns the key's relative directory. The default key is ".".
func (k Key) Dir() string {
	var parts []string
	for _, c := range k.Components() {
		if c != "" {
			parts = append(parts, c)
		}
	}
	if len(parts) == 0 {
		return "."
	}
	return filepath.Join(parts...)
}

// IsDefault reports whether every component is empty.
func (k Key) IsDefault() bool {
	return k == Key{}
}

// String renders the key for logs, e.g. "weather=1/subproblem=2".
func (k Key) String() string {
	names := []string{"weather", "hydro", "availability", "subproblem", "stage"}
	var parts []string
	for i, c := range k.Components() {
		if c != "" {
			parts = append(parts, names[i]+"="+c)
		}
	}
	if len(parts) == 0 {
		return "default"
	}
	return strings.Join(parts, "/")
}

// Less orders keys component-wise.
func (k Key) Less(o Key) bool {
	a, b := k.Components(), o.Components()
	for i := range a {
		if a[i] != b[i] {
			return a[i] < b[i]
		}
	}
	return false
}

// Structure lists the iterations of every key dimension. An empty dimension
// contributes the single default component "".
type Structure struct {
	Weather      []string `json:"weather,omitempty" yaml:"weather,omitempty"`
	Hydro        []string `json:"hydro,omitempty" yaml:"hydro,omitempty"`
	Availability []string `json:"availability,omitempty" yaml:"availability,omitempty"`
	Subproblems  []string `json:"subproblems,omitempty" yaml:"subproblems,omitempty"`
	Stages       []string `json:"stages,omitempty" yaml:"stages,omitempty"`
}

// Keys enumerates the cartesian product of the structure in dimension order.
func (s Structure) Keys() []Key {
	keys := []Key{}
	for _, w := range orDefault(s.Weather) {
		for _, h := range orDefault(s.Hydro) {
			for _, a := range orDefault(s.Availability) {
				for _, sp := range orDefault(s.Subproblems) {
					for _, st := range orDefault(s.Stages) {
						keys = append(keys, Key{
							Weather:      w,
							Hydro:        h,
							Availability: a,
							Subproblem:   sp,
							Stage:        st,
						})
					}
				}
			}
		}
	}
	return keys
}

// Len returns the number of keys the structure enumerates.
func (s Structure) Len() int {
	n := 1
	for _, dim := range [][]string{s.Weather, s.Hydro, s.Availability, s.Subproblems, s.Stages} {
		n *= len(orDefault(dim))
	}
	return n
}

func orDefault(values []string) []string {
	if len(values) == 0 {
		return []string{""}
	}
	return values
}
