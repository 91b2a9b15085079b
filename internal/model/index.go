package model

import "strings"

// Index is one tuple of an indexed entity, e.g. ["battery", "2030"].
// A scalar entity uses the empty index.
type Index []string

// keySep cannot appear in identifiers read from tab-delimited inputs.
const keySep = "\x1f"

// Idx builds an Index from its components.
func Idx(parts ...string) Index {
	return Index(parts)
}

// Key returns a map key for the index.
func (ix Index) Key() string {
	return strings.Join(ix, keySep)
}

// String renders the index for messages, e.g. "[battery,2030]".
func (ix Index) String() string {
	return "[" + strings.Join(ix, ",") + "]"
}

// Equal reports whether two indexes have the same components.
func (ix Index) Equal(other Index) bool {
	if len(ix) != len(other) {
		return false
	}
	for i := range ix {
		if ix[i] != other[i] {
			return false
		}
	}
	return true
}

// Less orders indexes component-wise.
func (ix Index) Less(other Index) bool {
	for i := 0; i < len(ix) && i < len(other); i++ {
		if ix[i] != other[i] {
			return ix[i] < other[i]
		}
	}
	return len(ix) < len(other)
}

// clone copies the index so callers cannot mutate stored tuples.
func (ix Index) clone() Index {
	out := make(Index, len(ix))
	copy(out, ix)
	return out
}

func sameDims(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
