package model

// Set is an ordered collection of unique index tuples.
type Set struct {
	header
	members []Index
	pos     map[string]int
}

func newSet(h header) *Set {
	return &Set{header: h, pos: make(map[string]int)}
}

func (s *Set) Kind() Kind { return KindSet }

// Add inserts a member. Adding an existing member is a no-op.
func (s *Set) Add(idx ...string) error {
	ix := Index(idx)
	if err := s.checkIndex(ix); err != nil {
		return err
	}
	k := ix.Key()
	if _, ok := s.pos[k]; ok {
		return nil
	}
	s.pos[k] = len(s.members)
	s.members = append(s.members, ix.clone())
	return nil
}

// Contains reports whether the tuple is a member.
func (s *Set) Contains(idx ...string) bool {
	_, ok := s.pos[Index(idx).Key()]
	return ok
}

// Members returns the members in insertion order.
func (s *Set) Members() []Index {
	out := make([]Index, len(s.members))
	for i, m := range s.members {
		out[i] = m.clone()
	}
	return out
}

// Values returns the first component of each member. It is a convenience
// for one-dimensional sets.
func (s *Set) Values() []string {
	out := make([]string, 0, len(s.members))
	for _, m := range s.members {
		if len(m) > 0 {
			out = append(out, m[0])
		}
	}
	return out
}

// Filter returns members whose component at dim equals value.
func (s *Set) Filter(dim int, value string) []Index {
	out := []Index{}
	for _, m := range s.members {
		if dim < len(m) && m[dim] == value {
			out = append(out, m.clone())
		}
	}
	return out
}

// Len returns the number of members.
func (s *Set) Len() int {
	return len(s.members)
}
