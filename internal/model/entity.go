package model

// Kind classifies a declared entity.
type Kind int

const (
	KindUnknown Kind = iota
	KindSet
	KindParam
	KindVar
	KindExpression
	KindConstraint
)

func (k Kind) String() string {
	switch k {
	case KindSet:
		return "set"
	case KindParam:
		return "param"
	case KindVar:
		return "var"
	case KindExpression:
		return "expression"
	case KindConstraint:
		return "constraint"
	default:
		return "entity"
	}
}

// Entity is implemented by every declared model component.
type Entity interface {
	Name() string
	Kind() Kind
	// Dims names the index dimensions, e.g. ["project", "period"].
	Dims() []string
	// Owner is the module that declared the entity.
	Owner() string
}

// header carries the identity fields shared by all entities.
type header struct {
	name  string
	owner string
	dims  []string
}

func (h *header) Name() string  { return h.name }
func (h *header) Owner() string { return h.owner }

func (h *header) Dims() []string {
	out := make([]string, len(h.dims))
	copy(out, h.dims)
	return out
}

func (h *header) checkIndex(idx Index) error {
	if len(idx) != len(h.dims) {
		return &DimensionError{Entity: h.name, Dims: h.Dims(), Index: idx}
	}
	return nil
}
