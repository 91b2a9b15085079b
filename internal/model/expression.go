package model

// Expression is an indexed family of derived linear expressions.
type Expression struct {
	header
	values map[string]LinExpr
	order  []Index
}

func newExpression(h header) *Expression {
	return &Expression{header: h, values: make(map[string]LinExpr)}
}

func (e *Expression) Kind() Kind { return KindExpression }

// Define sets the expression at an index, replacing any previous definition.
func (e *Expression) Define(expr LinExpr, idx ...string) error {
	ix := Index(idx)
	if err := e.checkIndex(ix); err != nil {
		return err
	}
	k := ix.Key()
	if _, ok := e.values[k]; !ok {
		e.order = append(e.order, ix.clone())
	}
	e.values[k] = expr
	return nil
}

// At returns the expression at an index and whether it is defined.
func (e *Expression) At(idx ...string) (LinExpr, bool) {
	v, ok := e.values[Index(idx).Key()]
	return v, ok
}

// Indexes returns the defined indexes in definition order.
func (e *Expression) Indexes() []Index {
	out := make([]Index, len(e.order))
	for i, ix := range e.order {
		out[i] = ix.clone()
	}
	return out
}
