package model

// Sense is the relation of a constraint row.
type Sense int

const (
	LessEqual Sense = iota
	GreaterEqual
	Equal
)

func (s Sense) String() string {
	switch s {
	case GreaterEqual:
		return ">="
	case Equal:
		return "=="
	default:
		return "<="
	}
}

// Row is one scalar constraint: Expr (Sense) RHS, with the expression's
// constant already moved to the right-hand side.
type Row struct {
	Constraint string
	Index      Index
	Expr       LinExpr
	Sense      Sense
	RHS        float64
}

// Constraint is an indexed family of constraint rows.
type Constraint struct {
	header
	m    *Model
	rows map[string]int
}

func newConstraint(h header, m *Model) *Constraint {
	return &Constraint{header: h, m: m, rows: make(map[string]int)}
}

func (c *Constraint) Kind() Kind { return KindConstraint }

// Add adds the row lhs (sense) rhs at an index. Adding an index twice
// replaces the earlier row.
func (c *Constraint) Add(lhs LinExpr, sense Sense, rhs LinExpr, idx ...string) error {
	ix := Index(idx)
	if err := c.checkIndex(ix); err != nil {
		return err
	}
	diff := lhs.Minus(rhs)
	row := Row{
		Constraint: c.name,
		Index:      ix.clone(),
		Expr:       Sum(diff, Const(-diff.Constant())),
		Sense:      sense,
		RHS:        -diff.Constant(),
	}
	k := ix.Key()
	if i, ok := c.rows[k]; ok {
		c.m.rows[i] = row
		return nil
	}
	c.rows[k] = len(c.m.rows)
	c.m.rows = append(c.m.rows, row)
	return nil
}

// Row returns the row at an index.
func (c *Constraint) Row(idx ...string) (Row, bool) {
	i, ok := c.rows[Index(idx).Key()]
	if !ok {
		return Row{}, false
	}
	return c.m.rows[i], true
}

// Len returns the number of rows.
func (c *Constraint) Len() int {
	return len(c.rows)
}
