package model

import "math"

// Param is an indexed numeric input with an optional default.
type Param struct {
	header
	values     map[string]float64
	def        float64
	hasDefault bool
	min        float64
}

func newParam(h header) *Param {
	return &Param{header: h, values: make(map[string]float64), min: math.Inf(-1)}
}

func (p *Param) Kind() Kind { return KindParam }

// WithDefault sets the value returned for indexes without data.
func (p *Param) WithDefault(v float64) *Param {
	p.def = v
	p.hasDefault = true
	return p
}

// NonNegative restricts values to be >= 0.
func (p *Param) NonNegative() *Param {
	p.min = 0
	return p
}

// Set stores a value for an index.
func (p *Param) Set(v float64, idx ...string) error {
	ix := Index(idx)
	if err := p.checkIndex(ix); err != nil {
		return err
	}
	if v < p.min || math.IsNaN(v) {
		return &DomainError{Entity: p.name, Index: ix.clone(), Value: v}
	}
	p.values[ix.Key()] = v
	return nil
}

// Get returns the value for an index, falling back to the default.
func (p *Param) Get(idx ...string) (float64, error) {
	ix := Index(idx)
	if err := p.checkIndex(ix); err != nil {
		return 0, err
	}
	if v, ok := p.values[ix.Key()]; ok {
		return v, nil
	}
	if p.hasDefault {
		return p.def, nil
	}
	return 0, &MissingValueError{Param: p.name, Index: ix.clone()}
}

// Value returns the value for an index, or the default, or zero.
func (p *Param) Value(idx ...string) float64 {
	v, err := p.Get(idx...)
	if err != nil {
		return 0
	}
	return v
}

// Has reports whether an explicit value was loaded for the index.
func (p *Param) Has(idx ...string) bool {
	_, ok := p.values[Index(idx).Key()]
	return ok
}

// Len returns the number of explicit values.
func (p *Param) Len() int {
	return len(p.values)
}
