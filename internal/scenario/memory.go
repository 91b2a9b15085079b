package scenario

import (
	"context"
	"sync"

	"github.com/souissim/gridpath/internal/tabfile"
)

// Memory is an in-memory InputSource and InputSink. It is safe for
// concurrent use.
type Memory struct {
	mu     sync.RWMutex
	tables map[Key]map[string]*tabfile.Table
}

// NewMemory creates an empty Memory.
func NewMemory() *Memory {
	return &Memory{tables: make(map[Key]map[string]*tabfile.Table)}
}

// Put stores a table for a key.
func (m *Memory) Put(key Key, t *tabfile.Table) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.tables[key] == nil {
		m.tables[key] = make(map[string]*tabfile.Table)
	}
	m.tables[key][t.Name] = clone(t)
}

// Table implements InputSource.
func (m *Memory) Table(_ context.Context, key Key, name string) (*tabfile.Table, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	t, ok := m.tables[key][name]
	if !ok {
		return nil, &MissingInputError{Key: key, Table: name}
	}
	return clone(t), nil
}

// WriteTable implements InputSink.
func (m *Memory) WriteTable(_ context.Context, key Key, t *tabfile.Table) error {
	m.Put(key, t)
	return nil
}

func clone(t *tabfile.Table) *tabfile.Table {
	out := tabfile.New(t.Name, t.Columns...)
	for _, r := range t.Rows {
		out.Rows = append(out.Rows, append([]string(nil), r...))
	}
	return out
}
