package compose

import (
	"context"
	"fmt"
	"sort"

	"github.com/souissim/gridpath/internal/module"
	"github.com/souissim/gridpath/internal/scenario"
)

// Transferred lists the tables copied for one key.
type Transferred struct {
	Key    scenario.Key `json:"key"`
	Tables []string     `json:"tables"`
}

// Transfer copies the inputs of the named modules from src to sink for
// every key. Each module reads its own tables and writes them in its
// column order, so staging from the database and importing staged files
// are the same operation in opposite directions. Modules without both
// InputReader and InputWriter are skipped.
func Transfer(ctx context.Context, reg *Registry, names []string, keys []scenario.Key, src scenario.InputSource, sink scenario.InputSink) ([]Transferred, error) {
	mods, err := reg.Resolve(names)
	if err != nil {
		return nil, err
	}

	out := make([]Transferred, 0, len(keys))
	for _, key := range keys {
		if err := ctx.Err(); err != nil {
			return out, err
		}
		written := make(map[string]bool)
		for _, m := range mods {
			r, rok := m.(module.InputReader)
			w, wok := m.(module.InputWriter)
			if !rok || !wok {
				continue
			}
			tables, err := r.ReadInputs(ctx, key, src)
			if err != nil {
				return out, fmt.Errorf("%s: %s: read inputs: %w", key, m.Name(), err)
			}
			if err := w.WriteInputs(ctx, key, tables, sink); err != nil {
				return out, fmt.Errorf("%s: %s: write inputs: %w", key, m.Name(), err)
			}
			for name := range tables {
				written[name] = true
			}
		}
		names := make([]string, 0, len(written))
		for n := range written {
			names = append(names, n)
		}
		sort.Strings(names)
		out = append(out, Transferred{Key: key, Tables: names})
	}
	return out, nil
}
