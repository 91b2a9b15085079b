package compose

import (
	"context"
	"slices"
	"sort"

	"github.com/souissim/gridpath/internal/ledger"
	"github.com/souissim/gridpath/internal/model"
	"github.com/souissim/gridpath/internal/module"
	"github.com/souissim/gridpath/internal/scenario"
)

// PlanEntity describes one declared entity.
type PlanEntity struct {
	Name  string   `json:"name"`
	Kind  string   `json:"kind"`
	Owner string   `json:"owner"`
	Dims  []string `json:"dims,omitempty"`
}

// Plan is the static shape of a composed module set: what every module
// declares and registers, independent of input data.
type Plan struct {
	Modules      []string                 `json:"modules"`
	Capabilities map[string][]string      `json:"capabilities"`
	Entities     []PlanEntity             `json:"entities"`
	Lists        map[ledger.List][]string `json:"lists"`
}

// Plan runs the declare phase on a probe instance, twice, and reports what
// was declared. It fails with a CompositionError when a module references an
// entity no earlier module declared, when two modules claim one name, or
// when a second declare changes the model.
func (c *Composer) Plan(ctx context.Context) (*Plan, error) {
	ctx, span := c.tracer.Start(ctx, "compose.Plan")
	defer span.End()

	mods := c.instantiate()
	inst := module.NewInstance(c.cfg.ScenarioID, scenario.Key{}, nil)

	if err := declareAll(ctx, inst, mods); err != nil {
		return nil, err
	}
	before := snapshot(inst)
	if err := declareAll(ctx, inst, mods); err != nil {
		return nil, err
	}
	if after := snapshot(inst); !before.equal(after) {
		return nil, &CompositionError{Code: ErrCodeNotIdempotent, Module: after.changedBy(before)}
	}

	p := &Plan{
		Modules:      c.Order(),
		Capabilities: make(map[string][]string, len(mods)),
		Entities:     []PlanEntity{},
		Lists:        inst.Ledger.Snapshot(),
	}
	for _, m := range mods {
		p.Capabilities[m.Name()] = module.Capabilities(m)
	}
	for _, name := range inst.Model.EntityNames() {
		e, _ := inst.Model.Lookup(name)
		p.Entities = append(p.Entities, PlanEntity{
			Name:  e.Name(),
			Kind:  e.Kind().String(),
			Owner: e.Owner(),
			Dims:  e.Dims(),
		})
	}
	c.cfg.Logger.Debug("plan resolved", "modules", len(p.Modules), "entities", len(p.Entities))
	return p, nil
}

// Validate runs declare and validate for each key without loading or
// solving, and returns the issues per key. Issues are persisted when a store
// is configured.
func (c *Composer) Validate(ctx context.Context, keys []scenario.Key) (map[scenario.Key][]module.ValidationIssue, error) {
	if _, err := c.Plan(ctx); err != nil {
		return nil, err
	}
	out := make(map[scenario.Key][]module.ValidationIssue, len(keys))
	for _, key := range keys {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		log := c.cfg.Logger.With("scenario_id", c.cfg.ScenarioID, "key", key.String())
		inst := module.NewInstance(c.cfg.ScenarioID, key, log)
		mods := c.instantiate()
		if err := declareAll(ctx, inst, mods); err != nil {
			return nil, err
		}
		out[key] = c.validate(ctx, inst, mods)
	}
	return out, nil
}

func declareAll(ctx context.Context, inst *module.Instance, mods []module.Module) error {
	for _, m := range mods {
		if err := ctx.Err(); err != nil {
			return err
		}
		d, ok := m.(module.Declarer)
		if !ok {
			continue
		}
		if err := d.Declare(ctx, inst); err != nil {
			err = declareError(m, err)
			if !IsCompositionError(err) {
				err = &CompositionError{Code: ErrCodeDeclare, Module: m.Name(), Err: err}
			}
			return err
		}
	}
	return nil
}

// declared is a comparable view of what declare produced.
type declared struct {
	stats  model.Stats
	owners map[string]string
	lists  map[ledger.List][]string
}

func snapshot(inst *module.Instance) declared {
	d := declared{
		stats:  inst.Model.Stats(),
		owners: make(map[string]string),
		lists:  inst.Ledger.Snapshot(),
	}
	for _, e := range inst.Model.Entities() {
		d.owners[e.Name()] = e.Owner()
	}
	return d
}

func (d declared) equal(o declared) bool {
	if d.stats.Entities != o.stats.Entities || d.stats.Columns != o.stats.Columns || d.stats.Rows != o.stats.Rows {
		return false
	}
	if len(d.owners) != len(o.owners) || len(d.lists) != len(o.lists) {
		return false
	}
	for name, owner := range d.owners {
		if o.owners[name] != owner {
			return false
		}
	}
	for list, names := range d.lists {
		if !slices.Equal(names, o.lists[list]) {
			return false
		}
	}
	return true
}

// changedBy names a module that added something in d but not in before,
// or "" if none can be attributed.
func (d declared) changedBy(before declared) string {
	var owners []string
	for name, owner := range d.owners {
		if _, ok := before.owners[name]; !ok {
			owners = append(owners, owner)
		}
	}
	sort.Strings(owners)
	if len(owners) > 0 {
		return owners[0]
	}
	return ""
}
