package temporal

import (
	"fmt"
	"sort"
)

// Vintage identifies a unit of capacity committed to an asset in a period.
type Vintage struct {
	Asset  string
	Period string
}

// AssetPeriod is an (asset, period) pair.
type AssetPeriod struct {
	Asset  string
	Period string
}

// BuildOnceGroup lists the vintages of one asset relevant in one period.
// At most one of them may carry a non-zero build decision.
type BuildOnceGroup struct {
	Asset    string
	Period   string
	Vintages []string
}

// RelevantPeriods returns the periods in which a vintage is relevant, in
// calendar order.
//
// A period p is relevant iff start(p) < start(v) + lifetime and
// end(p) > start(v). The result is contiguous and begins at the vintage's own
// period. Lifetimes must be positive and the vintage must be a calendar period.
func RelevantPeriods(vintage string, lifetimeYears float64, cal *Calendar) ([]Period, error) {
	// Also rejects NaN.
	if !(lifetimeYears > 0) {
		return nil, &InvalidInputError{
			Period:  vintage,
			Message: fmt.Sprintf("lifetime must be positive, got %g", lifetimeYears),
		}
	}
	start, ok := cal.position(vintage)
	if !ok {
		return nil, &InvalidInputError{Period: vintage, Message: "vintage is not a period in the calendar"}
	}

	vintageStart := float64(cal.periods[start].StartYear)
	expiry := vintageStart + lifetimeYears

	// Earlier periods end at or before the vintage start because the
	// calendar is sorted and non-overlapping, so the scan starts at the
	// vintage and stops at the first period starting at or after expiry.
	var out []Period
	for _, p := range cal.periods[start:] {
		if float64(p.StartYear) >= expiry {
			break
		}
		if float64(p.EndYear) > vintageStart {
			out = append(out, p)
		}
	}
	return out, nil
}

// RelevanceIndex holds the forward (vintage to periods) and inverse
// (period to vintages) relevance mappings for a set of vintages.
type RelevanceIndex struct {
	cal      *Calendar
	vintages []Vintage
	forward  map[Vintage][]string
	inverse  map[string][]Vintage
	groups   map[AssetPeriod]*BuildOnceGroup
}

// NewRelevanceIndex resolves every vintage against the calendar.
//
// The inverse mapping and build-once groups are filled while walking the
// forward results, so construction is linear in the number of
// (vintage, period) relevance pairs.
func NewRelevanceIndex(cal *Calendar, vintages []Vintage, lifetime func(Vintage) float64) (*RelevanceIndex, error) {
	idx := &RelevanceIndex{
		cal:      cal,
		vintages: make([]Vintage, 0, len(vintages)),
		forward:  make(map[Vintage][]string, len(vintages)),
		inverse:  make(map[string][]Vintage),
		groups:   make(map[AssetPeriod]*BuildOnceGroup),
	}

	for _, v := range vintages {
		if _, seen := idx.forward[v]; seen {
			continue
		}
		periods, err := RelevantPeriods(v.Period, lifetime(v), cal)
		if err != nil {
			if ie, ok := err.(*InvalidInputError); ok {
				ie.Asset = v.Asset
			}
			return nil, err
		}

		ids := make([]string, len(periods))
		for i, p := range periods {
			ids[i] = p.ID
			idx.inverse[p.ID] = append(idx.inverse[p.ID], v)

			key := AssetPeriod{Asset: v.Asset, Period: p.ID}
			g, ok := idx.groups[key]
			if !ok {
				g = &BuildOnceGroup{Asset: v.Asset, Period: p.ID}
				idx.groups[key] = g
			}
			g.Vintages = append(g.Vintages, v.Period)
		}
		idx.forward[v] = ids
		idx.vintages = append(idx.vintages, v)
	}

	return idx, nil
}

// Vintages returns the indexed vintages in insertion order.
func (r *RelevanceIndex) Vintages() []Vintage {
	out := make([]Vintage, len(r.vintages))
	copy(out, r.vintages)
	return out
}

// PeriodsOf returns the relevant period IDs of a vintage in calendar order.
// Unknown vintages return an empty slice.
func (r *RelevanceIndex) PeriodsOf(v Vintage) []string {
	ids := r.forward[v]
	out := make([]string, len(ids))
	copy(out, ids)
	return out
}

// VintagesRelevantIn returns every vintage relevant in a period.
func (r *RelevanceIndex) VintagesRelevantIn(period string) []Vintage {
	vs := r.inverse[period]
	out := make([]Vintage, len(vs))
	copy(out, vs)
	return out
}

// AssetVintagesRelevantIn returns the vintage periods of one asset that are
// relevant in a period.
func (r *RelevanceIndex) AssetVintagesRelevantIn(asset, period string) []string {
	g, ok := r.groups[AssetPeriod{Asset: asset, Period: period}]
	if !ok {
		return []string{}
	}
	out := make([]string, len(g.Vintages))
	copy(out, g.Vintages)
	return out
}

// AssetPeriods returns every (asset, period) with at least one relevant
// vintage, ordered by asset then calendar position.
func (r *RelevanceIndex) AssetPeriods() []AssetPeriod {
	groups := r.BuildOnceGroups()
	out := make([]AssetPeriod, len(groups))
	for i, g := range groups {
		out[i] = AssetPeriod{Asset: g.Asset, Period: g.Period}
	}
	return out
}

// BuildOnceGroups returns one group per (asset, period) with at least one
// relevant vintage, ordered by asset then calendar position.
func (r *RelevanceIndex) BuildOnceGroups() []BuildOnceGroup {
	out := make([]BuildOnceGroup, 0, len(r.groups))
	for _, g := range r.groups {
		vs := make([]string, len(g.Vintages))
		copy(vs, g.Vintages)
		out = append(out, BuildOnceGroup{Asset: g.Asset, Period: g.Period, Vintages: vs})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Asset != out[j].Asset {
			return out[i].Asset < out[j].Asset
		}
		pi, _ := r.cal.position(out[i].Period)
		pj, _ := r.cal.position(out[j].Period)
		return pi < pj
	})
	return out
}

// Pairs returns the number of (vintage, period) relevance pairs.
func (r *RelevanceIndex) Pairs() int {
	n := 0
	for _, ids := range r.forward {
		n += len(ids)
	}
	return n
}
