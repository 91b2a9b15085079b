package temporal

import (
	"fmt"
	"sort"
)

// Period is an indivisible planning interval.
//
// StartYear is inclusive and EndYear exclusive. DiscountFactor and
// YearsRepresented weight the period's costs in the objective.
type Period struct {
	ID               string
	StartYear        int
	EndYear          int
	DiscountFactor   float64
	YearsRepresented float64
}

// Span returns the number of calendar years the period covers.
func (p Period) Span() int {
	return p.EndYear - p.StartYear
}

// Calendar is an ordered, validated set of periods.
type Calendar struct {
	periods []Period
	byID    map[string]int
}

// NewCalendar validates the periods and returns them ordered by start year.
//
// Period IDs must be unique, non-empty, and every period must end after it
// starts. Periods may not overlap.
func NewCalendar(periods []Period) (*Calendar, error) {
	if len(periods) == 0 {
		return nil, &InvalidInputError{Message: "period calendar is empty"}
	}

	sorted := make([]Period, len(periods))
	copy(sorted, periods)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].StartYear < sorted[j].StartYear
	})

	c := &Calendar{
		periods: sorted,
		byID:    make(map[string]int, len(sorted)),
	}
	for i, p := range sorted {
		if p.ID == "" {
			return nil, &InvalidInputError{Message: fmt.Sprintf("period starting %d has no id", p.StartYear)}
		}
		if _, dup := c.byID[p.ID]; dup {
			return nil, &InvalidInputError{Period: p.ID, Message: "duplicate period id"}
		}
		if p.EndYear <= p.StartYear {
			return nil, &InvalidInputError{
				Period:  p.ID,
				Message: fmt.Sprintf("end year %d must be after start year %d", p.EndYear, p.StartYear),
			}
		}
		if i > 0 && sorted[i-1].EndYear > p.StartYear {
			return nil, &InvalidInputError{
				Period:  p.ID,
				Message: fmt.Sprintf("overlaps period %s", sorted[i-1].ID),
			}
		}
		c.byID[p.ID] = i
	}
	return c, nil
}

// Periods returns the periods in calendar order.
func (c *Calendar) Periods() []Period {
	out := make([]Period, len(c.periods))
	copy(out, c.periods)
	return out
}

// Period looks up a period by ID.
func (c *Calendar) Period(id string) (Period, bool) {
	i, ok := c.byID[id]
	if !ok {
		return Period{}, false
	}
	return c.periods[i], true
}

// IDs returns the period IDs in calendar order.
func (c *Calendar) IDs() []string {
	ids := make([]string, len(c.periods))
	for i, p := range c.periods {
		ids[i] = p.ID
	}
	return ids
}

// Len returns the number of periods.
func (c *Calendar) Len() int {
	return len(c.periods)
}

// position returns the calendar index of a period ID.
func (c *Calendar) position(id string) (int, bool) {
	i, ok := c.byID[id]
	return i, ok
}
