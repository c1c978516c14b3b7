package dashboard

import "screentime/internal/core"

// TrendParams selects how many leading store records the trend chart shows.
type TrendParams struct {
	Days int
}

// Apply clamps Days to the store length and takes that many records.
// A zero Days picks DefaultTrendDays.
func (p TrendParams) Apply(records []core.Record) []core.Record {
	days := p.Days
	if days == 0 {
		days = DefaultTrendDays(len(records))
	}
	return TakeFirstN(records, ClampN(days, len(records)))
}

// ActivityParams are the document filters chosen on the visuals page.
// Selected reports whether the label picker was submitted at all; when it was
// not, every label is allowed.
type ActivityParams struct {
	MinHours float64
	Labels   []string
	Selected bool
}

// NothingSelected reports an explicit empty label selection.
func (p ActivityParams) NothingSelected() bool {
	return p.Selected && len(p.Labels) == 0
}

// Apply filters points by minimum hours and then by the selected labels.
func (p ActivityParams) Apply(points []core.ActivityPoint) []core.ActivityPoint {
	out := FilterByMinHours(points, p.MinHours)
	if p.Selected {
		out = FilterByLabelSet(out, LabelSet(p.Labels))
	}
	return out
}
