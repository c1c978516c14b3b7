// Package dashboard holds the pure filter and aggregate functions behind the
// visuals page. Nothing here does I/O or mutates its inputs; every function
// returns a fresh slice.
package dashboard

import "screentime/internal/core"

// DefaultTrendWindow is the largest number of days the trend chart shows by default.
const DefaultTrendWindow = 7

// TakeFirstN returns the first min(n, len(records)) records in order.
// A negative n yields an empty result.
func TakeFirstN(records []core.Record, n int) []core.Record {
	if n < 0 {
		n = 0
	}
	if n > len(records) {
		n = len(records)
	}
	out := make([]core.Record, n)
	copy(out, records[:n])
	return out
}

// FilterByMinValue keeps records whose value is at least threshold.
func FilterByMinValue(records []core.Record, threshold float64) []core.Record {
	out := make([]core.Record, 0, len(records))
	for _, r := range records {
		if r.Value >= threshold {
			out = append(out, r)
		}
	}
	return out
}

// FilterByMinHours keeps points whose hours are at least threshold.
func FilterByMinHours(points []core.ActivityPoint, threshold float64) []core.ActivityPoint {
	out := make([]core.ActivityPoint, 0, len(points))
	for _, p := range points {
		if p.Hours >= threshold {
			out = append(out, p)
		}
	}
	return out
}

// FilterByLabelSet keeps points whose label is in allowed. An empty set means
// nothing is selected, so the result is empty.
func FilterByLabelSet(points []core.ActivityPoint, allowed map[string]struct{}) []core.ActivityPoint {
	out := make([]core.ActivityPoint, 0, len(points))
	if len(allowed) == 0 {
		return out
	}
	for _, p := range points {
		if _, ok := allowed[p.Label]; ok {
			out = append(out, p)
		}
	}
	return out
}

// SumValues adds selector(item) over items. It returns 0 for no items.
func SumValues[T any](items []T, selector func(T) float64) float64 {
	var total float64
	for _, it := range items {
		total += selector(it)
	}
	return total
}

// RecordValue and PointHours are the usual selectors for SumValues.
func RecordValue(r core.Record) float64       { return r.Value }
func PointHours(p core.ActivityPoint) float64 { return p.Hours }

// Labels returns the labels of points in order.
func Labels(points []core.ActivityPoint) []string {
	out := make([]string, 0, len(points))
	for _, p := range points {
		out = append(out, p.Label)
	}
	return out
}

// LabelSet builds a membership set from labels.
func LabelSet(labels []string) map[string]struct{} {
	set := make(map[string]struct{}, len(labels))
	for _, l := range labels {
		set[l] = struct{}{}
	}
	return set
}

// ClampN bounds a requested count to [1, length]. It returns 0 when length is 0.
func ClampN(n, length int) int {
	if length <= 0 {
		return 0
	}
	if n < 1 {
		return 1
	}
	if n > length {
		return length
	}
	return n
}

// DefaultTrendDays is the initial trend window for a store of length records.
func DefaultTrendDays(length int) int {
	return min(DefaultTrendWindow, max(length, 0))
}

// CategoryTotal is the summed value of one category.
type CategoryTotal struct {
	Category string
	Total    float64
}

// TotalsByCategory sums values per category, in the order categories first appear.
func TotalsByCategory(records []core.Record) []CategoryTotal {
	index := make(map[string]int)
	out := make([]CategoryTotal, 0)
	for _, r := range records {
		i, ok := index[r.Category]
		if !ok {
			i = len(out)
			index[r.Category] = i
			out = append(out, CategoryTotal{Category: r.Category})
		}
		out[i].Total += r.Value
	}
	return out
}
