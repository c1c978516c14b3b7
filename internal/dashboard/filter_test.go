package dashboard

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"screentime/internal/core"
)

var week = []core.Record{
	{Category: "Monday", Value: 4},
	{Category: "Tuesday", Value: 2.5},
	{Category: "Wednesday", Value: 6},
	{Category: "Thursday", Value: 1},
	{Category: "Friday", Value: 8},
	{Category: "Saturday", Value: 9.5},
	{Category: "Sunday", Value: 7},
	{Category: "Monday", Value: 3},
}

var points = []core.ActivityPoint{
	{Label: "Social", Hours: 2, Sessions: 4},
	{Label: "Games", Hours: 1, Sessions: 2},
}

func TestTakeFirstN(t *testing.T) {
	cases := []struct {
		n    int
		want int
	}{
		{n: -1, want: 0},
		{n: 0, want: 0},
		{n: 3, want: 3},
		{n: len(week), want: len(week)},
		{n: 100, want: len(week)},
	}
	for _, tc := range cases {
		got := TakeFirstN(week, tc.n)
		if len(got) != tc.want {
			t.Fatalf("TakeFirstN(%d) len = %d, want %d", tc.n, len(got), tc.want)
		}
		if !cmp.Equal(got, week[:tc.want]) {
			t.Fatalf("TakeFirstN(%d) is not a prefix: %+v", tc.n, got)
		}
	}

	if got := TakeFirstN(nil, 5); got == nil || len(got) != 0 {
		t.Fatalf("TakeFirstN on empty input = %v", got)
	}

	// Result does not alias the input
	got := TakeFirstN(week, 1)
	got[0].Category = "changed"
	if week[0].Category != "Monday" {
		t.Fatalf("TakeFirstN aliased its input")
	}
}

func TestFilterByMinValue(t *testing.T) {
	if got := FilterByMinValue(week, 0); !cmp.Equal(got, week) {
		t.Fatalf("threshold 0 should keep all non-negative records, got %+v", got)
	}
	if got := FilterByMinValue(week, 1e9); got == nil || len(got) != 0 {
		t.Fatalf("huge threshold should yield empty result, got %+v", got)
	}
	got := FilterByMinValue(week, 7)
	want := []core.Record{{Category: "Friday", Value: 8}, {Category: "Saturday", Value: 9.5}, {Category: "Sunday", Value: 7}}
	if !cmp.Equal(got, want) {
		t.Fatalf("FilterByMinValue(7) = %+v, want %+v", got, want)
	}
}

func TestFilterByLabelSet(t *testing.T) {
	all := LabelSet(Labels(points))
	if got := FilterByLabelSet(points, all); !cmp.Equal(got, points) {
		t.Fatalf("all labels should keep every point, got %+v", got)
	}
	if got := FilterByLabelSet(points, map[string]struct{}{}); got == nil || len(got) != 0 {
		t.Fatalf("empty set should yield empty result, got %+v", got)
	}
	if got := FilterByLabelSet(points, nil); len(got) != 0 {
		t.Fatalf("nil set should yield empty result, got %+v", got)
	}
	got := FilterByLabelSet(points, LabelSet([]string{"Games", "Unknown"}))
	if len(got) != 1 || got[0].Label != "Games" {
		t.Fatalf("unexpected filter result %+v", got)
	}
}

func TestSumValues(t *testing.T) {
	if got := SumValues([]core.Record{}, RecordValue); got != 0 {
		t.Fatalf("sum of nothing = %v", got)
	}
	if got := SumValues[core.Record](nil, RecordValue); got != 0 {
		t.Fatalf("sum of nil = %v", got)
	}

	forward := SumValues(week, RecordValue)
	reversed := make([]core.Record, len(week))
	for i, r := range week {
		reversed[len(week)-1-i] = r
	}
	if back := SumValues(reversed, RecordValue); back != forward {
		t.Fatalf("sum depends on order: %v vs %v", forward, back)
	}
	if forward != 41 {
		t.Fatalf("sum = %v, want 41", forward)
	}

	sessions := SumValues(points, func(p core.ActivityPoint) float64 { return float64(p.Sessions) })
	if sessions != 6 {
		t.Fatalf("sessions sum = %v, want 6", sessions)
	}
}

func TestMinHoursScenario(t *testing.T) {
	got := FilterByMinHours(points, 1.5)
	if len(got) != 1 || got[0].Label != "Social" {
		t.Fatalf("FilterByMinHours(1.5) = %+v", got)
	}
	if sum := SumValues(got, PointHours); sum != 2 {
		t.Fatalf("hours sum = %v, want 2", sum)
	}
}

func TestClampAndDefaults(t *testing.T) {
	cases := []struct{ n, length, want int }{
		{n: 0, length: 0, want: 0},
		{n: 5, length: 0, want: 0},
		{n: 0, length: 4, want: 1},
		{n: 3, length: 4, want: 3},
		{n: 9, length: 4, want: 4},
	}
	for _, tc := range cases {
		if got := ClampN(tc.n, tc.length); got != tc.want {
			t.Errorf("ClampN(%d, %d) = %d, want %d", tc.n, tc.length, got, tc.want)
		}
	}
	if got := DefaultTrendDays(3); got != 3 {
		t.Errorf("DefaultTrendDays(3) = %d", got)
	}
	if got := DefaultTrendDays(30); got != DefaultTrendWindow {
		t.Errorf("DefaultTrendDays(30) = %d", got)
	}
}

func TestTotalsByCategory(t *testing.T) {
	got := TotalsByCategory(week)
	if len(got) != 7 {
		t.Fatalf("expected 7 categories, got %d", len(got))
	}
	if got[0] != (CategoryTotal{Category: "Monday", Total: 7}) {
		t.Fatalf("Monday total = %+v", got[0])
	}
	if got[6].Category != "Sunday" {
		t.Fatalf("first-seen order lost: %+v", got)
	}
}

func TestParamsApply(t *testing.T) {
	if got := (TrendParams{}).Apply(week); len(got) != DefaultTrendWindow {
		t.Fatalf("default trend window = %d", len(got))
	}
	if got := (TrendParams{Days: 2}).Apply(week); len(got) != 2 {
		t.Fatalf("trend days 2 = %d", len(got))
	}
	if got := (TrendParams{Days: -4}).Apply(week); len(got) != 1 {
		t.Fatalf("trend days are clamped to at least one, got %d", len(got))
	}

	if got := (ActivityParams{}).Apply(points); !cmp.Equal(got, points) {
		t.Fatalf("no selection should keep every point, got %+v", got)
	}
	empty := ActivityParams{Selected: true}
	if !empty.NothingSelected() || len(empty.Apply(points)) != 0 {
		t.Fatalf("explicit empty selection should yield nothing")
	}
	got := ActivityParams{MinHours: 1.5, Labels: []string{"Social", "Games"}, Selected: true}.Apply(points)
	if len(got) != 1 || got[0].Label != "Social" {
		t.Fatalf("combined filters = %+v", got)
	}
}
