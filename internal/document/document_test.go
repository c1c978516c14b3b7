package document

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"screentime/internal/core"
)

func writeDoc(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestLoadDocumentJSON(t *testing.T) {
	path := writeDoc(t, "data.json", `{"data_points":[
		{"label":"Social","hours":2,"sessions":4},
		{"label":"Games","hours":1,"sessions":2}
	]}`)
	l, err := NewLoader(path, core.MeasureHours)
	if err != nil {
		t.Fatalf("new loader: %v", err)
	}
	points, found, err := l.LoadDocument(context.Background())
	if err != nil || !found {
		t.Fatalf("load: found=%v err=%v", found, err)
	}
	want := []core.ActivityPoint{
		{Label: "Social", Hours: 2, Sessions: 4},
		{Label: "Games", Hours: 1, Sessions: 2},
	}
	if diff := cmp.Diff(want, points); diff != "" {
		t.Fatalf("points mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadDocumentYAMLWithValueField(t *testing.T) {
	path := writeDoc(t, "data.yaml", `
data_points:
  - label: Reading
    value: 1.5
  - label: Video
    value: 3
    sessions: 6
`)
	l, err := NewLoader(path, core.MeasureValue)
	if err != nil {
		t.Fatalf("new loader: %v", err)
	}
	points, found, err := l.LoadDocument(context.Background())
	if err != nil || !found {
		t.Fatalf("load: found=%v err=%v", found, err)
	}
	want := []core.ActivityPoint{
		{Label: "Reading", Hours: 1.5},
		{Label: "Video", Hours: 3, Sessions: 6},
	}
	if diff := cmp.Diff(want, points); diff != "" {
		t.Fatalf("points mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadDocumentAbsent(t *testing.T) {
	l, _ := NewLoader(filepath.Join(t.TempDir(), "data.json"), core.MeasureHours)
	points, found, err := l.LoadDocument(context.Background())
	if err != nil || found || points != nil {
		t.Fatalf("absent document: points=%v found=%v err=%v", points, found, err)
	}
}

func TestLoadDocumentEmptyList(t *testing.T) {
	path := writeDoc(t, "data.json", "{\"data_points\":[]}\n\n")
	l, _ := NewLoader(path, core.MeasureHours)
	points, found, err := l.LoadDocument(context.Background())
	if err != nil || !found || len(points) != 0 {
		t.Fatalf("empty list: points=%v found=%v err=%v", points, found, err)
	}
}

func TestNewLoaderRejectsUnknownField(t *testing.T) {
	if _, err := NewLoader("data.json", "minutes"); !errors.Is(err, core.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestLoadDocumentErrors(t *testing.T) {
	cases := []struct {
		name    string
		file    string
		content string
		field   string
	}{
		{name: "malformed json", file: "d.json", content: `{"data_points": [`},
		{name: "missing root key", file: "d.json", content: `{"points": []}`, field: "data_points"},
		{name: "root not a list", file: "d.json", content: `{"data_points": {}}`, field: "data_points"},
		{name: "item not an object", file: "d.json", content: `{"data_points": [1]}`, field: "data_points[0]"},
		{name: "missing label", file: "d.json", content: `{"data_points": [{"hours": 1}]}`, field: "data_points[0].label"},
		{name: "wrong measure field", file: "d.json", content: `{"data_points": [{"label": "a", "value": 1}]}`, field: "data_points[0].hours"},
		{name: "measure not numeric", file: "d.json", content: `{"data_points": [{"label": "a", "hours": "two"}]}`, field: "data_points[0].hours"},
		{name: "fractional sessions", file: "d.json", content: `{"data_points": [{"label": "a", "hours": 1, "sessions": 1.5}]}`, field: "data_points[0].sessions"},
		{name: "trailing garbage", file: "d.json", content: `{"data_points": []} junk`},
		{name: "two documents", file: "d.json", content: `{"data_points": []}{"data_points": []}`},
		{name: "malformed yaml", file: "d.yaml", content: "data_points: [\n"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			path := writeDoc(t, tc.file, tc.content)
			l, _ := NewLoader(path, core.MeasureHours)
			_, found, err := l.LoadDocument(context.Background())
			if found {
				t.Fatalf("found should be false on error")
			}
			var pe *core.ParseError
			if !errors.As(err, &pe) {
				t.Fatalf("expected *core.ParseError, got %v", err)
			}
			if tc.field != "" && pe.Field != tc.field {
				t.Errorf("field = %q, want %q", pe.Field, tc.field)
			}
			if !strings.HasSuffix(pe.Source, tc.file) {
				t.Errorf("source = %q", pe.Source)
			}
		})
	}
}
