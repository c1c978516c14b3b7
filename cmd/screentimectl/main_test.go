package main

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"screentime/internal/core"
)

func setupEnv(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("DATA_BACKEND", "csv")
	t.Setenv("STORE_PATH", filepath.Join(dir, "data.csv"))
	t.Setenv("DOCUMENT_PATH", filepath.Join(dir, "data.json"))
	t.Setenv("AMQP_URL", "")
	return dir
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestAppendAndShow(t *testing.T) {
	setupEnv(t)

	out, err := run(t, "append", "Monday", "2,5")
	if err != nil {
		t.Fatalf("append: %v", err)
	}
	if !strings.Contains(out, "appended Monday: 2.5 hours") {
		t.Errorf("append output = %q", out)
	}
	if _, err := run(t, "append", "Tuesday", "4"); err != nil {
		t.Fatalf("append: %v", err)
	}

	out, err = run(t, "show")
	if err != nil {
		t.Fatalf("show: %v", err)
	}
	for _, want := range []string{"Category", "Monday", "Tuesday", "6.5"} {
		if !strings.Contains(out, want) {
			t.Errorf("show output missing %q:\n%s", want, out)
		}
	}

	out, err = run(t, "show", "--first", "1")
	if err != nil {
		t.Fatalf("show --first: %v", err)
	}
	if strings.Contains(out, "Tuesday") {
		t.Errorf("--first 1 should only print Monday:\n%s", out)
	}

	for _, n := range []string{"0", "-3"} {
		out, err = run(t, "show", "--first="+n)
		if err != nil {
			t.Fatalf("show --first %s: %v", n, err)
		}
		if !strings.Contains(out, "Monday") || strings.Contains(out, "Tuesday") {
			t.Errorf("--first %s should clamp to one record:\n%s", n, out)
		}
	}

	out, err = run(t, "show", "--min", "3")
	if err != nil {
		t.Fatalf("show --min: %v", err)
	}
	if strings.Contains(out, "Monday") || !strings.Contains(out, "Tuesday") {
		t.Errorf("--min 3 output:\n%s", out)
	}
}

func TestShowEmptyStore(t *testing.T) {
	setupEnv(t)
	out, err := run(t, "show")
	if err != nil {
		t.Fatalf("show: %v", err)
	}
	if !strings.Contains(out, "No CSV data available yet.") {
		t.Errorf("output = %q", out)
	}
}

func TestAppendRejectsBadInput(t *testing.T) {
	setupEnv(t)
	tests := []struct {
		args []string
		want error
	}{
		{args: []string{"append", "Monday", "25"}, want: core.ErrValidation},
		{args: []string{"append", "Monday", "lots"}, want: core.ErrParse},
		{args: []string{"append", " ", "1"}, want: core.ErrValidation},
	}
	for _, tt := range tests {
		if _, err := run(t, tt.args...); !errors.Is(err, tt.want) {
			t.Errorf("%v: error = %v, want %v", tt.args, err, tt.want)
		}
	}
}

func TestReplaceWeekAndTotals(t *testing.T) {
	setupEnv(t)
	if _, err := run(t, "append", "old", "1"); err != nil {
		t.Fatalf("append: %v", err)
	}

	out, err := run(t, "replace-week", "monday=2", "Sunday=30")
	if err != nil {
		t.Fatalf("replace-week: %v", err)
	}
	if strings.Contains(out, "old") || !strings.Contains(out, "Wednesday") {
		t.Errorf("replace-week output:\n%s", out)
	}

	out, err = run(t, "show", "--totals")
	if err != nil {
		t.Fatalf("show --totals: %v", err)
	}
	if !strings.Contains(out, "24") {
		t.Errorf("Sunday should be clamped to 24:\n%s", out)
	}
}

func TestParseWeekArgs(t *testing.T) {
	week, err := parseWeekArgs([]string{"MONDAY=1.5", " friday =3"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if week["Monday"] != 1.5 || week["Friday"] != 3 || len(week) != 2 {
		t.Errorf("week = %v", week)
	}

	for _, bad := range []string{"Monday", "Funday=2", "Monday=x"} {
		if _, err := parseWeekArgs([]string{bad}); err == nil {
			t.Errorf("parseWeekArgs(%q) should fail", bad)
		}
	}
}

func TestActivities(t *testing.T) {
	dir := setupEnv(t)

	out, err := run(t, "activities")
	if err != nil {
		t.Fatalf("activities: %v", err)
	}
	if !strings.Contains(out, "No JSON data available.") {
		t.Errorf("output = %q", out)
	}

	doc := `{"data_points":[{"label":"Social","hours":2,"sessions":4},{"label":"Games","hours":1,"sessions":2}]}`
	if err := os.WriteFile(filepath.Join(dir, "data.json"), []byte(doc), 0o644); err != nil {
		t.Fatalf("write document: %v", err)
	}

	out, err = run(t, "activities", "--label", "Games")
	if err != nil {
		t.Fatalf("activities: %v", err)
	}
	if strings.Contains(out, "Social") || !strings.Contains(out, "Games") {
		t.Errorf("label filter output:\n%s", out)
	}

	out, err = run(t, "activities", "--min-hours", "1.5")
	if err != nil {
		t.Fatalf("activities: %v", err)
	}
	if !strings.Contains(out, "Social") || strings.Contains(out, "Games") {
		t.Errorf("min-hours output:\n%s", out)
	}
}
