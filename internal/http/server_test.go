package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"screentime/internal/core"
	"screentime/internal/log"
	"screentime/internal/services"
	"screentime/internal/store/memory"
)

type docStub struct {
	points []core.ActivityPoint
	found  bool
	err    error
}

func (d docStub) LoadDocument(context.Context) ([]core.ActivityPoint, bool, error) {
	return d.points, d.found, d.err
}

var samplePoints = []core.ActivityPoint{
	{Label: "Social", Hours: 2, Sessions: 4},
	{Label: "Games", Hours: 1, Sessions: 2},
	{Label: "Video", Hours: 3.5, Sessions: 3},
}

type testServer struct {
	*Server
	store *memory.Store
}

func newTestServer(t *testing.T, mode core.WriteMode, seed []core.Record, doc docStub) testServer {
	t.Helper()
	st := memory.New(seed)
	srv := NewServer(Config{
		Addr:     ":0",
		Recorder: services.NewRecorder(st, nil, mode),
		Records:  st,
		Document: doc,
		CacheTTL: time.Minute,
		Logger:   log.New(log.Config{Output: io.Discard}),
	})
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	})
	return testServer{Server: srv, store: st}
}

func (ts testServer) do(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	ts.Handler.ServeHTTP(rec, req)
	return rec
}

func (ts testServer) get(target string) *httptest.ResponseRecorder {
	return ts.do(httptest.NewRequest(http.MethodGet, target, nil))
}

func (ts testServer) postForm(target string, form url.Values, htmx bool) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if htmx {
		req.Header.Set("HX-Request", "true")
	}
	return ts.do(req)
}

func (ts testServer) stored(t *testing.T) []core.Record {
	t.Helper()
	recs, _, err := ts.store.LoadRecords(context.Background())
	if err != nil {
		t.Fatalf("load store: %v", err)
	}
	return recs
}

func TestSurveyPage(t *testing.T) {
	ts := newTestServer(t, core.WriteAppend, nil, docStub{})
	rr := ts.get("/")
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	body := rr.Body.String()
	for _, want := range []string{"Screen Time Survey", "Select day:", "Enter screen time hours:", `action="/records"`} {
		if !strings.Contains(body, want) {
			t.Errorf("append form missing %q", want)
		}
	}

	ts = newTestServer(t, core.WriteOverwrite, nil, docStub{})
	body = ts.get("/").Body.String()
	for _, want := range []string{`action="/records/week"`, `name="hours_Monday"`, `name="hours_Sunday"`} {
		if !strings.Contains(body, want) {
			t.Errorf("week form missing %q", want)
		}
	}
}

func TestUnknownPathIs404(t *testing.T) {
	ts := newTestServer(t, core.WriteAppend, nil, docStub{})
	if rr := ts.get("/nope"); rr.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rr.Code)
	}
}

func TestAppendRecord(t *testing.T) {
	ts := newTestServer(t, core.WriteAppend, []core.Record{{Category: "Monday", Value: 1}}, docStub{})

	rr := ts.postForm("/records", url.Values{"category": {"Tuesday"}, "hours": {"2.5"}}, false)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rr.Code, rr.Body.String())
	}
	if !strings.Contains(rr.Body.String(), "Data submitted!") {
		t.Errorf("success banner missing")
	}

	got := ts.stored(t)
	if len(got) != 2 || got[1] != (core.Record{Category: "Tuesday", Value: 2.5}) {
		t.Fatalf("store = %+v", got)
	}
}

func TestAppendRecordHTMX(t *testing.T) {
	ts := newTestServer(t, core.WriteAppend, nil, docStub{})

	rr := ts.postForm("/records", url.Values{"category": {"Friday"}, "hours": {"3"}}, true)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	trigger := rr.Header().Get("HX-Trigger")
	var triggers map[string]any
	if err := json.Unmarshal([]byte(trigger), &triggers); err != nil {
		t.Fatalf("HX-Trigger %q: %v", trigger, err)
	}
	if _, ok := triggers[EventRecordsChanged]; !ok {
		t.Errorf("HX-Trigger = %s, want %s", trigger, EventRecordsChanged)
	}
	if strings.Contains(rr.Body.String(), "<html") {
		t.Errorf("htmx response should be a fragment")
	}
}

func TestAppendRecordInvalid(t *testing.T) {
	tests := []struct {
		name string
		form url.Values
		want string
	}{
		{name: "missing category", form: url.Values{"hours": {"1"}}, want: "Invalid category"},
		{name: "not a number", form: url.Values{"category": {"Monday"}, "hours": {"two"}}, want: "enter a number"},
		{name: "over a day", form: url.Values{"category": {"Monday"}, "hours": {"25"}}, want: "Invalid hours"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := newTestServer(t, core.WriteAppend, nil, docStub{})
			rr := ts.postForm("/records", tt.form, true)
			if rr.Code != http.StatusUnprocessableEntity {
				t.Fatalf("status = %d, want 422", rr.Code)
			}
			if !strings.Contains(rr.Body.String(), tt.want) {
				t.Errorf("body %q missing %q", rr.Body.String(), tt.want)
			}
			if rr.Header().Get("HX-Trigger") != "" {
				t.Errorf("failed write should not trigger events")
			}
			if got := ts.stored(t); len(got) != 0 {
				t.Errorf("store written on invalid input: %+v", got)
			}
		})
	}
}

func TestAppendRecordKeepsFormOnError(t *testing.T) {
	ts := newTestServer(t, core.WriteAppend, nil, docStub{})
	rr := ts.postForm("/records", url.Values{"category": {"Monday"}, "hours": {"abc"}}, false)
	if rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), `value="abc"`) {
		t.Errorf("submitted value not echoed back")
	}
}

func TestReplaceWeek(t *testing.T) {
	ts := newTestServer(t, core.WriteOverwrite, []core.Record{{Category: "old", Value: 9}}, docStub{})

	form := url.Values{"hours_Monday": {"2"}, "hours_Wednesday": {"30"}, "hours_Friday": {"-1"}}
	rr := ts.postForm("/records/week", form, true)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rr.Code, rr.Body.String())
	}

	got := ts.stored(t)
	if len(got) != len(core.Weekdays) {
		t.Fatalf("store has %d records, want 7", len(got))
	}
	want := map[string]float64{"Monday": 2, "Tuesday": 0, "Wednesday": 24, "Friday": 0}
	for _, rec := range got {
		if v, ok := want[rec.Category]; ok && rec.Value != v {
			t.Errorf("%s = %v, want %v", rec.Category, rec.Value, v)
		}
	}
	if got[0].Category != "Monday" || got[6].Category != "Sunday" {
		t.Errorf("weekday order lost: %+v", got)
	}
}

func TestReplaceWeekInvalid(t *testing.T) {
	seed := []core.Record{{Category: "old", Value: 9}}
	ts := newTestServer(t, core.WriteOverwrite, seed, docStub{})
	rr := ts.postForm("/records/week", url.Values{"hours_Monday": {"x"}}, true)
	if rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "hours_Monday") {
		t.Errorf("error should name the field: %s", rr.Body.String())
	}
	if got := ts.stored(t); len(got) != 1 {
		t.Errorf("store changed on invalid input: %+v", got)
	}
}

func TestVisualsEmpty(t *testing.T) {
	ts := newTestServer(t, core.WriteAppend, nil, docStub{})
	rr := ts.get("/visuals")
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	body := rr.Body.String()
	for _, want := range []string{"No CSV data available yet.", "No JSON data available."} {
		if !strings.Contains(body, want) {
			t.Errorf("page missing %q", want)
		}
	}
	if strings.Contains(body, "/charts/") {
		t.Errorf("no charts expected without data")
	}
}

func TestVisualsWithData(t *testing.T) {
	seed := []core.Record{
		{Category: "Monday", Value: 2},
		{Category: "Tuesday", Value: 3},
		{Category: "Monday", Value: 1.5},
	}
	ts := newTestServer(t, core.WriteAppend, seed, docStub{points: samplePoints, found: true})

	body := ts.get("/visuals").Body.String()
	for _, want := range []string{
		"Current Data in CSV",
		"<td>Tuesday</td><td>3</td>",
		"<th>6.5</th>",
		"/charts/trend.svg?days=3",
		"/charts/activity.svg",
		"Total: 6.5 hours",
		`value="Games" checked`,
	} {
		if !strings.Contains(body, want) {
			t.Errorf("page missing %q", want)
		}
	}
}

func TestVisualsControls(t *testing.T) {
	seed := []core.Record{{Category: "Monday", Value: 2}, {Category: "Tuesday", Value: 3}}
	ts := newTestServer(t, core.WriteAppend, seed, docStub{points: samplePoints, found: true})

	body := ts.get("/visuals?days=99&selected=1&label=Social&label=Video&min_hours=2.5").Body.String()
	if !strings.Contains(body, "/charts/trend.svg?days=2") {
		t.Errorf("trend days not clamped to store length")
	}
	if !strings.Contains(body, `value="Social" checked`) || strings.Contains(body, `value="Games" checked`) {
		t.Errorf("label checkboxes do not follow the selection")
	}
	if !strings.Contains(body, "Selected: 3.5 hours over 3 sessions") {
		t.Errorf("filtered totals wrong")
	}

	body = ts.get("/visuals?selected=1").Body.String()
	if !strings.Contains(body, "Select at least one activity.") {
		t.Errorf("empty selection message missing")
	}
	if strings.Contains(body, "/charts/compare.svg") {
		t.Errorf("comparison chart should be hidden for an empty selection")
	}
}

func TestVisualsDegradesPerSection(t *testing.T) {
	seed := []core.Record{{Category: "Monday", Value: 2}}
	doc := docStub{err: &core.ParseError{Source: "data.json", Field: "data_points", Err: errors.New("not a list")}}
	ts := newTestServer(t, core.WriteAppend, seed, doc)

	rr := ts.get("/visuals")
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	body := rr.Body.String()
	if !strings.Contains(body, "Could not read the activity data") {
		t.Errorf("document warning missing")
	}
	if !strings.Contains(body, "<td>Monday</td>") {
		t.Errorf("store section should still render")
	}
}

func TestCharts(t *testing.T) {
	seed := []core.Record{{Category: "Monday", Value: 2}, {Category: "Tuesday", Value: 0}}
	ts := newTestServer(t, core.WriteAppend, seed, docStub{points: samplePoints, found: true})

	for _, name := range []string{"activity", "trend", "trend.svg?days=1", "compare", "scatter", "totals"} {
		t.Run(name, func(t *testing.T) {
			path := "/charts/" + name
			if !strings.Contains(name, ".svg") {
				path += ".svg"
			}
			rr := ts.get(path)
			if rr.Code != http.StatusOK {
				t.Fatalf("status = %d", rr.Code)
			}
			if ct := rr.Header().Get("Content-Type"); ct != "image/svg+xml" {
				t.Errorf("Content-Type = %q", ct)
			}
			if !strings.Contains(rr.Body.String(), "<svg") {
				t.Errorf("body is not SVG")
			}
		})
	}

	if rr := ts.get("/charts/pie.svg"); rr.Code != http.StatusNotFound {
		t.Errorf("unknown chart status = %d", rr.Code)
	}
	if rr := ts.get("/charts/trend.png"); rr.Code != http.StatusNotFound {
		t.Errorf("non-svg chart status = %d", rr.Code)
	}
	if rr := ts.get("/charts/compare.svg?selected=1"); rr.Code != http.StatusNoContent {
		t.Errorf("empty selection chart status = %d, want 204", rr.Code)
	}

	single := newTestServer(t, core.WriteAppend, []core.Record{{Category: "Monday", Value: 5.5}}, docStub{})
	if rr := single.get("/charts/trend.svg"); rr.Code != http.StatusOK {
		t.Errorf("trend of a single record status = %d", rr.Code)
	}
}

func TestChartsWithoutSources(t *testing.T) {
	ts := newTestServer(t, core.WriteAppend, nil, docStub{})
	for _, name := range []string{"activity", "trend", "totals"} {
		if rr := ts.get("/charts/" + name + ".svg"); rr.Code != http.StatusNoContent {
			t.Errorf("%s status = %d, want 204", name, rr.Code)
		}
	}
}

func TestChartCachePurgedOnWrite(t *testing.T) {
	ts := newTestServer(t, core.WriteAppend, []core.Record{{Category: "Monday", Value: 2}}, docStub{})

	ts.get("/charts/totals.svg")
	ts.get("/charts/totals.svg?_=123")
	if n := ts.chartCache.Size(); n != 1 {
		t.Fatalf("cache size = %d, want 1", n)
	}

	ts.postForm("/records", url.Values{"category": {"Tuesday"}, "hours": {"1"}}, true)
	if n := ts.chartCache.Size(); n != 0 {
		t.Errorf("cache size after write = %d, want 0", n)
	}

	ts.get("/charts/totals.svg")
	ts.InvalidateCharts()
	if n := ts.chartCache.Size(); n != 0 {
		t.Errorf("cache size after invalidation = %d, want 0", n)
	}
}

// pausingLoader blocks its first load after reading, until release is closed.
type pausingLoader struct {
	*memory.Store
	once    sync.Once
	loaded  chan struct{}
	release chan struct{}
}

func (p *pausingLoader) LoadRecords(ctx context.Context) ([]core.Record, bool, error) {
	recs, found, err := p.Store.LoadRecords(ctx)
	p.once.Do(func() {
		close(p.loaded)
		<-p.release
	})
	return recs, found, err
}

func TestChartRenderedBeforeWriteIsNotCached(t *testing.T) {
	st := memory.New([]core.Record{{Category: "Monday", Value: 2}})
	loader := &pausingLoader{Store: st, loaded: make(chan struct{}), release: make(chan struct{})}
	srv := NewServer(Config{
		Addr:     ":0",
		Recorder: services.NewRecorder(st, nil, core.WriteAppend),
		Records:  loader,
		Document: docStub{},
		CacheTTL: time.Minute,
		Logger:   log.New(log.Config{Output: io.Discard}),
	})
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	})
	ts := testServer{Server: srv, store: st}

	stale := make(chan *httptest.ResponseRecorder)
	go func() { stale <- ts.get("/charts/totals.svg") }()
	<-loader.loaded

	if rr := ts.postForm("/records", url.Values{"category": {"Tuesday"}, "hours": {"9"}}, true); rr.Code != http.StatusOK {
		t.Fatalf("append status = %d", rr.Code)
	}
	close(loader.release)
	first := <-stale
	if first.Code != http.StatusOK {
		t.Fatalf("first render status = %d", first.Code)
	}
	if n := ts.chartCache.Size(); n != 0 {
		t.Fatalf("render from pre-write data was cached (size %d)", n)
	}

	fresh := ts.get("/charts/totals.svg")
	if fresh.Body.String() == first.Body.String() {
		t.Error("chart after write is identical to the pre-write render")
	}
	if !strings.Contains(fresh.Body.String(), "Tuesday") {
		t.Error("chart after write is missing the new category")
	}
}

func TestHealthAndReady(t *testing.T) {
	ts := newTestServer(t, core.WriteAppend, nil, docStub{})

	rr := ts.get("/healthz")
	if rr.Code != http.StatusOK || !strings.Contains(rr.Body.String(), `"status":"ok"`) {
		t.Errorf("healthz = %d %s", rr.Code, rr.Body.String())
	}
	rr = ts.get("/readyz")
	if rr.Code != http.StatusOK {
		t.Errorf("readyz = %d %s", rr.Code, rr.Body.String())
	}

	ts.readyCheck = func(context.Context) error { return errors.New("disk gone") }
	rr = ts.get("/readyz")
	if rr.Code != http.StatusServiceUnavailable || !strings.Contains(rr.Body.String(), "disk gone") {
		t.Errorf("readyz with failing backend = %d %s", rr.Code, rr.Body.String())
	}
}

func TestMiddlewareChain(t *testing.T) {
	ts := newTestServer(t, core.WriteAppend, nil, docStub{})

	rr := ts.get("/")
	if rr.Header().Get("X-Request-ID") == "" {
		t.Errorf("request ID header missing")
	}
	if rr.Header().Get("X-Content-Type-Options") != "nosniff" {
		t.Errorf("security headers missing")
	}

	if rr := ts.get("/.env"); rr.Code != http.StatusBadRequest {
		t.Errorf("suspicious path status = %d, want 400", rr.Code)
	}

	if rr := ts.get("/metrics"); rr.Code != http.StatusOK {
		t.Errorf("metrics status = %d", rr.Code)
	}
	if rr := ts.get("/static/style.css"); rr.Code != http.StatusOK {
		t.Errorf("static asset status = %d", rr.Code)
	}
}
