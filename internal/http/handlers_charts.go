package http

import (
	"bytes"
	"errors"
	"net/http"
	"strings"

	"screentime/internal/charts"
	"screentime/internal/core"
	"screentime/internal/dashboard"
	"screentime/internal/log"
)

// Chart names served under /charts/{name}.svg.
const (
	chartActivity = "activity"
	chartTrend    = "trend"
	chartCompare  = "compare"
	chartScatter  = "scatter"
	chartTotals   = "totals"
)

// cacheBustParam is appended by the page script to force a reload; it never
// changes the image.
const cacheBustParam = "_"

var errUnknownChart = errors.New("unknown chart")

// handleChart renders one chart as SVG. Rendered images are cached by
// name and normalized query until the next write or the TTL.
func (s *Server) handleChart(w http.ResponseWriter, r *http.Request) {
	name, ok := strings.CutSuffix(r.PathValue("name"), ".svg")
	if !ok {
		http.NotFound(w, r)
		return
	}
	query := r.URL.Query()
	query.Del(cacheBustParam)
	key := name + "?" + query.Encode()

	if svg, hit := s.chartCache.Get(key); hit {
		writeSVG(w, svg)
		return
	}

	gen := s.chartCache.Generation()
	var buf bytes.Buffer
	err := s.renderChart(r, name, &buf)
	switch {
	case errors.Is(err, errUnknownChart):
		http.NotFound(w, r)
		return
	case errors.Is(err, charts.ErrNoData):
		w.WriteHeader(http.StatusNoContent)
		return
	case err != nil:
		s.reqLogger(r).ErrorContext(r.Context(), "Chart rendering failed",
			log.NewFields().WithOperation(log.OpRender).WithError(err).ToSlice()...)
		http.Error(w, "chart unavailable", http.StatusInternalServerError)
		return
	}

	svg := buf.Bytes()
	if !s.chartCache.SetIfGeneration(key, svg, gen) {
		s.reqLogger(r).DebugContext(r.Context(), "Chart data changed during render, not cached", log.FieldChart, name)
	}
	s.reqLogger(r).DebugContext(r.Context(), "Chart rendered", log.FieldChart, name, "bytes", len(svg))
	writeSVG(w, svg)
}

// renderChart loads only the source the chart needs. A missing source reads
// as no data.
func (s *Server) renderChart(r *http.Request, name string, buf *bytes.Buffer) error {
	query := r.URL.Query()

	switch name {
	case chartTrend, chartTotals:
		src := s.load(r.Context(), true, false)
		if src.recordsErr != nil {
			return src.recordsErr
		}
		if name == chartTotals {
			totals := dashboard.TotalsByCategory(src.records)
			bars := make([]charts.Bar, 0, len(totals))
			for _, t := range totals {
				bars = append(bars, charts.Bar{Label: t.Category, Value: t.Total})
			}
			return charts.BarSVG(buf, "Total Screen Time by Category", bars)
		}
		shown := ParseTrendParams(query).Apply(src.records)
		labels := make([]string, 0, len(shown))
		for _, rec := range shown {
			labels = append(labels, rec.Category)
		}
		return charts.LineSVG(buf, "Weekly Screen Time Trend", "Hours", labels, valuesOf(shown))

	case chartActivity, chartCompare, chartScatter:
		src := s.load(r.Context(), false, true)
		if src.pointsErr != nil {
			return src.pointsErr
		}
		points := src.points
		title := "Daily Screen Time by Activity"
		if name != chartActivity {
			points = ParseActivityParams(query).Apply(points)
			title = "Activity Comparison"
		}
		if name == chartScatter {
			pts := make([]charts.Point, 0, len(points))
			for _, p := range points {
				pts = append(pts, charts.Point{X: float64(p.Sessions), Y: p.Hours})
			}
			return charts.ScatterSVG(buf, "Sessions vs Hours", "Sessions", "Hours", pts)
		}
		bars := make([]charts.Bar, 0, len(points))
		for _, p := range points {
			bars = append(bars, charts.Bar{Label: p.Label, Value: p.Hours})
		}
		return charts.BarSVG(buf, title, bars)
	}
	return errUnknownChart
}

func valuesOf(records []core.Record) []float64 {
	out := make([]float64, 0, len(records))
	for _, r := range records {
		out = append(out, r.Value)
	}
	return out
}

func writeSVG(w http.ResponseWriter, svg []byte) {
	w.Header().Set("Content-Type", "image/svg+xml")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(svg)
}
