package http

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"golang.org/x/sync/errgroup"

	"screentime/internal/core"
	"screentime/internal/dashboard"
	"screentime/internal/log"
)

// sources is one read of both data sets. Each side carries its own error so
// the page can degrade per section.
type sources struct {
	records      []core.Record
	recordsFound bool
	recordsErr   error

	points      []core.ActivityPoint
	pointsFound bool
	pointsErr   error
}

// load reads the store and the document concurrently.
func (s *Server) load(ctx context.Context, wantRecords, wantDocument bool) sources {
	ctx, cancel := context.WithTimeout(ctx, loadTimeout)
	defer cancel()

	var src sources
	g, gctx := errgroup.WithContext(ctx)
	if wantRecords && s.records != nil {
		g.Go(func() error {
			src.records, src.recordsFound, src.recordsErr = s.records.LoadRecords(gctx)
			return nil
		})
	}
	if wantDocument && s.document != nil {
		g.Go(func() error {
			src.points, src.pointsFound, src.pointsErr = s.document.LoadDocument(gctx)
			return nil
		})
	}
	_ = g.Wait()
	return src
}

type labelOption struct {
	Label   string
	Checked bool
}

// visualsPage is the data behind visuals.html.
type visualsPage struct {
	Title string

	// Store section
	StoreBanner *banner
	Records     []core.Record
	StoreTotal  float64
	Totals      []dashboard.CategoryTotal
	TotalsChart string

	// Trend section
	TrendDays  int
	TrendMax   int
	TrendTotal float64
	TrendChart string

	// Document sections
	DocumentBanner  *banner
	Points          []core.ActivityPoint
	ActivityTotal   float64
	ActivityChart   string
	Options         []labelOption
	MinHours        string
	Compared        []core.ActivityPoint
	CompareTotal    float64
	CompareSessions float64
	CompareChart    string
	ScatterChart    string
	NothingSelected bool
}

func (s *Server) handleVisuals(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	src := s.load(r.Context(), true, true)

	page := visualsPage{Title: "Data Visualizations"}
	s.fillStore(r, &page, src, query)
	s.fillDocument(r, &page, src, query)

	s.render(w, r, http.StatusOK, "visuals.html", page)
}

func (s *Server) fillStore(r *http.Request, page *visualsPage, src sources, query url.Values) {
	switch {
	case src.recordsErr != nil:
		s.reqLogger(r).WarnContext(r.Context(), "Store unavailable for visuals",
			log.NewFields().WithOperation(log.OpLoad).WithError(src.recordsErr).ToSlice()...)
		page.StoreBanner = &banner{Kind: BannerWarning, Message: "Could not read the survey data: " + src.recordsErr.Error()}
		return
	case !src.recordsFound || len(src.records) == 0:
		page.StoreBanner = &banner{Kind: BannerInfo, Message: "No CSV data available yet."}
		return
	}

	page.Records = src.records
	page.StoreTotal = dashboard.SumValues(src.records, dashboard.RecordValue)
	page.Totals = dashboard.TotalsByCategory(src.records)
	page.TotalsChart = chartURL(chartTotals, nil)

	trend := ParseTrendParams(query)
	page.TrendMax = len(src.records)
	page.TrendDays = dashboard.ClampN(trend.Days, page.TrendMax)
	if trend.Days == 0 {
		page.TrendDays = dashboard.DefaultTrendDays(page.TrendMax)
	}
	shown := dashboard.TrendParams{Days: page.TrendDays}.Apply(src.records)
	page.TrendTotal = dashboard.SumValues(shown, dashboard.RecordValue)
	page.TrendChart = chartURL(chartTrend, url.Values{fieldDays: {strconv.Itoa(page.TrendDays)}})
}

func (s *Server) fillDocument(r *http.Request, page *visualsPage, src sources, query url.Values) {
	switch {
	case src.pointsErr != nil:
		s.reqLogger(r).WarnContext(r.Context(), "Document unavailable for visuals",
			log.NewFields().WithOperation(log.OpLoad).WithError(src.pointsErr).ToSlice()...)
		page.DocumentBanner = &banner{Kind: BannerWarning, Message: "Could not read the activity data: " + src.pointsErr.Error()}
		return
	case !src.pointsFound || len(src.points) == 0:
		page.DocumentBanner = &banner{Kind: BannerInfo, Message: "No JSON data available."}
		return
	}

	page.Points = src.points
	page.ActivityTotal = dashboard.SumValues(src.points, dashboard.PointHours)
	page.ActivityChart = chartURL(chartActivity, nil)

	params := ParseActivityParams(query)
	chosen := dashboard.LabelSet(params.Labels)
	for _, l := range dashboard.Labels(src.points) {
		_, ok := chosen[l]
		page.Options = append(page.Options, labelOption{Label: l, Checked: !params.Selected || ok})
	}
	if params.MinHours > 0 {
		page.MinHours = core.FormatValue(params.MinHours)
	}

	page.NothingSelected = params.NothingSelected()
	if page.NothingSelected {
		return
	}
	page.Compared = params.Apply(src.points)
	page.CompareTotal = dashboard.SumValues(page.Compared, dashboard.PointHours)
	page.CompareSessions = dashboard.SumValues(page.Compared, func(p core.ActivityPoint) float64 { return float64(p.Sessions) })

	controls := activityQuery(params)
	page.CompareChart = chartURL(chartCompare, controls)
	page.ScatterChart = chartURL(chartScatter, controls)
}

// activityQuery re-encodes the activity controls for the chart image URLs.
func activityQuery(p dashboard.ActivityParams) url.Values {
	q := url.Values{}
	if p.Selected {
		q.Set(fieldSelected, "1")
		q[fieldLabel] = append([]string(nil), p.Labels...)
	}
	if p.MinHours > 0 {
		q.Set(fieldMinHours, core.FormatValue(p.MinHours))
	}
	return q
}
