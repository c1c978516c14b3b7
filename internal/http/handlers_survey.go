package http

import (
	"fmt"
	"net/http"

	"screentime/internal/core"
	"screentime/internal/log"
)

// surveyPage is the data behind survey.html.
type surveyPage struct {
	Title     string
	Overwrite bool
	Weekdays  []string
	MinHours  float64
	MaxHours  float64
	Step      float64
	Banner    *banner
	// Form echoes the last submission so a failed post keeps its values.
	Form map[string]string
}

type banner struct {
	Kind    BannerKind
	Message string
}

func (s *Server) newSurveyPage() surveyPage {
	return surveyPage{
		Title:     "Screen Time Survey",
		Overwrite: s.recorder != nil && s.recorder.Mode() == core.WriteOverwrite,
		Weekdays:  core.Weekdays,
		MinHours:  core.MinHours,
		MaxHours:  core.MaxHours,
		Step:      0.5,
		Form:      map[string]string{},
	}
}

// handleSurvey renders the entry form for the configured write mode.
func (s *Server) handleSurvey(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, http.StatusOK, "survey.html", s.newSurveyPage())
}

// handleAppendRecord appends one record from the survey form.
func (s *Server) handleAppendRecord(w http.ResponseWriter, r *http.Request) {
	p := NewRequestBodyParser(w, r)
	if err := p.Parse(); err != nil {
		s.reqLogger(r).WarnContext(r.Context(), "Failed to parse request body",
			log.FieldError, err,
			log.FieldErrorType, log.ErrorTypeParse)
		s.respondWrite(w, r, http.StatusBadRequest, BannerError, "Invalid form submission", nil, nil)
		return
	}
	form := map[string]string{
		fieldCategory: p.Get(fieldCategory),
		fieldHours:    p.Get(fieldHours),
	}

	rec, err := ParseRecordInput(p)
	if err == nil {
		err = s.recorder.Append(r.Context(), rec)
	}
	if err != nil {
		s.logWriteError(r, log.OpAppend, err)
		s.respondWrite(w, r, statusForError(err), BannerError, userMessage(err), form, nil)
		return
	}

	s.reqLogger(r).InfoContext(r.Context(), "Survey entry recorded",
		log.NewFields().WithOperation(log.OpAppend).WithRecord(rec.Category, rec.Value).ToSlice()...)
	msg := fmt.Sprintf("Data submitted! %s: %s hours", rec.Category, core.FormatValue(rec.Value))
	s.respondWrite(w, r, http.StatusOK, BannerSuccess, msg, nil, &written{mode: core.WriteAppend, count: 1})
}

// handleReplaceWeek overwrites the store with one record per weekday.
func (s *Server) handleReplaceWeek(w http.ResponseWriter, r *http.Request) {
	p := NewRequestBodyParser(w, r)
	if err := p.Parse(); err != nil {
		s.reqLogger(r).WarnContext(r.Context(), "Failed to parse request body",
			log.FieldError, err,
			log.FieldErrorType, log.ErrorTypeParse)
		s.respondWrite(w, r, http.StatusBadRequest, BannerError, "Invalid form submission", nil, nil)
		return
	}
	form := make(map[string]string, len(core.Weekdays))
	for _, day := range core.Weekdays {
		form[weekFieldPrefix+day] = p.Get(weekFieldPrefix + day)
	}

	week, err := ParseWeekInput(p)
	var records []core.Record
	if err == nil {
		records, err = s.recorder.ReplaceWeek(r.Context(), week)
	}
	if err != nil {
		s.logWriteError(r, log.OpReplace, err)
		s.respondWrite(w, r, statusForError(err), BannerError, userMessage(err), form, nil)
		return
	}

	s.reqLogger(r).InfoContext(r.Context(), "Survey week recorded",
		log.NewFields().WithOperation(log.OpReplace).WithRecordCount(len(records), core.WriteOverwrite.String()).ToSlice()...)
	s.respondWrite(w, r, http.StatusOK, BannerSuccess, "Data submitted!", nil, &written{mode: core.WriteOverwrite, count: len(records)})
}

func (s *Server) logWriteError(r *http.Request, op string, err error) {
	level := s.reqLogger(r).WarnContext
	if statusForError(err) >= http.StatusInternalServerError {
		level = s.reqLogger(r).ErrorContext
	}
	level(r.Context(), "Survey write failed",
		log.NewFields().WithOperation(op).WithError(err).ToSlice()...)
}

// written describes a successful write for the records:changed trigger.
type written struct {
	mode  core.WriteMode
	count int
}

// respondWrite answers a survey post. htmx requests get the banner fragment,
// plain form posts get the whole page back. done is nil for failed writes.
func (s *Server) respondWrite(w http.ResponseWriter, r *http.Request, status int, kind BannerKind, msg string, form map[string]string, done *written) {
	if isHTMX(r) {
		resp := NewFragment().WithStatus(status).WithBanner(kind, msg)
		if done != nil {
			resp.RecordsChanged(done.mode.String(), done.count).ResetForm()
		}
		resp.Write(w)
		return
	}

	page := s.newSurveyPage()
	page.Banner = &banner{Kind: kind, Message: msg}
	if form != nil {
		page.Form = form
	}
	s.render(w, r, status, "survey.html", page)
}
