// Package http provides HTTP server and handler implementations.
//
// This file implements parsing of survey submissions and of the visuals page
// controls. Control values arrive on every request; nothing is kept between
// requests.

package http

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"screentime/internal/core"
	"screentime/internal/dashboard"
)

const maxBodyBytes = 64 << 10

// Query and form field names shared with the templates.
const (
	fieldCategory   = "category"
	fieldHours      = "hours"
	fieldDays       = "days"
	fieldMinHours   = "min_hours"
	fieldLabel      = "label"
	fieldSelected   = "selected"
	weekFieldPrefix = "hours_"
)

// ParseTrendParams reads the trend slider. A missing or non-numeric value
// selects the default window.
func ParseTrendParams(query url.Values) dashboard.TrendParams {
	days, err := strconv.Atoi(strings.TrimSpace(query.Get(fieldDays)))
	if err != nil {
		return dashboard.TrendParams{}
	}
	return dashboard.TrendParams{Days: days}
}

// ParseActivityParams reads the activity picker and the hours threshold.
// The hidden "selected" field distinguishes an explicit empty selection from
// a first visit, where every label is shown.
func ParseActivityParams(query url.Values) dashboard.ActivityParams {
	p := dashboard.ActivityParams{Selected: query.Has(fieldSelected)}
	if v := strings.TrimSpace(query.Get(fieldMinHours)); v != "" {
		if h, err := core.ParseHours(v); err == nil && h > 0 {
			p.MinHours = h
		}
	}
	for _, l := range query[fieldLabel] {
		if l = sanitizeInput(l); l != "" {
			p.Labels = append(p.Labels, l)
		}
	}
	return p
}

// ParseRecordInput builds one record from a survey submission. Hours outside
// a single day are rejected.
func ParseRecordInput(p *RequestBodyParser) (core.Record, error) {
	category := p.Get(fieldCategory)
	if category == "" {
		return core.Record{}, &core.ValidationError{Field: fieldCategory, Reason: "required"}
	}
	hours, err := core.ParseHours(p.Get(fieldHours))
	if err != nil {
		return core.Record{}, err
	}
	if err := core.ValidateHours(hours); err != nil {
		return core.Record{}, err
	}
	rec := core.Record{Category: category, Value: hours}
	return rec, rec.Validate()
}

// ParseWeekInput reads one hours_<Day> field per weekday. Blank days are left
// out so they are written as 0.
func ParseWeekInput(p *RequestBodyParser) (map[string]float64, error) {
	week := make(map[string]float64, len(core.Weekdays))
	for _, day := range core.Weekdays {
		raw := p.Get(weekFieldPrefix + day)
		if raw == "" {
			continue
		}
		h, err := core.ParseHours(raw)
		if err != nil {
			var pe *core.ParseError
			if errors.As(err, &pe) {
				pe.Field = weekFieldPrefix + day
			}
			return nil, err
		}
		week[day] = h
	}
	return week, nil
}

// RequestBodyParser handles different content types for request body parsing.
// It supports both JSON and form-encoded data, commonly used with HTMX.
type RequestBodyParser struct {
	body        []byte
	contentType string
	jsonData    map[string]any
	formData    url.Values
	parsed      bool
	err         error
}

// NewRequestBodyParser reads at most maxBodyBytes of the request body.
func NewRequestBodyParser(w http.ResponseWriter, r *http.Request) *RequestBodyParser {
	p := &RequestBodyParser{
		contentType: r.Header.Get("Content-Type"),
	}
	p.body, p.err = io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	return p
}

// Parse attempts to parse the body as JSON or form data.
func (p *RequestBodyParser) Parse() error {
	if p.parsed {
		return p.err
	}
	p.parsed = true

	if p.err != nil {
		return p.err
	}

	if len(p.body) == 0 {
		p.formData = url.Values{}
		return nil
	}

	if p.body[0] == '{' || strings.HasPrefix(p.contentType, "application/json") {
		p.jsonData = make(map[string]any)
		if err := json.Unmarshal(p.body, &p.jsonData); err != nil {
			p.err = err
			return err
		}
		return nil
	}

	p.formData, p.err = url.ParseQuery(string(p.body))
	return p.err
}

// Get returns a sanitized string value from the parsed data (JSON or form).
func (p *RequestBodyParser) Get(key string) string {
	if p.jsonData != nil {
		if val, ok := p.jsonData[key]; ok {
			return sanitizeInput(stringValue(val))
		}
		return ""
	}
	if p.formData != nil {
		return sanitizeInput(p.formData.Get(key))
	}
	return ""
}

// IsJSON returns true if the parsed content was JSON.
func (p *RequestBodyParser) IsJSON() bool {
	return p.jsonData != nil
}

func stringValue(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	default:
		return ""
	}
}
