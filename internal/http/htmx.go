package http

import (
	"encoding/json"
	"html/template"
	"net/http"
)

// htmx events the page scripts listen for.
const (
	EventRecordsChanged = "records:changed"
	EventFormReset      = "form:reset"
)

// BannerKind selects the banner style class.
type BannerKind string

const (
	BannerSuccess BannerKind = "success"
	BannerError   BannerKind = "error"
	BannerWarning BannerKind = "warning"
	BannerInfo    BannerKind = "info"
)

// Fragment is an htmx reply: a status, one banner and any HX-Trigger events.
type Fragment struct {
	status int
	kind   BannerKind
	text   string
	events map[string]any
}

// NewFragment starts a 200 reply with no banner.
func NewFragment() *Fragment {
	return &Fragment{status: http.StatusOK}
}

// ErrorFragment is an error banner sent with the given status.
func ErrorFragment(status int, message string) *Fragment {
	return NewFragment().WithStatus(status).WithBanner(BannerError, message)
}

func (f *Fragment) WithStatus(code int) *Fragment {
	f.status = code
	return f
}

func (f *Fragment) WithBanner(kind BannerKind, message string) *Fragment {
	f.kind, f.text = kind, message
	return f
}

// Fire queues an HX-Trigger event. A nil detail is sent as an empty object.
func (f *Fragment) Fire(event string, detail any) *Fragment {
	if f.events == nil {
		f.events = make(map[string]any)
	}
	if detail == nil {
		detail = struct{}{}
	}
	f.events[event] = detail
	return f
}

// RecordsChanged tells the page the store was written so chart images reload.
func (f *Fragment) RecordsChanged(mode string, count int) *Fragment {
	return f.Fire(EventRecordsChanged, map[string]any{"mode": mode, "count": count})
}

// ResetForm clears the submitted form on the client.
func (f *Fragment) ResetForm() *Fragment {
	return f.Fire(EventFormReset, nil)
}

func (f *Fragment) Write(w http.ResponseWriter) {
	if len(f.events) > 0 {
		if raw, err := json.Marshal(f.events); err == nil {
			w.Header().Set("HX-Trigger", string(raw))
		}
	}
	if f.kind == "" {
		w.WriteHeader(f.status)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(f.status)
	_, _ = w.Write([]byte(bannerHTML(f.kind, f.text)))
}

func bannerHTML(kind BannerKind, message string) string {
	return `<div class="banner ` + string(kind) + `" role="status">` + template.HTMLEscapeString(message) + `</div>`
}
