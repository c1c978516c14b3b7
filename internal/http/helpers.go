package http

import (
	"errors"
	"net/http"
	"net/url"
	"strings"

	"screentime/internal/core"
	"screentime/internal/services"
)

// sanitizeInput folds CRLF line breaks to LF, removes the other control
// characters except tab, and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(strings.ReplaceAll(s, "\r\n", "\n"))
	return strings.Map(func(r rune) rune {
		if r < 32 && r != '\t' && r != '\n' {
			return -1
		}
		return r
	}, s)
}

// statusForError maps a write failure to a response code: bad input is 422,
// anything else is the server's fault.
func statusForError(err error) int {
	if services.IsInputError(err) {
		return http.StatusUnprocessableEntity
	}
	return http.StatusInternalServerError
}

// userMessage is the banner text for a failed write.
func userMessage(err error) string {
	var ve *core.ValidationError
	if errors.As(err, &ve) {
		return "Invalid " + ve.Field + ": " + ve.Reason
	}
	var pe *core.ParseError
	if errors.As(err, &pe) {
		field := pe.Field
		if field == "" {
			field = "input"
		}
		return "Invalid " + field + ": enter a number"
	}
	return "Could not save the data. Please try again."
}

// isHTMX reports whether the request was issued by htmx and expects a fragment.
func isHTMX(r *http.Request) bool {
	return r.Header.Get("HX-Request") == "true"
}

// chartURL builds a chart image URL carrying the page controls.
func chartURL(name string, query url.Values) string {
	u := "/charts/" + name + ".svg"
	if enc := query.Encode(); enc != "" {
		u += "?" + enc
	}
	return u
}
