package security

import (
	"net/http"
	"strconv"
	"strings"
)

// HeadersConfig is the fixed header set added to every response.
type HeadersConfig struct {
	// Always is copied onto every response.
	Always map[string]string
	// HSTS is the Strict-Transport-Security value, sent only over TLS.
	HSTS string
}

// contentPolicy lets the pages load their own stylesheet, script and SVG
// charts plus htmx from unpkg.
var contentPolicy = []string{
	"default-src 'self'",
	"script-src 'self' https://unpkg.com",
	"style-src 'self'",
	"img-src 'self' data:",
	"connect-src 'self'",
	"object-src 'none'",
	"frame-ancestors 'none'",
	"base-uri 'self'",
	"form-action 'self'",
}

func DefaultHeadersConfig() HeadersConfig {
	return HeadersConfig{
		Always: map[string]string{
			"Content-Security-Policy":      strings.Join(contentPolicy, "; "),
			"X-Content-Type-Options":       "nosniff",
			"X-Frame-Options":              "DENY",
			"Referrer-Policy":              "strict-origin-when-cross-origin",
			"Permissions-Policy":           "geolocation=(), microphone=(), camera=()",
			"Cross-Origin-Opener-Policy":   "same-origin",
			"Cross-Origin-Resource-Policy": "same-origin",
		},
		HSTS: "max-age=31536000; includeSubDomains",
	}
}

type HeadersMiddleware struct {
	config HeadersConfig
}

func NewHeadersMiddleware(config HeadersConfig) *HeadersMiddleware {
	return &HeadersMiddleware{config: config}
}

func (h *HeadersMiddleware) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		out := w.Header()
		for name, value := range h.config.Always {
			out.Set(name, value)
		}
		if r.TLS != nil && h.config.HSTS != "" {
			out.Set("Strict-Transport-Security", h.config.HSTS)
		}
		next.ServeHTTP(w, r)
	})
}

// StaticAssetMiddleware lets browsers keep embedded assets for maxAge seconds.
func StaticAssetMiddleware(maxAge int) func(http.Handler) http.Handler {
	value := "public, max-age=" + strconv.Itoa(maxAge)
	return func(next http.Handler) http.Handler {
		if maxAge <= 0 {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Cache-Control", value)
			next.ServeHTTP(w, r)
		})
	}
}

// NoStore keeps chart images of live data out of browser caches.
func NoStore(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "no-store")
		next.ServeHTTP(w, r)
	})
}
