// Package trace assigns every request an ID and records its latency.
package trace

import (
	"context"
	"net/http"
	"regexp"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"screentime/internal/observability"
)

// HeaderRequestID carries the ID in both directions.
const HeaderRequestID = "X-Request-ID"

type requestIDKey struct{}

// acceptedID limits reused client IDs to short log-safe tokens.
var acceptedID = regexp.MustCompile(`^[A-Za-z0-9._-]{1,64}$`)

type Middleware struct {
	served atomic.Int64
}

func NewMiddleware() *Middleware {
	return &Middleware{}
}

// Middleware keeps a well-formed incoming X-Request-ID or mints one, echoes
// it on the response and stores it in the request context. Each request's
// method, status and latency go to the HTTP metrics.
func (m *Middleware) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		m.served.Add(1)

		id := r.Header.Get(HeaderRequestID)
		if !acceptedID.MatchString(id) {
			id = GenerateRequestID()
		}
		w.Header().Set(HeaderRequestID, id)

		sw := &statusWriter{ResponseWriter: w, code: http.StatusOK}
		next.ServeHTTP(sw, r.WithContext(context.WithValue(r.Context(), requestIDKey{}, id)))

		observability.ObserveHTTPRequest(r.Method, sw.code, time.Since(start))
	})
}

// TotalRequests counts requests seen since start.
func (m *Middleware) TotalRequests() int64 {
	return m.served.Load()
}

type statusWriter struct {
	http.ResponseWriter
	code int
}

func (w *statusWriter) WriteHeader(code int) {
	w.code = code
	w.ResponseWriter.WriteHeader(code)
}

func GenerateRequestID() string {
	return "req_" + uuid.NewString()
}

// GetRequestID returns "" outside a traced request.
func GetRequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

func FromRequest(r *http.Request) string {
	return GetRequestID(r.Context())
}
