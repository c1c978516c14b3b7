package log

import (
	"context"
	"log/slog"
	"net/http"
	"time"
)

type loggerKey struct{}

// NewContext returns ctx carrying logger.
func NewContext(ctx context.Context, logger *Logger) context.Context {
	return context.WithValue(ctx, loggerKey{}, logger)
}

// ContextLogger returns the logger stored by NewContext, if any.
func ContextLogger(ctx context.Context) (*Logger, bool) {
	l, ok := ctx.Value(loggerKey{}).(*Logger)
	return l, ok
}

// FromContext is ContextLogger falling back to the slog default under the
// "unknown" component.
func FromContext(ctx context.Context) *Logger {
	if l, ok := ContextLogger(ctx); ok {
		return l
	}
	return &Logger{Logger: slog.Default(), component: "unknown"}
}

// Middleware gives each request a logger tagged with its request ID and logs
// one line per completed request. 4xx log at warn and 5xx at error. Either
// func may be nil.
func Middleware(logger *Logger, requestID func(*http.Request) string, clientIP func(*http.Request) string) func(http.Handler) http.Handler {
	base := logger.WithComponent(ComponentHTTP)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			reqLogger := base
			if requestID != nil {
				if id := requestID(r); id != "" {
					reqLogger = base.With(FieldRequestID, id)
				}
			}

			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rec, r.WithContext(NewContext(r.Context(), reqLogger)))

			fields := NewFields().
				With(FieldMethod, r.Method).
				With(FieldPath, r.URL.Path).
				With(FieldStatusCode, rec.status).
				With(FieldDuration, time.Since(start).Milliseconds())
			if r.URL.RawQuery != "" {
				fields = fields.With(FieldQuery, r.URL.RawQuery)
			}
			if clientIP != nil {
				fields = fields.With(FieldClientIP, clientIP(r))
			}
			reqLogger.LogContext(r.Context(), levelForStatus(rec.status), "HTTP request completed", fields...)
		})
	}
}

func levelForStatus(status int) slog.Level {
	switch {
	case status >= 500:
		return slog.LevelError
	case status >= 400:
		return slog.LevelWarn
	}
	return slog.LevelInfo
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}
