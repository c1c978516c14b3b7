package http

import (
	"context"
	"encoding/json"
	"html/template"
	"io/fs"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"screentime/internal/adapters"
	"screentime/internal/cache"
	"screentime/internal/core"
	"screentime/internal/log"
	"screentime/internal/middleware/ratelimit"
	"screentime/internal/middleware/security"
	"screentime/internal/middleware/trace"
	"screentime/internal/services"
	"screentime/internal/store"
	appweb "screentime/web"
)

const (
	chartCacheSize  = 64
	loadTimeout     = 7 * time.Second
	readyTimeout    = 5 * time.Second
	cleanupInterval = 10 * time.Minute
)

// Config wires the server to its collaborators.
type Config struct {
	Addr     string
	Recorder *services.Recorder
	Records  store.RecordLoader
	Document store.DocumentLoader
	CacheTTL time.Duration
	Logger   *log.Logger
	// ReadyCheck probes the backend for /readyz. Nil means always ready.
	ReadyCheck func(context.Context) error
}

type Server struct {
	http.Server
	templates  *template.Template
	recorder   *services.Recorder
	records    store.RecordLoader
	document   store.DocumentLoader
	readyCheck func(context.Context) error
	logger     *log.Logger
	started    time.Time

	chartCache   *cache.LRUCache[[]byte]
	cacheManager *cache.Manager

	rateLimiter *ratelimit.Limiter
	detector    *security.Detector
	tracer      *trace.Middleware

	shutdownOnce sync.Once
}

// NewServer configures routes, middleware and templates, returning a ready-to-run server.
func NewServer(cfg Config) *Server {
	logger := cfg.Logger
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}

	s := &Server{
		recorder:     cfg.Recorder,
		readyCheck:   cfg.ReadyCheck,
		logger:       logger.WithComponent(log.ComponentHTTP),
		started:      time.Now(),
		chartCache:   cache.NewLRUCache[[]byte](chartCacheSize, cfg.CacheTTL),
		cacheManager: cache.NewManager(),
		rateLimiter:  ratelimit.NewLimiter(ratelimit.DefaultConfig()),
		detector:     security.NewDetector(),
		tracer:       trace.NewMiddleware(),
	}

	if cfg.Records != nil {
		s.records = adapters.NewInstrumentedRecords(cfg.Records)
	}
	if cfg.Document != nil {
		s.document = adapters.NewInstrumentedDocument(cfg.Document)
	}

	s.cacheManager.Register(s.chartCache)
	s.cacheManager.StartCleanup(cleanupInterval)
	if s.recorder != nil {
		s.recorder.OnChange(s.chartCache.Purge)
	}

	t, err := template.New("").Funcs(templateFuncs).ParseFS(appweb.TemplatesFS, "templates/*.html")
	if err != nil {
		s.logger.Warn("Failed parsing templates", log.FieldError, err)
	} else {
		s.templates = t
	}

	s.Server = http.Server{
		Addr:              cfg.Addr,
		Handler:           s.middleware(s.routes(logger)),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

func (s *Server) routes(logger *log.Logger) http.Handler {
	mux := http.NewServeMux()

	if sub, err := fs.Sub(appweb.StaticFS, "static"); err == nil {
		static := http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
		mux.Handle("GET /static/", security.StaticAssetMiddleware(3600)(static))
	} else {
		logger.Warn("Failed to mount embedded static FS", log.FieldError, err)
	}

	mux.HandleFunc("GET /{$}", s.handleSurvey)
	mux.HandleFunc("POST /records", s.handleAppendRecord)
	mux.HandleFunc("POST /records/week", s.handleReplaceWeek)
	mux.HandleFunc("GET /visuals", s.handleVisuals)
	mux.Handle("GET /charts/{name}", security.NoStore(http.HandlerFunc(s.handleChart)))

	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.Handle("GET /metrics", promhttp.Handler())

	return mux
}

// middleware wraps h, outermost first: request ID, request log, security
// headers, request screening, write rate limit.
func (s *Server) middleware(h http.Handler) http.Handler {
	h = s.rateLimiter.Middleware(s.detector.ExtractClientIP, func(w http.ResponseWriter, r *http.Request) {
		s.reqLogger(r).WarnContext(r.Context(), "Rate limit exceeded",
			log.FieldClientIP, s.detector.ExtractClientIP(r),
			log.FieldPath, r.URL.Path)
		ErrorFragment(http.StatusTooManyRequests, "Too many submissions. Please try again later.").Write(w)
	})(h)
	h = s.detector.Middleware(h)
	h = security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware(h)
	h = log.Middleware(s.logger, trace.FromRequest, s.detector.ExtractClientIP)(h)
	h = s.tracer.Middleware(h)
	return h
}

// InvalidateCharts drops every cached chart image. Used when a source changes
// outside the recorder, such as an edited document.
func (s *Server) InvalidateCharts() {
	s.chartCache.Purge()
}

// Shutdown stops background routines and then the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.cacheManager.Stop()
		s.rateLimiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// handleHealth performs basic liveness check
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"timestamp": time.Now().Format(time.RFC3339),
		"uptime":    time.Since(s.started).Round(time.Second).String(),
	})
}

// handleReady reports whether templates are loaded and the backend answers
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
	defer cancel()

	status := "ready"
	httpStatus := http.StatusOK
	checks := make(map[string]any)

	if s.templates == nil {
		checks["templates"] = "failed: templates not loaded"
		status, httpStatus = "not_ready", http.StatusServiceUnavailable
	} else {
		checks["templates"] = "ok"
	}

	switch {
	case s.readyCheck == nil:
		checks["backend"] = "ok"
	default:
		if err := s.readyCheck(ctx); err != nil {
			checks["backend"] = "failed: " + err.Error()
			status, httpStatus = "not_ready", http.StatusServiceUnavailable
		} else {
			checks["backend"] = "ok"
		}
	}

	checks["chart_cache"] = map[string]any{"entries": s.chartCache.Size()}
	checks["rate_limiter"] = map[string]any{
		"active_clients": s.rateLimiter.ActiveClients(),
		"rejected":       s.rateLimiter.TotalHits(),
	}
	checks["suspicious_requests"] = s.detector.SuspiciousCount()

	writeJSON(w, httpStatus, map[string]any{
		"status":    status,
		"timestamp": time.Now().Format(time.RFC3339),
		"checks":    checks,
	})
}

// reqLogger is the request-scoped logger set up by log.Middleware.
func (s *Server) reqLogger(r *http.Request) *log.Logger {
	if l, ok := log.ContextLogger(r.Context()); ok {
		return l
	}
	return s.logger
}

// render executes a page template, falling back to a plain 500 when templates are missing.
func (s *Server) render(w http.ResponseWriter, r *http.Request, status int, name string, data any) {
	if s.templates == nil {
		s.reqLogger(r).ErrorContext(r.Context(), "Templates not loaded",
			log.FieldPath, r.URL.Path,
			log.FieldErrorType, log.ErrorTypeConfiguration)
		http.Error(w, "templates not loaded", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := s.templates.ExecuteTemplate(w, name, data); err != nil {
		s.reqLogger(r).ErrorContext(r.Context(), "Template execution failed",
			log.FieldError, err,
			"template", name)
	}
}

var templateFuncs = template.FuncMap{
	"value": core.FormatValue,
}
