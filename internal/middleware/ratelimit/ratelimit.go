// Package ratelimit throttles write requests per client IP with a fixed
// one-minute window.
package ratelimit

import (
	"net/http"
	"slices"
	"strconv"
	"sync"
	"sync/atomic"
	"time"
)

const (
	window = time.Minute
	// clients silent for this long are forgotten by the sweeper
	idleAfter = 10 * window
)

// Config sets the per-client budget. Zero fields take DefaultConfig values.
type Config struct {
	RequestsPerMinute int
	CleanupInterval   time.Duration
	// Methods subject to the limit; reads are never throttled by default.
	Methods []string
}

// DefaultConfig allows 60 survey submissions per minute per client.
func DefaultConfig() Config {
	return Config{
		RequestsPerMinute: 60,
		CleanupInterval:   5 * time.Minute,
		Methods:           []string{http.MethodPost},
	}
}

// bucket is one client's usage in its current window.
type bucket struct {
	opened time.Time
	seen   time.Time
	used   int
}

// Limiter counts requests per client. Create it with NewLimiter and end its
// sweeper with Stop.
type Limiter struct {
	cfg Config
	now func() time.Time

	mu      sync.Mutex
	buckets map[string]*bucket

	rejected atomic.Int64
	quit     chan struct{}
	stopOnce sync.Once
}

func NewLimiter(cfg Config) *Limiter {
	def := DefaultConfig()
	if cfg.RequestsPerMinute <= 0 {
		cfg.RequestsPerMinute = def.RequestsPerMinute
	}
	if cfg.CleanupInterval <= 0 {
		cfg.CleanupInterval = def.CleanupInterval
	}
	if len(cfg.Methods) == 0 {
		cfg.Methods = def.Methods
	}

	rl := &Limiter{
		cfg:     cfg,
		now:     time.Now,
		buckets: make(map[string]*bucket),
		quit:    make(chan struct{}),
	}
	go rl.sweepLoop()
	return rl
}

// Allow spends one request from ip's budget. Rejected requests still count
// as activity but never move the window.
func (rl *Limiter) Allow(ip string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	b := rl.buckets[ip]
	if b == nil || now.Sub(b.opened) >= window {
		rl.buckets[ip] = &bucket{opened: now, seen: now, used: 1}
		return true
	}
	b.seen = now
	b.used++
	if b.used <= rl.cfg.RequestsPerMinute {
		return true
	}
	rl.rejected.Add(1)
	return false
}

// RetryAfter is the time left until ip's window reopens.
func (rl *Limiter) RetryAfter(ip string) time.Duration {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	b := rl.buckets[ip]
	if b == nil {
		return 0
	}
	return max(window-rl.now().Sub(b.opened), 0)
}

func (rl *Limiter) ActiveClients() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.buckets)
}

// TotalHits counts rejected requests since start.
func (rl *Limiter) TotalHits() int64 {
	return rl.rejected.Load()
}

// Stop ends the sweeper. Repeated calls are no-ops.
func (rl *Limiter) Stop() {
	rl.stopOnce.Do(func() { close(rl.quit) })
}

func (rl *Limiter) sweepLoop() {
	tick := time.NewTicker(rl.cfg.CleanupInterval)
	defer tick.Stop()
	for {
		select {
		case <-rl.quit:
			return
		case <-tick.C:
			rl.sweep()
		}
	}
}

func (rl *Limiter) sweep() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	cutoff := rl.now().Add(-idleAfter)
	for ip, b := range rl.buckets {
		if b.seen.Before(cutoff) {
			delete(rl.buckets, ip)
		}
	}
}

// Middleware throttles the configured methods and passes everything else
// through. onLimit writes the rejection body; nil sends a plain 429.
// Retry-After is set before onLimit runs.
func (rl *Limiter) Middleware(clientIP func(*http.Request) string, onLimit func(http.ResponseWriter, *http.Request)) func(http.Handler) http.Handler {
	if onLimit == nil {
		onLimit = func(w http.ResponseWriter, _ *http.Request) {
			http.Error(w, "Rate limit exceeded. Please try again later.", http.StatusTooManyRequests)
		}
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !slices.Contains(rl.cfg.Methods, r.Method) {
				next.ServeHTTP(w, r)
				return
			}
			ip := clientIP(r)
			if rl.Allow(ip) {
				next.ServeHTTP(w, r)
				return
			}
			secs := int(rl.RetryAfter(ip).Round(time.Second) / time.Second)
			w.Header().Set("Retry-After", strconv.Itoa(max(secs, 1)))
			onLimit(w, r)
		})
	}
}
