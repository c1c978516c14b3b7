// Package security holds the response-header and request-screening middleware.
package security

import (
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/netip"
	"slices"
	"strings"
	"sync/atomic"
)

const (
	maxURLLength = 2048
	maxProxyHops = 6
)

var (
	probeMarkers = []string{
		"../", "..\\", ".env", ".git", ".ssh", "etc/passwd", "cmd.exe",
		"wp-admin", "phpmyadmin", "admin.php", "config.php",
		"<script", "javascript:", "eval(", "union select",
	}
	scannerAgents  = []string{"sqlmap", "nmap", "nikto", "gobuster", "dirb", "masscan"}
	blockedMethods = []string{"TRACE", "TRACK", "DEBUG", "CONNECT"}

	// peers allowed to set X-Forwarded-For and X-Real-IP
	defaultProxies = []string{"127.0.0.0/8", "10.0.0.0/8", "172.16.0.0/12", "192.168.0.0/16", "::1/128"}
)

// Detector turns away scanner traffic and resolves the caller's IP.
type Detector struct {
	flagged atomic.Int64
	proxies []netip.Prefix
}

// NewDetector trusts loopback and private networks as proxies.
func NewDetector() *Detector {
	d := &Detector{}
	for _, cidr := range defaultProxies {
		d.proxies = append(d.proxies, netip.MustParsePrefix(cidr))
	}
	return d
}

// AddTrustedProxy must be called before the detector serves requests.
func (d *Detector) AddTrustedProxy(cidr string) error {
	p, err := netip.ParsePrefix(cidr)
	if err != nil {
		return fmt.Errorf("trusted proxy %q: %w", cidr, err)
	}
	d.proxies = append(d.proxies, p.Masked())
	return nil
}

// Suspicious reports and counts requests that look like probes.
func (d *Detector) Suspicious(r *http.Request) bool {
	if reason(r) == "" {
		return false
	}
	d.flagged.Add(1)
	return true
}

func (d *Detector) SuspiciousCount() int64 {
	return d.flagged.Load()
}

// reason names the first rule r trips, or "".
func reason(r *http.Request) string {
	if len(r.URL.String()) > maxURLLength {
		return "url too long"
	}
	if slices.Contains(blockedMethods, r.Method) {
		return "method " + r.Method
	}
	target := strings.ToLower(r.URL.Path + "?" + r.URL.RawQuery)
	for _, m := range probeMarkers {
		if strings.Contains(target, m) {
			return "probe " + m
		}
	}
	ua := strings.ToLower(r.UserAgent())
	for _, a := range scannerAgents {
		if strings.Contains(ua, a) {
			return "scanner " + a
		}
	}
	if strings.Count(r.Header.Get("X-Forwarded-For"), ",") >= maxProxyHops {
		return "too many proxy hops"
	}
	return ""
}

// Middleware answers probes with a bare 400.
func (d *Detector) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if why := reason(r); why != "" {
			d.flagged.Add(1)
			slog.WarnContext(r.Context(), "Suspicious request rejected",
				"component", "security",
				"reason", why,
				"client_ip", d.ExtractClientIP(r),
				"method", r.Method,
				"path", r.URL.Path)
			http.Error(w, "Bad Request", http.StatusBadRequest)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// ExtractClientIP returns the peer address, or the forwarded client when the
// peer is a trusted proxy and the forwarded value parses.
func (d *Detector) ExtractClientIP(r *http.Request) string {
	peer, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		peer = r.RemoteAddr
	}
	addr, err := netip.ParseAddr(peer)
	if err != nil || !d.trusted(addr.Unmap()) {
		return peer
	}

	first, _, _ := strings.Cut(r.Header.Get("X-Forwarded-For"), ",")
	for _, candidate := range []string{first, r.Header.Get("X-Real-IP")} {
		if c := strings.TrimSpace(candidate); c != "" {
			if _, err := netip.ParseAddr(c); err == nil {
				return c
			}
		}
	}
	return peer
}

func (d *Detector) trusted(addr netip.Addr) bool {
	return slices.ContainsFunc(d.proxies, func(p netip.Prefix) bool { return p.Contains(addr) })
}
