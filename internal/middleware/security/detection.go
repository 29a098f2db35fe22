package security

import (
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync/atomic"
)

// Metrics counts security-relevant events.
type Metrics struct {
	suspiciousRequests int64
}

// SuspiciousRequests returns a snapshot of the suspicious request counter.
func (m *Metrics) SuspiciousRequests() int64 {
	return atomic.LoadInt64(&m.suspiciousRequests)
}

var suspiciousPatterns = []string{
	"../", "..\\", ".env", "wp-admin", "phpmyadmin",
	"admin.php", "config.php", ".git", ".ssh",
	"eval(", "javascript:", "<script", "union select",
	"etc/passwd", "cmd.exe",
}

// IsSuspicious analyzes request patterns for potential probes. Hits only
// increment metrics; blocking is left to the caller.
func IsSuspicious(r *http.Request, metrics *Metrics) bool {
	suspicious := false

	path := strings.ToLower(r.URL.Path)
	query := strings.ToLower(r.URL.RawQuery)
	if unescaped, err := url.QueryUnescape(query); err == nil {
		query = unescaped
	}
	for _, pattern := range suspiciousPatterns {
		if strings.Contains(path, pattern) || strings.Contains(query, pattern) {
			suspicious = true
			break
		}
	}

	if len(r.URL.String()) > 2048 {
		suspicious = true
	}

	switch r.Method {
	case "TRACE", "TRACK", "CONNECT":
		suspicious = true
	}

	if suspicious && metrics != nil {
		atomic.AddInt64(&metrics.suspiciousRequests, 1)
	}

	return suspicious
}

// Detection returns middleware that flags suspicious requests in the logs
// without rejecting them.
func Detection(metrics *Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if IsSuspicious(r, metrics) {
				slog.WarnContext(r.Context(), "Suspicious request detected",
					"method", r.Method,
					"path", r.URL.Path,
					"client_ip", ClientIP(r))
			}
			next.ServeHTTP(w, r)
		})
	}
}
