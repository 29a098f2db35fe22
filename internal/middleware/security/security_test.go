package security

import (
	"net/http/httptest"
	"testing"
)

func TestClientIP(t *testing.T) {
	tests := []struct {
		name       string
		remoteAddr string
		xff        string
		xRealIP    string
		want       string
	}{
		{
			name:       "direct connection",
			remoteAddr: "203.0.113.7:51000",
			want:       "203.0.113.7",
		},
		{
			name:       "trusted proxy honors forwarded-for",
			remoteAddr: "127.0.0.1:8080",
			xff:        "203.0.113.7, 10.0.0.1",
			want:       "203.0.113.7",
		},
		{
			name:       "trusted proxy honors real-ip",
			remoteAddr: "192.168.1.1:8080",
			xRealIP:    "203.0.113.9",
			want:       "203.0.113.9",
		},
		{
			name:       "untrusted peer ignores forwarded-for",
			remoteAddr: "203.0.113.7:51000",
			xff:        "1.2.3.4",
			want:       "203.0.113.7",
		},
		{
			name:       "garbage forwarded-for falls back to peer",
			remoteAddr: "10.0.0.5:443",
			xff:        "not-an-ip",
			want:       "10.0.0.5",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest("GET", "/", nil)
			r.RemoteAddr = tt.remoteAddr
			if tt.xff != "" {
				r.Header.Set("X-Forwarded-For", tt.xff)
			}
			if tt.xRealIP != "" {
				r.Header.Set("X-Real-IP", tt.xRealIP)
			}
			if got := ClientIP(r); got != tt.want {
				t.Errorf("ClientIP() = %q; want %q", got, tt.want)
			}
		})
	}
}

func TestIsSuspicious(t *testing.T) {
	tests := []struct {
		name   string
		target string
		want   bool
	}{
		{"normal api call", "/api/transactions?year=2024", false},
		{"path traversal", "/api/../../etc/passwd", true},
		{"env probe", "/.env", true},
		{"wordpress probe", "/wp-admin/setup.php", true},
		{"sql injection in query", "/api/transactions?q=union%20select", true},
	}

	metrics := &Metrics{}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest("GET", tt.target, nil)
			if got := IsSuspicious(r, metrics); got != tt.want {
				t.Errorf("IsSuspicious(%q) = %v; want %v", tt.target, got, tt.want)
			}
		})
	}

	if metrics.SuspiciousRequests() != 4 {
		t.Errorf("suspicious counter = %d; want 4", metrics.SuspiciousRequests())
	}
}
