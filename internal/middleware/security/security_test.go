package security

import (
	"crypto/tls"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHeadersMiddleware(t *testing.T) {
	h := NewHeadersMiddleware(DefaultHeadersConfig())
	handler := h.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	t.Run("plain HTTP", func(t *testing.T) {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/clients", nil))

		assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
		assert.Equal(t, "DENY", rec.Header().Get("X-Frame-Options"))
		assert.Equal(t, "default-src 'none'; frame-ancestors 'none'", rec.Header().Get("Content-Security-Policy"))
		assert.Equal(t, "no-store", rec.Header().Get("Cache-Control"))
		assert.Empty(t, rec.Header().Get("Strict-Transport-Security"))
	})

	t.Run("TLS adds HSTS", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/clients", nil)
		req.TLS = &tls.ConnectionState{}
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		assert.Equal(t, "max-age=31536000; includeSubDomains", rec.Header().Get("Strict-Transport-Security"))
	})
}

func TestHeadersMiddleware_EmptyValuesSkipped(t *testing.T) {
	h := NewHeadersMiddleware(HeadersConfig{XFrameOptions: "SAMEORIGIN"})
	rec := httptest.NewRecorder()
	h.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {})).
		ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, "SAMEORIGIN", rec.Header().Get("X-Frame-Options"))
	_, present := rec.Header()["Content-Security-Policy"]
	assert.False(t, present)
}

func TestDetector_DetectSuspiciousRequest(t *testing.T) {
	tests := []struct {
		name       string
		method     string
		target     string
		userAgent  string
		suspicious bool
	}{
		{name: "normal request", method: http.MethodGet, target: "/accounts/1/balance", userAgent: "ledgerctl/1.0"},
		{name: "curl is allowed", method: http.MethodPost, target: "/movements", userAgent: "curl/8.4.0"},
		{name: "path traversal", method: http.MethodGet, target: "/clients/../etc/passwd", suspicious: true},
		{name: "dotenv probe", method: http.MethodGet, target: "/.env", suspicious: true},
		{name: "traversal in query", method: http.MethodGet, target: "/clients?file=../secret", suspicious: true},
		{name: "scanner agent", method: http.MethodGet, target: "/", userAgent: "sqlmap/1.7", suspicious: true},
		{name: "trace method", method: "TRACE", target: "/", suspicious: true},
		{name: "long URL", method: http.MethodGet, target: "/" + strings.Repeat("a", 2100), suspicious: true},
	}

	d := NewDetector()
	want := int64(0)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.target, nil)
			if tt.userAgent != "" {
				req.Header.Set("User-Agent", tt.userAgent)
			}
			assert.Equal(t, tt.suspicious, d.DetectSuspiciousRequest(req))
		})
		if tt.suspicious {
			want++
		}
	}

	assert.Equal(t, want, d.GetMetrics().SuspiciousRequests)
}

func TestDetector_ExtractClientIP(t *testing.T) {
	d := NewDetector()

	tests := []struct {
		name       string
		remoteAddr string
		headers    map[string]string
		want       string
	}{
		{name: "direct public client", remoteAddr: "203.0.113.7:5555", want: "203.0.113.7"},
		{
			name:       "public client cannot spoof forwarded header",
			remoteAddr: "203.0.113.7:5555",
			headers:    map[string]string{"X-Forwarded-For": "1.1.1.1"},
			want:       "203.0.113.7",
		},
		{
			name:       "trusted proxy forwards first hop",
			remoteAddr: "10.0.0.2:443",
			headers:    map[string]string{"X-Forwarded-For": "198.51.100.4, 10.0.0.3"},
			want:       "198.51.100.4",
		},
		{
			name:       "trusted proxy with X-Real-IP",
			remoteAddr: "127.0.0.1:443",
			headers:    map[string]string{"X-Real-IP": "198.51.100.9"},
			want:       "198.51.100.9",
		},
		{
			name:       "invalid forwarded value falls back",
			remoteAddr: "192.168.1.10:443",
			headers:    map[string]string{"X-Forwarded-For": "not-an-ip"},
			want:       "192.168.1.10",
		},
		{name: "unparseable remote addr", remoteAddr: "garbage", want: "garbage"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remoteAddr
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			assert.Equal(t, tt.want, d.ExtractClientIP(req))
		})
	}

	assert.Equal(t, int64(1), d.GetMetrics().InvalidIPAttempts)
}

func TestDetector_AddTrustedProxy(t *testing.T) {
	d := NewDetector()
	require.Error(t, d.AddTrustedProxy("nope"))
	require.NoError(t, d.AddTrustedProxy("203.0.113.0/24"))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "203.0.113.1:80"
	req.Header.Set("X-Forwarded-For", "198.51.100.1")
	assert.Equal(t, "198.51.100.1", d.ExtractClientIP(req))
}
