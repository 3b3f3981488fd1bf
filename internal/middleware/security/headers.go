package security

import (
	"fmt"
	"net/http"
)

// HeadersConfig holds security headers configuration
type HeadersConfig struct {
	// Content Security Policy
	CSP string

	// HSTS settings
	HSTSMaxAge            int
	HSTSIncludeSubdomains bool

	XFrameOptions       string
	XContentTypeOptions string
	ReferrerPolicy      string
	CrossOriginResource string

	// CacheControl is applied to every response; ledger state must not be
	// served from intermediate caches.
	CacheControl string
}

// DefaultHeadersConfig returns defaults for a JSON API that serves no
// documents or scripts.
func DefaultHeadersConfig() HeadersConfig {
	return HeadersConfig{
		CSP:                   "default-src 'none'; frame-ancestors 'none'",
		HSTSMaxAge:            31536000, // 1 year
		HSTSIncludeSubdomains: true,
		XFrameOptions:         "DENY",
		XContentTypeOptions:   "nosniff",
		ReferrerPolicy:        "no-referrer",
		CrossOriginResource:   "same-origin",
		CacheControl:          "no-store",
	}
}

// HeadersMiddleware applies security headers to responses
type HeadersMiddleware struct {
	config HeadersConfig
}

func NewHeadersMiddleware(config HeadersConfig) *HeadersMiddleware {
	return &HeadersMiddleware{config: config}
}

// Middleware returns the HTTP middleware function
func (h *HeadersMiddleware) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h.applyHeaders(w, r)
		next.ServeHTTP(w, r)
	})
}

func (h *HeadersMiddleware) applyHeaders(w http.ResponseWriter, r *http.Request) {
	headers := w.Header()

	setIfPresent(headers, "X-Content-Type-Options", h.config.XContentTypeOptions)
	setIfPresent(headers, "X-Frame-Options", h.config.XFrameOptions)
	setIfPresent(headers, "Content-Security-Policy", h.config.CSP)
	setIfPresent(headers, "Referrer-Policy", h.config.ReferrerPolicy)
	setIfPresent(headers, "Cross-Origin-Resource-Policy", h.config.CrossOriginResource)
	setIfPresent(headers, "Cache-Control", h.config.CacheControl)

	// HSTS header (only for HTTPS)
	if r.TLS != nil && h.config.HSTSMaxAge > 0 {
		hstsValue := fmt.Sprintf("max-age=%d", h.config.HSTSMaxAge)
		if h.config.HSTSIncludeSubdomains {
			hstsValue += "; includeSubDomains"
		}
		headers.Set("Strict-Transport-Security", hstsValue)
	}
}

func setIfPresent(h http.Header, key, value string) {
	if value != "" {
		h.Set(key, value)
	}
}
