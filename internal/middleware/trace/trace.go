package trace

import (
	"context"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"ledger/internal/log"
)

// ContextKey type for context keys
type ContextKey string

const (
	// RequestIDKey is the context key for request ID
	RequestIDKey ContextKey = "request_id"

	// RequestIDHeader carries the request ID in and out of the service.
	RequestIDHeader = "X-Request-ID"

	maxIncomingIDLength = 128
)

// Middleware assigns request IDs, tracks request metrics and logs every
// completed request.
type Middleware struct {
	extractIP func(*http.Request) string
	logger    *log.StructuredLogger

	totalRequests   atomic.Int64
	clientErrors    atomic.Int64
	serverErrors    atomic.Int64
	totalDurationUs atomic.Int64
}

// Metrics is a snapshot of request counters.
type Metrics struct {
	TotalRequests       int64
	ClientErrors        int64
	ServerErrors        int64
	AverageResponseTime int64 // in microseconds
}

func NewMiddleware(extractIP func(*http.Request) string, logger *log.Logger) *Middleware {
	return &Middleware{
		extractIP: extractIP,
		logger:    log.NewStructuredLogger(logger.WithComponent(log.ComponentHTTP)),
	}
}

// Middleware returns HTTP middleware for request tracing
func (m *Middleware) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		clientIP := ""
		if m.extractIP != nil {
			clientIP = m.extractIP(r)
		}

		requestID := r.Header.Get(RequestIDHeader)
		if requestID == "" || len(requestID) > maxIncomingIDLength {
			requestID = GenerateRequestID()
		}
		w.Header().Set(RequestIDHeader, requestID)

		ctx := context.WithValue(r.Context(), RequestIDKey, requestID)
		r = r.WithContext(ctx)

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(rw, r)

		duration := time.Since(start)
		m.record(rw.statusCode, duration)
		m.logger.LogHTTPEnd(ctx, r, rw.statusCode, duration.Milliseconds(), clientIP)
	})
}

func (m *Middleware) record(status int, d time.Duration) {
	m.totalRequests.Add(1)
	m.totalDurationUs.Add(d.Microseconds())
	switch {
	case status >= 500:
		m.serverErrors.Add(1)
	case status >= 400:
		m.clientErrors.Add(1)
	}
}

// responseWriter wraps http.ResponseWriter to capture the status code
type responseWriter struct {
	http.ResponseWriter
	statusCode  int
	wroteHeader bool
}

func (rw *responseWriter) WriteHeader(code int) {
	if !rw.wroteHeader {
		rw.statusCode = code
		rw.wroteHeader = true
	}
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	rw.wroteHeader = true
	return rw.ResponseWriter.Write(b)
}

// GenerateRequestID creates a unique request ID for tracing
func GenerateRequestID() string {
	return uuid.NewString()
}

// GetRequestID extracts the request ID from context
func GetRequestID(ctx context.Context) string {
	if id, ok := ctx.Value(RequestIDKey).(string); ok {
		return id
	}
	return ""
}

// FromRequest is GetRequestID for an *http.Request.
func FromRequest(r *http.Request) string {
	return GetRequestID(r.Context())
}

// GetMetrics returns current metrics
func (m *Middleware) GetMetrics() Metrics {
	total := m.totalRequests.Load()
	var avg int64
	if total > 0 {
		avg = m.totalDurationUs.Load() / total
	}
	return Metrics{
		TotalRequests:       total,
		ClientErrors:        m.clientErrors.Load(),
		ServerErrors:        m.serverErrors.Load(),
		AverageResponseTime: avg,
	}
}
