package http

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

const readyTimeout = 5 * time.Second

// handleHealth performs basic liveness check
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	NewResponse().JSON(map[string]any{
		"status":    "ok",
		"timestamp": time.Now().Format(time.RFC3339),
		"uptime":    time.Since(s.appMetrics.uptime).String(),
	}).Write(w)
}

// handleReady checks that the store answers within readyTimeout.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
	defer cancel()

	status := "ready"
	httpStatus := http.StatusOK
	checks := make(map[string]any)

	switch {
	case s.ready == nil:
		checks["store"] = "not_configured"
		status = "not_ready"
		httpStatus = http.StatusServiceUnavailable
	default:
		if err := s.ready(ctx); err != nil {
			checks["store"] = fmt.Sprintf("failed: %v", err)
			status = "not_ready"
			httpStatus = http.StatusServiceUnavailable
		} else {
			checks["store"] = "ok"
		}
	}

	cacheStats := s.ledger.CategoryCache().Stats()
	checks["cache"] = map[string]any{
		"category_entries": cacheStats.Size,
		"status":           "ok",
	}
	checks["rate_limiter"] = map[string]any{
		"active_clients": s.rateLimiter.GetMetrics().ClientCount,
		"status":         "ok",
	}

	NewResponse().Status(httpStatus).JSON(map[string]any{
		"status":    status,
		"timestamp": time.Now().Format(time.RFC3339),
		"checks":    checks,
	}).Write(w)
}

// handleMetrics provides application and security metrics in plain text format
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")

	traceMetrics := s.traceMiddleware.GetMetrics()
	rateLimitMetrics := s.rateLimiter.GetMetrics()
	securityMetrics := s.securityDetector.GetMetrics()
	cacheStats := s.ledger.CategoryCache().Stats()

	w.WriteHeader(http.StatusOK)

	writeMetric(w, "http_requests_total", "Total number of HTTP requests", "counter", traceMetrics.TotalRequests)
	writeMetric(w, "http_client_errors_total", "HTTP responses with a 4xx status", "counter", traceMetrics.ClientErrors)
	writeMetric(w, "http_server_errors_total", "HTTP responses with a 5xx status", "counter", traceMetrics.ServerErrors)
	writeMetric(w, "http_request_duration_avg_microseconds", "Average request duration", "gauge", traceMetrics.AverageResponseTime)

	writeMetric(w, "movements_admitted_total", "Movements admitted by the validator", "counter", s.appMetrics.movementsAdmitted.Load())
	writeMetric(w, "movements_rejected_total", "Outflows rejected for insufficient funds", "counter", s.appMetrics.movementsRejected.Load())
	writeMetric(w, "movements_deleted_total", "Movements deleted", "counter", s.appMetrics.movementsDeleted.Load())

	writeMetric(w, "cache_hits_total", "Category cache hits", "counter", cacheStats.Hits)
	writeMetric(w, "cache_misses_total", "Category cache misses", "counter", cacheStats.Misses)
	writeMetric(w, "cache_entries", "Current category cache entries", "gauge", cacheStats.Size)

	writeMetric(w, "rate_limit_rejected_total", "Requests rejected by the rate limiter", "counter", rateLimitMetrics.Rejected)
	writeMetric(w, "active_rate_limit_clients", "Currently tracked rate limit clients", "gauge", rateLimitMetrics.ClientCount)
	writeMetric(w, "suspicious_requests_total", "Total suspicious requests detected", "counter", securityMetrics.SuspiciousRequests)
	writeMetric(w, "invalid_forwarded_ip_total", "Forwarded client addresses that failed to parse", "counter", securityMetrics.InvalidIPAttempts)

	fmt.Fprintf(w, "# HELP uptime_seconds Application uptime in seconds\n")
	fmt.Fprintf(w, "# TYPE uptime_seconds gauge\n")
	fmt.Fprintf(w, "uptime_seconds %.0f\n\n", time.Since(s.appMetrics.uptime).Seconds())
}

func writeMetric[T int | int64](w io.Writer, name, help, kind string, value T) {
	fmt.Fprintf(w, "# HELP %s %s\n", name, help)
	fmt.Fprintf(w, "# TYPE %s %s\n", name, kind)
	fmt.Fprintf(w, "%s %d\n\n", name, value)
}
