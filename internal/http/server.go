package http

import (
	"context"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"ledger/internal/log"
	"ledger/internal/middleware/ratelimit"
	"ledger/internal/middleware/security"
	"ledger/internal/middleware/trace"
	"ledger/internal/services"
)

// Config configures the HTTP server.
type Config struct {
	Addr               string
	RateLimitPerMinute int
	Logger             *log.Logger
	// Ready reports whether the backing store can serve requests.
	Ready func(context.Context) error
}

// Server serves the ledger JSON API.
type Server struct {
	http.Server
	ledger *services.LedgerService
	ready  func(context.Context) error

	logger     *log.Logger
	structured *log.StructuredLogger

	rateLimiter      *ratelimit.Limiter
	securityDetector *security.Detector
	traceMiddleware  *trace.Middleware
	headers          *security.HeadersMiddleware

	appMetrics   appMetrics
	shutdownOnce sync.Once
}

type appMetrics struct {
	uptime            time.Time
	movementsAdmitted atomic.Int64
	movementsRejected atomic.Int64
	movementsDeleted  atomic.Int64
}

// NewServer configures routes and middleware, returning a ready-to-run server.
func NewServer(cfg Config, ledger *services.LedgerService) *Server {
	logger := cfg.Logger
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	logger = logger.WithComponent(log.ComponentHTTP)

	detector := security.NewDetector()

	s := &Server{
		ledger:           ledger,
		ready:            cfg.Ready,
		logger:           logger,
		structured:       log.NewStructuredLogger(logger),
		securityDetector: detector,
		traceMiddleware:  trace.NewMiddleware(detector.ExtractClientIP, logger),
		headers:          security.NewHeadersMiddleware(security.DefaultHeadersConfig()),
		rateLimiter: ratelimit.NewLimiter(ratelimit.Config{
			RequestsPerMinute: cfg.RateLimitPerMinute,
		}),
	}
	s.appMetrics.uptime = time.Now()

	mux := http.NewServeMux()
	s.routes(mux)

	s.Server = http.Server{
		Addr:              cfg.Addr,
		Handler:           s.middleware(mux),
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

func (s *Server) routes(mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.HandleFunc("GET /metrics", s.handleMetrics)

	mux.HandleFunc("GET /clients", s.handleListClients)
	mux.HandleFunc("POST /clients", s.handleCreateClient)
	mux.HandleFunc("POST /clients/categories", s.handleAssignCategory)
	mux.HandleFunc("GET /clients/{id}", s.handleGetClient)
	mux.HandleFunc("PUT /clients/{id}", s.handleRenameClient)
	mux.HandleFunc("DELETE /clients/{id}", s.handleDeleteClient)
	mux.HandleFunc("GET /clients/{id}/accounts", s.handleClientBalances)
	mux.HandleFunc("POST /clients/{id}/accounts", s.handleOpenAccount)

	mux.HandleFunc("GET /accounts/{id}/balance", s.handleAccountBalance)
	mux.HandleFunc("DELETE /accounts/{id}", s.handleDeleteAccount)

	mux.HandleFunc("POST /movements", s.handleCreateMovement)
	mux.HandleFunc("GET /movements/{id}", s.handleGetMovement)
	mux.HandleFunc("DELETE /movements/{id}", s.handleDeleteMovement)

	mux.HandleFunc("GET /categories", s.handleListCategories)
	mux.HandleFunc("POST /categories", s.handleCreateCategory)
	mux.HandleFunc("DELETE /categories/{id}", s.handleDeleteCategory)
}

// middleware wraps the mux, outermost first: request logger, tracing,
// request-scoped logger, security headers, detection, write rate limiting.
func (s *Server) middleware(next http.Handler) http.Handler {
	h := s.rateLimiter.Middleware(
		s.securityDetector.ExtractClientIP,
		s.handleRateLimited,
		http.MethodPost, http.MethodPut, http.MethodDelete,
	)(next)
	h = s.detectSuspicious(h)
	h = s.headers.Middleware(h)
	h = log.RequestIDMiddleware(trace.FromRequest)(h)
	h = s.traceMiddleware.Middleware(h)
	return log.Middleware(s.logger)(h)
}

func (s *Server) detectSuspicious(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.securityDetector.DetectSuspiciousRequest(r) {
			log.FromContext(r.Context()).WithComponent(log.ComponentSecurity).WarnContext(r.Context(),
				"Suspicious request detected",
				log.FieldClientIP, s.securityDetector.ExtractClientIP(r),
				log.FieldMethod, r.Method,
				log.FieldPath, r.URL.Path,
				log.FieldUserAgent, r.UserAgent())
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleRateLimited(w http.ResponseWriter, r *http.Request) {
	log.FromContext(r.Context()).WithComponent(log.ComponentRateLimit).WarnContext(r.Context(),
		"Rate limit exceeded",
		log.FieldClientIP, s.securityDetector.ExtractClientIP(r),
		log.FieldMethod, r.Method,
		log.FieldPath, r.URL.Path)
	ErrorResponse(http.StatusTooManyRequests, "rate limit exceeded, please try again later.", nil).Write(w)
}

// Shutdown gracefully shuts down the server and its background routines.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.rateLimiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}
