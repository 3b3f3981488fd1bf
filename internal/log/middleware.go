package log

import (
	"context"
	"log/slog"
	"net/http"
)

// ContextKey type for context keys
type ContextKey string

const (
	// LoggerContextKey is the context key for the logger
	LoggerContextKey ContextKey = "logger"
)

// Middleware creates HTTP middleware that adds a logger to the request context
func Middleware(logger *Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := context.WithValue(r.Context(), LoggerContextKey, logger)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// FromContext extracts a logger from the request context
func FromContext(ctx context.Context) *Logger {
	if logger, ok := ctx.Value(LoggerContextKey).(*Logger); ok {
		return logger
	}
	return &Logger{
		Logger:    slog.Default(),
		component: "unknown",
	}
}

// RequestIDMiddleware adds request ID to logger context
func RequestIDMiddleware(extractRequestID func(*http.Request) string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			requestID := extractRequestID(r)
			if requestID == "" {
				next.ServeHTTP(w, r)
				return
			}

			logger := FromContext(r.Context()).With(FieldRequestID, requestID)
			ctx := context.WithValue(r.Context(), LoggerContextKey, logger)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// StructuredLogger provides structured logging methods with context awareness
type StructuredLogger struct {
	logger *Logger
}

func NewStructuredLogger(logger *Logger) *StructuredLogger {
	return &StructuredLogger{logger: logger}
}

func (sl *StructuredLogger) log(ctx context.Context, level slog.Level, msg string, fields LogFields) {
	logger := sl.logger
	if c, ok := fields[FieldComponent].(string); ok {
		logger = logger.WithComponent(c)
	}
	logger.Log(ctx, level, msg, fields.ToSlice()...)
}

// LogHTTPEnd logs the completion of an HTTP request. 4xx responses are
// logged at warn level, 5xx at error level.
func (sl *StructuredLogger) LogHTTPEnd(ctx context.Context, r *http.Request, statusCode int, durationMs int64, clientIP string) {
	level := slog.LevelInfo
	if statusCode >= 400 && statusCode < 500 {
		level = slog.LevelWarn
	} else if statusCode >= 500 {
		level = slog.LevelError
	}

	fields := NewFields().
		WithHTTPRequest(r.Method, r.URL.Path, r.URL.RawQuery, r.Header.Get("User-Agent")).
		WithHTTPResponse(statusCode, durationMs).
		WithClientIP(clientIP).
		WithComponent(ComponentHTTP)

	sl.log(ctx, level, "HTTP request completed", fields)
}

// LogMovementAdmitted logs a movement accepted by the validator
func (sl *StructuredLogger) LogMovementAdmitted(ctx context.Context, id, accountID int64, movementType, amount string) {
	fields := NewFields().
		WithMovement(id, accountID, movementType, amount).
		WithOperation(OpCreate).
		WithComponent(ComponentLedger)

	sl.log(ctx, slog.LevelInfo, "Movement admitted", fields)
}

// LogError logs an error with structured context
func (sl *StructuredLogger) LogError(ctx context.Context, msg string, err error, component, operation string, fields LogFields) {
	if fields == nil {
		fields = NewFields()
	}
	fields.
		WithError(err).
		WithOperation(operation).
		WithComponent(component)

	sl.log(ctx, slog.LevelError, msg, fields)
}
