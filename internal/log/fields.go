package log

// Common field names for structured logging
const (
	FieldComponent    = "component"
	FieldRequestID    = "request_id"
	FieldClientIP     = "client_ip"
	FieldMethod       = "method"
	FieldPath         = "path"
	FieldQuery        = "query"
	FieldStatusCode   = "status_code"
	FieldDuration     = "duration_ms"
	FieldUserAgent    = "user_agent"
	FieldSuccess      = "success"
	FieldError        = "error"
	FieldErrorType    = "error_type"
	FieldOperation    = "operation"
	FieldClientID     = "client_id"
	FieldAccountID    = "account_id"
	FieldMovementID   = "movement_id"
	FieldMovementType = "movement_type"
	FieldAmount       = "amount"
	FieldCategoryID   = "category_id"
)

// Components defines standard component names
const (
	ComponentApp       = "app"
	ComponentHTTP      = "http"
	ComponentLedger    = "ledger"
	ComponentStorage   = "storage"
	ComponentAMQP      = "amqp"
	ComponentWorker    = "worker"
	ComponentCache     = "cache"
	ComponentSecurity  = "security"
	ComponentRateLimit = "rate_limit"
	ComponentCLI       = "cli"
)

// Operations defines standard operation names
const (
	OpCreate   = "create"
	OpRead     = "read"
	OpUpdate   = "update"
	OpDelete   = "delete"
	OpList     = "list"
	OpBalance  = "balance"
	OpAssign   = "assign"
	OpShutdown = "shutdown"
	OpStartup  = "startup"
)

// ErrorTypes defines standard error type categories
const (
	ErrorTypeValidation        = "validation_error"
	ErrorTypeInsufficientFunds = "insufficient_funds"
	ErrorTypeNotFound          = "not_found_error"
	ErrorTypeDatabase          = "database_error"
	ErrorTypeTimeout           = "timeout_error"
	ErrorTypeInternal          = "internal_error"
)

// LogFields provides a builder pattern for structured log fields
type LogFields map[string]any

func NewFields() LogFields {
	return make(LogFields)
}

func (f LogFields) WithComponent(component string) LogFields {
	f[FieldComponent] = component
	return f
}

func (f LogFields) WithRequestID(requestID string) LogFields {
	if requestID != "" {
		f[FieldRequestID] = requestID
	}
	return f
}

func (f LogFields) WithClientIP(ip string) LogFields {
	f[FieldClientIP] = ip
	return f
}

func (f LogFields) WithError(err error) LogFields {
	if err != nil {
		f[FieldError] = err.Error()
	}
	return f
}

func (f LogFields) WithErrorType(errorType string) LogFields {
	f[FieldErrorType] = errorType
	return f
}

func (f LogFields) WithOperation(op string) LogFields {
	f[FieldOperation] = op
	return f
}

// WithMovement adds movement related fields. Amount is decimal text.
func (f LogFields) WithMovement(id, accountID int64, movementType, amount string) LogFields {
	f[FieldMovementID] = id
	f[FieldAccountID] = accountID
	f[FieldMovementType] = movementType
	f[FieldAmount] = amount
	return f
}

func (f LogFields) WithHTTPRequest(method, path, query, userAgent string) LogFields {
	f[FieldMethod] = method
	f[FieldPath] = path
	if query != "" {
		f[FieldQuery] = query
	}
	if userAgent != "" {
		f[FieldUserAgent] = userAgent
	}
	return f
}

func (f LogFields) WithHTTPResponse(statusCode int, durationMs int64) LogFields {
	f[FieldStatusCode] = statusCode
	f[FieldDuration] = durationMs
	f[FieldSuccess] = statusCode < 400
	return f
}

// ToSlice converts LogFields to a slice for slog. The component key is left
// out because Logger adds its own.
func (f LogFields) ToSlice() []any {
	slice := make([]any, 0, len(f)*2)
	for k, v := range f {
		if k == FieldComponent {
			continue
		}
		slice = append(slice, k, v)
	}
	return slice
}
