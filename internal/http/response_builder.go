// Package http provides HTTP server and handler implementations.
//
// This file implements a small builder for JSON responses, the JSON
// representations of ledger entities and the mapping from ledger errors to
// status codes.

package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"ledger/internal/core"
	"ledger/internal/log"
	"ledger/internal/middleware/trace"
)

// ResponseBuilder provides a fluent API for building JSON responses.
type ResponseBuilder struct {
	statusCode int
	headers    map[string]string
	body       any
}

// NewResponse creates a new response builder with default 200 status.
func NewResponse() *ResponseBuilder {
	return &ResponseBuilder{
		statusCode: http.StatusOK,
		headers:    make(map[string]string),
	}
}

// Status sets the HTTP status code for the response.
func (b *ResponseBuilder) Status(code int) *ResponseBuilder {
	b.statusCode = code
	return b
}

// Header sets a response header.
func (b *ResponseBuilder) Header(key, value string) *ResponseBuilder {
	b.headers[key] = value
	return b
}

// JSON sets the value encoded as the response body.
func (b *ResponseBuilder) JSON(v any) *ResponseBuilder {
	b.body = v
	return b
}

// Write sends the response. A nil body writes headers only.
func (b *ResponseBuilder) Write(w http.ResponseWriter) {
	for k, v := range b.headers {
		w.Header().Set(k, v)
	}
	if b.body == nil {
		w.WriteHeader(b.statusCode)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(b.statusCode)
	if err := json.NewEncoder(w).Encode(b.body); err != nil {
		slog.Error("Failed to encode response", "error", err, "status_code", b.statusCode)
	}
}

// ErrorBody is the JSON shape of every error response.
type ErrorBody struct {
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields,omitempty"`
}

// ErrorResponse builds an error response with optional field messages.
func ErrorResponse(status int, msg string, fields map[string]string) *ResponseBuilder {
	return NewResponse().Status(status).JSON(ErrorBody{Error: msg, Fields: fields})
}

// NoContent builds an empty 204 response.
func NoContent() *ResponseBuilder {
	return NewResponse().Status(http.StatusNoContent)
}

// errorResponseFor maps a ledger error to its response. ok is false for
// errors that are not part of the ledger error taxonomy.
func errorResponseFor(err error) (resp *ResponseBuilder, ok bool) {
	var (
		refErr    *core.ReferenceError
		schemaErr *core.SchemaError
		fundsErr  *core.InsufficientFundsError
	)

	switch {
	case errors.As(err, &refErr):
		var fields map[string]string
		if refErr.Field != "" {
			fields = map[string]string{refErr.Field: refErr.Error() + "."}
		}
		return ErrorResponse(http.StatusNotFound, refErr.Error(), fields), true

	case errors.As(err, &schemaErr):
		return ErrorResponse(http.StatusBadRequest, "invalid request.", schemaErr.Fields), true

	case errors.As(err, &fundsErr):
		msg := fundsErr.Message()
		return ErrorResponse(http.StatusBadRequest, msg, map[string]string{"amount": msg}), true
	}
	return nil, false
}

// writeError writes the response for err. Errors outside the ledger
// taxonomy are logged and reported as 500 without details.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error, operation string) {
	if resp, ok := errorResponseFor(err); ok {
		resp.Write(w)
		return
	}

	ctx := r.Context()
	errorType := log.ErrorTypeInternal
	if errors.Is(err, context.DeadlineExceeded) {
		errorType = log.ErrorTypeTimeout
	}
	s.structured.LogError(ctx, "Request failed", err, log.ComponentHTTP, operation,
		log.NewFields().WithRequestID(trace.FromRequest(r)).WithErrorType(errorType))
	ErrorResponse(http.StatusInternalServerError, "internal server error.", nil).Write(w)
}

// JSON representations.

type clientJSON struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

type accountJSON struct {
	ID     int64      `json:"id"`
	Client clientJSON `json:"client"`
}

type movementJSON struct {
	ID                  int64     `json:"id"`
	Account             int64     `json:"account"`
	MovementType        string    `json:"movement_type"`
	MovementTypeDisplay string    `json:"movement_type_display"`
	Amount              string    `json:"amount"`
	CreatedAt           time.Time `json:"created_at"`
}

type categoryJSON struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

type categoryClientJSON struct {
	ID       int64        `json:"id"`
	Client   int64        `json:"client"`
	Category categoryJSON `json:"category"`
}

type clientDetailJSON struct {
	Client     clientJSON           `json:"client"`
	Accounts   []accountJSON        `json:"accounts"`
	Categories []categoryClientJSON `json:"categories"`
}

type accountBalanceJSON struct {
	Account int64  `json:"account"`
	Balance string `json:"balance"`
}

type clientBalanceJSON struct {
	Client   clientJSON           `json:"client"`
	Accounts []accountBalanceJSON `json:"accounts"`
}

func toClientJSON(c core.Client) clientJSON {
	return clientJSON{ID: c.ID, Name: c.Name}
}

func toAccountJSON(a core.Account) accountJSON {
	return accountJSON{ID: a.ID, Client: toClientJSON(a.Client)}
}

func toMovementJSON(m core.Movement) movementJSON {
	return movementJSON{
		ID:                  m.ID,
		Account:             m.AccountID,
		MovementType:        m.Type.String(),
		MovementTypeDisplay: m.Type.Label(),
		Amount:              core.FormatAmount(m.Amount),
		CreatedAt:           m.CreatedAt.UTC(),
	}
}

func toCategoryJSON(c core.Category) categoryJSON {
	return categoryJSON{ID: c.ID, Name: c.Name}
}

func toCategoryClientJSON(cc core.CategoryClient) categoryClientJSON {
	return categoryClientJSON{ID: cc.ID, Client: cc.ClientID, Category: toCategoryJSON(cc.Category)}
}

func toClientDetailJSON(d core.ClientDetail) clientDetailJSON {
	out := clientDetailJSON{
		Client:     toClientJSON(d.Client),
		Accounts:   make([]accountJSON, 0, len(d.Accounts)),
		Categories: make([]categoryClientJSON, 0, len(d.Categories)),
	}
	for _, a := range d.Accounts {
		out.Accounts = append(out.Accounts, toAccountJSON(a))
	}
	for _, cc := range d.Categories {
		out.Categories = append(out.Categories, toCategoryClientJSON(cc))
	}
	return out
}

func toAccountBalanceJSON(b core.AccountBalance) accountBalanceJSON {
	return accountBalanceJSON{Account: b.AccountID, Balance: core.FormatAmount(b.Balance)}
}

func toClientBalanceJSON(b core.ClientBalance) clientBalanceJSON {
	out := clientBalanceJSON{
		Client:   toClientJSON(b.Client),
		Accounts: make([]accountBalanceJSON, 0, len(b.Accounts)),
	}
	for _, a := range b.Accounts {
		out.Accounts = append(out.Accounts, toAccountBalanceJSON(a))
	}
	return out
}
