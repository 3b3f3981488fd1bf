package core

import (
	"fmt"
	"sort"
	"strings"

	"github.com/shopspring/decimal"
)

// InsufficientFundsMessage is shown to callers when an outflow exceeds the balance.
const InsufficientFundsMessage = "account balance is lower than the amount requested for extraction."

// ReferenceError reports an identifier that does not resolve to a stored entity.
// Field names the request field that carried the identifier, if any.
type ReferenceError struct {
	Entity string
	Field  string
	ID     int64
}

func (e *ReferenceError) Error() string {
	return e.Entity + " not found"
}

// NewReferenceError builds a ReferenceError for entity id carried by field.
func NewReferenceError(entity, field string, id int64) *ReferenceError {
	return &ReferenceError{Entity: entity, Field: field, ID: id}
}

// SchemaError collects field-level problems with a request body.
type SchemaError struct {
	Fields map[string]string
}

// NewSchemaError returns a SchemaError with a single field message.
func NewSchemaError(field, msg string) *SchemaError {
	return &SchemaError{Fields: map[string]string{field: msg}}
}

// Add records msg for field, keeping the first message per field.
func (e *SchemaError) Add(field, msg string) {
	if e.Fields == nil {
		e.Fields = make(map[string]string)
	}
	if _, ok := e.Fields[field]; !ok {
		e.Fields[field] = msg
	}
}

// Empty reports whether no field problem was recorded.
func (e *SchemaError) Empty() bool {
	return e == nil || len(e.Fields) == 0
}

func (e *SchemaError) Error() string {
	names := make([]string, 0, len(e.Fields))
	for name := range e.Fields {
		names = append(names, name)
	}
	sort.Strings(names)

	parts := make([]string, 0, len(names))
	for _, name := range names {
		parts = append(parts, name+": "+e.Fields[name])
	}
	return "invalid request: " + strings.Join(parts, "; ")
}

// InsufficientFundsError rejects an outflow larger than the account balance.
type InsufficientFundsError struct {
	AccountID int64
	Balance   decimal.Decimal
	Requested decimal.Decimal
}

func (e *InsufficientFundsError) Error() string {
	return fmt.Sprintf("account %d: %s (balance %s, requested %s)",
		e.AccountID, InsufficientFundsMessage, e.Balance.String(), e.Requested.String())
}

// Message is the user facing text of the error.
func (e *InsufficientFundsError) Message() string {
	return InsufficientFundsMessage
}
