package http

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ledger/internal/core"
)

func TestResponseBuilder(t *testing.T) {
	rec := httptest.NewRecorder()

	NewResponse().
		Status(http.StatusCreated).
		Header("Location", "/clients/1").
		JSON(clientJSON{ID: 1, Name: "Ana"}).
		Write(rec)

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "/clients/1", rec.Header().Get("Location"))
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"id": 1, "name": "Ana"}`, rec.Body.String())
}

func TestResponseBuilder_NoContent(t *testing.T) {
	rec := httptest.NewRecorder()
	NoContent().Write(rec)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Empty(t, rec.Header().Get("Content-Type"))
	assert.Empty(t, rec.Body.String())
}

func TestErrorResponseFor(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		body   string
	}{
		{
			name:   "reference with field",
			err:    fmt.Errorf("admit movement: %w", core.NewReferenceError("account", "account", 9)),
			status: http.StatusNotFound,
			body:   `{"error": "account not found", "fields": {"account": "account not found."}}`,
		},
		{
			name:   "reference from path",
			err:    core.NewReferenceError("movement", "", 9),
			status: http.StatusNotFound,
			body:   `{"error": "movement not found"}`,
		},
		{
			name:   "schema",
			err:    core.NewSchemaError("name", "this field is required."),
			status: http.StatusBadRequest,
			body:   `{"error": "invalid request.", "fields": {"name": "this field is required."}}`,
		},
		{
			name: "insufficient funds",
			err: &core.InsufficientFundsError{
				AccountID: 1,
				Balance:   decimal.NewFromInt(8000),
				Requested: decimal.NewFromInt(10000),
			},
			status: http.StatusBadRequest,
			body: fmt.Sprintf(`{"error": %q, "fields": {"amount": %q}}`,
				core.InsufficientFundsMessage, core.InsufficientFundsMessage),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, ok := errorResponseFor(tt.err)
			require.True(t, ok)

			rec := httptest.NewRecorder()
			resp.Write(rec)
			assert.Equal(t, tt.status, rec.Code)
			assert.JSONEq(t, tt.body, rec.Body.String())
		})
	}

	_, ok := errorResponseFor(errors.New("disk full"))
	assert.False(t, ok)
}

func TestWriteError_Internal(t *testing.T) {
	srv := newTestServer(t, 100)
	rec := httptest.NewRecorder()

	srv.writeError(rec, httptest.NewRequest(http.MethodGet, "/clients", nil), errors.New("disk full"), "list")

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"error": "internal server error."}`, rec.Body.String())
}

func TestToMovementJSON(t *testing.T) {
	m := core.Movement{
		ID:        4,
		AccountID: 2,
		Type:      core.CashOutflow,
		Amount:    decimal.RequireFromString("12.5"),
	}

	got := toMovementJSON(m)
	assert.Equal(t, "12.50", got.Amount)
	assert.Equal(t, "cash_outflow", got.MovementType)
	assert.Equal(t, "Egreso", got.MovementTypeDisplay)
	assert.Equal(t, int64(2), got.Account)
}
