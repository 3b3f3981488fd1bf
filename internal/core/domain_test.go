package core

import (
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestMovementTypeValid(t *testing.T) {
	assert.True(t, CashInflow.Valid())
	assert.True(t, CashOutflow.Valid())
	assert.False(t, MovementType("transfer").Valid())
	assert.False(t, MovementType("").Valid())
}

func TestMovementTypeLabel(t *testing.T) {
	assert.Equal(t, "Ingreso", CashInflow.Label())
	assert.Equal(t, "Egreso", CashOutflow.Label())
	assert.Equal(t, "other", MovementType("other").Label())
}

func TestMovementSigned(t *testing.T) {
	amount := decimal.NewFromInt(25)
	in := Movement{Type: CashInflow, Amount: amount}
	out := Movement{Type: CashOutflow, Amount: amount}

	assert.True(t, in.Signed().Equal(amount))
	assert.True(t, out.Signed().Equal(amount.Neg()))
	assert.True(t, Movement{Type: "transfer", Amount: amount}.Signed().IsZero())
}

func TestValidateName(t *testing.T) {
	assert.NoError(t, ValidateName("Pedro Arroyo"))
	assert.ErrorIs(t, ValidateName("   "), ErrEmptyName)
	assert.ErrorIs(t, ValidateName(strings.Repeat("x", 501)), ErrNameTooLong)
}

func TestErrorMessages(t *testing.T) {
	ref := NewReferenceError("account", "account", 999)
	assert.Equal(t, "account not found", ref.Error())

	serr := &SchemaError{}
	assert.True(t, serr.Empty())
	serr.Add("name", "this field is required.")
	serr.Add("name", "ignored")
	serr.Add("amount", "a valid number is required.")
	assert.False(t, serr.Empty())
	assert.Equal(t, "invalid request: amount: a valid number is required.; name: this field is required.", serr.Error())

	funds := &InsufficientFundsError{AccountID: 3, Balance: decimal.NewFromInt(2000), Requested: decimal.NewFromInt(10000)}
	assert.Equal(t, InsufficientFundsMessage, funds.Message())
	assert.Contains(t, funds.Error(), "balance 2000, requested 10000")
}
