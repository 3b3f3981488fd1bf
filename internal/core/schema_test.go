package core

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeBody(t *testing.T, raw string) map[string]any {
	t.Helper()
	dec := json.NewDecoder(bytes.NewBufferString(raw))
	dec.UseNumber()
	var body map[string]any
	require.NoError(t, dec.Decode(&body))
	return body
}

func schemaFields(t *testing.T, err error) map[string]string {
	t.Helper()
	var serr *SchemaError
	require.True(t, errors.As(err, &serr), "expected SchemaError, got %v", err)
	return serr.Fields
}

func TestMovementSchemaDecode(t *testing.T) {
	values, err := MovementSchema.Decode(decodeBody(t, `{"account": 7, "movement_type": "cash_inflow", "amount": 10000}`))
	require.NoError(t, err)

	assert.Equal(t, int64(7), values.Int64("account"))
	assert.Equal(t, "cash_inflow", values.String("movement_type"))
	assert.True(t, values.Decimal("amount").Equal(decimal.NewFromInt(10000)))
}

func TestMovementSchemaAcceptsStringNumbers(t *testing.T) {
	values, err := MovementSchema.Decode(decodeBody(t, `{"account": "7", "movement_type": "cash_outflow", "amount": "12,50"}`))
	require.NoError(t, err)

	assert.Equal(t, int64(7), values.Int64("account"))
	assert.True(t, values.Decimal("amount").Equal(decimal.RequireFromString("12.5")))
}

func TestMovementSchemaKeepsNegativeAmount(t *testing.T) {
	values, err := MovementSchema.Decode(decodeBody(t, `{"account": 1, "movement_type": "cash_inflow", "amount": -3}`))
	require.NoError(t, err)
	assert.True(t, values.Decimal("amount").IsNegative())
}

func TestMovementSchemaReportsEveryField(t *testing.T) {
	_, err := MovementSchema.Decode(decodeBody(t, `{"account": "x", "movement_type": "transfer"}`))
	fields := schemaFields(t, err)

	assert.Equal(t, "a valid integer is required.", fields["account"])
	assert.Equal(t, `"transfer" is not a valid choice.`, fields["movement_type"])
	assert.Equal(t, "this field is required.", fields["amount"])
}

func TestMovementSchemaRejectsScale(t *testing.T) {
	_, err := MovementSchema.Decode(decodeBody(t, `{"account": 1, "movement_type": "cash_inflow", "amount": 1.005}`))
	fields := schemaFields(t, err)
	assert.Equal(t, "ensure that there are no more than 2 decimal places.", fields["amount"])
}

func TestClientSchema(t *testing.T) {
	values, err := ClientSchema.Decode(decodeBody(t, `{"name": "  Pedro Arroyo "}`))
	require.NoError(t, err)
	assert.Equal(t, "Pedro Arroyo", values.String("name"))

	_, err = ClientSchema.Decode(decodeBody(t, `{"name": ""}`))
	assert.Equal(t, "this field may not be blank.", schemaFields(t, err)["name"])

	_, err = ClientSchema.Decode(decodeBody(t, `{"name": 12}`))
	assert.Equal(t, "not a valid string.", schemaFields(t, err)["name"])

	_, err = ClientSchema.Decode(decodeBody(t, `{}`))
	assert.Equal(t, "this field is required.", schemaFields(t, err)["name"])
}

func TestAssignmentSchemaLeavesIDRangeToLookup(t *testing.T) {
	values, err := AssignmentSchema.Decode(decodeBody(t, `{"client": 0, "category": -2}`))
	require.NoError(t, err)
	assert.Equal(t, int64(0), values.Int64("client"))
	assert.Equal(t, int64(-2), values.Int64("category"))

	_, err = AssignmentSchema.Decode(decodeBody(t, `{"client": 1.5, "category": null}`))
	fields := schemaFields(t, err)
	assert.Equal(t, "a valid integer is required.", fields["client"])
	assert.Equal(t, "this field is required.", fields["category"])
}

func TestMovementSchemaAmountNotation(t *testing.T) {
	tests := []struct {
		amount string
		want   string
	}{
		{amount: `2e3`, want: "2000"},
		{amount: `10.500`, want: "10.5"},
		{amount: `"1,25"`, want: "1.25"},
	}

	for _, tt := range tests {
		t.Run(tt.amount, func(t *testing.T) {
			values, err := MovementSchema.Decode(decodeBody(t,
				`{"account": 1, "movement_type": "cash_inflow", "amount": `+tt.amount+`}`))
			require.NoError(t, err)
			assert.True(t, values.Decimal("amount").Equal(decimal.RequireFromString(tt.want)))
		})
	}
}
