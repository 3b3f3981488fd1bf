package services

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"ledger/internal/core"
)

// BalanceCalculator derives account balances from movement history.
type BalanceCalculator struct {
	movements core.MovementReader
}

func NewBalanceCalculator(movements core.MovementReader) *BalanceCalculator {
	return &BalanceCalculator{movements: movements}
}

// ComputeBalance returns inflows minus outflows for the account. An account
// without movements, or one that does not exist, has a zero balance.
func (c *BalanceCalculator) ComputeBalance(ctx context.Context, accountID int64) (decimal.Decimal, error) {
	movements, err := c.movements.ListMovementsByAccount(ctx, accountID)
	if err != nil {
		return decimal.Zero, fmt.Errorf("compute balance of account %d: %w", accountID, err)
	}
	return SumMovements(movements), nil
}

// SumMovements is the balance of an arbitrary movement list: inflows add,
// outflows subtract, each side contributing zero when absent.
func SumMovements(movements []core.Movement) decimal.Decimal {
	balance := decimal.Zero
	for _, m := range movements {
		balance = balance.Add(m.Signed())
	}
	return balance
}
