package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"

	"ledger/internal/core"
)

// MovementValidator admits movements, refusing outflows that would overdraw
// the account.
//
// Admission against one account is serialized: an in-process lock is held
// across the check-then-insert sequence, which itself runs inside a single
// store transaction. With SQLite the transaction starts with BEGIN IMMEDIATE,
// so writers from other processes on the same file are serialized as well.
type MovementValidator struct {
	store core.TxMovementStore
	locks *accountLocks
}

func NewMovementValidator(store core.TxMovementStore) *MovementValidator {
	return &MovementValidator{
		store: store,
		locks: newAccountLocks(),
	}
}

// ValidateAndAdmit checks, in order, that the account exists, that the
// movement type and amount are acceptable and, for outflows, that the amount
// does not exceed the current balance. On success the stored movement is
// returned.
func (v *MovementValidator) ValidateAndAdmit(ctx context.Context, accountID int64, t core.MovementType, amount decimal.Decimal) (core.Movement, error) {
	unlock := v.locks.Lock(accountID)
	defer unlock()

	var created core.Movement
	err := v.store.WithinTx(ctx, func(tx core.MovementStore) error {
		exists, err := tx.AccountExists(ctx, accountID)
		if err != nil {
			return err
		}
		if !exists {
			return core.NewReferenceError("account", "account", accountID)
		}

		if err := checkMovementFields(t, amount); err != nil {
			return err
		}

		if t == core.CashOutflow {
			balance, err := NewBalanceCalculator(tx).ComputeBalance(ctx, accountID)
			if err != nil {
				return err
			}
			if amount.GreaterThan(balance) {
				return &core.InsufficientFundsError{
					AccountID: accountID,
					Balance:   balance,
					Requested: amount,
				}
			}
		}

		created, err = tx.CreateMovement(ctx, accountID, t, amount)
		return err
	})
	if err != nil {
		var insufficient *core.InsufficientFundsError
		if errors.As(err, &insufficient) {
			slog.InfoContext(ctx, "Outflow rejected",
				"account_id", accountID,
				"balance", insufficient.Balance.String(),
				"amount", amount.String())
		}
		return core.Movement{}, fmt.Errorf("admit movement: %w", err)
	}

	return created, nil
}

func checkMovementFields(t core.MovementType, amount decimal.Decimal) error {
	serr := &core.SchemaError{}
	if !t.Valid() {
		serr.Add("movement_type", fmt.Sprintf("%q is not a valid choice.", string(t)))
	}
	switch err := core.ValidateAmount(amount); {
	case errors.Is(err, core.ErrNegativeAmount):
		serr.Add("amount", "ensure this value is greater than or equal to 0.")
	case errors.Is(err, core.ErrAmountScale):
		serr.Add("amount", "ensure that there are no more than 2 decimal places.")
	}
	if !serr.Empty() {
		return serr
	}
	return nil
}
