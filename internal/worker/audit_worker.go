package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"

	"ledger/internal/amqp"
	"ledger/internal/core"
	"ledger/internal/services"
)

// AuditWorker keeps the movement audit trail: for every movement event it
// records the balance of the account right after the event was observed.
type AuditWorker struct {
	store      core.AuditStore
	calculator *services.BalanceCalculator
}

func NewAuditWorker(store core.AuditStore) *AuditWorker {
	return &AuditWorker{
		store:      store,
		calculator: services.NewBalanceCalculator(store),
	}
}

// HandleMovementEvent processes a single movement event from AMQP. A
// redelivered message that is already in the trail is acknowledged without
// writing a second row.
func (w *AuditWorker) HandleMovementEvent(ctx context.Context, event *amqp.MovementEvent) error {
	slog.InfoContext(ctx, "Processing movement event",
		"event", event.Event,
		"message_id", event.MessageID,
		"movement_id", event.MovementID,
		"account_id", event.AccountID)

	amount, err := decimal.NewFromString(event.Amount)
	if err != nil {
		// Redelivery cannot fix a malformed amount
		slog.ErrorContext(ctx, "Dropping event with invalid amount",
			"message_id", event.MessageID,
			"amount", event.Amount,
			"error", err)
		return nil
	}

	balance, err := w.calculator.ComputeBalance(ctx, event.AccountID)
	if err != nil {
		return fmt.Errorf("compute balance: %w", err)
	}

	entry, err := w.store.RecordMovementAudit(ctx, core.MovementAudit{
		MessageID:    event.MessageID,
		Event:        event.Event,
		MovementID:   event.MovementID,
		AccountID:    event.AccountID,
		MovementType: core.MovementType(event.MovementType),
		Amount:       amount,
		BalanceAfter: balance,
	})
	if errors.Is(err, core.ErrDuplicateEvent) {
		slog.InfoContext(ctx, "Movement event already audited",
			"message_id", event.MessageID,
			"movement_id", event.MovementID)
		return nil
	}
	if err != nil {
		return fmt.Errorf("record movement audit: %w", err)
	}

	slog.InfoContext(ctx, "Movement audit recorded",
		"audit_id", entry.ID,
		"account_id", entry.AccountID,
		"balance_after", core.FormatAmount(entry.BalanceAfter))

	return nil
}

// Trail returns the recorded audit entries of an account, oldest first.
func (w *AuditWorker) Trail(ctx context.Context, accountID int64) ([]core.MovementAudit, error) {
	return w.store.ListMovementAudit(ctx, accountID)
}
