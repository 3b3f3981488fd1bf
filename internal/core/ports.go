package core

import (
	"context"

	"github.com/shopspring/decimal"
)

// Ports implemented by the storage layer.
type (
	// MovementReader lists the movement history of an account.
	MovementReader interface {
		// ListMovementsByAccount returns every movement of the account; an
		// unknown account yields an empty slice.
		ListMovementsByAccount(ctx context.Context, accountID int64) ([]Movement, error)
	}

	// MovementStore is what the movement validator needs inside one transaction.
	MovementStore interface {
		MovementReader
		AccountExists(ctx context.Context, accountID int64) (bool, error)
		CreateMovement(ctx context.Context, accountID int64, t MovementType, amount decimal.Decimal) (Movement, error)
	}

	// TxMovementStore runs fn against a MovementStore bound to one transaction.
	// The transaction commits when fn returns nil and rolls back otherwise.
	TxMovementStore interface {
		MovementStore
		WithinTx(ctx context.Context, fn func(MovementStore) error) error
	}

	// LedgerStore covers the entity lifecycle around movements.
	LedgerStore interface {
		TxMovementStore

		CreateClientWithAccount(ctx context.Context, name string) (Client, Account, error)
		GetClient(ctx context.Context, id int64) (Client, error)
		ListClients(ctx context.Context) ([]Client, error)
		UpdateClientName(ctx context.Context, id int64, name string) (Client, error)
		DeleteClient(ctx context.Context, id int64) error

		CreateAccount(ctx context.Context, clientID int64) (Account, error)
		GetAccount(ctx context.Context, id int64) (Account, error)
		ListAccountsByClient(ctx context.Context, clientID int64) ([]Account, error)
		DeleteAccount(ctx context.Context, id int64) error

		GetMovement(ctx context.Context, id int64) (Movement, error)
		DeleteMovement(ctx context.Context, id int64) (Movement, error)

		CreateCategory(ctx context.Context, name string) (Category, error)
		GetCategory(ctx context.Context, id int64) (Category, error)
		ListCategories(ctx context.Context) ([]Category, error)
		DeleteCategory(ctx context.Context, id int64) error

		AssignCategory(ctx context.Context, clientID, categoryID int64) (CategoryClient, error)
		ListClientCategories(ctx context.Context, clientID int64) ([]CategoryClient, error)
	}

	// AuditStore persists the movement audit trail.
	AuditStore interface {
		MovementReader
		RecordMovementAudit(ctx context.Context, a MovementAudit) (MovementAudit, error)
		ListMovementAudit(ctx context.Context, accountID int64) ([]MovementAudit, error)
	}
)
