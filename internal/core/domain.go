package core

import (
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	CashInflow  MovementType = "cash_inflow"
	CashOutflow MovementType = "cash_outflow"
)

const maxNameLength = 500

type (
	MovementType string

	Client struct {
		ID   int64
		Name string
	}

	Account struct {
		ID     int64
		Client Client
	}

	Movement struct {
		ID        int64
		AccountID int64
		Type      MovementType
		Amount    decimal.Decimal
		CreatedAt time.Time
	}

	Category struct {
		ID   int64
		Name string
	}

	// CategoryClient links a client to a category. The same pair may be
	// assigned more than once.
	CategoryClient struct {
		ID       int64
		ClientID int64
		Category Category
	}

	// ClientDetail is a client together with everything it owns.
	ClientDetail struct {
		Client     Client
		Accounts   []Account
		Categories []CategoryClient
	}

	AccountBalance struct {
		AccountID int64
		Balance   decimal.Decimal
	}

	ClientBalance struct {
		Client   Client
		Accounts []AccountBalance
	}

	// MovementAudit is a row of the audit trail kept by the worker: the
	// balance of an account right after a movement event was observed.
	MovementAudit struct {
		ID           int64
		MessageID    string
		Event        string
		MovementID   int64
		AccountID    int64
		MovementType MovementType
		Amount       decimal.Decimal
		BalanceAfter decimal.Decimal
		RecordedAt   time.Time
	}
)

var (
	ErrNotFound    = errors.New("not found")
	ErrEmptyName   = errors.New("name cannot be empty")
	ErrNameTooLong = errors.New("name too long (max 500 characters)")

	// ErrDuplicateEvent reports an audit row already recorded for a message.
	ErrDuplicateEvent = errors.New("event already recorded")
)

// Valid reports whether t is one of the known movement types.
func (t MovementType) Valid() bool {
	return t == CashInflow || t == CashOutflow
}

// Label returns the human readable name of the movement type.
func (t MovementType) Label() string {
	switch t {
	case CashInflow:
		return "Ingreso"
	case CashOutflow:
		return "Egreso"
	default:
		return string(t)
	}
}

func (t MovementType) String() string {
	return string(t)
}

// Signed returns the movement amount with the sign it contributes to a
// balance. A movement of unknown type contributes nothing.
func (m Movement) Signed() decimal.Decimal {
	switch m.Type {
	case CashInflow:
		return m.Amount
	case CashOutflow:
		return m.Amount.Neg()
	default:
		return decimal.Zero
	}
}

// ValidateName checks a client or category display name.
func ValidateName(name string) error {
	if strings.TrimSpace(name) == "" {
		return ErrEmptyName
	}
	if len(name) > maxNameLength {
		return ErrNameTooLong
	}
	return nil
}
