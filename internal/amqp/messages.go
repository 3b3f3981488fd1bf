package amqp

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"

	"ledger/internal/core"
)

const (
	EventMovementCreated = "movement.created"
	EventMovementDeleted = "movement.deleted"
)

// MovementEvent announces that a movement was admitted or deleted. Amount
// travels as decimal text so consumers never see a float.
type MovementEvent struct {
	MessageID    string    `json:"message_id"`
	Event        string    `json:"event"`
	MovementID   int64     `json:"movement_id"`
	AccountID    int64     `json:"account_id"`
	MovementType string    `json:"movement_type"`
	Amount       string    `json:"amount"`
	Timestamp    time.Time `json:"timestamp"`
}

// NewMovementEvent builds an event of kind event for m.
func NewMovementEvent(event string, m core.Movement) *MovementEvent {
	return &MovementEvent{
		MessageID:    uuid.NewString(),
		Event:        event,
		MovementID:   m.ID,
		AccountID:    m.AccountID,
		MovementType: string(m.Type),
		Amount:       m.Amount.String(),
		Timestamp:    time.Now().UTC(),
	}
}

// ToJSON converts the message to JSON bytes
func (e *MovementEvent) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// MovementEventFromJSON decodes an event and rejects unknown event kinds.
func MovementEventFromJSON(data []byte) (*MovementEvent, error) {
	var e MovementEvent
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, err
	}
	if e.Event != EventMovementCreated && e.Event != EventMovementDeleted {
		return nil, errors.New("unknown event " + e.Event)
	}
	return &e, nil
}
