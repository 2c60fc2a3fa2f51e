package amqp

import (
	"encoding/json"
	"fmt"
	"time"

	"creditos/internal/core"

	"github.com/google/uuid"
)

// EventType names a credit change.
type EventType string

const (
	EventCreditCreated EventType = "credit.created"
	EventCreditUpdated EventType = "credit.updated"
	EventCreditDeleted EventType = "credit.deleted"
)

func (t EventType) Valid() bool {
	switch t {
	case EventCreditCreated, EventCreditUpdated, EventCreditDeleted:
		return true
	}
	return false
}

// CreditEvent is published after every successful write. Deletes carry no fields.
type CreditEvent struct {
	ID        string             `json:"id"`
	Type      EventType          `json:"type"`
	CreditID  core.CreditID      `json:"credit_id"`
	Credit    *core.CreditFields `json:"credit,omitempty"`
	Timestamp time.Time          `json:"timestamp"`
}

// NewCreditEvent stamps a fresh event id and time.
func NewCreditEvent(t EventType, id core.CreditID, fields *core.CreditFields) *CreditEvent {
	return &CreditEvent{
		ID:        uuid.NewString(),
		Type:      t,
		CreditID:  id,
		Credit:    fields,
		Timestamp: time.Now().UTC(),
	}
}

func (m *CreditEvent) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// CreditEventFromJSON decodes and sanity-checks a delivery body.
func CreditEventFromJSON(data []byte) (*CreditEvent, error) {
	var msg CreditEvent
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if msg.ID == "" {
		return nil, fmt.Errorf("event without id")
	}
	if !msg.Type.Valid() {
		return nil, fmt.Errorf("unknown event type %q", msg.Type)
	}
	return &msg, nil
}
