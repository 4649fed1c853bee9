package amqp

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// ObligationEventMessage announces that one scheduled occurrence reached a
// terminal status. Consumers fetch the full row from the database; the
// message carries only identity and outcome.
type ObligationEventMessage struct {
	EventID      string    `json:"event_id"`
	ObligationID int64     `json:"obligation_id"`
	Status       string    `json:"status"`
	Timestamp    time.Time `json:"timestamp"`
}

func NewObligationEventMessage(obligationID int64, status string) *ObligationEventMessage {
	return &ObligationEventMessage{
		EventID:      uuid.NewString(),
		ObligationID: obligationID,
		Status:       status,
		Timestamp:    time.Now(),
	}
}

func (m *ObligationEventMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func ObligationEventMessageFromJSON(data []byte) (*ObligationEventMessage, error) {
	var msg ObligationEventMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

// BudgetRenewedMessage announces that an expired budget got a successor
// window.
type BudgetRenewedMessage struct {
	EventID   string    `json:"event_id"`
	BudgetID  int64     `json:"budget_id"`
	Timestamp time.Time `json:"timestamp"`
}

func NewBudgetRenewedMessage(budgetID int64) *BudgetRenewedMessage {
	return &BudgetRenewedMessage{
		EventID:   uuid.NewString(),
		BudgetID:  budgetID,
		Timestamp: time.Now(),
	}
}

func (m *BudgetRenewedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func BudgetRenewedMessageFromJSON(data []byte) (*BudgetRenewedMessage, error) {
	var msg BudgetRenewedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
