package amqp

import (
	"encoding/json"
	"time"
)

// LedgerChangedMessage announces that a budget's ledger data changed.
// An empty Metrics list means every cached metric is stale.
type LedgerChangedMessage struct {
	BudgetID  string    `json:"budget_id"`
	Metrics   []string  `json:"metrics,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// NewLedgerChangedMessage creates a change notice for the given metrics.
func NewLedgerChangedMessage(budgetID string, metrics ...string) *LedgerChangedMessage {
	return &LedgerChangedMessage{
		BudgetID:  budgetID,
		Metrics:   metrics,
		Timestamp: time.Now(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *LedgerChangedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// LedgerChangedMessageFromJSON creates a message from JSON bytes
func LedgerChangedMessageFromJSON(data []byte) (*LedgerChangedMessage, error) {
	var msg LedgerChangedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
