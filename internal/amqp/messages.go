package amqp

import (
	"encoding/json"
	"time"

	"soldi/internal/core"
)

// BudgetAlertMessage is published whenever a transaction pushes a category
// budget into warning or danger. Consumers (the alert worker) deliver it to
// the family's notification channels.
type BudgetAlertMessage struct {
	Category         string            `json:"category"`
	Year             int               `json:"year"`
	Month            int               `json:"month"`
	SpentCents       int64             `json:"spent_cents"`
	LimitCents       int64             `json:"limit_cents"`
	WarningThreshold float64           `json:"warning_threshold"`
	Status           core.BudgetStatus `json:"status"`
	Timestamp        time.Time         `json:"timestamp"`
}

// NewBudgetAlertMessage builds an alert message from a budget snapshot.
func NewBudgetAlertMessage(snap core.BudgetSnapshot) *BudgetAlertMessage {
	return &BudgetAlertMessage{
		Category:         snap.Category,
		Year:             snap.Year,
		Month:            snap.Month,
		SpentCents:       snap.Spent.Cents,
		LimitCents:       snap.Limit.Cents,
		WarningThreshold: snap.WarningThreshold,
		Status:           snap.Status,
		Timestamp:        time.Now(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *BudgetAlertMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// BudgetAlertMessageFromJSON creates a message from JSON bytes
func BudgetAlertMessageFromJSON(data []byte) (*BudgetAlertMessage, error) {
	var msg BudgetAlertMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

// TransactionSyncMessage is a lightweight change event for external sync
// consumers. It carries only the ID and version; a consumer fetches the
// current row from the database. A soft delete bumps the version, so a
// consumer that refetches sees the row gone.
type TransactionSyncMessage struct {
	ID        int64     `json:"id"`
	Version   int64     `json:"version"`
	Timestamp time.Time `json:"timestamp"`
}

// NewTransactionSyncMessage creates a sync message with just ID and version.
func NewTransactionSyncMessage(id, version int64) *TransactionSyncMessage {
	return &TransactionSyncMessage{
		ID:        id,
		Version:   version,
		Timestamp: time.Now(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *TransactionSyncMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// TransactionSyncMessageFromJSON creates a message from JSON bytes
func TransactionSyncMessageFromJSON(data []byte) (*TransactionSyncMessage, error) {
	var msg TransactionSyncMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
