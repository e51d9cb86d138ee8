package amqp

import (
	"encoding/json"
	"time"
)

// TransferEvent announces one committed transfer. Consumers use TransferID
// to deduplicate redeliveries; the balances themselves are not in the event,
// the ledger database stays the source of truth.
type TransferEvent struct {
	TransferID  string    `json:"transfer_id"`
	FromOwnerID string    `json:"from_owner_id"`
	ToOwnerID   string    `json:"to_owner_id"`
	Amount      int64     `json:"amount"`
	OccurredAt  time.Time `json:"occurred_at"`
}

// NewTransferEvent builds an event for a committed transfer.
func NewTransferEvent(transferID, from, to string, amount int64, occurredAt time.Time) *TransferEvent {
	return &TransferEvent{
		TransferID:  transferID,
		FromOwnerID: from,
		ToOwnerID:   to,
		Amount:      amount,
		OccurredAt:  occurredAt,
	}
}

// ToJSON converts the event to JSON bytes
func (e *TransferEvent) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// TransferEventFromJSON creates an event from JSON bytes
func TransferEventFromJSON(data []byte) (*TransferEvent, error) {
	var ev TransferEvent
	if err := json.Unmarshal(data, &ev); err != nil {
		return nil, err
	}
	return &ev, nil
}
