package amqp

import (
	"encoding/json"
	"time"

	"vendite/internal/core"
)

// SelectionChangedMessage wraps an applied selection change for remote view
// adapters. The adapter re-fetches the aggregates it cares about; the
// message carries only the resulting filter state.
type SelectionChangedMessage struct {
	Change    core.SelectionChange `json:"change"`
	Timestamp time.Time            `json:"timestamp"`
}

// NewSelectionChangedMessage creates a message for one applied change.
func NewSelectionChangedMessage(change core.SelectionChange) *SelectionChangedMessage {
	return &SelectionChangedMessage{
		Change:    change,
		Timestamp: time.Now(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *SelectionChangedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// SelectionChangedMessageFromJSON creates a message from JSON bytes
func SelectionChangedMessageFromJSON(data []byte) (*SelectionChangedMessage, error) {
	var msg SelectionChangedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
