package amqp

import (
	"encoding/json"
	"time"
)

// RefreshMessage asks the worker to rebuild one client's advisory report.
// It carries only the client ID and the export version; the worker reads the
// wallet, events and goals from the database itself.
type RefreshMessage struct {
	ClientID  string    `json:"clientId"`
	Version   int64     `json:"version"`
	Timestamp time.Time `json:"timestamp"`
}

// NewRefreshMessage creates a refresh message for a client at a given export
// version.
func NewRefreshMessage(clientID string, version int64) *RefreshMessage {
	return &RefreshMessage{
		ClientID:  clientID,
		Version:   version,
		Timestamp: time.Now(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *RefreshMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// RefreshMessageFromJSON creates a message from JSON bytes
func RefreshMessageFromJSON(data []byte) (*RefreshMessage, error) {
	var msg RefreshMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
