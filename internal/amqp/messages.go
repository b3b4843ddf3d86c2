package amqp

import (
	"encoding/json"
	"errors"
	"time"
)

// Change actions carried by RecordChangedMessage.
const (
	ActionCreated = "created"
	ActionUpdated = "updated"
	ActionDeleted = "deleted"
)

// RecordChangedMessage announces a write to one user's stream. Consumers
// reload the stream from the store rather than trusting a payload.
type RecordChangedMessage struct {
	User      string    `json:"user"`
	Stream    string    `json:"stream"`
	Action    string    `json:"action"`
	IDs       []string  `json:"ids,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// NewRecordChangedMessage stamps a change message with the current time.
func NewRecordChangedMessage(user, stream, action string, ids ...string) *RecordChangedMessage {
	return &RecordChangedMessage{
		User:      user,
		Stream:    stream,
		Action:    action,
		IDs:       ids,
		Timestamp: time.Now(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *RecordChangedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// RecordChangedMessageFromJSON decodes and checks a message body.
func RecordChangedMessageFromJSON(data []byte) (*RecordChangedMessage, error) {
	var msg RecordChangedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if msg.User == "" || msg.Stream == "" {
		return nil, errors.New("message without user or stream")
	}
	return &msg, nil
}
