package amqp

import (
	"encoding/json"
	"time"
)

// ExpenseSyncMessage asks the worker to mirror one expense version. The
// worker loads the expense itself.
type ExpenseSyncMessage struct {
	ID        int64     `json:"id"`
	Version   int64     `json:"version"`
	Timestamp time.Time `json:"timestamp"`
}

func NewExpenseSyncMessage(id, version int64) *ExpenseSyncMessage {
	return &ExpenseSyncMessage{
		ID:        id,
		Version:   version,
		Timestamp: time.Now(),
	}
}

func (m *ExpenseSyncMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func ExpenseSyncMessageFromJSON(data []byte) (*ExpenseSyncMessage, error) {
	var msg ExpenseSyncMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

// SessionChangedMessage announces a session write on one instance to the
// others. Key is empty when the browser's store was cleared.
type SessionChangedMessage struct {
	BrowserID string    `json:"browser_id"`
	Key       string    `json:"key"`
	Origin    string    `json:"origin"`
	Timestamp time.Time `json:"timestamp"`
}

func (m *SessionChangedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func SessionChangedMessageFromJSON(data []byte) (*SessionChangedMessage, error) {
	var msg SessionChangedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
