package amqp

import (
	"encoding/json"
	"time"
)

// DataChangedMessage announces that a collection was mutated. It carries no
// record body; consumers read the current state from the store.
type DataChangedMessage struct {
	Collection string    `json:"collection"`
	Operation  string    `json:"operation"`
	RecordID   string    `json:"record_id,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}

func NewDataChangedMessage(collection, operation, recordID string) *DataChangedMessage {
	return &DataChangedMessage{
		Collection: collection,
		Operation:  operation,
		RecordID:   recordID,
		Timestamp:  time.Now().UTC(),
	}
}

func (m *DataChangedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func DataChangedMessageFromJSON(data []byte) (*DataChangedMessage, error) {
	var msg DataChangedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
