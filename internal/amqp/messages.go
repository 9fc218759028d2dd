package amqp

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

const (
	EventFillRecorded      = "fill.recorded"
	EventFillRecategorized = "fill.recategorized"
)

// FillEvent announces a persisted fill. It carries only the id; consumers
// load the current fill from the database.
type FillEvent struct {
	MessageID string    `json:"message_id"`
	Type      string    `json:"type"`
	FillID    int64     `json:"fill_id"`
	From      string    `json:"from,omitempty"`
	To        string    `json:"to,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

func NewFillRecordedEvent(fillID int64) *FillEvent {
	return &FillEvent{
		MessageID: uuid.NewString(),
		Type:      EventFillRecorded,
		FillID:    fillID,
		Timestamp: time.Now(),
	}
}

func NewFillRecategorizedEvent(fillID int64, from, to string) *FillEvent {
	return &FillEvent{
		MessageID: uuid.NewString(),
		Type:      EventFillRecategorized,
		FillID:    fillID,
		From:      from,
		To:        to,
		Timestamp: time.Now(),
	}
}

func (m *FillEvent) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// FillEventFromJSON decodes and validates an event body.
func FillEventFromJSON(data []byte) (*FillEvent, error) {
	var msg FillEvent
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if msg.FillID <= 0 {
		return nil, fmt.Errorf("fill event without fill id")
	}
	switch msg.Type {
	case EventFillRecorded, EventFillRecategorized:
	default:
		return nil, fmt.Errorf("unknown fill event type %q", msg.Type)
	}
	return &msg, nil
}
