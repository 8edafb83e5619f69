package protocol

import (
	"encoding/json"
	"fmt"
	"time"

	"timerlist/internal/producer"
	"timerlist/internal/timers"
)

// Message is the envelope for all WebSocket messages.
type Message struct {
	Type      string          `json:"type"`
	Payload   json.RawMessage `json:"payload"`
	Timestamp time.Time       `json:"timestamp"`
}

// NewMessage creates a server-originated message with the current timestamp.
func NewMessage(msgType string, payload interface{}) (*Message, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal payload: %w", err)
	}
	return &Message{
		Type:      msgType,
		Payload:   data,
		Timestamp: time.Now().UTC(),
	}, nil
}

// Server → Client message types.
const (
	TypeTimersState = "timers.state"
	TypeFormClear   = "form.clear"
	TypeError       = "error"
)

// Client → Server message types.
const (
	TypeTimersAdd   = "timers.add"
	TypeTimersStart = "timers.start"
	TypeTimersStop  = "timers.stop"
)

// Error codes.
const (
	ErrInvalidMessage = "INVALID_MESSAGE"
)

// Server → Client payloads.

// TimersStatePayload carries a change event. Seq 0 means no transition has
// happened yet.
type TimersStatePayload = timers.ChangeEvent

type FormClearPayload struct {
	Form string `json:"form"`
}

type ErrorPayload struct {
	Message string `json:"message"`
	Code    string `json:"code"`
}

// Client → Server payloads.

// TimersAddPayload is the raw form submission. Fields are not validated.
type TimersAddPayload struct {
	Name     string `json:"name"`
	Duration string `json:"duration"`
}

// Fields returns p as the field map the producer consumes.
func (p TimersAddPayload) Fields() map[string]string {
	return map[string]string{
		producer.FieldName:     p.Name,
		producer.FieldDuration: p.Duration,
	}
}

// NewStateMessage wraps a change event as a timers.state message.
func NewStateMessage(event timers.ChangeEvent) (*Message, error) {
	return NewMessage(TypeTimersState, event)
}
