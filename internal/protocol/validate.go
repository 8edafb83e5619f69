package protocol

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// validClientTypes is the set of allowed client→server message types.
var validClientTypes = map[string]bool{
	TypeTimersAdd:   true,
	TypeTimersStart: true,
	TypeTimersStop:  true,
}

// ValidateClientMessage validates a raw JSON message from a client.
// Only the envelope and payload shape are checked; timer fields are
// accepted as sent.
func ValidateClientMessage(raw []byte) (*Message, error) {
	var msg Message
	if err := json.Unmarshal(raw, &msg); err != nil {
		return nil, fmt.Errorf("invalid JSON: %w", err)
	}

	if msg.Type == "" {
		return nil, fmt.Errorf("missing 'type' field")
	}

	if !validClientTypes[msg.Type] {
		return nil, fmt.Errorf("unknown message type: %s", msg.Type)
	}

	switch msg.Type {
	case TypeTimersAdd:
		if isAbsent(msg.Payload) {
			return nil, fmt.Errorf("missing 'payload' field")
		}
		var p TimersAddPayload
		if err := json.Unmarshal(msg.Payload, &p); err != nil {
			return nil, fmt.Errorf("invalid payload for %s: %w", msg.Type, err)
		}

	case TypeTimersStart, TypeTimersStop:
		if !isAbsent(msg.Payload) {
			var p map[string]json.RawMessage
			if err := json.Unmarshal(msg.Payload, &p); err != nil {
				return nil, fmt.Errorf("invalid payload for %s: %w", msg.Type, err)
			}
		}
	}

	return &msg, nil
}

func isAbsent(payload json.RawMessage) bool {
	return len(payload) == 0 || bytes.Equal(payload, []byte("null"))
}

// NewErrorMessage creates an error message ready to send to the client.
func NewErrorMessage(code, message string) (*Message, error) {
	return NewMessage(TypeError, ErrorPayload{
		Code:    code,
		Message: message,
	})
}
