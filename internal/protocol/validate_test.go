package protocol

import (
	"encoding/json"
	"testing"
	"time"

	"timerlist/internal/timers"
)

func TestNewMessage(t *testing.T) {
	event := timers.ChangeEvent{
		Seq:    3,
		Action: timers.ActionAddTimer,
		State: timers.State{
			IsRunning: true,
			Timers:    []timers.Timer{{Name: "Tea", Duration: "5"}},
		},
	}

	msg, err := NewStateMessage(event)
	if err != nil {
		t.Fatalf("NewStateMessage failed: %v", err)
	}

	if msg.Type != TypeTimersState {
		t.Errorf("expected type %s, got %s", TypeTimersState, msg.Type)
	}

	if msg.Timestamp.IsZero() {
		t.Error("expected non-zero timestamp")
	}

	var p TimersStatePayload
	if err := json.Unmarshal(msg.Payload, &p); err != nil {
		t.Fatalf("unmarshal payload: %v", err)
	}
	if p.Seq != 3 || len(p.State.Timers) != 1 || p.State.Timers[0].Name != "Tea" {
		t.Errorf("unexpected payload %#v", p)
	}
}

func TestStatePayloadFieldNames(t *testing.T) {
	msg, err := NewStateMessage(timers.ChangeEvent{State: timers.InitialState()})
	if err != nil {
		t.Fatalf("NewStateMessage failed: %v", err)
	}

	var raw map[string]json.RawMessage
	json.Unmarshal(msg.Payload, &raw)
	for _, key := range []string{"seq", "action", "state", "at"} {
		if _, ok := raw[key]; !ok {
			t.Errorf("expected key %q in payload", key)
		}
	}

	var state map[string]json.RawMessage
	json.Unmarshal(raw["state"], &state)
	if string(state["isRunning"]) != "true" {
		t.Errorf("expected isRunning true, got %s", state["isRunning"])
	}
	if string(state["timers"]) != "[]" {
		t.Errorf("expected empty timers array, got %s", state["timers"])
	}
}

func clientMessage(msgType string, payload interface{}) []byte {
	msg := map[string]interface{}{
		"type":      msgType,
		"timestamp": time.Now().UTC().Format(time.RFC3339Nano),
	}
	if payload != nil {
		msg["payload"] = payload
	}
	data, _ := json.Marshal(msg)
	return data
}

func TestValidateClientMessage_Valid(t *testing.T) {
	tests := []struct {
		name    string
		msgType string
		payload interface{}
	}{
		{"add", TypeTimersAdd, map[string]interface{}{"name": "Tea", "duration": "5"}},
		{"add empty fields", TypeTimersAdd, map[string]interface{}{"name": "", "duration": ""}},
		{"add missing fields", TypeTimersAdd, map[string]interface{}{}},
		{"start with payload", TypeTimersStart, map[string]interface{}{}},
		{"start without payload", TypeTimersStart, nil},
		{"stop without payload", TypeTimersStop, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := ValidateClientMessage(clientMessage(tt.msgType, tt.payload))
			if err != nil {
				t.Fatalf("expected valid message, got error: %v", err)
			}
			if result.Type != tt.msgType {
				t.Errorf("expected type %s, got %s", tt.msgType, result.Type)
			}
		})
	}
}

func TestValidateClientMessage_Invalid(t *testing.T) {
	tests := []struct {
		name string
		raw  []byte
	}{
		{"not json", []byte("not json")},
		{"missing type", clientMessage("", map[string]interface{}{})},
		{"unknown type", clientMessage("unknown.action", map[string]interface{}{})},
		{"server type", clientMessage(TypeTimersState, map[string]interface{}{})},
		{"add missing payload", clientMessage(TypeTimersAdd, nil)},
		{"add null payload", []byte(`{"type":"timers.add","payload":null}`)},
		{"add payload wrong shape", clientMessage(TypeTimersAdd, []string{"Tea"})},
		{"add name wrong type", clientMessage(TypeTimersAdd, map[string]interface{}{"name": 5})},
		{"stop payload wrong shape", clientMessage(TypeTimersStop, "now")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ValidateClientMessage(tt.raw); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}

func TestTimersAddPayload_Fields(t *testing.T) {
	fields := TimersAddPayload{Name: " Tea", Duration: "x"}.Fields()
	if fields["name"] != " Tea" || fields["duration"] != "x" {
		t.Errorf("unexpected fields %v", fields)
	}
}

func TestNewErrorMessage(t *testing.T) {
	msg, err := NewErrorMessage(ErrInvalidMessage, "bad input")
	if err != nil {
		t.Fatalf("NewErrorMessage failed: %v", err)
	}
	if msg.Type != TypeError {
		t.Errorf("expected type %s, got %s", TypeError, msg.Type)
	}

	var p ErrorPayload
	json.Unmarshal(msg.Payload, &p)
	if p.Code != ErrInvalidMessage {
		t.Errorf("expected code %s, got %s", ErrInvalidMessage, p.Code)
	}
}
