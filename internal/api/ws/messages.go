package ws

import (
	"encoding/json"
	"time"

	"github.com/GriffinCanCode/wsl-terminal/internal/eventbus"
)

// ClientMessage is a command sent by the UI.
type ClientMessage struct {
	Type      string          `json:"type"`
	RequestID string          `json:"request_id,omitempty"`
	ID        string          `json:"id,omitempty"`
	Shell     string          `json:"shell,omitempty"`
	Distro    string          `json:"distro,omitempty"`
	Cwd       string          `json:"cwd,omitempty"`
	Cols      int             `json:"cols,omitempty"`
	Rows      int             `json:"rows,omitempty"`
	Data      string          `json:"data,omitempty"`
	Payload   json.RawMessage `json:"payload,omitempty"`
}

// EventMessage forwards one bus event to the UI.
type EventMessage struct {
	Type      string          `json:"type"`
	Name      string          `json:"name"`
	SessionID string          `json:"session_id,omitempty"`
	Data      string          `json:"data,omitempty"`
	ExitCode  *int            `json:"exit_code,omitempty"`
	Action    string          `json:"action,omitempty"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	Timestamp int64           `json:"timestamp"`
}

// ResultMessage answers a ClientMessage.
type ResultMessage struct {
	Type      string `json:"type"`
	RequestID string `json:"request_id,omitempty"`
	Success   bool   `json:"success"`
	Error     string `json:"error,omitempty"`
	Data      any    `json:"data,omitempty"`
}

func newEventMessage(e eventbus.Event) EventMessage {
	return EventMessage{
		Type:      "event",
		Name:      e.Name(),
		SessionID: e.SessionID,
		Data:      e.Data,
		ExitCode:  e.ExitCode,
		Action:    e.Action,
		Payload:   e.Payload,
		Timestamp: e.Timestamp.UnixMilli(),
	}
}

func newResult(requestID string, data any, err error) ResultMessage {
	if err != nil {
		return ResultMessage{Type: "result", RequestID: requestID, Error: err.Error()}
	}
	return ResultMessage{Type: "result", RequestID: requestID, Success: true, Data: data}
}

func errorMessage(msg string) map[string]any {
	return map[string]any{
		"type":      "error",
		"message":   msg,
		"timestamp": time.Now().Unix(),
	}
}
