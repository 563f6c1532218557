// Package protocol defines the WebSocket message protocol between chat
// clients and the profilechat server.
package protocol

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/raphaelgruber/profilechat/internal/conversation"
)

// Message types from client to server
const (
	TypeSubmit = "submit"
	TypeReset  = "reset"
	TypeExport = "export"
)

// Message types from server to client
const (
	TypeHello    = "hello"
	TypeTurn     = "turn"
	TypeResetOK  = "reset_ok"
	TypeExported = "exported"
	TypeError    = "error"
)

// Error codes
const (
	ErrorCodeInvalidMessage = "invalid_message"
	ErrorCodeEmptyMessage   = "empty_message"
	ErrorCodeNothingToSave  = "nothing_to_save"
	ErrorCodeExportFailed   = "export_failed"
)

// BaseMessage contains common fields for all messages.
type BaseMessage struct {
	Type      string `json:"type"`
	Ts        int64  `json:"ts"`
	SessionID string `json:"session_id,omitempty"`
}

// HelloMessage is sent by the server once the connection is upgraded.
type HelloMessage struct {
	BaseMessage
	Model    string `json:"model"`
	Provider string `json:"provider"`
	Greeting string `json:"greeting"`
}

// SubmitMessage carries one user message.
type SubmitMessage struct {
	BaseMessage
	Text string `json:"text"`
}

// TurnMessage carries the assistant turn produced for a submit.
type TurnMessage struct {
	BaseMessage
	Turn  conversation.Turn `json:"turn"`
	Count int               `json:"count"`
}

// ExportedMessage reports where the transcript was written.
type ExportedMessage struct {
	BaseMessage
	Path string `json:"path"`
}

// ErrorMessage is sent by the server when a frame cannot be served.
type ErrorMessage struct {
	BaseMessage
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *ErrorMessage) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Base builds a BaseMessage stamped with the current time.
func Base(msgType, sessionID string) BaseMessage {
	return BaseMessage{
		Type:      msgType,
		Ts:        time.Now().UnixMilli(),
		SessionID: sessionID,
	}
}

// PeekType returns the type of a raw frame.
func PeekType(data []byte) (string, error) {
	var base BaseMessage
	if err := json.Unmarshal(data, &base); err != nil {
		return "", fmt.Errorf("decode frame: %w", err)
	}
	if base.Type == "" {
		return "", fmt.Errorf("decode frame: missing type")
	}
	return base.Type, nil
}
