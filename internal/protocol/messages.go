// Package protocol defines the WebSocket message types exchanged between the
// map frontend and the simulation gateway. All server messages are JSON and
// wrapped in an Envelope for uniform handling on the client.
package protocol

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// MessageType identifies the kind of message in the WebSocket protocol.
type MessageType string

const (
	// Client → Gateway
	MsgSimulate MessageType = "simulate"
	MsgCancel   MessageType = "cancel"

	// Gateway → Client
	MsgAccepted MessageType = "accepted"
	MsgEvent    MessageType = "event"
	MsgResult   MessageType = "result"

	// Bidirectional
	MsgError MessageType = "error"
)

// Error codes carried in ErrorPayload.
const (
	CodeBadRequest = "bad_request"
	CodeBusy       = "busy"
	CodeCanceled   = "canceled"
)

// ClientMessage is what the frontend sends, e.g.
// {"type":"simulate","scenario":"Flood in Jakarta"}.
type ClientMessage struct {
	Type      MessageType `json:"type"`
	Scenario  string      `json:"scenario,omitempty"`
	RequestID string      `json:"request_id,omitempty"` // Optional caller-chosen run ID.
}

// Envelope is the top-level wrapper for every server message.
type Envelope struct {
	Type      MessageType     `json:"type"`
	ID        string          `json:"id"` // Message ID for client-side deduplication.
	RunID     string          `json:"run_id,omitempty"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
}

// NewEnvelope creates an Envelope with a fresh ID and current timestamp.
func NewEnvelope(msgType MessageType, runID string, payload any) (*Envelope, error) {
	var raw json.RawMessage
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, err
		}
		raw = data
	}
	return &Envelope{
		Type:      msgType,
		ID:        uuid.New().String(),
		RunID:     runID,
		Payload:   raw,
		Timestamp: time.Now().UTC(),
	}, nil
}

// Decode unmarshals the Payload into the given target.
func (e *Envelope) Decode(target any) error {
	return json.Unmarshal(e.Payload, target)
}

// AcceptedPayload confirms a simulate request was picked up.
type AcceptedPayload struct {
	Scenario string `json:"scenario"`
}

// ErrorPayload is sent with MsgError for protocol-level errors.
type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
