// Package proto defines the JSON frames exchanged over the /ws subscription.
package proto

import "encoding/json"

// Inbound is the envelope for frames coming from the client.
type Inbound struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

const (
	InboundTypePing = "ping"

	OutboundTypeEvent = "event"
	OutboundTypePong  = "pong"
	OutboundTypeError = "error"

	EventChildAdded   = "child_added"
	EventChildChanged = "child_changed"
)

// Outbound is the envelope for frames sent to the client.
type Outbound struct {
	Type  string   `json:"type"`
	Event string   `json:"event,omitempty"`
	Data  *Message `json:"data,omitempty"`
	Error *Error   `json:"error,omitempty"`
}

// Message is a chat message snapshot keyed by ID.
type Message struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Text      string `json:"text,omitempty"`
	PhotoURL  string `json:"photoUrl,omitempty"`
	ImageURL  string `json:"imageUrl,omitempty"`
	Moderated bool   `json:"moderated,omitempty"`
	TS        int64  `json:"ts"`
}

// Error describes a protocol-level error response.
type Error struct {
	Code string `json:"code"`
	Msg  string `json:"msg"`
}
