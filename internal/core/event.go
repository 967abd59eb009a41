package core

import "github.com/vovakirdan/friendlychat-server/internal/store"

// EventKind is a change notification the core emits to subscribers.
type EventKind int

const (
	// EventChildAdded notifies subscribers about a new message.
	EventChildAdded EventKind = iota
	// EventChildChanged notifies subscribers about an updated message.
	EventChildChanged
)

func (k EventKind) String() string {
	switch k {
	case EventChildAdded:
		return "child_added"
	case EventChildChanged:
		return "child_changed"
	default:
		return "unknown"
	}
}

// Event describes a change under the messages collection.
type Event struct {
	Kind    EventKind
	Message store.Message
}
