// Package events defines the trigger payloads delivered to event handlers.
package events

import "github.com/vovakirdan/friendlychat-server/internal/store"

// ResourceState tells whether an object still exists after a change.
type ResourceState string

const (
	ResourceExists    ResourceState = "exists"
	ResourceNotExists ResourceState = "not_exists"
)

// UserCreated fires once per newly created account.
type UserCreated struct {
	UID         string
	DisplayName string
	PhotoURL    string
}

// ObjectChanged fires on every create, overwrite or delete in a bucket.
// Name is empty for bucket-level notifications that carry no object.
type ObjectChanged struct {
	Bucket        string
	Name          string
	ResourceState ResourceState
	ContentType   string
	Size          int64
}

// MessageWrite fires on every write under the messages collection.
// Previous is nil when the write created the message.
type MessageWrite struct {
	Path     string
	Previous *store.Message
	Current  *store.Message
}

// IsCreate reports whether the write created the record.
func (e MessageWrite) IsCreate() bool {
	return e.Previous == nil
}
