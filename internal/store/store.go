package store

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("not found")

// MessagesPath is the collection every chat message lives under.
const MessagesPath = "messages"

// User represents a user in the system.
type User struct {
	ID           int64
	Username     string
	PasswordHash string
	IsGuest      bool
	SessionID    string // For guest user session tracking
	DisplayName  string
	PhotoURL     string
	CreatedAt    time.Time
}

// Message represents a persisted chat message.
// Empty string fields are treated as absent.
type Message struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Text      string    `json:"text,omitempty"`
	PhotoURL  string    `json:"photoUrl,omitempty"`
	ImageURL  string    `json:"imageUrl,omitempty"`
	Moderated bool      `json:"moderated,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// Path returns the message location inside the realtime store.
func (m *Message) Path() string {
	return MessagesPath + "/" + m.ID
}

// MessagePatch is a partial message update. Nil fields are left untouched.
type MessagePatch struct {
	ImageURL  *string
	Moderated *bool
}

// DeviceToken is a push-capable client install owned by a user.
type DeviceToken struct {
	Token     string
	UserID    int64
	CreatedAt time.Time
}

// UserStore handles user persistence.
type UserStore interface {
	// CreateUser creates a new user with hashed password and profile.
	CreateUser(ctx context.Context, username, passwordHash, displayName, photoURL string) (*User, error)

	// CreateGuestUser creates a temporary guest user with session ID.
	CreateGuestUser(ctx context.Context, sessionID string) (*User, error)

	// GetUserByID retrieves a user by ID.
	GetUserByID(ctx context.Context, id int64) (*User, error)

	// GetUserByUsername retrieves a user by username.
	GetUserByUsername(ctx context.Context, username string) (*User, error)
}

// MessageStore handles message persistence.
type MessageStore interface {
	// CreateMessage appends a message and fills in its generated ID and timestamp.
	CreateMessage(ctx context.Context, msg *Message) error

	// UpdateMessage applies a patch atomically and returns the record before and after.
	UpdateMessage(ctx context.Context, id string, patch MessagePatch) (before, after *Message, err error)

	// GetMessage retrieves a message by ID.
	GetMessage(ctx context.Context, id string) (*Message, error)

	// ListMessages returns the last limit messages in creation order.
	ListMessages(ctx context.Context, limit int) ([]*Message, error)
}

// TokenStore handles the device token registry.
type TokenStore interface {
	// SaveToken registers a token for a user, replacing any previous owner.
	SaveToken(ctx context.Context, token string, userID int64) error

	// ListTokens reads the whole registry once.
	ListTokens(ctx context.Context) ([]*DeviceToken, error)

	// DeleteToken removes a token. Removing an unknown token is not an error.
	DeleteToken(ctx context.Context, token string) error
}

// Store aggregates all storage interfaces.
type Store interface {
	UserStore
	MessageStore
	TokenStore

	// Close closes the underlying database connection.
	Close() error
}
