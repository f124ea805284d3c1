package models

import (
	"time"
)

// Role identifies the author of a conversation turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Chat represents a titled conversation session in the database.
// The ID is store-assigned and opaque to callers: a UUID string on the
// Postgres backend, a 24-character hex ObjectID on the Mongo backend.
type Chat struct {
	ID        string    `db:"id"`
	Title     string    `db:"title"`
	OwnerID   *string   `db:"owner_id"` // nil for chats started without an identity
	CreatedAt time.Time `db:"created_at"`
}

// ConversationTurn is a single message belonging to a chat.
// Turns are immutable once written and form a strictly ordered sequence
// within their chat.
type ConversationTurn struct {
	ID        string    `db:"id"`
	ChatID    string    `db:"chat_id"`
	Role      Role      `db:"role"`
	Message   string    `db:"message"`
	CreatedAt time.Time `db:"created_at"`
}

// User represents a registered user. Email is the stable identity key and is
// never changed; name and credential may be updated in place.
type User struct {
	ID             string    `db:"id"`
	Name           string    `db:"name"`
	Email          string    `db:"email"`
	HashedPassword string    `db:"hashed_password"`
	CreatedAt      time.Time `db:"created_at"`
	UpdatedAt      time.Time `db:"updated_at"`
}
