package store

import (
	"context"
	"errors"

	"ngmc-chatbot-backend/internal/models"
)

// ErrNotFound is returned when a specific record is not found. Backends that
// validate identifier shape (e.g. the hex ObjectID form used by Mongo) return
// it for malformed identifiers as well.
var ErrNotFound = errors.New("record not found")

// CreateChatParams contains parameters for creating a chat.
type CreateChatParams struct {
	Title   string
	OwnerID *string // nil when the caller has no identity attached
}

// TurnParams is one turn of an append batch. The store assigns the
// identifier and the append-time timestamp.
type TurnParams struct {
	Role    models.Role
	Message string
}

// UpsertUserParams contains parameters for creating or updating a user.
// Email is the stable key; name and credential are updated in place on
// subsequent sightings.
type UpsertUserParams struct {
	Name           string
	Email          string
	HashedPassword string
}

// Store defines the interface for database operations.
// Implementations are interchangeable and selected at startup; currently
// Postgres (relational) and Mongo (document).
type Store interface {
	// Chat operations
	CreateChat(ctx context.Context, arg CreateChatParams) (*models.Chat, error)
	GetChatByID(ctx context.Context, id string) (*models.Chat, error)
	ListChats(ctx context.Context) ([]models.Chat, error)
	ListChatsForOwner(ctx context.Context, ownerID string) ([]models.Chat, error)
	UpdateChatTitle(ctx context.Context, id, title string) error
	SetChatOwner(ctx context.Context, id, ownerID string) error
	// DeleteChat removes the chat and cascades to its turns.
	DeleteChat(ctx context.Context, id string) error

	// Turn operations
	// AppendTurns appends the given turns as a unit, preserving their order.
	// It never touches the parent chat's title.
	AppendTurns(ctx context.Context, chatID string, turns []TurnParams) error
	// ListTurns returns every turn of the chat in chronological order.
	ListTurns(ctx context.Context, chatID string) ([]models.ConversationTurn, error)
	// LastNTurns returns up to n of the most recent turns of the chat,
	// re-sorted into chronological order (oldest of the window first).
	LastNTurns(ctx context.Context, chatID string, n int) ([]models.ConversationTurn, error)

	// User operations
	UpsertUser(ctx context.Context, arg UpsertUserParams) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
}
