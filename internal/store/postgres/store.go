package postgres

import (
	"context"
	"errors"
	"fmt"
	"log"

	db_models "ngmc-chatbot-backend/internal/models"
	"ngmc-chatbot-backend/internal/store"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Compile-time check to ensure PostgresStore implements store.Store
var _ store.Store = (*PostgresStore)(nil)

type PostgresStore struct {
	db *pgxpool.Pool
}

func NewPostgresStore(db *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{db: db}
}

// --- Chat Methods ---

// CreateChat inserts a new chat and returns it with its store-assigned ID.
func (s *PostgresStore) CreateChat(ctx context.Context, arg store.CreateChatParams) (*db_models.Chat, error) {
	log.Printf("[PostgresStore] CreateChat called, title: %q", arg.Title)
	query := `
		INSERT INTO chats (id, title, owner_id)
		VALUES ($1, $2, $3)
		RETURNING id, title, owner_id, created_at`

	id := uuid.New()
	var ownerID *uuid.UUID
	if arg.OwnerID != nil {
		parsed, err := uuid.Parse(*arg.OwnerID)
		if err != nil {
			return nil, fmt.Errorf("invalid owner id %q: %w", *arg.OwnerID, err)
		}
		ownerID = &parsed
	}

	chat, err := scanChat(s.db.QueryRow(ctx, query, id, arg.Title, ownerID))
	if err != nil {
		log.Printf("ERROR [PostgresStore] CreateChat: Failed exec/scan: %v", err)
		return nil, fmt.Errorf("database error creating chat: %w", err)
	}

	log.Printf("[PostgresStore] CreateChat: Successfully inserted chat ID %s", chat.ID)
	return chat, nil
}

// GetChatByID retrieves a chat by its ID.
// Returns store.ErrNotFound for unknown or malformed identifiers.
func (s *PostgresStore) GetChatByID(ctx context.Context, id string) (*db_models.Chat, error) {
	chatID, err := uuid.Parse(id)
	if err != nil {
		log.Printf("[PostgresStore] GetChatByID: malformed chat ID %q", id)
		return nil, store.ErrNotFound
	}

	query := `
		SELECT id, title, owner_id, created_at
		FROM chats
		WHERE id = $1`

	chat, err := scanChat(s.db.QueryRow(ctx, query, chatID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		log.Printf("ERROR [PostgresStore] GetChatByID: Failed query/scan for ID %s: %v", id, err)
		return nil, fmt.Errorf("database error fetching chat: %w", err)
	}
	return chat, nil
}

// ListChats retrieves all chats, newest first.
func (s *PostgresStore) ListChats(ctx context.Context) ([]db_models.Chat, error) {
	query := `
		SELECT id, title, owner_id, created_at
		FROM chats
		ORDER BY created_at DESC, id DESC`

	rows, err := s.db.Query(ctx, query)
	if err != nil {
		log.Printf("ERROR [PostgresStore] ListChats: Failed query: %v", err)
		return nil, fmt.Errorf("database error listing chats: %w", err)
	}
	defer rows.Close()

	return collectChats(rows)
}

// ListChatsForOwner retrieves the chats owned by the given user, newest first.
func (s *PostgresStore) ListChatsForOwner(ctx context.Context, ownerID string) ([]db_models.Chat, error) {
	owner, err := uuid.Parse(ownerID)
	if err != nil {
		return nil, store.ErrNotFound
	}

	query := `
		SELECT id, title, owner_id, created_at
		FROM chats
		WHERE owner_id = $1
		ORDER BY created_at DESC, id DESC`

	rows, err := s.db.Query(ctx, query, owner)
	if err != nil {
		log.Printf("ERROR [PostgresStore] ListChatsForOwner: Failed query for owner %s: %v", ownerID, err)
		return nil, fmt.Errorf("database error listing chats: %w", err)
	}
	defer rows.Close()

	return collectChats(rows)
}

// UpdateChatTitle mutates only the chat's title.
func (s *PostgresStore) UpdateChatTitle(ctx context.Context, id, title string) error {
	chatID, err := uuid.Parse(id)
	if err != nil {
		return store.ErrNotFound
	}

	tag, err := s.db.Exec(ctx, `UPDATE chats SET title = $2 WHERE id = $1`, chatID, title)
	if err != nil {
		log.Printf("ERROR [PostgresStore] UpdateChatTitle: Failed exec for ID %s: %v", id, err)
		return fmt.Errorf("database error updating chat title: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}

// SetChatOwner attaches an owner to a chat. Used to adopt legacy chats that
// were created before the caller had an identity.
func (s *PostgresStore) SetChatOwner(ctx context.Context, id, ownerID string) error {
	chatID, err := uuid.Parse(id)
	if err != nil {
		return store.ErrNotFound
	}
	owner, err := uuid.Parse(ownerID)
	if err != nil {
		return fmt.Errorf("invalid owner id %q: %w", ownerID, err)
	}

	tag, err := s.db.Exec(ctx, `UPDATE chats SET owner_id = $2 WHERE id = $1`, chatID, owner)
	if err != nil {
		log.Printf("ERROR [PostgresStore] SetChatOwner: Failed exec for ID %s: %v", id, err)
		return fmt.Errorf("database error setting chat owner: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	log.Printf("[PostgresStore] SetChatOwner: chat %s now owned by %s", id, ownerID)
	return nil
}

// DeleteChat removes a chat. Its turns are removed by the ON DELETE CASCADE
// constraint on conversations.chat_id.
func (s *PostgresStore) DeleteChat(ctx context.Context, id string) error {
	chatID, err := uuid.Parse(id)
	if err != nil {
		return store.ErrNotFound
	}

	tag, err := s.db.Exec(ctx, `DELETE FROM chats WHERE id = $1`, chatID)
	if err != nil {
		log.Printf("ERROR [PostgresStore] DeleteChat: Failed exec for ID %s: %v", id, err)
		return fmt.Errorf("database error deleting chat: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	log.Printf("[PostgresStore] DeleteChat: Successfully deleted chat ID %s", id)
	return nil
}

// --- User Methods ---

// UpsertUser inserts a user keyed by email, or updates name and credential in
// place when the email is already known.
func (s *PostgresStore) UpsertUser(ctx context.Context, arg store.UpsertUserParams) (*db_models.User, error) {
	log.Printf("[PostgresStore] UpsertUser called for: %s", arg.Email)
	query := `
		INSERT INTO users (id, name, email, hashed_password)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (email) DO UPDATE
		SET name = EXCLUDED.name, hashed_password = EXCLUDED.hashed_password, updated_at = now()
		RETURNING id, name, email, hashed_password, created_at, updated_at`

	user := &db_models.User{}
	var id uuid.UUID
	err := s.db.QueryRow(ctx, query, uuid.New(), arg.Name, arg.Email, arg.HashedPassword).Scan(
		&id,
		&user.Name,
		&user.Email,
		&user.HashedPassword,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			log.Printf("ERROR [PostgresStore] UpsertUser: PostgreSQL error for email %s: Code=%s, Message=%s", arg.Email, pgErr.Code, pgErr.Message)
		} else {
			log.Printf("ERROR [PostgresStore] UpsertUser: Failed exec/scan for email %s: %v", arg.Email, err)
		}
		return nil, fmt.Errorf("database error upserting user: %w", err)
	}
	user.ID = id.String()

	log.Printf("[PostgresStore] UpsertUser: Stored user ID %s for email %s", user.ID, user.Email)
	return user, nil
}

// GetUserByEmail retrieves a user by their email address.
// Returns store.ErrNotFound if the user does not exist.
func (s *PostgresStore) GetUserByEmail(ctx context.Context, email string) (*db_models.User, error) {
	query := `
		SELECT id, name, email, hashed_password, created_at, updated_at
		FROM users
		WHERE email = $1`

	user := &db_models.User{}
	var id uuid.UUID
	err := s.db.QueryRow(ctx, query, email).Scan(
		&id,
		&user.Name,
		&user.Email,
		&user.HashedPassword,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		log.Printf("ERROR [PostgresStore] GetUserByEmail: Failed query/scan for email %s: %v", email, err)
		return nil, fmt.Errorf("database error fetching user by email: %w", err)
	}
	user.ID = id.String()
	return user, nil
}

// --- scan helpers ---

func scanChat(row pgx.Row) (*db_models.Chat, error) {
	chat := &db_models.Chat{}
	var id uuid.UUID
	var ownerID *uuid.UUID
	if err := row.Scan(&id, &chat.Title, &ownerID, &chat.CreatedAt); err != nil {
		return nil, err
	}
	chat.ID = id.String()
	if ownerID != nil {
		owner := ownerID.String()
		chat.OwnerID = &owner
	}
	return chat, nil
}

func collectChats(rows pgx.Rows) ([]db_models.Chat, error) {
	chats := []db_models.Chat{}
	for rows.Next() {
		chat, err := scanChat(rows)
		if err != nil {
			return nil, fmt.Errorf("database error scanning chat row: %w", err)
		}
		chats = append(chats, *chat)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("database error iterating chat rows: %w", err)
	}
	return chats, nil
}
