package postgres

import (
	"context"
	"fmt"
	"log"
	"strconv"

	db_models "ngmc-chatbot-backend/internal/models"
	"ngmc-chatbot-backend/internal/store"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// --- Conversation Turn Methods ---

// AppendTurns inserts the given turns for a chat inside one transaction so a
// user/assistant pair lands as a unit. Insertion order is preserved by the
// BIGSERIAL id; created_at is the append time.
func (s *PostgresStore) AppendTurns(ctx context.Context, chatID string, turns []store.TurnParams) error {
	if len(turns) == 0 {
		return nil
	}
	id, err := uuid.Parse(chatID)
	if err != nil {
		return store.ErrNotFound
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		log.Printf("ERROR [PostgresStore] AppendTurns: Failed to begin transaction for chat %s: %v", chatID, err)
		return fmt.Errorf("database error appending turns: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `
		INSERT INTO conversations (chat_id, role, message)
		VALUES ($1, $2, $3)`
	for _, turn := range turns {
		if _, err := tx.Exec(ctx, query, id, string(turn.Role), turn.Message); err != nil {
			log.Printf("ERROR [PostgresStore] AppendTurns: Failed insert for chat %s: %v", chatID, err)
			return fmt.Errorf("database error appending turns: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		log.Printf("ERROR [PostgresStore] AppendTurns: Failed to commit for chat %s: %v", chatID, err)
		return fmt.Errorf("database error appending turns: %w", err)
	}

	log.Printf("[PostgresStore] AppendTurns: Appended %d turn(s) to chat %s", len(turns), chatID)
	return nil
}

// ListTurns returns every turn of a chat in chronological order.
func (s *PostgresStore) ListTurns(ctx context.Context, chatID string) ([]db_models.ConversationTurn, error) {
	id, err := uuid.Parse(chatID)
	if err != nil {
		return nil, store.ErrNotFound
	}

	query := `
		SELECT id, chat_id, role, message, created_at
		FROM conversations
		WHERE chat_id = $1
		ORDER BY id ASC`

	rows, err := s.db.Query(ctx, query, id)
	if err != nil {
		log.Printf("ERROR [PostgresStore] ListTurns: Failed query for chat %s: %v", chatID, err)
		return nil, fmt.Errorf("database error listing turns: %w", err)
	}
	defer rows.Close()

	return collectTurns(rows)
}

// LastNTurns selects the n most recent turns of a chat, then returns them in
// chronological order so callers see true conversation order.
func (s *PostgresStore) LastNTurns(ctx context.Context, chatID string, n int) ([]db_models.ConversationTurn, error) {
	id, err := uuid.Parse(chatID)
	if err != nil {
		return nil, store.ErrNotFound
	}
	if n <= 0 {
		return []db_models.ConversationTurn{}, nil
	}

	query := `
		SELECT id, chat_id, role, message, created_at
		FROM conversations
		WHERE chat_id = $1
		ORDER BY id DESC
		LIMIT $2`

	rows, err := s.db.Query(ctx, query, id, n)
	if err != nil {
		log.Printf("ERROR [PostgresStore] LastNTurns: Failed query for chat %s: %v", chatID, err)
		return nil, fmt.Errorf("database error fetching recent turns: %w", err)
	}
	defer rows.Close()

	turns, err := collectTurns(rows)
	if err != nil {
		return nil, err
	}

	// The query yields newest first; reverse into chronological order.
	for i, j := 0, len(turns)-1; i < j; i, j = i+1, j-1 {
		turns[i], turns[j] = turns[j], turns[i]
	}
	return turns, nil
}

func collectTurns(rows pgx.Rows) ([]db_models.ConversationTurn, error) {
	turns := []db_models.ConversationTurn{}
	for rows.Next() {
		var turn db_models.ConversationTurn
		var seq int64
		var chatID uuid.UUID
		var role string
		if err := rows.Scan(&seq, &chatID, &role, &turn.Message, &turn.CreatedAt); err != nil {
			return nil, fmt.Errorf("database error scanning turn row: %w", err)
		}
		turn.ID = strconv.FormatInt(seq, 10)
		turn.ChatID = chatID.String()
		turn.Role = db_models.Role(role)
		turns = append(turns, turn)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("database error iterating turn rows: %w", err)
	}
	return turns, nil
}
