package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"ngmc-chatbot-backend/internal/llm"
	"ngmc-chatbot-backend/internal/models"
	"ngmc-chatbot-backend/internal/store"
)

// Custom errors for the chat service.
var (
	ErrValidation = errors.New("input validation failed")
	ErrForbidden  = errors.New("chat belongs to another user")
)

// FallbackReply is persisted and returned when the model call fails; the
// user-facing contract is "always get a reply".
const FallbackReply = "I'm sorry, I'm having trouble processing your request right now. Please try again later."

// ChatService orchestrates the chat flows: validate, assemble context, call
// the model, extract a structured reply, persist the turn pair.
type ChatService struct {
	store   store.Store
	llm     llm.Client
	snippet string
}

// NewChatService creates a new ChatService. snippet is the knowledge text
// loaded once at startup; it is read-only for the process lifetime.
func NewChatService(s store.Store, client llm.Client, snippet string) *ChatService {
	return &ChatService{
		store:   s,
		llm:     client,
		snippet: snippet,
	}
}

// StartChatResult is the outcome of starting a new chat.
type StartChatResult struct {
	ChatID string
	Reply  string
	Title  string
}

// ContinueChatResult is the outcome of continuing an existing chat.
type ContinueChatResult struct {
	ChatID string
	Reply  string
}

// StartChat creates a new chat from a first user message. The chat's title
// comes from the model's structured reply, falling back to a default when the
// output is unusable.
func (s *ChatService) StartChat(ctx context.Context, message string, ownerID *string) (*StartChatResult, error) {
	// Whitespace-only input must fail the emptiness check, and the trimmed
	// form is what gets prompted and persisted.
	message = strings.TrimSpace(message)
	if err := validateMessage(message); err != nil {
		return nil, err
	}

	messages := assembleMessages(s.snippet, nil, message, true)
	raw := s.complete(ctx, messages)
	parsed := ExtractReply(raw, true)

	chat, err := s.store.CreateChat(ctx, store.CreateChatParams{
		Title:   parsed.Title,
		OwnerID: ownerID,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create chat in store: %w", err)
	}

	if err := s.appendTurnPair(ctx, chat.ID, message, parsed.Reply); err != nil {
		return nil, err
	}

	log.Printf("[ChatService] StartChat: created chat %s, title %q", chat.ID, parsed.Title)
	return &StartChatResult{
		ChatID: chat.ID,
		Reply:  parsed.Reply,
		Title:  parsed.Title,
	}, nil
}

// ContinueChat appends a new exchange to an existing chat. The chat's title
// is never updated here; it is fixed at creation. A chat without a recorded
// owner adopts the caller's identity on first authenticated continuation.
func (s *ChatService) ContinueChat(ctx context.Context, chatID, message string, ownerID *string) (*ContinueChatResult, error) {
	message = strings.TrimSpace(message)
	if err := validateMessage(message); err != nil {
		return nil, err
	}

	chat, err := s.store.GetChatByID(ctx, chatID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to get chat: %w", err)
	}

	if err := s.authorize(ctx, chat, ownerID); err != nil {
		return nil, err
	}

	history, err := s.store.LastNTurns(ctx, chat.ID, historyWindow)
	if err != nil {
		return nil, fmt.Errorf("failed to load chat history: %w", err)
	}

	messages := assembleMessages(s.snippet, history, message, false)
	raw := s.complete(ctx, messages)
	parsed := ExtractReply(raw, false)

	if err := s.appendTurnPair(ctx, chat.ID, message, parsed.Reply); err != nil {
		return nil, err
	}

	return &ContinueChatResult{
		ChatID: chat.ID,
		Reply:  parsed.Reply,
	}, nil
}

// GetChat returns a chat with its full conversation, oldest turn first.
func (s *ChatService) GetChat(ctx context.Context, chatID string, ownerID *string) (*models.ChatDetailResponse, error) {
	chat, err := s.store.GetChatByID(ctx, chatID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to get chat: %w", err)
	}
	if err := s.checkOwner(chat, ownerID); err != nil {
		return nil, err
	}

	turns, err := s.store.ListTurns(ctx, chat.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list chat turns: %w", err)
	}

	resp := &models.ChatDetailResponse{
		ID:           chat.ID,
		Title:        chat.Title,
		CreatedAt:    chat.CreatedAt,
		Conversation: make([]models.TurnResponse, 0, len(turns)),
	}
	for _, turn := range turns {
		resp.Conversation = append(resp.Conversation, models.TurnResponse{
			Role:      turn.Role,
			Message:   turn.Message,
			CreatedAt: turn.CreatedAt,
		})
	}
	return resp, nil
}

// ListChats returns chat summaries, newest first. With an identity attached,
// only that caller's chats are listed.
func (s *ChatService) ListChats(ctx context.Context, ownerID *string) ([]models.ChatSummaryResponse, error) {
	var chats []models.Chat
	var err error
	if ownerID != nil {
		chats, err = s.store.ListChatsForOwner(ctx, *ownerID)
	} else {
		chats, err = s.store.ListChats(ctx)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list chats: %w", err)
	}

	summaries := make([]models.ChatSummaryResponse, 0, len(chats))
	for _, chat := range chats {
		summaries = append(summaries, models.ChatSummaryResponse{
			ID:        chat.ID,
			Title:     chat.Title,
			CreatedAt: chat.CreatedAt,
		})
	}
	return summaries, nil
}

// DeleteChat removes a chat and its turns after the same owner check as
// continuation.
func (s *ChatService) DeleteChat(ctx context.Context, chatID string, ownerID *string) error {
	chat, err := s.store.GetChatByID(ctx, chatID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return err
		}
		return fmt.Errorf("failed to get chat: %w", err)
	}
	if err := s.checkOwner(chat, ownerID); err != nil {
		return err
	}

	if err := s.store.DeleteChat(ctx, chat.ID); err != nil {
		return fmt.Errorf("failed to delete chat: %w", err)
	}
	return nil
}

// complete calls the model gateway and absorbs any failure into the fixed
// fallback reply so the flow always completes and persists.
func (s *ChatService) complete(ctx context.Context, messages []models.Message) string {
	raw, err := s.llm.Complete(ctx, messages)
	if err != nil {
		log.Printf("WARN [ChatService] Model call failed, using fallback reply: %v", err)
		return FallbackReply
	}
	return raw
}

// checkOwner fails with ErrForbidden when the chat is owned by somebody other
// than the caller. Ownerless chats pass.
func (s *ChatService) checkOwner(chat *models.Chat, ownerID *string) error {
	if chat.OwnerID == nil {
		return nil
	}
	if ownerID == nil || *ownerID != *chat.OwnerID {
		return ErrForbidden
	}
	return nil
}

// authorize applies the continuation policy: owned chats require a matching
// identity; an ownerless chat adopts the caller's identity when one is
// present (legacy-chat adoption).
func (s *ChatService) authorize(ctx context.Context, chat *models.Chat, ownerID *string) error {
	if chat.OwnerID != nil {
		return s.checkOwner(chat, ownerID)
	}
	if ownerID != nil {
		if err := s.store.SetChatOwner(ctx, chat.ID, *ownerID); err != nil {
			return fmt.Errorf("failed to adopt chat owner: %w", err)
		}
		chat.OwnerID = ownerID
	}
	return nil
}

// appendTurnPair persists one exchange as an ordered user/assistant pair.
// Turn pairs are logically atomic; a failure here is a server-side failure.
func (s *ChatService) appendTurnPair(ctx context.Context, chatID, userMessage, assistantReply string) error {
	pair := []store.TurnParams{
		{Role: models.RoleUser, Message: userMessage},
		{Role: models.RoleAssistant, Message: assistantReply},
	}
	if err := s.store.AppendTurns(ctx, chatID, pair); err != nil {
		return fmt.Errorf("failed to append turn pair: %w", err)
	}
	return nil
}
