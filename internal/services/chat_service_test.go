package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"ngmc-chatbot-backend/internal/models"
	"ngmc-chatbot-backend/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeStore is an in-memory store.Store for service tests. chatOrder records
// insertion order so listings can mimic the real stores' newest-first sort.
type fakeStore struct {
	mu        sync.Mutex
	nextID    int
	chats     map[string]*models.Chat
	chatOrder []string
	turns     map[string][]models.ConversationTurn
	users     map[string]*models.User // keyed by email

	failAppend bool
}

var _ store.Store = (*fakeStore)(nil)

func newFakeStore() *fakeStore {
	return &fakeStore{
		chats: make(map[string]*models.Chat),
		turns: make(map[string][]models.ConversationTurn),
		users: make(map[string]*models.User),
	}
}

func (f *fakeStore) newID(prefix string) string {
	f.nextID++
	return fmt.Sprintf("%s-%d", prefix, f.nextID)
}

func (f *fakeStore) CreateChat(_ context.Context, arg store.CreateChatParams) (*models.Chat, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	chat := &models.Chat{
		ID:      f.newID("chat"),
		Title:   arg.Title,
		OwnerID: arg.OwnerID,
	}
	f.chats[chat.ID] = chat
	f.chatOrder = append(f.chatOrder, chat.ID)
	return chat, nil
}

func (f *fakeStore) GetChatByID(_ context.Context, id string) (*models.Chat, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	chat, ok := f.chats[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *chat
	return &cp, nil
}

func (f *fakeStore) ListChats(_ context.Context) ([]models.Chat, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]models.Chat, 0, len(f.chats))
	// Newest first, like the real backends.
	for i := len(f.chatOrder) - 1; i >= 0; i-- {
		out = append(out, *f.chats[f.chatOrder[i]])
	}
	return out, nil
}

func (f *fakeStore) ListChatsForOwner(_ context.Context, ownerID string) ([]models.Chat, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Chat
	for i := len(f.chatOrder) - 1; i >= 0; i-- {
		chat := f.chats[f.chatOrder[i]]
		if chat.OwnerID != nil && *chat.OwnerID == ownerID {
			out = append(out, *chat)
		}
	}
	return out, nil
}

func (f *fakeStore) UpdateChatTitle(_ context.Context, id, title string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	chat, ok := f.chats[id]
	if !ok {
		return store.ErrNotFound
	}
	chat.Title = title
	return nil
}

func (f *fakeStore) SetChatOwner(_ context.Context, id, ownerID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	chat, ok := f.chats[id]
	if !ok {
		return store.ErrNotFound
	}
	chat.OwnerID = &ownerID
	return nil
}

func (f *fakeStore) DeleteChat(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.chats[id]; !ok {
		return store.ErrNotFound
	}
	delete(f.chats, id)
	delete(f.turns, id)
	for i, chatID := range f.chatOrder {
		if chatID == id {
			f.chatOrder = append(f.chatOrder[:i], f.chatOrder[i+1:]...)
			break
		}
	}
	return nil
}

func (f *fakeStore) AppendTurns(_ context.Context, chatID string, turns []store.TurnParams) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failAppend {
		return errors.New("append failed")
	}
	if _, ok := f.chats[chatID]; !ok {
		return store.ErrNotFound
	}
	for _, t := range turns {
		f.turns[chatID] = append(f.turns[chatID], models.ConversationTurn{
			ID:      f.newID("turn"),
			ChatID:  chatID,
			Role:    t.Role,
			Message: t.Message,
		})
	}
	return nil
}

func (f *fakeStore) ListTurns(_ context.Context, chatID string) ([]models.ConversationTurn, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]models.ConversationTurn(nil), f.turns[chatID]...), nil
}

func (f *fakeStore) LastNTurns(_ context.Context, chatID string, n int) ([]models.ConversationTurn, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	all := f.turns[chatID]
	if len(all) > n {
		all = all[len(all)-n:]
	}
	return append([]models.ConversationTurn(nil), all...), nil
}

func (f *fakeStore) UpsertUser(_ context.Context, arg store.UpsertUserParams) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	user, ok := f.users[arg.Email]
	if !ok {
		user = &models.User{ID: f.newID("user"), Email: arg.Email}
		f.users[arg.Email] = user
	}
	user.Name = arg.Name
	user.HashedPassword = arg.HashedPassword
	cp := *user
	return &cp, nil
}

func (f *fakeStore) GetUserByEmail(_ context.Context, email string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	user, ok := f.users[email]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *user
	return &cp, nil
}

// stubLLM returns a canned completion or error and records what it was asked.
type stubLLM struct {
	raw   string
	err   error
	calls [][]models.Message
}

func (s *stubLLM) Complete(_ context.Context, messages []models.Message) (string, error) {
	s.calls = append(s.calls, messages)
	if s.err != nil {
		return "", s.err
	}
	return s.raw, nil
}

func strPtr(s string) *string { return &s }

func TestStartChatPersistsTurnPair(t *testing.T) {
	fs := newFakeStore()
	llm := &stubLLM{raw: `{"reply": "See the exam portal link.", "title": "Exam Info"}`}
	svc := NewChatService(fs, llm, "snippet data")

	result, err := svc.StartChat(context.Background(), "When are the exams?", nil)
	require.NoError(t, err)

	assert.NotEmpty(t, result.ChatID)
	assert.Equal(t, "See the exam portal link.", result.Reply)
	assert.Equal(t, "Exam Info", result.Title)

	chat, err := fs.GetChatByID(context.Background(), result.ChatID)
	require.NoError(t, err)
	assert.Equal(t, "Exam Info", chat.Title)

	turns, err := fs.ListTurns(context.Background(), result.ChatID)
	require.NoError(t, err)
	require.Len(t, turns, 2)
	assert.Equal(t, models.RoleUser, turns[0].Role)
	assert.Equal(t, "When are the exams?", turns[0].Message)
	assert.Equal(t, models.RoleAssistant, turns[1].Role)
	assert.Equal(t, "See the exam portal link.", turns[1].Message)
}

func TestStartChatRejectsInvalidMessages(t *testing.T) {
	fs := newFakeStore()
	llm := &stubLLM{raw: `{"reply": "ok", "title": "t"}`}
	svc := NewChatService(fs, llm, "")

	_, err := svc.StartChat(context.Background(), "", nil)
	assert.ErrorIs(t, err, ErrValidation)

	_, err = svc.StartChat(context.Background(), strings.Repeat("a", 1001), nil)
	assert.ErrorIs(t, err, ErrValidation)

	// Whitespace-only collapses to empty after trimming.
	_, err = svc.StartChat(context.Background(), "   \n\t", nil)
	assert.ErrorIs(t, err, ErrValidation)

	// No model call and no chat creation on validation failure.
	assert.Empty(t, llm.calls)
	assert.Empty(t, fs.chats)
}

func TestChatMessagesAreTrimmed(t *testing.T) {
	fs := newFakeStore()
	llm := &stubLLM{raw: `{"reply": "ok", "title": "t"}`}
	svc := NewChatService(fs, llm, "")

	started, err := svc.StartChat(context.Background(), "  When are the exams?  ", nil)
	require.NoError(t, err)

	turns, err := fs.ListTurns(context.Background(), started.ChatID)
	require.NoError(t, err)
	require.Len(t, turns, 2)
	assert.Equal(t, "When are the exams?", turns[0].Message)

	// The model sees the trimmed form too.
	sent := llm.calls[0]
	assert.Equal(t, "When are the exams?", sent[len(sent)-1].Content)

	_, err = svc.ContinueChat(context.Background(), started.ChatID, " \t ", nil)
	assert.ErrorIs(t, err, ErrValidation)

	_, err = svc.ContinueChat(context.Background(), started.ChatID, "  thanks  ", nil)
	require.NoError(t, err)
	turns, err = fs.ListTurns(context.Background(), started.ChatID)
	require.NoError(t, err)
	require.Len(t, turns, 4)
	assert.Equal(t, "thanks", turns[2].Message)
}

func TestStartChatModelFailureFallsBack(t *testing.T) {
	fs := newFakeStore()
	llm := &stubLLM{err: errors.New("upstream down")}
	svc := NewChatService(fs, llm, "")

	result, err := svc.StartChat(context.Background(), "Hello", nil)
	require.NoError(t, err)

	assert.Equal(t, FallbackReply, result.Reply)
	assert.Equal(t, DefaultChatTitle, result.Title)

	// The exchange is still persisted.
	turns, err := fs.ListTurns(context.Background(), result.ChatID)
	require.NoError(t, err)
	require.Len(t, turns, 2)
	assert.Equal(t, FallbackReply, turns[1].Message)
}

func TestContinueChatBoundsHistory(t *testing.T) {
	fs := newFakeStore()
	llm := &stubLLM{raw: `{"reply": "ok", "title": "t"}`}
	svc := NewChatService(fs, llm, "")

	first, err := svc.StartChat(context.Background(), "first", nil)
	require.NoError(t, err)

	// Seed well past the history window.
	for i := 0; i < 8; i++ {
		_, err := svc.ContinueChat(context.Background(), first.ChatID, fmt.Sprintf("message %d", i), nil)
		require.NoError(t, err)
	}

	llm.calls = nil
	_, err = svc.ContinueChat(context.Background(), first.ChatID, "latest", nil)
	require.NoError(t, err)

	require.Len(t, llm.calls, 1)
	sent := llm.calls[0]
	// One system message, at most ten history turns, then the new message.
	require.Len(t, sent, 12)
	assert.Equal(t, "system", sent[0].Role)
	assert.Equal(t, "latest", sent[len(sent)-1].Content)
	assert.Equal(t, "user", sent[len(sent)-1].Role)
}

func TestContinueChatNotFound(t *testing.T) {
	svc := NewChatService(newFakeStore(), &stubLLM{}, "")

	_, err := svc.ContinueChat(context.Background(), "missing", "hi", nil)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestContinueChatForbiddenForOtherOwner(t *testing.T) {
	fs := newFakeStore()
	llm := &stubLLM{raw: `{"reply": "ok", "title": "t"}`}
	svc := NewChatService(fs, llm, "")

	started, err := svc.StartChat(context.Background(), "mine", strPtr("user-a"))
	require.NoError(t, err)

	_, err = svc.ContinueChat(context.Background(), started.ChatID, "theirs", strPtr("user-b"))
	assert.ErrorIs(t, err, ErrForbidden)

	// Nothing appended for the rejected caller.
	turns, _ := fs.ListTurns(context.Background(), started.ChatID)
	assert.Len(t, turns, 2)

	// Anonymous continuation of an owned chat is rejected too.
	_, err = svc.ContinueChat(context.Background(), started.ChatID, "anon", nil)
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestContinueChatAdoptsOwnerlessChat(t *testing.T) {
	fs := newFakeStore()
	llm := &stubLLM{raw: `{"reply": "ok"}`}
	svc := NewChatService(fs, llm, "")

	started, err := svc.StartChat(context.Background(), "anon start", nil)
	require.NoError(t, err)

	_, err = svc.ContinueChat(context.Background(), started.ChatID, "now logged in", strPtr("user-a"))
	require.NoError(t, err)

	chat, err := fs.GetChatByID(context.Background(), started.ChatID)
	require.NoError(t, err)
	require.NotNil(t, chat.OwnerID)
	assert.Equal(t, "user-a", *chat.OwnerID)

	// Once adopted, other identities are locked out.
	_, err = svc.ContinueChat(context.Background(), started.ChatID, "intruder", strPtr("user-b"))
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestContinueChatNeverUpdatesTitle(t *testing.T) {
	fs := newFakeStore()
	llm := &stubLLM{raw: `{"reply": "first", "title": "Original Title"}`}
	svc := NewChatService(fs, llm, "")

	started, err := svc.StartChat(context.Background(), "start", nil)
	require.NoError(t, err)
	require.Equal(t, "Original Title", started.Title)

	llm.raw = `{"reply": "second", "title": "Different Title"}`
	_, err = svc.ContinueChat(context.Background(), started.ChatID, "more", nil)
	require.NoError(t, err)

	chat, err := fs.GetChatByID(context.Background(), started.ChatID)
	require.NoError(t, err)
	assert.Equal(t, "Original Title", chat.Title)
}

func TestGetChatReturnsConversationInOrder(t *testing.T) {
	fs := newFakeStore()
	llm := &stubLLM{raw: `{"reply": "r1", "title": "t"}`}
	svc := NewChatService(fs, llm, "")

	started, err := svc.StartChat(context.Background(), "q1", nil)
	require.NoError(t, err)
	llm.raw = `{"reply": "r2"}`
	_, err = svc.ContinueChat(context.Background(), started.ChatID, "q2", nil)
	require.NoError(t, err)

	detail, err := svc.GetChat(context.Background(), started.ChatID, nil)
	require.NoError(t, err)

	require.Len(t, detail.Conversation, 4)
	assert.Equal(t, "q1", detail.Conversation[0].Message)
	assert.Equal(t, "r1", detail.Conversation[1].Message)
	assert.Equal(t, "q2", detail.Conversation[2].Message)
	assert.Equal(t, "r2", detail.Conversation[3].Message)
}

func TestDeleteChatChecksOwner(t *testing.T) {
	fs := newFakeStore()
	llm := &stubLLM{raw: `{"reply": "ok", "title": "t"}`}
	svc := NewChatService(fs, llm, "")

	started, err := svc.StartChat(context.Background(), "mine", strPtr("user-a"))
	require.NoError(t, err)

	err = svc.DeleteChat(context.Background(), started.ChatID, strPtr("user-b"))
	assert.ErrorIs(t, err, ErrForbidden)

	err = svc.DeleteChat(context.Background(), started.ChatID, strPtr("user-a"))
	require.NoError(t, err)

	_, err = fs.GetChatByID(context.Background(), started.ChatID)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestListChatsFiltersByOwner(t *testing.T) {
	fs := newFakeStore()
	llm := &stubLLM{raw: `{"reply": "ok", "title": "t"}`}
	svc := NewChatService(fs, llm, "")

	first, err := svc.StartChat(context.Background(), "a", strPtr("user-a"))
	require.NoError(t, err)
	second, err := svc.StartChat(context.Background(), "b", strPtr("user-b"))
	require.NoError(t, err)
	third, err := svc.StartChat(context.Background(), "anon", nil)
	require.NoError(t, err)

	mine, err := svc.ListChats(context.Background(), strPtr("user-a"))
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, first.ChatID, mine[0].ID)

	// Newest first.
	all, err := svc.ListChats(context.Background(), nil)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, third.ChatID, all[0].ID)
	assert.Equal(t, second.ChatID, all[1].ID)
	assert.Equal(t, first.ChatID, all[2].ID)
}
