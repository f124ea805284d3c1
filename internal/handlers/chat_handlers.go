package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"ngmc-chatbot-backend/internal/auth"
	"ngmc-chatbot-backend/internal/models"
	"ngmc-chatbot-backend/internal/services"
	"ngmc-chatbot-backend/internal/store"
	"ngmc-chatbot-backend/pkg/httputil"

	"github.com/go-chi/chi/v5"
)

// ChatHandlers handles HTTP requests related to chats.
type ChatHandlers struct {
	chatService *services.ChatService
}

// NewChatHandlers creates a new ChatHandlers instance.
func NewChatHandlers(chatService *services.ChatService) *ChatHandlers {
	return &ChatHandlers{
		chatService: chatService,
	}
}

// ownerID returns the caller identity when a valid token was presented,
// nil for anonymous requests.
func ownerID(r *http.Request) *string {
	if userID, ok := auth.GetUserIDFromContext(r.Context()); ok {
		return &userID
	}
	return nil
}

// HandleStartChat handles POST /v1/chats: first message of a new chat.
func (h *ChatHandlers) HandleStartChat(w http.ResponseWriter, r *http.Request) {
	var req models.PostChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	defer r.Body.Close()

	result, err := h.chatService.StartChat(r.Context(), req.Message, ownerID(r))
	if err != nil {
		h.respondChatError(w, "StartChat", err)
		return
	}

	httputil.RespondJSON(w, http.StatusCreated, models.StartChatResponse{
		ChatID: result.ChatID,
		Reply:  result.Reply,
		Title:  result.Title,
	})
}

// HandleContinueChat handles POST /v1/chats/{chatID}/messages.
func (h *ChatHandlers) HandleContinueChat(w http.ResponseWriter, r *http.Request) {
	chatID := chi.URLParam(r, "chatID")

	var req models.PostChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	defer r.Body.Close()

	result, err := h.chatService.ContinueChat(r.Context(), chatID, req.Message, ownerID(r))
	if err != nil {
		h.respondChatError(w, "ContinueChat", err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, models.ContinueChatResponse{
		ChatID: result.ChatID,
		Reply:  result.Reply,
	})
}

// HandleListChats handles GET /v1/chats.
func (h *ChatHandlers) HandleListChats(w http.ResponseWriter, r *http.Request) {
	summaries, err := h.chatService.ListChats(r.Context(), ownerID(r))
	if err != nil {
		h.respondChatError(w, "ListChats", err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, summaries)
}

// HandleGetChatByID handles GET /v1/chats/{chatID}: chat with full conversation.
func (h *ChatHandlers) HandleGetChatByID(w http.ResponseWriter, r *http.Request) {
	chatID := chi.URLParam(r, "chatID")

	detail, err := h.chatService.GetChat(r.Context(), chatID, ownerID(r))
	if err != nil {
		h.respondChatError(w, "GetChat", err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, detail)
}

// HandleDeleteChat handles DELETE /v1/chats/{chatID}.
func (h *ChatHandlers) HandleDeleteChat(w http.ResponseWriter, r *http.Request) {
	chatID := chi.URLParam(r, "chatID")

	if err := h.chatService.DeleteChat(r.Context(), chatID, ownerID(r)); err != nil {
		h.respondChatError(w, "DeleteChat", err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, models.DeleteChatResponse{
		Message:       "Chat deleted",
		DeletedChatID: chatID,
	})
}

// respondChatError maps service errors to HTTP status codes.
func (h *ChatHandlers) respondChatError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, services.ErrValidation):
		httputil.RespondError(w, http.StatusBadRequest, err.Error()) // 400
	case errors.Is(err, store.ErrNotFound):
		httputil.RespondError(w, http.StatusNotFound, "Chat not found") // 404
	case errors.Is(err, services.ErrForbidden):
		httputil.RespondError(w, http.StatusForbidden, "Chat belongs to another user") // 403
	default:
		log.Printf("%s handler failed: %v", op, err)
		httputil.RespondError(w, http.StatusInternalServerError, "Request failed due to an internal error") // 500
	}
}
