package models

import (
	"time"
)

// --- Request Structs ---

// PostChatRequest defines the body for starting or continuing a chat.
type PostChatRequest struct {
	Message string `json:"message"`
}

// SignupRequest defines the expected body for the signup endpoint.
type SignupRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginRequest defines the expected body for the login endpoint.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// --- Response Structs ---

// StartChatResponse is returned when a new chat is created from a first message.
type StartChatResponse struct {
	ChatID string `json:"chatId"`
	Reply  string `json:"reply"`
	Title  string `json:"title"`
}

// ContinueChatResponse is returned when an existing chat is continued.
// Title is not part of the continuation contract.
type ContinueChatResponse struct {
	ChatID string `json:"chatId"`
	Reply  string `json:"reply"`
}

// ChatSummaryResponse is one element of the chat listing.
type ChatSummaryResponse struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"created_at"`
}

// TurnResponse is one conversation turn as returned by the API.
type TurnResponse struct {
	Role      Role      `json:"role"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"created_at"`
}

// ChatDetailResponse is a chat with its full conversation, oldest turn first.
type ChatDetailResponse struct {
	ID           string         `json:"id"`
	Title        string         `json:"title"`
	CreatedAt    time.Time      `json:"created_at"`
	Conversation []TurnResponse `json:"conversation"`
}

// DeleteChatResponse confirms a chat deletion.
type DeleteChatResponse struct {
	Message       string `json:"message"`
	DeletedChatID string `json:"deletedChatId"`
}

// UserResponse defines the user information returned by the API.
// Avoid returning sensitive info like HashedPassword.
type UserResponse struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// AuthResponse defines the response body for successful authentication.
type AuthResponse struct {
	AccessToken string       `json:"access_token"`
	User        UserResponse `json:"user"`
}

// ErrorResponse defines the standard structure for API errors.
type ErrorResponse struct {
	Error string `json:"error"`
}
