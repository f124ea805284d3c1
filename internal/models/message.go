package models

// Message is a single entry in the prompt handed to the model provider.
// Role is the provider's wire role ("system", "user" or "assistant"), not
// the stored turn Role.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}
