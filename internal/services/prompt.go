package services

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"ngmc-chatbot-backend/internal/models"
)

// Bounds enforced before any prompt is assembled.
const (
	maxMessageLen = 1000
	historyWindow = 10
)

// Persona preamble for every prompt. The scraped reference data and the
// output-format instruction are appended per request.
const systemPreamble = `You are an intelligent AI assistant for Nallamuthu Gounder Mahalingam College (NGMC), Pollachi.
Provide accurate, helpful, and engaging information about the college.
Official site: https://www.ngmc.org

Always be helpful, accurate, and maintain a professional yet friendly tone.

Dont repeat the same answer if asked multiple times.

You may get 2 types of queries:
1. General queries about NGMC college, courses, admissions, facilities, etc.
for this you need to answer in a conversational manner.
2. Specific queries about exam schedules, fee structures, seating arrangements, syllabus, etc.
for this you need to answer with simple and direct answers with relevant links from the provided data.`

const (
	formatWithTitle = `Output a JSON object with exactly the keys "reply" and "title".`
	formatReplyOnly = `Output a JSON object with exactly the key "reply".`
)

// validateMessage rejects empty and over-length user messages before any
// model or store work happens. The length bound counts characters, not
// bytes; Tamil-script queries are three bytes per rune.
func validateMessage(msg string) error {
	if msg == "" {
		return fmt.Errorf("%w: valid message is required", ErrValidation)
	}
	if utf8.RuneCountInString(msg) > maxMessageLen {
		return fmt.Errorf("%w: message too long (max %d chars)", ErrValidation, maxMessageLen)
	}
	return nil
}

// assembleMessages builds the ordered message list handed to the model:
// one system message, the prior turns in chronological order, then the new
// user message. newChat controls whether the model is asked for a title.
func assembleMessages(snippet string, history []models.ConversationTurn, userMessage string, newChat bool) []models.Message {
	format := formatReplyOnly
	if newChat {
		format = formatWithTitle
	}

	var sys strings.Builder
	sys.WriteString(systemPreamble)
	sys.WriteString("\n\nUse the following web-scraped data for reference:\n")
	sys.WriteString(snippet)
	sys.WriteString("\n\n")
	sys.WriteString(format)

	messages := make([]models.Message, 0, len(history)+2)
	messages = append(messages, models.Message{Role: "system", Content: sys.String()})
	for _, turn := range history {
		role := "user"
		if turn.Role == models.RoleAssistant {
			role = "assistant"
		}
		messages = append(messages, models.Message{Role: role, Content: turn.Message})
	}
	messages = append(messages, models.Message{Role: "user", Content: userMessage})
	return messages
}
