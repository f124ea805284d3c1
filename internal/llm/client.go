// Package llm is the boundary to the external text-completion provider.
package llm

import (
	"context"

	"ngmc-chatbot-backend/internal/models"
)

// Client sends an ordered message list to a text-completion provider and
// returns the raw completion text. Implementations make a single attempt;
// the caller decides what a failure degrades to.
type Client interface {
	Complete(ctx context.Context, messages []models.Message) (string, error)
}
