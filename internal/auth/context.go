package auth

import (
	"context"
)

// --- Context Helper Functions ---

// GetUserIDFromContext retrieves the caller's user ID from the request
// context. Returns the ID and true if an identity was attached, otherwise
// "" and false; chat routes work without an identity.
func GetUserIDFromContext(ctx context.Context) (string, bool) {
	userID, ok := ctx.Value(UserIDKey).(string)
	return userID, ok && userID != ""
}
