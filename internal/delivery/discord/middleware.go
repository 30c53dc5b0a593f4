package discord

import (
	"marshal/internal/models"
)

func (b *Bot) isAdmin(userID string) bool {
	_, ok := b.adminIDs[userID]
	return ok
}

// isMarshal allows the configured admins and, when a session is in play,
// the marshal who opened it.
func (b *Bot) isMarshal(userID string, sess *models.MatchSession) bool {
	if b.isAdmin(userID) {
		return true
	}
	return sess != nil && sess.MarshalID == userID
}
