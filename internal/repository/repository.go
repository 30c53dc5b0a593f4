package repository

import (
	"database/sql"
	"time"

	"marshal/internal/models"
)

// Session is the durable store for match sessions and their games. Every
// mutating method that carries a *models.MatchSession commits with a
// compare-and-swap on the session's Version and returns models.ErrStaleState
// when another writer got there first.
type Session interface {
	// CreateSession inserts the session only if the channel has no active
	// (non-ended) session, otherwise returns models.ErrConflict.
	CreateSession(s *models.MatchSession) error
	SessionByID(id int64) (*models.MatchSession, error)
	ActiveSessionByChannel(guildID, channelID string) (*models.MatchSession, error)

	// SaveTransition persists the session's fields under the version check.
	// When game is non-nil it is inserted (ID == 0) or updated in the same
	// transaction, so a lost race leaves no partial state.
	SaveTransition(s *models.MatchSession, game *models.MatchGame) error

	// SaveUndo persists the session under the version check and deletes the
	// given game in the same transaction.
	SaveUndo(s *models.MatchSession, gameID int64) error

	// StalledSessions lists sessions in the given status whose ack window
	// opened before the cutoff and that are not disputed.
	StalledSessions(status models.SessionStatus, cutoff time.Time) ([]*models.MatchSession, error)
}

type Bracket interface {
	UpsertLink(l *models.BracketLink) error
	LinkByChannel(guildID, channelID string) (*models.BracketLink, error)
	// DeleteLink reports whether a link existed.
	DeleteLink(guildID, channelID string) (bool, error)
}

type Repository struct {
	Session
	Bracket
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{
		Session: NewSessionPostgres(db),
		Bracket: NewBracketPostgres(db),
		db:      db,
	}
}
