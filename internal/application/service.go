package application

import (
	"marshal/internal/models"
	"marshal/internal/repository"
	"marshal/pkg/challonge"
)

type Logger interface {
	Error(format string, v ...interface{})
	Warn(format string, v ...interface{})
	Info(format string, v ...interface{})
	Debug(format string, v ...interface{})
}

// BracketProvider is the external tournament service. pkg/challonge
// implements it.
type BracketProvider interface {
	Tournament(slug string) (*challonge.Tournament, error)
	Participants(slug string) ([]challonge.Participant, error)
	Matches(slug, state string) ([]challonge.Match, error)
	ReportResult(slug string, matchID, winnerID int64, score string) (*challonge.Match, error)
}

// SessionService is the match session controller. Every mutating operation
// validates against the session's current state and fails closed with a
// models sentinel error instead of overwriting a concurrent change.
type SessionService interface {
	Start(guildID, channelID, marshalID string, bestOf int, sideA, sideB string) (*models.MatchSession, error)
	SubmitResult(sessionID int64, gameNumber int, winner, result string) (*models.MatchSession, error)
	Acknowledge(sessionID int64, gameNumber int, side, user string) (*models.MatchSession, error)
	Dispute(sessionID int64, raisedBy string) (*models.MatchSession, error)
	ResolveDispute(sessionID int64, ruling Ruling) (*models.MatchSession, error)
	ForceEnd(sessionID int64, reason string) (*models.MatchSession, error)
	UndoGame(sessionID int64) (*models.MatchSession, error)

	SessionByID(sessionID int64) (*models.MatchSession, error)
	SessionByChannel(guildID, channelID string) (*models.MatchSession, error)
	SetLastMessageID(sessionID int64, messageID string) error
}

type BracketService interface {
	Link(guildID, channelID, rawURL, linkedBy string) (*models.BracketLink, error)
	Unlink(guildID, channelID string) error
	Overview(guildID, channelID string) (*BracketOverview, error)
}

type Service struct {
	Sessions SessionService
	Brackets BracketService
}

func NewService(repos *repository.Repository, provider BracketProvider, logger Logger) *Service {
	syncer := NewBracketSyncer(repos.Bracket, provider, logger)
	return &Service{
		Sessions: NewSessionServiceImpl(repos.Session, syncer, logger),
		Brackets: NewBracketServiceImpl(repos.Bracket, provider, logger),
	}
}
