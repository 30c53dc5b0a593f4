package application

import (
	"errors"
	"fmt"

	"marshal/internal/models"
	"marshal/internal/repository"
	"marshal/pkg/challonge"
)

type BracketServiceImpl struct {
	repo     repository.Bracket
	provider BracketProvider
	logger   Logger
}

func NewBracketServiceImpl(repo repository.Bracket, provider BracketProvider, logger Logger) *BracketServiceImpl {
	return &BracketServiceImpl{
		repo:     repo,
		provider: provider,
		logger:   logger,
	}
}

// BracketOverview is the read model for bracket status display.
type BracketOverview struct {
	Link         *models.BracketLink
	Tournament   *challonge.Tournament
	OpenMatches  []challonge.Match
	Participants []challonge.Participant
}

// Link validates the tournament against the provider and binds it to the
// channel. A channel keeps at most one link; an existing one must be
// removed first.
func (s *BracketServiceImpl) Link(guildID, channelID, rawURL, linkedBy string) (*models.BracketLink, error) {
	if existing, err := s.repo.LinkByChannel(guildID, channelID); err == nil {
		return nil, fmt.Errorf("%w: channel is already linked to %s", models.ErrConflict, existing.TournamentName)
	} else if !errors.Is(err, models.ErrNotFound) {
		return nil, err
	}

	slug := challonge.ParseTournamentURL(rawURL)
	if slug == "" {
		return nil, fmt.Errorf("%w: unrecognized tournament URL %q", models.ErrValidation, rawURL)
	}

	tournament, err := s.provider.Tournament(slug)
	if err != nil {
		var apiErr *challonge.APIError
		if errors.As(err, &apiErr) && apiErr.Status == 404 {
			return nil, fmt.Errorf("%w: tournament %q", models.ErrNotFound, slug)
		}
		return nil, fmt.Errorf("tournament lookup failed: %w", err)
	}

	link := &models.BracketLink{
		GuildID:        guildID,
		ChannelID:      channelID,
		TournamentSlug: slug,
		TournamentName: tournament.Name,
		TournamentURL:  tournament.URL,
		State:          tournament.State,
		LinkedBy:       linkedBy,
	}
	if err := s.repo.UpsertLink(link); err != nil {
		return nil, err
	}

	s.logger.Info("channel %s linked to bracket %s", channelID, slug)
	return link, nil
}

func (s *BracketServiceImpl) Unlink(guildID, channelID string) error {
	deleted, err := s.repo.DeleteLink(guildID, channelID)
	if err != nil {
		return err
	}
	if !deleted {
		return fmt.Errorf("%w: no bracket linked to this channel", models.ErrNotFound)
	}
	return nil
}

func (s *BracketServiceImpl) Overview(guildID, channelID string) (*BracketOverview, error) {
	link, err := s.repo.LinkByChannel(guildID, channelID)
	if err != nil {
		return nil, err
	}

	tournament, err := s.provider.Tournament(link.TournamentSlug)
	if err != nil {
		return nil, fmt.Errorf("tournament lookup failed: %w", err)
	}

	matches, err := s.provider.Matches(link.TournamentSlug, "open")
	if err != nil {
		return nil, fmt.Errorf("match listing failed: %w", err)
	}

	participants, err := s.provider.Participants(link.TournamentSlug)
	if err != nil {
		return nil, fmt.Errorf("participant listing failed: %w", err)
	}

	return &BracketOverview{
		Link:         link,
		Tournament:   tournament,
		OpenMatches:  matches,
		Participants: participants,
	}, nil
}
