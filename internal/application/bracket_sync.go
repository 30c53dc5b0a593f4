package application

import (
	"errors"
	"fmt"
	"time"

	"marshal/internal/models"
	"marshal/internal/repository"
	"marshal/pkg/challonge"
)

// BracketSyncer pushes a decided series to the linked bracket. The local
// session record stays authoritative: the bracket is eventually consistent
// with it, never the reverse, so failures here are logged and confined.
type BracketSyncer struct {
	repo     repository.Bracket
	provider BracketProvider
	logger   Logger

	attempts  int
	baseDelay time.Duration
}

func NewBracketSyncer(repo repository.Bracket, provider BracketProvider, logger Logger) *BracketSyncer {
	return &BracketSyncer{
		repo:      repo,
		provider:  provider,
		logger:    logger,
		attempts:  3,
		baseDelay: 2 * time.Second,
	}
}

// SessionEnded reports the series result to the channel's linked bracket.
// No link means nothing to do.
func (b *BracketSyncer) SessionEnded(sess *models.MatchSession) {
	link, err := b.repo.LinkByChannel(sess.GuildID, sess.ChannelID)
	if errors.Is(err, models.ErrNotFound) {
		b.logger.Debug("session %d ended with no bracket link, skipping sync", sess.ID)
		return
	}
	if err != nil {
		b.logger.Error("bracket link lookup for session %d failed: %v", sess.ID, err)
		return
	}

	if err := b.push(link.TournamentSlug, sess); err != nil {
		b.logger.Error("bracket sync for session %d gave up: %v", sess.ID, err)
		return
	}
	b.logger.Info("session %d result pushed to bracket %s", sess.ID, link.TournamentSlug)
}

// push retries the report with exponential backoff.
func (b *BracketSyncer) push(slug string, sess *models.MatchSession) error {
	var err error
	for attempt := 0; attempt < b.attempts; attempt++ {
		if attempt > 0 {
			time.Sleep(b.baseDelay << (attempt - 1))
		}
		if err = b.report(slug, sess); err == nil {
			return nil
		}
		b.logger.Warn("bracket sync attempt %d for session %d: %v", attempt+1, sess.ID, err)
	}
	return err
}

func (b *BracketSyncer) report(slug string, sess *models.MatchSession) error {
	participants, err := b.provider.Participants(slug)
	if err != nil {
		return fmt.Errorf("%w: listing participants: %v", models.ErrBracketSync, err)
	}

	winner, ok := challonge.FindParticipant(participants, sess.Winner)
	if !ok {
		return fmt.Errorf("%w: winner %q not found among %d participants",
			models.ErrBracketSync, sess.Winner, len(participants))
	}

	matches, err := b.provider.Matches(slug, "open")
	if err != nil {
		return fmt.Errorf("%w: listing open matches: %v", models.ErrBracketSync, err)
	}

	for _, m := range matches {
		if !m.HasParticipant(winner.ID) {
			continue
		}
		if _, err := b.provider.ReportResult(slug, m.ID, winner.ID, seriesScore(sess)); err != nil {
			return fmt.Errorf("%w: reporting match %d: %v", models.ErrBracketSync, m.ID, err)
		}
		return nil
	}
	return fmt.Errorf("%w: no open bracket match for %q", models.ErrBracketSync, sess.Winner)
}

// seriesScore renders the final tally winner-first, e.g. "2-1".
func seriesScore(sess *models.MatchSession) string {
	winsA, winsB := sess.WinCounts()
	if sess.Winner == sess.SideB {
		winsA, winsB = winsB, winsA
	}
	return fmt.Sprintf("%d-%d", winsA, winsB)
}
