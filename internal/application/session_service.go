package application

import (
	"errors"
	"fmt"
	"time"

	"marshal/internal/models"
	"marshal/internal/repository"
)

// casRetryLimit bounds the reload-validate-apply loop. Two sides plus the
// sweep are the only writers of a session, so a couple of retries is plenty.
const casRetryLimit = 3

// Ruling is the arbiter's decision that closes a dispute. Winner/Result
// override the disputed game when non-empty; ForceAcks fills both ack slots
// so the game settles immediately.
type Ruling struct {
	Winner     string
	Result     string
	ForceAcks  bool
	ResolvedBy string
}

// Finalizer is notified once per session that ends with a decided winner.
// It runs outside the controller's critical path.
type Finalizer interface {
	SessionEnded(s *models.MatchSession)
}

type SessionServiceImpl struct {
	repo      repository.Session
	finalizer Finalizer
	logger    Logger
	now       func() time.Time
}

func NewSessionServiceImpl(repo repository.Session, finalizer Finalizer, logger Logger) *SessionServiceImpl {
	return &SessionServiceImpl{
		repo:      repo,
		finalizer: finalizer,
		logger:    logger,
		now:       time.Now,
	}
}

func (s *SessionServiceImpl) Start(guildID, channelID, marshalID string, bestOf int, sideA, sideB string) (*models.MatchSession, error) {
	if bestOf < 1 || bestOf%2 == 0 {
		return nil, fmt.Errorf("%w: best_of must be an odd number of at least 1, got %d", models.ErrValidation, bestOf)
	}
	if sideA == "" || sideB == "" {
		return nil, fmt.Errorf("%w: both side names are required", models.ErrValidation)
	}
	if sideA == sideB {
		return nil, fmt.Errorf("%w: sides must be distinct", models.ErrValidation)
	}

	sess := &models.MatchSession{
		GuildID:   guildID,
		ChannelID: channelID,
		MarshalID: marshalID,
		SideA:     sideA,
		SideB:     sideB,
		BestOf:    bestOf,
		Status:    models.StatusOngoing,
	}
	if err := s.repo.CreateSession(sess); err != nil {
		return nil, err
	}

	s.logger.Info("match session %d started in channel %s (BO%d, %s vs %s)",
		sess.ID, channelID, bestOf, sideA, sideB)
	return sess, nil
}

// SubmitResult logs the outcome of the next game, or rewrites the currently
// disputed game, and opens the acknowledgement window.
func (s *SessionServiceImpl) SubmitResult(sessionID int64, gameNumber int, winner, result string) (*models.MatchSession, error) {
	return s.transition(sessionID, func(sess *models.MatchSession) (*models.MatchGame, error) {
		if sess.Status == models.StatusEnded {
			return nil, fmt.Errorf("%w: session has ended", models.ErrStaleState)
		}
		if !sess.HasSide(winner) {
			return nil, fmt.Errorf("%w: %q is not a side in this session", models.ErrValidation, winner)
		}

		now := s.now()

		// Correction path: the disputed game's result may be rewritten while
		// the dispute is open. Acks reset and the window restarts.
		if sess.Status == models.StatusCheckingAck && sess.IsDisputed {
			game := sess.CurrentGame()
			if gameNumber != game.GameNumber {
				return nil, fmt.Errorf("%w: only the disputed game %d may be corrected", models.ErrValidation, game.GameNumber)
			}
			game.Winner = winner
			game.Result = result
			game.ClearAcks()
			sess.AckStartTime = &now
			return game, nil
		}

		if sess.Status != models.StatusOngoing {
			return nil, fmt.Errorf("%w: previous game still awaits acknowledgement", models.ErrStaleState)
		}

		next := len(sess.Games) + 1
		if gameNumber != next {
			return nil, fmt.Errorf("%w: expected game %d, got %d", models.ErrValidation, next, gameNumber)
		}
		if next > sess.BestOf {
			return nil, fmt.Errorf("%w: series is best of %d, no game %d", models.ErrValidation, sess.BestOf, next)
		}

		sess.Games = append(sess.Games, models.MatchGame{
			SessionID:  sess.ID,
			GameNumber: next,
			Winner:     winner,
			Result:     result,
		})
		sess.Status = models.StatusCheckingAck
		sess.AckStartTime = &now
		return sess.CurrentGame(), nil
	})
}

// Acknowledge records a side's confirmation of the current game. While the
// game is unsettled a side may re-acknowledge, overwriting only its own
// slot. Both slots present with no open dispute settles the game.
func (s *SessionServiceImpl) Acknowledge(sessionID int64, gameNumber int, side, user string) (*models.MatchSession, error) {
	return s.transition(sessionID, func(sess *models.MatchSession) (*models.MatchGame, error) {
		if sess.Status != models.StatusCheckingAck {
			return nil, fmt.Errorf("%w: no game is awaiting acknowledgement", models.ErrStaleState)
		}
		game := sess.CurrentGame()
		if gameNumber != game.GameNumber {
			return nil, fmt.Errorf("%w: game %d is not the one being acknowledged", models.ErrValidation, gameNumber)
		}
		if !sess.HasSide(side) {
			return nil, fmt.Errorf("%w: %q is not a side in this session", models.ErrValidation, side)
		}

		sess.RecordAck(game, side, user, s.now())
		s.settleIfAcked(sess, game)
		return game, nil
	})
}

// Dispute opens a dispute interval on the pending game, pausing the
// acknowledgement window. No settlement happens while it is open.
func (s *SessionServiceImpl) Dispute(sessionID int64, raisedBy string) (*models.MatchSession, error) {
	sess, err := s.transition(sessionID, func(sess *models.MatchSession) (*models.MatchGame, error) {
		if sess.Status != models.StatusCheckingAck {
			return nil, fmt.Errorf("%w: no result is pending", models.ErrStaleState)
		}
		if sess.IsDisputed {
			return nil, fmt.Errorf("%w: a dispute is already open", models.ErrStaleState)
		}
		sess.OpenDispute(s.now())
		return nil, nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("dispute opened on session %d by %s", sessionID, raisedBy)
	return sess, nil
}

// ResolveDispute applies the arbiter's ruling, folds the closed interval
// into the dispute accumulator, restarts the acknowledgement window and
// re-evaluates settlement.
func (s *SessionServiceImpl) ResolveDispute(sessionID int64, ruling Ruling) (*models.MatchSession, error) {
	return s.transition(sessionID, func(sess *models.MatchSession) (*models.MatchGame, error) {
		if !sess.IsDisputed {
			return nil, fmt.Errorf("%w: no dispute is open", models.ErrStaleState)
		}
		game := sess.CurrentGame()

		if ruling.Winner != "" {
			if !sess.HasSide(ruling.Winner) {
				return nil, fmt.Errorf("%w: %q is not a side in this session", models.ErrValidation, ruling.Winner)
			}
			game.Winner = ruling.Winner
		}
		if ruling.Result != "" {
			game.Result = ruling.Result
		}

		now := s.now()
		elapsed := sess.CloseDispute(now)
		sess.AckStartTime = &now

		if ruling.ForceAcks {
			user := ruling.ResolvedBy + " (ruling)"
			sess.RecordAck(game, sess.SideA, user, now)
			sess.RecordAck(game, sess.SideB, user, now)
		}
		s.settleIfAcked(sess, game)

		s.logger.Info("dispute on session %d resolved after %ds", sess.ID, elapsed)
		return game, nil
	})
}

// ForceEnd aborts the session from any non-terminal state. An open dispute
// interval is closed into the accumulator first; no winner is computed.
func (s *SessionServiceImpl) ForceEnd(sessionID int64, reason string) (*models.MatchSession, error) {
	sess, err := s.transition(sessionID, func(sess *models.MatchSession) (*models.MatchGame, error) {
		if sess.Status == models.StatusEnded {
			return nil, fmt.Errorf("%w: session has already ended", models.ErrStaleState)
		}
		now := s.now()
		sess.CloseDispute(now)
		sess.AckStartTime = nil
		sess.Status = models.StatusEnded
		sess.EndedAt = &now
		return nil, nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("session %d force-ended: %s", sessionID, reason)
	return sess, nil
}

// UndoGame removes the most recent game and returns the session to ongoing.
func (s *SessionServiceImpl) UndoGame(sessionID int64) (*models.MatchSession, error) {
	for attempt := 0; attempt < casRetryLimit; attempt++ {
		sess, err := s.repo.SessionByID(sessionID)
		if err != nil {
			return nil, err
		}
		if sess.Status == models.StatusEnded {
			return nil, fmt.Errorf("%w: session has ended", models.ErrStaleState)
		}
		game := sess.CurrentGame()
		if game == nil {
			return nil, fmt.Errorf("%w: no games to undo", models.ErrValidation)
		}

		sess.CloseDispute(s.now())
		sess.Status = models.StatusOngoing
		sess.AckStartTime = nil
		gameID := game.ID
		sess.Games = sess.Games[:len(sess.Games)-1]

		err = s.repo.SaveUndo(sess, gameID)
		if err == nil {
			return sess, nil
		}
		if !errors.Is(err, models.ErrStaleState) {
			return nil, err
		}
	}
	return nil, models.ErrStaleState
}

func (s *SessionServiceImpl) SessionByID(sessionID int64) (*models.MatchSession, error) {
	return s.repo.SessionByID(sessionID)
}

func (s *SessionServiceImpl) SessionByChannel(guildID, channelID string) (*models.MatchSession, error) {
	return s.repo.ActiveSessionByChannel(guildID, channelID)
}

// SetLastMessageID remembers the status message the delivery layer keeps in
// sync, so it can resume editing it after a restart.
func (s *SessionServiceImpl) SetLastMessageID(sessionID int64, messageID string) error {
	_, err := s.transition(sessionID, func(sess *models.MatchSession) (*models.MatchGame, error) {
		sess.LastMessageID = messageID
		return nil, nil
	})
	return err
}

// settleIfAcked applies the settlement rule: both slots present and no open
// dispute. A settled game either decides the series or reopens it.
func (s *SessionServiceImpl) settleIfAcked(sess *models.MatchSession, game *models.MatchGame) {
	if sess.IsDisputed || !game.Acked() {
		return
	}

	sess.AckStartTime = nil
	winsA, winsB := sess.WinCounts()
	needed := sess.WinsNeeded()

	switch {
	case winsA >= needed:
		s.endDecided(sess, sess.SideA)
	case winsB >= needed:
		s.endDecided(sess, sess.SideB)
	default:
		sess.Status = models.StatusOngoing
	}
}

func (s *SessionServiceImpl) endDecided(sess *models.MatchSession, winner string) {
	now := s.now()
	sess.Status = models.StatusEnded
	sess.Winner = winner
	sess.EndedAt = &now
}

// transition runs a mutating operation through the reload-validate-apply
// loop. apply mutates the freshly loaded session and may return a game to
// persist alongside it; a version conflict at commit reloads and
// revalidates, so no operation ever lands on a stale snapshot.
func (s *SessionServiceImpl) transition(sessionID int64, apply func(*models.MatchSession) (*models.MatchGame, error)) (*models.MatchSession, error) {
	for attempt := 0; attempt < casRetryLimit; attempt++ {
		sess, err := s.repo.SessionByID(sessionID)
		if err != nil {
			return nil, err
		}
		prev := sess.Status

		game, err := apply(sess)
		if err != nil {
			return nil, err
		}

		err = s.repo.SaveTransition(sess, game)
		if err == nil {
			s.afterCommit(prev, sess)
			return sess, nil
		}
		if !errors.Is(err, models.ErrStaleState) {
			return nil, err
		}
		s.logger.Debug("session %d version conflict, retrying (attempt %d)", sessionID, attempt+1)
	}
	return nil, models.ErrStaleState
}

// afterCommit hands a decided series to the bracket synchronizer. Only the
// commit that moved the session into the ended status fires it; later writes
// against the terminal row (message bookkeeping) never re-trigger the sync.
// The ended status is already durable; sync failures never roll it back.
func (s *SessionServiceImpl) afterCommit(prev models.SessionStatus, sess *models.MatchSession) {
	if prev == models.StatusEnded || sess.Status != models.StatusEnded || sess.Winner == "" || s.finalizer == nil {
		return
	}
	snapshot := *sess
	go s.finalizer.SessionEnded(&snapshot)
}
