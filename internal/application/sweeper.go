package application

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-co-op/gocron/v2"

	"marshal/internal/models"
	"marshal/internal/repository"
)

// Sweeper periodically settles sessions stuck in checking_ack past the
// acknowledgement window. A side that stays silent for the whole window is
// taken to accept the submitted result. The sweep acts strictly through the
// controller, so it holds no privilege: if a human settlement commits first
// the sweep's attempt fails with ErrStaleState and is dropped.
type Sweeper struct {
	sessions SessionService
	repo     repository.Session
	logger   Logger

	window   time.Duration
	interval time.Duration
	sched    gocron.Scheduler
	now      func() time.Time
}

const timeoutAckUser = "auto-ack (timeout)"

func NewSweeper(sessions SessionService, repo repository.Session, logger Logger, window, interval time.Duration) *Sweeper {
	return &Sweeper{
		sessions: sessions,
		repo:     repo,
		logger:   logger,
		window:   window,
		interval: interval,
		now:      time.Now,
	}
}

func (w *Sweeper) Init() error {
	sched, err := gocron.NewScheduler()
	if err != nil {
		return fmt.Errorf("failed to create sweep scheduler: %w", err)
	}
	if _, err := sched.NewJob(
		gocron.DurationJob(w.interval),
		gocron.NewTask(w.Sweep),
	); err != nil {
		return fmt.Errorf("failed to schedule sweep job: %w", err)
	}
	w.sched = sched
	return nil
}

func (w *Sweeper) Run(ctx context.Context) {
	w.logger.Info("ack sweep running every %s (window %s)", w.interval, w.window)
	w.sched.Start()
	<-ctx.Done()
}

func (w *Sweeper) Stop() {
	if w.sched != nil {
		_ = w.sched.Shutdown()
	}
}

// Sweep scans for undisputed sessions whose window elapsed and
// force-acknowledges the silent sides.
func (w *Sweeper) Sweep() {
	cutoff := w.now().Add(-w.window)
	stalled, err := w.repo.StalledSessions(models.StatusCheckingAck, cutoff)
	if err != nil {
		w.logger.Error("sweep scan failed: %v", err)
		return
	}

	for _, sess := range stalled {
		w.settleByTimeout(sess.ID)
	}
}

func (w *Sweeper) settleByTimeout(sessionID int64) {
	sess, err := w.sessions.SessionByID(sessionID)
	if err != nil {
		w.logger.Error("sweep reload of session %d failed: %v", sessionID, err)
		return
	}
	game := sess.CurrentGame()
	if game == nil {
		return
	}

	for _, side := range sess.UnackedSides() {
		_, err := w.sessions.Acknowledge(sess.ID, game.GameNumber, side, timeoutAckUser)
		if err == nil {
			w.logger.Info("session %d game %d: timed-out ack recorded for %s",
				sess.ID, game.GameNumber, side)
			continue
		}
		// Someone beat the sweep to it; that action wins. A validation
		// failure means the current game moved on under the sweep's snapshot.
		if errors.Is(err, models.ErrStaleState) || errors.Is(err, models.ErrValidation) {
			w.logger.Debug("session %d changed before sweep could act", sess.ID)
			return
		}
		w.logger.Error("sweep ack on session %d failed: %v", sess.ID, err)
		return
	}
}
