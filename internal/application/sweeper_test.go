package application

import (
	"testing"
	"time"

	"marshal/internal/models"
)

func newTestSweeper(window time.Duration) (*Sweeper, *SessionServiceImpl, *fakeSessionRepo, *fakeClock) {
	svc, repo, clock := newTestEngine()
	w := NewSweeper(svc, repo, nopLogger{}, window, time.Minute)
	w.now = clock.Now
	return w, svc, repo, clock
}

func TestSweepSettlesStalledSession(t *testing.T) {
	w, svc, repo, clock := newTestSweeper(5 * time.Minute)

	sess := startSession(t, svc, 3)
	if _, err := svc.SubmitResult(sess.ID, 1, "TNC", ""); err != nil {
		t.Fatalf("SubmitResult: %v", err)
	}
	if _, err := svc.Acknowledge(sess.ID, 1, "TNC", "alice"); err != nil {
		t.Fatalf("ack: %v", err)
	}

	clock.Advance(6 * time.Minute)
	w.Sweep()

	final, err := repo.SessionByID(sess.ID)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if final.Status != models.StatusOngoing {
		t.Fatalf("status = %s, want settled back to ongoing", final.Status)
	}
	game := final.CurrentGame()
	if game.AckAUser != "alice" {
		t.Errorf("side A ack user = %q, human ack must survive", game.AckAUser)
	}
	if game.AckBUser != timeoutAckUser {
		t.Errorf("side B ack user = %q, want %q", game.AckBUser, timeoutAckUser)
	}
	winsA, _ := final.WinCounts()
	if winsA != 1 {
		t.Errorf("side A wins = %d, want 1", winsA)
	}
}

func TestSweepCanDecideSeries(t *testing.T) {
	w, svc, repo, clock := newTestSweeper(5 * time.Minute)

	sess := startSession(t, svc, 1)
	if _, err := svc.SubmitResult(sess.ID, 1, "BTK", ""); err != nil {
		t.Fatalf("SubmitResult: %v", err)
	}

	clock.Advance(10 * time.Minute)
	w.Sweep()

	final, err := repo.SessionByID(sess.ID)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if final.Status != models.StatusEnded || final.Winner != "BTK" {
		t.Fatalf("status=%s winner=%q, want ended with BTK", final.Status, final.Winner)
	}
}

func TestSweepSkipsFreshSessions(t *testing.T) {
	w, svc, repo, clock := newTestSweeper(5 * time.Minute)

	sess := startSession(t, svc, 3)
	if _, err := svc.SubmitResult(sess.ID, 1, "TNC", ""); err != nil {
		t.Fatalf("SubmitResult: %v", err)
	}

	clock.Advance(time.Minute)
	w.Sweep()

	final, err := repo.SessionByID(sess.ID)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if final.Status != models.StatusCheckingAck {
		t.Fatalf("status = %s, window has not elapsed yet", final.Status)
	}
	if final.CurrentGame().Acked() {
		t.Fatal("no acks may be forged before the window elapses")
	}
}

func TestSweepSkipsDisputedSessions(t *testing.T) {
	w, svc, repo, clock := newTestSweeper(5 * time.Minute)

	sess := startSession(t, svc, 3)
	if _, err := svc.SubmitResult(sess.ID, 1, "TNC", ""); err != nil {
		t.Fatalf("SubmitResult: %v", err)
	}
	if _, err := svc.Dispute(sess.ID, "btk"); err != nil {
		t.Fatalf("Dispute: %v", err)
	}

	clock.Advance(time.Hour)
	w.Sweep()

	final, err := repo.SessionByID(sess.ID)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if !final.IsDisputed || final.Status != models.StatusCheckingAck {
		t.Fatal("the window is paused while a dispute is open")
	}
	if final.CurrentGame().Acked() {
		t.Fatal("no acks may be forged while disputed")
	}
}

// staleReadService serves a fixed stale snapshot on reload, simulating a
// session that moved on between the sweep's scan and its ack attempt.
type staleReadService struct {
	SessionService
	stale *models.MatchSession
}

func (s *staleReadService) SessionByID(id int64) (*models.MatchSession, error) {
	return s.stale, nil
}

// errCountingLogger counts error-level logs.
type errCountingLogger struct {
	nopLogger
	errors int
}

func (l *errCountingLogger) Error(string, ...interface{}) { l.errors++ }

func TestSettleByTimeoutYieldsWhenSeriesMovedOn(t *testing.T) {
	svc, repo, clock := newTestEngine()

	sess := startSession(t, svc, 3)
	if _, err := svc.SubmitResult(sess.ID, 1, "TNC", ""); err != nil {
		t.Fatalf("SubmitResult: %v", err)
	}
	stale, err := repo.SessionByID(sess.ID)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}

	// The series settles and game 2 opens after the sweep took its snapshot.
	if _, err := svc.Acknowledge(sess.ID, 1, "TNC", "alice"); err != nil {
		t.Fatalf("ack: %v", err)
	}
	if _, err := svc.Acknowledge(sess.ID, 1, "BTK", "bob"); err != nil {
		t.Fatalf("ack: %v", err)
	}
	if _, err := svc.SubmitResult(sess.ID, 2, "BTK", ""); err != nil {
		t.Fatalf("SubmitResult game 2: %v", err)
	}

	log := &errCountingLogger{}
	w := NewSweeper(&staleReadService{SessionService: svc, stale: stale}, repo, log, 5*time.Minute, time.Minute)
	w.now = clock.Now

	w.settleByTimeout(sess.ID)

	if log.errors != 0 {
		t.Errorf("sweep logged %d error(s) for a cleanly lost race", log.errors)
	}
	final, err := repo.SessionByID(sess.ID)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	game := final.CurrentGame()
	if game.GameNumber != 2 || game.AckAAt != nil || game.AckBAt != nil {
		t.Fatalf("stale sweep mutated game %d acks (%v, %v)", game.GameNumber, game.AckAAt, game.AckBAt)
	}
}

func TestSettleByTimeoutYieldsToEarlierSettlement(t *testing.T) {
	w, svc, repo, _ := newTestSweeper(5 * time.Minute)

	sess := startSession(t, svc, 3)
	if _, err := svc.SubmitResult(sess.ID, 1, "TNC", ""); err != nil {
		t.Fatalf("SubmitResult: %v", err)
	}
	if _, err := svc.Acknowledge(sess.ID, 1, "TNC", "alice"); err != nil {
		t.Fatalf("ack: %v", err)
	}
	if _, err := svc.Acknowledge(sess.ID, 1, "BTK", "bob"); err != nil {
		t.Fatalf("ack: %v", err)
	}

	w.settleByTimeout(sess.ID)

	final, err := repo.SessionByID(sess.ID)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	game := final.CurrentGame()
	if game.AckAUser != "alice" || game.AckBUser != "bob" {
		t.Errorf("ack users = (%q, %q), human settlement must stand untouched",
			game.AckAUser, game.AckBUser)
	}
}
