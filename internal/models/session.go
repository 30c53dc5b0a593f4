package models

import "time"

type SessionStatus string

const (
	StatusOngoing     SessionStatus = "ongoing"
	StatusCheckingAck SessionStatus = "checking_ack"
	StatusEnded       SessionStatus = "ended"
)

// MatchSession is one best-of-N series in a channel. At most one session per
// channel may be in a non-ended status at any time.
type MatchSession struct {
	ID                  int64
	GuildID             string
	ChannelID           string
	MarshalID           string
	SideA               string
	SideB               string
	BestOf              int
	Status              SessionStatus
	IsDisputed          bool
	AckStartTime        *time.Time
	DisputeStartTime    *time.Time
	TotalDisputeSeconds int
	LastMessageID       string
	Winner              string
	StartedAt           time.Time
	EndedAt             *time.Time
	Version             int

	Games []MatchGame
}

// MatchGame belongs to exactly one session and is removed with it. The result
// is only ever rewritten while the game is disputed; acks are the only other
// mutable fields.
type MatchGame struct {
	ID         int64
	SessionID  int64
	GameNumber int
	Winner     string
	Result     string
	AckAUser   string
	AckAAt     *time.Time
	AckBUser   string
	AckBAt     *time.Time
	CreatedAt  time.Time
}

// Acked reports whether both sides have confirmed the result.
func (g *MatchGame) Acked() bool {
	return g.AckAAt != nil && g.AckBAt != nil
}

func (g *MatchGame) ClearAcks() {
	g.AckAUser, g.AckAAt = "", nil
	g.AckBUser, g.AckBAt = "", nil
}

func (s *MatchSession) HasSide(side string) bool {
	return side == s.SideA || side == s.SideB
}

// WinsNeeded is the majority of wins that decides an odd best-of series.
func (s *MatchSession) WinsNeeded() int {
	return s.BestOf/2 + 1
}

// CurrentGame is the most recently submitted game, or nil before game 1.
func (s *MatchSession) CurrentGame() *MatchGame {
	if len(s.Games) == 0 {
		return nil
	}
	return &s.Games[len(s.Games)-1]
}

// WinCounts tallies wins per side over settled (dual-acked) games only.
func (s *MatchSession) WinCounts() (sideA, sideB int) {
	for i := range s.Games {
		g := &s.Games[i]
		if !g.Acked() {
			continue
		}
		switch g.Winner {
		case s.SideA:
			sideA++
		case s.SideB:
			sideB++
		}
	}
	return sideA, sideB
}

// RecordAck writes the given side's ack slot. A side re-acknowledging before
// settlement overwrites its own slot only.
func (s *MatchSession) RecordAck(g *MatchGame, side, user string, at time.Time) {
	if side == s.SideA {
		g.AckAUser = user
		t := at
		g.AckAAt = &t
		return
	}
	g.AckBUser = user
	t := at
	g.AckBAt = &t
}

// UnackedSides lists the sides that have not confirmed the current game yet.
func (s *MatchSession) UnackedSides() []string {
	g := s.CurrentGame()
	if g == nil {
		return nil
	}
	var sides []string
	if g.AckAAt == nil {
		sides = append(sides, s.SideA)
	}
	if g.AckBAt == nil {
		sides = append(sides, s.SideB)
	}
	return sides
}

// OpenDispute starts a dispute interval. The caller must ensure no interval
// is already open.
func (s *MatchSession) OpenDispute(now time.Time) {
	s.IsDisputed = true
	t := now
	s.DisputeStartTime = &t
}

// CloseDispute ends the open interval and folds its duration into the
// accumulator. The open interval contributes only here, never before.
// Returns the number of seconds added.
func (s *MatchSession) CloseDispute(now time.Time) int {
	if s.DisputeStartTime == nil {
		return 0
	}
	elapsed := int(now.Sub(*s.DisputeStartTime).Seconds())
	if elapsed < 0 {
		elapsed = 0
	}
	s.TotalDisputeSeconds += elapsed
	s.IsDisputed = false
	s.DisputeStartTime = nil
	return elapsed
}
