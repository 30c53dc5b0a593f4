package application

import (
	"sync"
	"time"

	"marshal/internal/models"
)

// nopLogger keeps tests quiet.
type nopLogger struct{}

func (nopLogger) Error(string, ...interface{}) {}
func (nopLogger) Warn(string, ...interface{})  {}
func (nopLogger) Info(string, ...interface{})  {}
func (nopLogger) Debug(string, ...interface{}) {}

// fakeClock hands out a controllable now.
type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

// fakeSessionRepo is an in-memory repository.Session with the same
// version-stamp semantics as the Postgres implementation.
type fakeSessionRepo struct {
	mu         sync.Mutex
	sessions   map[int64]*models.MatchSession
	nextID     int64
	nextGameID int64
}

func newFakeSessionRepo() *fakeSessionRepo {
	return &fakeSessionRepo{sessions: make(map[int64]*models.MatchSession)}
}

func copySession(s *models.MatchSession) *models.MatchSession {
	c := *s
	c.Games = append([]models.MatchGame(nil), s.Games...)
	return &c
}

func (r *fakeSessionRepo) CreateSession(s *models.MatchSession) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.sessions {
		if existing.ChannelID == s.ChannelID && existing.Status != models.StatusEnded {
			return models.ErrConflict
		}
	}
	r.nextID++
	s.ID = r.nextID
	s.Version = 1
	s.StartedAt = time.Now()
	r.sessions[s.ID] = copySession(s)
	return nil
}

func (r *fakeSessionRepo) SessionByID(id int64) (*models.MatchSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	return copySession(s), nil
}

func (r *fakeSessionRepo) ActiveSessionByChannel(guildID, channelID string) (*models.MatchSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, s := range r.sessions {
		if s.GuildID == guildID && s.ChannelID == channelID && s.Status != models.StatusEnded {
			return copySession(s), nil
		}
	}
	return nil, models.ErrNotFound
}

func (r *fakeSessionRepo) SaveTransition(s *models.MatchSession, game *models.MatchGame) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.sessions[s.ID]
	if !ok {
		return models.ErrNotFound
	}
	if stored.Version != s.Version {
		return models.ErrStaleState
	}
	if game != nil && game.ID == 0 {
		r.nextGameID++
		game.ID = r.nextGameID
		game.CreatedAt = time.Now()
	}
	s.Version++
	r.sessions[s.ID] = copySession(s)
	return nil
}

func (r *fakeSessionRepo) SaveUndo(s *models.MatchSession, gameID int64) error {
	return r.SaveTransition(s, nil)
}

func (r *fakeSessionRepo) StalledSessions(status models.SessionStatus, cutoff time.Time) ([]*models.MatchSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []*models.MatchSession
	for _, s := range r.sessions {
		if s.Status == status && !s.IsDisputed &&
			s.AckStartTime != nil && s.AckStartTime.Before(cutoff) {
			out = append(out, copySession(s))
		}
	}
	return out, nil
}

// fakeBracketRepo is an in-memory repository.Bracket.
type fakeBracketRepo struct {
	mu     sync.Mutex
	links  map[string]*models.BracketLink
	nextID int64
}

func newFakeBracketRepo() *fakeBracketRepo {
	return &fakeBracketRepo{links: make(map[string]*models.BracketLink)}
}

func bracketKey(guildID, channelID string) string {
	return guildID + "/" + channelID
}

func (r *fakeBracketRepo) UpsertLink(l *models.BracketLink) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := bracketKey(l.GuildID, l.ChannelID)
	if existing, ok := r.links[key]; ok {
		l.ID = existing.ID
	} else {
		r.nextID++
		l.ID = r.nextID
		l.LinkedAt = time.Now()
	}
	stored := *l
	r.links[key] = &stored
	return nil
}

func (r *fakeBracketRepo) LinkByChannel(guildID, channelID string) (*models.BracketLink, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	l, ok := r.links[bracketKey(guildID, channelID)]
	if !ok {
		return nil, models.ErrNotFound
	}
	c := *l
	return &c, nil
}

func (r *fakeBracketRepo) DeleteLink(guildID, channelID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := bracketKey(guildID, channelID)
	if _, ok := r.links[key]; !ok {
		return false, nil
	}
	delete(r.links, key)
	return true, nil
}
