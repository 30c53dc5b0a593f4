package repository

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"marshal/internal/models"
)

type SessionPostgres struct {
	db *sql.DB
}

func NewSessionPostgres(db *sql.DB) *SessionPostgres {
	return &SessionPostgres{db: db}
}

const sessionColumns = `id, guild_id, channel_id, marshal_id, side_a, side_b, best_of,
	status, is_disputed, ack_start_time, dispute_start_time, total_dispute_seconds,
	last_message_id, winner, started_at, ended_at, version`

// CreateSession is a conditional insert: the row is written only when the
// channel has no non-ended session. A partial unique index on (channel_id)
// WHERE status <> 'ended' backs this up against two inserts racing past the
// NOT EXISTS check.
func (r *SessionPostgres) CreateSession(s *models.MatchSession) error {
	query := `
		INSERT INTO match_sessions (guild_id, channel_id, marshal_id, side_a, side_b, best_of, status)
		SELECT $1, $2, $3, $4, $5, $6, $7
		WHERE NOT EXISTS (
			SELECT 1 FROM match_sessions WHERE channel_id = $2 AND status <> 'ended'
		)
		RETURNING id, started_at, version`

	err := r.db.QueryRow(query,
		s.GuildID, s.ChannelID, s.MarshalID, s.SideA, s.SideB, s.BestOf, string(s.Status),
	).Scan(&s.ID, &s.StartedAt, &s.Version)
	if errors.Is(err, sql.ErrNoRows) {
		return models.ErrConflict
	}
	if err != nil {
		if isUniqueViolation(err) {
			return models.ErrConflict
		}
		return fmt.Errorf("failed to insert match session: %w", err)
	}
	return nil
}

func (r *SessionPostgres) SessionByID(id int64) (*models.MatchSession, error) {
	query := fmt.Sprintf("SELECT %s FROM match_sessions WHERE id = $1", sessionColumns)
	s, err := scanSession(r.db.QueryRow(query, id))
	if err != nil {
		return nil, err
	}
	if err := r.loadGames(s); err != nil {
		return nil, err
	}
	return s, nil
}

func (r *SessionPostgres) ActiveSessionByChannel(guildID, channelID string) (*models.MatchSession, error) {
	query := fmt.Sprintf(
		"SELECT %s FROM match_sessions WHERE guild_id = $1 AND channel_id = $2 AND status <> 'ended'",
		sessionColumns)
	s, err := scanSession(r.db.QueryRow(query, guildID, channelID))
	if err != nil {
		return nil, err
	}
	if err := r.loadGames(s); err != nil {
		return nil, err
	}
	return s, nil
}

// SaveTransition commits a state transition atomically: the session update is
// guarded by the version stamp and the game write rides in the same
// transaction, so either the whole transition lands or none of it does.
func (r *SessionPostgres) SaveTransition(s *models.MatchSession, game *models.MatchGame) error {
	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	if err = casUpdateSession(tx, s); err != nil {
		return err
	}

	if game != nil {
		if game.ID == 0 {
			err = tx.QueryRow(`
				INSERT INTO match_games (session_id, game_number, winner, result)
				VALUES ($1, $2, $3, $4)
				RETURNING id, created_at`,
				game.SessionID, game.GameNumber, game.Winner, game.Result,
			).Scan(&game.ID, &game.CreatedAt)
			if err != nil {
				return fmt.Errorf("failed to insert game %d: %w", game.GameNumber, err)
			}
		} else {
			_, err = tx.Exec(`
				UPDATE match_games SET winner = $1, result = $2,
					ack_a_user = $3, ack_a_at = $4, ack_b_user = $5, ack_b_at = $6
				WHERE id = $7`,
				game.Winner, game.Result,
				nullString(game.AckAUser), game.AckAAt,
				nullString(game.AckBUser), game.AckBAt,
				game.ID)
			if err != nil {
				return fmt.Errorf("failed to update game %d: %w", game.GameNumber, err)
			}
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transition: %w", err)
	}
	s.Version++
	return nil
}

func (r *SessionPostgres) SaveUndo(s *models.MatchSession, gameID int64) error {
	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	if err = casUpdateSession(tx, s); err != nil {
		return err
	}

	if _, err = tx.Exec("DELETE FROM match_games WHERE id = $1", gameID); err != nil {
		return fmt.Errorf("failed to delete game: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit undo: %w", err)
	}
	s.Version++
	return nil
}

func (r *SessionPostgres) StalledSessions(status models.SessionStatus, cutoff time.Time) ([]*models.MatchSession, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM match_sessions
		WHERE status = $1 AND is_disputed = FALSE AND ack_start_time < $2
		ORDER BY ack_start_time`, sessionColumns)

	rows, err := r.db.Query(query, string(status), cutoff)
	if err != nil {
		return nil, fmt.Errorf("failed to scan stalled sessions: %w", err)
	}
	defer rows.Close()

	var sessions []*models.MatchSession
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, s)
	}
	return sessions, rows.Err()
}

// casUpdateSession writes every mutable session field guarded by the version
// stamp. Zero rows affected means a concurrent writer won the race.
func casUpdateSession(tx *sql.Tx, s *models.MatchSession) error {
	res, err := tx.Exec(`
		UPDATE match_sessions SET status = $1, is_disputed = $2, ack_start_time = $3,
			dispute_start_time = $4, total_dispute_seconds = $5, last_message_id = $6,
			winner = $7, ended_at = $8, version = version + 1
		WHERE id = $9 AND version = $10`,
		string(s.Status), s.IsDisputed, s.AckStartTime,
		s.DisputeStartTime, s.TotalDisputeSeconds, s.LastMessageID,
		s.Winner, s.EndedAt,
		s.ID, s.Version)
	if err != nil {
		return fmt.Errorf("failed to update session %d: %w", s.ID, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return models.ErrStaleState
	}
	return nil
}

func (r *SessionPostgres) loadGames(s *models.MatchSession) error {
	rows, err := r.db.Query(`
		SELECT id, session_id, game_number, winner, result,
			ack_a_user, ack_a_at, ack_b_user, ack_b_at, created_at
		FROM match_games WHERE session_id = $1 ORDER BY game_number`, s.ID)
	if err != nil {
		return fmt.Errorf("failed to load games for session %d: %w", s.ID, err)
	}
	defer rows.Close()

	for rows.Next() {
		var g models.MatchGame
		var ackAUser, ackBUser sql.NullString
		if err := rows.Scan(&g.ID, &g.SessionID, &g.GameNumber, &g.Winner, &g.Result,
			&ackAUser, &g.AckAAt, &ackBUser, &g.AckBAt, &g.CreatedAt); err != nil {
			return fmt.Errorf("failed to scan game: %w", err)
		}
		g.AckAUser = ackAUser.String
		g.AckBUser = ackBUser.String
		s.Games = append(s.Games, g)
	}
	return rows.Err()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanSession(row rowScanner) (*models.MatchSession, error) {
	var s models.MatchSession
	var status string
	err := row.Scan(&s.ID, &s.GuildID, &s.ChannelID, &s.MarshalID, &s.SideA, &s.SideB,
		&s.BestOf, &status, &s.IsDisputed, &s.AckStartTime, &s.DisputeStartTime,
		&s.TotalDisputeSeconds, &s.LastMessageID, &s.Winner, &s.StartedAt, &s.EndedAt,
		&s.Version)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan session: %w", err)
	}
	s.Status = models.SessionStatus(status)
	return &s, nil
}

func nullString(v string) sql.NullString {
	return sql.NullString{String: v, Valid: v != ""}
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}
