package repository

import (
	"database/sql"
	"errors"
	"fmt"

	"marshal/internal/models"
)

type BracketPostgres struct {
	db *sql.DB
}

func NewBracketPostgres(db *sql.DB) *BracketPostgres {
	return &BracketPostgres{db: db}
}

func (r *BracketPostgres) UpsertLink(l *models.BracketLink) error {
	query := `
		INSERT INTO bracket_links
			(guild_id, channel_id, tournament_slug, tournament_name, tournament_url, state, linked_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (guild_id, channel_id) DO UPDATE SET
			tournament_slug = EXCLUDED.tournament_slug,
			tournament_name = EXCLUDED.tournament_name,
			tournament_url = EXCLUDED.tournament_url,
			state = EXCLUDED.state,
			linked_by = EXCLUDED.linked_by
		RETURNING id, linked_at`

	err := r.db.QueryRow(query,
		l.GuildID, l.ChannelID, l.TournamentSlug, l.TournamentName,
		l.TournamentURL, l.State, l.LinkedBy,
	).Scan(&l.ID, &l.LinkedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert bracket link: %w", err)
	}
	return nil
}

func (r *BracketPostgres) LinkByChannel(guildID, channelID string) (*models.BracketLink, error) {
	var l models.BracketLink
	err := r.db.QueryRow(`
		SELECT id, guild_id, channel_id, tournament_slug, tournament_name,
			tournament_url, state, linked_by, linked_at
		FROM bracket_links WHERE guild_id = $1 AND channel_id = $2`,
		guildID, channelID,
	).Scan(&l.ID, &l.GuildID, &l.ChannelID, &l.TournamentSlug, &l.TournamentName,
		&l.TournamentURL, &l.State, &l.LinkedBy, &l.LinkedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get bracket link: %w", err)
	}
	return &l, nil
}

func (r *BracketPostgres) DeleteLink(guildID, channelID string) (bool, error) {
	res, err := r.db.Exec(
		"DELETE FROM bracket_links WHERE guild_id = $1 AND channel_id = $2",
		guildID, channelID)
	if err != nil {
		return false, fmt.Errorf("failed to delete bracket link: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return affected > 0, nil
}
