package models

import "time"

// BracketLink ties a channel to an external tournament bracket. At most one
// link per (guild, channel); sessions associate with it by channel only.
type BracketLink struct {
	ID             int64
	GuildID        string
	ChannelID      string
	TournamentSlug string
	TournamentName string
	TournamentURL  string
	State          string
	LinkedBy       string
	LinkedAt       time.Time
}
