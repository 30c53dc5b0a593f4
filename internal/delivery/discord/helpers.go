package discord

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"

	"marshal/internal/models"
)

func callerID(i *discordgo.Interaction) string {
	if i.Member != nil && i.Member.User != nil {
		return i.Member.User.ID
	}
	if i.User != nil {
		return i.User.ID
	}
	return ""
}

func callerName(i *discordgo.Interaction) string {
	if i.Member != nil {
		if i.Member.Nick != "" {
			return i.Member.Nick
		}
		if i.Member.User != nil {
			return i.Member.User.Username
		}
	}
	if i.User != nil {
		return i.User.Username
	}
	return "unknown"
}

func commandOptions(i *discordgo.Interaction) map[string]*discordgo.ApplicationCommandInteractionDataOption {
	opts := make(map[string]*discordgo.ApplicationCommandInteractionDataOption)
	for _, opt := range i.ApplicationCommandData().Options {
		opts[opt.Name] = opt
	}
	return opts
}

func (b *Bot) respondMessage(s *discordgo.Session, i *discordgo.Interaction, msg string, ephemeral bool) {
	if len(msg) > maxMessageLen {
		msg = msg[:maxMessageLen-10] + "..."
	}
	flags := discordgo.MessageFlags(0)
	if ephemeral {
		flags = discordgo.MessageFlagsEphemeral
	}
	s.InteractionRespond(i, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content: msg,
			Flags:   flags,
		},
	})
}

func (b *Bot) respondEmbed(s *discordgo.Session, i *discordgo.Interaction, embed *discordgo.MessageEmbed, ephemeral bool) {
	flags := discordgo.MessageFlags(0)
	if ephemeral {
		flags = discordgo.MessageFlagsEphemeral
	}
	s.InteractionRespond(i, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Embeds: []*discordgo.MessageEmbed{embed},
			Flags:  flags,
		},
	})
}

// respondError turns a domain error into a user-facing ephemeral reply.
func (b *Bot) respondError(s *discordgo.Session, i *discordgo.Interaction, err error) {
	var msg string
	switch {
	case errors.Is(err, models.ErrConflict):
		msg = "Conflict: " + err.Error()
	case errors.Is(err, models.ErrValidation):
		msg = "Invalid input: " + err.Error()
	case errors.Is(err, models.ErrStaleState):
		msg = "Not possible right now: " + err.Error()
	case errors.Is(err, models.ErrNotFound):
		msg = "Not found: " + err.Error()
	default:
		b.logger.Error("command failed: %v", err)
		msg = "Something went wrong, try again."
	}
	b.respondMessage(s, i, msg, true)
}

// summaryEmbed renders the series state: one line per game plus standing.
func summaryEmbed(sess *models.MatchSession) *discordgo.MessageEmbed {
	embed := &discordgo.MessageEmbed{
		Title: fmt.Sprintf("Match Session (BO%d) — %s vs %s", sess.BestOf, sess.SideA, sess.SideB),
		Color: colorGold,
	}

	if len(sess.Games) == 0 {
		embed.Description = "No games logged yet."
		return embed
	}

	var sb strings.Builder
	for idx := range sess.Games {
		g := &sess.Games[idx]
		status := fmt.Sprintf("waiting (%d/2)", ackCount(g))
		if g.Acked() {
			status = "acknowledged"
		}
		line := g.Result
		if line == "" {
			line = g.Winner + " wins"
		}
		sb.WriteString(fmt.Sprintf("**Game %d:** %s — %s\n", g.GameNumber, line, status))
	}

	winsA, winsB := sess.WinCounts()
	sb.WriteString(fmt.Sprintf("\n**%s** %d : %d **%s**", sess.SideA, winsA, winsB, sess.SideB))

	if sess.Status == models.StatusEnded {
		if sess.Winner != "" {
			sb.WriteString(fmt.Sprintf("\n🏆 Winner: **%s**", sess.Winner))
		} else {
			sb.WriteString("\nSession closed without a decided winner.")
		}
	}
	if sess.IsDisputed {
		sb.WriteString("\n🚨 **Dispute in progress** — acknowledgement timer paused.")
	}

	embed.Description = sb.String()
	embed.Footer = &discordgo.MessageEmbedFooter{
		Text: fmt.Sprintf("Marshal: %s • total disputed time %s",
			sess.MarshalID, time.Duration(sess.TotalDisputeSeconds)*time.Second),
	}
	return embed
}

func ackCount(g *models.MatchGame) int {
	n := 0
	if g.AckAAt != nil {
		n++
	}
	if g.AckBAt != nil {
		n++
	}
	return n
}
