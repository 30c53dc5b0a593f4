package discord

import (
	"errors"
	"fmt"
	"strings"

	"github.com/bwmarrin/discordgo"

	"marshal/internal/application"
	"marshal/internal/models"
	"marshal/pkg/challonge"
)

// activeSession looks up the channel's live session, replying for the caller
// when there is none.
func (b *Bot) activeSession(s *discordgo.Session, i *discordgo.Interaction) *models.MatchSession {
	sess, err := b.services.Sessions.SessionByChannel(i.GuildID, i.ChannelID)
	if errors.Is(err, models.ErrNotFound) {
		b.respondMessage(s, i, "No active match in this channel. Start one with `/match_start`.", true)
		return nil
	}
	if err != nil {
		b.respondError(s, i, err)
		return nil
	}
	return sess
}

func (b *Bot) handleMatchStart(s *discordgo.Session, i *discordgo.Interaction) {
	if !b.isAdmin(callerID(i)) {
		b.respondMessage(s, i, "Only an admin can start a match session.", true)
		return
	}

	opts := commandOptions(i)
	bestOf := int(opts["best_of"].IntValue())
	sideA := strings.TrimSpace(opts["side_a"].StringValue())
	sideB := strings.TrimSpace(opts["side_b"].StringValue())

	sess, err := b.services.Sessions.Start(i.GuildID, i.ChannelID, callerID(i), bestOf, sideA, sideB)
	if err != nil {
		b.respondError(s, i, err)
		return
	}

	embed := &discordgo.MessageEmbed{
		Title: fmt.Sprintf("Match Started! (BO%d)", sess.BestOf),
		Description: fmt.Sprintf(
			"**%s** vs **%s**\nMarshal: <@%s>\n\nUse `/game_result` after each game; sides confirm with `/match_ack`.",
			sess.SideA, sess.SideB, sess.MarshalID),
		Color: colorGreen,
	}
	b.respondEmbed(s, i, embed, false)
}

func (b *Bot) handleGameResult(s *discordgo.Session, i *discordgo.Interaction) {
	sess := b.activeSession(s, i)
	if sess == nil {
		return
	}
	if !b.isMarshal(callerID(i), sess) {
		b.respondMessage(s, i, "Only the marshal or an admin can log results.", true)
		return
	}

	opts := commandOptions(i)
	winner := strings.TrimSpace(opts["winner"].StringValue())
	score := ""
	if opt, ok := opts["score"]; ok {
		score = strings.TrimSpace(opt.StringValue())
	}

	gameNumber := len(sess.Games) + 1
	if sess.Status == models.StatusCheckingAck && sess.IsDisputed {
		gameNumber = sess.CurrentGame().GameNumber
	}

	updated, err := b.services.Sessions.SubmitResult(sess.ID, gameNumber, winner, score)
	if err != nil {
		b.respondError(s, i, err)
		return
	}

	game := updated.CurrentGame()
	line := game.Result
	if line == "" {
		line = game.Winner + " wins"
	}
	embed := &discordgo.MessageEmbed{
		Title:       fmt.Sprintf("Game %d Result", game.GameNumber),
		Description: fmt.Sprintf("# %s\n\nBoth sides, confirm with `/match_ack`.\nA silent side auto-accepts when the window elapses.", line),
		Color:       colorGold,
	}
	b.respondEmbed(s, i, embed, false)

	// Remember the status message so it can be edited after a restart.
	if msg, err := s.InteractionResponse(i); err == nil && msg != nil {
		if err := b.services.Sessions.SetLastMessageID(updated.ID, msg.ID); err != nil {
			b.logger.Warn("failed to store status message id for session %d: %v", updated.ID, err)
		}
	}
}

func (b *Bot) handleMatchAck(s *discordgo.Session, i *discordgo.Interaction) {
	sess := b.activeSession(s, i)
	if sess == nil {
		return
	}

	side := strings.TrimSpace(commandOptions(i)["side"].StringValue())
	game := sess.CurrentGame()
	if game == nil {
		b.respondMessage(s, i, "No game result is pending.", true)
		return
	}

	updated, err := b.services.Sessions.Acknowledge(sess.ID, game.GameNumber, side, callerName(i))
	if err != nil {
		b.respondError(s, i, err)
		return
	}

	switch {
	case updated.Status == models.StatusEnded:
		b.respondEmbed(s, i, summaryEmbed(updated), false)
	case updated.Status == models.StatusOngoing:
		b.respondMessage(s, i, fmt.Sprintf(
			"✅ Game %d acknowledged by both sides. Ready for the next game.", game.GameNumber), false)
	case updated.IsDisputed:
		b.respondMessage(s, i, fmt.Sprintf(
			"Acknowledgement for **%s** recorded, but a dispute is open — nothing settles until it is resolved.", side), false)
	default:
		b.respondMessage(s, i, fmt.Sprintf(
			"✅ Acknowledgement recorded for **%s**. Waiting for the other side.", side), false)
	}
}

func (b *Bot) handleMatchDispute(s *discordgo.Session, i *discordgo.Interaction) {
	sess := b.activeSession(s, i)
	if sess == nil {
		return
	}

	if _, err := b.services.Sessions.Dispute(sess.ID, callerID(i)); err != nil {
		b.respondError(s, i, err)
		return
	}
	b.respondMessage(s, i, fmt.Sprintf(
		"🚨 **Dispute filed by <@%s>.** The acknowledgement timer is paused.\nMarshal, rule with `/match_resolve`.",
		callerID(i)), false)
}

func (b *Bot) handleMatchResolve(s *discordgo.Session, i *discordgo.Interaction) {
	sess := b.activeSession(s, i)
	if sess == nil {
		return
	}
	if !b.isMarshal(callerID(i), sess) {
		b.respondMessage(s, i, "Only the marshal or an admin can resolve disputes.", true)
		return
	}

	opts := commandOptions(i)
	ruling := application.Ruling{ResolvedBy: callerName(i)}
	if opt, ok := opts["winner"]; ok {
		ruling.Winner = strings.TrimSpace(opt.StringValue())
	}
	if opt, ok := opts["score"]; ok {
		ruling.Result = strings.TrimSpace(opt.StringValue())
	}
	if opt, ok := opts["force_ack"]; ok {
		ruling.ForceAcks = opt.BoolValue()
	}

	updated, err := b.services.Sessions.ResolveDispute(sess.ID, ruling)
	if err != nil {
		b.respondError(s, i, err)
		return
	}

	if updated.Status == models.StatusEnded {
		b.respondEmbed(s, i, summaryEmbed(updated), false)
		return
	}
	b.respondMessage(s, i, "✅ **Dispute resolved.** The acknowledgement timer has restarted.", false)
}

func (b *Bot) handleMatchUndoGame(s *discordgo.Session, i *discordgo.Interaction) {
	sess := b.activeSession(s, i)
	if sess == nil {
		return
	}
	if !b.isMarshal(callerID(i), sess) {
		b.respondMessage(s, i, "Only the marshal or an admin can undo games.", true)
		return
	}

	updated, err := b.services.Sessions.UndoGame(sess.ID)
	if err != nil {
		b.respondError(s, i, err)
		return
	}
	b.respondMessage(s, i, fmt.Sprintf("Game entry removed. %d game(s) remain.", len(updated.Games)), false)
}

func (b *Bot) handleMatchEnd(s *discordgo.Session, i *discordgo.Interaction) {
	sess := b.activeSession(s, i)
	if sess == nil {
		return
	}
	if !b.isMarshal(callerID(i), sess) {
		b.respondMessage(s, i, "Only the marshal or an admin can end the match.", true)
		return
	}

	reason := "closed by marshal"
	if opt, ok := commandOptions(i)["reason"]; ok {
		reason = opt.StringValue()
	}

	updated, err := b.services.Sessions.ForceEnd(sess.ID, reason)
	if err != nil {
		b.respondError(s, i, err)
		return
	}
	b.respondEmbed(s, i, summaryEmbed(updated), false)
}

func (b *Bot) handleMatchStatus(s *discordgo.Session, i *discordgo.Interaction) {
	sess := b.activeSession(s, i)
	if sess == nil {
		return
	}
	b.respondEmbed(s, i, summaryEmbed(sess), true)
}

func (b *Bot) handleBracketLink(s *discordgo.Session, i *discordgo.Interaction) {
	if !b.isAdmin(callerID(i)) {
		b.respondMessage(s, i, "Only an admin can link brackets.", true)
		return
	}

	url := strings.TrimSpace(commandOptions(i)["url"].StringValue())
	link, err := b.services.Brackets.Link(i.GuildID, i.ChannelID, url, callerID(i))
	if err != nil {
		b.respondError(s, i, err)
		return
	}

	embed := &discordgo.MessageEmbed{
		Title: "Bracket Linked",
		Description: fmt.Sprintf("[%s](%s)\nState: %s",
			link.TournamentName, link.TournamentURL, link.State),
		Color: colorGreen,
	}
	b.respondEmbed(s, i, embed, false)
}

func (b *Bot) handleBracketUnlink(s *discordgo.Session, i *discordgo.Interaction) {
	if !b.isAdmin(callerID(i)) {
		b.respondMessage(s, i, "Only an admin can unlink brackets.", true)
		return
	}

	if err := b.services.Brackets.Unlink(i.GuildID, i.ChannelID); err != nil {
		b.respondError(s, i, err)
		return
	}
	b.respondMessage(s, i, "Bracket link removed.", false)
}

func (b *Bot) handleBracketStatus(s *discordgo.Session, i *discordgo.Interaction) {
	overview, err := b.services.Brackets.Overview(i.GuildID, i.ChannelID)
	if err != nil {
		b.respondError(s, i, err)
		return
	}

	names := make(map[int64]string, len(overview.Participants))
	for _, p := range overview.Participants {
		names[p.ID] = p.EffectiveName()
	}

	var sb strings.Builder
	for _, m := range overview.OpenMatches {
		sb.WriteString(formatBracketMatch(&m, names) + "\n")
	}
	if sb.Len() == 0 {
		sb.WriteString("No open matches.")
	}

	embed := &discordgo.MessageEmbed{
		Title: overview.Tournament.Name,
		URL:   overview.Tournament.URL,
		Description: fmt.Sprintf("State: %s • %d participants\n\n**Open matches:**\n%s",
			overview.Tournament.State, overview.Tournament.ParticipantsCount, sb.String()),
		Color: colorBlue,
	}
	b.respondEmbed(s, i, embed, true)
}

func formatBracketMatch(m *challonge.Match, names map[int64]string) string {
	p1, p2 := "TBD", "TBD"
	if m.Player1ID != nil {
		p1 = names[*m.Player1ID]
	}
	if m.Player2ID != nil {
		p2 = names[*m.Player2ID]
	}
	order := m.SuggestedPlayOrder
	if order == 0 {
		order = int(m.ID)
	}
	return fmt.Sprintf("`#%d` **%s** vs **%s**", order, p1, p2)
}
