package discord

import (
	"context"
	"strings"

	"github.com/bwmarrin/discordgo"

	"marshal/internal/application"
	"marshal/pkg/config"
)

type Bot struct {
	session  *discordgo.Session
	services *application.Service
	logger   application.Logger

	commands []*discordgo.ApplicationCommand
	adminIDs map[string]struct{}
	guildID  string
}

func NewBot(cfg *config.Config, services *application.Service, logger application.Logger) *Bot {
	s, _ := discordgo.New("Bot " + cfg.DiscordToken)

	admins := make(map[string]struct{})
	for _, id := range cfg.AdminUserIDs {
		cleanID := strings.TrimSpace(id)
		if cleanID != "" {
			admins[cleanID] = struct{}{}
		}
	}

	return &Bot{
		session:  s,
		services: services,
		logger:   logger,
		adminIDs: admins,
		guildID:  cfg.DiscordGuildID,
	}
}

func (b *Bot) Init() error {
	b.addCommands(
		b.newMatchStartCommand(),
		b.newGameResultCommand(),
		b.newMatchAckCommand(),
		b.newMatchDisputeCommand(),
		b.newMatchResolveCommand(),
		b.newMatchUndoGameCommand(),
		b.newMatchEndCommand(),
		b.newMatchStatusCommand(),
		b.newBracketLinkCommand(),
		b.newBracketUnlinkCommand(),
		b.newBracketStatusCommand(),
	)
	b.session.AddHandler(b.onInteraction)
	return nil
}

func (b *Bot) Run(ctx context.Context) {
	if err := b.session.Open(); err != nil {
		b.logger.Error("failed to open discord session: %v", err)
		return
	}

	b.logger.Info("discord bot started, registering slash commands")
	_, err := b.session.ApplicationCommandBulkOverwrite(b.session.State.User.ID, b.guildID, b.commands)
	if err != nil {
		b.logger.Error("failed to register commands: %v", err)
	} else {
		b.logger.Info("slash commands registered")
	}

	<-ctx.Done()
}

func (b *Bot) Stop() {
	b.session.Close()
}

func (b *Bot) onInteraction(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if i.Type != discordgo.InteractionApplicationCommand {
		return
	}

	switch i.ApplicationCommandData().Name {
	case "match_start":
		b.handleMatchStart(s, i.Interaction)
	case "game_result":
		b.handleGameResult(s, i.Interaction)
	case "match_ack":
		b.handleMatchAck(s, i.Interaction)
	case "match_dispute":
		b.handleMatchDispute(s, i.Interaction)
	case "match_resolve":
		b.handleMatchResolve(s, i.Interaction)
	case "match_undo_game":
		b.handleMatchUndoGame(s, i.Interaction)
	case "match_end":
		b.handleMatchEnd(s, i.Interaction)
	case "match_status":
		b.handleMatchStatus(s, i.Interaction)
	case "bracket_link":
		b.handleBracketLink(s, i.Interaction)
	case "bracket_unlink":
		b.handleBracketUnlink(s, i.Interaction)
	case "bracket_status":
		b.handleBracketStatus(s, i.Interaction)
	}
}
