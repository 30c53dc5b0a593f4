package discord

import "github.com/bwmarrin/discordgo"

func (b *Bot) addCommands(commands ...*discordgo.ApplicationCommand) {
	b.commands = append(b.commands, commands...)
}

func (b *Bot) newMatchStartCommand() *discordgo.ApplicationCommand {
	return &discordgo.ApplicationCommand{
		Name:        "match_start",
		Description: "Start a best-of-N match session in this channel (marshal only)",
		Options: []*discordgo.ApplicationCommandOption{
			{Type: discordgo.ApplicationCommandOptionInteger, Name: "best_of", Description: "Odd series length: 1, 3, 5, 7", Required: true},
			{Type: discordgo.ApplicationCommandOptionString, Name: "side_a", Description: "First competing side", Required: true},
			{Type: discordgo.ApplicationCommandOptionString, Name: "side_b", Description: "Second competing side", Required: true},
		},
	}
}

func (b *Bot) newGameResultCommand() *discordgo.ApplicationCommand {
	return &discordgo.ApplicationCommand{
		Name:        "game_result",
		Description: "Log a game result and open the acknowledgement window (marshal only)",
		Options: []*discordgo.ApplicationCommandOption{
			{Type: discordgo.ApplicationCommandOptionString, Name: "winner", Description: "Side that won the game", Required: true},
			{Type: discordgo.ApplicationCommandOptionString, Name: "score", Description: "Score line, e.g. 'TNC 1 - 0 BTK'", Required: false},
		},
	}
}

func (b *Bot) newMatchAckCommand() *discordgo.ApplicationCommand {
	return &discordgo.ApplicationCommand{
		Name:        "match_ack",
		Description: "Acknowledge the pending game result for your side",
		Options: []*discordgo.ApplicationCommandOption{
			{Type: discordgo.ApplicationCommandOptionString, Name: "side", Description: "The side you acknowledge for", Required: true},
		},
	}
}

func (b *Bot) newMatchDisputeCommand() *discordgo.ApplicationCommand {
	return &discordgo.ApplicationCommand{
		Name:        "match_dispute",
		Description: "File a dispute against the pending game result (pauses the ack timer)",
	}
}

func (b *Bot) newMatchResolveCommand() *discordgo.ApplicationCommand {
	return &discordgo.ApplicationCommand{
		Name:        "match_resolve",
		Description: "Resolve the open dispute with a ruling (marshal only)",
		Options: []*discordgo.ApplicationCommandOption{
			{Type: discordgo.ApplicationCommandOptionString, Name: "winner", Description: "Override the game winner", Required: false},
			{Type: discordgo.ApplicationCommandOptionString, Name: "score", Description: "Override the score line", Required: false},
			{Type: discordgo.ApplicationCommandOptionBoolean, Name: "force_ack", Description: "Settle the game immediately", Required: false},
		},
	}
}

func (b *Bot) newMatchUndoGameCommand() *discordgo.ApplicationCommand {
	return &discordgo.ApplicationCommand{
		Name:        "match_undo_game",
		Description: "Remove the last logged game result (marshal only)",
	}
}

func (b *Bot) newMatchEndCommand() *discordgo.ApplicationCommand {
	return &discordgo.ApplicationCommand{
		Name:        "match_end",
		Description: "End the match session unconditionally (marshal only)",
		Options: []*discordgo.ApplicationCommandOption{
			{Type: discordgo.ApplicationCommandOptionString, Name: "reason", Description: "Why the session is being closed", Required: false},
		},
	}
}

func (b *Bot) newMatchStatusCommand() *discordgo.ApplicationCommand {
	return &discordgo.ApplicationCommand{
		Name:        "match_status",
		Description: "Show the current match session state",
	}
}

func (b *Bot) newBracketLinkCommand() *discordgo.ApplicationCommand {
	return &discordgo.ApplicationCommand{
		Name:        "bracket_link",
		Description: "Link a Challonge bracket to this channel (marshal only)",
		Options: []*discordgo.ApplicationCommandOption{
			{Type: discordgo.ApplicationCommandOptionString, Name: "url", Description: "Challonge URL or slug", Required: true},
		},
	}
}

func (b *Bot) newBracketUnlinkCommand() *discordgo.ApplicationCommand {
	return &discordgo.ApplicationCommand{
		Name:        "bracket_unlink",
		Description: "Remove this channel's bracket link (marshal only)",
	}
}

func (b *Bot) newBracketStatusCommand() *discordgo.ApplicationCommand {
	return &discordgo.ApplicationCommand{
		Name:        "bracket_status",
		Description: "Show the linked bracket and its open matches",
	}
}
