package discord

import (
	"fmt"

	"github.com/bwmarrin/discordgo"
)

// SlashCommands describes the application commands registered on startup.
// Discord requires required options to precede optional ones.
func SlashCommands() []*discordgo.ApplicationCommand {
	pollOptions := []*discordgo.ApplicationCommandOption{
		stringOption("header", "Poll header", true),
		stringOption("option1", "Option 1", true),
		stringOption("option2", "Option 2", true),
		stringOption("time", "Poll duration (e.g. 10s, 5m, 2h, 7d)", true),
	}
	for n := 3; n <= slashOptionMaxCount; n++ {
		pollOptions = append(pollOptions, stringOption(fmt.Sprintf("option%d", n), fmt.Sprintf("Option %d", n), false))
	}

	return []*discordgo.ApplicationCommand{
		{
			Name:        "poll",
			Description: "Create a poll with buttons",
			Options:     pollOptions,
		},
		{
			Name:        "ping",
			Description: "Shows gateway latency, round trip, memory usage and uptime.",
		},
		{
			Name:        "say",
			Description: "Makes the bot say something",
			Options: []*discordgo.ApplicationCommandOption{
				stringOption("message", "The message to say", true),
				{
					Type:        discordgo.ApplicationCommandOptionBoolean,
					Name:        "state_used",
					Description: "Should it show who used the command?",
				},
			},
		},
		{
			Name:        "suggest",
			Description: "Send a suggestion to the suggestion channel",
			Options: []*discordgo.ApplicationCommandOption{
				stringOption("suggestion", "Your suggestion", true),
			},
		},
	}
}

func stringOption(name, description string, required bool) *discordgo.ApplicationCommandOption {
	return &discordgo.ApplicationCommandOption{
		Type:        discordgo.ApplicationCommandOptionString,
		Name:        name,
		Description: description,
		Required:    required,
	}
}
