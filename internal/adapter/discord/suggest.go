package discord

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"strings"

	"github.com/bwmarrin/discordgo"
	"github.com/pscheid92/pollbot/internal/domain"
)

const suggestionScanLimit = 20

var (
	suggestionTitle     = regexp.MustCompile(`(?i)^suggestion #(\d+)`)
	suggestionReactions = []string{"✅", "❌"}
)

func (r *Router) suggestFromMessage(ctx context.Context, m *discordgo.Message, args string) error {
	if args == "" {
		return domain.NewValidationError("Please provide a suggestion.")
	}
	if err := r.submitSuggestion(ctx, m.Author, args); err != nil {
		return err
	}
	r.deleteQuietly(ctx, m)
	return nil
}

func (r *Router) suggestFromSlash(ctx context.Context, i *discordgo.Interaction, resp *responder) error {
	opts := optionsByName(i.ApplicationCommandData().Options)

	var text string
	if o, ok := opts["suggestion"]; ok {
		text = strings.TrimSpace(o.StringValue())
	}
	if text == "" {
		return domain.NewValidationError("Please provide a suggestion.")
	}

	if err := r.submitSuggestion(ctx, interactionUser(i), text); err != nil {
		return err
	}
	return resp.ephemeral(ctx, "Your suggestion has been sent!")
}

func (r *Router) submitSuggestion(ctx context.Context, author *discordgo.User, text string) error {
	channelID := r.cfg.SuggestionChannel
	if channelID == "" {
		return domain.NewValidationError("Suggestion channel is not configured.")
	}
	if _, err := r.channels.Channel(ctx, channelID); err != nil {
		if errors.Is(err, domain.ErrRenderUnavailable) {
			return domain.NewValidationError("Suggestion channel not found.")
		}
		return err
	}

	number := r.nextSuggestionNumber(ctx, channelID)
	embed := suggestionEmbed(number, text, author, r.clock.Now())
	msg, err := r.api.ChannelMessageSendEmbed(channelID, embed, discordgo.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("failed to post suggestion: %w", err)
	}

	for _, emoji := range suggestionReactions {
		if err := r.api.MessageReactionAdd(channelID, msg.ID, emoji, discordgo.WithContext(ctx)); err != nil {
			slog.WarnContext(ctx, "Failed to add suggestion reaction", "message_id", msg.ID, "emoji", emoji, "error", err)
		}
	}

	slog.InfoContext(ctx, "Suggestion posted", "number", number, "user_id", author.ID, "message_id", msg.ID)
	return nil
}

// nextSuggestionNumber continues the numbering from the bot's most recent
// suggestions. Lookup failures restart at 1.
func (r *Router) nextSuggestionNumber(ctx context.Context, channelID string) int {
	msgs, err := r.api.ChannelMessages(channelID, suggestionScanLimit, "", "", "", discordgo.WithContext(ctx))
	if err != nil {
		slog.WarnContext(ctx, "Failed to read recent suggestions", "channel_id", channelID, "error", err)
		return 1
	}
	return highestSuggestion(msgs, r.selfID()) + 1
}

func highestSuggestion(msgs []*discordgo.Message, botID string) int {
	highest := 0
	for _, m := range msgs {
		if m.Author == nil || m.Author.ID != botID || len(m.Embeds) == 0 {
			continue
		}
		match := suggestionTitle.FindStringSubmatch(m.Embeds[0].Title)
		if match == nil {
			continue
		}
		if n, err := strconv.Atoi(match[1]); err == nil {
			highest = max(highest, n)
		}
	}
	return highest
}
