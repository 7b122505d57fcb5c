package discord

import (
	"context"
	"fmt"
	"strings"

	"github.com/bwmarrin/discordgo"
	"github.com/pscheid92/pollbot/internal/domain"
)

// Relayed text may mention users but never roles or everyone.
var sayMentions = &discordgo.MessageAllowedMentions{
	Parse: []discordgo.AllowedMentionType{discordgo.AllowedMentionTypeUsers},
}

func (r *Router) sayFromMessage(ctx context.Context, m *discordgo.Message, args string) error {
	if args == "" {
		return nil
	}
	r.deleteQuietly(ctx, m)
	return r.say(ctx, m.ChannelID, args)
}

func (r *Router) sayFromSlash(ctx context.Context, i *discordgo.Interaction, resp *responder) error {
	opts := optionsByName(i.ApplicationCommandData().Options)

	var text string
	if o, ok := opts["message"]; ok {
		text = strings.TrimSpace(o.StringValue())
	}
	if text == "" {
		return domain.NewValidationError("Please provide a message.")
	}

	// With state_used the reply shows who ran the command.
	if o, ok := opts["state_used"]; ok && o.BoolValue() {
		return resp.public(ctx, &discordgo.InteractionResponseData{
			Content:         text,
			AllowedMentions: sayMentions,
		})
	}

	if err := r.say(ctx, i.ChannelID, text); err != nil {
		return err
	}
	return resp.ephemeral(ctx, "Message sent.")
}

func (r *Router) say(ctx context.Context, channelID, text string) error {
	send := &discordgo.MessageSend{Content: text, AllowedMentions: sayMentions}
	if _, err := r.api.ChannelMessageSendComplex(channelID, send, discordgo.WithContext(ctx)); err != nil {
		return fmt.Errorf("failed to relay message: %w", err)
	}
	return nil
}
