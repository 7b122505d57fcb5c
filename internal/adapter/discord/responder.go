package discord

import (
	"context"
	"fmt"

	"github.com/bwmarrin/discordgo"
)

// responder answers one interaction. After defer is called, later replies
// edit the deferred response instead of creating a new one.
type responder struct {
	api         restClient
	interaction *discordgo.Interaction
	acked       bool
	deferred    bool
}

func newResponder(api restClient, i *discordgo.Interaction) *responder {
	return &responder{api: api, interaction: i}
}

// deferEphemeral acknowledges the interaction with a private "thinking" state.
func (r *responder) deferEphemeral(ctx context.Context) error {
	resp := &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{Flags: discordgo.MessageFlagsEphemeral},
	}
	if err := r.api.InteractionRespond(r.interaction, resp, discordgo.WithContext(ctx)); err != nil {
		return fmt.Errorf("failed to defer interaction: %w", err)
	}
	r.acked = true
	r.deferred = true
	return nil
}

func (r *responder) ephemeral(ctx context.Context, content string) error {
	return r.send(ctx, &discordgo.InteractionResponseData{
		Content: content,
		Flags:   discordgo.MessageFlagsEphemeral,
	})
}

func (r *responder) ephemeralEmbed(ctx context.Context, embed *discordgo.MessageEmbed) error {
	return r.send(ctx, &discordgo.InteractionResponseData{
		Embeds: []*discordgo.MessageEmbed{embed},
		Flags:  discordgo.MessageFlagsEphemeral,
	})
}

func (r *responder) public(ctx context.Context, data *discordgo.InteractionResponseData) error {
	return r.send(ctx, data)
}

func (r *responder) send(ctx context.Context, data *discordgo.InteractionResponseData) error {
	if r.deferred {
		edit := &discordgo.WebhookEdit{Content: &data.Content}
		if len(data.Embeds) > 0 {
			edit.Embeds = &data.Embeds
		}
		if _, err := r.api.InteractionResponseEdit(r.interaction, edit, discordgo.WithContext(ctx)); err != nil {
			return fmt.Errorf("failed to edit interaction response: %w", err)
		}
		return nil
	}
	if r.acked {
		return fmt.Errorf("interaction %s already answered", r.interaction.ID)
	}

	resp := &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: data,
	}
	if err := r.api.InteractionRespond(r.interaction, resp, discordgo.WithContext(ctx)); err != nil {
		return fmt.Errorf("failed to respond to interaction: %w", err)
	}
	r.acked = true
	return nil
}

// interactionUser returns the invoking user for guild and direct interactions.
func interactionUser(i *discordgo.Interaction) *discordgo.User {
	if i.Member != nil && i.Member.User != nil {
		return i.Member.User
	}
	return i.User
}
