package discord

import (
	"context"
	"log/slog"

	"github.com/bwmarrin/discordgo"
	"github.com/pscheid92/pollbot/internal/platform/version"
)

// AnnounceStartup posts the "bot is on" embed to every channel. Failures
// are logged per channel and never stop the remaining announcements.
func (r *Router) AnnounceStartup(ctx context.Context, channelIDs []string) int {
	if len(channelIDs) == 0 {
		slog.InfoContext(ctx, "No startup channels configured")
		return 0
	}

	name := "Pollbot"
	if u := r.self.Load(); u != nil && u.Username != "" {
		name = u.Username
	}
	embed := startupEmbed(name, version.Version, r.clock.Now())

	sent := 0
	for _, channelID := range channelIDs {
		if _, err := r.api.ChannelMessageSendEmbed(channelID, embed, discordgo.WithContext(ctx)); err != nil {
			slog.ErrorContext(ctx, "Failed to send startup message", "channel_id", channelID, "error", err)
			continue
		}
		sent++
		slog.InfoContext(ctx, "Startup message sent", "channel_id", channelID)
	}
	return sent
}
