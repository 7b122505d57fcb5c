package discord

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/pscheid92/pollbot/internal/platform/version"
)

func (r *Router) pingFromMessage(ctx context.Context, m *discordgo.Message, _ string) error {
	r.deleteQuietly(ctx, m)

	sent, err := r.api.ChannelMessageSend(m.ChannelID, "Measuring...", discordgo.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("failed to send ping probe: %w", err)
	}
	roundTrip := sent.Timestamp.Sub(m.Timestamp)
	r.deleteQuietly(ctx, sent)

	embed := pingEmbed(r.pingStats(roundTrip), m.Author, r.clock.Now())
	if _, err := r.api.ChannelMessageSendEmbed(m.ChannelID, embed, discordgo.WithContext(ctx)); err != nil {
		return fmt.Errorf("failed to send ping results: %w", err)
	}
	return nil
}

func (r *Router) pingFromSlash(ctx context.Context, i *discordgo.Interaction, resp *responder) error {
	var roundTrip time.Duration
	if created, err := discordgo.SnowflakeTimestamp(i.ID); err == nil {
		roundTrip = r.clock.Since(created)
	}

	embed := pingEmbed(r.pingStats(roundTrip), interactionUser(i), r.clock.Now())
	return resp.public(ctx, &discordgo.InteractionResponseData{Embeds: []*discordgo.MessageEmbed{embed}})
}

func (r *Router) pingStats(roundTrip time.Duration) pingStats {
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	stats := pingStats{
		Heartbeat: r.heartbeat(),
		RoundTrip: max(roundTrip, 0),
		Uptime:    r.clock.Since(r.startedAt),
		HeapMB:    float64(mem.HeapAlloc) / 1024 / 1024,
		Version:   version.Version,
	}
	slog.Debug("Ping measured", "heartbeat", stats.Heartbeat, "round_trip", stats.RoundTrip)
	return stats
}
