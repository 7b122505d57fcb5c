package discord

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"
	"unicode"

	"github.com/bwmarrin/discordgo"
	"github.com/jonboulle/clockwork"
	"github.com/pscheid92/pollbot/internal/adapter/metrics"
	"github.com/pscheid92/pollbot/internal/app"
	"github.com/pscheid92/pollbot/internal/domain"
	"github.com/pscheid92/pollbot/internal/platform/correlation"
)

const (
	prefixErrorReply = "There was an error executing that command."
	slashErrorReply  = "There was an error executing this command!"
)

type pollService interface {
	Create(ctx context.Context, req app.CreateRequest) (*domain.Poll, error)
	Vote(ctx context.Context, pollID, voterID string, option int) (app.VoteReceipt, error)
	Results(pollID string) (app.Results, error)
}

type channelResolver interface {
	Channel(ctx context.Context, channelID string) (*discordgo.Channel, error)
}

// RouterConfig carries the settings commands depend on.
type RouterConfig struct {
	Prefix               string
	PollsChannel         string
	SuggestionChannel    string
	CommandRatePerMinute int
}

type prefixCommand func(ctx context.Context, m *discordgo.Message, args string) error
type slashCommand func(ctx context.Context, i *discordgo.Interaction, resp *responder) error

// Router dispatches prefix messages, slash commands and button presses.
type Router struct {
	api       restClient
	channels  channelResolver
	polls     pollService
	clock     clockwork.Clock
	metrics   *metrics.BotMetrics
	cfg       RouterConfig
	limiter   *userLimiter
	heartbeat func() time.Duration
	startedAt time.Time
	self      atomic.Pointer[discordgo.User]

	prefixCommands map[string]prefixCommand
	slashCommands  map[string]slashCommand
}

// NewRouter wires the command set. heartbeat may be nil.
func NewRouter(api restClient, channels channelResolver, polls pollService, clock clockwork.Clock, m *metrics.BotMetrics, cfg RouterConfig, heartbeat func() time.Duration) *Router {
	if heartbeat == nil {
		heartbeat = func() time.Duration { return 0 }
	}

	r := &Router{
		api:       api,
		channels:  channels,
		polls:     polls,
		clock:     clock,
		metrics:   m,
		cfg:       cfg,
		limiter:   newUserLimiter(cfg.CommandRatePerMinute, clock),
		heartbeat: heartbeat,
		startedAt: clock.Now(),
	}

	r.prefixCommands = map[string]prefixCommand{
		"poll":    r.pollFromMessage,
		"ping":    r.pingFromMessage,
		"say":     r.sayFromMessage,
		"suggest": r.suggestFromMessage,
	}
	r.slashCommands = map[string]slashCommand{
		"poll":    r.pollFromSlash,
		"ping":    r.pingFromSlash,
		"say":     r.sayFromSlash,
		"suggest": r.suggestFromSlash,
	}
	return r
}

// SetSelf records the bot's own user once the gateway session is ready.
func (r *Router) SetSelf(u *discordgo.User) {
	r.self.Store(u)
}

func (r *Router) selfID() string {
	if u := r.self.Load(); u != nil {
		return u.ID
	}
	return ""
}

// HandleMessage runs a prefix command if the message holds one.
func (r *Router) HandleMessage(ctx context.Context, m *discordgo.Message) {
	if m.Author == nil || m.Author.Bot {
		return
	}
	name, args, ok := splitCommand(m.Content, r.cfg.Prefix)
	if !ok {
		return
	}
	cmd, ok := r.prefixCommands[name]
	if !ok {
		return
	}

	ctx, _ = correlation.Ensure(ctx)
	if !r.limiter.allow(m.Author.ID) {
		r.metrics.CommandHandled(name, "rate_limited")
		slog.DebugContext(ctx, "Command rate limited", "command", name, "user_id", m.Author.ID)
		return
	}

	err := cmd(ctx, m, args)

	var vErr *domain.ValidationError
	switch {
	case errors.As(err, &vErr):
		r.metrics.CommandHandled(name, "rejected")
		r.reply(ctx, m, vErr.Message)
	case err != nil:
		r.metrics.CommandHandled(name, "error")
		slog.ErrorContext(ctx, "Command failed", "command", name, "channel_id", m.ChannelID, "user_id", m.Author.ID, "error", err)
		r.reply(ctx, m, prefixErrorReply)
	default:
		r.metrics.CommandHandled(name, "ok")
	}
}

// HandleInteraction runs a slash command or handles a poll button.
func (r *Router) HandleInteraction(ctx context.Context, i *discordgo.Interaction) {
	ctx, _ = correlation.Ensure(ctx)
	user := interactionUser(i)
	if user == nil {
		return
	}
	resp := newResponder(r.api, i)

	switch i.Type {
	case discordgo.InteractionApplicationCommand:
		r.handleSlash(ctx, i, user, resp)
	case discordgo.InteractionMessageComponent:
		r.handleComponent(ctx, i, user, resp)
	}
}

func (r *Router) handleSlash(ctx context.Context, i *discordgo.Interaction, user *discordgo.User, resp *responder) {
	name := i.ApplicationCommandData().Name
	cmd, ok := r.slashCommands[name]
	if !ok {
		return
	}

	if !r.limiter.allow(user.ID) {
		r.metrics.CommandHandled(name, "rate_limited")
		if err := resp.ephemeral(ctx, "You are sending commands too quickly. Try again in a moment."); err != nil {
			slog.WarnContext(ctx, "Failed to answer rate limited command", "command", name, "error", err)
		}
		return
	}

	err := cmd(ctx, i, resp)

	var vErr *domain.ValidationError
	switch {
	case errors.As(err, &vErr):
		r.metrics.CommandHandled(name, "rejected")
		if replyErr := resp.ephemeral(ctx, vErr.Message); replyErr != nil {
			slog.WarnContext(ctx, "Failed to answer rejected command", "command", name, "error", replyErr)
		}
	case err != nil:
		r.metrics.CommandHandled(name, "error")
		slog.ErrorContext(ctx, "Command failed", "command", name, "channel_id", i.ChannelID, "user_id", user.ID, "error", err)
		if replyErr := resp.ephemeral(ctx, slashErrorReply); replyErr != nil {
			slog.WarnContext(ctx, "Failed to report command error", "command", name, "error", replyErr)
		}
	default:
		r.metrics.CommandHandled(name, "ok")
	}
}

func (r *Router) reply(ctx context.Context, m *discordgo.Message, content string) {
	send := &discordgo.MessageSend{Content: content, Reference: m.SoftReference()}
	if _, err := r.api.ChannelMessageSendComplex(m.ChannelID, send, discordgo.WithContext(ctx)); err != nil {
		slog.WarnContext(ctx, "Failed to reply to command", "channel_id", m.ChannelID, "error", err)
	}
}

// deleteQuietly removes the invoking message. Missing permissions are not fatal.
func (r *Router) deleteQuietly(ctx context.Context, m *discordgo.Message) {
	if err := r.api.ChannelMessageDelete(m.ChannelID, m.ID, discordgo.WithContext(ctx)); err != nil {
		slog.DebugContext(ctx, "Could not delete command message", "channel_id", m.ChannelID, "message_id", m.ID, "error", err)
	}
}

// splitCommand extracts the lowercased command name and the raw remainder.
func splitCommand(content, prefix string) (string, string, bool) {
	rest, ok := strings.CutPrefix(content, prefix)
	if !ok {
		return "", "", false
	}
	rest = strings.TrimLeftFunc(rest, unicode.IsSpace)
	name, args := rest, ""
	if idx := strings.IndexFunc(rest, unicode.IsSpace); idx >= 0 {
		name, args = rest[:idx], rest[idx:]
	}
	if name == "" {
		return "", "", false
	}
	return strings.ToLower(name), strings.TrimSpace(args), true
}

func optionsByName(opts []*discordgo.ApplicationCommandInteractionDataOption) map[string]*discordgo.ApplicationCommandInteractionDataOption {
	out := make(map[string]*discordgo.ApplicationCommandInteractionDataOption, len(opts))
	for _, o := range opts {
		out[o.Name] = o
	}
	return out
}

func authorOf(u *discordgo.User) domain.Author {
	return domain.Author{ID: u.ID, DisplayName: u.String(), AvatarURL: u.AvatarURL("")}
}
