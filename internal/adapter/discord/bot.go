package discord

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/jonboulle/clockwork"
	"github.com/pscheid92/pollbot/internal/adapter/metrics"
)

const (
	readyTimeout      = 30 * time.Second
	registerTimeout   = 15 * time.Second
	heartbeatInterval = 15 * time.Second

	intents = discordgo.IntentsGuilds |
		discordgo.IntentsGuildMessages |
		discordgo.IntentsDirectMessages |
		discordgo.IntentMessageContent
)

// NewSession creates an unopened gateway session for the bot token.
func NewSession(token string) (*discordgo.Session, error) {
	s, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("failed to create discord session: %w", err)
	}
	s.Identify.Intents = intents
	return s, nil
}

// BotConfig holds gateway level settings.
type BotConfig struct {
	GuildID         string
	StartupChannels []string
}

// Bot connects the router to the Discord gateway.
type Bot struct {
	session *discordgo.Session
	router  *Router
	metrics *metrics.BotMetrics
	clock   clockwork.Clock
	cfg     BotConfig

	ctx    context.Context
	cancel context.CancelFunc

	ready     chan *discordgo.User
	readyOnce sync.Once
	stopCh    chan struct{}
	stopOnce  sync.Once
}

func NewBot(session *discordgo.Session, router *Router, clock clockwork.Clock, m *metrics.BotMetrics, cfg BotConfig) *Bot {
	ctx, cancel := context.WithCancel(context.Background())
	return &Bot{
		session: session,
		router:  router,
		metrics: m,
		clock:   clock,
		cfg:     cfg,
		ctx:     ctx,
		cancel:  cancel,
		ready:   make(chan *discordgo.User, 1),
		stopCh:  make(chan struct{}),
	}
}

// Open connects to the gateway, waits for the ready event, registers the
// slash commands and posts the startup announcement.
func (b *Bot) Open(ctx context.Context) error {
	b.session.AddHandler(b.onReady)
	b.session.AddHandler(b.onMessageCreate)
	b.session.AddHandler(b.onInteractionCreate)

	if err := b.session.Open(); err != nil {
		return fmt.Errorf("failed to open discord gateway: %w", err)
	}

	var self *discordgo.User
	select {
	case self = <-b.ready:
	case <-b.clock.After(readyTimeout):
		return errors.New("timed out waiting for discord ready event")
	case <-ctx.Done():
		return fmt.Errorf("waiting for discord ready event: %w", ctx.Err())
	}
	slog.Info("Discord gateway ready", "user", self.String(), "user_id", self.ID)

	if err := b.registerCommands(ctx, self.ID); err != nil {
		// Prefix commands keep working without slash commands.
		slog.Error("Failed to register slash commands", "error", err)
	}

	b.router.AnnounceStartup(ctx, b.cfg.StartupChannels)
	return nil
}

func (b *Bot) registerCommands(ctx context.Context, appID string) error {
	regCtx, cancel := context.WithTimeout(ctx, registerTimeout)
	defer cancel()

	cmds, err := b.session.ApplicationCommandBulkOverwrite(appID, b.cfg.GuildID, SlashCommands(), discordgo.WithContext(regCtx))
	if err != nil {
		return fmt.Errorf("failed to overwrite application commands: %w", err)
	}
	slog.Info("Slash commands registered", "count", len(cmds), "guild_id", b.cfg.GuildID)
	return nil
}

// RunHeartbeatMonitor exports the gateway heartbeat latency until Close is called.
func (b *Bot) RunHeartbeatMonitor(ctx context.Context) {
	ticker := b.clock.NewTicker(heartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.Chan():
			if b.metrics != nil {
				b.metrics.HeartbeatLatency.Set(b.session.HeartbeatLatency().Seconds())
			}
		case <-b.stopCh:
			return
		case <-ctx.Done():
			return
		}
	}
}

// Check reports whether the gateway session is connected.
func (b *Bot) Check(_ context.Context) error {
	b.session.RLock()
	defer b.session.RUnlock()
	if !b.session.DataReady {
		return errors.New("discord gateway not connected")
	}
	return nil
}

// Close cancels in-flight handlers and disconnects from the gateway.
func (b *Bot) Close() error {
	b.stopOnce.Do(func() {
		close(b.stopCh)
		b.cancel()
	})
	if err := b.session.Close(); err != nil {
		return fmt.Errorf("failed to close discord session: %w", err)
	}
	return nil
}

func (b *Bot) onReady(_ *discordgo.Session, r *discordgo.Ready) {
	b.router.SetSelf(r.User)
	b.readyOnce.Do(func() {
		b.ready <- r.User
	})
}

func (b *Bot) onMessageCreate(_ *discordgo.Session, m *discordgo.MessageCreate) {
	b.router.HandleMessage(b.ctx, m.Message)
}

func (b *Bot) onInteractionCreate(_ *discordgo.Session, i *discordgo.InteractionCreate) {
	b.router.HandleInteraction(b.ctx, i.Interaction)
}
