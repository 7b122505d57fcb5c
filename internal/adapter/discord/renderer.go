package discord

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/jonboulle/clockwork"
	"github.com/pscheid92/pollbot/internal/adapter/metrics"
	"github.com/pscheid92/pollbot/internal/domain"
	"github.com/pscheid92/pollbot/internal/platform/retry"
	"golang.org/x/sync/singleflight"
)

const (
	retryMaxAttempts      = 3
	retryInitialBackoff   = 500 * time.Millisecond
	retryMaxBackoff       = 4 * time.Second
	retryRateLimitBackoff = 5 * time.Second
)

// Renderer draws polls as Discord messages with embeds and buttons.
type Renderer struct {
	api      restClient
	clock    clockwork.Clock
	metrics  *metrics.BotMetrics
	channels singleflight.Group
}

var _ domain.PollRenderer = (*Renderer)(nil)

func NewRenderer(api restClient, clock clockwork.Clock, m *metrics.BotMetrics) *Renderer {
	return &Renderer{api: api, clock: clock, metrics: m}
}

func (r *Renderer) RenderPoll(ctx context.Context, p *domain.Poll) (string, error) {
	send := &discordgo.MessageSend{
		Embeds:     []*discordgo.MessageEmbed{pollEmbed(p)},
		Components: pollComponents(len(p.Options), false),
	}
	msg, err := callAPI(ctx, r, "send_poll", classifyWrite, func() (*discordgo.Message, error) {
		return r.api.ChannelMessageSendComplex(p.ChannelID, send, discordgo.WithContext(ctx))
	})
	if err != nil {
		return "", fmt.Errorf("failed to post poll to channel %s: %w", p.ChannelID, err)
	}
	return msg.ID, nil
}

func (r *Renderer) AttachPoll(ctx context.Context, p *domain.Poll) error {
	if _, err := r.Channel(ctx, p.ChannelID); err != nil {
		return err
	}
	_, err := callAPI(ctx, r, "fetch_poll", classifyRead, func() (*discordgo.Message, error) {
		return r.api.ChannelMessage(p.ChannelID, p.ID, discordgo.WithContext(ctx))
	})
	if err != nil {
		return fmt.Errorf("failed to fetch poll message %s: %w", p.ID, err)
	}
	return nil
}

// RenderConclusion freezes the poll message and posts the final results.
// The results are posted even when the original message can no longer be edited.
func (r *Renderer) RenderConclusion(ctx context.Context, p *domain.Poll, tally domain.Tally, winners []int) error {
	embeds := []*discordgo.MessageEmbed{concludedPollEmbed(p, winners)}
	components := pollComponents(len(p.Options), true)
	edit := discordgo.NewMessageEdit(p.ChannelID, p.ID)
	edit.Embeds = &embeds
	edit.Components = &components

	_, editErr := callAPI(ctx, r, "close_poll", classifyRead, func() (*discordgo.Message, error) {
		return r.api.ChannelMessageEditComplex(edit, discordgo.WithContext(ctx))
	})
	if editErr != nil {
		editErr = fmt.Errorf("failed to close poll message %s: %w", p.ID, editErr)
	}

	results := finalResultsEmbed(p, tally, winners)
	_, sendErr := callAPI(ctx, r, "send_results", classifyWrite, func() (*discordgo.Message, error) {
		return r.api.ChannelMessageSendEmbed(p.ChannelID, results, discordgo.WithContext(ctx))
	})
	if sendErr != nil {
		sendErr = fmt.Errorf("failed to post results of poll %s: %w", p.ID, sendErr)
	}

	return errors.Join(editErr, sendErr)
}

// Channel resolves a channel. Concurrent lookups of the same channel share one request.
func (r *Renderer) Channel(ctx context.Context, channelID string) (*discordgo.Channel, error) {
	v, err, _ := r.channels.Do(channelID, func() (any, error) {
		return callAPI(ctx, r, "fetch_channel", classifyRead, func() (*discordgo.Channel, error) {
			return r.api.Channel(channelID, discordgo.WithContext(ctx))
		})
	})
	if err != nil {
		return nil, fmt.Errorf("failed to resolve channel %s: %w", channelID, err)
	}
	return v.(*discordgo.Channel), nil
}

// callAPI runs a REST call under the retry policy and maps "gone" responses
// to domain.ErrRenderUnavailable.
func callAPI[T any](ctx context.Context, r *Renderer, op string, classify retry.Classify, fn func() (T, error)) (T, error) {
	p := retry.Policy{
		MaxAttempts:      retryMaxAttempts,
		InitialBackoff:   retryInitialBackoff,
		MaxBackoff:       retryMaxBackoff,
		RateLimitBackoff: retryRateLimitBackoff,
		RetryAfter:       retryAfter,
		Clock:            r.clock,
		OnRetry: func(attempt int, err error, backoff time.Duration) {
			r.metrics.RESTRetried(op)
			slog.WarnContext(ctx, "Discord call failed, retrying", "op", op, "attempt", attempt, "backoff_seconds", backoff.Seconds(), "error", err)
		},
	}

	val, err := retry.Do(ctx, p, classify, fn)
	if err != nil {
		return val, translateError(err)
	}
	return val, nil
}

func translateError(err error) error {
	var restErr *discordgo.RESTError
	if !errors.As(err, &restErr) {
		return err
	}
	if restErr.Message != nil {
		switch restErr.Message.Code {
		case discordgo.ErrCodeUnknownChannel, discordgo.ErrCodeUnknownMessage, discordgo.ErrCodeMissingAccess:
			return fmt.Errorf("%w: %w", domain.ErrRenderUnavailable, err)
		}
	}
	if restErr.Response != nil && restErr.Response.StatusCode == http.StatusNotFound {
		return fmt.Errorf("%w: %w", domain.ErrRenderUnavailable, err)
	}
	return err
}

// classifyRead retries idempotent calls on rate limits, server errors and
// transport failures.
func classifyRead(err error) retry.Action {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return retry.Stop
	}
	if isRateLimited(err) {
		return retry.After
	}

	var restErr *discordgo.RESTError
	if !errors.As(err, &restErr) {
		return retry.Retry
	}
	if restErr.Response != nil && restErr.Response.StatusCode >= http.StatusInternalServerError {
		return retry.Retry
	}
	return retry.Stop
}

// classifyWrite only retries rate limits. A failed POST may still have
// created the message, so anything else is final.
func classifyWrite(err error) retry.Action {
	if isRateLimited(err) {
		return retry.After
	}
	return retry.Stop
}

func isRateLimited(err error) bool {
	var rl *discordgo.RateLimitError
	if errors.As(err, &rl) {
		return true
	}
	var restErr *discordgo.RESTError
	return errors.As(err, &restErr) && restErr.Response != nil && restErr.Response.StatusCode == http.StatusTooManyRequests
}

func retryAfter(err error) (time.Duration, bool) {
	var rl *discordgo.RateLimitError
	if errors.As(err, &rl) && rl.RateLimit != nil && rl.TooManyRequests != nil && rl.RetryAfter > 0 {
		return rl.RetryAfter, true
	}
	return 0, false
}
