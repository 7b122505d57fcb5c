package discord

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/pscheid92/pollbot/internal/app"
	"github.com/pscheid92/pollbot/internal/domain"
)

const (
	msgMissingTime      = "You must specify the time as `<time:5m>` or similar."
	msgInvalidTimeTag   = "Invalid time format or exceeds 30d. Use e.g. <time:10s>, <time:5m>, <time:2h>, <time:7d>, max 30d."
	msgOptionCount      = "You must provide between 2 and 10 options."
	msgMissingHeader    = "You must provide a poll header before the first <."
	msgChannelNotFound  = "Polls channel not found."
	msgPollCreated      = "Poll created!"
	slashOptionMaxCount = domain.MaxOptions
)

var bracketPattern = regexp.MustCompile(`<([^>]*)>`)

type pollArgs struct {
	Header   string
	Options  []string
	Duration time.Duration
}

// parsePollArgs reads `Header <opt1> <opt2> ... <time:5m>`. The header is
// everything before the first '<'; every bracket except the time tag is an option.
func parsePollArgs(text string) (pollArgs, error) {
	var tokens []string
	for _, m := range bracketPattern.FindAllStringSubmatch(text, -1) {
		tokens = append(tokens, strings.TrimSpace(m[1]))
	}

	timeIdx := -1
	for i, tok := range tokens {
		if len(tok) >= 5 && strings.EqualFold(tok[:5], "time:") {
			timeIdx = i
			break
		}
	}
	if timeIdx < 0 {
		return pollArgs{}, domain.NewValidationError(msgMissingTime)
	}

	d, err := app.ParseDuration(tokens[timeIdx][5:])
	if err != nil {
		return pollArgs{}, domain.NewValidationError(msgInvalidTimeTag)
	}

	options := make([]string, 0, len(tokens)-1)
	for i, tok := range tokens {
		if i != timeIdx {
			options = append(options, tok)
		}
	}
	if len(options) < domain.MinOptions || len(options) > domain.MaxOptions {
		return pollArgs{}, domain.NewValidationError(msgOptionCount)
	}

	header, _, _ := strings.Cut(text, "<")
	header = strings.TrimSpace(header)
	if header == "" {
		return pollArgs{}, domain.NewValidationError(msgMissingHeader)
	}

	return pollArgs{Header: header, Options: options, Duration: d}, nil
}

func (r *Router) pollFromMessage(ctx context.Context, m *discordgo.Message, args string) error {
	parsed, err := parsePollArgs(args)
	if err != nil {
		return err
	}

	poll, err := r.createPoll(ctx, m.Author, parsed)
	if err != nil {
		return err
	}

	slog.InfoContext(ctx, "Poll started from message", "poll_id", poll.ID, "user_id", m.Author.ID)
	r.deleteQuietly(ctx, m)
	return nil
}

func (r *Router) pollFromSlash(ctx context.Context, i *discordgo.Interaction, resp *responder) error {
	opts := optionsByName(i.ApplicationCommandData().Options)

	var parsed pollArgs
	if o, ok := opts["header"]; ok {
		parsed.Header = o.StringValue()
	}
	if o, ok := opts["time"]; ok {
		d, err := app.ParseDuration(o.StringValue())
		if err != nil {
			return err
		}
		parsed.Duration = d
	}
	for n := 1; n <= slashOptionMaxCount; n++ {
		if o, ok := opts[fmt.Sprintf("option%d", n)]; ok && strings.TrimSpace(o.StringValue()) != "" {
			parsed.Options = append(parsed.Options, o.StringValue())
		}
	}

	// Posting may wait on rate limits longer than Discord allows for a first response.
	if err := resp.deferEphemeral(ctx); err != nil {
		return err
	}

	poll, err := r.createPoll(ctx, interactionUser(i), parsed)
	if err != nil {
		return err
	}

	slog.InfoContext(ctx, "Poll started from slash command", "poll_id", poll.ID, "user_id", interactionUser(i).ID)
	return resp.ephemeral(ctx, msgPollCreated)
}

func (r *Router) createPoll(ctx context.Context, author *discordgo.User, parsed pollArgs) (*domain.Poll, error) {
	poll, err := r.polls.Create(ctx, app.CreateRequest{
		ChannelID: r.cfg.PollsChannel,
		Author:    authorOf(author),
		Header:    parsed.Header,
		Options:   parsed.Options,
		Duration:  parsed.Duration,
	})
	if errors.Is(err, domain.ErrRenderUnavailable) {
		return nil, domain.NewValidationError(msgChannelNotFound)
	}
	if err != nil {
		return nil, err
	}
	return poll, nil
}
