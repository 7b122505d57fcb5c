package discord

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/bwmarrin/discordgo"
	"github.com/pscheid92/pollbot/internal/domain"
)

const (
	msgAlreadyVoted  = "You have already voted in this poll."
	msgPollEnded     = "This poll has ended."
	msgPollStarting  = "This poll is still starting. Try again in a moment."
	msgUnknownOption = "That option is not part of this poll."
)

func (r *Router) handleComponent(ctx context.Context, i *discordgo.Interaction, user *discordgo.User, resp *responder) {
	if i.Message == nil {
		return
	}
	customID := i.MessageComponentData().CustomID
	pollID := i.Message.ID

	if customID == resultsButtonID {
		r.showResults(ctx, pollID, user, resp)
		return
	}
	if option, ok := parseOptionButton(customID); ok {
		r.castVote(ctx, pollID, user, option, resp)
	}
}

func (r *Router) castVote(ctx context.Context, pollID string, user *discordgo.User, option int, resp *responder) {
	receipt, err := r.polls.Vote(ctx, pollID, user.ID, option)

	var content, result string
	switch {
	case err == nil:
		content, result = fmt.Sprintf("You voted for option %d (%s)", receipt.Option+1, receipt.Label), "accepted"
	case errors.Is(err, domain.ErrPollStarting):
		content, result = msgPollStarting, "starting"
	case errors.Is(err, domain.ErrAlreadyVoted):
		content, result = msgAlreadyVoted, "already_voted"
	case errors.Is(err, domain.ErrPollClosed), errors.Is(err, domain.ErrPollNotFound):
		content, result = msgPollEnded, "closed"
	case errors.Is(err, domain.ErrInvalidOption):
		content, result = msgUnknownOption, "invalid"
	default:
		slog.ErrorContext(ctx, "Vote failed", "poll_id", pollID, "user_id", user.ID, "error", err)
		content, result = slashErrorReply, "error"
	}

	r.metrics.InteractionHandled("vote", result)
	if replyErr := resp.ephemeral(ctx, content); replyErr != nil {
		slog.WarnContext(ctx, "Failed to acknowledge vote", "poll_id", pollID, "user_id", user.ID, "error", replyErr)
	}
}

func (r *Router) showResults(ctx context.Context, pollID string, user *discordgo.User, resp *responder) {
	results, err := r.polls.Results(pollID)
	if err != nil {
		content, result := msgPollEnded, "closed"
		if errors.Is(err, domain.ErrPollStarting) {
			content, result = msgPollStarting, "starting"
		}
		r.metrics.InteractionHandled("results", result)
		if replyErr := resp.ephemeral(ctx, content); replyErr != nil {
			slog.WarnContext(ctx, "Failed to answer results request", "poll_id", pollID, "error", replyErr)
		}
		return
	}

	r.metrics.InteractionHandled("results", "ok")
	embed := resultsEmbed(results.Poll, results.Tally, results.Winners)
	if replyErr := resp.ephemeralEmbed(ctx, embed); replyErr != nil {
		slog.WarnContext(ctx, "Failed to send results", "poll_id", pollID, "user_id", user.ID, "error", replyErr)
	}
}
