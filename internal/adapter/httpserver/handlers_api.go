package httpserver

import (
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/pscheid92/pollbot/internal/app"
)

type optionResponse struct {
	Label string `json:"label"`
	Votes int    `json:"votes"`
}

type pollResponse struct {
	ID               string           `json:"id"`
	ChannelID        string           `json:"channel_id"`
	Header           string           `json:"header"`
	Author           string           `json:"author"`
	CreatedAt        time.Time        `json:"created_at"`
	EndsAt           time.Time        `json:"ends_at"`
	RemainingSeconds int64            `json:"remaining_seconds"`
	Options          []optionResponse `json:"options"`
	TotalVotes       int              `json:"total_votes"`
	Leading          []string         `json:"leading"`
	Summary          string           `json:"summary"`
}

func (s *Server) registerAPIRoutes() {
	api := s.echo.Group("/api", newRateLimiter(apiRatePerSecond, apiBurst))
	api.GET("/polls", s.handleListPolls)
	api.GET("/polls/:id", s.handleGetPoll)
}

func (s *Server) handleListPolls(c echo.Context) error {
	active := s.polls.ActivePolls()

	out := make([]pollResponse, 0, len(active))
	for _, r := range active {
		out = append(out, s.toResponse(r))
	}

	if err := c.JSON(http.StatusOK, map[string]any{"polls": out}); err != nil {
		return fmt.Errorf("failed to send JSON response: %w", err)
	}
	return nil
}

func (s *Server) handleGetPoll(c echo.Context) error {
	results, err := s.polls.Results(c.Param("id"))
	if err != nil {
		return err
	}

	if err := c.JSON(http.StatusOK, s.toResponse(results)); err != nil {
		return fmt.Errorf("failed to send JSON response: %w", err)
	}
	return nil
}

func (s *Server) toResponse(r app.Results) pollResponse {
	p := r.Poll

	options := make([]optionResponse, len(p.Options))
	for i, label := range p.Options {
		options[i] = optionResponse{Label: label, Votes: r.Tally.Counts[i]}
	}

	leading := make([]string, 0, len(r.Winners))
	for _, w := range r.Winners {
		leading = append(leading, p.Options[w])
	}

	remaining := p.EndsAt.Sub(s.clock.Now())
	if remaining < 0 {
		remaining = 0
	}

	return pollResponse{
		ID:               p.ID,
		ChannelID:        p.ChannelID,
		Header:           p.Header,
		Author:           p.AuthorName,
		CreatedAt:        p.CreatedAt,
		EndsAt:           p.EndsAt,
		RemainingSeconds: int64(remaining / time.Second),
		Options:          options,
		TotalVotes:       r.Tally.Total(),
		Leading:          leading,
		Summary:          app.Summary(p, r.Winners),
	}
}
