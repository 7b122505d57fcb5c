package domain

import (
	"fmt"
	"maps"
	"slices"
	"strings"
	"time"
)

const (
	MinOptions      = 2
	MaxOptions      = 10
	MaxPollDuration = 30 * 24 * time.Hour
)

// Author identifies the user who created a poll.
type Author struct {
	ID          string
	DisplayName string
	AvatarURL   string
}

// Poll is the durable record of a poll that has not concluded yet.
// It is keyed by the ID of the rendered chat message.
type Poll struct {
	ID              string         `json:"messageId"`
	ChannelID       string         `json:"channelId"`
	AuthorID        string         `json:"authorId"`
	AuthorName      string         `json:"authorTag"`
	AuthorAvatarURL string         `json:"authorAvatar"`
	Header          string         `json:"header"`
	Options         []string       `json:"options"`
	CreatedAt       time.Time      `json:"createdAt"`
	EndsAt          time.Time      `json:"endsAt"`
	Votes           map[string]int `json:"votes"`
}

func (p *Poll) Author() Author {
	return Author{ID: p.AuthorID, DisplayName: p.AuthorName, AvatarURL: p.AuthorAvatarURL}
}

// Duration is the configured lifetime of the poll.
func (p *Poll) Duration() time.Duration {
	return p.EndsAt.Sub(p.CreatedAt)
}

// Expired reports whether the poll deadline has passed at now.
func (p *Poll) Expired(now time.Time) bool {
	return !now.Before(p.EndsAt)
}

// Clone returns a deep copy so callers can mutate votes independently.
func (p *Poll) Clone() *Poll {
	c := *p
	c.Options = slices.Clone(p.Options)
	c.Votes = maps.Clone(p.Votes)
	if c.Votes == nil {
		c.Votes = make(map[string]int)
	}
	return &c
}

// Validate checks the structural invariants of a stored record.
func (p *Poll) Validate() error {
	if p.ID == "" {
		return fmt.Errorf("poll has no message id")
	}
	if p.ChannelID == "" {
		return fmt.Errorf("poll %s has no channel id", p.ID)
	}
	if strings.TrimSpace(p.Header) == "" {
		return fmt.Errorf("poll %s has an empty header", p.ID)
	}
	if n := len(p.Options); n < MinOptions || n > MaxOptions {
		return fmt.Errorf("poll %s has %d options", p.ID, n)
	}
	if !p.EndsAt.After(p.CreatedAt) {
		return fmt.Errorf("poll %s ends before it starts", p.ID)
	}
	return nil
}

// ValidOption reports whether idx addresses one of the poll options.
func (p *Poll) ValidOption(idx int) bool {
	return idx >= 0 && idx < len(p.Options)
}

// DropInvalidVotes removes votes that address no option and returns the
// affected voter IDs in sorted order.
func (p *Poll) DropInvalidVotes() []string {
	var dropped []string
	for voterID, idx := range p.Votes {
		if !p.ValidOption(idx) {
			dropped = append(dropped, voterID)
			delete(p.Votes, voterID)
		}
	}
	slices.Sort(dropped)
	return dropped
}
