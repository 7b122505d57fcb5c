package discord

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/pscheid92/pollbot/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func teaPoll() *domain.Poll {
	created := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	return &domain.Poll{
		ID:              "msg-1",
		ChannelID:       "chan-polls",
		AuthorID:        "42",
		AuthorName:      "alice",
		AuthorAvatarURL: "https://cdn.example/a.png",
		Header:          "Tea or coffee?",
		Options:         []string{"Tea", "Coffee"},
		CreatedAt:       created,
		EndsAt:          created.Add(5 * time.Minute),
		Votes:           map[string]int{},
	}
}

func TestPollEmbed(t *testing.T) {
	embed := pollEmbed(teaPoll())

	assert.Equal(t, "Tea or coffee?", embed.Title)
	assert.Equal(t, "**1.** Tea\n**2.** Coffee", embed.Description)
	assert.Equal(t, "alice", embed.Author.Name)
	assert.Equal(t, "Poll by alice | Ends in 5 minutes", embed.Footer.Text)
}

func TestConcludedPollEmbed(t *testing.T) {
	embed := concludedPollEmbed(teaPoll(), []int{0})
	assert.Equal(t, `Poll ended | Option "Tea" is the winner!`, embed.Footer.Text)

	embed = concludedPollEmbed(teaPoll(), []int{})
	assert.Equal(t, "Poll ended | No votes were cast.", embed.Footer.Text)
}

func buttonsOf(t *testing.T, row discordgo.MessageComponent) []discordgo.Button {
	t.Helper()
	actions, ok := row.(discordgo.ActionsRow)
	require.True(t, ok)
	out := make([]discordgo.Button, 0, len(actions.Components))
	for _, c := range actions.Components {
		b, ok := c.(discordgo.Button)
		require.True(t, ok)
		out = append(out, b)
	}
	return out
}

func TestPollComponents_Layout(t *testing.T) {
	rows := pollComponents(7, false)
	require.Len(t, rows, 3)

	first := buttonsOf(t, rows[0])
	second := buttonsOf(t, rows[1])
	last := buttonsOf(t, rows[2])

	require.Len(t, first, 5)
	require.Len(t, second, 2)
	require.Len(t, last, 1)

	assert.Equal(t, "poll_option_0", first[0].CustomID)
	assert.Equal(t, "1", first[0].Label)
	assert.Equal(t, "poll_option_6", second[1].CustomID)
	assert.Equal(t, "7", second[1].Label)
	assert.Equal(t, "poll_results", last[0].CustomID)
	assert.Equal(t, discordgo.SecondaryButton, last[0].Style)
}

func TestPollComponents_TwoOptions(t *testing.T) {
	rows := pollComponents(2, false)
	require.Len(t, rows, 2)
	assert.Len(t, buttonsOf(t, rows[0]), 2)
}

func TestPollComponents_Disabled(t *testing.T) {
	for _, row := range pollComponents(10, true) {
		for _, b := range buttonsOf(t, row) {
			assert.True(t, b.Disabled, b.CustomID)
		}
	}
}

func TestParseOptionButton(t *testing.T) {
	tests := []struct {
		id     string
		want   int
		wantOK bool
	}{
		{"poll_option_0", 0, true},
		{"poll_option_9", 9, true},
		{"poll_option_-1", 0, false},
		{"poll_option_x", 0, false},
		{"poll_results", 0, false},
		{"other", 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			got, ok := parseOptionButton(tt.id)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestResultsEmbed_WithVotes(t *testing.T) {
	p := teaPoll()
	p.Votes = map[string]int{"u1": 0, "u2": 0, "u3": 1}
	tally := domain.CountVotes(p)

	embed := resultsEmbed(p, tally, tally.Winners())

	assert.Equal(t, "Results for: Tea or coffee?", embed.Title)
	assert.Equal(t, "**1.** Tea - 2 votes (winning)\n<@u1>, <@u2>\n\n**2.** Coffee - 1 vote\n<@u3>", embed.Description)
	assert.Nil(t, embed.Footer)
}

func TestResultsEmbed_NoVotes(t *testing.T) {
	p := teaPoll()
	tally := domain.CountVotes(p)

	embed := resultsEmbed(p, tally, tally.Winners())

	assert.NotContains(t, embed.Description, "(winning)")
	assert.True(t, strings.HasSuffix(embed.Description, "\nNo votes yet."))
}

func TestResultsEmbed_TieMarksBoth(t *testing.T) {
	p := teaPoll()
	p.Votes = map[string]int{"u1": 0, "u2": 1}
	tally := domain.CountVotes(p)

	embed := resultsEmbed(p, tally, tally.Winners())

	assert.Equal(t, 2, strings.Count(embed.Description, "(winning)"))
}

func TestFinalResultsEmbed_Footer(t *testing.T) {
	p := teaPoll()
	tally := domain.CountVotes(p)
	assert.Equal(t, "Poll ended", finalResultsEmbed(p, tally, tally.Winners()).Footer.Text)
}

func TestMentions_Truncates(t *testing.T) {
	ids := make([]string, maxMentionsPerOption+3)
	for i := range ids {
		ids[i] = fmt.Sprintf("u%d", i)
	}

	out := mentions(ids)

	assert.Equal(t, maxMentionsPerOption, strings.Count(out, "<@"))
	assert.True(t, strings.HasSuffix(out, " and 3 more"))
}

func TestPingEmbed(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	stats := pingStats{
		Heartbeat: 42 * time.Millisecond,
		RoundTrip: 120 * time.Millisecond,
		Uptime:    2*time.Hour + 3*time.Minute + 4*time.Second,
		HeapMB:    12.5,
		Version:   "v1.2.3",
	}

	embed := pingEmbed(stats, testUser("42"), now)

	assert.Equal(t, "Pong!", embed.Title)
	values := map[string]string{}
	for _, f := range embed.Fields {
		values[f.Name] = f.Value
	}
	assert.Equal(t, "`42ms`", values["Discord API Latency"])
	assert.Equal(t, "`120ms`", values["Round Trip"])
	assert.Equal(t, "`12.50MB`", values["Memory Usage"])
	assert.Equal(t, "`2h 3m 4s`", values["Uptime"])
	assert.Equal(t, "`v1.2.3`", values["Version"])
	assert.Equal(t, "Requested by user42", embed.Footer.Text)
}

func TestPingEmbed_NoHeartbeatYet(t *testing.T) {
	embed := pingEmbed(pingStats{}, nil, time.Now())
	assert.Equal(t, "N/A", embed.Fields[0].Value)
	assert.Nil(t, embed.Footer)
}

func TestSuggestionEmbed(t *testing.T) {
	now := time.Date(2025, 3, 1, 9, 5, 7, 0, time.UTC)
	embed := suggestionEmbed(4, "More polls", testUser("7"), now)

	assert.Equal(t, "Suggestion #4", embed.Title)
	assert.Equal(t, "More polls", embed.Description)
	assert.Equal(t, "Suggested by user7 | 01/03/2025, 09:05:07", embed.Footer.Text)
}
