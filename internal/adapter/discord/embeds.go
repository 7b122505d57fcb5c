package discord

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/pscheid92/pollbot/internal/app"
	"github.com/pscheid92/pollbot/internal/domain"
)

const (
	colorPoll       = 0x00b0f4
	colorResults    = 0xb4b4b4
	colorPong       = 0x00ff00
	colorSuggestion = 0x0099ff
	colorStartup    = 0x00ff00

	optionButtonPrefix = "poll_option_"
	resultsButtonID    = "poll_results"
	buttonsPerRow      = 5

	// Discord rejects embed descriptions above 4096 characters.
	maxMentionsPerOption = 40
)

func pollEmbed(p *domain.Poll) *discordgo.MessageEmbed {
	lines := make([]string, len(p.Options))
	for i, opt := range p.Options {
		lines[i] = fmt.Sprintf("**%d.** %s", i+1, opt)
	}

	return &discordgo.MessageEmbed{
		Title:       p.Header,
		Description: strings.Join(lines, "\n"),
		Color:       colorPoll,
		Author: &discordgo.MessageEmbedAuthor{
			Name:    p.AuthorName,
			IconURL: p.AuthorAvatarURL,
		},
		Footer: &discordgo.MessageEmbedFooter{
			Text: fmt.Sprintf("Poll by %s | Ends in %s", p.AuthorName, app.DescribeDuration(p.Duration())),
		},
	}
}

// concludedPollEmbed is the poll embed with its footer replaced by the outcome.
func concludedPollEmbed(p *domain.Poll, winners []int) *discordgo.MessageEmbed {
	embed := pollEmbed(p)
	embed.Footer = &discordgo.MessageEmbedFooter{Text: "Poll ended | " + app.Summary(p, winners)}
	return embed
}

// pollComponents lays out one button per option, five per row, followed
// by a row holding the results button.
func pollComponents(optionCount int, disabled bool) []discordgo.MessageComponent {
	var rows []discordgo.MessageComponent
	for start := 0; start < optionCount; start += buttonsPerRow {
		end := min(start+buttonsPerRow, optionCount)
		buttons := make([]discordgo.MessageComponent, 0, end-start)
		for i := start; i < end; i++ {
			buttons = append(buttons, discordgo.Button{
				Label:    strconv.Itoa(i + 1),
				Style:    discordgo.PrimaryButton,
				CustomID: optionButtonID(i),
				Disabled: disabled,
			})
		}
		rows = append(rows, discordgo.ActionsRow{Components: buttons})
	}

	rows = append(rows, discordgo.ActionsRow{Components: []discordgo.MessageComponent{
		discordgo.Button{
			Label:    "Results",
			Style:    discordgo.SecondaryButton,
			CustomID: resultsButtonID,
			Disabled: disabled,
		},
	}})
	return rows
}

func optionButtonID(idx int) string {
	return optionButtonPrefix + strconv.Itoa(idx)
}

// parseOptionButton extracts the option index from a vote button ID.
func parseOptionButton(customID string) (int, bool) {
	raw, ok := strings.CutPrefix(customID, optionButtonPrefix)
	if !ok {
		return 0, false
	}
	idx, err := strconv.Atoi(raw)
	if err != nil || idx < 0 {
		return 0, false
	}
	return idx, true
}

func resultsEmbed(p *domain.Poll, tally domain.Tally, winners []int) *discordgo.MessageEmbed {
	blocks := make([]string, len(p.Options))
	for i, opt := range p.Options {
		var b strings.Builder
		fmt.Fprintf(&b, "**%d.** %s - %s", i+1, opt, pluralVotes(tally.Counts[i]))
		if slices.Contains(winners, i) {
			b.WriteString(" (winning)")
		}
		b.WriteString("\n")
		b.WriteString(mentions(tally.Voters[i]))
		blocks[i] = b.String()
	}

	desc := strings.Join(blocks, "\n\n")
	if tally.Total() == 0 {
		desc += "\nNo votes yet."
	}

	return &discordgo.MessageEmbed{
		Title:       "Results for: " + p.Header,
		Description: desc,
		Color:       colorResults,
	}
}

func finalResultsEmbed(p *domain.Poll, tally domain.Tally, winners []int) *discordgo.MessageEmbed {
	embed := resultsEmbed(p, tally, winners)
	embed.Footer = &discordgo.MessageEmbedFooter{Text: "Poll ended"}
	return embed
}

func pluralVotes(n int) string {
	if n == 1 {
		return "1 vote"
	}
	return fmt.Sprintf("%d votes", n)
}

func mentions(userIDs []string) string {
	shown := userIDs
	if len(shown) > maxMentionsPerOption {
		shown = shown[:maxMentionsPerOption]
	}
	parts := make([]string, len(shown))
	for i, id := range shown {
		parts[i] = "<@" + id + ">"
	}
	out := strings.Join(parts, ", ")
	if extra := len(userIDs) - len(shown); extra > 0 {
		out += fmt.Sprintf(" and %d more", extra)
	}
	return out
}

type pingStats struct {
	Heartbeat time.Duration
	RoundTrip time.Duration
	Uptime    time.Duration
	HeapMB    float64
	Version   string
}

func pingEmbed(stats pingStats, requester *discordgo.User, now time.Time) *discordgo.MessageEmbed {
	heartbeat := "N/A"
	if stats.Heartbeat > 0 {
		heartbeat = fmt.Sprintf("`%dms`", stats.Heartbeat.Milliseconds())
	}

	uptime := stats.Uptime.Truncate(time.Second)
	hours := int(uptime / time.Hour)
	minutes := int(uptime % time.Hour / time.Minute)
	seconds := int(uptime % time.Minute / time.Second)

	embed := &discordgo.MessageEmbed{
		Title:       "Pong!",
		Description: "Here are the current latency metrics:",
		Color:       colorPong,
		Timestamp:   now.UTC().Format(time.RFC3339),
		Fields: []*discordgo.MessageEmbedField{
			{Name: "Discord API Latency", Value: heartbeat, Inline: true},
			{Name: "Round Trip", Value: fmt.Sprintf("`%dms`", stats.RoundTrip.Milliseconds()), Inline: true},
			{Name: "Memory Usage", Value: fmt.Sprintf("`%.2fMB`", stats.HeapMB), Inline: true},
			{Name: "Uptime", Value: fmt.Sprintf("`%dh %dm %ds`", hours, minutes, seconds), Inline: true},
			{Name: "Version", Value: "`" + stats.Version + "`", Inline: true},
		},
	}
	if requester != nil {
		embed.Footer = &discordgo.MessageEmbedFooter{
			Text:    "Requested by " + requester.String(),
			IconURL: requester.AvatarURL(""),
		}
	}
	return embed
}

func suggestionEmbed(number int, text string, author *discordgo.User, now time.Time) *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Title:       fmt.Sprintf("Suggestion #%d", number),
		Description: text,
		Color:       colorSuggestion,
		Author: &discordgo.MessageEmbedAuthor{
			Name:    author.String(),
			IconURL: author.AvatarURL(""),
		},
		Footer: &discordgo.MessageEmbedFooter{
			Text: fmt.Sprintf("Suggested by %s | %s", author.String(), now.Format("02/01/2006, 15:04:05")),
		},
	}
}

func startupEmbed(botName, version string, now time.Time) *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Title:       botName + " is on!",
		Description: "Polls, suggestions and the rest are ready.",
		Color:       colorStartup,
		Timestamp:   now.UTC().Format(time.RFC3339),
		Footer:      &discordgo.MessageEmbedFooter{Text: "Version " + version},
	}
}
