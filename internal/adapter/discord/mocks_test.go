package discord

import (
	"context"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/pscheid92/pollbot/internal/app"
	"github.com/pscheid92/pollbot/internal/domain"
)

// --- Mock implementations ---

type sentMessage struct {
	ChannelID string
	Content   string
	Embeds    []*discordgo.MessageEmbed
	Send      *discordgo.MessageSend
}

type fakeAPI struct {
	mu     sync.Mutex
	nextID int
	now    time.Time

	sent          []sentMessage
	edits         []*discordgo.MessageEdit
	deleted       []string
	reactions     []string
	responses     []*discordgo.InteractionResponse
	responseEdits []*discordgo.WebhookEdit
	history       []*discordgo.Message

	sendErrs     []error // consumed one per send
	fetchErr     error
	editErr      error
	channelErr   error
	channelCalls int
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{now: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (f *fakeAPI) message(channelID string) *discordgo.Message {
	f.nextID++
	return &discordgo.Message{
		ID:        "msg-" + strconv.Itoa(f.nextID),
		ChannelID: channelID,
		Timestamp: f.now,
	}
}

func (f *fakeAPI) popSendErr() error {
	if len(f.sendErrs) == 0 {
		return nil
	}
	err := f.sendErrs[0]
	f.sendErrs = f.sendErrs[1:]
	return err
}

func (f *fakeAPI) Channel(channelID string, _ ...discordgo.RequestOption) (*discordgo.Channel, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.channelCalls++
	if f.channelErr != nil {
		return nil, f.channelErr
	}
	return &discordgo.Channel{ID: channelID}, nil
}

func (f *fakeAPI) ChannelMessage(channelID, messageID string, _ ...discordgo.RequestOption) (*discordgo.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	return &discordgo.Message{ID: messageID, ChannelID: channelID}, nil
}

func (f *fakeAPI) ChannelMessages(_ string, limit int, _, _, _ string, _ ...discordgo.RequestOption) ([]*discordgo.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.history) > limit {
		return f.history[:limit], nil
	}
	return f.history, nil
}

func (f *fakeAPI) ChannelMessageSend(channelID string, content string, _ ...discordgo.RequestOption) (*discordgo.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.popSendErr(); err != nil {
		return nil, err
	}
	f.sent = append(f.sent, sentMessage{ChannelID: channelID, Content: content})
	return f.message(channelID), nil
}

func (f *fakeAPI) ChannelMessageSendComplex(channelID string, data *discordgo.MessageSend, _ ...discordgo.RequestOption) (*discordgo.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.popSendErr(); err != nil {
		return nil, err
	}
	f.sent = append(f.sent, sentMessage{ChannelID: channelID, Content: data.Content, Embeds: data.Embeds, Send: data})
	return f.message(channelID), nil
}

func (f *fakeAPI) ChannelMessageSendEmbed(channelID string, embed *discordgo.MessageEmbed, _ ...discordgo.RequestOption) (*discordgo.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.popSendErr(); err != nil {
		return nil, err
	}
	f.sent = append(f.sent, sentMessage{ChannelID: channelID, Embeds: []*discordgo.MessageEmbed{embed}})
	return f.message(channelID), nil
}

func (f *fakeAPI) ChannelMessageEditComplex(m *discordgo.MessageEdit, _ ...discordgo.RequestOption) (*discordgo.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.editErr != nil {
		return nil, f.editErr
	}
	f.edits = append(f.edits, m)
	return &discordgo.Message{ID: m.ID, ChannelID: m.Channel}, nil
}

func (f *fakeAPI) ChannelMessageDelete(_, messageID string, _ ...discordgo.RequestOption) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, messageID)
	return nil
}

func (f *fakeAPI) MessageReactionAdd(_, messageID, emojiID string, _ ...discordgo.RequestOption) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reactions = append(f.reactions, messageID+":"+emojiID)
	return nil
}

func (f *fakeAPI) InteractionRespond(_ *discordgo.Interaction, resp *discordgo.InteractionResponse, _ ...discordgo.RequestOption) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.responses = append(f.responses, resp)
	return nil
}

func (f *fakeAPI) InteractionResponseEdit(_ *discordgo.Interaction, newresp *discordgo.WebhookEdit, _ ...discordgo.RequestOption) (*discordgo.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.responseEdits = append(f.responseEdits, newresp)
	return &discordgo.Message{}, nil
}

func (f *fakeAPI) sentMessages() []sentMessage {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]sentMessage(nil), f.sent...)
}

func (f *fakeAPI) lastResponse() *discordgo.InteractionResponse {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.responses) == 0 {
		return nil
	}
	return f.responses[len(f.responses)-1]
}

type mockPolls struct {
	mu        sync.Mutex
	requests  []app.CreateRequest
	votes     []string
	createFn  func(req app.CreateRequest) (*domain.Poll, error)
	voteFn    func(pollID, voterID string, option int) (app.VoteReceipt, error)
	resultsFn func(pollID string) (app.Results, error)
}

func (m *mockPolls) Create(_ context.Context, req app.CreateRequest) (*domain.Poll, error) {
	m.mu.Lock()
	m.requests = append(m.requests, req)
	m.mu.Unlock()
	if m.createFn != nil {
		return m.createFn(req)
	}
	return &domain.Poll{ID: "poll-1", ChannelID: req.ChannelID, Header: req.Header, Options: req.Options}, nil
}

func (m *mockPolls) Vote(_ context.Context, pollID, voterID string, option int) (app.VoteReceipt, error) {
	m.mu.Lock()
	m.votes = append(m.votes, pollID+"/"+voterID+"/"+strconv.Itoa(option))
	m.mu.Unlock()
	if m.voteFn != nil {
		return m.voteFn(pollID, voterID, option)
	}
	return app.VoteReceipt{PollID: pollID, Option: option}, nil
}

func (m *mockPolls) Results(pollID string) (app.Results, error) {
	if m.resultsFn != nil {
		return m.resultsFn(pollID)
	}
	return app.Results{}, domain.ErrPollNotFound
}

func (m *mockPolls) createRequests() []app.CreateRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]app.CreateRequest(nil), m.requests...)
}

// --- Helpers ---

func restError(status, code int) *discordgo.RESTError {
	return &discordgo.RESTError{
		Response:     &http.Response{StatusCode: status, Status: http.StatusText(status)},
		ResponseBody: []byte(`{}`),
		Message:      &discordgo.APIErrorMessage{Code: code, Message: "test"},
	}
}

func testUser(id string) *discordgo.User {
	return &discordgo.User{ID: id, Username: "user" + id, Discriminator: "0"}
}

func commandMessage(content string) *discordgo.Message {
	return &discordgo.Message{
		ID:        "cmd-1",
		ChannelID: "chan-general",
		Content:   content,
		Author:    testUser("42"),
		Timestamp: time.Date(2025, 3, 1, 11, 59, 59, 900_000_000, time.UTC),
	}
}

func buttonPress(messageID, userID, customID string) *discordgo.Interaction {
	return &discordgo.Interaction{
		ID:      "int-1",
		Type:    discordgo.InteractionMessageComponent,
		Message: &discordgo.Message{ID: messageID},
		Member:  &discordgo.Member{User: testUser(userID)},
		Data: discordgo.MessageComponentInteractionData{
			CustomID:      customID,
			ComponentType: discordgo.ButtonComponent,
		},
	}
}

func slashInvocation(name string, opts ...*discordgo.ApplicationCommandInteractionDataOption) *discordgo.Interaction {
	return &discordgo.Interaction{
		ID:        "int-2",
		Type:      discordgo.InteractionApplicationCommand,
		ChannelID: "chan-general",
		Member:    &discordgo.Member{User: testUser("42")},
		Data: discordgo.ApplicationCommandInteractionData{
			Name:    name,
			Options: opts,
		},
	}
}

func stringArg(name, value string) *discordgo.ApplicationCommandInteractionDataOption {
	return &discordgo.ApplicationCommandInteractionDataOption{
		Name:  name,
		Type:  discordgo.ApplicationCommandOptionString,
		Value: value,
	}
}

func boolArg(name string, value bool) *discordgo.ApplicationCommandInteractionDataOption {
	return &discordgo.ApplicationCommandInteractionDataOption{
		Name:  name,
		Type:  discordgo.ApplicationCommandOptionBoolean,
		Value: value,
	}
}
