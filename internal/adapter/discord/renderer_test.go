package discord

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/pscheid92/pollbot/internal/adapter/metrics"
	"github.com/pscheid92/pollbot/internal/domain"
	"github.com/pscheid92/pollbot/internal/platform/retry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRenderer(api *fakeAPI) (*Renderer, *clockwork.FakeClock, *metrics.BotMetrics) {
	clock := clockwork.NewFakeClock()
	m := metrics.NewBotMetrics(prometheus.NewRegistry())
	return NewRenderer(api, clock, m), clock, m
}

func TestRenderer_RenderPoll(t *testing.T) {
	api := newFakeAPI()
	r, _, _ := newTestRenderer(api)

	id, err := r.RenderPoll(context.Background(), teaPoll())
	require.NoError(t, err)

	sent := api.sentMessages()
	require.Len(t, sent, 1)
	assert.Equal(t, "msg-1", id)
	assert.Equal(t, "chan-polls", sent[0].ChannelID)
	require.Len(t, sent[0].Embeds, 1)
	assert.Equal(t, "Tea or coffee?", sent[0].Embeds[0].Title)
	assert.Len(t, sent[0].Send.Components, 2)
}

func TestRenderer_RenderPoll_UnknownChannel(t *testing.T) {
	api := newFakeAPI()
	api.sendErrs = []error{restError(http.StatusNotFound, discordgo.ErrCodeUnknownChannel)}
	r, _, _ := newTestRenderer(api)

	_, err := r.RenderPoll(context.Background(), teaPoll())
	assert.ErrorIs(t, err, domain.ErrRenderUnavailable)
}

func TestRenderer_RenderPoll_ServerErrorNotRetried(t *testing.T) {
	api := newFakeAPI()
	api.sendErrs = []error{restError(http.StatusBadGateway, 0)}
	r, _, m := newTestRenderer(api)

	_, err := r.RenderPoll(context.Background(), teaPoll())

	require.Error(t, err)
	assert.NotErrorIs(t, err, domain.ErrRenderUnavailable)
	assert.Empty(t, api.sentMessages())
	assert.Equal(t, 0.0, testutil.ToFloat64(m.RESTRetries.WithLabelValues("send_poll")))
}

func TestRenderer_RenderPoll_RetriesAfterRateLimit(t *testing.T) {
	api := newFakeAPI()
	api.sendErrs = []error{&discordgo.RateLimitError{RateLimit: &discordgo.RateLimit{
		TooManyRequests: &discordgo.TooManyRequests{RetryAfter: 2 * time.Second},
		URL:             "/channels/chan-polls/messages",
	}}}
	r, clock, m := newTestRenderer(api)

	var (
		wg  sync.WaitGroup
		id  string
		err error
	)
	wg.Add(1)
	go func() {
		defer wg.Done()
		id, err = r.RenderPoll(context.Background(), teaPoll())
	}()

	require.NoError(t, clock.BlockUntilContext(context.Background(), 1))
	clock.Advance(2 * time.Second)
	wg.Wait()

	require.NoError(t, err)
	assert.Equal(t, "msg-1", id)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RESTRetries.WithLabelValues("send_poll")))
}

func TestRenderer_AttachPoll(t *testing.T) {
	api := newFakeAPI()
	r, _, _ := newTestRenderer(api)

	require.NoError(t, r.AttachPoll(context.Background(), teaPoll()))
}

func TestRenderer_AttachPoll_MessageDeleted(t *testing.T) {
	api := newFakeAPI()
	api.fetchErr = restError(http.StatusNotFound, discordgo.ErrCodeUnknownMessage)
	r, _, _ := newTestRenderer(api)

	err := r.AttachPoll(context.Background(), teaPoll())
	assert.ErrorIs(t, err, domain.ErrRenderUnavailable)
}

func TestRenderer_AttachPoll_ChannelGone(t *testing.T) {
	api := newFakeAPI()
	api.channelErr = restError(http.StatusNotFound, discordgo.ErrCodeUnknownChannel)
	r, _, _ := newTestRenderer(api)

	err := r.AttachPoll(context.Background(), teaPoll())
	assert.ErrorIs(t, err, domain.ErrRenderUnavailable)
}

func TestRenderer_AttachPoll_ForbiddenIsNotUnavailable(t *testing.T) {
	api := newFakeAPI()
	api.fetchErr = restError(http.StatusUnauthorized, 0)
	r, _, _ := newTestRenderer(api)

	err := r.AttachPoll(context.Background(), teaPoll())
	require.Error(t, err)
	assert.NotErrorIs(t, err, domain.ErrRenderUnavailable)
}

func TestRenderer_RenderConclusion(t *testing.T) {
	api := newFakeAPI()
	r, _, _ := newTestRenderer(api)
	p := teaPoll()
	p.Votes = map[string]int{"u1": 0, "u2": 0, "u3": 1}
	tally := domain.CountVotes(p)

	require.NoError(t, r.RenderConclusion(context.Background(), p, tally, tally.Winners()))

	require.Len(t, api.edits, 1)
	edit := api.edits[0]
	assert.Equal(t, "msg-1", edit.ID)
	assert.Equal(t, "chan-polls", edit.Channel)
	assert.Equal(t, `Poll ended | Option "Tea" is the winner!`, (*edit.Embeds)[0].Footer.Text)
	for _, row := range *edit.Components {
		for _, b := range buttonsOf(t, row) {
			assert.True(t, b.Disabled)
		}
	}

	sent := api.sentMessages()
	require.Len(t, sent, 1)
	assert.Equal(t, "Results for: Tea or coffee?", sent[0].Embeds[0].Title)
	assert.Equal(t, "Poll ended", sent[0].Embeds[0].Footer.Text)
}

func TestRenderer_RenderConclusion_PostsResultsWhenEditFails(t *testing.T) {
	api := newFakeAPI()
	api.editErr = restError(http.StatusNotFound, discordgo.ErrCodeUnknownMessage)
	r, _, _ := newTestRenderer(api)
	p := teaPoll()
	tally := domain.CountVotes(p)

	err := r.RenderConclusion(context.Background(), p, tally, tally.Winners())

	assert.ErrorIs(t, err, domain.ErrRenderUnavailable)
	assert.Len(t, api.sentMessages(), 1)
}

func TestClassifyRead(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want retry.Action
	}{
		{"rate limit error", &discordgo.RateLimitError{RateLimit: &discordgo.RateLimit{TooManyRequests: &discordgo.TooManyRequests{}}}, retry.After},
		{"429", restError(http.StatusTooManyRequests, 0), retry.After},
		{"500", restError(http.StatusInternalServerError, 0), retry.Retry},
		{"404", restError(http.StatusNotFound, discordgo.ErrCodeUnknownMessage), retry.Stop},
		{"403", restError(http.StatusForbidden, discordgo.ErrCodeMissingAccess), retry.Stop},
		{"transport", errors.New("connection reset"), retry.Retry},
		{"cancelled", context.Canceled, retry.Stop},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, classifyRead(tt.err))
		})
	}
}

func TestClassifyWrite(t *testing.T) {
	assert.Equal(t, retry.After, classifyWrite(restError(http.StatusTooManyRequests, 0)))
	assert.Equal(t, retry.Stop, classifyWrite(restError(http.StatusInternalServerError, 0)))
	assert.Equal(t, retry.Stop, classifyWrite(errors.New("connection reset")))
}

func TestRetryAfter(t *testing.T) {
	d, ok := retryAfter(&discordgo.RateLimitError{RateLimit: &discordgo.RateLimit{
		TooManyRequests: &discordgo.TooManyRequests{RetryAfter: 1500 * time.Millisecond},
	}})
	assert.True(t, ok)
	assert.Equal(t, 1500*time.Millisecond, d)

	_, ok = retryAfter(restError(http.StatusTooManyRequests, 0))
	assert.False(t, ok)
}

func TestRenderer_Channel_Unavailable(t *testing.T) {
	api := newFakeAPI()
	api.channelErr = restError(http.StatusForbidden, discordgo.ErrCodeMissingAccess)
	r, _, _ := newTestRenderer(api)

	_, err := r.Channel(context.Background(), "chan-secret")
	assert.ErrorIs(t, err, domain.ErrRenderUnavailable)
}
