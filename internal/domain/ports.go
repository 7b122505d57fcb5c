package domain

import "context"

// PollStore persists the full set of unconcluded polls as one document.
// Load on a missing or empty store returns an empty map. A corrupt store
// returns whatever could be decoded together with an ErrStoreCorrupt error.
type PollStore interface {
	Load(ctx context.Context) (map[string]*Poll, error)
	Save(ctx context.Context, polls map[string]*Poll) error
}

// PollRenderer draws polls on the chat surface.
type PollRenderer interface {
	// RenderPoll posts the interactive poll and returns the message ID,
	// which becomes the poll ID.
	RenderPoll(ctx context.Context, poll *Poll) (string, error)

	// AttachPoll verifies that a restored poll's message is still reachable.
	// Returns ErrRenderUnavailable when the message or channel is gone.
	AttachPoll(ctx context.Context, poll *Poll) error

	// RenderConclusion disables the interactive view and announces results.
	RenderConclusion(ctx context.Context, poll *Poll, tally Tally, winners []int) error
}
