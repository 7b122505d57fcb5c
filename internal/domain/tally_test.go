package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func newTestPoll(options ...string) *Poll {
	return &Poll{ID: "msg-1", Options: options, Votes: make(map[string]int)}
}

func TestCountVotes_CountsAndVoters(t *testing.T) {
	p := newTestPoll("Tea", "Coffee")
	p.Votes["bob"] = 0
	p.Votes["alice"] = 0
	p.Votes["carol"] = 1

	tally := CountVotes(p)

	assert.Equal(t, []int{2, 1}, tally.Counts)
	assert.Equal(t, []string{"alice", "bob"}, tally.Voters[0])
	assert.Equal(t, []string{"carol"}, tally.Voters[1])
	assert.Equal(t, 3, tally.Total())
}

func TestCountVotes_IgnoresOutOfRangeVotes(t *testing.T) {
	p := newTestPoll("A", "B")
	p.Votes["alice"] = 7
	p.Votes["bob"] = -1
	p.Votes["carol"] = 1

	tally := CountVotes(p)

	assert.Equal(t, []int{0, 1}, tally.Counts)
	assert.Equal(t, 1, tally.Total())
}

func TestTally_TotalMatchesVoteCount(t *testing.T) {
	p := newTestPoll("A", "B", "C", "D")
	for i, voter := range []string{"u1", "u2", "u3", "u4", "u5", "u6", "u7"} {
		p.Votes[voter] = i % 4
	}

	assert.Equal(t, len(p.Votes), CountVotes(p).Total())
}

func TestTally_Winners(t *testing.T) {
	tests := []struct {
		name   string
		counts []int
		want   []int
	}{
		{"no votes", []int{0, 0, 0}, []int{}},
		{"single winner", []int{2, 0}, []int{0}},
		{"winner last", []int{1, 3, 4}, []int{2}},
		{"two way tie", []int{1, 1}, []int{0, 1}},
		{"tie among some", []int{3, 1, 3, 0}, []int{0, 2}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tally := Tally{Counts: tt.counts}
			assert.Equal(t, tt.want, tally.Winners())
		})
	}
}
