package app

import (
	"fmt"
	"strings"

	"github.com/pscheid92/pollbot/internal/domain"
)

// Results is a point-in-time view of a poll and its tally.
type Results struct {
	Poll    *domain.Poll
	Tally   domain.Tally
	Winners []int
}

func resultsOf(p *domain.Poll) Results {
	tally := domain.CountVotes(p)
	return Results{Poll: p, Tally: tally, Winners: tally.Winners()}
}

// Summary is the one-line announcement of a poll outcome.
func Summary(p *domain.Poll, winners []int) string {
	switch len(winners) {
	case 0:
		return "No votes were cast."
	case 1:
		return fmt.Sprintf("Option %q is the winner!", p.Options[winners[0]])
	default:
		quoted := make([]string, len(winners))
		for i, w := range winners {
			quoted[i] = fmt.Sprintf("%q", p.Options[w])
		}
		return "It's a tie between: " + strings.Join(quoted, ", ")
	}
}
