package domain

import "slices"

// Tally holds per-option vote counts and the voters behind each count.
type Tally struct {
	Counts []int
	Voters [][]string
}

// CountVotes derives the tally from the poll's votes. Votes that do not
// address a valid option are ignored.
func CountVotes(p *Poll) Tally {
	t := Tally{
		Counts: make([]int, len(p.Options)),
		Voters: make([][]string, len(p.Options)),
	}
	for voterID, idx := range p.Votes {
		if !p.ValidOption(idx) {
			continue
		}
		t.Counts[idx]++
		t.Voters[idx] = append(t.Voters[idx], voterID)
	}
	for i := range t.Voters {
		slices.Sort(t.Voters[i])
	}
	return t
}

// Total is the number of counted votes.
func (t Tally) Total() int {
	total := 0
	for _, c := range t.Counts {
		total += c
	}
	return total
}

// Winners returns the indices sharing the highest count. When nobody voted
// the result is empty; ties return every tied option.
func (t Tally) Winners() []int {
	highest := 0
	for _, c := range t.Counts {
		highest = max(highest, c)
	}
	if highest == 0 {
		return []int{}
	}

	var winners []int
	for i, c := range t.Counts {
		if c == highest {
			winners = append(winners, i)
		}
	}
	return winners
}
