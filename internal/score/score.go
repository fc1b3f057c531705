// Package score tracks targets, hits and rank for one round of the game.
package score

import "fmt"

// Rank is the placement shown on the share screen.
type Rank string

const (
	RankFirst  Rank = "first"
	RankSecond Rank = "second"
	RankThird  Rank = "third"
	RankFourth Rank = "fourth"
)

// Outcome is the result of one target reaching the player.
type Outcome string

const (
	Hit  Outcome = "hit"
	Miss Outcome = "miss"
)

// MinScore replaces an exact zero score so the display never reads 0%.
const MinScore = 0.01

// State is the score for the current round.
type State struct {
	TotalTargets        int     `json:"totalTargets"`
	RemainingTargets    int     `json:"remainingTargets"`
	Hits                int     `json:"hits"`
	BlocksRemaining     int     `json:"blocksRemaining"`
	BlocksRemainingText string  `json:"blocksRemainingText"`
	Score               float64 `json:"score"`
	Rank                Rank    `json:"rank"`
}

// New returns a fresh round with totalTargets targets.
func New(totalTargets int) State {
	return State{
		TotalTargets:        totalTargets,
		RemainingTargets:    totalTargets,
		BlocksRemaining:     totalTargets,
		BlocksRemainingText: fmt.Sprint(totalTargets),
		Score:               1,
		Rank:                RankFirst,
	}
}

// ParseOutcome validates an outcome name.
func ParseOutcome(s string) (Outcome, error) {
	switch Outcome(s) {
	case Hit, Miss:
		return Outcome(s), nil
	}
	return "", fmt.Errorf("unknown outcome %q", s)
}

// RecordEvent applies one outcome. Once the target budget is spent it is a no-op.
func RecordEvent(s State, o Outcome) State {
	if s.RemainingTargets <= 0 {
		return s
	}

	if o == Hit {
		s.Hits++
		s.BlocksRemaining--
		s.BlocksRemainingText = blocksText(s.BlocksRemaining)

		s.Score = float64(s.TotalTargets-s.Hits) / float64(s.TotalTargets)
		if s.Score == 0 {
			s.Score = MinScore
		}
		s.Rank = RankFor(s.Score)
	}

	s.RemainingTargets--
	return s
}

// RankFor maps a score to its rank.
func RankFor(score float64) Rank {
	switch {
	case score >= 0.75:
		return RankFirst
	case score >= 0.5:
		return RankSecond
	case score >= 0.25:
		return RankThird
	default:
		return RankFourth
	}
}

// Completed reports whether every target has been consumed.
func (s State) Completed() bool {
	return s.RemainingTargets <= 0
}

func blocksText(n int) string {
	if n < 10 {
		return fmt.Sprintf("0%d", n)
	}
	return fmt.Sprint(n)
}
