package domain

import (
	"math"
	"time"

	"github.com/google/uuid"
)

type OptionResult struct {
	Option     string  `json:"option"`
	VoteCount  int     `json:"voteCount"`
	Percentage float64 `json:"percentage"`
}

type PollResults struct {
	PollID      uuid.UUID      `json:"pollId"`
	Question    string         `json:"question"`
	Options     []OptionResult `json:"options"`
	TotalVotes  int            `json:"totalVotes"`
	IsActive    bool           `json:"isActive"`
	IsAnonymous bool           `json:"isAnonymous"`
	CreatedAt   time.Time      `json:"createdAt"`
	ClosedAt    *time.Time     `json:"closedAt,omitempty"`
}

func (p *Poll) Results(now time.Time) PollResults {
	total := p.TotalVotes()
	options := make([]OptionResult, len(p.Options))
	for i, opt := range p.Options {
		options[i] = OptionResult{
			Option:     opt,
			VoteCount:  p.VoteCounts[i],
			Percentage: Percentage(p.VoteCounts[i], total),
		}
	}
	return PollResults{
		PollID:      p.ID,
		Question:    p.Question,
		Options:     options,
		TotalVotes:  total,
		IsActive:    p.IsActive(now),
		IsAnonymous: p.IsAnonymous,
		CreatedAt:   p.CreatedAt,
		ClosedAt:    p.EffectiveClosedAt(now),
	}
}

// Percentage is rounded to one decimal; an empty poll is 0 for every option.
func Percentage(count, total int) float64 {
	if total == 0 {
		return 0
	}
	return math.Round(float64(count)/float64(total)*1000) / 10
}
