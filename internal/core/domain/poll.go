package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	MinQuestionLength = 5
	MaxQuestionLength = 200
	MinOptions        = 2
	MaxOptions        = 10
	MaxOptionLength   = 100
)

// Poll is the authoritative record of a poll and its tally. Votes maps a voter
// address to the chosen option index; VoteCounts always agrees with it.
type Poll struct {
	ID          uuid.UUID
	Question    string
	Options     []string
	Creator     string
	Active      bool
	IsAnonymous bool
	ExpiryDate  *time.Time
	CreatedAt   time.Time
	ClosedAt    *time.Time
	Votes       map[string]int
	VoteCounts  []int
}

type PollSpec struct {
	Question    string
	Options     []string
	Creator     string
	IsAnonymous bool
	ExpiryDate  *time.Time
}

// PollView is the public shape of a poll. The votes map is never exposed.
type PollView struct {
	ID          uuid.UUID  `json:"id"`
	Question    string     `json:"question"`
	Options     []string   `json:"options"`
	Creator     string     `json:"creator"`
	IsActive    bool       `json:"isActive"`
	IsAnonymous bool       `json:"isAnonymous"`
	ExpiryDate  *time.Time `json:"expiryDate,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
	ClosedAt    *time.Time `json:"closedAt,omitempty"`
	VoteCounts  []int      `json:"voteCounts"`
	TotalVotes  int        `json:"totalVotes"`
}

var expiryLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02",
}

// ParseExpiryDate accepts RFC 3339 plus the zone-less ISO-8601 date and
// date-time forms, which are read as UTC. An empty string means no expiry.
func ParseExpiryDate(s string) (*time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	for _, layout := range expiryLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return &t, nil
		}
	}
	return nil, ErrInvalidExpiryDate
}

// Validate reports every violated constraint at once.
func (s PollSpec) Validate(now time.Time) error {
	var errs []string

	questionLen := len([]rune(s.Question))
	if questionLen < MinQuestionLength {
		errs = append(errs, "Question must be at least 5 characters long")
	}
	if questionLen > MaxQuestionLength {
		errs = append(errs, "Question must be at most 200 characters long")
	}

	if len(s.Options) < MinOptions {
		errs = append(errs, "Poll must have at least 2 options")
	}
	if len(s.Options) > MaxOptions {
		errs = append(errs, "Poll cannot have more than 10 options")
	}

	seen := make(map[string]struct{}, len(s.Options))
	duplicate := false
	for i, opt := range s.Options {
		optLen := len([]rune(opt))
		if optLen == 0 {
			errs = append(errs, fmt.Sprintf("Option %d must not be empty", i+1))
			continue
		}
		if optLen > MaxOptionLength {
			errs = append(errs, fmt.Sprintf("Option %d must be at most 100 characters long", i+1))
		}
		key := strings.ToLower(opt)
		if _, ok := seen[key]; ok {
			duplicate = true
		}
		seen[key] = struct{}{}
	}
	if duplicate {
		errs = append(errs, "Options must be unique")
	}

	if err := ValidateAddress(s.Creator); err != nil {
		errs = append(errs, "Invalid creator wallet address")
	}

	if s.ExpiryDate != nil && !s.ExpiryDate.After(now) {
		errs = append(errs, "Expiry date must be in the future")
	}

	if len(errs) > 0 {
		return &ValidationError{Errors: errs}
	}
	return nil
}

func NewPoll(id uuid.UUID, spec PollSpec, now time.Time) *Poll {
	options := make([]string, len(spec.Options))
	copy(options, spec.Options)
	return &Poll{
		ID:          id,
		Question:    spec.Question,
		Options:     options,
		Creator:     spec.Creator,
		Active:      true,
		IsAnonymous: spec.IsAnonymous,
		ExpiryDate:  spec.ExpiryDate,
		CreatedAt:   now,
		Votes:       make(map[string]int),
		VoteCounts:  make([]int, len(options)),
	}
}

func (p *Poll) Expired(now time.Time) bool {
	return p.ExpiryDate != nil && now.After(*p.ExpiryDate)
}

// IsActive is derived: an expired poll reads as closed without anyone having
// to write the flag.
func (p *Poll) IsActive(now time.Time) bool {
	return p.Active && !p.Expired(now)
}

// EffectiveClosedAt is the explicit close time, or the expiry date for a poll
// that lapsed while still open.
func (p *Poll) EffectiveClosedAt(now time.Time) *time.Time {
	if p.ClosedAt != nil {
		t := *p.ClosedAt
		return &t
	}
	if p.Active && p.Expired(now) {
		t := *p.ExpiryDate
		return &t
	}
	return nil
}

func (p *Poll) HasVoted(voter string) bool {
	_, ok := p.Votes[voter]
	return ok
}

// CheckVote runs the admission checks in order: closed, expired, option
// bounds, duplicate voter.
func (p *Poll) CheckVote(voter string, option int, now time.Time) error {
	if !p.Active {
		return ErrPollClosed
	}
	if p.Expired(now) {
		return ErrPollExpired
	}
	if option < 0 || option >= len(p.Options) {
		return ErrInvalidOption
	}
	if p.HasVoted(voter) {
		return ErrAlreadyVoted
	}
	return nil
}

// ApplyVote must only follow a successful CheckVote under the same lock.
func (p *Poll) ApplyVote(voter string, option int) {
	if p.Votes == nil {
		p.Votes = make(map[string]int)
	}
	p.Votes[voter] = option
	p.VoteCounts[option]++
}

// Close is idempotent for the creator; the first close time is kept.
func (p *Poll) Close(requester string, now time.Time) error {
	if requester != p.Creator {
		return ErrUnauthorized
	}
	if !p.Active {
		return nil
	}
	p.Active = false
	closedAt := now
	p.ClosedAt = &closedAt
	return nil
}

func (p *Poll) TotalVotes() int {
	total := 0
	for _, c := range p.VoteCounts {
		total += c
	}
	return total
}

func (p *Poll) Clone() *Poll {
	c := *p
	c.Options = append([]string(nil), p.Options...)
	c.VoteCounts = append([]int(nil), p.VoteCounts...)
	c.Votes = make(map[string]int, len(p.Votes))
	for k, v := range p.Votes {
		c.Votes[k] = v
	}
	if p.ExpiryDate != nil {
		t := *p.ExpiryDate
		c.ExpiryDate = &t
	}
	if p.ClosedAt != nil {
		t := *p.ClosedAt
		c.ClosedAt = &t
	}
	return &c
}

func (p *Poll) View(now time.Time) PollView {
	return PollView{
		ID:          p.ID,
		Question:    p.Question,
		Options:     append([]string(nil), p.Options...),
		Creator:     p.Creator,
		IsActive:    p.IsActive(now),
		IsAnonymous: p.IsAnonymous,
		ExpiryDate:  p.ExpiryDate,
		CreatedAt:   p.CreatedAt,
		ClosedAt:    p.EffectiveClosedAt(now),
		VoteCounts:  append([]int(nil), p.VoteCounts...),
		TotalVotes:  p.TotalVotes(),
	}
}

// SanitizeText strips markup and quote characters and trims whitespace.
func SanitizeText(s string) string {
	s = strings.Map(func(r rune) rune {
		switch r {
		case '<', '>', '\'', '"':
			return -1
		}
		return r
	}, s)
	return strings.TrimSpace(s)
}
