package ports

import (
	"context"
	"time"

	"github.com/vncsmyrnk/relayer/internal/core/domain"
)

type VoterRepository interface {
	// Touch returns the record for address, registering it on first sight,
	// with vote timestamps at or before windowStart pruned.
	Touch(ctx context.Context, address string, now, windowStart time.Time) (*domain.VoterRecord, error)
	AppendVote(ctx context.Context, address string, at time.Time) error
	// Get returns nil for an address that was never seen.
	Get(ctx context.Context, address string) (*domain.VoterRecord, error)
}

// Admission holds the voter's lock between the policy checks and the moment
// the vote is recorded. Exactly one of Commit or Release takes effect.
type Admission interface {
	// Commit charges the rate window and releases the voter.
	Commit(ctx context.Context) error
	// Release frees the voter without charging. Safe after Commit.
	Release()
	Status() domain.RateLimitStatus
}

type VoterStats struct {
	Identity  *domain.VoterRecord    `json:"identity"`
	RateLimit domain.RateLimitStatus `json:"rateLimit"`
}

type VoterGuard interface {
	Admit(ctx context.Context, address string) (Admission, error)
	Stats(ctx context.Context, address string) (*VoterStats, error)
}
