package services

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/vncsmyrnk/relayer/internal/core/domain"
	"github.com/vncsmyrnk/relayer/internal/core/ports"
	"github.com/vncsmyrnk/relayer/internal/keylock"
)

const (
	DefaultVoterRateLimit  = 10
	DefaultVoterRateWindow = time.Hour
)

type voterGuard struct {
	repo   ports.VoterRepository
	locks  *keylock.Locker
	limit  int
	window time.Duration
	logger *slog.Logger
	now    func() time.Time
}

// NewVoterGuard admits at most limit votes per voter in any rolling window.
// Non-positive values fall back to 10 votes per hour.
func NewVoterGuard(repo ports.VoterRepository, limit int, window time.Duration, logger *slog.Logger) ports.VoterGuard {
	if limit <= 0 {
		limit = DefaultVoterRateLimit
	}
	if window <= 0 {
		window = DefaultVoterRateWindow
	}
	return &voterGuard{
		repo:   repo,
		locks:  keylock.New(),
		limit:  limit,
		window: window,
		logger: componentLogger(logger, "voter-guard"),
		now:    time.Now,
	}
}

func (g *voterGuard) Admit(ctx context.Context, address string) (ports.Admission, error) {
	if err := domain.ValidateAddress(address); err != nil {
		return nil, err
	}

	unlock := g.locks.Lock(address)
	now := g.now()
	rec, err := g.repo.Touch(ctx, address, now, now.Add(-g.window))
	if err != nil {
		unlock()
		return nil, fmt.Errorf("failed to load voter record: %w", err)
	}

	if len(rec.VoteTimestamps) >= g.limit {
		unlock()
		resetAt := rec.VoteTimestamps[0].Add(g.window)
		g.logger.Warn("voter rate limited", "voter", address, "reset_at", resetAt)
		return nil, &domain.RateLimitError{
			RetryAfter: resetAt.Sub(now),
			ResetAt:    resetAt,
		}
	}

	return &admission{
		guard:   g,
		address: address,
		record:  rec,
		unlock:  unlock,
	}, nil
}

func (g *voterGuard) Stats(ctx context.Context, address string) (*ports.VoterStats, error) {
	if err := domain.ValidateAddress(address); err != nil {
		return nil, err
	}

	unlock := g.locks.Lock(address)
	defer unlock()

	rec, err := g.repo.Get(ctx, address)
	if err != nil {
		return nil, fmt.Errorf("failed to load voter record: %w", err)
	}
	if rec == nil {
		return &ports.VoterStats{
			RateLimit: domain.RateLimitStatus{Limit: g.limit, RemainingVotes: g.limit},
		}, nil
	}
	rec.Prune(g.now().Add(-g.window))
	return &ports.VoterStats{
		Identity:  rec,
		RateLimit: rec.RateStatus(g.window, g.limit),
	}, nil
}

type admission struct {
	guard   *voterGuard
	address string
	record  *domain.VoterRecord
	unlock  func()

	mu        sync.Mutex
	committed bool
}

func (a *admission) Commit(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.committed {
		return nil
	}
	a.committed = true
	defer a.unlock()

	at := a.guard.now()
	if err := a.guard.repo.AppendVote(ctx, a.address, at); err != nil {
		return fmt.Errorf("failed to record vote timestamp: %w", err)
	}
	a.record.VoteTimestamps = append(a.record.VoteTimestamps, at)
	return nil
}

func (a *admission) Release() {
	a.unlock()
}

func (a *admission) Status() domain.RateLimitStatus {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.record.RateStatus(a.guard.window, a.guard.limit)
}
