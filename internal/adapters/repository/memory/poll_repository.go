package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/vncsmyrnk/relayer/internal/core/domain"
	"github.com/vncsmyrnk/relayer/internal/core/ports"
)

// pollEntry guards one poll. The repository map lock is only held to find or
// insert entries, so votes on different polls never contend.
type pollEntry struct {
	mu   sync.Mutex
	poll *domain.Poll
}

type pollRepository struct {
	mu    sync.RWMutex
	polls map[uuid.UUID]*pollEntry
}

func NewPollRepository() ports.PollRepository {
	return &pollRepository{
		polls: make(map[uuid.UUID]*pollEntry),
	}
}

func (r *pollRepository) Save(ctx context.Context, poll *domain.Poll) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.polls[poll.ID] = &pollEntry{poll: poll.Clone()}
	return nil
}

func (r *pollRepository) entry(id uuid.UUID) (*pollEntry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.polls[id]
	if !ok {
		return nil, domain.ErrPollNotFound
	}
	return e, nil
}

func (r *pollRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Poll, error) {
	e, err := r.entry(id)
	if err != nil {
		return nil, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.poll.Clone(), nil
}

func (r *pollRepository) GetAll(ctx context.Context) ([]*domain.Poll, error) {
	return r.collect(func(*domain.Poll) bool { return true }), nil
}

func (r *pollRepository) ListByCreator(ctx context.Context, creator string) ([]*domain.Poll, error) {
	return r.collect(func(p *domain.Poll) bool { return p.Creator == creator }), nil
}

func (r *pollRepository) collect(keep func(*domain.Poll) bool) []*domain.Poll {
	r.mu.RLock()
	entries := make([]*pollEntry, 0, len(r.polls))
	for _, e := range r.polls {
		entries = append(entries, e)
	}
	r.mu.RUnlock()

	polls := make([]*domain.Poll, 0, len(entries))
	for _, e := range entries {
		e.mu.Lock()
		if keep(e.poll) {
			polls = append(polls, e.poll.Clone())
		}
		e.mu.Unlock()
	}
	return polls
}

func (r *pollRepository) RecordVote(ctx context.Context, vote domain.Vote) error {
	e, err := r.entry(vote.PollID)
	if err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.poll.CheckVote(vote.Voter, vote.OptionIndex, vote.CastAt); err != nil {
		return err
	}
	e.poll.ApplyVote(vote.Voter, vote.OptionIndex)
	return nil
}

func (r *pollRepository) Close(ctx context.Context, id uuid.UUID, requester string, closedAt time.Time) (*domain.Poll, error) {
	e, err := r.entry(id)
	if err != nil {
		return nil, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.poll.Close(requester, closedAt); err != nil {
		return nil, err
	}
	return e.poll.Clone(), nil
}
