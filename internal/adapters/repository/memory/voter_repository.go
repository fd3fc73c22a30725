package memory

import (
	"context"
	"sync"
	"time"

	"github.com/vncsmyrnk/relayer/internal/core/domain"
	"github.com/vncsmyrnk/relayer/internal/core/ports"
)

type voterRepository struct {
	mu     sync.Mutex
	voters map[string]*domain.VoterRecord
}

func NewVoterRepository() ports.VoterRepository {
	return &voterRepository{
		voters: make(map[string]*domain.VoterRecord),
	}
}

func (r *voterRepository) Touch(ctx context.Context, address string, now, windowStart time.Time) (*domain.VoterRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.voters[address]
	if !ok {
		rec = domain.NewVoterRecord(address, now)
		r.voters[address] = rec
	}
	rec.Prune(windowStart)
	return rec.Clone(), nil
}

func (r *voterRepository) AppendVote(ctx context.Context, address string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.voters[address]
	if !ok {
		rec = domain.NewVoterRecord(address, at)
		r.voters[address] = rec
	}
	rec.VoteTimestamps = append(rec.VoteTimestamps, at)
	return nil
}

func (r *voterRepository) Get(ctx context.Context, address string) (*domain.VoterRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.voters[address]
	if !ok {
		return nil, nil
	}
	return rec.Clone(), nil
}
