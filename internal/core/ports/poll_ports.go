package ports

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/vncsmyrnk/relayer/internal/core/domain"
)

// PollRepository owns poll and tally state. RecordVote and Close are atomic
// per poll; operations on different polls do not block each other. Reads
// return copies.
type PollRepository interface {
	Save(ctx context.Context, poll *domain.Poll) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Poll, error)
	GetAll(ctx context.Context) ([]*domain.Poll, error)
	ListByCreator(ctx context.Context, creator string) ([]*domain.Poll, error)
	RecordVote(ctx context.Context, vote domain.Vote) error
	Close(ctx context.Context, id uuid.UUID, requester string, closedAt time.Time) (*domain.Poll, error)
}

type CreatePollInput struct {
	Question    string
	Options     []string
	Creator     string
	IsAnonymous bool
	// ExpiryDate is the caller's ISO-8601 text; empty means no expiry.
	ExpiryDate string
}

type PollService interface {
	Create(ctx context.Context, input CreatePollInput) (*domain.Poll, error)
	GetPoll(ctx context.Context, id string) (*domain.Poll, error)
	ListPolls(ctx context.Context) ([]*domain.Poll, error)
	ListByCreator(ctx context.Context, creator string) ([]*domain.Poll, error)
	RecordVote(ctx context.Context, pollID uuid.UUID, voter string, optionIndex int) error
	Close(ctx context.Context, id string, requester string) (*domain.Poll, error)
	Results(ctx context.Context, id string) (*domain.PollResults, error)
}
