package ports

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/vncsmyrnk/relayer/internal/core/domain"
)

type VoteRequest struct {
	VoterPublicKey string
	PollID         string
	VoteChoice     *int
}

type VoteOutcome struct {
	Success        bool
	Message        string
	Transaction    domain.TransactionResult
	RemainingVotes int
	ResetTime      *time.Time
}

type CreateOutcome struct {
	PollID      uuid.UUID
	Poll        *domain.Poll
	Transaction domain.TransactionResult
}

type RelayService interface {
	HandleVote(ctx context.Context, req VoteRequest) (*VoteOutcome, error)
	HandleCreatePoll(ctx context.Context, input CreatePollInput) (*CreateOutcome, error)
}
