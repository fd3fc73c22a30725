package ports

import (
	"context"

	"github.com/google/uuid"
	"github.com/vncsmyrnk/relayer/internal/core/domain"
)

// TransactionSubmitter never returns an error for a failed submission: the
// caller's operation is already committed, so failures come back as
// LocalOnly results.
type TransactionSubmitter interface {
	SubmitVote(ctx context.Context, voter string, pollID uuid.UUID, optionIndex int) domain.TransactionResult
	SubmitPollCreation(ctx context.Context, creator string, pollID uuid.UUID) domain.TransactionResult
	Status(ctx context.Context, signature string) (*domain.TxStatus, error)
}
