package services

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/vncsmyrnk/relayer/internal/core/domain"
	"github.com/vncsmyrnk/relayer/internal/core/ports"
	"github.com/vncsmyrnk/relayer/internal/metrics"
)

type relayService struct {
	polls     ports.PollService
	guard     ports.VoterGuard
	submitter ports.TransactionSubmitter
	metrics   *metrics.Metrics
	logger    *slog.Logger
}

func NewRelayService(polls ports.PollService, guard ports.VoterGuard, submitter ports.TransactionSubmitter, m *metrics.Metrics, logger *slog.Logger) ports.RelayService {
	if m == nil {
		m = metrics.New(nil)
	}
	return &relayService{
		polls:     polls,
		guard:     guard,
		submitter: submitter,
		metrics:   m,
		logger:    componentLogger(logger, "relay"),
	}
}

// HandleVote runs admission, the local commit and then the sponsored
// receipt. Once the poll records the vote the request succeeds regardless of
// what happens on chain.
func (s *relayService) HandleVote(ctx context.Context, req ports.VoteRequest) (*ports.VoteOutcome, error) {
	pollID, err := validateVoteRequest(req)
	if err != nil {
		s.metrics.VotesTotal.WithLabelValues("invalid").Inc()
		return nil, err
	}

	adm, err := s.guard.Admit(ctx, req.VoterPublicKey)
	if err != nil {
		s.metrics.VotesTotal.WithLabelValues(voteRejection(err)).Inc()
		return nil, err
	}
	defer adm.Release()

	if err := s.polls.RecordVote(ctx, pollID, req.VoterPublicKey, *req.VoteChoice); err != nil {
		s.metrics.VotesTotal.WithLabelValues(voteRejection(err)).Inc()
		return nil, err
	}

	if err := adm.Commit(ctx); err != nil {
		s.logger.Error("vote recorded but rate window not charged", "voter", req.VoterPublicKey, "poll_id", pollID, "error", err)
	}
	status := adm.Status()
	adm.Release()

	tx := s.submitter.SubmitVote(ctx, req.VoterPublicKey, pollID, *req.VoteChoice)

	message := "Vote submitted successfully"
	outcome := "confirmed"
	if tx.LocalOnly {
		message = "Vote recorded locally, blockchain confirmation pending"
		outcome = "local_only"
	}
	s.metrics.VotesTotal.WithLabelValues(outcome).Inc()

	return &ports.VoteOutcome{
		Success:        true,
		Message:        message,
		Transaction:    tx,
		RemainingVotes: status.RemainingVotes,
		ResetTime:      status.ResetTime,
	}, nil
}

func (s *relayService) HandleCreatePoll(ctx context.Context, input ports.CreatePollInput) (*ports.CreateOutcome, error) {
	poll, err := s.polls.Create(ctx, input)
	if err != nil {
		return nil, err
	}
	s.metrics.PollsCreated.Inc()

	tx := s.submitter.SubmitPollCreation(ctx, poll.Creator, poll.ID)
	return &ports.CreateOutcome{
		PollID:      poll.ID,
		Poll:        poll,
		Transaction: tx,
	}, nil
}

func validateVoteRequest(req ports.VoteRequest) (uuid.UUID, error) {
	var problems []string
	// Address format is the guard's call; it reports ErrInvalidIdentity.
	if strings.TrimSpace(req.VoterPublicKey) == "" {
		problems = append(problems, "Voter address is required")
	}
	pollID, err := uuid.Parse(req.PollID)
	if err != nil {
		problems = append(problems, "Valid poll ID is required")
	}
	if req.VoteChoice == nil || *req.VoteChoice < 0 {
		problems = append(problems, "Valid option index is required")
	}
	if len(problems) > 0 {
		return uuid.Nil, &domain.ValidationError{Errors: problems}
	}
	return pollID, nil
}

func voteRejection(err error) string {
	switch {
	case errors.Is(err, domain.ErrRateLimited):
		return "rate_limited"
	case errors.Is(err, domain.ErrAlreadyVoted):
		return "already_voted"
	case errors.Is(err, domain.ErrPollNotFound):
		return "not_found"
	case errors.Is(err, domain.ErrPollClosed), errors.Is(err, domain.ErrPollExpired):
		return "inactive"
	case errors.Is(err, domain.ErrInvalidOption), errors.Is(err, domain.ErrInvalidIdentity):
		return "invalid"
	default:
		return "error"
	}
}
