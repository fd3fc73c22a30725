package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/vncsmyrnk/relayer/internal/core/domain"
	"github.com/vncsmyrnk/relayer/internal/core/ports"
)

type pollService struct {
	repo   ports.PollRepository
	logger *slog.Logger
	now    func() time.Time
}

func NewPollService(repo ports.PollRepository, logger *slog.Logger) ports.PollService {
	return &pollService{
		repo:   repo,
		logger: componentLogger(logger, "polls"),
		now:    time.Now,
	}
}

func (s *pollService) Create(ctx context.Context, input ports.CreatePollInput) (*domain.Poll, error) {
	options := make([]string, len(input.Options))
	for i, opt := range input.Options {
		options[i] = domain.SanitizeText(opt)
	}
	expiry, expiryErr := domain.ParseExpiryDate(input.ExpiryDate)
	spec := domain.PollSpec{
		Question:    domain.SanitizeText(input.Question),
		Options:     options,
		Creator:     input.Creator,
		IsAnonymous: input.IsAnonymous,
		ExpiryDate:  expiry,
	}

	now := s.now()
	err := spec.Validate(now)
	if expiryErr != nil {
		err = appendProblem(err, "Invalid expiry date format")
	}
	if err != nil {
		return nil, err
	}

	poll := domain.NewPoll(uuid.New(), spec, now)
	if err := s.repo.Save(ctx, poll); err != nil {
		return nil, fmt.Errorf("failed to save poll: %w", err)
	}

	s.logger.Info("poll created", "poll_id", poll.ID, "creator", poll.Creator, "options", len(poll.Options))
	return poll, nil
}

func (s *pollService) GetPoll(ctx context.Context, id string) (*domain.Poll, error) {
	pollID, err := parsePollID(id)
	if err != nil {
		return nil, err
	}
	return s.repo.GetByID(ctx, pollID)
}

func (s *pollService) ListPolls(ctx context.Context) ([]*domain.Poll, error) {
	polls, err := s.repo.GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list polls: %w", err)
	}
	sortNewestFirst(polls)
	return polls, nil
}

func (s *pollService) ListByCreator(ctx context.Context, creator string) ([]*domain.Poll, error) {
	if err := domain.ValidateAddress(creator); err != nil {
		return nil, err
	}
	polls, err := s.repo.ListByCreator(ctx, creator)
	if err != nil {
		return nil, fmt.Errorf("failed to list polls by creator: %w", err)
	}
	sortNewestFirst(polls)
	return polls, nil
}

func (s *pollService) RecordVote(ctx context.Context, pollID uuid.UUID, voter string, optionIndex int) error {
	vote := domain.Vote{
		PollID:      pollID,
		Voter:       voter,
		OptionIndex: optionIndex,
		CastAt:      s.now(),
	}
	if err := s.repo.RecordVote(ctx, vote); err != nil {
		return err
	}
	s.logger.Info("vote recorded", "poll_id", pollID, "option", optionIndex, "voter", voter)
	return nil
}

func (s *pollService) Close(ctx context.Context, id string, requester string) (*domain.Poll, error) {
	pollID, err := parsePollID(id)
	if err != nil {
		return nil, err
	}
	poll, err := s.repo.Close(ctx, pollID, requester, s.now())
	if err != nil {
		return nil, err
	}
	s.logger.Info("poll closed", "poll_id", pollID, "by", requester)
	return poll, nil
}

func (s *pollService) Results(ctx context.Context, id string) (*domain.PollResults, error) {
	poll, err := s.GetPoll(ctx, id)
	if err != nil {
		return nil, err
	}
	results := poll.Results(s.now())
	return &results, nil
}

func parsePollID(id string) (uuid.UUID, error) {
	pollID, err := uuid.Parse(id)
	if err != nil {
		return uuid.Nil, domain.ErrInvalidPollID
	}
	return pollID, nil
}

// appendProblem adds msg to err's validation list, starting one when err is nil.
func appendProblem(err error, msg string) error {
	var verr *domain.ValidationError
	if errors.As(err, &verr) {
		verr.Errors = append(verr.Errors, msg)
		return verr
	}
	return &domain.ValidationError{Errors: []string{msg}}
}

func sortNewestFirst(polls []*domain.Poll) {
	sort.SliceStable(polls, func(i, j int) bool {
		return polls[i].CreatedAt.After(polls[j].CreatedAt)
	})
}
