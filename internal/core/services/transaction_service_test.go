package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vncsmyrnk/relayer/internal/core/domain"
	"github.com/vncsmyrnk/relayer/internal/metrics"
	fakes "github.com/vncsmyrnk/relayer/internal/testutil"
)

func newTestSubmitter(custody *fakes.FakeCustody, m *metrics.Metrics) *transactionService {
	return NewTransactionService(custody, TransactionConfig{
		ReceiptLamports: 1000,
		ConfirmTimeout:  100 * time.Millisecond,
		PollInterval:    5 * time.Millisecond,
	}, m, nil).(*transactionService)
}

func TestSubmitVoteConfirmed(t *testing.T) {
	custody := fakes.NewFakeCustody(domain.NetworkDevnet, domain.LamportsPerSOL)
	m := metrics.New(nil)
	s := newTestSubmitter(custody, m)
	voter := fakes.Address(3)
	pollID := uuid.New()

	res := s.SubmitVote(context.Background(), voter, pollID, 1)

	assert.True(t, res.Confirmed)
	assert.False(t, res.LocalOnly)
	assert.Equal(t, "sig-1", res.Signature)
	require.Len(t, custody.Submitted(), 1)
	assert.Equal(t, domain.Receipt{
		Kind:      domain.TxKindVote,
		Recipient: voter,
		Lamports:  1000,
		PollID:    pollID,
	}, custody.Submitted()[0])
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Transactions.WithLabelValues("vote", "confirmed")))
}

func TestSubmitFailureIsLocalOnly(t *testing.T) {
	custody := fakes.NewFakeCustody(domain.NetworkDevnet, domain.LamportsPerSOL)
	custody.SubmitErr = errors.New("rpc unreachable")
	s := newTestSubmitter(custody, nil)

	res := s.SubmitPollCreation(context.Background(), fakes.Address(3), uuid.New())

	assert.False(t, res.Confirmed)
	assert.True(t, res.LocalOnly)
	assert.Empty(t, res.Signature)
	assert.Contains(t, res.Error, "rpc unreachable")
}

func TestConfirmationTimeoutIsLocalOnly(t *testing.T) {
	custody := fakes.NewFakeCustody(domain.NetworkDevnet, domain.LamportsPerSOL)
	custody.TxStatus = domain.TxStatusProcessed
	s := newTestSubmitter(custody, nil)

	start := time.Now()
	res := s.SubmitVote(context.Background(), fakes.Address(3), uuid.New(), 0)

	assert.Less(t, time.Since(start), 2*time.Second)
	assert.True(t, res.LocalOnly)
	assert.Equal(t, "sig-1", res.Signature)
	assert.Equal(t, errConfirmTimeout.Error(), res.Error)
}

func TestFailedTransactionIsLocalOnly(t *testing.T) {
	custody := fakes.NewFakeCustody(domain.NetworkDevnet, domain.LamportsPerSOL)
	custody.TxErr = "InsufficientFundsForFee"
	s := newTestSubmitter(custody, nil)

	res := s.SubmitVote(context.Background(), fakes.Address(3), uuid.New(), 0)

	assert.True(t, res.LocalOnly)
	assert.Contains(t, res.Error, "InsufficientFundsForFee")
}

func TestSubmitSurvivesCallerCancellation(t *testing.T) {
	custody := fakes.NewFakeCustody(domain.NetworkDevnet, domain.LamportsPerSOL)
	s := newTestSubmitter(custody, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	res := s.SubmitVote(ctx, fakes.Address(3), uuid.New(), 0)

	assert.True(t, res.Confirmed)
}

func TestStatusRequiresSignature(t *testing.T) {
	s := newTestSubmitter(fakes.NewFakeCustody(domain.NetworkDevnet, 0), nil)

	_, err := s.Status(context.Background(), "")
	assert.ErrorIs(t, err, domain.ErrInvalidTransactionSignature)

	status, err := s.Status(context.Background(), "abc")
	require.NoError(t, err)
	assert.Equal(t, "abc", status.Signature)
	assert.True(t, status.Confirmed())
}
