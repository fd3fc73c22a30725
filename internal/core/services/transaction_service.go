package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/vncsmyrnk/relayer/internal/core/domain"
	"github.com/vncsmyrnk/relayer/internal/core/ports"
	"github.com/vncsmyrnk/relayer/internal/metrics"
)

type TransactionConfig struct {
	// ReceiptLamports is transferred to the voter or creator as evidence.
	ReceiptLamports uint64
	ConfirmTimeout  time.Duration
	PollInterval    time.Duration
}

func (c TransactionConfig) withDefaults() TransactionConfig {
	if c.ReceiptLamports == 0 {
		c.ReceiptLamports = 1000
	}
	if c.ConfirmTimeout <= 0 {
		c.ConfirmTimeout = 30 * time.Second
	}
	if c.PollInterval <= 0 {
		c.PollInterval = 500 * time.Millisecond
	}
	return c
}

var errConfirmTimeout = errors.New("confirmation timed out")

type transactionService struct {
	custody ports.WalletCustody
	cfg     TransactionConfig
	metrics *metrics.Metrics
	logger  *slog.Logger
}

func NewTransactionService(custody ports.WalletCustody, cfg TransactionConfig, m *metrics.Metrics, logger *slog.Logger) ports.TransactionSubmitter {
	if m == nil {
		m = metrics.New(nil)
	}
	return &transactionService{
		custody: custody,
		cfg:     cfg.withDefaults(),
		metrics: m,
		logger:  componentLogger(logger, "transactions"),
	}
}

func (s *transactionService) SubmitVote(ctx context.Context, voter string, pollID uuid.UUID, optionIndex int) domain.TransactionResult {
	return s.submit(ctx, domain.Receipt{
		Kind:      domain.TxKindVote,
		Recipient: voter,
		Lamports:  s.cfg.ReceiptLamports,
		PollID:    pollID,
	}, "option", optionIndex)
}

func (s *transactionService) SubmitPollCreation(ctx context.Context, creator string, pollID uuid.UUID) domain.TransactionResult {
	return s.submit(ctx, domain.Receipt{
		Kind:      domain.TxKindPollCreation,
		Recipient: creator,
		Lamports:  s.cfg.ReceiptLamports,
		PollID:    pollID,
	})
}

func (s *transactionService) Status(ctx context.Context, signature string) (*domain.TxStatus, error) {
	if signature == "" {
		return nil, domain.ErrInvalidTransactionSignature
	}
	status, err := s.custody.Status(ctx, signature)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch transaction status: %w", err)
	}
	return status, nil
}

// submit outlives the caller's context: the local operation is already
// committed, so a disconnecting client must not abandon the receipt.
func (s *transactionService) submit(ctx context.Context, receipt domain.Receipt, attrs ...any) domain.TransactionResult {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.cfg.ConfirmTimeout)
	defer cancel()

	logger := s.logger.With("kind", receipt.Kind, "poll_id", receipt.PollID, "recipient", receipt.Recipient).With(attrs...)

	sig, err := s.custody.Submit(ctx, receipt)
	if err != nil {
		logger.Warn("transaction submission failed, keeping local record", "error", err)
		s.record(receipt.Kind, "submit_failed")
		return domain.TransactionResult{LocalOnly: true, Error: err.Error()}
	}

	if err := s.awaitConfirmation(ctx, sig); err != nil {
		logger.Warn("transaction not confirmed, keeping local record", "signature", sig, "error", err)
		s.record(receipt.Kind, "unconfirmed")
		return domain.TransactionResult{Signature: sig, LocalOnly: true, Error: err.Error()}
	}

	logger.Info("transaction confirmed", "signature", sig)
	s.record(receipt.Kind, "confirmed")
	return domain.TransactionResult{Signature: sig, Confirmed: true}
}

func (s *transactionService) awaitConfirmation(ctx context.Context, sig string) error {
	ticker := time.NewTicker(s.cfg.PollInterval)
	defer ticker.Stop()

	for {
		status, err := s.custody.Status(ctx, sig)
		switch {
		case err != nil:
			s.logger.Debug("status lookup failed, retrying", "signature", sig, "error", err)
		case status.Failed():
			return fmt.Errorf("transaction failed: %s", status.Err)
		case status.Confirmed():
			return nil
		}

		select {
		case <-ctx.Done():
			return errConfirmTimeout
		case <-ticker.C:
		}
	}
}

func (s *transactionService) record(kind domain.TxKind, result string) {
	s.metrics.Transactions.WithLabelValues(string(kind), result).Inc()
}
