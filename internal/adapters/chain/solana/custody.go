// Package solana holds the relayer's custodial wallet on a Solana cluster.
package solana

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/system"
	"github.com/gagliardetto/solana-go/rpc"

	"github.com/vncsmyrnk/relayer/internal/core/domain"
	"github.com/vncsmyrnk/relayer/internal/core/ports"
)

const privateKeyLength = 64

// rpcClient is the subset of *rpc.Client the custody uses.
type rpcClient interface {
	GetBalance(ctx context.Context, account solana.PublicKey, commitment rpc.CommitmentType) (*rpc.GetBalanceResult, error)
	RequestAirdrop(ctx context.Context, account solana.PublicKey, lamports uint64, commitment rpc.CommitmentType) (solana.Signature, error)
	GetLatestBlockhash(ctx context.Context, commitment rpc.CommitmentType) (*rpc.GetLatestBlockhashResult, error)
	SendTransactionWithOpts(ctx context.Context, tx *solana.Transaction, opts rpc.TransactionOpts) (solana.Signature, error)
	GetSignatureStatuses(ctx context.Context, searchTransactionHistory bool, sigs ...solana.Signature) (*rpc.GetSignatureStatusesResult, error)
}

type Config struct {
	Network domain.Network
	// RPCURL overrides the public endpoint of Network.
	RPCURL string
	// PrivateKey is the base58 encoded 64 byte secret key. When empty an
	// ephemeral key is generated, except on mainnet-beta.
	PrivateKey string
}

type Custody struct {
	client  rpcClient
	key     solana.PrivateKey
	pub     solana.PublicKey
	network domain.Network
	rpcURL  string
	logger  *slog.Logger
}

var _ ports.WalletCustody = (*Custody)(nil)

// DefaultRPCURL is the public endpoint for network.
func DefaultRPCURL(network domain.Network) string {
	switch network {
	case domain.NetworkMainnetBeta:
		return rpc.MainNetBeta_RPC
	case domain.NetworkTestnet:
		return rpc.TestNet_RPC
	case domain.NetworkLocalnet:
		return rpc.LocalNet_RPC
	default:
		return rpc.DevNet_RPC
	}
}

func NewCustody(cfg Config, logger *slog.Logger) (*Custody, error) {
	if !cfg.Network.Valid() {
		return nil, fmt.Errorf("unknown network %q", cfg.Network)
	}
	url := cfg.RPCURL
	if url == "" {
		url = DefaultRPCURL(cfg.Network)
	}
	return newCustody(rpc.New(url), url, cfg, logger)
}

func newCustody(client rpcClient, url string, cfg Config, logger *slog.Logger) (*Custody, error) {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "custody")

	key, err := loadKey(cfg, logger)
	if err != nil {
		return nil, err
	}

	return &Custody{
		client:  client,
		key:     key,
		pub:     key.PublicKey(),
		network: cfg.Network,
		rpcURL:  url,
		logger:  logger,
	}, nil
}

func loadKey(cfg Config, logger *slog.Logger) (solana.PrivateKey, error) {
	if cfg.PrivateKey == "" {
		if cfg.Network == domain.NetworkMainnetBeta {
			return nil, domain.ErrMissingCustodyKey
		}
		key, err := solana.NewRandomPrivateKey()
		if err != nil {
			return nil, fmt.Errorf("failed to generate custody key: %w", err)
		}
		logger.Warn("no custody key configured, generated an ephemeral wallet",
			"public_key", key.PublicKey().String(),
			"network", cfg.Network,
		)
		return key, nil
	}

	key, err := solana.PrivateKeyFromBase58(cfg.PrivateKey)
	if err != nil {
		return nil, fmt.Errorf("failed to decode custody key: %w", err)
	}
	if len(key) != privateKeyLength {
		return nil, fmt.Errorf("custody key must be %d bytes, got %d", privateKeyLength, len(key))
	}
	return key, nil
}

func (c *Custody) Address() string {
	return c.pub.String()
}

func (c *Custody) Network() domain.Network {
	return c.network
}

func (c *Custody) RPCURL() string {
	return c.rpcURL
}

func (c *Custody) Balance(ctx context.Context) (uint64, error) {
	res, err := c.client.GetBalance(ctx, c.pub, rpc.CommitmentConfirmed)
	if err != nil {
		return 0, fmt.Errorf("failed to get balance: %w", err)
	}
	return res.Value, nil
}

func (c *Custody) RequestFunds(ctx context.Context, lamports uint64) (string, error) {
	if !c.network.SupportsAirdrop() {
		return "", domain.ErrReplenishUnavailable
	}
	sig, err := c.client.RequestAirdrop(ctx, c.pub, lamports, rpc.CommitmentConfirmed)
	if err != nil {
		return "", fmt.Errorf("failed to request airdrop: %w", err)
	}
	c.logger.Info("airdrop requested", "signature", sig.String(), "lamports", lamports)
	return sig.String(), nil
}

// Submit sends the receipt as a system transfer paid and signed by the
// custody wallet.
func (c *Custody) Submit(ctx context.Context, receipt domain.Receipt) (string, error) {
	recipient, err := solana.PublicKeyFromBase58(receipt.Recipient)
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrInvalidIdentity, err)
	}

	latest, err := c.client.GetLatestBlockhash(ctx, rpc.CommitmentFinalized)
	if err != nil {
		return "", fmt.Errorf("failed to get latest blockhash: %w", err)
	}
	if latest == nil || latest.Value == nil {
		return "", errors.New("empty latest blockhash response")
	}

	tx, err := solana.NewTransaction(
		[]solana.Instruction{
			system.NewTransferInstruction(receipt.Lamports, c.pub, recipient).Build(),
		},
		latest.Value.Blockhash,
		solana.TransactionPayer(c.pub),
	)
	if err != nil {
		return "", fmt.Errorf("failed to build transaction: %w", err)
	}

	if _, err := tx.Sign(func(key solana.PublicKey) *solana.PrivateKey {
		if key.Equals(c.pub) {
			return &c.key
		}
		return nil
	}); err != nil {
		return "", fmt.Errorf("failed to sign transaction: %w", err)
	}

	sig, err := c.client.SendTransactionWithOpts(ctx, tx, rpc.TransactionOpts{
		PreflightCommitment: rpc.CommitmentConfirmed,
	})
	if err != nil {
		return "", fmt.Errorf("failed to send transaction: %w", err)
	}

	c.logger.Debug("transaction sent",
		"signature", sig.String(),
		"kind", receipt.Kind,
		"poll_id", receipt.PollID,
		"recipient", receipt.Recipient,
	)
	return sig.String(), nil
}

func (c *Custody) Status(ctx context.Context, signature string) (*domain.TxStatus, error) {
	sig, err := solana.SignatureFromBase58(signature)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidTransactionSignature, err)
	}

	res, err := c.client.GetSignatureStatuses(ctx, true, sig)
	if err != nil {
		return nil, fmt.Errorf("failed to get signature status: %w", err)
	}

	status := &domain.TxStatus{Signature: signature, Status: domain.TxStatusUnknown}
	if res == nil || len(res.Value) == 0 || res.Value[0] == nil {
		return status, nil
	}

	v := res.Value[0]
	status.Slot = v.Slot
	if v.Err != nil {
		status.Err = fmt.Sprint(v.Err)
	}
	switch v.ConfirmationStatus {
	case rpc.ConfirmationStatusProcessed:
		status.Status = domain.TxStatusProcessed
	case rpc.ConfirmationStatusConfirmed:
		status.Status = domain.TxStatusConfirmed
	case rpc.ConfirmationStatusFinalized:
		status.Status = domain.TxStatusFinalized
	}
	return status, nil
}
