package ports

import (
	"context"
	"time"

	"github.com/vncsmyrnk/relayer/internal/core/domain"
)

// WalletCustody is the only holder of the relayer's signing key.
type WalletCustody interface {
	Address() string
	Network() domain.Network
	// Balance is read from the network on every call.
	Balance(ctx context.Context) (uint64, error)
	// RequestFunds fails with domain.ErrReplenishUnavailable on production networks.
	RequestFunds(ctx context.Context, lamports uint64) (string, error)
	// Submit builds, signs and sends the receipt transfer and returns its signature.
	Submit(ctx context.Context, receipt domain.Receipt) (string, error)
	Status(ctx context.Context, signature string) (*domain.TxStatus, error)
}

type FundingStatus struct {
	IsMonitoring      bool                `json:"isMonitoring"`
	CurrentBalance    uint64              `json:"currentBalance"`
	CurrentBalanceSOL float64             `json:"currentBalanceSol"`
	MinimumBalance    uint64              `json:"minimumBalance"`
	TargetBalance     uint64              `json:"targetBalance"`
	ReplenishAmount   uint64              `json:"replenishAmount"`
	Health            domain.WalletHealth `json:"health"`
	IsLow             bool                `json:"isLow"`
	IsWarning         bool                `json:"isWarning"`
	Network           domain.Network      `json:"network"`
	WalletAddress     string              `json:"walletAddress"`
	FundingAttempts   int                 `json:"fundingAttempts"`
	LastCheck         *time.Time          `json:"lastCheck,omitempty"`
}

type BalanceMonitor interface {
	Start(ctx context.Context)
	Stop()
	// Check samples the balance once and acts on it like a loop tick.
	Check(ctx context.Context) (domain.WalletState, error)
	// ForceFund shares the attempt budget with the background loop.
	ForceFund(ctx context.Context, lamports uint64) (string, error)
	Status(ctx context.Context) (*FundingStatus, error)
}
