package domain

import "time"

const LamportsPerSOL = 1_000_000_000

type Network string

const (
	NetworkDevnet      Network = "devnet"
	NetworkTestnet     Network = "testnet"
	NetworkLocalnet    Network = "localnet"
	NetworkMainnetBeta Network = "mainnet-beta"
)

func (n Network) Valid() bool {
	switch n {
	case NetworkDevnet, NetworkTestnet, NetworkLocalnet, NetworkMainnetBeta:
		return true
	default:
		return false
	}
}

// SupportsAirdrop is false for production networks, where funds can only be
// added by hand.
func (n Network) SupportsAirdrop() bool {
	return n != NetworkMainnetBeta
}

type WalletHealth string

const (
	WalletHealthy  WalletHealth = "healthy"
	WalletWarning  WalletHealth = "warning"
	WalletCritical WalletHealth = "critical"
)

// ClassifyBalance has no hysteresis: crossing a threshold changes the health
// immediately in either direction.
func ClassifyBalance(balance, minimum, target uint64) WalletHealth {
	switch {
	case balance < minimum:
		return WalletCritical
	case balance < target:
		return WalletWarning
	default:
		return WalletHealthy
	}
}

type WalletState struct {
	PublicIdentity  string       `json:"publicKey"`
	Network         Network      `json:"network"`
	Balance         uint64       `json:"balance"`
	MinimumBalance  uint64       `json:"minimumBalance"`
	TargetBalance   uint64       `json:"targetBalance"`
	ReplenishAmount uint64       `json:"replenishAmount"`
	FundingAttempts int          `json:"fundingAttempts"`
	Health          WalletHealth `json:"health"`
	CheckedAt       time.Time    `json:"lastCheck"`
}

func LamportsToSOL(lamports uint64) float64 {
	return float64(lamports) / LamportsPerSOL
}
