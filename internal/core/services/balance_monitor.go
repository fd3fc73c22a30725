package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/vncsmyrnk/relayer/internal/core/domain"
	"github.com/vncsmyrnk/relayer/internal/core/ports"
	"github.com/vncsmyrnk/relayer/internal/metrics"
)

type MonitorConfig struct {
	MinimumBalance       uint64
	TargetBalance        uint64
	ReplenishAmount      uint64
	Interval             time.Duration
	MaxFundingAttempts   int
	FundingWindow        time.Duration
	NotificationCooldown time.Duration
}

func (c MonitorConfig) withDefaults() MonitorConfig {
	if c.MinimumBalance == 0 {
		c.MinimumBalance = domain.LamportsPerSOL / 10
	}
	if c.TargetBalance == 0 {
		c.TargetBalance = domain.LamportsPerSOL
	}
	if c.ReplenishAmount == 0 {
		c.ReplenishAmount = 2 * domain.LamportsPerSOL
	}
	if c.Interval <= 0 {
		c.Interval = 30 * time.Second
	}
	if c.MaxFundingAttempts <= 0 {
		c.MaxFundingAttempts = 3
	}
	if c.FundingWindow <= 0 {
		c.FundingWindow = time.Hour
	}
	if c.NotificationCooldown <= 0 {
		c.NotificationCooldown = 5 * time.Minute
	}
	return c
}

type balanceMonitor struct {
	custody ports.WalletCustody
	cfg     MonitorConfig
	metrics *metrics.Metrics
	logger  *slog.Logger
	now     func() time.Time

	mu sync.Mutex
	// attempts holds replenishment timestamps per wallet inside the funding window.
	attempts   map[string][]time.Time
	lastNotice map[domain.WalletHealth]time.Time
	lastCheck  *time.Time
	cancel     context.CancelFunc
	done       chan struct{}
}

func NewBalanceMonitor(custody ports.WalletCustody, cfg MonitorConfig, m *metrics.Metrics, logger *slog.Logger) ports.BalanceMonitor {
	if m == nil {
		m = metrics.New(nil)
	}
	return &balanceMonitor{
		custody:    custody,
		cfg:        cfg.withDefaults(),
		metrics:    m,
		logger:     componentLogger(logger, "balance-monitor"),
		now:        time.Now,
		attempts:   make(map[string][]time.Time),
		lastNotice: make(map[domain.WalletHealth]time.Time),
	}
}

// Start launches the background loop. The first check runs immediately.
func (m *balanceMonitor) Start(ctx context.Context) {
	m.mu.Lock()
	if m.cancel != nil {
		m.mu.Unlock()
		m.logger.Warn("balance monitor already running")
		return
	}
	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	m.cancel = cancel
	m.done = done
	m.mu.Unlock()

	m.logger.Info("balance monitor started",
		"wallet", m.custody.Address(),
		"network", m.custody.Network(),
		"interval", m.cfg.Interval,
		"minimum_sol", domain.LamportsToSOL(m.cfg.MinimumBalance),
		"target_sol", domain.LamportsToSOL(m.cfg.TargetBalance),
	)

	go m.run(ctx, done)
}

func (m *balanceMonitor) run(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(m.cfg.Interval)
	defer ticker.Stop()

	for {
		if _, err := m.Check(ctx); err != nil && ctx.Err() == nil {
			m.logger.Error("balance check failed", "error", err)
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// Stop halts the loop and waits for it to exit. Calling Stop on a monitor
// that is not running does nothing.
func (m *balanceMonitor) Stop() {
	m.mu.Lock()
	cancel, done := m.cancel, m.done
	m.cancel, m.done = nil, nil
	m.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
	m.logger.Info("balance monitor stopped")
}

func (m *balanceMonitor) Check(ctx context.Context) (domain.WalletState, error) {
	balance, err := m.custody.Balance(ctx)
	if err != nil {
		return domain.WalletState{}, fmt.Errorf("failed to read wallet balance: %w", err)
	}

	now := m.now()
	health := domain.ClassifyBalance(balance, m.cfg.MinimumBalance, m.cfg.TargetBalance)
	m.metrics.WalletBalance.Set(float64(balance))
	m.metrics.SetWalletHealth(health)

	m.mu.Lock()
	m.lastCheck = &now
	m.mu.Unlock()

	switch health {
	case domain.WalletCritical:
		m.replenish(ctx, balance, now)
	case domain.WalletWarning:
		if m.shouldNotify(domain.WalletWarning, now) {
			m.logger.Warn("wallet balance below target",
				"balance_sol", domain.LamportsToSOL(balance),
				"target_sol", domain.LamportsToSOL(m.cfg.TargetBalance),
			)
		}
	}

	return m.state(balance, health, now), nil
}

func (m *balanceMonitor) replenish(ctx context.Context, balance uint64, now time.Time) {
	if !m.reserveAttempt(now) {
		m.metrics.FundingAttempts.WithLabelValues("capped").Inc()
		if m.shouldNotify(domain.WalletCritical, now) {
			m.logger.Error("wallet balance critical and funding attempts exhausted",
				"balance_sol", domain.LamportsToSOL(balance),
				"max_attempts", m.cfg.MaxFundingAttempts,
				"window", m.cfg.FundingWindow,
			)
		}
		return
	}

	m.logger.Warn("wallet balance critical, requesting funds",
		"balance_sol", domain.LamportsToSOL(balance),
		"minimum_sol", domain.LamportsToSOL(m.cfg.MinimumBalance),
		"amount_sol", domain.LamportsToSOL(m.cfg.ReplenishAmount),
	)

	sig, err := m.custody.RequestFunds(ctx, m.cfg.ReplenishAmount)
	switch {
	case errors.Is(err, domain.ErrReplenishUnavailable):
		m.metrics.FundingAttempts.WithLabelValues("unavailable").Inc()
		m.logger.Error("wallet balance critical, manual funding required",
			"wallet", m.custody.Address(),
			"network", m.custody.Network(),
			"balance_sol", domain.LamportsToSOL(balance),
		)
	case err != nil:
		m.metrics.FundingAttempts.WithLabelValues("failed").Inc()
		m.logger.Error("automatic funding failed", "error", err)
	default:
		m.metrics.FundingAttempts.WithLabelValues("funded").Inc()
		m.logger.Info("wallet funded", "signature", sig, "amount_sol", domain.LamportsToSOL(m.cfg.ReplenishAmount))
	}
}

func (m *balanceMonitor) ForceFund(ctx context.Context, lamports uint64) (string, error) {
	if !m.custody.Network().SupportsAirdrop() {
		return "", domain.ErrReplenishUnavailable
	}
	if !m.reserveAttempt(m.now()) {
		m.metrics.FundingAttempts.WithLabelValues("capped").Inc()
		return "", domain.ErrFundingAttemptsExceeded
	}

	sig, err := m.custody.RequestFunds(ctx, lamports)
	if err != nil {
		m.metrics.FundingAttempts.WithLabelValues("failed").Inc()
		return "", fmt.Errorf("failed to request funds: %w", err)
	}
	m.metrics.FundingAttempts.WithLabelValues("funded").Inc()
	m.logger.Info("manual funding completed", "signature", sig, "amount_sol", domain.LamportsToSOL(lamports))
	return sig, nil
}

func (m *balanceMonitor) Status(ctx context.Context) (*ports.FundingStatus, error) {
	balance, err := m.custody.Balance(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read wallet balance: %w", err)
	}
	health := domain.ClassifyBalance(balance, m.cfg.MinimumBalance, m.cfg.TargetBalance)

	m.mu.Lock()
	running := m.cancel != nil
	attempts := m.attemptsInWindow(m.now())
	var lastCheck *time.Time
	if m.lastCheck != nil {
		t := *m.lastCheck
		lastCheck = &t
	}
	m.mu.Unlock()

	return &ports.FundingStatus{
		IsMonitoring:      running,
		CurrentBalance:    balance,
		CurrentBalanceSOL: domain.LamportsToSOL(balance),
		MinimumBalance:    m.cfg.MinimumBalance,
		TargetBalance:     m.cfg.TargetBalance,
		ReplenishAmount:   m.cfg.ReplenishAmount,
		Health:            health,
		IsLow:             health == domain.WalletCritical,
		IsWarning:         health == domain.WalletWarning,
		Network:           m.custody.Network(),
		WalletAddress:     m.custody.Address(),
		FundingAttempts:   attempts,
		LastCheck:         lastCheck,
	}, nil
}

// reserveAttempt records a replenishment attempt unless the window is full.
func (m *balanceMonitor) reserveAttempt(now time.Time) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.attemptsInWindow(now) >= m.cfg.MaxFundingAttempts {
		return false
	}
	wallet := m.custody.Address()
	m.attempts[wallet] = append(m.attempts[wallet], now)
	return true
}

// attemptsInWindow prunes and counts. Callers hold m.mu.
func (m *balanceMonitor) attemptsInWindow(now time.Time) int {
	wallet := m.custody.Address()
	windowStart := now.Add(-m.cfg.FundingWindow)
	kept := m.attempts[wallet][:0]
	for _, ts := range m.attempts[wallet] {
		if ts.After(windowStart) {
			kept = append(kept, ts)
		}
	}
	m.attempts[wallet] = kept
	return len(kept)
}

func (m *balanceMonitor) shouldNotify(health domain.WalletHealth, now time.Time) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	last, ok := m.lastNotice[health]
	if ok && now.Sub(last) < m.cfg.NotificationCooldown {
		return false
	}
	m.lastNotice[health] = now
	return true
}

func (m *balanceMonitor) state(balance uint64, health domain.WalletHealth, now time.Time) domain.WalletState {
	m.mu.Lock()
	attempts := m.attemptsInWindow(now)
	m.mu.Unlock()
	return domain.WalletState{
		PublicIdentity:  m.custody.Address(),
		Network:         m.custody.Network(),
		Balance:         balance,
		MinimumBalance:  m.cfg.MinimumBalance,
		TargetBalance:   m.cfg.TargetBalance,
		ReplenishAmount: m.cfg.ReplenishAmount,
		FundingAttempts: attempts,
		Health:          health,
		CheckedAt:       now,
	}
}
