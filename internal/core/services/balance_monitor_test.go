package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/vncsmyrnk/relayer/internal/core/domain"
	"github.com/vncsmyrnk/relayer/internal/metrics"
	fakes "github.com/vncsmyrnk/relayer/internal/testutil"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

var testMonitorConfig = MonitorConfig{
	MinimumBalance:       100,
	TargetBalance:        1000,
	ReplenishAmount:      50,
	Interval:             time.Hour,
	MaxFundingAttempts:   3,
	FundingWindow:        time.Hour,
	NotificationCooldown: 5 * time.Minute,
}

func newTestMonitor(custody *fakes.FakeCustody, m *metrics.Metrics) (*balanceMonitor, *fakes.Clock) {
	clock := fakes.NewClock(epoch)
	mon := NewBalanceMonitor(custody, testMonitorConfig, m, nil).(*balanceMonitor)
	mon.now = clock.Now
	return mon, clock
}

func TestCheckClassifiesHealth(t *testing.T) {
	custody := fakes.NewFakeCustody(domain.NetworkDevnet, 5000)
	m := metrics.New(nil)
	mon, _ := newTestMonitor(custody, m)
	ctx := context.Background()

	state, err := mon.Check(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.WalletHealthy, state.Health)
	assert.Equal(t, 5000.0, testutil.ToFloat64(m.WalletBalance))

	custody.SetBalance(500)
	state, err = mon.Check(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.WalletWarning, state.Health)
	assert.Empty(t, custody.FundRequests())
	assert.Equal(t, 1.0, testutil.ToFloat64(m.WalletHealth.WithLabelValues("warning")))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.WalletHealth.WithLabelValues("healthy")))

	// No hysteresis: crossing back over the target is healthy again.
	custody.SetBalance(1000)
	state, err = mon.Check(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.WalletHealthy, state.Health)
}

func TestCheckReplenishesUpToCap(t *testing.T) {
	custody := fakes.NewFakeCustody(domain.NetworkDevnet, 0)
	custody.FundErr = errors.New("faucet dry")
	mon, clock := newTestMonitor(custody, nil)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		state, err := mon.Check(ctx)
		require.NoError(t, err)
		assert.Equal(t, domain.WalletCritical, state.Health)
		clock.Advance(time.Minute)
	}
	assert.Len(t, custody.FundRequests(), 3)

	// Attempts leave the window one hour after they were made.
	clock.Advance(time.Hour)
	_, err := mon.Check(ctx)
	require.NoError(t, err)
	assert.Len(t, custody.FundRequests(), 4)
}

func TestCheckFundsCriticalWallet(t *testing.T) {
	custody := fakes.NewFakeCustody(domain.NetworkDevnet, 10)
	mon, _ := newTestMonitor(custody, nil)

	state, err := mon.Check(context.Background())
	require.NoError(t, err)
	assert.Equal(t, domain.WalletCritical, state.Health)
	assert.Equal(t, []uint64{50}, custody.FundRequests())
	assert.Equal(t, 1, state.FundingAttempts)

	balance, err := custody.Balance(context.Background())
	require.NoError(t, err)
	assert.Equal(t, uint64(60), balance)
}

func TestCheckProductionNetworkNeedsManualFunding(t *testing.T) {
	custody := fakes.NewFakeCustody(domain.NetworkMainnetBeta, 0)
	mon, _ := newTestMonitor(custody, nil)
	ctx := context.Background()

	for i := 0; i < 10; i++ {
		_, err := mon.Check(ctx)
		require.NoError(t, err)
	}
	assert.Len(t, custody.FundRequests(), 3)

	_, err := mon.ForceFund(ctx, domain.LamportsPerSOL)
	assert.ErrorIs(t, err, domain.ErrReplenishUnavailable)
}

func TestNotificationCooldown(t *testing.T) {
	mon, clock := newTestMonitor(fakes.NewFakeCustody(domain.NetworkDevnet, 0), nil)

	assert.True(t, mon.shouldNotify(domain.WalletCritical, clock.Now()))
	clock.Advance(4 * time.Minute)
	assert.False(t, mon.shouldNotify(domain.WalletCritical, clock.Now()))
	assert.True(t, mon.shouldNotify(domain.WalletWarning, clock.Now()))
	clock.Advance(time.Minute)
	assert.True(t, mon.shouldNotify(domain.WalletCritical, clock.Now()))
}

func TestForceFundSharesAttemptBudget(t *testing.T) {
	custody := fakes.NewFakeCustody(domain.NetworkDevnet, 0)
	custody.FundErr = errors.New("faucet dry")
	mon, _ := newTestMonitor(custody, nil)
	ctx := context.Background()

	_, err := mon.Check(ctx)
	require.NoError(t, err)
	_, err = mon.Check(ctx)
	require.NoError(t, err)

	custody.FundErr = nil
	sig, err := mon.ForceFund(ctx, 1_000_000)
	require.NoError(t, err)
	assert.NotEmpty(t, sig)

	_, err = mon.ForceFund(ctx, 1_000_000)
	assert.ErrorIs(t, err, domain.ErrFundingAttemptsExceeded)
}

func TestStatusSnapshot(t *testing.T) {
	custody := fakes.NewFakeCustody(domain.NetworkTestnet, 500)
	mon, _ := newTestMonitor(custody, nil)
	ctx := context.Background()

	status, err := mon.Status(ctx)
	require.NoError(t, err)
	assert.False(t, status.IsMonitoring)
	assert.Nil(t, status.LastCheck)
	assert.True(t, status.IsWarning)
	assert.False(t, status.IsLow)
	assert.Equal(t, custody.Address(), status.WalletAddress)
	assert.Equal(t, domain.NetworkTestnet, status.Network)

	custody.BalanceErr = errors.New("rpc down")
	_, err = mon.Status(ctx)
	assert.Error(t, err)
}

func TestStartStop(t *testing.T) {
	custody := fakes.NewFakeCustody(domain.NetworkDevnet, 5000)
	mon, _ := newTestMonitor(custody, nil)

	mon.Start(context.Background())
	mon.Start(context.Background())

	require.Eventually(t, func() bool {
		status, err := mon.Status(context.Background())
		return err == nil && status.IsMonitoring && status.LastCheck != nil
	}, time.Second, 5*time.Millisecond)

	mon.Stop()
	mon.Stop()

	status, err := mon.Status(context.Background())
	require.NoError(t, err)
	assert.False(t, status.IsMonitoring)
}

func TestStopOnParentCancel(t *testing.T) {
	mon, _ := newTestMonitor(fakes.NewFakeCustody(domain.NetworkDevnet, 5000), nil)

	ctx, cancel := context.WithCancel(context.Background())
	mon.Start(ctx)
	cancel()
	mon.Stop()
}
