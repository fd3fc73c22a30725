package domain_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vncsmyrnk/relayer/internal/core/domain"
)

func TestVoterRecordWindow(t *testing.T) {
	rec := domain.NewVoterRecord("addr", now)
	rec.VoteTimestamps = []time.Time{now, now.Add(10 * time.Minute), now.Add(20 * time.Minute)}

	status := rec.RateStatus(time.Hour, 3)
	assert.Equal(t, 0, status.RemainingVotes)
	require.NotNil(t, status.ResetTime)
	assert.Equal(t, now.Add(time.Hour), *status.ResetTime)

	rec.Prune(now.Add(10 * time.Minute))
	assert.Len(t, rec.VoteTimestamps, 1)

	status = rec.RateStatus(time.Hour, 3)
	assert.Equal(t, 2, status.RemainingVotes)
	assert.Equal(t, now.Add(80*time.Minute), *status.ResetTime)
}

func TestRateLimitErrorMatchesSentinel(t *testing.T) {
	err := &domain.RateLimitError{RetryAfter: 1500 * time.Millisecond}
	assert.ErrorIs(t, err, domain.ErrRateLimited)
	assert.Equal(t, 2, err.RetryAfterSeconds())
}

func TestClassifyBalance(t *testing.T) {
	assert.Equal(t, domain.WalletCritical, domain.ClassifyBalance(99, 100, 1000))
	assert.Equal(t, domain.WalletWarning, domain.ClassifyBalance(100, 100, 1000))
	assert.Equal(t, domain.WalletWarning, domain.ClassifyBalance(999, 100, 1000))
	assert.Equal(t, domain.WalletHealthy, domain.ClassifyBalance(1000, 100, 1000))

	assert.True(t, domain.NetworkDevnet.SupportsAirdrop())
	assert.False(t, domain.NetworkMainnetBeta.SupportsAirdrop())
	assert.False(t, domain.Network("moonnet").Valid())
}
