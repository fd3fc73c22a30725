package services

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vncsmyrnk/relayer/internal/adapters/repository/memory"
	"github.com/vncsmyrnk/relayer/internal/core/domain"
	"github.com/vncsmyrnk/relayer/internal/testutil"
)

func newTestGuard(limit int, window time.Duration) (*voterGuard, *testutil.Clock) {
	clock := testutil.NewClock(epoch)
	g := NewVoterGuard(memory.NewVoterRepository(), limit, window, nil).(*voterGuard)
	g.now = clock.Now
	return g, clock
}

func TestAdmitRejectsInvalidAddress(t *testing.T) {
	g, _ := newTestGuard(3, time.Hour)

	_, err := g.Admit(context.Background(), "0xdeadbeef")
	assert.ErrorIs(t, err, domain.ErrInvalidIdentity)
}

func TestAdmitSlidingWindow(t *testing.T) {
	g, clock := newTestGuard(3, time.Hour)
	ctx := context.Background()
	voter := testutil.Address(7)

	for i := 0; i < 3; i++ {
		adm, err := g.Admit(ctx, voter)
		require.NoError(t, err)
		require.NoError(t, adm.Commit(ctx))
		assert.Equal(t, 2-i, adm.Status().RemainingVotes)
		adm.Release()
		clock.Advance(10 * time.Minute)
	}

	_, err := g.Admit(ctx, voter)
	require.ErrorIs(t, err, domain.ErrRateLimited)
	var rl *domain.RateLimitError
	require.ErrorAs(t, err, &rl)
	assert.Equal(t, 30*time.Minute, rl.RetryAfter)
	assert.Equal(t, epoch.Add(time.Hour), rl.ResetAt)

	// The first vote ages out one hour after it was cast.
	clock.Advance(30*time.Minute + time.Second)
	adm, err := g.Admit(ctx, voter)
	require.NoError(t, err)
	adm.Release()
}

func TestReleaseDoesNotCharge(t *testing.T) {
	g, _ := newTestGuard(1, time.Hour)
	ctx := context.Background()
	voter := testutil.Address(8)

	for i := 0; i < 5; i++ {
		adm, err := g.Admit(ctx, voter)
		require.NoError(t, err)
		adm.Release()
	}

	stats, err := g.Stats(ctx, voter)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.RateLimit.RemainingVotes)
	require.NotNil(t, stats.Identity)
	assert.Equal(t, domain.VerificationBasicFormat, stats.Identity.VerificationMethod)
	assert.Equal(t, epoch, stats.Identity.FirstSeen)
}

func TestStatsForUnseenVoter(t *testing.T) {
	g, _ := newTestGuard(10, time.Hour)

	stats, err := g.Stats(context.Background(), testutil.Address(9))
	require.NoError(t, err)
	assert.Nil(t, stats.Identity)
	assert.Equal(t, 10, stats.RateLimit.RemainingVotes)
	assert.Nil(t, stats.RateLimit.ResetTime)
}

func TestAdmitConcurrentSameVoterNeverExceedsCap(t *testing.T) {
	g, _ := newTestGuard(5, time.Hour)
	ctx := context.Background()
	voter := testutil.Address(10)

	var admitted atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			adm, err := g.Admit(ctx, voter)
			if err != nil {
				return
			}
			defer adm.Release()
			if adm.Commit(ctx) == nil {
				admitted.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(5), admitted.Load())
	assert.Equal(t, 0, g.locks.Len())
}
