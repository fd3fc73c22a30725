package postgres

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/vncsmyrnk/relayer/internal/core/domain"
	"github.com/vncsmyrnk/relayer/internal/testutil"
)

func setupDB(t *testing.T) *sql.DB {
	t.Helper()
	if testing.Short() {
		t.Skip("postgres container tests skipped with -short")
	}
	ctx := context.Background()

	container, err := tcpostgres.Run(ctx, "postgres:15-alpine",
		tcpostgres.WithDatabase("relayer"),
		tcpostgres.WithUsername("user"),
		tcpostgres.WithPassword("password"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = container.Terminate(context.Background())
	})

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	db, err := sql.Open("postgres", dsn)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	require.NoError(t, Migrate(ctx, db))
	// A second run must be a no-op.
	require.NoError(t, Migrate(ctx, db))
	return db
}

func TestPostgresRepositories(t *testing.T) {
	db := setupDB(t)
	polls := NewPollRepository(db)
	voters := NewVoterRepository(db)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Second)
	creator := testutil.Address(1)

	newPoll := func(t *testing.T, expiry *time.Time) *domain.Poll {
		t.Helper()
		poll := domain.NewPoll(uuid.New(), domain.PollSpec{
			Question:   "Lunch where?",
			Options:    []string{"Tacos", "Ramen", "Salad"},
			Creator:    creator,
			ExpiryDate: expiry,
		}, now)
		require.NoError(t, polls.Save(ctx, poll))
		return poll
	}

	t.Run("round trip", func(t *testing.T) {
		expiry := now.Add(time.Hour)
		poll := newPoll(t, &expiry)

		got, err := polls.GetByID(ctx, poll.ID)
		require.NoError(t, err)
		assert.Equal(t, poll.Question, got.Question)
		assert.Equal(t, poll.Options, got.Options)
		assert.True(t, got.Active)
		require.NotNil(t, got.ExpiryDate)
		assert.True(t, expiry.Equal(*got.ExpiryDate))
		assert.Nil(t, got.ClosedAt)
		assert.Equal(t, []int{0, 0, 0}, got.VoteCounts)

		_, err = polls.GetByID(ctx, uuid.New())
		assert.ErrorIs(t, err, domain.ErrPollNotFound)
	})

	t.Run("concurrent duplicate votes", func(t *testing.T) {
		poll := newPoll(t, nil)
		voter := testutil.Address(2)

		var ok, dup atomic.Int32
		var wg sync.WaitGroup
		for i := 0; i < 20; i++ {
			wg.Add(1)
			go func(option int) {
				defer wg.Done()
				err := polls.RecordVote(ctx, domain.Vote{PollID: poll.ID, Voter: voter, OptionIndex: option % 3, CastAt: now})
				switch {
				case err == nil:
					ok.Add(1)
				case errors.Is(err, domain.ErrAlreadyVoted):
					dup.Add(1)
				}
			}(i)
		}
		wg.Wait()

		assert.Equal(t, int32(1), ok.Load())
		assert.Equal(t, int32(19), dup.Load())

		got, err := polls.GetByID(ctx, poll.ID)
		require.NoError(t, err)
		assert.Equal(t, 1, got.TotalVotes())
		assert.True(t, got.HasVoted(voter))
	})

	t.Run("vote rejections", func(t *testing.T) {
		expiry := now.Add(time.Minute)
		poll := newPoll(t, &expiry)
		voter := testutil.Address(3)

		err := polls.RecordVote(ctx, domain.Vote{PollID: uuid.New(), Voter: voter, CastAt: now})
		assert.ErrorIs(t, err, domain.ErrPollNotFound)

		err = polls.RecordVote(ctx, domain.Vote{PollID: poll.ID, Voter: voter, OptionIndex: 3, CastAt: now})
		assert.ErrorIs(t, err, domain.ErrInvalidOption)

		err = polls.RecordVote(ctx, domain.Vote{PollID: poll.ID, Voter: voter, CastAt: now.Add(time.Hour)})
		assert.ErrorIs(t, err, domain.ErrPollExpired)
	})

	t.Run("close", func(t *testing.T) {
		poll := newPoll(t, nil)
		require.NoError(t, polls.RecordVote(ctx, domain.Vote{PollID: poll.ID, Voter: testutil.Address(4), OptionIndex: 1, CastAt: now}))

		_, err := polls.Close(ctx, poll.ID, testutil.Address(5), now)
		assert.ErrorIs(t, err, domain.ErrUnauthorized)

		closed, err := polls.Close(ctx, poll.ID, creator, now)
		require.NoError(t, err)
		assert.False(t, closed.Active)
		assert.Equal(t, []int{0, 1, 0}, closed.VoteCounts)

		err = polls.RecordVote(ctx, domain.Vote{PollID: poll.ID, Voter: testutil.Address(6), CastAt: now})
		assert.ErrorIs(t, err, domain.ErrPollClosed)

		again, err := polls.Close(ctx, poll.ID, creator, now.Add(time.Hour))
		require.NoError(t, err)
		assert.True(t, now.Equal(*again.ClosedAt))
	})

	t.Run("listing", func(t *testing.T) {
		all, err := polls.GetAll(ctx)
		require.NoError(t, err)
		assert.NotEmpty(t, all)

		mine, err := polls.ListByCreator(ctx, creator)
		require.NoError(t, err)
		assert.Len(t, mine, len(all))

		none, err := polls.ListByCreator(ctx, testutil.Address(77))
		require.NoError(t, err)
		assert.Empty(t, none)
	})

	t.Run("voter window", func(t *testing.T) {
		voter := testutil.Address(8)

		missing, err := voters.Get(ctx, voter)
		require.NoError(t, err)
		assert.Nil(t, missing)

		rec, err := voters.Touch(ctx, voter, now, now.Add(-time.Hour))
		require.NoError(t, err)
		assert.Equal(t, voter, rec.Address)
		assert.Equal(t, domain.VerificationBasicFormat, rec.VerificationMethod)
		assert.Empty(t, rec.VoteTimestamps)

		require.NoError(t, voters.AppendVote(ctx, voter, now))
		require.NoError(t, voters.AppendVote(ctx, voter, now.Add(30*time.Minute)))

		rec, err = voters.Touch(ctx, voter, now.Add(time.Hour), now)
		require.NoError(t, err)
		require.Len(t, rec.VoteTimestamps, 1)
		assert.True(t, now.Add(30*time.Minute).Equal(rec.VoteTimestamps[0]))
		assert.True(t, now.Equal(rec.FirstSeen))

		got, err := voters.Get(ctx, voter)
		require.NoError(t, err)
		assert.Len(t, got.VoteTimestamps, 1)
	})
}
