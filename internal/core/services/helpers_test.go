package services

import (
	"testing"
	"time"

	"github.com/vncsmyrnk/relayer/internal/adapters/repository/memory"
	"github.com/vncsmyrnk/relayer/internal/core/domain"
	"github.com/vncsmyrnk/relayer/internal/core/ports"
	"github.com/vncsmyrnk/relayer/internal/metrics"
	"github.com/vncsmyrnk/relayer/internal/testutil"
)

var epoch = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

type relayFixture struct {
	clock   *testutil.Clock
	custody *testutil.FakeCustody
	polls   *pollService
	guard   *voterGuard
	tx      *transactionService
	relay   ports.RelayService
}

func newRelayFixture(t *testing.T) *relayFixture {
	t.Helper()
	clock := testutil.NewClock(epoch)
	custody := testutil.NewFakeCustody(domain.NetworkDevnet, domain.LamportsPerSOL)
	m := metrics.New(nil)

	polls := NewPollService(memory.NewPollRepository(), nil).(*pollService)
	polls.now = clock.Now
	guard := NewVoterGuard(memory.NewVoterRepository(), 10, time.Hour, nil).(*voterGuard)
	guard.now = clock.Now
	tx := NewTransactionService(custody, TransactionConfig{
		ConfirmTimeout: 200 * time.Millisecond,
		PollInterval:   5 * time.Millisecond,
	}, m, nil).(*transactionService)

	return &relayFixture{
		clock:   clock,
		custody: custody,
		polls:   polls,
		guard:   guard,
		tx:      tx,
		relay:   NewRelayService(polls, guard, tx, m, nil),
	}
}

func pollInput(creator string, options ...string) ports.CreatePollInput {
	if len(options) == 0 {
		options = []string{"Yes", "No"}
	}
	return ports.CreatePollInput{
		Question: "Should we ship it?",
		Options:  options,
		Creator:  creator,
	}
}

func choice(i int) *int {
	return &i
}
