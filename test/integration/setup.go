package integration

import (
	"context"
	"database/sql"
	"fmt"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	handler "github.com/vncsmyrnk/relayer/internal/adapters/handler/http"
	repo "github.com/vncsmyrnk/relayer/internal/adapters/repository/postgres"
	"github.com/vncsmyrnk/relayer/internal/core/domain"
	"github.com/vncsmyrnk/relayer/internal/core/services"
	"github.com/vncsmyrnk/relayer/internal/testutil"
)

const apiKey = "integration-key"

type TestApp struct {
	DB          *sql.DB
	Server      *httptest.Server
	Custody     *testutil.FakeCustody
	DBContainer testcontainers.Container
}

func setupPostgresContainer(ctx context.Context) (testcontainers.Container, string, error) {
	pgContainer, err := postgres.Run(ctx, "postgres:15-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("user"),
		postgres.WithPassword("password"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	if err != nil {
		return nil, "", fmt.Errorf("failed to start postgres container: %w", err)
	}

	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		return nil, "", err
	}
	return pgContainer, connStr, nil
}

func setupTestApp(t *testing.T) *TestApp {
	t.Helper()
	ctx := context.Background()

	dbContainer, dbURL, err := setupPostgresContainer(ctx)
	require.NoError(t, err)

	db, err := sql.Open("postgres", dbURL)
	require.NoError(t, err)
	require.NoError(t, repo.Migrate(ctx, db))

	custody := testutil.NewFakeCustody(domain.NetworkDevnet, 2*domain.LamportsPerSOL)

	polls := services.NewPollService(repo.NewPollRepository(db), nil)
	guard := services.NewVoterGuard(repo.NewVoterRepository(db), 3, time.Hour, nil)
	submitter := services.NewTransactionService(custody, services.TransactionConfig{
		ConfirmTimeout: time.Second,
		PollInterval:   10 * time.Millisecond,
	}, nil, nil)
	monitor := services.NewBalanceMonitor(custody, services.MonitorConfig{}, nil, nil)
	relay := services.NewRelayService(polls, guard, submitter, nil, nil)

	router := handler.NewHandler(handler.Handlers{
		Polls:  handler.NewPollHandler(relay, polls),
		Votes:  handler.NewVoteHandler(relay),
		Wallet: handler.NewWalletHandler(custody, monitor, submitter, handler.WalletHandlerConfig{MinimumBalance: domain.LamportsPerSOL / 10, TargetBalance: domain.LamportsPerSOL}),
		Voters: handler.NewVoterHandler(guard, 1000),
		Health: handler.NewHealthHandler(custody, "integration"),
	}, handler.RouterConfig{APIKey: apiKey})

	return &TestApp{
		DB:          db,
		Server:      httptest.NewServer(router),
		Custody:     custody,
		DBContainer: dbContainer,
	}
}

func (app *TestApp) Teardown(t *testing.T) {
	app.Server.Close()
	app.DB.Close()
	if err := app.DBContainer.Terminate(context.Background()); err != nil {
		t.Logf("failed to terminate container: %v", err)
	}
}
