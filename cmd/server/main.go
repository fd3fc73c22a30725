package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	stdhttp "net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/automaxprocs/maxprocs"

	"github.com/vncsmyrnk/relayer/internal/adapters/chain/solana"
	"github.com/vncsmyrnk/relayer/internal/adapters/handler/http"
	"github.com/vncsmyrnk/relayer/internal/adapters/repository/memory"
	"github.com/vncsmyrnk/relayer/internal/adapters/repository/postgres"
	"github.com/vncsmyrnk/relayer/internal/config"
	"github.com/vncsmyrnk/relayer/internal/core/domain"
	"github.com/vncsmyrnk/relayer/internal/core/ports"
	"github.com/vncsmyrnk/relayer/internal/core/services"
	"github.com/vncsmyrnk/relayer/internal/metrics"
)

var version = "dev"

func main() {
	var configFile string
	var debug bool
	flag.StringVar(&configFile, "config", "", "path to YAML config file")
	flag.BoolVar(&debug, "debug", false, "enable debug logging")
	flag.Parse()

	cfg, err := config.Load(configFile)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	level := slog.LevelInfo
	if debug || cfg.Debug {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	if _, err := maxprocs.Set(maxprocs.Logger(func(format string, args ...any) {
		logger.Info(fmt.Sprintf(format, args...))
	})); err != nil {
		logger.Warn("failed to set GOMAXPROCS", "error", err)
	}

	if err := run(cfg, logger); err != nil {
		logger.Error("relayer stopped", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *slog.Logger) error {
	if cfg.APIKey == "" {
		return errors.New("an API key is required (set RELAYER_API_KEY or apiKey)")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	custody, err := solana.NewCustody(solana.Config{
		Network:    cfg.Network,
		RPCURL:     cfg.RPCURL,
		PrivateKey: cfg.WalletPrivateKey,
	}, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize wallet custody: %w", err)
	}
	logger.Info("relayer wallet loaded", "public_key", custody.Address(), "network", custody.Network(), "rpc_url", custody.RPCURL())
	logStartupBalance(ctx, cfg, custody, logger)

	pollRepo, voterRepo, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	pollService := services.NewPollService(pollRepo, logger)
	guard := services.NewVoterGuard(voterRepo, cfg.VoterRateLimit, cfg.VoterRateWindow, logger)
	submitter := services.NewTransactionService(custody, services.TransactionConfig{
		ReceiptLamports: cfg.ReceiptLamports,
		ConfirmTimeout:  cfg.ConfirmTimeout,
		PollInterval:    cfg.ConfirmPollInterval,
	}, m, logger)
	monitor := services.NewBalanceMonitor(custody, services.MonitorConfig{
		MinimumBalance:       cfg.MinimumBalance,
		TargetBalance:        cfg.TargetBalance,
		ReplenishAmount:      cfg.ReplenishAmount,
		Interval:             cfg.MonitorInterval,
		MaxFundingAttempts:   cfg.MaxFundingAttempts,
		FundingWindow:        cfg.FundingWindow,
		NotificationCooldown: cfg.NotificationCooldown,
	}, m, logger)
	relay := services.NewRelayService(pollService, guard, submitter, m, logger)

	handler := http.NewHandler(http.Handlers{
		Polls: http.NewPollHandler(relay, pollService),
		Votes: http.NewVoteHandler(relay),
		Wallet: http.NewWalletHandler(custody, monitor, submitter, http.WalletHandlerConfig{
			RPCURL:         custody.RPCURL(),
			MinimumBalance: cfg.MinimumBalance,
			TargetBalance:  cfg.TargetBalance,
		}),
		Voters: http.NewVoterHandler(guard, cfg.ReceiptLamports),
		Health: http.NewHealthHandler(custody, version),
	}, http.RouterConfig{
		APIKey:           cfg.APIKey,
		AllowedOrigins:   cfg.AllowedOrigins,
		PollCreateLimit:  cfg.PollCreateLimit,
		PollCreateWindow: cfg.PollCreateWindow,
		VoteLimit:        cfg.VoteLimit,
		VoteWindow:       cfg.VoteWindow,
	})

	server := &stdhttp.Server{
		Addr:              cfg.ListenAddr(),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	metricsServer := &stdhttp.Server{
		Addr:              cfg.MetricsAddr(),
		Handler:           promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	monitor.Start(ctx)
	defer monitor.Stop()

	errCh := make(chan error, 2)
	for _, srv := range []*stdhttp.Server{server, metricsServer} {
		go func(srv *stdhttp.Server) {
			logger.Info("listening", "addr", srv.Addr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, stdhttp.ErrServerClosed) {
				errCh <- fmt.Errorf("server on %s failed: %w", srv.Addr, err)
			}
		}(srv)
	}

	select {
	case <-ctx.Done():
		logger.Info("gracefully shutting down")
	case err := <-errCh:
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down server: %w", err)
	}
	if err := metricsServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down metrics server: %w", err)
	}
	return nil
}

func openStore(ctx context.Context, cfg *config.Config) (ports.PollRepository, ports.VoterRepository, func(), error) {
	if cfg.StoreDriver != config.StorePostgres {
		return memory.NewPollRepository(), memory.NewVoterRepository(), func() {}, nil
	}

	db, err := sql.Open("postgres", cfg.DatabaseURL)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, nil, nil, fmt.Errorf("failed to reach database: %w", err)
	}
	if err := postgres.Migrate(ctx, db); err != nil {
		db.Close()
		return nil, nil, nil, err
	}
	return postgres.NewPollRepository(db), postgres.NewVoterRepository(db), func() { db.Close() }, nil
}

func logStartupBalance(ctx context.Context, cfg *config.Config, custody ports.WalletCustody, logger *slog.Logger) {
	balance, err := custody.Balance(ctx)
	if err != nil {
		logger.Warn("could not read wallet balance at startup", "error", err)
		return
	}
	logger.Info("wallet balance", "sol", domain.LamportsToSOL(balance))
	if balance >= cfg.MinimumBalance {
		return
	}
	attrs := []any{"balance_sol", domain.LamportsToSOL(balance), "minimum_sol", domain.LamportsToSOL(cfg.MinimumBalance)}
	if custody.Network() == domain.NetworkDevnet {
		attrs = append(attrs, "hint", "fund the wallet at https://faucet.solana.com or via POST /wallet/airdrop")
	}
	logger.Warn("wallet balance below minimum", attrs...)
}
