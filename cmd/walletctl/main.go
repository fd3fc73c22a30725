package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/spf13/cobra"

	relayersolana "github.com/vncsmyrnk/relayer/internal/adapters/chain/solana"
	"github.com/vncsmyrnk/relayer/internal/config"
	"github.com/vncsmyrnk/relayer/internal/core/domain"
)

const programName = "walletctl"

var globalFlags = struct {
	configFile string
	timeout    time.Duration
}{}

func main() {
	rootCmd := &cobra.Command{
		Use:          programName,
		Short:        "Inspect and fund the relayer's custodial wallet",
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().StringVar(&globalFlags.configFile, "config", "", "path to config file")
	rootCmd.PersistentFlags().DurationVar(&globalFlags.timeout, "timeout", 30*time.Second, "RPC timeout")

	rootCmd.AddCommand(keygenCommand())
	rootCmd.AddCommand(balanceCommand())
	rootCmd.AddCommand(airdropCommand())
	rootCmd.AddCommand(statusCommand())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func keygenCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "keygen",
		Short: "Generate a new custody keypair",
		RunE: func(cmd *cobra.Command, args []string) error {
			key, err := solana.NewRandomPrivateKey()
			if err != nil {
				return fmt.Errorf("failed to generate key: %w", err)
			}
			return printJSON(cmd, map[string]string{
				"publicKey":  key.PublicKey().String(),
				"privateKey": key.String(),
			})
		},
	}
}

func balanceCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "balance",
		Short: "Show the custody wallet balance",
		RunE: func(cmd *cobra.Command, args []string) error {
			custody, cfg, err := loadCustody()
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), globalFlags.timeout)
			defer cancel()

			balance, err := custody.Balance(ctx)
			if err != nil {
				return err
			}
			return printJSON(cmd, map[string]any{
				"publicKey":  custody.Address(),
				"network":    custody.Network(),
				"balance":    balance,
				"balanceSol": domain.LamportsToSOL(balance),
				"health":     domain.ClassifyBalance(balance, cfg.MinimumBalance, cfg.TargetBalance),
			})
		},
	}
}

func airdropCommand() *cobra.Command {
	var sol float64
	cmd := &cobra.Command{
		Use:   "airdrop",
		Short: "Request test funds for the custody wallet (devnet, testnet and localnet only)",
		RunE: func(cmd *cobra.Command, args []string) error {
			if sol <= 0 {
				return fmt.Errorf("--sol must be positive")
			}
			custody, _, err := loadCustody()
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), globalFlags.timeout)
			defer cancel()

			lamports := uint64(sol * domain.LamportsPerSOL)
			sig, err := custody.RequestFunds(ctx, lamports)
			if err != nil {
				return err
			}
			return printJSON(cmd, map[string]any{
				"signature": sig,
				"lamports":  lamports,
			})
		},
	}
	cmd.Flags().Float64Var(&sol, "sol", 1, "amount of SOL to request")
	return cmd
}

func statusCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "status <signature>",
		Short: "Show the confirmation status of a transaction",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			custody, _, err := loadCustody()
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), globalFlags.timeout)
			defer cancel()

			status, err := custody.Status(ctx, args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd, status)
		},
	}
}

func loadCustody() (*relayersolana.Custody, *config.Config, error) {
	cfg, err := config.Load(globalFlags.configFile)
	if err != nil {
		return nil, nil, err
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	custody, err := relayersolana.NewCustody(relayersolana.Config{
		Network:    cfg.Network,
		RPCURL:     cfg.RPCURL,
		PrivateKey: cfg.WalletPrivateKey,
	}, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load custody wallet: %w", err)
	}
	return custody, cfg, nil
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
