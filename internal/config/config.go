package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"

	"github.com/vncsmyrnk/relayer/internal/core/domain"
)

const (
	EnvPrefix = "relayer"

	StoreMemory   = "memory"
	StorePostgres = "postgres"
)

type Config struct {
	BindAddr        string        `yaml:"bindAddr"        split_words:"true"`
	Port            uint          `yaml:"port"`
	MetricsPort     uint          `yaml:"metricsPort"     split_words:"true"`
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout" split_words:"true"`
	Debug           bool          `yaml:"debug"`

	Network          domain.Network `yaml:"network"`
	RPCURL           string         `yaml:"rpcUrl"           envconfig:"RPC_URL"`
	WalletPrivateKey string         `yaml:"walletPrivateKey" split_words:"true"`
	APIKey           string         `yaml:"apiKey"           envconfig:"API_KEY"`
	AllowedOrigins   []string       `yaml:"allowedOrigins"   split_words:"true"`

	StoreDriver string `yaml:"storeDriver" split_words:"true"`
	DatabaseURL string `yaml:"databaseUrl" envconfig:"DATABASE_URL"`

	MinimumBalance       uint64        `yaml:"minimumBalance"       split_words:"true"`
	TargetBalance        uint64        `yaml:"targetBalance"        split_words:"true"`
	ReplenishAmount      uint64        `yaml:"replenishAmount"      split_words:"true"`
	MonitorInterval      time.Duration `yaml:"monitorInterval"      split_words:"true"`
	MaxFundingAttempts   int           `yaml:"maxFundingAttempts"   split_words:"true"`
	FundingWindow        time.Duration `yaml:"fundingWindow"        split_words:"true"`
	NotificationCooldown time.Duration `yaml:"notificationCooldown" split_words:"true"`

	VoterRateLimit  int           `yaml:"voterRateLimit"  split_words:"true"`
	VoterRateWindow time.Duration `yaml:"voterRateWindow" split_words:"true"`

	ConfirmTimeout      time.Duration `yaml:"confirmTimeout"      split_words:"true"`
	ConfirmPollInterval time.Duration `yaml:"confirmPollInterval" split_words:"true"`
	ReceiptLamports     uint64        `yaml:"receiptLamports"     split_words:"true"`

	PollCreateLimit  int           `yaml:"pollCreateLimit"  split_words:"true"`
	PollCreateWindow time.Duration `yaml:"pollCreateWindow" split_words:"true"`
	VoteLimit        int           `yaml:"voteLimit"        split_words:"true"`
	VoteWindow       time.Duration `yaml:"voteWindow"       split_words:"true"`
}

func Default() *Config {
	return &Config{
		BindAddr:        "0.0.0.0",
		Port:            3001,
		MetricsPort:     9090,
		ShutdownTimeout: 10 * time.Second,

		Network:        domain.NetworkDevnet,
		AllowedOrigins: []string{"*"},

		StoreDriver: StoreMemory,

		MinimumBalance:       domain.LamportsPerSOL / 10,
		TargetBalance:        domain.LamportsPerSOL,
		ReplenishAmount:      2 * domain.LamportsPerSOL,
		MonitorInterval:      30 * time.Second,
		MaxFundingAttempts:   3,
		FundingWindow:        time.Hour,
		NotificationCooldown: 5 * time.Minute,

		VoterRateLimit:  10,
		VoterRateWindow: time.Hour,

		ConfirmTimeout:      30 * time.Second,
		ConfirmPollInterval: 500 * time.Millisecond,
		ReceiptLamports:     1000,

		PollCreateLimit:  10,
		PollCreateWindow: 15 * time.Minute,
		VoteLimit:        50,
		VoteWindow:       5 * time.Minute,
	}
}

// Load layers the defaults, the optional YAML file, a .env file in the
// working directory and finally RELAYER_* environment variables.
func Load(configFile string) (*Config, error) {
	cfg := Default()

	if configFile == "" {
		configFile = os.Getenv("RELAYER_CONFIG")
	}
	if configFile != "" {
		buf, err := os.ReadFile(configFile)
		if err != nil {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		if err := yaml.Unmarshal(buf, cfg); err != nil {
			return nil, fmt.Errorf("error parsing config file: %w", err)
		}
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("error loading .env file: %w", err)
	}

	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return nil, fmt.Errorf("error processing environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate reports every invalid setting at once.
func (c *Config) Validate() error {
	var problems []string
	add := func(format string, args ...any) {
		problems = append(problems, fmt.Sprintf(format, args...))
	}

	if c.Port == 0 {
		add("port must be set")
	}
	if !c.Network.Valid() {
		add("invalid network %q (must be devnet, testnet, localnet or mainnet-beta)", c.Network)
	}
	if c.Network == domain.NetworkMainnetBeta && c.WalletPrivateKey == "" {
		add("walletPrivateKey is required on %s", domain.NetworkMainnetBeta)
	}

	switch c.StoreDriver {
	case StoreMemory:
	case StorePostgres:
		if c.DatabaseURL == "" {
			add("databaseUrl is required for the postgres store")
		}
	default:
		add("invalid storeDriver %q (must be memory or postgres)", c.StoreDriver)
	}

	if c.MinimumBalance == 0 {
		add("minimumBalance must be positive")
	}
	if c.TargetBalance <= c.MinimumBalance {
		add("targetBalance must be greater than minimumBalance")
	}
	if c.ReplenishAmount == 0 {
		add("replenishAmount must be positive")
	}
	if c.MaxFundingAttempts <= 0 {
		add("maxFundingAttempts must be positive")
	}
	if c.VoterRateLimit <= 0 {
		add("voterRateLimit must be positive")
	}
	if c.PollCreateLimit <= 0 || c.VoteLimit <= 0 {
		add("HTTP rate limits must be positive")
	}
	if c.ReceiptLamports == 0 {
		add("receiptLamports must be positive")
	}

	durations := []struct {
		name  string
		value time.Duration
	}{
		{"shutdownTimeout", c.ShutdownTimeout},
		{"monitorInterval", c.MonitorInterval},
		{"fundingWindow", c.FundingWindow},
		{"notificationCooldown", c.NotificationCooldown},
		{"voterRateWindow", c.VoterRateWindow},
		{"confirmTimeout", c.ConfirmTimeout},
		{"confirmPollInterval", c.ConfirmPollInterval},
		{"pollCreateWindow", c.PollCreateWindow},
		{"voteWindow", c.VoteWindow},
	}
	for _, d := range durations {
		if d.value <= 0 {
			add("%s must be positive", d.name)
		}
	}

	if len(problems) > 0 {
		return fmt.Errorf("invalid configuration: %s", strings.Join(problems, "; "))
	}
	return nil
}

func (c *Config) ListenAddr() string {
	return fmt.Sprintf("%s:%d", c.BindAddr, c.Port)
}

func (c *Config) MetricsAddr() string {
	return fmt.Sprintf("%s:%d", c.BindAddr, c.MetricsPort)
}
