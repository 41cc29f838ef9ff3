// Package config defines the top-level configuration for the copy-trading
// bot and provides validation helpers.
package config

import (
	"fmt"
	"strings"
	"time"
)

// Config is the root configuration structure. Fields are populated from a
// TOML file and then optionally overridden by COPYBOT_* environment
// variables. Loaded once at startup, immutable thereafter.
type Config struct {
	Wallet     WalletConfig     `toml:"wallet"`
	Polymarket PolymarketConfig `toml:"polymarket"`
	Copy       CopyConfig       `toml:"copy"`
	Monitor    MonitorConfig    `toml:"monitor"`
	Claimer    ClaimerConfig    `toml:"claimer"`
	Chain      ChainConfig      `toml:"chain"`
	Postgres   PostgresConfig   `toml:"postgres"`
	Redis      RedisConfig      `toml:"redis"`
	S3         S3Config         `toml:"s3"`
	Mode       string           `toml:"mode"`
	LogLevel   string           `toml:"log_level"`
}

// WalletConfig holds the follower wallet credentials. Either a raw private
// key or an encrypted keystore file must be provided for trading modes.
type WalletConfig struct {
	PrivateKey       string `toml:"private_key"`
	ProxyAddress     string `toml:"proxy_address"`
	EncryptedKeyPath string `toml:"encrypted_key_path"`
	KeyPassword      string `toml:"key_password"`
}

// PolymarketConfig holds Polymarket API endpoints and chain parameters.
type PolymarketConfig struct {
	ClobHost string `toml:"clob_host"`
	DataHost string `toml:"data_host"`
	WsHost   string `toml:"ws_host"`
	ChainID  int    `toml:"chain_id"`
}

// CopyConfig holds the trade-copy policy. The tolerance and ratio values are
// policy knobs, not structural constants; defaults mirror the behaviour the
// bot was tuned with in production.
type CopyConfig struct {
	TargetAddress     string   `toml:"target_address"`
	RetryLimit        int      `toml:"retry_limit"`
	PollInterval      duration `toml:"poll_interval"`
	StalenessWindow   duration `toml:"staleness_window"`
	PriceTolerance    float64  `toml:"price_tolerance"`     // max best-ask drift vs observed price
	MinOrderUSDC      float64  `toml:"min_order_usdc"`      // venue absolute minimum
	TradeMinPercent   float64  `toml:"trade_min_percent"`   // per-trade floor as fraction of notional
	FallbackOrderUSDC float64  `toml:"fallback_order_usdc"` // probe size after signature rejections
	FullCopyThreshold float64  `toml:"full_copy_threshold"` // notional below which the trade is copied 1:1
	BatchLimit        int      `toml:"batch_limit"`
}

// MonitorConfig holds target-activity ingestion parameters.
type MonitorConfig struct {
	FetchInterval duration `toml:"fetch_interval"`
	MaxAgeHours   int      `toml:"max_age_hours"`
	FeedEnabled   bool     `toml:"feed_enabled"`
}

// ClaimerConfig holds redemption sweeper parameters.
type ClaimerConfig struct {
	Enabled       bool     `toml:"enabled"`
	SweepInterval duration `toml:"sweep_interval"`
}

// ChainConfig holds Polygon RPC and contract addresses.
type ChainConfig struct {
	RPCURL                   string `toml:"rpc_url"`
	USDCAddress              string `toml:"usdc_address"`
	ConditionalTokensAddress string `toml:"conditional_tokens_address"`
	GasLimit                 uint64 `toml:"gas_limit"`
}

// PostgresConfig holds PostgreSQL connection parameters for the trade ledger.
type PostgresConfig struct {
	DSN           string `toml:"dsn"`
	Host          string `toml:"host"`
	Port          int    `toml:"port"`
	Database      string `toml:"database"`
	User          string `toml:"user"`
	Password      string `toml:"password"`
	SSLMode       string `toml:"ssl_mode"`
	PoolMaxConns  int    `toml:"pool_max_conns"`
	PoolMinConns  int    `toml:"pool_min_conns"`
	RunMigrations bool   `toml:"run_migrations"`
}

// RedisConfig holds Redis connection parameters.
type RedisConfig struct {
	Addr       string `toml:"addr"`
	Password   string `toml:"password"`
	DB         int    `toml:"db"`
	PoolSize   int    `toml:"pool_size"`
	MaxRetries int    `toml:"max_retries"`
	TLSEnabled bool   `toml:"tls_enabled"`
}

// S3Config holds cold-storage parameters for the ledger archiver.
type S3Config struct {
	Enabled        bool   `toml:"enabled"`
	Endpoint       string `toml:"endpoint"`
	Region         string `toml:"region"`
	Bucket         string `toml:"bucket"`
	AccessKey      string `toml:"access_key"`
	SecretKey      string `toml:"secret_key"`
	UseSSL         bool   `toml:"use_ssl"`
	ForcePathStyle bool   `toml:"force_path_style"`
	RetentionDays  int    `toml:"retention_days"`
}

// duration is a wrapper around time.Duration that supports TOML string
// decoding (e.g. "5m", "30s").
type duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler so the TOML decoder can
// parse duration strings like "5m" or "30s".
func (d *duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

// MarshalText implements encoding.TextMarshaler for round-trip encoding.
func (d duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Defaults returns a Config populated with reasonable default values.
func Defaults() Config {
	return Config{
		Polymarket: PolymarketConfig{
			ClobHost: "https://clob.polymarket.com",
			DataHost: "https://data-api.polymarket.com",
			WsHost:   "wss://ws-subscriptions-clob.polymarket.com/ws/market",
			ChainID:  137,
		},
		Copy: CopyConfig{
			RetryLimit:        3,
			PollInterval:      duration{2 * time.Second},
			StalenessWindow:   duration{5 * time.Minute},
			PriceTolerance:    0.05,
			MinOrderUSDC:      0.01,
			TradeMinPercent:   0.015,
			FallbackOrderUSDC: 2.0,
			FullCopyThreshold: 10.0,
			BatchLimit:        100,
		},
		Monitor: MonitorConfig{
			FetchInterval: duration{1 * time.Second},
			MaxAgeHours:   1,
			FeedEnabled:   false,
		},
		Claimer: ClaimerConfig{
			Enabled:       true,
			SweepInterval: duration{60 * time.Second},
		},
		Chain: ChainConfig{
			USDCAddress:              "0x2791Bca1f2de4661ED88A30C99A7a9449Aa84174",
			ConditionalTokensAddress: "0x4D97DCd97eC945f40cF65F87097ACe5EA0476045",
			GasLimit:                 500_000,
		},
		Postgres: PostgresConfig{
			Host:          "localhost",
			Port:          5432,
			Database:      "copybot",
			User:          "postgres",
			SSLMode:       "disable",
			PoolMaxConns:  10,
			PoolMinConns:  2,
			RunMigrations: true,
		},
		Redis: RedisConfig{
			Addr:       "localhost:6379",
			DB:         0,
			PoolSize:   20,
			MaxRetries: 3,
		},
		S3: S3Config{
			Enabled:        false,
			Endpoint:       "",
			Region:         "us-east-1",
			Bucket:         "copybot-archive",
			UseSSL:         true,
			ForcePathStyle: false,
			RetentionDays:  90,
		},
		Mode:     "full",
		LogLevel: "info",
	}
}

// validModes enumerates the accepted values for Config.Mode.
var validModes = map[string]bool{
	"copy":    true,
	"monitor": true,
	"claim":   true,
	"full":    true,
}

// validLogLevels enumerates the accepted values for Config.LogLevel.
var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// Validate checks Config for obviously invalid or missing values and returns
// a combined error describing every problem found.
func (c *Config) Validate() error {
	var errs []string

	if !validModes[strings.ToLower(c.Mode)] {
		errs = append(errs, fmt.Sprintf("unknown mode %q (valid: copy, monitor, claim, full)", c.Mode))
	}
	if !validLogLevels[strings.ToLower(c.LogLevel)] {
		errs = append(errs, fmt.Sprintf("unknown log_level %q (valid: debug, info, warn, error)", c.LogLevel))
	}

	// Wallet — trading and claiming modes need a key.
	needsWallet := c.Mode == "copy" || c.Mode == "claim" || c.Mode == "full"
	if needsWallet {
		if c.Wallet.PrivateKey == "" && c.Wallet.EncryptedKeyPath == "" {
			errs = append(errs, "wallet: either private_key or encrypted_key_path must be set for mode "+c.Mode)
		}
		if c.Wallet.EncryptedKeyPath != "" && c.Wallet.KeyPassword == "" {
			errs = append(errs, "wallet: key_password is required when encrypted_key_path is set")
		}
		if c.Wallet.ProxyAddress == "" {
			errs = append(errs, "wallet: proxy_address must not be empty for mode "+c.Mode)
		}
	}

	if c.Copy.TargetAddress == "" && c.Mode != "claim" {
		errs = append(errs, "copy: target_address must not be empty")
	}
	if c.Copy.RetryLimit < 1 {
		errs = append(errs, "copy: retry_limit must be >= 1")
	}
	if c.Copy.PriceTolerance < 0 || c.Copy.PriceTolerance >= 1 {
		errs = append(errs, fmt.Sprintf("copy: price_tolerance must be in [0,1), got %g", c.Copy.PriceTolerance))
	}
	if c.Copy.MinOrderUSDC <= 0 {
		errs = append(errs, "copy: min_order_usdc must be > 0")
	}
	if c.Copy.TradeMinPercent < 0 || c.Copy.TradeMinPercent >= 1 {
		errs = append(errs, "copy: trade_min_percent must be in [0,1)")
	}
	if c.Copy.StalenessWindow.Duration <= 0 {
		errs = append(errs, "copy: staleness_window must be > 0")
	}
	if c.Copy.BatchLimit < 1 {
		errs = append(errs, "copy: batch_limit must be >= 1")
	}

	if c.Polymarket.ClobHost == "" {
		errs = append(errs, "polymarket: clob_host must not be empty")
	}
	if c.Polymarket.DataHost == "" {
		errs = append(errs, "polymarket: data_host must not be empty")
	}
	if c.Polymarket.ChainID <= 0 {
		errs = append(errs, "polymarket: chain_id must be positive")
	}

	if needsWallet && c.Chain.RPCURL == "" {
		errs = append(errs, "chain: rpc_url must not be empty for mode "+c.Mode)
	}

	if strings.TrimSpace(c.Postgres.DSN) == "" {
		if c.Postgres.Host == "" {
			errs = append(errs, "postgres: host must not be empty (or set postgres.dsn)")
		}
		if c.Postgres.Port <= 0 || c.Postgres.Port > 65535 {
			errs = append(errs, fmt.Sprintf("postgres: port must be 1-65535, got %d", c.Postgres.Port))
		}
		if c.Postgres.Database == "" {
			errs = append(errs, "postgres: database must not be empty")
		}
	}
	if c.Postgres.PoolMaxConns < 1 {
		errs = append(errs, "postgres: pool_max_conns must be >= 1")
	}
	if c.Postgres.PoolMinConns > c.Postgres.PoolMaxConns {
		errs = append(errs, "postgres: pool_min_conns must not exceed pool_max_conns")
	}

	if c.Redis.Addr == "" {
		errs = append(errs, "redis: addr must not be empty")
	}
	if c.Redis.PoolSize < 1 {
		errs = append(errs, "redis: pool_size must be >= 1")
	}

	if c.S3.Enabled {
		if c.S3.Bucket == "" {
			errs = append(errs, "s3: bucket must not be empty when enabled")
		}
		if c.S3.Region == "" {
			errs = append(errs, "s3: region must not be empty when enabled")
		}
		if c.S3.RetentionDays < 1 {
			errs = append(errs, "s3: retention_days must be >= 1 when enabled")
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
