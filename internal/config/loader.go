package config

import (
	"os"
	"strconv"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Load reads a TOML configuration file at path, merges it on top of the
// built-in defaults, applies COPYBOT_* environment variable overrides, and
// returns the final Config. The returned Config has NOT been validated; the
// caller should invoke Config.Validate() after Load.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, err
	}

	// Load .env file if present (silently ignore if missing).
	_ = godotenv.Load()

	applyEnvOverrides(&cfg)

	return &cfg, nil
}

// applyEnvOverrides reads well-known COPYBOT_* environment variables and
// overwrites the corresponding Config fields when a variable is set. This
// lets operators inject secrets at deploy time without touching the TOML
// file.
func applyEnvOverrides(cfg *Config) {
	// ── Wallet ──
	setStr(&cfg.Wallet.PrivateKey, "COPYBOT_WALLET_PRIVATE_KEY")
	setStr(&cfg.Wallet.ProxyAddress, "COPYBOT_WALLET_PROXY_ADDRESS")
	setStr(&cfg.Wallet.EncryptedKeyPath, "COPYBOT_WALLET_ENCRYPTED_KEY_PATH")
	setStr(&cfg.Wallet.KeyPassword, "COPYBOT_WALLET_KEY_PASSWORD")

	// ── Polymarket ──
	setStr(&cfg.Polymarket.ClobHost, "COPYBOT_POLYMARKET_CLOB_HOST")
	setStr(&cfg.Polymarket.DataHost, "COPYBOT_POLYMARKET_DATA_HOST")
	setStr(&cfg.Polymarket.WsHost, "COPYBOT_POLYMARKET_WS_HOST")
	setInt(&cfg.Polymarket.ChainID, "COPYBOT_POLYMARKET_CHAIN_ID")

	// ── Copy policy ──
	setStr(&cfg.Copy.TargetAddress, "COPYBOT_COPY_TARGET_ADDRESS")
	setInt(&cfg.Copy.RetryLimit, "COPYBOT_COPY_RETRY_LIMIT")
	setDuration(&cfg.Copy.PollInterval, "COPYBOT_COPY_POLL_INTERVAL")
	setDuration(&cfg.Copy.StalenessWindow, "COPYBOT_COPY_STALENESS_WINDOW")
	setFloat64(&cfg.Copy.PriceTolerance, "COPYBOT_COPY_PRICE_TOLERANCE")
	setFloat64(&cfg.Copy.MinOrderUSDC, "COPYBOT_COPY_MIN_ORDER_USDC")
	setFloat64(&cfg.Copy.TradeMinPercent, "COPYBOT_COPY_TRADE_MIN_PERCENT")
	setFloat64(&cfg.Copy.FallbackOrderUSDC, "COPYBOT_COPY_FALLBACK_ORDER_USDC")
	setFloat64(&cfg.Copy.FullCopyThreshold, "COPYBOT_COPY_FULL_COPY_THRESHOLD")
	setInt(&cfg.Copy.BatchLimit, "COPYBOT_COPY_BATCH_LIMIT")

	// ── Monitor ──
	setDuration(&cfg.Monitor.FetchInterval, "COPYBOT_MONITOR_FETCH_INTERVAL")
	setInt(&cfg.Monitor.MaxAgeHours, "COPYBOT_MONITOR_MAX_AGE_HOURS")
	setBool(&cfg.Monitor.FeedEnabled, "COPYBOT_MONITOR_FEED_ENABLED")

	// ── Claimer ──
	setBool(&cfg.Claimer.Enabled, "COPYBOT_CLAIMER_ENABLED")
	setDuration(&cfg.Claimer.SweepInterval, "COPYBOT_CLAIMER_SWEEP_INTERVAL")

	// ── Chain ──
	setStr(&cfg.Chain.RPCURL, "COPYBOT_CHAIN_RPC_URL")
	setStr(&cfg.Chain.USDCAddress, "COPYBOT_CHAIN_USDC_ADDRESS")
	setStr(&cfg.Chain.ConditionalTokensAddress, "COPYBOT_CHAIN_CONDITIONAL_TOKENS_ADDRESS")

	// ── Postgres ──
	setStr(&cfg.Postgres.DSN, "COPYBOT_POSTGRES_DSN")
	setStr(&cfg.Postgres.Host, "COPYBOT_POSTGRES_HOST")
	setInt(&cfg.Postgres.Port, "COPYBOT_POSTGRES_PORT")
	setStr(&cfg.Postgres.Database, "COPYBOT_POSTGRES_DATABASE")
	setStr(&cfg.Postgres.User, "COPYBOT_POSTGRES_USER")
	setStr(&cfg.Postgres.Password, "COPYBOT_POSTGRES_PASSWORD")
	setStr(&cfg.Postgres.SSLMode, "COPYBOT_POSTGRES_SSLMODE")
	setInt(&cfg.Postgres.PoolMaxConns, "COPYBOT_POSTGRES_POOL_MAX_CONNS")
	setInt(&cfg.Postgres.PoolMinConns, "COPYBOT_POSTGRES_POOL_MIN_CONNS")
	setBool(&cfg.Postgres.RunMigrations, "COPYBOT_POSTGRES_RUN_MIGRATIONS")

	// ── Redis ──
	setStr(&cfg.Redis.Addr, "COPYBOT_REDIS_ADDR")
	setStr(&cfg.Redis.Password, "COPYBOT_REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "COPYBOT_REDIS_DB")
	setInt(&cfg.Redis.PoolSize, "COPYBOT_REDIS_POOL_SIZE")
	setInt(&cfg.Redis.MaxRetries, "COPYBOT_REDIS_MAX_RETRIES")
	setBool(&cfg.Redis.TLSEnabled, "COPYBOT_REDIS_TLS_ENABLED")

	// ── S3 ──
	setBool(&cfg.S3.Enabled, "COPYBOT_S3_ENABLED")
	setStr(&cfg.S3.Endpoint, "COPYBOT_S3_ENDPOINT")
	setStr(&cfg.S3.Region, "COPYBOT_S3_REGION")
	setStr(&cfg.S3.Bucket, "COPYBOT_S3_BUCKET")
	setStr(&cfg.S3.AccessKey, "COPYBOT_S3_ACCESS_KEY")
	setStr(&cfg.S3.SecretKey, "COPYBOT_S3_SECRET_KEY")
	setBool(&cfg.S3.UseSSL, "COPYBOT_S3_USE_SSL")
	setBool(&cfg.S3.ForcePathStyle, "COPYBOT_S3_FORCE_PATH_STYLE")
	setInt(&cfg.S3.RetentionDays, "COPYBOT_S3_RETENTION_DAYS")

	// ── Top-level ──
	setStr(&cfg.Mode, "COPYBOT_MODE")
	setStr(&cfg.LogLevel, "COPYBOT_LOG_LEVEL")
}

// ---------------------------------------------------------------------------
// Typed env-var helpers. Each only mutates the target when the environment
// variable is present and non-empty.
// ---------------------------------------------------------------------------

func setStr(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setFloat64(dst *float64, key string) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			dst.Duration = d
		}
	}
}
