package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// validConfig returns Defaults with the fields Validate requires filled in.
func validConfig() Config {
	cfg := Defaults()
	cfg.Wallet.PrivateKey = "0xabc123"
	cfg.Wallet.ProxyAddress = "0x1111111111111111111111111111111111111111"
	cfg.Copy.TargetAddress = "0x2222222222222222222222222222222222222222"
	cfg.Chain.RPCURL = "https://polygon-rpc.com"
	return cfg
}

func TestDefaultsAreValidOnceRequiredFieldsSet(t *testing.T) {
	cfg := validConfig()
	assert.NoError(t, cfg.Validate())
}

func TestValidateRejections(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:    "unknown mode",
			mutate:  func(c *Config) { c.Mode = "turbo" },
			wantErr: "unknown mode",
		},
		{
			name:    "unknown log level",
			mutate:  func(c *Config) { c.LogLevel = "verbose" },
			wantErr: "unknown log_level",
		},
		{
			name: "no key source in trading mode",
			mutate: func(c *Config) {
				c.Wallet.PrivateKey = ""
				c.Wallet.EncryptedKeyPath = ""
			},
			wantErr: "private_key or encrypted_key_path",
		},
		{
			name: "encrypted key without password",
			mutate: func(c *Config) {
				c.Wallet.PrivateKey = ""
				c.Wallet.EncryptedKeyPath = "wallet.key.json"
				c.Wallet.KeyPassword = ""
			},
			wantErr: "key_password is required",
		},
		{
			name:    "missing target address",
			mutate:  func(c *Config) { c.Copy.TargetAddress = "" },
			wantErr: "target_address",
		},
		{
			name:    "zero retry limit",
			mutate:  func(c *Config) { c.Copy.RetryLimit = 0 },
			wantErr: "retry_limit",
		},
		{
			name:    "price tolerance out of range",
			mutate:  func(c *Config) { c.Copy.PriceTolerance = 1.5 },
			wantErr: "price_tolerance",
		},
		{
			name:    "missing rpc url in trading mode",
			mutate:  func(c *Config) { c.Chain.RPCURL = "" },
			wantErr: "rpc_url",
		},
		{
			name:    "s3 enabled without bucket",
			mutate:  func(c *Config) { c.S3.Enabled = true; c.S3.Bucket = "" },
			wantErr: "bucket",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestClaimModeSkipsTargetAddress(t *testing.T) {
	cfg := validConfig()
	cfg.Mode = "claim"
	cfg.Copy.TargetAddress = ""
	assert.NoError(t, cfg.Validate())
}

func TestMonitorModeSkipsWallet(t *testing.T) {
	cfg := validConfig()
	cfg.Mode = "monitor"
	cfg.Wallet.PrivateKey = ""
	cfg.Wallet.ProxyAddress = ""
	cfg.Chain.RPCURL = ""
	assert.NoError(t, cfg.Validate())
}

func TestLoadMergesFileOverDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	body := `
mode = "copy"
log_level = "debug"

[copy]
target_address = "0xtarget"
retry_limit = 5
poll_interval = "500ms"
staleness_window = "10m"
`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "copy", cfg.Mode)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "0xtarget", cfg.Copy.TargetAddress)
	assert.Equal(t, 5, cfg.Copy.RetryLimit)
	assert.Equal(t, 500*time.Millisecond, cfg.Copy.PollInterval.Duration)
	assert.Equal(t, 10*time.Minute, cfg.Copy.StalenessWindow.Duration)

	// Untouched sections keep their defaults.
	assert.Equal(t, "https://clob.polymarket.com", cfg.Polymarket.ClobHost)
	assert.Equal(t, 137, cfg.Polymarket.ChainID)
	assert.Equal(t, 0.05, cfg.Copy.PriceTolerance)
}

func TestLoadAppliesEnvOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(`mode = "monitor"`), 0o600))

	t.Setenv("COPYBOT_MODE", "full")
	t.Setenv("COPYBOT_COPY_TARGET_ADDRESS", "0xenvtarget")
	t.Setenv("COPYBOT_COPY_PRICE_TOLERANCE", "0.02")
	t.Setenv("COPYBOT_COPY_POLL_INTERVAL", "3s")
	t.Setenv("COPYBOT_POSTGRES_RUN_MIGRATIONS", "false")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "full", cfg.Mode)
	assert.Equal(t, "0xenvtarget", cfg.Copy.TargetAddress)
	assert.Equal(t, 0.02, cfg.Copy.PriceTolerance)
	assert.Equal(t, 3*time.Second, cfg.Copy.PollInterval.Duration)
	assert.False(t, cfg.Postgres.RunMigrations)
}

func TestLoadMissingFileFails(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	assert.Error(t, err)
}
