package app

import (
	"context"
	"fmt"
	"log/slog"

	s3blob "github.com/mihnea-popescu/polymarket-copy-trading-bot-v1/internal/blob/s3"
	"github.com/mihnea-popescu/polymarket-copy-trading-bot-v1/internal/cache/redis"
	"github.com/mihnea-popescu/polymarket-copy-trading-bot-v1/internal/chain"
	"github.com/mihnea-popescu/polymarket-copy-trading-bot-v1/internal/config"
	"github.com/mihnea-popescu/polymarket-copy-trading-bot-v1/internal/crypto"
	"github.com/mihnea-popescu/polymarket-copy-trading-bot-v1/internal/domain"
	"github.com/mihnea-popescu/polymarket-copy-trading-bot-v1/internal/platform/polymarket"
	"github.com/mihnea-popescu/polymarket-copy-trading-bot-v1/internal/store/postgres"
)

// Dependencies bundles the concrete collaborators the application modes
// operate on. Fields are populated by Wire according to what the configured
// mode needs; unneeded ones stay nil.
type Dependencies struct {
	Ledger      domain.ActivityStore
	MarketCache domain.MarketCache
	LockManager domain.LockManager
	RateLimiter domain.RateLimiter
	BlobWriter  domain.BlobWriter

	Clob *polymarket.ClobClient
	Data *polymarket.DataClient
	Feed *polymarket.MarketFeed

	Chain    *chain.Client
	Redeemer *chain.Redeemer

	// FollowerAddress holds the follower's positions and collateral: the
	// proxy wallet when configured, otherwise the signing address.
	FollowerAddress string
}

// needsPostgres reports whether the mode touches the trade ledger.
func needsPostgres(mode string) bool {
	switch mode {
	case "copy", "monitor", "full":
		return true
	default:
		return false
	}
}

// needsRedis reports whether the mode uses the market cache and copy lock.
func needsRedis(mode string) bool {
	switch mode {
	case "copy", "full":
		return true
	default:
		return false
	}
}

// needsTrading reports whether the mode signs and submits orders.
func needsTrading(mode string) bool {
	return needsRedis(mode)
}

// needsChain reports whether the mode reads balances or redeems positions.
func needsChain(mode string) bool {
	switch mode {
	case "copy", "claim", "full":
		return true
	default:
		return false
	}
}

// Wire constructs all concrete dependency implementations from the given
// configuration and returns them together with a cleanup function that
// should be called on shutdown to release resources.
func Wire(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Dependencies, func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	deps := &Dependencies{}

	// --- Wallet key and signer ---
	var key string
	if needsTrading(cfg.Mode) || needsChain(cfg.Mode) {
		var err error
		key, err = crypto.LoadKey(crypto.KeyConfig{
			RawPrivateKey:    cfg.Wallet.PrivateKey,
			EncryptedKeyPath: cfg.Wallet.EncryptedKeyPath,
			KeyPassword:      cfg.Wallet.KeyPassword,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("wire: wallet key: %w", err)
		}
	}

	// --- Data API (all modes) ---
	deps.Data = polymarket.NewDataClient(cfg.Polymarket.DataHost)

	// --- CLOB client (trading modes) ---
	if needsTrading(cfg.Mode) {
		signer, err := crypto.NewSigner(key, cfg.Polymarket.ChainID)
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: signer: %w", err)
		}

		deps.FollowerAddress = signer.Address().Hex()
		if cfg.Wallet.ProxyAddress != "" {
			deps.FollowerAddress = cfg.Wallet.ProxyAddress
		}

		deps.Clob = polymarket.NewClobClient(cfg.Polymarket.ClobHost, signer, cfg.Wallet.ProxyAddress)
		if err := deps.Clob.DeriveAPIKey(ctx); err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: derive api key: %w", err)
		}
		logger.Info("clob credentials derived", "address", signer.Address().Hex())
	}

	// --- Polygon RPC (balance reads and redemptions) ---
	if needsChain(cfg.Mode) {
		chainClient, err := chain.New(ctx, chain.ClientConfig{
			RPCURL:                   cfg.Chain.RPCURL,
			USDCAddress:              cfg.Chain.USDCAddress,
			ConditionalTokensAddress: cfg.Chain.ConditionalTokensAddress,
			GasLimit:                 cfg.Chain.GasLimit,
			ChainID:                  cfg.Polymarket.ChainID,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: chain: %w", err)
		}
		closers = append(closers, chainClient.Close)
		deps.Chain = chainClient

		redeemer, err := chain.NewRedeemer(chainClient, key)
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: redeemer: %w", err)
		}
		deps.Redeemer = redeemer

		if deps.FollowerAddress == "" {
			deps.FollowerAddress = redeemer.From().Hex()
			if cfg.Wallet.ProxyAddress != "" {
				deps.FollowerAddress = cfg.Wallet.ProxyAddress
			}
		}
	}

	// --- PostgreSQL trade ledger ---
	if needsPostgres(cfg.Mode) {
		pgClient, err := postgres.New(ctx, postgres.ClientConfig{
			DSN:      cfg.Postgres.DSN,
			Host:     cfg.Postgres.Host,
			Port:     cfg.Postgres.Port,
			Database: cfg.Postgres.Database,
			User:     cfg.Postgres.User,
			Password: cfg.Postgres.Password,
			SSLMode:  cfg.Postgres.SSLMode,
			MaxConns: cfg.Postgres.PoolMaxConns,
			MinConns: cfg.Postgres.PoolMinConns,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: postgres: %w", err)
		}
		closers = append(closers, pgClient.Close)

		if cfg.Postgres.RunMigrations {
			if err := pgClient.RunMigrations(ctx); err != nil {
				cleanup()
				return nil, nil, fmt.Errorf("wire: postgres migrations: %w", err)
			}
		}
		deps.Ledger = postgres.NewActivityStore(pgClient.Pool())
	}

	// --- Redis market cache and copy-loop lock ---
	if needsRedis(cfg.Mode) {
		redisClient, err := redis.New(ctx, redis.ClientConfig{
			Addr:       cfg.Redis.Addr,
			Password:   cfg.Redis.Password,
			DB:         cfg.Redis.DB,
			PoolSize:   cfg.Redis.PoolSize,
			MaxRetries: cfg.Redis.MaxRetries,
			TLSEnabled: cfg.Redis.TLSEnabled,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: redis: %w", err)
		}
		closers = append(closers, func() { _ = redisClient.Close() })

		deps.MarketCache = redis.NewMarketCache(redisClient)
		deps.LockManager = redis.NewLockManager(redisClient)
		deps.RateLimiter = redis.NewRateLimiter(redisClient)
	}

	// --- S3 cold storage for the ledger archiver ---
	if cfg.S3.Enabled && needsPostgres(cfg.Mode) {
		s3Client, err := s3blob.New(ctx, s3blob.ClientConfig{
			Endpoint:       cfg.S3.Endpoint,
			Region:         cfg.S3.Region,
			Bucket:         cfg.S3.Bucket,
			AccessKey:      cfg.S3.AccessKey,
			SecretKey:      cfg.S3.SecretKey,
			UseSSL:         cfg.S3.UseSSL,
			ForcePathStyle: cfg.S3.ForcePathStyle,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: s3: %w", err)
		}
		closers = append(closers, func() { _ = s3Client.Close() })
		deps.BlobWriter = s3blob.NewWriter(s3Client)
	}

	// --- Market WebSocket feed (monitor nudging) ---
	if cfg.Monitor.FeedEnabled {
		deps.Feed = polymarket.NewMarketFeed(cfg.Polymarket.WsHost)
		closers = append(closers, func() { _ = deps.Feed.Close() })
	}

	return deps, cleanup, nil
}
