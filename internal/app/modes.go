package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/mihnea-popescu/polymarket-copy-trading-bot-v1/internal/archive"
	"github.com/mihnea-popescu/polymarket-copy-trading-bot-v1/internal/claimer"
	"github.com/mihnea-popescu/polymarket-copy-trading-bot-v1/internal/copytrader"
	"github.com/mihnea-popescu/polymarket-copy-trading-bot-v1/internal/domain"
	"github.com/mihnea-popescu/polymarket-copy-trading-bot-v1/internal/monitor"
)

const (
	// copyLockTTL bounds how long a crashed instance blocks a restart. A live
	// holder refreshes the lock well within this window.
	copyLockTTL = 2 * time.Minute

	// archiveInterval is how often the ledger archiver looks for expired rows.
	archiveInterval = 24 * time.Hour
)

// CopyMode runs only the trade-copy loop.
func (a *App) CopyMode(ctx context.Context, deps *Dependencies) error {
	g, ctx := errgroup.WithContext(ctx)
	if err := a.startCopy(ctx, g, deps); err != nil {
		return err
	}
	return g.Wait()
}

// MonitorMode runs only target-activity ingestion (plus the ledger archiver
// when cold storage is configured).
func (a *App) MonitorMode(ctx context.Context, deps *Dependencies) error {
	g, ctx := errgroup.WithContext(ctx)
	a.startMonitor(ctx, g, deps)
	a.startArchiver(ctx, g, deps)
	return g.Wait()
}

// ClaimMode runs only the redemption sweeper.
func (a *App) ClaimMode(ctx context.Context, deps *Dependencies) error {
	g, ctx := errgroup.WithContext(ctx)
	a.startClaimer(ctx, g, deps)
	return g.Wait()
}

// FullMode runs ingestion, the copy loop, the redemption sweeper, and the
// ledger archiver together. Any service failing cancels the rest.
func (a *App) FullMode(ctx context.Context, deps *Dependencies) error {
	g, ctx := errgroup.WithContext(ctx)

	a.startMonitor(ctx, g, deps)
	if err := a.startCopy(ctx, g, deps); err != nil {
		return err
	}
	if a.cfg.Claimer.Enabled {
		a.startClaimer(ctx, g, deps)
	}
	a.startArchiver(ctx, g, deps)

	return g.Wait()
}

// startCopy acquires the per-target copy lock and launches the orchestrator.
// Returns an error if another instance already replicates this target.
func (a *App) startCopy(ctx context.Context, g *errgroup.Group, deps *Dependencies) error {
	lockName := "copybot:copy:" + strings.ToLower(a.cfg.Copy.TargetAddress)
	unlock, err := deps.LockManager.Acquire(ctx, lockName, copyLockTTL)
	if err != nil {
		if errors.Is(err, domain.ErrLockHeld) {
			return fmt.Errorf("app: another instance is already copying %s: %w",
				a.cfg.Copy.TargetAddress, err)
		}
		return fmt.Errorf("app: acquire copy lock: %w", err)
	}

	policy := a.copyPolicy()

	venue := copytrader.Venue(deps.Clob)
	if deps.RateLimiter != nil {
		venue = copytrader.NewPacedVenue(venue, deps.RateLimiter, "clob:orders")
	}

	resolver := copytrader.NewTokenResolver(venue, deps.MarketCache, deps.Data, a.base)
	executor := copytrader.NewExecutor(venue, deps.MarketCache, deps.Chain,
		deps.FollowerAddress, policy, a.base)

	orch := copytrader.NewOrchestrator(copytrader.OrchestratorParams{
		Ledger:         deps.Ledger,
		Accounts:       deps.Data,
		Balances:       deps.Chain,
		Resolver:       resolver,
		Executor:       executor,
		Policy:         policy,
		TargetWallet:   a.cfg.Copy.TargetAddress,
		FollowerWallet: deps.FollowerAddress,
		Logger:         a.base,
	})

	g.Go(func() error {
		defer unlock()
		return orch.Run(ctx)
	})
	return nil
}

// startMonitor launches activity ingestion, nudged by the market WebSocket
// feed when one is configured.
func (a *App) startMonitor(ctx context.Context, g *errgroup.Group, deps *Dependencies) {
	var nudge <-chan struct{}
	if deps.Feed != nil {
		a.watchTargetAssets(ctx, deps)
		if err := deps.Feed.Connect(ctx); err != nil {
			// The monitor still polls on its regular schedule without the feed.
			a.logger.Warn("market feed unavailable, polling only", "error", err)
		} else {
			nudge = deps.Feed.Trades()
		}
	}

	mon := monitor.New(deps.Data, deps.Ledger, monitor.Config{
		TargetWallet:  a.cfg.Copy.TargetAddress,
		FetchInterval: a.cfg.Monitor.FetchInterval.Duration,
		MaxAge:        time.Duration(a.cfg.Monitor.MaxAgeHours) * time.Hour,
	}, nudge, a.base)

	g.Go(func() error {
		return mon.Run(ctx)
	})
}

// startClaimer launches the redemption sweeper.
func (a *App) startClaimer(ctx context.Context, g *errgroup.Group, deps *Dependencies) {
	cl := claimer.New(deps.Data, deps.Redeemer, deps.FollowerAddress,
		a.cfg.Claimer.SweepInterval.Duration, a.base)

	g.Go(func() error {
		return cl.Run(ctx)
	})
}

// startArchiver launches the ledger archiver when cold storage is wired.
func (a *App) startArchiver(ctx context.Context, g *errgroup.Group, deps *Dependencies) {
	if deps.BlobWriter == nil {
		return
	}

	arc := archive.New(deps.Ledger, deps.BlobWriter, archive.Config{
		Retention: time.Duration(a.cfg.S3.RetentionDays) * 24 * time.Hour,
		Interval:  archiveInterval,
	}, a.base)

	g.Go(func() error {
		return arc.Run(ctx)
	})
}

// watchTargetAssets seeds the feed subscription with the tokens the target
// currently holds, so fills in those markets nudge ingestion immediately.
// Best effort; a failed lookup leaves the subscription empty.
func (a *App) watchTargetAssets(ctx context.Context, deps *Dependencies) {
	positions, err := deps.Data.GetPositions(ctx, a.cfg.Copy.TargetAddress)
	if err != nil {
		a.logger.Warn("seeding feed subscription failed", "error", err)
		return
	}

	assets := make([]string, 0, len(positions))
	for _, pos := range positions {
		if pos.Asset != "" {
			assets = append(assets, pos.Asset)
		}
	}
	deps.Feed.Watch(assets)
}

// copyPolicy maps the copy section of the configuration onto the trading
// policy consumed by the sizer, executor, and orchestrator.
func (a *App) copyPolicy() copytrader.Policy {
	c := a.cfg.Copy
	return copytrader.Policy{
		RetryLimit:        c.RetryLimit,
		PriceTolerance:    c.PriceTolerance,
		MinOrderUSDC:      c.MinOrderUSDC,
		TradeMinPercent:   c.TradeMinPercent,
		FallbackOrderUSDC: c.FallbackOrderUSDC,
		FullCopyThreshold: c.FullCopyThreshold,
		StalenessWindow:   c.StalenessWindow.Duration,
		PollInterval:      c.PollInterval.Duration,
		BatchLimit:        c.BatchLimit,
	}
}
