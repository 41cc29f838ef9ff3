// Package claimer sweeps redeemable positions on resolved markets and
// converts winning outcome shares back into USDC collateral.
package claimer

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/mihnea-popescu/polymarket-copy-trading-bot-v1/internal/domain"
)

// PositionSource serves a wallet's redeemable positions.
type PositionSource interface {
	GetRedeemablePositions(ctx context.Context, wallet string) ([]domain.Position, error)
}

// Redeemer submits on-chain redemption transactions.
type Redeemer interface {
	Redeem(ctx context.Context, conditionID string) (string, error)
	WaitMined(ctx context.Context, txHash string) error
}

// Claimer periodically sweeps the follower wallet for redeemable positions
// and submits one redeemPositions transaction per resolved market. Fully
// independent of the copy loop; a missed sweep just waits for the next tick.
type Claimer struct {
	source   PositionSource
	redeemer Redeemer
	wallet   string
	interval time.Duration
	logger   *slog.Logger
}

// New creates a Claimer sweeping the given wallet.
func New(source PositionSource, redeemer Redeemer, wallet string, interval time.Duration, logger *slog.Logger) *Claimer {
	return &Claimer{
		source:   source,
		redeemer: redeemer,
		wallet:   wallet,
		interval: interval,
		logger:   logger.With("component", "claimer"),
	}
}

// Run sweeps until the context is cancelled.
func (c *Claimer) Run(ctx context.Context) error {
	c.logger.Info("redemption sweeper started", "interval", c.interval)

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		if n, err := c.SweepOnce(ctx); err != nil {
			c.logger.Warn("redemption sweep failed", "error", err)
		} else if n > 0 {
			c.logger.Info("redeemed resolved markets", "count", n)
		}

		select {
		case <-ctx.Done():
			c.logger.Info("redemption sweeper stopped")
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// SweepOnce redeems every market with a positive redeemable position and
// returns how many redemption transactions were confirmed. One market's
// failure does not stop the sweep.
func (c *Claimer) SweepOnce(ctx context.Context) (int, error) {
	positions, err := c.source.GetRedeemablePositions(ctx, c.wallet)
	if err != nil {
		return 0, fmt.Errorf("claimer: fetch redeemable positions: %w", err)
	}

	// One transaction per market even when both outcome tokens are held.
	seen := make(map[string]bool, len(positions))
	redeemed := 0
	for _, pos := range positions {
		if pos.Size <= 0 || seen[pos.ConditionID] {
			continue
		}
		seen[pos.ConditionID] = true

		txHash, err := c.redeemer.Redeem(ctx, pos.ConditionID)
		if err != nil {
			c.logger.Warn("redeem failed",
				"condition", pos.ConditionID, "title", pos.Title, "error", err)
			continue
		}

		c.logger.Info("redeem submitted",
			"condition", pos.ConditionID, "shares", pos.Size, "tx", txHash)

		waitCtx, cancel := context.WithTimeout(ctx, 2*time.Minute)
		err = c.redeemer.WaitMined(waitCtx, txHash)
		cancel()
		if err != nil {
			c.logger.Warn("redeem confirmation failed", "tx", txHash, "error", err)
			continue
		}
		redeemed++
	}
	return redeemed, nil
}
