// Package monitor ingests the target trader's on-chain activity into the
// trade ledger for the copy loop to drain.
package monitor

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/mihnea-popescu/polymarket-copy-trading-bot-v1/internal/domain"
)

// fetchLimit is how many activity rows one poll requests.
const fetchLimit = 100

// ActivitySource serves a wallet's recent on-chain activity, newest first.
type ActivitySource interface {
	GetActivity(ctx context.Context, wallet string, limit, offset int) ([]domain.Activity, error)
}

// Config holds the monitor's polling parameters.
type Config struct {
	TargetWallet  string
	FetchInterval time.Duration
	MaxAge        time.Duration
}

// Monitor polls the target's activity feed and journals new trade fills into
// the ledger, keyed on transaction hash so re-observed rows are no-ops. An
// optional nudge channel (fed by the market WebSocket) triggers an immediate
// poll ahead of the regular schedule.
type Monitor struct {
	source ActivitySource
	ledger domain.ActivityStore
	cfg    Config
	nudge  <-chan struct{}
	logger *slog.Logger

	now func() time.Time
}

// New creates a Monitor. nudge may be nil.
func New(source ActivitySource, ledger domain.ActivityStore, cfg Config, nudge <-chan struct{}, logger *slog.Logger) *Monitor {
	return &Monitor{
		source: source,
		ledger: ledger,
		cfg:    cfg,
		nudge:  nudge,
		logger: logger.With("component", "monitor"),
		now:    time.Now,
	}
}

// Run polls until the context is cancelled.
func (m *Monitor) Run(ctx context.Context) error {
	m.logger.Info("activity monitor started",
		"target", m.cfg.TargetWallet, "fetch_interval", m.cfg.FetchInterval)

	ticker := time.NewTicker(m.cfg.FetchInterval)
	defer ticker.Stop()

	for {
		if _, err := m.PollOnce(ctx); err != nil {
			m.logger.Warn("activity poll failed", "error", err)
		}

		select {
		case <-ctx.Done():
			m.logger.Info("activity monitor stopped")
			return ctx.Err()
		case <-ticker.C:
		case <-m.nudge:
		}
	}
}

// PollOnce fetches the target's recent activity and journals unseen trade
// fills. Returns how many new rows were inserted.
func (m *Monitor) PollOnce(ctx context.Context) (int, error) {
	acts, err := m.source.GetActivity(ctx, m.cfg.TargetWallet, fetchLimit, 0)
	if err != nil {
		return 0, fmt.Errorf("monitor: fetch activity: %w", err)
	}

	now := m.now()
	inserted := 0
	for _, act := range acts {
		if act.Type != domain.ActivityTypeTrade {
			continue
		}
		if m.cfg.MaxAge > 0 && act.Age(now) > m.cfg.MaxAge {
			continue
		}

		fresh, err := m.ledger.InsertIfNew(ctx, act)
		if err != nil {
			m.logger.Warn("journaling activity failed",
				"tx", act.TransactionHash, "error", err)
			continue
		}
		if fresh {
			inserted++
			m.logger.Info("journaled target trade",
				"tx", act.TransactionHash,
				"side", string(act.Side),
				"usdc", act.USDCSize,
				"condition", act.ConditionID,
			)
		}
	}
	return inserted, nil
}
