package copytrader

import (
	"context"
	"log/slog"
	"time"

	"github.com/mihnea-popescu/polymarket-copy-trading-bot-v1/internal/domain"
)

// EligibilityPredicate filters which journaled trades get replicated. Nil
// means every trade is eligible.
type EligibilityPredicate func(domain.Activity) bool

// OrchestratorParams wires the orchestrator's collaborators.
type OrchestratorParams struct {
	Ledger   domain.ActivityStore
	Accounts AccountData
	Balances BalanceReader
	Resolver *TokenResolver
	Executor *Executor
	Policy   Policy

	// TargetWallet is the trader being copied; FollowerWallet holds the
	// follower's positions and collateral.
	TargetWallet   string
	FollowerWallet string

	Eligible EligibilityPredicate
	Logger   *slog.Logger
}

// Orchestrator drains unprocessed trades from the ledger newest-first and
// runs each through classify, size, resolve, and execute, sequentially. One
// trade replicates at a time, so no two execution loops contend for the
// follower's balance or positions.
type Orchestrator struct {
	ledger   domain.ActivityStore
	accounts AccountData
	balances BalanceReader
	sizer    Sizer
	resolver *TokenResolver
	executor *Executor
	policy   Policy
	target   string
	follower string
	eligible EligibilityPredicate
	logger   *slog.Logger

	// now is swappable for staleness tests.
	now func() time.Time
}

// NewOrchestrator creates an Orchestrator from params.
func NewOrchestrator(p OrchestratorParams) *Orchestrator {
	return &Orchestrator{
		ledger:   p.Ledger,
		accounts: p.Accounts,
		balances: p.Balances,
		sizer:    NewSizer(p.Policy),
		resolver: p.Resolver,
		executor: p.Executor,
		policy:   p.Policy,
		target:   p.TargetWallet,
		follower: p.FollowerWallet,
		eligible: p.Eligible,
		logger:   p.Logger.With("component", "orchestrator"),
		now:      time.Now,
	}
}

// Run polls the ledger until the context is cancelled.
func (o *Orchestrator) Run(ctx context.Context) error {
	o.logger.Info("copy loop started",
		"target", o.target, "poll_interval", o.policy.PollInterval)

	ticker := time.NewTicker(o.policy.PollInterval)
	defer ticker.Stop()

	for {
		o.DrainOnce(ctx)

		select {
		case <-ctx.Done():
			o.logger.Info("copy loop stopped")
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// DrainOnce processes the current batch of unprocessed trades, newest first.
func (o *Orchestrator) DrainOnce(ctx context.Context) {
	trades, err := o.ledger.ListUnprocessed(ctx, o.policy.RetryLimit, o.policy.BatchLimit)
	if err != nil {
		o.logger.Error("listing unprocessed trades failed", "error", err)
		return
	}

	for _, trade := range trades {
		if ctx.Err() != nil {
			return
		}
		o.copyTrade(ctx, trade)
	}
}

// copyTrade replicates a single trade and records exactly one terminal
// disposition in the ledger. Data-fetch failures abort the trade rather than
// the loop: an unfetchable trade must not block the queue.
func (o *Orchestrator) copyTrade(ctx context.Context, trade domain.Activity) {
	log := o.logger.With("tx", trade.TransactionHash, "condition", trade.ConditionID)

	if age := trade.Age(o.now()); age > o.policy.StalenessWindow {
		log.Info("skipping stale trade", "age", age)
		o.finish(ctx, trade.ID, 0)
		return
	}

	if o.eligible != nil && !o.eligible(trade) {
		log.Info("trade filtered by eligibility policy")
		o.finish(ctx, trade.ID, 0)
		return
	}

	myPositions, err := o.accounts.GetPositions(ctx, o.follower)
	if err != nil {
		log.Warn("fetching follower positions failed", "error", err)
		o.finish(ctx, trade.ID, 0)
		return
	}
	targetPositions, err := o.accounts.GetPositions(ctx, o.target)
	if err != nil {
		log.Warn("fetching target positions failed", "error", err)
		o.finish(ctx, trade.ID, 0)
		return
	}

	myPos := domain.FindByCondition(myPositions, trade.ConditionID)
	targetPos := domain.FindByCondition(targetPositions, trade.ConditionID)

	action := Classify(trade.Side, myPos, targetPos)

	var myBalance, targetBalance float64
	if action == ActionBuy {
		if myBalance, err = o.balances.USDCBalance(ctx, o.follower); err != nil {
			log.Warn("fetching follower balance failed", "error", err)
			o.finish(ctx, trade.ID, 0)
			return
		}
		if targetBalance, err = o.balances.USDCBalance(ctx, o.target); err != nil {
			log.Warn("fetching target balance failed", "error", err)
			o.finish(ctx, trade.ID, 0)
			return
		}
	}

	target := o.sizer.Target(action, trade, myBalance, targetBalance, myPos, targetPos)
	if target <= 0 {
		log.Info("nothing to copy", "action", string(action))
		o.finish(ctx, trade.ID, 0)
		return
	}

	tokenID, err := o.resolver.Resolve(ctx, trade, myPos, targetPos)
	if err != nil {
		log.Warn("token resolution failed", "error", err)
		o.finish(ctx, trade.ID, 0)
		return
	}

	result := o.executor.Run(ctx, trade, action, target, tokenID)
	log.Info("trade copy finished",
		"action", string(action),
		"outcome", string(result.Outcome),
		"filled", result.Filled,
		"retries", result.RetryCount,
		"reason", result.Reason,
	)

	o.finish(ctx, trade.ID, result.RetryCount)
}

// finish marks the trade processed with the final retry counter. The write
// is detached from caller cancellation: a shutdown that aborts a partially
// filled trade must still record its disposition, or the whole trade would
// be re-executed on restart.
func (o *Orchestrator) finish(ctx context.Context, id int64, retryCount int) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()

	if err := o.ledger.MarkProcessed(ctx, id, retryCount); err != nil {
		o.logger.Error("marking trade processed failed", "id", id, "error", err)
	}
}
