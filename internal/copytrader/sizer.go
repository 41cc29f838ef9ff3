package copytrader

import "github.com/mihnea-popescu/polymarket-copy-trading-bot-v1/internal/domain"

// Sizer computes the target amount to execute for a replication action,
// before live-liquidity clipping. Buy targets are USDC notionals; sell and
// merge targets are share quantities. Pure computation over already-fetched
// balances and positions; minimum-order and liquidity limits belong to the
// Executor, which has live book data.
type Sizer struct {
	policy Policy
}

// NewSizer creates a Sizer with the given policy.
func NewSizer(policy Policy) Sizer {
	return Sizer{policy: policy}
}

// Target returns the amount to execute. A non-positive return means there is
// nothing to copy and the caller should finish without submitting.
func (s Sizer) Target(action Action, trade domain.Activity, myBalance, targetBalance float64, myPos, targetPos *domain.Position) float64 {
	switch action {
	case ActionBuy:
		return s.buyTarget(trade, myBalance, targetBalance)
	case ActionSell:
		return sellTarget(trade, myPos, targetPos)
	case ActionMerge:
		if myPos == nil {
			return 0
		}
		return myPos.Size
	}
	return 0
}

// buyTarget scales the observed notional by the wealth ratio
// myBalance / (targetBalance + notional), so a smaller follower copies a
// proportionally smaller dollar amount. Trades at or under the full-copy
// threshold are copied one-to-one instead: the ratio of a few dollars of
// notional rounds to dust.
func (s Sizer) buyTarget(trade domain.Activity, myBalance, targetBalance float64) float64 {
	if trade.USDCSize <= 0 || myBalance <= 0 {
		return 0
	}
	if trade.USDCSize <= s.policy.FullCopyThreshold {
		return trade.USDCSize
	}
	ratio := myBalance / (targetBalance + trade.USDCSize)
	return trade.USDCSize * ratio
}

// sellTarget mirrors the fraction of the combined position the target just
// exited. With no remaining target position the follower exits entirely.
func sellTarget(trade domain.Activity, myPos, targetPos *domain.Position) float64 {
	if myPos == nil || myPos.Size <= 0 {
		return 0
	}
	if targetPos == nil || targetPos.Size <= 0 {
		return myPos.Size
	}
	fraction := trade.Size / (targetPos.Size + trade.Size)
	return myPos.Size * fraction
}
