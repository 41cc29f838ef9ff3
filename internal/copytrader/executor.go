package copytrader

import (
	"context"
	"log/slog"
	"math"

	"github.com/mihnea-popescu/polymarket-copy-trading-bot-v1/internal/domain"
)

// maxSignatureErrors is the consecutive-rejection count at which signature
// failures stop being treated as transient and abort the trade as a
// configuration fault. Independent of the retry limit.
const maxSignatureErrors = 3

// Outcome is the terminal state of one execution run.
type Outcome string

const (
	OutcomeDone           Outcome = "DONE"
	OutcomeAborted        Outcome = "ABORTED"
	OutcomeRetryExhausted Outcome = "RETRY_EXHAUSTED"
)

// Result is the terminal disposition of one trade-copy attempt. Filled is in
// USDC for buys and in shares for sells and merges.
type Result struct {
	Outcome    Outcome
	RetryCount int
	Reason     string
	Filled     float64
}

// executionState is the per-trade loop state. One instance per copy attempt,
// discarded on exit.
type executionState struct {
	remaining      float64
	retryCount     int
	fallbackActive bool
	sigErrors      int
	filled         float64
}

// Executor drives the order-submission loop for one sized trade: fetch a
// fresh book, derive an executable clip under liquidity, minimum-order, and
// balance constraints, submit fill-or-kill, and update retry/fallback state
// until the target is exhausted or a terminal condition fires.
type Executor struct {
	venue    Venue
	markets  *marketSource
	balances BalanceReader
	wallet   string
	policy   Policy
	logger   *slog.Logger
}

// NewExecutor creates an Executor trading from the given follower wallet.
func NewExecutor(venue Venue, cache domain.MarketCache, balances BalanceReader, wallet string, policy Policy, logger *slog.Logger) *Executor {
	return &Executor{
		venue:    venue,
		markets:  &marketSource{venue: venue, cache: cache},
		balances: balances,
		wallet:   wallet,
		policy:   policy,
		logger:   logger.With("component", "executor"),
	}
}

// Run executes the copy loop for one trade and returns its terminal result.
// It never returns an error: every failure mode maps to a Result so the
// caller can record exactly one disposition in the ledger.
func (e *Executor) Run(ctx context.Context, trade domain.Activity, action Action, target float64, tokenID string) Result {
	st := &executionState{remaining: target}

	if target <= 0 {
		return Result{Outcome: OutcomeDone}
	}

	log := e.logger.With(
		"tx", trade.TransactionHash,
		"action", string(action),
		"token", tokenID,
	)

	for {
		if st.retryCount >= e.policy.RetryLimit {
			log.Warn("retry budget exhausted", "retries", st.retryCount, "filled", st.filled)
			return Result{
				Outcome:    OutcomeRetryExhausted,
				RetryCount: st.retryCount,
				Reason:     "retry limit reached",
				Filled:     st.filled,
			}
		}
		if err := ctx.Err(); err != nil {
			return e.abort(st, "context cancelled: "+err.Error())
		}

		book, err := e.venue.GetOrderBook(ctx, tokenID)
		if err != nil {
			log.Warn("orderbook fetch failed", "error", err)
			return e.abort(st, "orderbook fetch failed: "+err.Error())
		}

		var clip, price float64
		var abortReason string
		if action == ActionBuy {
			clip, price, abortReason = e.buyClip(ctx, st, trade, book)
		} else {
			clip, price, abortReason = e.sellClip(st, book)
		}
		if abortReason != "" {
			log.Warn("aborting trade", "reason", abortReason, "filled", st.filled)
			return e.abort(st, abortReason)
		}

		side := domain.OrderSideSell
		if action == ActionBuy {
			side = domain.OrderSideBuy
		}

		res, err := e.venue.PostMarketOrder(ctx, domain.MarketOrderArgs{
			Side:    side,
			TokenID: tokenID,
			Amount:  clip,
			Price:   price,
		})
		if err != nil {
			// Transport failure: consumes retry budget like a rejection but
			// carries no signature signal.
			st.retryCount++
			st.sigErrors = 0
			log.Warn("order submission error", "error", err, "retries", st.retryCount)
			continue
		}

		if !res.Success {
			st.retryCount++
			if res.SignatureRejected() {
				st.sigErrors++
				log.Warn("order signature rejected",
					"consecutive", st.sigErrors, "retries", st.retryCount)
				if st.sigErrors >= maxSignatureErrors {
					return e.abort(st, domain.ErrSignatureRejected.Error())
				}
				// Probe with a small fixed amount next iteration; whatever
				// is rejecting us may accept a smaller order.
				st.fallbackActive = true
			} else {
				st.sigErrors = 0
				log.Warn("order rejected", "error", res.ErrorMsg, "retries", st.retryCount)
			}
			continue
		}

		st.retryCount = 0
		st.fallbackActive = false
		st.sigErrors = 0
		st.filled += clip
		st.remaining -= clip
		log.Info("clip filled",
			"order_id", res.OrderID, "amount", clip, "price", price, "remaining", st.remaining)

		if st.remaining <= 1e-9 {
			return Result{Outcome: OutcomeDone, Filled: st.filled}
		}
	}
}

// abort builds the terminal result for a hard stop. The retry counter at
// abort time is preserved so repeated signature failures stay auditable.
func (e *Executor) abort(st *executionState, reason string) Result {
	return Result{
		Outcome:    OutcomeAborted,
		RetryCount: st.retryCount,
		Reason:     reason,
		Filled:     st.filled,
	}
}

// buyClip derives the next USDC clip for a buy, or an abort reason. The clip
// is bounded by best-ask liquidity and the freshly fetched balance, floored
// at the per-trade minimum, with a round-up to the smallest affordable share
// multiple when the remainder alone cannot clear the minimum. An active
// fallback probe skips the per-trade minimum entirely: the whole point of
// the probe is to stay small.
func (e *Executor) buyClip(ctx context.Context, st *executionState, trade domain.Activity, book domain.OrderbookSnapshot) (clip, price float64, abortReason string) {
	best, ok := book.BestAsk()
	if !ok {
		return 0, 0, domain.ErrNoLiquidity.Error()
	}
	if best.Price > trade.Price+e.policy.PriceTolerance {
		return 0, 0, domain.ErrPriceDrift.Error()
	}

	// A failed status check is non-fatal; only a definite "closed" aborts.
	if market, err := e.markets.Get(ctx, trade.ConditionID); err == nil && !market.AcceptsOrders() {
		return 0, 0, domain.ErrMarketClosed.Error()
	}

	balance, err := e.balances.USDCBalance(ctx, e.wallet)
	if err != nil {
		return 0, 0, "balance fetch failed: " + err.Error()
	}

	min := e.policy.TradeMinimum(trade.USDCSize)
	liquidity := best.Size * best.Price

	if st.fallbackActive {
		// The probe stays at the small fixed amount no matter how large the
		// observed trade is; only the venue's absolute floor applies.
		clip = e.policy.FallbackOrderUSDC
		if clip > liquidity {
			clip = liquidity
		}
		if clip > balance {
			clip = balance
		}
		if clip < e.policy.MinOrderUSDC {
			return 0, 0, domain.ErrBelowMinimum.Error()
		}
		return clip, best.Price, ""
	}

	clip = st.remaining
	if clip > liquidity {
		clip = liquidity
	}

	if clip < min {
		// Round up to the smallest whole-share multiple of the best ask
		// that clears the minimum, provided liquidity and balance allow.
		shares := math.Ceil(min / best.Price)
		rounded := shares * best.Price
		if rounded > liquidity {
			return 0, 0, domain.ErrBelowMinimum.Error()
		}
		if rounded > balance {
			return 0, 0, domain.ErrInsufficientBalance.Error()
		}
		clip = rounded
	}

	if clip > balance {
		clip = balance
		if clip < min {
			return 0, 0, domain.ErrInsufficientBalance.Error()
		}
	}

	return clip, best.Price, ""
}

// sellClip derives the next share clip for a sell or merge, or an abort
// reason. Sells spend no balance, so only liquidity and the venue minimum
// bound the clip.
func (e *Executor) sellClip(st *executionState, book domain.OrderbookSnapshot) (clip, price float64, abortReason string) {
	best, ok := book.BestBid()
	if !ok {
		return 0, 0, domain.ErrNoLiquidity.Error()
	}

	clip = st.remaining
	if clip > best.Size {
		clip = best.Size
	}
	if st.fallbackActive {
		if probe := e.policy.FallbackOrderUSDC / best.Price; probe < clip {
			clip = probe
		}
	}

	if clip*best.Price < e.policy.MinOrderUSDC {
		return 0, 0, domain.ErrBelowMinimum.Error()
	}

	return clip, best.Price, ""
}
