package copytrader

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/mihnea-popescu/polymarket-copy-trading-bot-v1/internal/domain"
)

// TokenResolver resolves the outcome token ID to trade against. Resolution
// is an ordered list of strategies, each tried at most once:
//
//  1. the follower's live position asset ID,
//  2. the target's live position asset ID,
//  3. the asset ID recorded on the observed trade,
//  4. the CLOB market's token table (through the cache),
//  5. the data API market lookup.
//
// Capping each strategy at one attempt keeps the chain from cycling when
// every source is degraded at once.
type TokenResolver struct {
	markets  *marketSource
	fallback MarketLookup
	logger   *slog.Logger
}

// NewTokenResolver creates a resolver reading market metadata from the venue
// (optionally through cache) with the data API as last resort.
func NewTokenResolver(venue Venue, cache domain.MarketCache, fallback MarketLookup, logger *slog.Logger) *TokenResolver {
	return &TokenResolver{
		markets:  &marketSource{venue: venue, cache: cache},
		fallback: fallback,
		logger:   logger.With("component", "resolver"),
	}
}

// Resolve returns the token ID for the trade's outcome, or
// domain.ErrTokenResolution when every strategy comes up empty.
func (r *TokenResolver) Resolve(ctx context.Context, trade domain.Activity, myPos, targetPos *domain.Position) (string, error) {
	if myPos != nil && myPos.Asset != "" {
		return myPos.Asset, nil
	}
	if targetPos != nil && targetPos.Asset != "" {
		return targetPos.Asset, nil
	}
	if trade.Asset != "" {
		return trade.Asset, nil
	}

	if market, err := r.markets.Get(ctx, trade.ConditionID); err == nil {
		if tok := market.TokenForOutcome(trade.OutcomeIndex); tok != "" {
			return tok, nil
		}
	} else {
		r.logger.Warn("clob market lookup failed",
			"condition_id", trade.ConditionID, "error", err)
	}

	market, err := r.fallback.GetMarketByCondition(ctx, trade.ConditionID)
	if err != nil {
		return "", fmt.Errorf("copytrader: resolve token for %s: %w", trade.ConditionID, domain.ErrTokenResolution)
	}
	if tok := market.TokenForOutcome(trade.OutcomeIndex); tok != "" {
		return tok, nil
	}
	return "", fmt.Errorf("copytrader: no token at outcome %d for %s: %w",
		trade.OutcomeIndex, trade.ConditionID, domain.ErrTokenResolution)
}
