// Package copytrader implements the trade-copy pipeline: classifying an
// observed target trade, sizing the follower's order, resolving the outcome
// token, and driving the order-submission loop against the live book.
package copytrader

import (
	"context"
	"fmt"
	"time"

	"github.com/mihnea-popescu/polymarket-copy-trading-bot-v1/internal/domain"
)

// Venue is the order-book and order-submission side of the CLOB API.
type Venue interface {
	GetOrderBook(ctx context.Context, tokenID string) (domain.OrderbookSnapshot, error)
	GetMarket(ctx context.Context, conditionID string) (domain.Market, error)
	PostMarketOrder(ctx context.Context, args domain.MarketOrderArgs) (domain.OrderResult, error)
}

// AccountData serves wallet position snapshots from the data API.
type AccountData interface {
	GetPositions(ctx context.Context, wallet string) ([]domain.Position, error)
}

// MarketLookup is the secondary market-metadata source used when the CLOB
// market endpoint cannot resolve a token table.
type MarketLookup interface {
	GetMarketByCondition(ctx context.Context, conditionID string) (domain.Market, error)
}

// BalanceReader reads a wallet's USDC balance.
type BalanceReader interface {
	USDCBalance(ctx context.Context, wallet string) (float64, error)
}

// Policy holds the tunable copy constants. The defaults live in the config
// package; nothing here is structural.
type Policy struct {
	RetryLimit        int
	PriceTolerance    float64
	MinOrderUSDC      float64
	TradeMinPercent   float64
	FallbackOrderUSDC float64
	FullCopyThreshold float64
	StalenessWindow   time.Duration
	PollInterval      time.Duration
	BatchLimit        int
}

// TradeMinimum returns the effective minimum order value for one copied
// trade: the larger of the venue's absolute minimum and a percentage of the
// observed notional, so small target trades still produce meaningful orders.
func (p Policy) TradeMinimum(notional float64) float64 {
	min := p.MinOrderUSDC
	if pct := p.TradeMinPercent * notional; pct > min {
		min = pct
	}
	return min
}

// pacedVenue throttles order submission through a shared rate limiter so a
// burst of copied clips cannot trip the venue's request limits. Read paths
// pass through unthrottled.
type pacedVenue struct {
	Venue
	limiter domain.RateLimiter
	key     string
}

// NewPacedVenue wraps a Venue with order-submission pacing under the given
// limiter key.
func NewPacedVenue(v Venue, limiter domain.RateLimiter, key string) Venue {
	return &pacedVenue{Venue: v, limiter: limiter, key: key}
}

func (p *pacedVenue) PostMarketOrder(ctx context.Context, args domain.MarketOrderArgs) (domain.OrderResult, error) {
	if err := p.limiter.Wait(ctx, p.key); err != nil {
		return domain.OrderResult{}, fmt.Errorf("copytrader: order pacing: %w", err)
	}
	return p.Venue.PostMarketOrder(ctx, args)
}

// marketSource reads market metadata through the cache when one is
// configured, falling back to the venue and populating the cache on a miss.
type marketSource struct {
	venue Venue
	cache domain.MarketCache
}

func (ms *marketSource) Get(ctx context.Context, conditionID string) (domain.Market, error) {
	// A cache miss and a broken cache are treated the same: go to the venue.
	if ms.cache != nil {
		if m, err := ms.cache.Get(ctx, conditionID); err == nil {
			return m, nil
		}
	}

	m, err := ms.venue.GetMarket(ctx, conditionID)
	if err != nil {
		return domain.Market{}, err
	}
	if ms.cache != nil {
		_ = ms.cache.Set(ctx, m)
	}
	return m, nil
}
