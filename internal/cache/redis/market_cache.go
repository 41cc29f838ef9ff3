package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/mihnea-popescu/polymarket-copy-trading-bot-v1/internal/domain"
)

const marketTTL = 5 * time.Minute

// MarketCache implements domain.MarketCache keyed by condition ID. Market
// metadata is immutable for the lifetime of a market except for its
// closed/accepting flags, so a short TTL keeps status reasonably fresh
// while sparing the CLOB API one lookup per copied trade.
type MarketCache struct {
	rdb *redis.Client
}

// NewMarketCache creates a MarketCache backed by the given Client.
func NewMarketCache(c *Client) *MarketCache {
	return &MarketCache{rdb: c.Underlying()}
}

func marketKey(conditionID string) string { return "market:" + conditionID }

// Set stores a Market in the cache under its condition ID.
func (mc *MarketCache) Set(ctx context.Context, market domain.Market) error {
	data, err := json.Marshal(market)
	if err != nil {
		return fmt.Errorf("redis: marshal market %s: %w", market.ConditionID, err)
	}

	if err := mc.rdb.Set(ctx, marketKey(market.ConditionID), data, marketTTL).Err(); err != nil {
		return fmt.Errorf("redis: set market %s: %w", market.ConditionID, err)
	}
	return nil
}

// Get retrieves a Market by condition ID. It returns domain.ErrNotFound on
// a cache miss.
func (mc *MarketCache) Get(ctx context.Context, conditionID string) (domain.Market, error) {
	data, err := mc.rdb.Get(ctx, marketKey(conditionID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return domain.Market{}, domain.ErrNotFound
		}
		return domain.Market{}, fmt.Errorf("redis: get market %s: %w", conditionID, err)
	}

	var market domain.Market
	if err := json.Unmarshal(data, &market); err != nil {
		return domain.Market{}, fmt.Errorf("redis: unmarshal market %s: %w", conditionID, err)
	}
	return market, nil
}

// Invalidate removes a Market from the cache, forcing the next resolution to
// hit the CLOB API. Used when a cached market turns out to be closed.
func (mc *MarketCache) Invalidate(ctx context.Context, conditionID string) error {
	if err := mc.rdb.Del(ctx, marketKey(conditionID)).Err(); err != nil {
		return fmt.Errorf("redis: invalidate market %s: %w", conditionID, err)
	}
	return nil
}

// Compile-time interface check.
var _ domain.MarketCache = (*MarketCache)(nil)
