package copytrader

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mihnea-popescu/polymarket-copy-trading-bot-v1/internal/domain"
)

func TestTokenResolverStrategyOrder(t *testing.T) {
	trade := domain.Activity{
		Asset:        "tok-trade",
		ConditionID:  "0xc1",
		OutcomeIndex: 1,
	}

	venue := &fakeVenue{market: openMarket("tok-yes", "tok-no")}
	lookup := &fakeLookup{market: openMarket("tok-data-yes", "tok-data-no")}
	resolver := NewTokenResolver(venue, nil, lookup, discardLogger())
	ctx := context.Background()

	t.Run("own position asset wins", func(t *testing.T) {
		tok, err := resolver.Resolve(ctx, trade,
			&domain.Position{Asset: "tok-mine"},
			&domain.Position{Asset: "tok-theirs"})
		require.NoError(t, err)
		assert.Equal(t, "tok-mine", tok)
	})

	t.Run("target position asset is second", func(t *testing.T) {
		tok, err := resolver.Resolve(ctx, trade, nil, &domain.Position{Asset: "tok-theirs"})
		require.NoError(t, err)
		assert.Equal(t, "tok-theirs", tok)
	})

	t.Run("trade asset is third", func(t *testing.T) {
		tok, err := resolver.Resolve(ctx, trade, nil, nil)
		require.NoError(t, err)
		assert.Equal(t, "tok-trade", tok)
	})

	t.Run("clob token table by outcome index", func(t *testing.T) {
		bare := trade
		bare.Asset = ""
		tok, err := resolver.Resolve(ctx, bare, nil, nil)
		require.NoError(t, err)
		assert.Equal(t, "tok-no", tok)
	})
}

func TestTokenResolverDataAPIFallback(t *testing.T) {
	trade := domain.Activity{ConditionID: "0xc1", OutcomeIndex: 0}

	venue := &fakeVenue{marketErr: errors.New("clob 502")}
	lookup := &fakeLookup{market: openMarket("tok-data-yes", "tok-data-no")}
	resolver := NewTokenResolver(venue, nil, lookup, discardLogger())

	tok, err := resolver.Resolve(context.Background(), trade, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, "tok-data-yes", tok)
}

func TestTokenResolverExhaustedStrategies(t *testing.T) {
	trade := domain.Activity{ConditionID: "0xc1", OutcomeIndex: 0}

	venue := &fakeVenue{marketErr: errors.New("clob 502")}
	lookup := &fakeLookup{err: errors.New("data api 502")}
	resolver := NewTokenResolver(venue, nil, lookup, discardLogger())

	_, err := resolver.Resolve(context.Background(), trade, nil, nil)
	assert.ErrorIs(t, err, domain.ErrTokenResolution)
}

func TestTokenResolverOutcomeIndexOutOfRange(t *testing.T) {
	trade := domain.Activity{ConditionID: "0xc1", OutcomeIndex: 5}

	venue := &fakeVenue{market: openMarket("tok-yes", "tok-no")}
	lookup := &fakeLookup{market: openMarket("tok-yes", "tok-no")}
	resolver := NewTokenResolver(venue, nil, lookup, discardLogger())

	_, err := resolver.Resolve(context.Background(), trade, nil, nil)
	assert.ErrorIs(t, err, domain.ErrTokenResolution)
}
