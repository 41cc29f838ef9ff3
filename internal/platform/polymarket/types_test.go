package polymarket

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mihnea-popescu/polymarket-copy-trading-bot-v1/internal/domain"
)

func TestFlexBoolAcceptsBoolAndString(t *testing.T) {
	tests := []struct {
		raw  string
		want bool
	}{
		{`true`, true},
		{`false`, false},
		{`"true"`, true},
		{`"True"`, true},
		{`"false"`, false},
		{`"1"`, true},
		{`"0"`, false},
	}
	for _, tt := range tests {
		var f flexBool
		require.NoError(t, json.Unmarshal([]byte(tt.raw), &f), tt.raw)
		assert.Equal(t, tt.want, bool(f), tt.raw)
	}
}

func TestFlexFloatAcceptsNumberAndString(t *testing.T) {
	var f flexFloat
	require.NoError(t, json.Unmarshal([]byte(`0.57`), &f))
	assert.Equal(t, 0.57, float64(f))

	require.NoError(t, json.Unmarshal([]byte(`"12.5"`), &f))
	assert.Equal(t, 12.5, float64(f))

	assert.Error(t, json.Unmarshal([]byte(`"abc"`), &f))
}

func TestAPIMarketToDomain(t *testing.T) {
	raw := `{
		"condition_id": "0xcond",
		"question": "Will it rain?",
		"tokens": [
			{"token_id": "111", "outcome": "Yes"},
			{"token_id": "222", "outcome": "No"}
		],
		"closed": "false",
		"accepting_orders": true,
		"enable_order_book": true,
		"neg_risk": "true"
	}`

	var m APIMarket
	require.NoError(t, json.Unmarshal([]byte(raw), &m))

	dm := m.ToDomainMarket()
	assert.Equal(t, "0xcond", dm.ConditionID)
	assert.False(t, dm.Closed)
	assert.True(t, dm.AcceptingOrders)
	assert.True(t, dm.NegRisk)
	assert.Equal(t, []string{"111", "222"}, dm.TokenIDs)
}

func TestAPIBookToDomainSnapshot(t *testing.T) {
	raw := `{
		"asset_id": "111",
		"bids": [{"price": "0.48", "size": "120"}],
		"asks": [{"price": "0.52", "size": "80"}, {"price": "0.55", "size": "40"}],
		"timestamp": "1700000000000"
	}`

	var b APIBook
	require.NoError(t, json.Unmarshal([]byte(raw), &b))

	snap := b.ToDomainSnapshot()
	assert.Equal(t, "111", snap.AssetID)
	require.Len(t, snap.Bids, 1)
	require.Len(t, snap.Asks, 2)
	assert.Equal(t, domain.PriceLevel{Price: 0.48, Size: 120}, snap.Bids[0])
	assert.Equal(t, domain.PriceLevel{Price: 0.52, Size: 80}, snap.Asks[0])
	assert.Equal(t, time.UnixMilli(1700000000000), snap.Timestamp)
}

func TestAPIActivityToDomain(t *testing.T) {
	raw := `{
		"proxyWallet": "0xtarget",
		"timestamp": 1700000123,
		"conditionId": "0xcond",
		"type": "TRADE",
		"size": "40",
		"usdcSize": 20.8,
		"transactionHash": "0xdeadbeef",
		"price": "0.52",
		"asset": "111",
		"side": "BUY",
		"outcomeIndex": 0
	}`

	var a APIActivity
	require.NoError(t, json.Unmarshal([]byte(raw), &a))

	act := a.ToDomainActivity()
	assert.Equal(t, domain.ActivityTypeTrade, act.Type)
	assert.Equal(t, "0xdeadbeef", act.TransactionHash)
	assert.Equal(t, domain.OrderSideBuy, act.Side)
	assert.Equal(t, 40.0, act.Size)
	assert.Equal(t, 20.8, act.USDCSize)
	assert.Equal(t, 0.52, act.Price)
	assert.Equal(t, int64(1700000123), act.Timestamp)
}

func TestAPIDataMarketParsesEmbeddedTokenArray(t *testing.T) {
	raw := `{
		"conditionId": "0xcond",
		"question": "Will it rain?",
		"clobTokenIds": "[\"111\", \"222\"]",
		"closed": false
	}`

	var m APIDataMarket
	require.NoError(t, json.Unmarshal([]byte(raw), &m))

	dm := m.ToDomainMarket()
	assert.Equal(t, []string{"111", "222"}, dm.TokenIDs)
	assert.True(t, dm.AcceptingOrders, "open data-api market is assumed to accept")

	m.Closed = true
	dm = m.ToDomainMarket()
	assert.False(t, dm.AcceptingOrders)
}

func TestWsEventToLastTrade(t *testing.T) {
	e := wsEvent{
		EventType: "last_trade_price",
		AssetID:   "111",
		Price:     "0.61",
		Size:      "15",
		Timestamp: "1700000000000",
	}
	ltp := e.toLastTrade()
	assert.Equal(t, "111", ltp.AssetID)
	assert.Equal(t, 0.61, ltp.Price)
	assert.Equal(t, 15.0, ltp.Size)
	assert.Equal(t, time.UnixMilli(1700000000000), ltp.Timestamp)
}
