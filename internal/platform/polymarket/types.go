package polymarket

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/mihnea-popescu/polymarket-copy-trading-bot-v1/internal/domain"
)

// flexBool unmarshals from JSON bool or string ("true"/"false") because the
// Polymarket APIs are inconsistent about boolean encoding across endpoints.
type flexBool bool

func (f *flexBool) UnmarshalJSON(data []byte) error {
	var b bool
	if err := json.Unmarshal(data, &b); err == nil {
		*f = flexBool(b)
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	*f = flexBool(strings.EqualFold(s, "true") || s == "1")
	return nil
}

// flexFloat unmarshals from JSON number or numeric string.
type flexFloat float64

func (f *flexFloat) UnmarshalJSON(data []byte) error {
	var n float64
	if err := json.Unmarshal(data, &n); err == nil {
		*f = flexFloat(n)
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	n, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return err
	}
	*f = flexFloat(n)
	return nil
}

// --------------------------------------------------------------------------
// CLOB API DTOs
// --------------------------------------------------------------------------

// APIToken is a token entry inside a CLOB market response.
type APIToken struct {
	TokenID string `json:"token_id"`
	Outcome string `json:"outcome"`
	Winner  bool   `json:"winner"`
}

// APIMarket represents a market as returned by the CLOB API
// (GET /markets/{condition_id}).
type APIMarket struct {
	ConditionID     string     `json:"condition_id"`
	Question        string     `json:"question"`
	Tokens          []APIToken `json:"tokens"`
	Closed          flexBool   `json:"closed"`
	Active          flexBool   `json:"active"`
	AcceptingOrders flexBool   `json:"accepting_orders"`
	EnableOrderBook flexBool   `json:"enable_order_book"`
	NegRisk         flexBool   `json:"neg_risk"`
	MinimumOrdSize  flexFloat  `json:"minimum_order_size"`
}

// ToDomainMarket converts a CLOB APIMarket to a domain.Market.
func (m *APIMarket) ToDomainMarket() domain.Market {
	dm := domain.Market{
		ConditionID:     m.ConditionID,
		Question:        m.Question,
		Closed:          bool(m.Closed),
		AcceptingOrders: bool(m.AcceptingOrders),
		EnableOrderBook: bool(m.EnableOrderBook),
		NegRisk:         bool(m.NegRisk),
	}
	dm.TokenIDs = make([]string, 0, len(m.Tokens))
	for _, tok := range m.Tokens {
		dm.TokenIDs = append(dm.TokenIDs, tok.TokenID)
	}
	return dm
}

// APIBookLevel is a single bid/ask level in a CLOB orderbook response.
type APIBookLevel struct {
	Price string `json:"price"`
	Size  string `json:"size"`
}

// APIBook represents an orderbook snapshot as returned by GET /book.
type APIBook struct {
	Market    string         `json:"market"`
	AssetID   string         `json:"asset_id"`
	Bids      []APIBookLevel `json:"bids"`
	Asks      []APIBookLevel `json:"asks"`
	Timestamp string         `json:"timestamp"`
	Hash      string         `json:"hash"`
}

// ToDomainSnapshot converts an APIBook to a domain.OrderbookSnapshot.
func (b *APIBook) ToDomainSnapshot() domain.OrderbookSnapshot {
	snap := domain.OrderbookSnapshot{
		AssetID: b.AssetID,
	}
	for _, lvl := range b.Bids {
		p, _ := strconv.ParseFloat(lvl.Price, 64)
		s, _ := strconv.ParseFloat(lvl.Size, 64)
		snap.Bids = append(snap.Bids, domain.PriceLevel{Price: p, Size: s})
	}
	for _, lvl := range b.Asks {
		p, _ := strconv.ParseFloat(lvl.Price, 64)
		s, _ := strconv.ParseFloat(lvl.Size, 64)
		snap.Asks = append(snap.Asks, domain.PriceLevel{Price: p, Size: s})
	}
	if ms, err := strconv.ParseInt(b.Timestamp, 10, 64); err == nil {
		snap.Timestamp = time.UnixMilli(ms)
	} else {
		snap.Timestamp = time.Now()
	}
	return snap
}

// APIOrderResult is the response from placing an order via the CLOB API.
type APIOrderResult struct {
	Success    bool   `json:"success"`
	ErrorMsg   string `json:"errorMsg,omitempty"`
	OrderID    string `json:"orderID,omitempty"`
	Status     string `json:"status,omitempty"`
	TransactID string `json:"transactionHash,omitempty"`
}

// ToDomainOrderResult converts an APIOrderResult to a domain.OrderResult.
func (r *APIOrderResult) ToDomainOrderResult() domain.OrderResult {
	return domain.OrderResult{
		Success:  r.Success,
		OrderID:  r.OrderID,
		Status:   r.Status,
		ErrorMsg: r.ErrorMsg,
	}
}

// --------------------------------------------------------------------------
// Data API DTOs
// --------------------------------------------------------------------------

// APIPosition represents a position row from the data API
// (GET /positions?user=...).
type APIPosition struct {
	Asset        string    `json:"asset"`
	ConditionID  string    `json:"conditionId"`
	Size         flexFloat `json:"size"`
	AvgPrice     flexFloat `json:"avgPrice"`
	OutcomeIndex int       `json:"outcomeIndex"`
	Outcome      string    `json:"outcome"`
	Title        string    `json:"title"`
	Redeemable   bool      `json:"redeemable"`
	CurPrice     flexFloat `json:"curPrice"`
}

// ToDomainPosition converts an APIPosition to a domain.Position.
func (p *APIPosition) ToDomainPosition() domain.Position {
	return domain.Position{
		Asset:        p.Asset,
		ConditionID:  p.ConditionID,
		Size:         float64(p.Size),
		AvgPrice:     float64(p.AvgPrice),
		OutcomeIndex: p.OutcomeIndex,
		Outcome:      p.Outcome,
		Title:        p.Title,
		Redeemable:   p.Redeemable,
	}
}

// APIActivity represents an on-chain activity row from the data API
// (GET /activity?user=...).
type APIActivity struct {
	ProxyWallet     string    `json:"proxyWallet"`
	Timestamp       int64     `json:"timestamp"`
	ConditionID     string    `json:"conditionId"`
	Type            string    `json:"type"` // TRADE, SPLIT, MERGE, REDEEM, ...
	Size            flexFloat `json:"size"`
	USDCSize        flexFloat `json:"usdcSize"`
	TransactionHash string    `json:"transactionHash"`
	Price           flexFloat `json:"price"`
	Asset           string    `json:"asset"`
	Side            string    `json:"side"`
	OutcomeIndex    int       `json:"outcomeIndex"`
}

// ToDomainActivity converts an APIActivity to a domain.Activity.
func (a *APIActivity) ToDomainActivity() domain.Activity {
	return domain.Activity{
		Type:            domain.ActivityType(a.Type),
		TransactionHash: a.TransactionHash,
		Asset:           a.Asset,
		ConditionID:     a.ConditionID,
		Side:            domain.OrderSide(a.Side),
		Size:            float64(a.Size),
		USDCSize:        float64(a.USDCSize),
		Price:           float64(a.Price),
		OutcomeIndex:    a.OutcomeIndex,
		Timestamp:       a.Timestamp,
	}
}

// APIDataMarket represents a market row from the data API markets endpoint
// (GET /markets?condition_ids=...). Token IDs arrive as a JSON-encoded
// string array inside a string field.
type APIDataMarket struct {
	ConditionID  string `json:"conditionId"`
	Question     string `json:"question"`
	ClobTokenIDs string `json:"clobTokenIds"`
	Closed       bool   `json:"closed"`
	Active       bool   `json:"active"`
}

// ToDomainMarket converts an APIDataMarket to a domain.Market. The data API
// does not expose accepting_orders, so an open market is assumed to accept.
func (m *APIDataMarket) ToDomainMarket() domain.Market {
	dm := domain.Market{
		ConditionID:     m.ConditionID,
		Question:        m.Question,
		Closed:          m.Closed,
		AcceptingOrders: !m.Closed,
		EnableOrderBook: true,
	}
	if m.ClobTokenIDs != "" {
		_ = json.Unmarshal([]byte(m.ClobTokenIDs), &dm.TokenIDs)
	}
	return dm
}

// --------------------------------------------------------------------------
// WebSocket DTOs
// --------------------------------------------------------------------------

// wsSubscribe is the subscription payload for the market channel.
type wsSubscribe struct {
	Type     string   `json:"type"`
	AssetIDs []string `json:"assets_ids"`
}

// wsEvent is the envelope common to market-channel frames.
type wsEvent struct {
	EventType string `json:"event_type"` // "book", "price_change", "last_trade_price"
	AssetID   string `json:"asset_id"`
	Market    string `json:"market"`
	Price     string `json:"price"`
	Size      string `json:"size"`
	Timestamp string `json:"timestamp"`
}

// toLastTrade converts a last_trade_price frame to a domain.LastTradePrice.
func (e *wsEvent) toLastTrade() domain.LastTradePrice {
	ltp := domain.LastTradePrice{AssetID: e.AssetID}
	ltp.Price, _ = strconv.ParseFloat(e.Price, 64)
	ltp.Size, _ = strconv.ParseFloat(e.Size, 64)
	if ms, err := strconv.ParseInt(e.Timestamp, 10, 64); err == nil {
		ltp.Timestamp = time.UnixMilli(ms)
	} else {
		ltp.Timestamp = time.Now()
	}
	return ltp
}
