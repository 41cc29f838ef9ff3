package domain

import "strings"

// OrderSide indicates whether this is a buy or sell.
type OrderSide string

const (
	OrderSideBuy  OrderSide = "BUY"
	OrderSideSell OrderSide = "SELL"
)

// OrderType indicates the time-in-force policy.
type OrderType string

const (
	OrderTypeGTC OrderType = "GTC" // Good-Till-Cancelled
	OrderTypeFOK OrderType = "FOK" // Fill-Or-Kill
	OrderTypeFAK OrderType = "FAK" // Fill-And-Kill
)

// MarketOrderArgs describes one clip to submit against the book. For buys
// Amount is a USDC notional; for sells it is a share quantity. Price is the
// observed best level the clip is priced at.
type MarketOrderArgs struct {
	Side    OrderSide
	TokenID string
	Amount  float64
	Price   float64
}

// OrderResult wraps the venue response after order submission. Success=false
// with a populated ErrorMsg is a venue rejection, distinct from a transport
// error surfaced as a Go error by the client.
type OrderResult struct {
	Success  bool
	OrderID  string
	Status   string
	ErrorMsg string
}

// SignatureRejected reports whether the venue rejected the order because of
// an invalid signature, which the execution loop treats as a configuration
// fault rather than a transient liquidity problem.
func (r OrderResult) SignatureRejected() bool {
	return strings.Contains(strings.ToLower(r.ErrorMsg), "invalid signature")
}
