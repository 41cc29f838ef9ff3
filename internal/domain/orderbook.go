package domain

import "time"

// PriceLevel is a single price+size entry in an orderbook.
type PriceLevel struct {
	Price float64
	Size  float64
}

// OrderbookSnapshot is the best-known bids and asks for a token at decision
// time. Consumed once per execution-loop iteration and never persisted.
type OrderbookSnapshot struct {
	AssetID   string
	Bids      []PriceLevel
	Asks      []PriceLevel
	Timestamp time.Time
}

// BestBid returns the highest-priced bid, or false when there are no bids.
func (b OrderbookSnapshot) BestBid() (PriceLevel, bool) {
	return bestLevel(b.Bids, func(a, b float64) bool { return a > b })
}

// BestAsk returns the lowest-priced ask, or false when there are no asks.
func (b OrderbookSnapshot) BestAsk() (PriceLevel, bool) {
	return bestLevel(b.Asks, func(a, b float64) bool { return a < b })
}

func bestLevel(levels []PriceLevel, better func(a, b float64) bool) (PriceLevel, bool) {
	if len(levels) == 0 {
		return PriceLevel{}, false
	}
	best := levels[0]
	for _, l := range levels[1:] {
		if better(l.Price, best.Price) {
			best = l
		}
	}
	return best, true
}

// LastTradePrice is the most recent trade execution for an asset, delivered
// by the market WebSocket feed.
type LastTradePrice struct {
	AssetID   string
	Price     float64
	Size      float64
	Timestamp time.Time
}
