package domain

// Market is the CLOB view of one prediction market: its lifecycle flags and
// the outcome-index to token-ID table used for token resolution.
type Market struct {
	ConditionID     string
	Question        string
	TokenIDs        []string // indexed by outcome index
	Closed          bool
	AcceptingOrders bool
	EnableOrderBook bool
	NegRisk         bool
}

// AcceptsOrders reports whether the market can still take new orders.
func (m Market) AcceptsOrders() bool {
	return !m.Closed && m.AcceptingOrders && m.EnableOrderBook
}

// TokenForOutcome returns the token ID for the given outcome index, or ""
// when the table does not cover that index.
func (m Market) TokenForOutcome(idx int) string {
	if idx < 0 || idx >= len(m.TokenIDs) {
		return ""
	}
	return m.TokenIDs[idx]
}
