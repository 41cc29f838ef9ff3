package domain

// Position is a held amount of one outcome token for one wallet, as reported
// by the data API. Snapshots are fetched fresh per copy decision and never
// cached across trades.
type Position struct {
	Asset        string // ERC-1155 outcome token ID
	ConditionID  string
	Size         float64 // shares
	AvgPrice     float64
	OutcomeIndex int
	Outcome      string
	Title        string
	Redeemable   bool
}

// FindByCondition returns the first position for the given condition ID, or
// nil when the wallet holds nothing in that market.
func FindByCondition(positions []Position, conditionID string) *Position {
	for i := range positions {
		if positions[i].ConditionID == conditionID {
			return &positions[i]
		}
	}
	return nil
}
