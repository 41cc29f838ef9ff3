// Package domain defines the core data model shared by every layer of the
// copy-trading bot: ledger records, positions, orderbooks, orders, and the
// store/cache interfaces implemented by the infrastructure packages.
package domain

import "time"

// ActivityType distinguishes trade fills from splits, merges, and redeems in
// the target's on-chain activity feed. Only trades are copied.
type ActivityType string

const (
	ActivityTypeTrade  ActivityType = "TRADE"
	ActivityTypeSplit  ActivityType = "SPLIT"
	ActivityTypeMerge  ActivityType = "MERGE"
	ActivityTypeRedeem ActivityType = "REDEEM"
)

// Activity is one observed target-trader action journaled in the ledger.
// Rows are inserted once by the monitor (keyed on transaction hash) and
// mutated exactly once by the copy pipeline when a terminal disposition is
// reached: Processed flips to true and RetryCount records how many
// submission retries were spent.
type Activity struct {
	ID              int64
	Type            ActivityType
	TransactionHash string
	Asset           string // ERC-1155 outcome token ID
	ConditionID     string // market condition ID
	Side            OrderSide
	Size            float64 // shares
	USDCSize        float64 // notional in USDC
	Price           float64
	OutcomeIndex    int
	Timestamp       int64 // seconds, UTC
	Processed       bool
	RetryCount      int
	CreatedAt       time.Time
}

// Age returns how long ago the activity happened relative to now.
func (a Activity) Age(now time.Time) time.Duration {
	return now.Sub(time.Unix(a.Timestamp, 0))
}
