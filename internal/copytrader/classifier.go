package copytrader

import "github.com/mihnea-popescu/polymarket-copy-trading-bot-v1/internal/domain"

// Action is the replication action chosen for one observed trade.
type Action string

const (
	ActionBuy   Action = "buy"
	ActionSell  Action = "sell"
	ActionMerge Action = "merge"
)

// Classify maps an observed trade side plus both parties' positions in the
// same market to a replication action.
//
// A sell classifies as merge when both parties hold the market and the
// follower's held size strictly exceeds the target's: the follower carries a
// surplus beyond what mirroring requires and should collapse it rather than
// mirror-sell a fraction. Every other sell is a sell, every buy is a buy.
// Pure and total over the two known sides.
func Classify(side domain.OrderSide, myPos, targetPos *domain.Position) Action {
	if side == domain.OrderSideSell {
		if myPos != nil && targetPos != nil && myPos.Size > targetPos.Size {
			return ActionMerge
		}
		return ActionSell
	}
	return ActionBuy
}
