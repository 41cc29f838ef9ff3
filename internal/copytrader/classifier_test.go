package copytrader

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/mihnea-popescu/polymarket-copy-trading-bot-v1/internal/domain"
)

func TestClassify(t *testing.T) {
	pos := func(size float64) *domain.Position {
		return &domain.Position{ConditionID: "0xc1", Size: size}
	}

	tests := []struct {
		name      string
		side      domain.OrderSide
		myPos     *domain.Position
		targetPos *domain.Position
		want      Action
	}{
		{
			name: "buy always classifies as buy",
			side: domain.OrderSideBuy,
			want: ActionBuy,
		},
		{
			name:      "buy with positions still classifies as buy",
			side:      domain.OrderSideBuy,
			myPos:     pos(50),
			targetPos: pos(10),
			want:      ActionBuy,
		},
		{
			name: "sell with no positions classifies as sell",
			side: domain.OrderSideSell,
			want: ActionSell,
		},
		{
			name:      "sell with only target position classifies as sell",
			side:      domain.OrderSideSell,
			targetPos: pos(10),
			want:      ActionSell,
		},
		{
			name:  "sell with only own position classifies as sell",
			side:  domain.OrderSideSell,
			myPos: pos(50),
			want:  ActionSell,
		},
		{
			name:      "sell with surplus over target classifies as merge",
			side:      domain.OrderSideSell,
			myPos:     pos(50),
			targetPos: pos(10),
			want:      ActionMerge,
		},
		{
			name:      "sell with equal sizes classifies as sell",
			side:      domain.OrderSideSell,
			myPos:     pos(10),
			targetPos: pos(10),
			want:      ActionSell,
		},
		{
			name:      "sell with smaller own position classifies as sell",
			side:      domain.OrderSideSell,
			myPos:     pos(5),
			targetPos: pos(10),
			want:      ActionSell,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Classify(tt.side, tt.myPos, tt.targetPos)
			assert.Equal(t, tt.want, got)

			// Deterministic: same inputs, same action.
			assert.Equal(t, got, Classify(tt.side, tt.myPos, tt.targetPos))
		})
	}
}
