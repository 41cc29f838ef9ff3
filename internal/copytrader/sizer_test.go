package copytrader

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/mihnea-popescu/polymarket-copy-trading-bot-v1/internal/domain"
)

func testPolicy() Policy {
	return Policy{
		RetryLimit:        3,
		PriceTolerance:    0.05,
		MinOrderUSDC:      0.01,
		TradeMinPercent:   0.015,
		FallbackOrderUSDC: 2.0,
		FullCopyThreshold: 10.0,
		StalenessWindow:   5 * time.Minute,
		PollInterval:      2 * time.Second,
		BatchLimit:        100,
	}
}

func TestSizerBuyTarget(t *testing.T) {
	sizer := NewSizer(testPolicy())

	tests := []struct {
		name          string
		notional      float64
		myBalance     float64
		targetBalance float64
		want          float64
	}{
		{
			name:          "proportional wealth ratio",
			notional:      20,
			myBalance:     50,
			targetBalance: 150,
			// 20 * 50/(150+20) = 5.882...
			want: 20 * 50 / 170.0,
		},
		{
			name:          "small trade copied in full",
			notional:      8,
			myBalance:     50,
			targetBalance: 150,
			want:          8,
		},
		{
			name:          "threshold boundary copied in full",
			notional:      10,
			myBalance:     50,
			targetBalance: 150,
			want:          10,
		},
		{
			name:          "zero notional yields nothing",
			notional:      0,
			myBalance:     50,
			targetBalance: 150,
			want:          0,
		},
		{
			name:          "zero balance yields nothing",
			notional:      20,
			myBalance:     0,
			targetBalance: 150,
			want:          0,
		},
		{
			name:          "negative balance yields nothing",
			notional:      20,
			myBalance:     -1,
			targetBalance: 150,
			want:          0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			trade := domain.Activity{
				Side:     domain.OrderSideBuy,
				USDCSize: tt.notional,
			}
			got := sizer.Target(ActionBuy, trade, tt.myBalance, tt.targetBalance, nil, nil)
			assert.InDelta(t, tt.want, got, 1e-9)
		})
	}
}

func TestSizerSellTarget(t *testing.T) {
	sizer := NewSizer(testPolicy())

	tests := []struct {
		name      string
		tradeSize float64
		myPos     *domain.Position
		targetPos *domain.Position
		want      float64
	}{
		{
			name:      "no own position yields nothing",
			tradeSize: 10,
			want:      0,
		},
		{
			name:      "target fully exited sells entire position",
			tradeSize: 100,
			myPos:     &domain.Position{Size: 100},
			want:      100,
		},
		{
			name:      "partial exit mirrors exited fraction",
			tradeSize: 50,
			myPos:     &domain.Position{Size: 80},
			targetPos: &domain.Position{Size: 150},
			// 80 * 50/(150+50) = 20
			want: 20,
		},
		{
			name:      "target position with zero size sells everything",
			tradeSize: 10,
			myPos:     &domain.Position{Size: 40},
			targetPos: &domain.Position{Size: 0},
			want:      40,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			trade := domain.Activity{
				Side: domain.OrderSideSell,
				Size: tt.tradeSize,
			}
			got := sizer.Target(ActionSell, trade, 0, 0, tt.myPos, tt.targetPos)
			assert.InDelta(t, tt.want, got, 1e-9)
		})
	}
}

func TestSizerMergeTarget(t *testing.T) {
	sizer := NewSizer(testPolicy())
	trade := domain.Activity{Side: domain.OrderSideSell, Size: 10}

	got := sizer.Target(ActionMerge, trade, 0, 0, &domain.Position{Size: 65}, &domain.Position{Size: 5})
	assert.Equal(t, 65.0, got, "merge collapses the entire held size")

	assert.Equal(t, 0.0, sizer.Target(ActionMerge, trade, 0, 0, nil, nil))
}

func TestPolicyTradeMinimum(t *testing.T) {
	p := testPolicy()

	// Small notional: the absolute venue minimum dominates.
	assert.InDelta(t, 0.01, p.TradeMinimum(0.5), 1e-9)

	// Large notional: 1.5% of the trade dominates.
	assert.InDelta(t, 3.0, p.TradeMinimum(200), 1e-9)
}
