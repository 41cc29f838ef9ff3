package claimer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mihnea-popescu/polymarket-copy-trading-bot-v1/internal/domain"
)

type fakePositions struct {
	positions []domain.Position
	err       error
}

func (f *fakePositions) GetRedeemablePositions(context.Context, string) ([]domain.Position, error) {
	return f.positions, f.err
}

type fakeRedeemer struct {
	redeemed  []string
	redeemErr map[string]error
	mineErr   map[string]error
}

func (f *fakeRedeemer) Redeem(_ context.Context, conditionID string) (string, error) {
	if err := f.redeemErr[conditionID]; err != nil {
		return "", err
	}
	f.redeemed = append(f.redeemed, conditionID)
	return "0xtx-" + conditionID, nil
}

func (f *fakeRedeemer) WaitMined(_ context.Context, txHash string) error {
	return f.mineErr[txHash]
}

func newTestClaimer(src PositionSource, rd Redeemer) *Claimer {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return New(src, rd, "0xme", time.Minute, logger)
}

func redeemable(condition string, size float64) domain.Position {
	return domain.Position{
		ConditionID: condition,
		Asset:       "tok-" + condition,
		Size:        size,
		Redeemable:  true,
	}
}

func TestSweepOnceRedeemsEachMarketOnce(t *testing.T) {
	// Both outcome tokens of 0xc1 are held; one transaction covers both.
	src := &fakePositions{positions: []domain.Position{
		redeemable("0xc1", 10),
		redeemable("0xc1", 4),
		redeemable("0xc2", 7),
	}}
	rd := &fakeRedeemer{}

	n, err := newTestClaimer(src, rd).SweepOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, []string{"0xc1", "0xc2"}, rd.redeemed)
}

func TestSweepOnceSkipsEmptyPositions(t *testing.T) {
	src := &fakePositions{positions: []domain.Position{redeemable("0xc1", 0)}}
	rd := &fakeRedeemer{}

	n, err := newTestClaimer(src, rd).SweepOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, n)
	assert.Empty(t, rd.redeemed)
}

func TestSweepOnceOneFailureDoesNotStopSweep(t *testing.T) {
	src := &fakePositions{positions: []domain.Position{
		redeemable("0xbad", 3),
		redeemable("0xgood", 5),
	}}
	rd := &fakeRedeemer{
		redeemErr: map[string]error{"0xbad": errors.New("gas estimation failed")},
	}

	n, err := newTestClaimer(src, rd).SweepOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, []string{"0xgood"}, rd.redeemed)
}

func TestSweepOnceUnconfirmedTxNotCounted(t *testing.T) {
	src := &fakePositions{positions: []domain.Position{redeemable("0xc1", 2)}}
	rd := &fakeRedeemer{
		mineErr: map[string]error{"0xtx-0xc1": fmt.Errorf("transaction reverted")},
	}

	n, err := newTestClaimer(src, rd).SweepOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, n, "a submitted but unconfirmed redemption is not a success")
}

func TestSweepOnceSourceFailure(t *testing.T) {
	src := &fakePositions{err: errors.New("data api down")}
	_, err := newTestClaimer(src, &fakeRedeemer{}).SweepOnce(context.Background())
	assert.Error(t, err)
}
