package copytrader

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/mihnea-popescu/polymarket-copy-trading-bot-v1/internal/domain"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func openMarket(tokens ...string) domain.Market {
	return domain.Market{
		ConditionID:     "0xc1",
		TokenIDs:        tokens,
		AcceptingOrders: true,
		EnableOrderBook: true,
	}
}

func askBook(price, size float64) domain.OrderbookSnapshot {
	return domain.OrderbookSnapshot{
		AssetID:   "tok-1",
		Asks:      []domain.PriceLevel{{Price: price, Size: size}},
		Timestamp: time.Now(),
	}
}

func bidBook(price, size float64) domain.OrderbookSnapshot {
	return domain.OrderbookSnapshot{
		AssetID:   "tok-1",
		Bids:      []domain.PriceLevel{{Price: price, Size: size}},
		Timestamp: time.Now(),
	}
}

// fakeVenue scripts orderbook snapshots and order results. Books and results
// are consumed in order; the last entry repeats once exhausted.
type fakeVenue struct {
	books     []domain.OrderbookSnapshot
	bookErr   error
	bookCalls int

	market    domain.Market
	marketErr error

	results   []domain.OrderResult
	postErr   error
	postCalls int
	orders    []domain.MarketOrderArgs
}

func (v *fakeVenue) GetOrderBook(_ context.Context, _ string) (domain.OrderbookSnapshot, error) {
	v.bookCalls++
	if v.bookErr != nil {
		return domain.OrderbookSnapshot{}, v.bookErr
	}
	if len(v.books) == 0 {
		return domain.OrderbookSnapshot{}, nil
	}
	idx := v.bookCalls - 1
	if idx >= len(v.books) {
		idx = len(v.books) - 1
	}
	return v.books[idx], nil
}

func (v *fakeVenue) GetMarket(_ context.Context, _ string) (domain.Market, error) {
	if v.marketErr != nil {
		return domain.Market{}, v.marketErr
	}
	return v.market, nil
}

func (v *fakeVenue) PostMarketOrder(_ context.Context, args domain.MarketOrderArgs) (domain.OrderResult, error) {
	v.postCalls++
	v.orders = append(v.orders, args)
	if v.postErr != nil {
		return domain.OrderResult{}, v.postErr
	}
	if len(v.results) == 0 {
		return domain.OrderResult{Success: true, OrderID: "ord-1", Status: "matched"}, nil
	}
	idx := v.postCalls - 1
	if idx >= len(v.results) {
		idx = len(v.results) - 1
	}
	return v.results[idx], nil
}

// fakeBalances serves per-wallet USDC balances. When seq is set, values are
// consumed per call (last repeats) to model a balance draining across fills.
type fakeBalances struct {
	balances map[string]float64
	seq      []float64
	err      error
}

func (b *fakeBalances) USDCBalance(_ context.Context, wallet string) (float64, error) {
	if b.err != nil {
		return 0, b.err
	}
	if len(b.seq) > 0 {
		v := b.seq[0]
		if len(b.seq) > 1 {
			b.seq = b.seq[1:]
		}
		return v, nil
	}
	return b.balances[wallet], nil
}

// fakeAccounts serves per-wallet position snapshots.
type fakeAccounts struct {
	positions map[string][]domain.Position
	err       error
}

func (a *fakeAccounts) GetPositions(_ context.Context, wallet string) ([]domain.Position, error) {
	if a.err != nil {
		return nil, a.err
	}
	return a.positions[wallet], nil
}

// fakeLookup is the data API market fallback.
type fakeLookup struct {
	market domain.Market
	err    error
}

func (l *fakeLookup) GetMarketByCondition(_ context.Context, _ string) (domain.Market, error) {
	if l.err != nil {
		return domain.Market{}, l.err
	}
	return l.market, nil
}

// fakeLedger is an in-memory domain.ActivityStore recording MarkProcessed
// calls.
type fakeLedger struct {
	rows    []domain.Activity
	listErr error

	// marks maps activity ID to the retry count recorded at MarkProcessed.
	marks map[int64]int

	// markCtxErr records ctx.Err() observed by the latest MarkProcessed
	// call, for asserting the write is usable during shutdown.
	markCtxErr error
}

func newFakeLedger(rows ...domain.Activity) *fakeLedger {
	return &fakeLedger{rows: rows, marks: make(map[int64]int)}
}

func (l *fakeLedger) InsertIfNew(_ context.Context, act domain.Activity) (bool, error) {
	for _, r := range l.rows {
		if r.TransactionHash == act.TransactionHash {
			return false, nil
		}
	}
	act.ID = int64(len(l.rows) + 1)
	l.rows = append(l.rows, act)
	return true, nil
}

func (l *fakeLedger) ListUnprocessed(_ context.Context, retryLimit, limit int) ([]domain.Activity, error) {
	if l.listErr != nil {
		return nil, l.listErr
	}
	var out []domain.Activity
	for _, r := range l.rows {
		if r.Type != domain.ActivityTypeTrade || r.Processed || r.RetryCount >= retryLimit {
			continue
		}
		out = append(out, r)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (l *fakeLedger) MarkProcessed(ctx context.Context, id int64, retryCount int) error {
	l.markCtxErr = ctx.Err()
	for i := range l.rows {
		if l.rows[i].ID == id {
			l.rows[i].Processed = true
			l.rows[i].RetryCount = retryCount
		}
	}
	l.marks[id] = retryCount
	return nil
}

func (l *fakeLedger) ListProcessedBefore(_ context.Context, cutoff time.Time) ([]domain.Activity, error) {
	var out []domain.Activity
	for _, r := range l.rows {
		if r.Processed && r.Timestamp < cutoff.Unix() {
			out = append(out, r)
		}
	}
	return out, nil
}

func (l *fakeLedger) DeleteProcessedBefore(_ context.Context, cutoff time.Time) (int64, error) {
	var kept []domain.Activity
	var removed int64
	for _, r := range l.rows {
		if r.Processed && r.Timestamp < cutoff.Unix() {
			removed++
			continue
		}
		kept = append(kept, r)
	}
	l.rows = kept
	return removed, nil
}
