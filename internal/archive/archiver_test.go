package archive

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mihnea-popescu/polymarket-copy-trading-bot-v1/internal/domain"
)

// fakeLedger serves a fixed set of processed rows for archival.
type fakeLedger struct {
	rows      []domain.Activity
	listErr   error
	deleteErr error
	deleted   []time.Time
}

func (f *fakeLedger) InsertIfNew(context.Context, domain.Activity) (bool, error) {
	return false, nil
}

func (f *fakeLedger) ListUnprocessed(context.Context, int, int) ([]domain.Activity, error) {
	return nil, nil
}

func (f *fakeLedger) MarkProcessed(context.Context, int64, int) error { return nil }

func (f *fakeLedger) ListProcessedBefore(_ context.Context, cutoff time.Time) ([]domain.Activity, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	var out []domain.Activity
	for _, r := range f.rows {
		if r.Timestamp < cutoff.Unix() {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeLedger) DeleteProcessedBefore(_ context.Context, cutoff time.Time) (int64, error) {
	if f.deleteErr != nil {
		return 0, f.deleteErr
	}
	f.deleted = append(f.deleted, cutoff)
	var n int64
	for _, r := range f.rows {
		if r.Timestamp < cutoff.Unix() {
			n++
		}
	}
	return n, nil
}

type fakeBlob struct {
	objects map[string][]byte
	err     error
}

func newFakeBlob() *fakeBlob {
	return &fakeBlob{objects: make(map[string][]byte)}
}

func (f *fakeBlob) Put(_ context.Context, path string, data io.Reader, _ string) error {
	if f.err != nil {
		return f.err
	}
	b, err := io.ReadAll(data)
	if err != nil {
		return err
	}
	f.objects[path] = b
	return nil
}

var testNow = time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)

func newTestArchiver(ledger domain.ActivityStore, blob domain.BlobWriter) *Archiver {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	a := New(ledger, blob, Config{
		Retention: 90 * 24 * time.Hour,
		Interval:  time.Hour,
	}, logger)
	a.now = func() time.Time { return testNow }
	return a
}

func processedRow(id int64, age time.Duration) domain.Activity {
	return domain.Activity{
		ID:              id,
		Type:            domain.ActivityTypeTrade,
		TransactionHash: "0xtx",
		Processed:       true,
		Timestamp:       testNow.Add(-age).Unix(),
	}
}

func TestArchiveOnceExportsAndPrunes(t *testing.T) {
	ledger := &fakeLedger{rows: []domain.Activity{
		processedRow(1, 100*24*time.Hour),
		processedRow(2, 95*24*time.Hour),
		processedRow(3, 10*24*time.Hour), // inside retention, stays
	}}
	blob := newFakeBlob()

	n, err := newTestArchiver(ledger, blob).ArchiveOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	require.Len(t, ledger.deleted, 1)

	// Cutoff lands in 2025-12, so that is the export partition.
	data, ok := blob.objects["archive/activities/2025-12.jsonl"]
	require.True(t, ok, "expected JSONL export, got keys %v", blob.objects)

	// Two JSON lines, decodable back into activities.
	sc := bufio.NewScanner(bytes.NewReader(data))
	var ids []int64
	for sc.Scan() {
		var row domain.Activity
		require.NoError(t, json.Unmarshal(sc.Bytes(), &row))
		ids = append(ids, row.ID)
	}
	assert.Equal(t, []int64{1, 2}, ids)
}

func TestArchiveOnceNothingToExport(t *testing.T) {
	ledger := &fakeLedger{rows: []domain.Activity{processedRow(1, time.Hour)}}
	blob := newFakeBlob()

	n, err := newTestArchiver(ledger, blob).ArchiveOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(0), n)
	assert.Empty(t, blob.objects, "no upload for an empty batch")
	assert.Empty(t, ledger.deleted)
}

func TestArchiveOnceUploadFailureLeavesRows(t *testing.T) {
	ledger := &fakeLedger{rows: []domain.Activity{processedRow(1, 100*24*time.Hour)}}
	blob := newFakeBlob()
	blob.err = errors.New("bucket unreachable")

	_, err := newTestArchiver(ledger, blob).ArchiveOnce(context.Background())
	require.Error(t, err)
	assert.Empty(t, ledger.deleted, "rows must not be pruned when the export fails")
}

func TestArchiveOncePruneFailureAfterUpload(t *testing.T) {
	ledger := &fakeLedger{
		rows:      []domain.Activity{processedRow(1, 100*24*time.Hour)},
		deleteErr: errors.New("db down"),
	}
	blob := newFakeBlob()

	n, err := newTestArchiver(ledger, blob).ArchiveOnce(context.Background())
	require.Error(t, err)
	assert.Equal(t, int64(1), n, "the export landed even though pruning failed")
	assert.Len(t, blob.objects, 1)
}
