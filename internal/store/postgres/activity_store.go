package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mihnea-popescu/polymarket-copy-trading-bot-v1/internal/domain"
)

// ActivityStore implements domain.ActivityStore using PostgreSQL.
type ActivityStore struct {
	pool *pgxpool.Pool
}

// NewActivityStore creates a new ActivityStore backed by the given pool.
func NewActivityStore(pool *pgxpool.Pool) *ActivityStore {
	return &ActivityStore{pool: pool}
}

const activitySelectCols = `id, type, transaction_hash, asset, condition_id, side,
	size, usdc_size, price, outcome_index, timestamp, processed, retry_count, created_at`

func scanActivityRows(rows pgx.Rows) ([]domain.Activity, error) {
	var acts []domain.Activity
	for rows.Next() {
		var a domain.Activity
		if err := rows.Scan(
			&a.ID, &a.Type, &a.TransactionHash, &a.Asset, &a.ConditionID,
			&a.Side, &a.Size, &a.USDCSize, &a.Price, &a.OutcomeIndex,
			&a.Timestamp, &a.Processed, &a.RetryCount, &a.CreatedAt,
		); err != nil {
			return nil, err
		}
		acts = append(acts, a)
	}
	return acts, rows.Err()
}

// InsertIfNew inserts the activity unless a row with the same transaction
// hash already exists. Returns true when a row was actually inserted.
func (s *ActivityStore) InsertIfNew(ctx context.Context, act domain.Activity) (bool, error) {
	const query = `
		INSERT INTO activities (
			type, transaction_hash, asset, condition_id, side,
			size, usdc_size, price, outcome_index, timestamp
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (transaction_hash) DO NOTHING
		RETURNING id`

	var id int64
	err := s.pool.QueryRow(ctx, query,
		act.Type, act.TransactionHash, act.Asset, act.ConditionID, act.Side,
		act.Size, act.USDCSize, act.Price, act.OutcomeIndex, act.Timestamp,
	).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil // conflict: already journaled
	}
	if err != nil {
		return false, fmt.Errorf("postgres: insert activity %s: %w", act.TransactionHash, err)
	}
	return true, nil
}

// ListUnprocessed returns unprocessed trade rows with a retry counter below
// retryLimit, newest timestamp first.
func (s *ActivityStore) ListUnprocessed(ctx context.Context, retryLimit, limit int) ([]domain.Activity, error) {
	query := `SELECT ` + activitySelectCols + `
		FROM activities
		WHERE type = $1 AND processed = FALSE AND retry_count < $2
		ORDER BY timestamp DESC
		LIMIT $3`

	rows, err := s.pool.Query(ctx, query, domain.ActivityTypeTrade, retryLimit, limit)
	if err != nil {
		return nil, fmt.Errorf("postgres: list unprocessed activities: %w", err)
	}
	defer rows.Close()

	acts, err := scanActivityRows(rows)
	if err != nil {
		return nil, fmt.Errorf("postgres: scan unprocessed activities: %w", err)
	}
	return acts, nil
}

// MarkProcessed flips the row to processed and persists the final retry
// counter.
func (s *ActivityStore) MarkProcessed(ctx context.Context, id int64, retryCount int) error {
	tag, err := s.pool.Exec(ctx,
		"UPDATE activities SET processed = TRUE, retry_count = $2 WHERE id = $1",
		id, retryCount,
	)
	if err != nil {
		return fmt.Errorf("postgres: mark activity %d processed: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("postgres: mark activity %d processed: %w", id, domain.ErrNotFound)
	}
	return nil
}

// ListProcessedBefore returns processed rows older than the cutoff, oldest
// first, for cold-storage archival.
func (s *ActivityStore) ListProcessedBefore(ctx context.Context, cutoff time.Time) ([]domain.Activity, error) {
	query := `SELECT ` + activitySelectCols + `
		FROM activities
		WHERE processed = TRUE AND timestamp < $1
		ORDER BY timestamp ASC`

	rows, err := s.pool.Query(ctx, query, cutoff.Unix())
	if err != nil {
		return nil, fmt.Errorf("postgres: list processed activities before %s: %w", cutoff, err)
	}
	defer rows.Close()

	acts, err := scanActivityRows(rows)
	if err != nil {
		return nil, fmt.Errorf("postgres: scan processed activities: %w", err)
	}
	return acts, nil
}

// DeleteProcessedBefore prunes processed rows older than the cutoff.
func (s *ActivityStore) DeleteProcessedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := s.pool.Exec(ctx,
		"DELETE FROM activities WHERE processed = TRUE AND timestamp < $1",
		cutoff.Unix(),
	)
	if err != nil {
		return 0, fmt.Errorf("postgres: delete processed activities before %s: %w", cutoff, err)
	}
	return tag.RowsAffected(), nil
}

// Compile-time interface check.
var _ domain.ActivityStore = (*ActivityStore)(nil)
