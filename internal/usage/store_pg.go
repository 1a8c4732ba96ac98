package usage

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

// PGStore is a Postgres-backed usage store.
type PGStore struct {
	DB *sql.DB
}

// NewPGStore constructs a Postgres-backed usage store.
func NewPGStore(db *sql.DB) *PGStore {
	return &PGStore{DB: db}
}

// Add upserts the owner's row and adds tokens, resetting expired periods.
func (s *PGStore) Add(ctx context.Context, ownerID string, tokens int64) (Record, error) {
	const query = `
INSERT INTO token_usage (owner_id, tokens_used, period_start, updated_at)
VALUES ($1, $2, now(), now())
ON CONFLICT (owner_id) DO UPDATE SET
    tokens_used = CASE
        WHEN token_usage.period_start <= now() - interval '30 days' THEN EXCLUDED.tokens_used
        ELSE token_usage.tokens_used + EXCLUDED.tokens_used
    END,
    period_start = CASE
        WHEN token_usage.period_start <= now() - interval '30 days' THEN now()
        ELSE token_usage.period_start
    END,
    updated_at = now()
RETURNING owner_id, tokens_used, period_start`

	var rec Record
	err := s.DB.QueryRowContext(ctx, query, ownerID, tokens).Scan(&rec.OwnerID, &rec.TokensUsed, &rec.PeriodStart)
	if err != nil {
		return Record{}, err
	}
	return rec, nil
}

// Get returns the owner's current period consumption.
func (s *PGStore) Get(ctx context.Context, ownerID string) (Record, error) {
	const query = `
SELECT owner_id, tokens_used, period_start
FROM token_usage
WHERE owner_id = $1`

	var rec Record
	err := s.DB.QueryRowContext(ctx, query, ownerID).Scan(&rec.OwnerID, &rec.TokensUsed, &rec.PeriodStart)
	if errors.Is(err, sql.ErrNoRows) {
		return Record{OwnerID: ownerID, PeriodStart: time.Now().UTC()}, nil
	}
	if err != nil {
		return Record{}, err
	}
	return rec, nil
}
