package usage

import (
	"context"
	"time"
)

// Record is a per-owner token consumption snapshot for the current period.
type Record struct {
	OwnerID     string    `json:"ownerId"`
	TokensUsed  int64     `json:"tokensUsed"`
	PeriodStart time.Time `json:"periodStart"`
}

type store interface {
	Add(ctx context.Context, ownerID string, tokens int64) (Record, error)
	Get(ctx context.Context, ownerID string) (Record, error)
}

// Meter aggregates model token consumption per owner.
type Meter struct {
	store store
}

// NewMeter constructs a Meter with an in-memory store.
func NewMeter() *Meter {
	return &Meter{store: newMemoryStore()}
}

// NewPostgresMeter constructs a Meter backed by Postgres.
func NewPostgresMeter(pgStore *PGStore) *Meter {
	return &Meter{store: pgStore}
}

// Add records token consumption for an owner.
func (m *Meter) Add(ctx context.Context, ownerID string, tokens int64) (Record, error) {
	if tokens <= 0 {
		return m.store.Get(ctx, ownerID)
	}
	return m.store.Add(ctx, ownerID, tokens)
}

// Get returns the current period's consumption for an owner.
func (m *Meter) Get(ctx context.Context, ownerID string) (Record, error) {
	return m.store.Get(ctx, ownerID)
}
