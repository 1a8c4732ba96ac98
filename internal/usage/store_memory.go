package usage

import (
	"context"
	"sync"
	"time"
)

const periodLength = 30 * 24 * time.Hour

type memoryStore struct {
	mu   sync.Mutex
	data map[string]Record
}

func newMemoryStore() *memoryStore {
	return &memoryStore{data: make(map[string]Record)}
}

func (s *memoryStore) Add(ctx context.Context, ownerID string, tokens int64) (Record, error) {
	if err := ctx.Err(); err != nil {
		return Record{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	rec := s.ensureLocked(ownerID)
	rec.TokensUsed += tokens
	s.data[ownerID] = rec
	return rec, nil
}

func (s *memoryStore) Get(ctx context.Context, ownerID string) (Record, error) {
	if err := ctx.Err(); err != nil {
		return Record{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	rec := s.ensureLocked(ownerID)
	s.data[ownerID] = rec
	return rec, nil
}

func (s *memoryStore) ensureLocked(ownerID string) Record {
	now := time.Now().UTC()
	rec, ok := s.data[ownerID]
	if !ok {
		return Record{OwnerID: ownerID, PeriodStart: now}
	}
	if now.Sub(rec.PeriodStart) >= periodLength {
		rec.TokensUsed = 0
		rec.PeriodStart = now
	}
	return rec
}
