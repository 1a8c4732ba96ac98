package resumes

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryRepo is an in-memory implementation of Repo.
type MemoryRepo struct {
	mu       sync.RWMutex
	data     map[string]Resume // recordID -> record
	payloads map[string][]byte // recordID -> inline payload
	inline   bool
}

// NewMemoryRepo constructs a two-tier MemoryRepo.
func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{
		data:     make(map[string]Resume),
		payloads: make(map[string][]byte),
	}
}

// NewInlineMemoryRepo constructs a MemoryRepo in inline-payload mode,
// mirroring the degraded single-tier branch of the Postgres repo.
func NewInlineMemoryRepo() *MemoryRepo {
	repo := NewMemoryRepo()
	repo.inline = true
	return repo
}

func (r *MemoryRepo) Capabilities() Capabilities {
	return Capabilities{InlinePayload: r.inline}
}

func (r *MemoryRepo) Create(ctx context.Context, rec Resume, inlinePayload []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.data[rec.ID] = rec
	if r.inline {
		r.payloads[rec.ID] = append([]byte(nil), inlinePayload...)
	}
	return nil
}

func (r *MemoryRepo) GetByID(ctx context.Context, ownerID, recordID string) (Resume, error) {
	if err := ctx.Err(); err != nil {
		return Resume{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	rec, ok := r.data[recordID]
	if !ok || rec.OwnerID != ownerID {
		return Resume{}, ErrNotFound
	}
	return rec, nil
}

func (r *MemoryRepo) GetInlinePayload(ctx context.Context, ownerID, recordID string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	rec, ok := r.data[recordID]
	if !ok || rec.OwnerID != ownerID {
		return nil, ErrNotFound
	}
	payload, ok := r.payloads[recordID]
	if !ok {
		return nil, ErrCorruptRecord
	}
	return append([]byte(nil), payload...), nil
}

func (r *MemoryRepo) ListByOwner(ctx context.Context, ownerID string, limit, offset int) ([]Resume, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if offset < 0 {
		offset = 0
	}
	if limit <= 0 {
		limit = 20
	}

	r.mu.RLock()
	var out []Resume
	for _, rec := range r.data {
		if rec.OwnerID == ownerID {
			out = append(out, rec)
		}
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if offset >= len(out) {
		return []Resume{}, nil
	}
	end := len(out)
	if offset+limit < end {
		end = offset + limit
	}
	return out[offset:end], nil
}

func (r *MemoryRepo) CountByOwner(ctx context.Context, ownerID string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	count := 0
	for _, rec := range r.data {
		if rec.OwnerID == ownerID {
			count++
		}
	}
	return count, nil
}

func (r *MemoryRepo) Delete(ctx context.Context, ownerID, recordID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.data[recordID]
	if !ok || rec.OwnerID != ownerID {
		return ErrNotFound
	}
	delete(r.data, recordID)
	delete(r.payloads, recordID)
	return nil
}

func (r *MemoryRepo) UnsetPrimary(ctx context.Context, ownerID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, rec := range r.data {
		if rec.OwnerID == ownerID && rec.IsPrimary {
			rec.IsPrimary = false
			rec.UpdatedAt = time.Now().UTC()
			r.data[id] = rec
		}
	}
	return nil
}

func (r *MemoryRepo) SetPrimary(ctx context.Context, ownerID, recordID string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.data[recordID]
	if !ok || rec.OwnerID != ownerID {
		return false, nil
	}
	rec.IsPrimary = true
	rec.UpdatedAt = time.Now().UTC()
	r.data[recordID] = rec
	return true, nil
}

func (r *MemoryRepo) ClaimGeneration(ctx context.Context, recordID string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.data[recordID]
	if !ok || rec.ArtifactStatus != StatusPending {
		return false, nil
	}
	rec.ArtifactStatus = StatusGenerating
	rec.UpdatedAt = time.Now().UTC()
	r.data[recordID] = rec
	return true, nil
}

func (r *MemoryRepo) FinishGeneration(ctx context.Context, recordID, artifactKey string, generatedAt time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.data[recordID]
	if !ok || rec.ArtifactStatus != StatusGenerating {
		return ErrNotFound
	}
	rec.ArtifactStatus = StatusReady
	rec.ArtifactKey = artifactKey
	rec.ArtifactGeneratedAt = &generatedAt
	rec.ArtifactError = ""
	rec.UpdatedAt = time.Now().UTC()
	r.data[recordID] = rec
	return nil
}

func (r *MemoryRepo) FailGeneration(ctx context.Context, recordID, detail string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.data[recordID]
	if !ok || rec.ArtifactStatus != StatusGenerating {
		return ErrNotFound
	}
	rec.ArtifactStatus = StatusFailed
	rec.ArtifactError = detail
	rec.UpdatedAt = time.Now().UTC()
	r.data[recordID] = rec
	return nil
}

func (r *MemoryRepo) ResetForRegeneration(ctx context.Context, ownerID, recordID string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.data[recordID]
	if !ok || rec.OwnerID != ownerID {
		return false, nil
	}
	if rec.ArtifactStatus != StatusReady && rec.ArtifactStatus != StatusFailed {
		return false, nil
	}
	rec.ArtifactStatus = StatusPending
	rec.ArtifactError = ""
	rec.UpdatedAt = time.Now().UTC()
	r.data[recordID] = rec
	return true, nil
}

var _ Repo = (*MemoryRepo)(nil)
