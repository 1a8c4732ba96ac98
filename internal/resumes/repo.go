package resumes

import (
	"context"
	"time"
)

// Capabilities reports what the backing metadata store supports.
type Capabilities struct {
	// InlinePayload is true when the store lacks blob-reference columns
	// and payloads live inline in the metadata row instead.
	InlinePayload bool
}

// Repo defines persistence operations for resume records.
type Repo interface {
	Capabilities() Capabilities

	// Create inserts a record. inlinePayload is stored in the row only
	// when the repo runs in inline-payload mode; otherwise it is ignored.
	Create(ctx context.Context, rec Resume, inlinePayload []byte) error
	GetByID(ctx context.Context, ownerID, recordID string) (Resume, error)
	GetInlinePayload(ctx context.Context, ownerID, recordID string) ([]byte, error)
	ListByOwner(ctx context.Context, ownerID string, limit, offset int) ([]Resume, error)
	CountByOwner(ctx context.Context, ownerID string) (int, error)
	Delete(ctx context.Context, ownerID, recordID string) error

	// UnsetPrimary clears the primary flag on all of the owner's records.
	UnsetPrimary(ctx context.Context, ownerID string) error
	// SetPrimary flags the target record; reports whether a row matched.
	SetPrimary(ctx context.Context, ownerID, recordID string) (bool, error)

	// ClaimGeneration is the pending->generating compare-and-set. It
	// reports whether this caller won the claim.
	ClaimGeneration(ctx context.Context, recordID string) (bool, error)
	// FinishGeneration moves generating->ready, setting the artifact key
	// and timestamp in the same conditional update.
	FinishGeneration(ctx context.Context, recordID, artifactKey string, generatedAt time.Time) error
	// FailGeneration moves generating->failed, retaining failure detail.
	FailGeneration(ctx context.Context, recordID, detail string) error
	// ResetForRegeneration moves ready|failed->pending for an explicit
	// caller-initiated retry; reports whether a row matched.
	ResetForRegeneration(ctx context.Context, ownerID, recordID string) (bool, error)
}
