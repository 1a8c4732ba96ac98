package resumes

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"resume-hub/internal/shared/telemetry"
	"resume-hub/resume/model"
)

// PGRepo implements Repo using Postgres.
type PGRepo struct {
	DB     *sql.DB
	inline bool
}

// NewPGRepo constructs a PGRepo, probing the resumes table for the blob
// reference columns. A store without them runs in inline-payload mode; the
// caller contract does not change, only where payload bytes live.
func NewPGRepo(ctx context.Context, db *sql.DB) (*PGRepo, error) {
	repo := &PGRepo{DB: db}

	const probe = `
SELECT COUNT(*)
FROM information_schema.columns
WHERE table_name = 'resumes' AND column_name = 'payload_key'`

	var count int
	if err := db.QueryRowContext(ctx, probe).Scan(&count); err != nil {
		return nil, fmt.Errorf("probe resumes columns: %w", err)
	}
	if count == 0 {
		repo.inline = true
		telemetry.Warn("resumes.inline_payload_mode", map[string]any{
			"reason": "payload_key column missing; storing payloads in metadata rows",
		})
	}
	return repo, nil
}

func (r *PGRepo) Capabilities() Capabilities {
	return Capabilities{InlinePayload: r.inline}
}

const resumeColumns = `
id, owner_id, display_name, byte_size, payload_key, source_file_key,
artifact_key, artifact_status, artifact_error, artifact_generated_at,
is_primary, schema_metadata, created_at, updated_at`

// The degraded schema has no blob reference columns; NULL placeholders keep
// one scan path for both modes.
const resumeColumnsInline = `
id, owner_id, display_name, byte_size, NULL, NULL,
artifact_key, artifact_status, artifact_error, artifact_generated_at,
is_primary, schema_metadata, created_at, updated_at`

func (r *PGRepo) columns() string {
	if r.inline {
		return resumeColumnsInline
	}
	return resumeColumns
}

// Create inserts a new record.
func (r *PGRepo) Create(ctx context.Context, rec Resume, inlinePayload []byte) error {
	metadata, err := json.Marshal(rec.SchemaMetadata)
	if err != nil {
		return fmt.Errorf("encode schema metadata: %w", err)
	}

	if r.inline {
		const query = `
INSERT INTO resumes (
    id, owner_id, display_name, byte_size, artifact_status,
    is_primary, schema_metadata, payload, created_at, updated_at
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`
		_, err = r.DB.ExecContext(ctx, query,
			rec.ID, rec.OwnerID, rec.DisplayName, rec.ByteSize, rec.ArtifactStatus,
			rec.IsPrimary, metadata, inlinePayload, rec.CreatedAt, rec.UpdatedAt,
		)
		return err
	}

	const query = `
INSERT INTO resumes (
    id, owner_id, display_name, byte_size, payload_key, source_file_key,
    artifact_status, is_primary, schema_metadata, created_at, updated_at
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`
	_, err = r.DB.ExecContext(ctx, query,
		rec.ID, rec.OwnerID, rec.DisplayName, rec.ByteSize,
		nullString(rec.PayloadKey), nullString(rec.SourceFileKey),
		rec.ArtifactStatus, rec.IsPrimary, metadata, rec.CreatedAt, rec.UpdatedAt,
	)
	return err
}

// GetByID fetches a record by ID for an owner.
func (r *PGRepo) GetByID(ctx context.Context, ownerID, recordID string) (Resume, error) {
	query := `
SELECT ` + r.columns() + `
FROM resumes
WHERE owner_id = $1 AND id = $2
LIMIT 1`
	rec, err := scanResume(r.DB.QueryRowContext(ctx, query, ownerID, recordID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Resume{}, ErrNotFound
		}
		return Resume{}, err
	}
	return rec, nil
}

// GetInlinePayload fetches the payload column in inline mode.
func (r *PGRepo) GetInlinePayload(ctx context.Context, ownerID, recordID string) ([]byte, error) {
	const query = `
SELECT payload FROM resumes WHERE owner_id = $1 AND id = $2 LIMIT 1`
	var payload []byte
	err := r.DB.QueryRowContext(ctx, query, ownerID, recordID).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if len(payload) == 0 {
		return nil, ErrCorruptRecord
	}
	return payload, nil
}

// ListByOwner lists records newest-first.
func (r *PGRepo) ListByOwner(ctx context.Context, ownerID string, limit, offset int) ([]Resume, error) {
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}
	query := `
SELECT ` + r.columns() + `
FROM resumes
WHERE owner_id = $1
ORDER BY created_at DESC
LIMIT $2 OFFSET $3`

	rows, err := r.DB.QueryContext(ctx, query, ownerID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Resume
	for rows.Next() {
		rec, err := scanResume(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// CountByOwner counts an owner's records.
func (r *PGRepo) CountByOwner(ctx context.Context, ownerID string) (int, error) {
	const query = `SELECT COUNT(*) FROM resumes WHERE owner_id = $1`
	var count int
	if err := r.DB.QueryRowContext(ctx, query, ownerID).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

// Delete removes the metadata row.
func (r *PGRepo) Delete(ctx context.Context, ownerID, recordID string) error {
	const query = `DELETE FROM resumes WHERE owner_id = $1 AND id = $2`
	res, err := r.DB.ExecContext(ctx, query, ownerID, recordID)
	if err != nil {
		return err
	}
	affected, _ := res.RowsAffected()
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// UnsetPrimary clears the primary flag on all of the owner's records.
func (r *PGRepo) UnsetPrimary(ctx context.Context, ownerID string) error {
	const query = `
UPDATE resumes SET is_primary = FALSE, updated_at = now()
WHERE owner_id = $1 AND is_primary`
	_, err := r.DB.ExecContext(ctx, query, ownerID)
	return err
}

// SetPrimary flags the target record.
func (r *PGRepo) SetPrimary(ctx context.Context, ownerID, recordID string) (bool, error) {
	const query = `
UPDATE resumes SET is_primary = TRUE, updated_at = now()
WHERE owner_id = $1 AND id = $2`
	res, err := r.DB.ExecContext(ctx, query, ownerID, recordID)
	if err != nil {
		return false, err
	}
	affected, _ := res.RowsAffected()
	return affected > 0, nil
}

// ClaimGeneration is the pending->generating compare-and-set.
func (r *PGRepo) ClaimGeneration(ctx context.Context, recordID string) (bool, error) {
	const query = `
UPDATE resumes SET artifact_status = $1, updated_at = now()
WHERE id = $2 AND artifact_status = $3`
	res, err := r.DB.ExecContext(ctx, query, StatusGenerating, recordID, StatusPending)
	if err != nil {
		return false, err
	}
	affected, _ := res.RowsAffected()
	return affected > 0, nil
}

// FinishGeneration moves generating->ready with artifact key and timestamp.
func (r *PGRepo) FinishGeneration(ctx context.Context, recordID, artifactKey string, generatedAt time.Time) error {
	const query = `
UPDATE resumes
SET artifact_status = $1, artifact_key = $2, artifact_generated_at = $3,
    artifact_error = NULL, updated_at = now()
WHERE id = $4 AND artifact_status = $5`
	res, err := r.DB.ExecContext(ctx, query, StatusReady, artifactKey, generatedAt, recordID, StatusGenerating)
	if err != nil {
		return err
	}
	affected, _ := res.RowsAffected()
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// FailGeneration moves generating->failed, retaining failure detail.
func (r *PGRepo) FailGeneration(ctx context.Context, recordID, detail string) error {
	const query = `
UPDATE resumes
SET artifact_status = $1, artifact_error = $2, updated_at = now()
WHERE id = $3 AND artifact_status = $4`
	res, err := r.DB.ExecContext(ctx, query, StatusFailed, detail, recordID, StatusGenerating)
	if err != nil {
		return err
	}
	affected, _ := res.RowsAffected()
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// ResetForRegeneration moves ready|failed->pending for an explicit retry.
func (r *PGRepo) ResetForRegeneration(ctx context.Context, ownerID, recordID string) (bool, error) {
	const query = `
UPDATE resumes
SET artifact_status = $1, artifact_error = NULL, updated_at = now()
WHERE owner_id = $2 AND id = $3 AND artifact_status IN ($4, $5)`
	res, err := r.DB.ExecContext(ctx, query, StatusPending, ownerID, recordID, StatusReady, StatusFailed)
	if err != nil {
		return false, err
	}
	affected, _ := res.RowsAffected()
	return affected > 0, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanResume(row rowScanner) (Resume, error) {
	var rec Resume
	var payloadKey, sourceKey, artifactKey, artifactError sql.NullString
	var generatedAt sql.NullTime
	var metadata []byte

	err := row.Scan(
		&rec.ID,
		&rec.OwnerID,
		&rec.DisplayName,
		&rec.ByteSize,
		&payloadKey,
		&sourceKey,
		&artifactKey,
		&rec.ArtifactStatus,
		&artifactError,
		&generatedAt,
		&rec.IsPrimary,
		&metadata,
		&rec.CreatedAt,
		&rec.UpdatedAt,
	)
	if err != nil {
		return Resume{}, err
	}
	if payloadKey.Valid {
		rec.PayloadKey = payloadKey.String
	}
	if sourceKey.Valid {
		rec.SourceFileKey = sourceKey.String
	}
	if artifactKey.Valid {
		rec.ArtifactKey = artifactKey.String
	}
	if artifactError.Valid {
		rec.ArtifactError = artifactError.String
	}
	if generatedAt.Valid {
		t := generatedAt.Time
		rec.ArtifactGeneratedAt = &t
	}
	if len(metadata) > 0 {
		var meta model.SchemaMetadata
		if err := json.Unmarshal(metadata, &meta); err == nil {
			rec.SchemaMetadata = meta
		}
	}
	return rec, nil
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

var _ Repo = (*PGRepo)(nil)
