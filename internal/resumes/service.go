package resumes

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"

	"resume-hub/internal/extraction"
	"resume-hub/internal/notify"
	"resume-hub/internal/shared/storage/object"
	"resume-hub/internal/shared/telemetry"
	"resume-hub/internal/shared/util"
	"resume-hub/resume/model"
)

// Extractor turns raw resume text into a structured document.
type Extractor interface {
	Extract(ctx context.Context, rawText, ownerID string) (extraction.Result, error)
}

// Generator schedules asynchronous artifact rendering for a record. Enqueue
// must not block and must not fail the calling request.
type Generator interface {
	Enqueue(ownerID, recordID string)
}

// Notifier delivers lifecycle events to an owner's subscribers.
type Notifier interface {
	Publish(ownerID string, ev notify.Event)
}

// Service orchestrates the record lifecycle across the metadata store and
// the blob store.
type Service struct {
	Repo      Repo
	Blobs     object.ObjectStore
	Extractor Extractor
	Generator Generator
	Notify    Notifier
}

// SubmitInput is one submission: raw text, optionally accompanied by the
// original uploaded file bytes.
type SubmitInput struct {
	RawText        string
	DisplayName    string
	SourceFile     []byte
	SourceFileName string
}

// SubmitResult is the stored record plus non-fatal extraction warnings.
type SubmitResult struct {
	Record   Resume
	Document model.Document
	Warnings []string
}

// Submit extracts a structured document from raw text and persists it. The
// payload blob is written before the metadata row so a failure never leaves
// a row pointing at a missing blob.
func (s *Service) Submit(ctx context.Context, ownerID string, in SubmitInput) (SubmitResult, error) {
	if strings.TrimSpace(in.RawText) == "" {
		return SubmitResult{}, fmt.Errorf("%w: empty submission", ErrInvalidInput)
	}

	result, err := s.Extractor.Extract(ctx, in.RawText, ownerID)
	if err != nil {
		return SubmitResult{}, err
	}

	payload, err := json.Marshal(result.Document)
	if err != nil {
		return SubmitResult{}, fmt.Errorf("encode document: %w", err)
	}

	now := time.Now().UTC()
	rec := Resume{
		ID:             uuid.NewString(),
		OwnerID:        ownerID,
		DisplayName:    displayName(in, result.Document),
		ByteSize:       int64(len(payload)),
		ArtifactStatus: StatusPending,
		SchemaMetadata: result.Metadata,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	// An owner's first record becomes primary. The count and the insert are
	// not atomic; two concurrent first submissions can both win.
	count, err := s.Repo.CountByOwner(ctx, ownerID)
	if err != nil {
		return SubmitResult{}, err
	}
	rec.IsPrimary = count == 0

	var inlinePayload []byte
	if s.Repo.Capabilities().InlinePayload {
		inlinePayload = payload
		if len(in.SourceFile) > 0 {
			// The degraded schema has no column to record a source key, so
			// a stored blob would be unreachable.
			result.Warnings = append(result.Warnings, "uploaded source file was not retained")
			telemetry.Warn("resumes.source_file_dropped", map[string]any{
				"owner_id":  ownerID,
				"file_name": in.SourceFileName,
			})
		}
	} else {
		if len(in.SourceFile) > 0 {
			rec.SourceFileKey = sourceFileKey(ownerID, rec.ID, in.SourceFileName)
			if _, err := s.Blobs.Put(ctx, rec.SourceFileKey, "application/octet-stream", bytes.NewReader(in.SourceFile)); err != nil {
				return SubmitResult{}, &StorageError{Op: "put", Key: rec.SourceFileKey, Err: err}
			}
		}
		rec.PayloadKey = payloadKey(ownerID, rec.ID)
		if _, err := s.Blobs.Put(ctx, rec.PayloadKey, "application/json", bytes.NewReader(payload)); err != nil {
			s.removeOrphan(ctx, rec.SourceFileKey)
			return SubmitResult{}, &StorageError{Op: "put", Key: rec.PayloadKey, Err: err}
		}
	}

	if err := s.Repo.Create(ctx, rec, inlinePayload); err != nil {
		// Orphaned blobs, no row. Best-effort cleanup.
		s.removeOrphan(ctx, rec.PayloadKey)
		s.removeOrphan(ctx, rec.SourceFileKey)
		return SubmitResult{}, err
	}

	s.Generator.Enqueue(ownerID, rec.ID)

	telemetry.Info("resumes.submitted", map[string]any{
		"owner_id":   ownerID,
		"record_id":  rec.ID,
		"byte_size":  rec.ByteSize,
		"is_primary": rec.IsPrimary,
	})
	return SubmitResult{Record: rec, Document: result.Document, Warnings: result.Warnings}, nil
}

// Get returns a record's metadata.
func (s *Service) Get(ctx context.Context, ownerID, recordID string) (Resume, error) {
	return s.Repo.GetByID(ctx, ownerID, recordID)
}

// GetDocument returns a record and its structured document, re-normalized on
// read so callers always see the current shape regardless of when the
// payload was written.
func (s *Service) GetDocument(ctx context.Context, ownerID, recordID string) (Resume, model.Document, error) {
	rec, err := s.Repo.GetByID(ctx, ownerID, recordID)
	if err != nil {
		return Resume{}, model.Document{}, err
	}

	payload, err := s.readPayload(ctx, rec)
	if err != nil {
		return Resume{}, model.Document{}, err
	}

	doc, err := model.Normalize(payload)
	if err != nil {
		return Resume{}, model.Document{}, fmt.Errorf("%w: %v", ErrCorruptRecord, err)
	}
	return rec, doc, nil
}

func (s *Service) readPayload(ctx context.Context, rec Resume) ([]byte, error) {
	if s.Repo.Capabilities().InlinePayload {
		return s.Repo.GetInlinePayload(ctx, rec.OwnerID, rec.ID)
	}
	if rec.PayloadKey == "" {
		return nil, fmt.Errorf("%w: record has no payload reference", ErrCorruptRecord)
	}
	r, err := s.Blobs.Open(ctx, rec.PayloadKey)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptRecord, err)
	}
	defer r.Close()
	payload, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptRecord, err)
	}
	return payload, nil
}

// List returns an owner's records, newest first.
func (s *Service) List(ctx context.Context, ownerID string, limit, offset int) ([]Resume, error) {
	return s.Repo.ListByOwner(ctx, ownerID, limit, offset)
}

// GetStatus returns the artifact lifecycle view for polling.
func (s *Service) GetStatus(ctx context.Context, ownerID, recordID string) (StatusInfo, error) {
	rec, err := s.Repo.GetByID(ctx, ownerID, recordID)
	if err != nil {
		return StatusInfo{}, err
	}
	return StatusInfo{
		RecordID:            rec.ID,
		ArtifactStatus:      rec.ArtifactStatus,
		ArtifactGeneratedAt: rec.ArtifactGeneratedAt,
	}, nil
}

// SetPrimary makes the target record the owner's primary, clearing the flag
// from every other record first. The clear stands even when the target turns
// out not to exist for this owner.
func (s *Service) SetPrimary(ctx context.Context, ownerID, recordID string) error {
	if err := s.Repo.UnsetPrimary(ctx, ownerID); err != nil {
		return err
	}
	ok, err := s.Repo.SetPrimary(ctx, ownerID, recordID)
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotFound
	}
	return nil
}

// Delete removes a record. Blobs go first: if a blob removal fails the
// metadata row is kept so the record stays visible and the delete can be
// retried.
func (s *Service) Delete(ctx context.Context, ownerID, recordID string) error {
	rec, err := s.Repo.GetByID(ctx, ownerID, recordID)
	if err != nil {
		return err
	}

	// Artifacts live in the blob store even when payloads are inline.
	keys := []string{rec.ArtifactKey}
	if !s.Repo.Capabilities().InlinePayload {
		keys = append(keys, rec.PayloadKey, rec.SourceFileKey)
	}
	for _, key := range keys {
		if key == "" {
			continue
		}
		if err := s.Blobs.Remove(ctx, key); err != nil {
			return &StorageError{Op: "remove", Key: key, Err: err}
		}
	}

	if err := s.Repo.Delete(ctx, ownerID, recordID); err != nil {
		return err
	}
	if s.Notify != nil {
		s.Notify.Publish(ownerID, notify.RecordDeletedEvent(recordID))
	}
	telemetry.Info("resumes.deleted", map[string]any{
		"owner_id":  ownerID,
		"record_id": recordID,
	})
	return nil
}

// Regenerate requests a fresh artifact render. Allowed from ready or failed;
// a no-op while a render is already in flight.
func (s *Service) Regenerate(ctx context.Context, ownerID, recordID string) (StatusInfo, error) {
	ok, err := s.Repo.ResetForRegeneration(ctx, ownerID, recordID)
	if err != nil {
		return StatusInfo{}, err
	}
	if !ok {
		rec, err := s.Repo.GetByID(ctx, ownerID, recordID)
		if err != nil {
			return StatusInfo{}, err
		}
		// Already pending or generating: the in-flight render stands.
		return StatusInfo{
			RecordID:            rec.ID,
			ArtifactStatus:      rec.ArtifactStatus,
			ArtifactGeneratedAt: rec.ArtifactGeneratedAt,
		}, nil
	}

	s.Generator.Enqueue(ownerID, recordID)
	return StatusInfo{RecordID: recordID, ArtifactStatus: StatusPending}, nil
}

// OpenArtifact streams the rendered artifact. Only a ready record has one.
func (s *Service) OpenArtifact(ctx context.Context, ownerID, recordID string) (io.ReadCloser, Resume, error) {
	rec, err := s.Repo.GetByID(ctx, ownerID, recordID)
	if err != nil {
		return nil, Resume{}, err
	}
	if rec.ArtifactStatus != StatusReady || rec.ArtifactKey == "" {
		return nil, Resume{}, ErrArtifactNotReady
	}
	r, err := s.Blobs.Open(ctx, rec.ArtifactKey)
	if err != nil {
		return nil, Resume{}, &StorageError{Op: "open", Key: rec.ArtifactKey, Err: err}
	}
	return r, rec, nil
}

func displayName(in SubmitInput, doc model.Document) string {
	name := strings.TrimSpace(in.DisplayName)
	if name == "" {
		name = strings.TrimSpace(doc.PersonalInfo.FirstName + " " + doc.PersonalInfo.LastName)
	}
	if name == "" {
		name = "Untitled resume"
	}
	return name
}

func (s *Service) removeOrphan(ctx context.Context, key string) {
	if key == "" {
		return
	}
	if err := s.Blobs.Remove(ctx, key); err != nil {
		telemetry.Warn("resumes.orphan_blob", map[string]any{
			"key":   key,
			"error": err.Error(),
		})
	}
}

func payloadKey(ownerID, recordID string) string {
	return fmt.Sprintf("owners/%s/resumes/%s/document.json", util.HashOwnerKey(ownerID), recordID)
}

func sourceFileKey(ownerID, recordID, fileName string) string {
	if fileName == "" {
		fileName = "source"
	}
	return fmt.Sprintf("owners/%s/resumes/%s/source/%s", util.HashOwnerKey(ownerID), recordID, fileName)
}

// ArtifactKeyFor is the canonical blob key for a record's rendered artifact.
func ArtifactKeyFor(ownerID, recordID string) string {
	return fmt.Sprintf("owners/%s/resumes/%s/resume.pdf", util.HashOwnerKey(ownerID), recordID)
}
