package resumes

import (
	"time"

	"resume-hub/resume/model"
)

// SubmitRequest is the raw-text submission body.
type SubmitRequest struct {
	RawText     string `json:"rawText" binding:"required"`
	DisplayName string `json:"displayName"`
}

// RecordResponse is the API view of a stored record.
type RecordResponse struct {
	ID                  string               `json:"id"`
	DisplayName         string               `json:"displayName"`
	ByteSize            int64                `json:"byteSize"`
	SourceFileKey       string               `json:"sourceFileKey,omitempty"`
	ArtifactStatus      string               `json:"artifactStatus"`
	ArtifactError       string               `json:"artifactError,omitempty"`
	ArtifactGeneratedAt *time.Time           `json:"artifactGeneratedAt,omitempty"`
	IsPrimary           bool                 `json:"isPrimary"`
	SchemaMetadata      model.SchemaMetadata `json:"schemaMetadata"`
	CreatedAt           time.Time            `json:"createdAt"`
	UpdatedAt           time.Time            `json:"updatedAt"`
}

// SubmitResponse is the submission result: the stored record plus any
// non-fatal extraction warnings.
type SubmitResponse struct {
	Resume   RecordResponse `json:"resume"`
	Warnings []string       `json:"warnings,omitempty"`
}

// DetailResponse is a record with its structured document.
type DetailResponse struct {
	Resume   RecordResponse `json:"resume"`
	Document model.Document `json:"document"`
}

// ListResponse is a page of records.
type ListResponse struct {
	Resumes []RecordResponse `json:"resumes"`
	Count   int              `json:"count"`
}

func toRecordResponse(rec Resume) RecordResponse {
	return RecordResponse{
		ID:                  rec.ID,
		DisplayName:         rec.DisplayName,
		ByteSize:            rec.ByteSize,
		SourceFileKey:       rec.SourceFileKey,
		ArtifactStatus:      rec.ArtifactStatus,
		ArtifactError:       rec.ArtifactError,
		ArtifactGeneratedAt: rec.ArtifactGeneratedAt,
		IsPrimary:           rec.IsPrimary,
		SchemaMetadata:      rec.SchemaMetadata,
		CreatedAt:           rec.CreatedAt,
		UpdatedAt:           rec.UpdatedAt,
	}
}

func toListResponse(recs []Resume) ListResponse {
	out := make([]RecordResponse, 0, len(recs))
	for _, rec := range recs {
		out = append(out, toRecordResponse(rec))
	}
	return ListResponse{Resumes: out, Count: len(out)}
}
