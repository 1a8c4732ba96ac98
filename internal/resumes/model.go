package resumes

import (
	"time"

	"resume-hub/resume/model"
)

// Artifact generation states.
const (
	StatusPending    = "pending"
	StatusGenerating = "generating"
	StatusReady      = "ready"
	StatusFailed     = "failed"
)

// Resume is the metadata record for one stored document.
type Resume struct {
	ID                  string               `json:"id"`
	OwnerID             string               `json:"ownerId"`
	DisplayName         string               `json:"displayName"`
	ByteSize            int64                `json:"byteSize"`
	PayloadKey          string               `json:"payloadKey,omitempty"`
	SourceFileKey       string               `json:"sourceFileKey,omitempty"`
	ArtifactKey         string               `json:"artifactKey,omitempty"`
	ArtifactStatus      string               `json:"artifactStatus"`
	ArtifactError       string               `json:"artifactError,omitempty"`
	ArtifactGeneratedAt *time.Time           `json:"artifactGeneratedAt,omitempty"`
	IsPrimary           bool                 `json:"isPrimary"`
	SchemaMetadata      model.SchemaMetadata `json:"schemaMetadata"`
	CreatedAt           time.Time            `json:"createdAt"`
	UpdatedAt           time.Time            `json:"updatedAt"`
}

// StatusInfo is the polling view of a record's artifact lifecycle.
type StatusInfo struct {
	RecordID            string     `json:"recordId"`
	ArtifactStatus      string     `json:"artifactStatus"`
	ArtifactGeneratedAt *time.Time `json:"artifactGeneratedAt,omitempty"`
}
