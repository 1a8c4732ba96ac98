package extraction

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"resume-hub/internal/llm"
	"resume-hub/internal/shared/metrics"
	"resume-hub/internal/shared/telemetry"
	"resume-hub/internal/usage"
	"resume-hub/resume/model"
)

// MinInputLength is the trimmed character count below which extraction is
// refused without calling the model.
const MinInputLength = 50

// Result is a successful extraction. Warnings carry degradations (such as
// missing structural hints) that did not abort the extraction.
type Result struct {
	Document   model.Document
	Metadata   model.SchemaMetadata
	TokensUsed int
	Warnings   []string
}

// TokenMeter records model token consumption. *usage.Meter satisfies it.
type TokenMeter interface {
	Add(ctx context.Context, ownerID string, tokens int64) (usage.Record, error)
}

// Adapter turns raw resume text into a structured document via the model.
type Adapter struct {
	LLM         llm.Client
	Meter       TokenMeter
	Temperature float32
	MaxTokens   int
}

// Extract runs the primary extraction, the independent structural-hints
// sub-call, validation, and token metering.
func (a *Adapter) Extract(ctx context.Context, rawText, ownerID string) (Result, error) {
	if len(strings.TrimSpace(rawText)) < MinInputLength {
		return Result{}, ErrInsufficientInput
	}

	metrics.IncExtractionStarted()

	completion, err := a.LLM.Complete(ctx, llm.BuildExtractionPrompt(rawText), a.options())
	if err != nil {
		metrics.IncExtractionFailed()
		return Result{}, fmt.Errorf("model call: %w", err)
	}

	doc, err := ParseDocument(completion.Content)
	if err != nil {
		metrics.IncExtractionFailed()
		return Result{}, err
	}
	if err := doc.Validate(); err != nil {
		metrics.IncExtractionFailed()
		return Result{}, err
	}

	result := Result{Document: doc, TokensUsed: completion.TotalTokens}

	// Structural hints are optional: a failure here degrades to defaults
	// instead of failing the extraction.
	meta, metaTokens, metaErr := a.extractSchemaMetadata(ctx, rawText)
	if metaErr != nil {
		telemetry.Warn("extraction.schema_metadata_failed", map[string]any{
			"owner_id": ownerID,
			"error":    metaErr.Error(),
		})
		result.Warnings = append(result.Warnings, "structural hints unavailable; defaults applied")
	} else {
		result.Metadata = meta
	}
	result.TokensUsed += metaTokens

	a.meter(ctx, ownerID, result.TokensUsed)

	metrics.IncExtractionCompleted()
	return result, nil
}

// ParseDocument recovers a structured document from raw model output. The
// output is not assumed to be valid JSON: the object is isolated by
// brace-depth scanning, then textual repairs are attempted before giving up.
func ParseDocument(content string) (model.Document, error) {
	raw, ok := isolateJSONObject(content)
	if !ok {
		repaired, okRepaired := isolateJSONObject(repairJSON(content))
		if !okRepaired {
			return model.Document{}, fmt.Errorf("%w: no JSON object found", ErrUnrecoverableResponse)
		}
		raw = repaired
	}

	if doc, err := decodeDocument(raw); err == nil {
		return doc, nil
	}

	doc, err := decodeDocument(repairJSON(raw))
	if err != nil {
		return model.Document{}, fmt.Errorf("%w: %v", ErrUnrecoverableResponse, err)
	}
	return doc, nil
}

func decodeDocument(raw string) (model.Document, error) {
	if !json.Valid([]byte(raw)) {
		return model.Document{}, fmt.Errorf("invalid JSON")
	}
	return model.Normalize([]byte(raw))
}

func (a *Adapter) extractSchemaMetadata(ctx context.Context, rawText string) (model.SchemaMetadata, int, error) {
	completion, err := a.LLM.Complete(ctx, llm.BuildSchemaMetadataPrompt(rawText), a.options())
	if err != nil {
		return model.SchemaMetadata{}, 0, err
	}

	raw, ok := isolateJSONObject(completion.Content)
	if !ok {
		return model.SchemaMetadata{}, completion.TotalTokens, fmt.Errorf("no JSON object in metadata response")
	}
	var meta model.SchemaMetadata
	if err := json.Unmarshal([]byte(repairJSON(raw)), &meta); err != nil {
		return model.SchemaMetadata{}, completion.TotalTokens, fmt.Errorf("decode metadata: %w", err)
	}
	return meta, completion.TotalTokens, nil
}

// meter reports consumed tokens; metering failures never fail an extraction.
func (a *Adapter) meter(ctx context.Context, ownerID string, tokens int) {
	if a.Meter == nil || tokens <= 0 {
		return
	}
	if _, err := a.Meter.Add(ctx, ownerID, int64(tokens)); err != nil {
		telemetry.Warn("extraction.metering_failed", map[string]any{
			"owner_id": ownerID,
			"tokens":   tokens,
			"error":    err.Error(),
		})
	}
}

func (a *Adapter) options() llm.Options {
	return llm.Options{Temperature: a.Temperature, MaxTokens: a.MaxTokens}
}
