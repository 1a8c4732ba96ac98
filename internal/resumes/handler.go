package resumes

import (
	"bytes"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"resume-hub/internal/extraction"
	"resume-hub/internal/shared/server/middleware"
	"resume-hub/internal/shared/server/respond"
	"resume-hub/internal/shared/util"
	"resume-hub/resume/model"
)

// TextExtractor recovers plain text from an uploaded source file.
type TextExtractor interface {
	Text(fileName string, r io.Reader, size int64) (string, error)
}

// Handler exposes the record lifecycle over HTTP.
type Handler struct {
	Service        *Service
	Files          TextExtractor
	MaxUploadBytes int64
}

// Register mounts the resume routes on the group.
func (h *Handler) Register(g *gin.RouterGroup) {
	g.POST("", h.Submit)
	g.POST("/upload", h.Upload)
	g.GET("", h.List)
	g.GET("/:id", h.Get)
	g.GET("/:id/status", h.Status)
	g.GET("/:id/download", h.Download)
	g.POST("/:id/regenerate", h.Regenerate)
	g.POST("/:id/primary", h.SetPrimary)
	g.DELETE("/:id", h.Delete)
}

// Submit handles a raw-text submission.
func (h *Handler) Submit(c *gin.Context) {
	ownerID := middleware.OwnerIDFromContext(c)

	var req SubmitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "invalid_request", "rawText is required", nil)
		return
	}

	result, err := h.Service.Submit(c.Request.Context(), ownerID, SubmitInput{
		RawText:     req.RawText,
		DisplayName: req.DisplayName,
	})
	if err != nil {
		h.submitError(c, err)
		return
	}

	respond.Created(c, SubmitResponse{
		Resume:   toRecordResponse(result.Record),
		Warnings: result.Warnings,
	})
}

// Upload handles a multipart source-file submission. The file's text is
// extracted locally, then follows the same path as a raw-text submission.
func (h *Handler) Upload(c *gin.Context) {
	ownerID := middleware.OwnerIDFromContext(c)

	fileHeader, err := c.FormFile("file")
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "invalid_request", "multipart field 'file' is required", nil)
		return
	}
	if h.MaxUploadBytes > 0 && fileHeader.Size > h.MaxUploadBytes {
		respond.Error(c, http.StatusRequestEntityTooLarge, "file_too_large",
			"file exceeds the upload limit", gin.H{"maxBytes": h.MaxUploadBytes})
		return
	}

	fileName, err := util.SanitizeFileName(fileHeader.Filename)
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "invalid_file_name", "file name is not allowed", nil)
		return
	}

	f, err := fileHeader.Open()
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "invalid_request", "could not read uploaded file", nil)
		return
	}
	data, err := io.ReadAll(f)
	f.Close()
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "invalid_request", "could not read uploaded file", nil)
		return
	}

	rawText, err := h.Files.Text(fileName, bytes.NewReader(data), int64(len(data)))
	if err != nil {
		respond.Error(c, http.StatusUnprocessableEntity, "unsupported_file",
			"could not extract text from the uploaded file", gin.H{"fileName": fileName})
		return
	}

	result, err := h.Service.Submit(c.Request.Context(), ownerID, SubmitInput{
		RawText:        rawText,
		DisplayName:    c.PostForm("displayName"),
		SourceFile:     data,
		SourceFileName: fileName,
	})
	if err != nil {
		h.submitError(c, err)
		return
	}

	respond.Created(c, SubmitResponse{
		Resume:   toRecordResponse(result.Record),
		Warnings: result.Warnings,
	})
}

// List returns the owner's records, newest first.
func (h *Handler) List(c *gin.Context) {
	ownerID := middleware.OwnerIDFromContext(c)
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	recs, err := h.Service.List(c.Request.Context(), ownerID, limit, offset)
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to list resumes", nil)
		return
	}
	respond.OK(c, toListResponse(recs))
}

// Get returns one record with its structured document.
func (h *Handler) Get(c *gin.Context) {
	ownerID := middleware.OwnerIDFromContext(c)

	rec, doc, err := h.Service.GetDocument(c.Request.Context(), ownerID, c.Param("id"))
	if err != nil {
		h.recordError(c, err)
		return
	}
	respond.OK(c, DetailResponse{Resume: toRecordResponse(rec), Document: doc})
}

// Status returns the artifact lifecycle view for polling.
func (h *Handler) Status(c *gin.Context) {
	ownerID := middleware.OwnerIDFromContext(c)

	info, err := h.Service.GetStatus(c.Request.Context(), ownerID, c.Param("id"))
	if err != nil {
		h.recordError(c, err)
		return
	}
	respond.OK(c, info)
}

// Download streams the rendered artifact.
func (h *Handler) Download(c *gin.Context) {
	ownerID := middleware.OwnerIDFromContext(c)

	r, rec, err := h.Service.OpenArtifact(c.Request.Context(), ownerID, c.Param("id"))
	if err != nil {
		if errors.Is(err, ErrArtifactNotReady) {
			respond.Error(c, http.StatusConflict, "artifact_not_ready",
				"artifact generation has not completed", nil)
			return
		}
		h.recordError(c, err)
		return
	}
	defer r.Close()

	c.Header("Content-Type", "application/pdf")
	c.Header("Content-Disposition", `attachment; filename="`+dispositionFileName(rec.DisplayName)+`.pdf"`)
	c.Status(http.StatusOK)
	if _, err := io.Copy(c.Writer, r); err != nil {
		// Headers are gone; nothing left to do but log through the abort path.
		c.Abort()
	}
}

// Regenerate requests a fresh artifact render.
func (h *Handler) Regenerate(c *gin.Context) {
	ownerID := middleware.OwnerIDFromContext(c)

	info, err := h.Service.Regenerate(c.Request.Context(), ownerID, c.Param("id"))
	if err != nil {
		h.recordError(c, err)
		return
	}
	respond.JSON(c, http.StatusAccepted, info)
}

// SetPrimary makes the record the owner's primary.
func (h *Handler) SetPrimary(c *gin.Context) {
	ownerID := middleware.OwnerIDFromContext(c)

	if err := h.Service.SetPrimary(c.Request.Context(), ownerID, c.Param("id")); err != nil {
		h.recordError(c, err)
		return
	}
	respond.OK(c, gin.H{"id": c.Param("id"), "isPrimary": true})
}

// Delete removes a record and its blobs.
func (h *Handler) Delete(c *gin.Context) {
	ownerID := middleware.OwnerIDFromContext(c)

	if err := h.Service.Delete(c.Request.Context(), ownerID, c.Param("id")); err != nil {
		h.recordError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// dispositionFileName strips characters that would break the quoted-string
// form of a Content-Disposition filename.
func dispositionFileName(name string) string {
	var b strings.Builder
	for _, r := range name {
		if r == '"' || r == '\\' || r < 0x20 || r > 0x7e {
			continue
		}
		b.WriteRune(r)
	}
	out := strings.TrimSpace(b.String())
	if out == "" {
		return "resume"
	}
	return out
}

func (h *Handler) submitError(c *gin.Context, err error) {
	var storageErr *StorageError
	switch {
	case errors.Is(err, extraction.ErrInsufficientInput):
		respond.Error(c, http.StatusBadRequest, "input_too_short",
			"submission is too short to be a resume", gin.H{"minLength": extraction.MinInputLength})
	case errors.Is(err, extraction.ErrUnrecoverableResponse):
		respond.Error(c, http.StatusBadGateway, "extraction_failed",
			"the model response could not be recovered", nil)
	case errors.Is(err, ErrInvalidInput):
		respond.Error(c, http.StatusBadRequest, "invalid_request", err.Error(), nil)
	case errors.As(err, &storageErr):
		respond.Error(c, http.StatusInternalServerError, "storage_error",
			"failed to persist the resume payload", nil)
	default:
		var vErr *model.ValidationError
		if errors.As(err, &vErr) {
			respond.Error(c, http.StatusUnprocessableEntity, "incomplete_document",
				"extracted document is missing required fields", gin.H{"field": vErr.Field})
			return
		}
		respond.Error(c, http.StatusBadGateway, "extraction_failed", "extraction did not complete", nil)
	}
}

func (h *Handler) recordError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		respond.Error(c, http.StatusNotFound, "not_found", "resume not found", nil)
	case errors.Is(err, ErrCorruptRecord):
		respond.Error(c, http.StatusInternalServerError, "corrupt_record",
			"resume record exists but its payload is unreadable", nil)
	default:
		var storageErr *StorageError
		if errors.As(err, &storageErr) {
			respond.Error(c, http.StatusInternalServerError, "storage_error", "blob storage operation failed", nil)
			return
		}
		respond.Error(c, http.StatusInternalServerError, "internal_error", "unexpected error", nil)
	}
}
