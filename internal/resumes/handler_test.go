package resumes

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"resume-hub/internal/shared/server/middleware"
)

func newTestRouter(t *testing.T) (*gin.Engine, *Service) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	svc, _, _ := newTestService(t)
	h := &Handler{Service: svc}

	r := gin.New()
	group := r.Group("/v1/resumes")
	group.Use(middleware.Owner())
	h.Register(group)
	return r, svc
}

func doJSON(t *testing.T, r *gin.Engine, method, path, ownerID string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var payload bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&payload).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &payload)
	req.Header.Set("Content-Type", "application/json")
	if ownerID != "" {
		req.Header.Set("X-Owner-Id", ownerID)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestHandlerRequiresOwnerHeader(t *testing.T) {
	r, _ := newTestRouter(t)

	w := doJSON(t, r, http.MethodGet, "/v1/resumes", "", nil)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", w.Code)
	}
	if !bytes.Contains(w.Body.Bytes(), []byte("owner_required")) {
		t.Fatalf("body = %s", w.Body.String())
	}
}

func TestHandlerSubmitAndGet(t *testing.T) {
	r, _ := newTestRouter(t)

	w := doJSON(t, r, http.MethodPost, "/v1/resumes", "owner-1",
		SubmitRequest{RawText: "long enough raw resume text for the pipeline"})
	if w.Code != http.StatusCreated {
		t.Fatalf("submit status = %d, body = %s", w.Code, w.Body.String())
	}

	var created SubmitResponse
	if err := json.Unmarshal(w.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if created.Resume.ID == "" || created.Resume.ArtifactStatus != StatusPending {
		t.Fatalf("created = %+v", created.Resume)
	}

	w = doJSON(t, r, http.MethodGet, "/v1/resumes/"+created.Resume.ID, "owner-1", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("get status = %d, body = %s", w.Code, w.Body.String())
	}
	var detail DetailResponse
	if err := json.Unmarshal(w.Body.Bytes(), &detail); err != nil {
		t.Fatalf("decode detail: %v", err)
	}
	if detail.Document.PersonalInfo.FirstName != "Dana" {
		t.Fatalf("document = %+v", detail.Document)
	}

	// Another owner cannot see the record.
	w = doJSON(t, r, http.MethodGet, "/v1/resumes/"+created.Resume.ID, "owner-2", nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("cross-owner status = %d, want 404", w.Code)
	}
}

type fakeFiles struct {
	text string
	err  error
}

func (f fakeFiles) Text(fileName string, r io.Reader, size int64) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return f.text, nil
}

func TestHandlerUploadStoresSourceFile(t *testing.T) {
	gin.SetMode(gin.TestMode)
	svc, blobs, _ := newTestService(t)
	h := &Handler{
		Service:        svc,
		Files:          fakeFiles{text: "extracted resume text long enough"},
		MaxUploadBytes: 1 << 20,
	}
	r := gin.New()
	group := r.Group("/v1/resumes")
	group.Use(middleware.Owner())
	h.Register(group)

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", "resume.pdf")
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	if _, err := part.Write([]byte("%PDF-1.4 upload bytes")); err != nil {
		t.Fatalf("write part: %v", err)
	}
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/v1/resumes/upload", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("X-Owner-Id", "owner-1")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusCreated {
		t.Fatalf("upload status = %d, body = %s", w.Code, w.Body.String())
	}
	var created SubmitResponse
	if err := json.Unmarshal(w.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if created.Resume.SourceFileKey == "" {
		t.Fatal("expected a source file key")
	}
	if got := blobs.objects[created.Resume.SourceFileKey]; string(got) != "%PDF-1.4 upload bytes" {
		t.Fatalf("source blob = %q", got)
	}
}

func TestHandlerSubmitRejectsEmptyBody(t *testing.T) {
	r, _ := newTestRouter(t)

	w := doJSON(t, r, http.MethodPost, "/v1/resumes", "owner-1", map[string]string{})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
}

func TestHandlerDownloadBeforeReady(t *testing.T) {
	r, _ := newTestRouter(t)

	w := doJSON(t, r, http.MethodPost, "/v1/resumes", "owner-1",
		SubmitRequest{RawText: "long enough raw resume text for the pipeline"})
	if w.Code != http.StatusCreated {
		t.Fatalf("submit status = %d", w.Code)
	}
	var created SubmitResponse
	if err := json.Unmarshal(w.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode response: %v", err)
	}

	w = doJSON(t, r, http.MethodGet, "/v1/resumes/"+created.Resume.ID+"/download", "owner-1", nil)
	if w.Code != http.StatusConflict {
		t.Fatalf("download status = %d, want 409", w.Code)
	}
	if !bytes.Contains(w.Body.Bytes(), []byte("artifact_not_ready")) {
		t.Fatalf("body = %s", w.Body.String())
	}
}

func TestHandlerDownloadFileNameSanitized(t *testing.T) {
	r, svc := newTestRouter(t)

	w := doJSON(t, r, http.MethodPost, "/v1/resumes", "owner-1", SubmitRequest{
		RawText:     "long enough raw resume text for the pipeline",
		DisplayName: `Dana "v2" \resume`,
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("submit status = %d", w.Code)
	}
	var created SubmitResponse
	if err := json.Unmarshal(w.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	id := created.Resume.ID

	ctx := httptest.NewRequest(http.MethodGet, "/", nil).Context()
	key := ArtifactKeyFor("owner-1", id)
	if _, err := svc.Blobs.Put(ctx, key, "application/pdf", strings.NewReader("%PDF-1.4")); err != nil {
		t.Fatalf("seed artifact: %v", err)
	}
	if _, err := svc.Repo.ClaimGeneration(ctx, id); err != nil {
		t.Fatalf("ClaimGeneration: %v", err)
	}
	if err := svc.Repo.FinishGeneration(ctx, id, key, time.Now().UTC()); err != nil {
		t.Fatalf("FinishGeneration: %v", err)
	}

	w = doJSON(t, r, http.MethodGet, "/v1/resumes/"+id+"/download", "owner-1", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("download status = %d, body = %s", w.Code, w.Body.String())
	}
	got := w.Header().Get("Content-Disposition")
	want := `attachment; filename="Dana v2 resume.pdf"`
	if got != want {
		t.Fatalf("Content-Disposition = %q, want %q", got, want)
	}
}

func TestHandlerRegenerateAccepted(t *testing.T) {
	r, svc := newTestRouter(t)

	w := doJSON(t, r, http.MethodPost, "/v1/resumes", "owner-1",
		SubmitRequest{RawText: "long enough raw resume text for the pipeline"})
	var created SubmitResponse
	if err := json.Unmarshal(w.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	id := created.Resume.ID

	ctx := httptest.NewRequest(http.MethodGet, "/", nil).Context()
	if _, err := svc.Repo.ClaimGeneration(ctx, id); err != nil {
		t.Fatalf("ClaimGeneration: %v", err)
	}
	if err := svc.Repo.FailGeneration(ctx, id, "boom"); err != nil {
		t.Fatalf("FailGeneration: %v", err)
	}

	w = doJSON(t, r, http.MethodPost, "/v1/resumes/"+id+"/regenerate", "owner-1", nil)
	if w.Code != http.StatusAccepted {
		t.Fatalf("regenerate status = %d, body = %s", w.Code, w.Body.String())
	}
	var info StatusInfo
	if err := json.Unmarshal(w.Body.Bytes(), &info); err != nil {
		t.Fatalf("decode status: %v", err)
	}
	if info.ArtifactStatus != StatusPending {
		t.Fatalf("status = %q, want %q", info.ArtifactStatus, StatusPending)
	}
}
