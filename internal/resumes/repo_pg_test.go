package resumes

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
)

func newProbedRepo(t *testing.T, payloadColumnCount int) (*PGRepo, sqlmock.Sqlmock, func()) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}

	mock.ExpectQuery("SELECT COUNT\\(\\*\\)\\s+FROM information_schema.columns").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(payloadColumnCount))

	repo, err := NewPGRepo(context.Background(), db)
	if err != nil {
		t.Fatalf("NewPGRepo: %v", err)
	}
	return repo, mock, func() { db.Close() }
}

func TestNewPGRepoCapabilityProbe(t *testing.T) {
	repo, mock, done := newProbedRepo(t, 1)
	defer done()
	if repo.Capabilities().InlinePayload {
		t.Fatal("two-tier store reported inline mode")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}

	inline, mock2, done2 := newProbedRepo(t, 0)
	defer done2()
	if !inline.Capabilities().InlinePayload {
		t.Fatal("store without payload_key should report inline mode")
	}
	if err := mock2.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestPGClaimGeneration(t *testing.T) {
	repo, mock, done := newProbedRepo(t, 1)
	defer done()

	mock.ExpectExec("UPDATE resumes SET artifact_status").
		WithArgs(StatusGenerating, "rec-1", StatusPending).
		WillReturnResult(sqlmock.NewResult(0, 1))
	ok, err := repo.ClaimGeneration(context.Background(), "rec-1")
	if err != nil {
		t.Fatalf("ClaimGeneration: %v", err)
	}
	if !ok {
		t.Fatal("expected claim to win")
	}

	// Second claimer loses: the row is no longer pending.
	mock.ExpectExec("UPDATE resumes SET artifact_status").
		WithArgs(StatusGenerating, "rec-1", StatusPending).
		WillReturnResult(sqlmock.NewResult(0, 0))
	ok, err = repo.ClaimGeneration(context.Background(), "rec-1")
	if err != nil {
		t.Fatalf("ClaimGeneration second: %v", err)
	}
	if ok {
		t.Fatal("second claim should lose")
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestPGFinishGeneration(t *testing.T) {
	repo, mock, done := newProbedRepo(t, 1)
	defer done()

	generatedAt := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	mock.ExpectExec("UPDATE resumes").
		WithArgs(StatusReady, "owners/abc/resumes/rec-1/resume.pdf", generatedAt, "rec-1", StatusGenerating).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.FinishGeneration(context.Background(), "rec-1", "owners/abc/resumes/rec-1/resume.pdf", generatedAt)
	if err != nil {
		t.Fatalf("FinishGeneration: %v", err)
	}

	// Finishing a record that is not generating matches no row.
	mock.ExpectExec("UPDATE resumes").
		WithArgs(StatusReady, "k", generatedAt, "rec-2", StatusGenerating).
		WillReturnResult(sqlmock.NewResult(0, 0))
	err = repo.FinishGeneration(context.Background(), "rec-2", "k", generatedAt)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestPGResetForRegeneration(t *testing.T) {
	repo, mock, done := newProbedRepo(t, 1)
	defer done()

	mock.ExpectExec("UPDATE resumes").
		WithArgs(StatusPending, "owner-1", "rec-1", StatusReady, StatusFailed).
		WillReturnResult(sqlmock.NewResult(0, 1))
	ok, err := repo.ResetForRegeneration(context.Background(), "owner-1", "rec-1")
	if err != nil {
		t.Fatalf("ResetForRegeneration: %v", err)
	}
	if !ok {
		t.Fatal("expected reset to match")
	}

	// While generating, no row matches.
	mock.ExpectExec("UPDATE resumes").
		WithArgs(StatusPending, "owner-1", "rec-1", StatusReady, StatusFailed).
		WillReturnResult(sqlmock.NewResult(0, 0))
	ok, err = repo.ResetForRegeneration(context.Background(), "owner-1", "rec-1")
	if err != nil {
		t.Fatalf("ResetForRegeneration second: %v", err)
	}
	if ok {
		t.Fatal("reset should not match a generating record")
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestPGGetByID(t *testing.T) {
	repo, mock, done := newProbedRepo(t, 1)
	defer done()

	created := time.Date(2026, 2, 1, 9, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows([]string{
		"id", "owner_id", "display_name", "byte_size", "payload_key", "source_file_key",
		"artifact_key", "artifact_status", "artifact_error", "artifact_generated_at",
		"is_primary", "schema_metadata", "created_at", "updated_at",
	}).AddRow(
		"rec-1", "owner-1", "Dana Reyes", int64(2048), "owners/abc/document.json", nil,
		nil, StatusPending, nil, nil,
		true, []byte(`{"sectionOrder":["experience","education"],"confidence":0.9}`), created, created,
	)
	mock.ExpectQuery("SELECT(.|\\s)+FROM resumes\\s+WHERE owner_id").
		WithArgs("owner-1", "rec-1").
		WillReturnRows(rows)

	rec, err := repo.GetByID(context.Background(), "owner-1", "rec-1")
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if rec.DisplayName != "Dana Reyes" || !rec.IsPrimary {
		t.Fatalf("record = %+v", rec)
	}
	if len(rec.SchemaMetadata.SectionOrder) != 2 {
		t.Fatalf("sectionOrder = %v", rec.SchemaMetadata.SectionOrder)
	}

	mock.ExpectQuery("SELECT(.|\\s)+FROM resumes\\s+WHERE owner_id").
		WithArgs("owner-1", "missing").
		WillReturnError(sql.ErrNoRows)
	if _, err := repo.GetByID(context.Background(), "owner-1", "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestPGDeleteNotFound(t *testing.T) {
	repo, mock, done := newProbedRepo(t, 1)
	defer done()

	mock.ExpectExec("DELETE FROM resumes").
		WithArgs("owner-1", "missing").
		WillReturnResult(sqlmock.NewResult(0, 0))
	if err := repo.Delete(context.Background(), "owner-1", "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}
