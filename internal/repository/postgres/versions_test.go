package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	pgxmock "github.com/pashagolub/pgxmock/v2"

	"github.com/mugiisha/sop-sub001/internal/repository"
)

func newVersionMock(t *testing.T) (pgxmock.PgxPoolIface, *VersionRepository) {
	t.Helper()

	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock.NewPool: %v", err)
	}
	t.Cleanup(mock.Close)

	return mock, NewVersionRepository(mock)
}

func TestVersionRepository_AppendAndPromote_FirstVersion(t *testing.T) {
	mock, repo := newVersionMock(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT version_number FROM sop\.versions`).
		WithArgs("sop-1").
		WillReturnError(pgx.ErrNoRows)
	mock.ExpectExec(`UPDATE sop\.versions SET is_current = FALSE`).
		WithArgs("sop-1").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))
	mock.ExpectExec(`INSERT INTO sop\.versions`).
		WithArgs(pgxmock.AnyArg(), "sop-1", int64(1), true, "content-1", pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()

	version, err := repo.AppendAndPromote(context.Background(), "sop-1", "content-1")
	if err != nil {
		t.Fatalf("AppendAndPromote returned error: %v", err)
	}
	if version.VersionNumber != 1 {
		t.Fatalf("expected version number 1, got %d", version.VersionNumber)
	}
	if !version.IsCurrent {
		t.Fatalf("expected new version to be current")
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestVersionRepository_AppendAndPromote_NextVersion(t *testing.T) {
	mock, repo := newVersionMock(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT version_number FROM sop\.versions`).
		WithArgs("sop-1").
		WillReturnRows(pgxmock.NewRows([]string{"version_number"}).AddRow(int64(4)))
	mock.ExpectExec(`UPDATE sop\.versions SET is_current = FALSE`).
		WithArgs("sop-1").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectExec(`INSERT INTO sop\.versions`).
		WithArgs(pgxmock.AnyArg(), "sop-1", int64(5), true, "content-9", pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()

	version, err := repo.AppendAndPromote(context.Background(), "sop-1", "content-9")
	if err != nil {
		t.Fatalf("AppendAndPromote returned error: %v", err)
	}
	if version.VersionNumber != 5 {
		t.Fatalf("expected version number 5, got %d", version.VersionNumber)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestVersionRepository_AppendAndPromote_DuplicateIsConflict(t *testing.T) {
	mock, repo := newVersionMock(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT version_number FROM sop\.versions`).
		WithArgs("sop-1").
		WillReturnError(pgx.ErrNoRows)
	mock.ExpectExec(`UPDATE sop\.versions SET is_current = FALSE`).
		WithArgs("sop-1").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))
	mock.ExpectExec(`INSERT INTO sop\.versions`).
		WithArgs(pgxmock.AnyArg(), "sop-1", int64(1), true, "content-1", pgxmock.AnyArg()).
		WillReturnError(&pgconn.PgError{Code: "23505"})
	mock.ExpectRollback()

	if _, err := repo.AppendAndPromote(context.Background(), "sop-1", "content-1"); !errors.Is(err, repository.ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestVersionRepository_Promote(t *testing.T) {
	mock, repo := newVersionMock(t)

	createdAt := time.Now().UTC()

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT id, content_id, created_at FROM sop\.versions`).
		WithArgs("sop-1", int64(1)).
		WillReturnRows(pgxmock.NewRows([]string{"id", "content_id", "created_at"}).
			AddRow("version-1", "content-1", createdAt))
	mock.ExpectExec(`UPDATE sop\.versions SET is_current = FALSE`).
		WithArgs("sop-1").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectExec(`UPDATE sop\.versions SET is_current = TRUE`).
		WithArgs("version-1").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectCommit()

	version, err := repo.Promote(context.Background(), "sop-1", 1)
	if err != nil {
		t.Fatalf("Promote returned error: %v", err)
	}
	if version.ID != "version-1" || version.VersionNumber != 1 || !version.IsCurrent {
		t.Fatalf("unexpected promoted version: %+v", version)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestVersionRepository_Promote_NotFound(t *testing.T) {
	mock, repo := newVersionMock(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT id, content_id, created_at FROM sop\.versions`).
		WithArgs("sop-1", int64(99)).
		WillReturnError(pgx.ErrNoRows)
	mock.ExpectRollback()

	if _, err := repo.Promote(context.Background(), "sop-1", 99); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestVersionRepository_Current_NotFound(t *testing.T) {
	mock, repo := newVersionMock(t)

	mock.ExpectQuery(`SELECT id, document_id, version_number, is_current, content_id, created_at FROM sop\.versions`).
		WithArgs("unknown").
		WillReturnError(pgx.ErrNoRows)

	if _, err := repo.Current(context.Background(), "unknown"); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestVersionRepository_ListByDocument(t *testing.T) {
	mock, repo := newVersionMock(t)

	createdAt := time.Now().UTC()
	rows := pgxmock.NewRows([]string{"id", "document_id", "version_number", "is_current", "content_id", "created_at"}).
		AddRow("version-1", "sop-1", int64(1), false, "content-1", createdAt).
		AddRow("version-2", "sop-1", int64(2), true, "content-2", createdAt)

	mock.ExpectQuery(`SELECT id, document_id, version_number, is_current, content_id, created_at FROM sop\.versions`).
		WithArgs("sop-1").
		WillReturnRows(rows)

	versions, err := repo.ListByDocument(context.Background(), "sop-1")
	if err != nil {
		t.Fatalf("ListByDocument returned error: %v", err)
	}
	if len(versions) != 2 {
		t.Fatalf("expected 2 versions, got %d", len(versions))
	}
	if versions[0].VersionNumber != 1 || versions[1].VersionNumber != 2 {
		t.Fatalf("expected ascending version numbers, got %+v", versions)
	}
	if versions[0].IsCurrent || !versions[1].IsCurrent {
		t.Fatalf("expected only version 2 to be current")
	}
}

func TestVersionRepository_ListByDocument_UnknownDocumentIsEmpty(t *testing.T) {
	mock, repo := newVersionMock(t)

	mock.ExpectQuery(`SELECT id, document_id, version_number, is_current, content_id, created_at FROM sop\.versions`).
		WithArgs("unknown").
		WillReturnRows(pgxmock.NewRows([]string{"id", "document_id", "version_number", "is_current", "content_id", "created_at"}))

	versions, err := repo.ListByDocument(context.Background(), "unknown")
	if err != nil {
		t.Fatalf("ListByDocument returned error: %v", err)
	}
	if len(versions) != 0 {
		t.Fatalf("expected empty history, got %d entries", len(versions))
	}
}
