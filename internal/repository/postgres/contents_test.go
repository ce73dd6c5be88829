package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	pgxmock "github.com/pashagolub/pgxmock/v2"

	"github.com/mugiisha/sop-sub001/internal/core/domain"
	"github.com/mugiisha/sop-sub001/internal/repository"
)

func TestContentRepository_Put(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock.NewPool: %v", err)
	}
	defer mock.Close()

	repo := NewContentRepository(mock)

	capturedAt := time.Now().UTC()
	content := domain.DocumentContent{
		Title:        "Incident Response",
		Description:  "How to handle incidents",
		Body:         "Step one...",
		Category:     "operations",
		DepartmentID: "dept-7",
		Visibility:   "internal",
		CoverURL:     "https://assets.example.com/cover.png",
		DocumentURLs: []string{"https://assets.example.com/appendix.pdf"},
		CapturedAt:   capturedAt,
	}

	mock.ExpectExec(`INSERT INTO sop\.contents`).
		WithArgs(
			pgxmock.AnyArg(),
			content.Title,
			content.Description,
			content.Body,
			content.Category,
			content.DepartmentID,
			content.Visibility,
			content.CoverURL,
			[]byte(`["https://assets.example.com/appendix.pdf"]`),
			capturedAt,
		).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	id, err := repo.Put(context.Background(), content)
	if err != nil {
		t.Fatalf("Put returned error: %v", err)
	}
	if id == "" {
		t.Fatalf("expected a generated content id")
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestContentRepository_Get(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock.NewPool: %v", err)
	}
	defer mock.Close()

	repo := NewContentRepository(mock)

	capturedAt := time.Now().UTC()
	rows := pgxmock.NewRows([]string{
		"id", "title", "description", "body", "category", "department_id", "visibility", "cover_url", "document_urls", "captured_at",
	}).AddRow(
		"content-1", "Incident Response", "desc", "body", "operations", "dept-7", "internal", "", []byte(`["https://a.example/x.pdf"]`), capturedAt,
	)

	mock.ExpectQuery(`SELECT id, title, description, body, category, department_id, visibility, cover_url, document_urls, captured_at FROM sop\.contents`).
		WithArgs("content-1").
		WillReturnRows(rows)

	snapshot, err := repo.Get(context.Background(), "content-1")
	if err != nil {
		t.Fatalf("Get returned error: %v", err)
	}
	if snapshot.Title != "Incident Response" {
		t.Fatalf("unexpected title %q", snapshot.Title)
	}
	if len(snapshot.DocumentURLs) != 1 || snapshot.DocumentURLs[0] != "https://a.example/x.pdf" {
		t.Fatalf("unexpected document urls: %v", snapshot.DocumentURLs)
	}
}

func TestContentRepository_Get_NotFound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock.NewPool: %v", err)
	}
	defer mock.Close()

	repo := NewContentRepository(mock)

	mock.ExpectQuery(`SELECT id, title, description, body, category, department_id, visibility, cover_url, document_urls, captured_at FROM sop\.contents`).
		WithArgs("missing").
		WillReturnError(pgx.ErrNoRows)

	if _, err := repo.Get(context.Background(), "missing"); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
