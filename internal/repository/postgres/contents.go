package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	squirrel "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/mugiisha/sop-sub001/internal/core/domain"
	"github.com/mugiisha/sop-sub001/internal/core/port"
	"github.com/mugiisha/sop-sub001/internal/repository"
)

// ContentRepository implements port.ContentStore for PostgreSQL. The table is
// insert-only; no update or delete statements exist in this file.
type ContentRepository struct {
	exec    pgExecutor
	builder squirrel.StatementBuilderType
}

// NewContentRepository constructs a repository backed by any executor that satisfies pgExecutor.
func NewContentRepository(exec pgExecutor) *ContentRepository {
	return &ContentRepository{
		exec:    exec,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// Put stores the content as a new immutable snapshot and returns its id.
func (r *ContentRepository) Put(ctx context.Context, content domain.DocumentContent) (string, error) {
	id := uuid.NewString()

	capturedAt := content.CapturedAt
	if capturedAt.IsZero() {
		capturedAt = time.Now().UTC()
	}

	urls, err := marshalDocumentURLs(content.DocumentURLs)
	if err != nil {
		return "", err
	}

	sql, args, err := r.builder.Insert("sop.contents").
		Columns(
			"id",
			"title",
			"description",
			"body",
			"category",
			"department_id",
			"visibility",
			"cover_url",
			"document_urls",
			"captured_at",
		).
		Values(
			id,
			content.Title,
			content.Description,
			content.Body,
			content.Category,
			content.DepartmentID,
			content.Visibility,
			content.CoverURL,
			urls,
			capturedAt,
		).
		ToSql()
	if err != nil {
		return "", fmt.Errorf("build insert content sql: %w", err)
	}

	if _, err := r.exec.Exec(ctx, sql, args...); err != nil {
		return "", fmt.Errorf("insert content: %w", err)
	}

	return id, nil
}

// Get returns the snapshot with the given id.
func (r *ContentRepository) Get(ctx context.Context, contentID string) (*domain.ContentSnapshot, error) {
	sql, args, err := r.builder.
		Select(
			"id",
			"title",
			"description",
			"body",
			"category",
			"department_id",
			"visibility",
			"cover_url",
			"document_urls",
			"captured_at",
		).
		From("sop.contents").
		Where(squirrel.Eq{"id": contentID}).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select content sql: %w", err)
	}

	row := r.exec.QueryRow(ctx, sql, args...)

	var (
		snapshot domain.ContentSnapshot
		urls     []byte
	)
	if err := row.Scan(
		&snapshot.ID,
		&snapshot.Title,
		&snapshot.Description,
		&snapshot.Body,
		&snapshot.Category,
		&snapshot.DepartmentID,
		&snapshot.Visibility,
		&snapshot.CoverURL,
		&urls,
		&snapshot.CapturedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("scan content: %w", err)
	}

	if len(urls) > 0 {
		if err := json.Unmarshal(urls, &snapshot.DocumentURLs); err != nil {
			return nil, fmt.Errorf("unmarshal document urls: %w", err)
		}
	}

	return &snapshot, nil
}

func marshalDocumentURLs(urls []string) ([]byte, error) {
	if urls == nil {
		urls = []string{}
	}

	payload, err := json.Marshal(urls)
	if err != nil {
		return nil, fmt.Errorf("marshal document urls: %w", err)
	}
	return payload, nil
}

var _ port.ContentStore = (*ContentRepository)(nil)
