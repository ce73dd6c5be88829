package postgres

import (
	"context"
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

// VersionRepository implements port.VersionLedger for PostgreSQL. Both
// mutations run inside a transaction that locks the document's rows, so the
// exactly-one-current invariant holds at every commit point.
type VersionRepository struct {
	pool    pgPool
	builder squirrel.StatementBuilderType
}

// NewVersionRepository constructs a VersionRepository.
func NewVersionRepository(pool pgPool) *VersionRepository {
	return &VersionRepository{
		pool:    pool,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

var versionColumns = []string{
	"id",
	"document_id",
	"version_number",
	"is_current",
	"content_id",
	"created_at",
}

// Current returns the version marked current for the document.
func (r *VersionRepository) Current(ctx context.Context, documentID string) (*domain.Version, error) {
	sql, args, err := r.builder.
		Select(versionColumns...).
		From("sop.versions").
		Where(squirrel.Eq{"document_id": documentID}).
		Where("is_current").
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select current version sql: %w", err)
	}

	return scanVersion(r.pool.QueryRow(ctx, sql, args...))
}

// ByNumber returns a specific version of the document.
func (r *VersionRepository) ByNumber(ctx context.Context, documentID string, number int64) (*domain.Version, error) {
	sql, args, err := r.builder.
		Select(versionColumns...).
		From("sop.versions").
		Where(squirrel.Eq{"document_id": documentID, "version_number": number}).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select version by number sql: %w", err)
	}

	return scanVersion(r.pool.QueryRow(ctx, sql, args...))
}

// ListByDocument returns every version of the document ascending by number.
func (r *VersionRepository) ListByDocument(ctx context.Context, documentID string) ([]domain.Version, error) {
	sql, args, err := r.builder.
		Select(versionColumns...).
		From("sop.versions").
		Where(squirrel.Eq{"document_id": documentID}).
		OrderBy("version_number ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list versions sql: %w", err)
	}

	rows, err := r.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("query versions: %w", err)
	}
	defer rows.Close()

	versions := make([]domain.Version, 0)
	for rows.Next() {
		var version domain.Version
		if err := rows.Scan(
			&version.ID,
			&version.DocumentID,
			&version.VersionNumber,
			&version.IsCurrent,
			&version.ContentID,
			&version.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan version: %w", err)
		}
		versions = append(versions, version)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate versions: %w", err)
	}

	return versions, nil
}

// AppendAndPromote creates the next version for the document marked current
// and clears the previous current flag in the same transaction. The row lock
// on the latest version serializes concurrent appends per document; two
// first-appends for a brand-new document race on the unique
// (document_id, version_number) index instead and lose as ErrConflict.
func (r *VersionRepository) AppendAndPromote(ctx context.Context, documentID, contentID string) (*domain.Version, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin append transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	var nextNumber int64 = 1
	row := tx.QueryRow(ctx,
		`SELECT version_number FROM sop.versions WHERE document_id = $1 ORDER BY version_number DESC LIMIT 1 FOR UPDATE`,
		documentID,
	)
	var latest int64
	switch err := row.Scan(&latest); {
	case err == nil:
		nextNumber = latest + 1
	case errors.Is(err, pgx.ErrNoRows):
		// First version of a brand-new document.
	default:
		return nil, fmt.Errorf("lock latest version: %w", err)
	}

	if _, err := tx.Exec(ctx,
		`UPDATE sop.versions SET is_current = FALSE WHERE document_id = $1 AND is_current`,
		documentID,
	); err != nil {
		return nil, fmt.Errorf("clear current flag: %w", mapWriteError(err))
	}

	version := domain.Version{
		ID:            uuid.NewString(),
		DocumentID:    documentID,
		VersionNumber: nextNumber,
		IsCurrent:     true,
		ContentID:     contentID,
		CreatedAt:     time.Now().UTC(),
	}

	if _, err := tx.Exec(ctx,
		`INSERT INTO sop.versions (id, document_id, version_number, is_current, content_id, created_at) VALUES ($1, $2, $3, $4, $5, $6)`,
		version.ID,
		version.DocumentID,
		version.VersionNumber,
		version.IsCurrent,
		version.ContentID,
		version.CreatedAt,
	); err != nil {
		return nil, fmt.Errorf("insert version: %w", mapWriteError(err))
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit append transaction: %w", mapWriteError(err))
	}

	return &version, nil
}

// Promote re-points the current flag at an existing version. No row is
// created and no version number changes.
func (r *VersionRepository) Promote(ctx context.Context, documentID string, number int64) (*domain.Version, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin promote transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	row := tx.QueryRow(ctx,
		`SELECT id, content_id, created_at FROM sop.versions WHERE document_id = $1 AND version_number = $2 FOR UPDATE`,
		documentID,
		number,
	)

	version := domain.Version{
		DocumentID:    documentID,
		VersionNumber: number,
		IsCurrent:     true,
	}
	if err := row.Scan(&version.ID, &version.ContentID, &version.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("lock target version: %w", err)
	}

	if _, err := tx.Exec(ctx,
		`UPDATE sop.versions SET is_current = FALSE WHERE document_id = $1 AND is_current`,
		documentID,
	); err != nil {
		return nil, fmt.Errorf("clear current flag: %w", mapWriteError(err))
	}

	if _, err := tx.Exec(ctx,
		`UPDATE sop.versions SET is_current = TRUE WHERE id = $1`,
		version.ID,
	); err != nil {
		return nil, fmt.Errorf("set current flag: %w", mapWriteError(err))
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit promote transaction: %w", mapWriteError(err))
	}

	return &version, nil
}

func scanVersion(row pgx.Row) (*domain.Version, error) {
	var version domain.Version
	if err := row.Scan(
		&version.ID,
		&version.DocumentID,
		&version.VersionNumber,
		&version.IsCurrent,
		&version.ContentID,
		&version.CreatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("scan version: %w", err)
	}
	return &version, nil
}

var _ port.VersionLedger = (*VersionRepository)(nil)
