package usecase

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mugiisha/sop-sub001/internal/core/domain"
	"github.com/mugiisha/sop-sub001/internal/core/port"
	"github.com/mugiisha/sop-sub001/internal/repository"
)

var (
	// ErrDocumentIDRequired indicates the document identifier is missing.
	ErrDocumentIDRequired = errors.New("document id is required")
	// ErrTitleRequired indicates the content is missing its title.
	ErrTitleRequired = errors.New("title is required")
	// ErrBodyRequired indicates the content is missing its body text.
	ErrBodyRequired = errors.New("body is required")
)

// VersionMetrics captures telemetry hooks for ledger and cache activity.
type VersionMetrics interface {
	IncAppend()
	IncRevert()
	IncDuplicate()
	IncCacheHit()
	IncCacheMiss()
}

// VersionService owns the versioned history of documents: it appends
// snapshots, moves the current pointer, and serves history reads. All
// mutations go through the ledger's atomic operations; this layer adds
// validation, conflict retries, cache upkeep, and outbound notifications.
type VersionService struct {
	ledger       port.VersionLedger
	contents     port.ContentStore
	cache        port.CurrentVersionCache
	events       port.EventPublisher
	cacheTTL     time.Duration
	maxRetries   int
	retryBackoff time.Duration
	logger       *zap.Logger
	now          func() time.Time
	metrics      VersionMetrics
}

// VersionOptions configures optional behaviours for the service.
type VersionOptions struct {
	CacheTTL     time.Duration
	MaxRetries   int
	RetryBackoff time.Duration
}

// NewVersionService constructs the version service.
func NewVersionService(ledger port.VersionLedger, contents port.ContentStore, cache port.CurrentVersionCache, events port.EventPublisher, opts VersionOptions) *VersionService {
	svc := &VersionService{
		ledger:       ledger,
		contents:     contents,
		cache:        cache,
		events:       events,
		cacheTTL:     opts.CacheTTL,
		maxRetries:   opts.MaxRetries,
		retryBackoff: opts.RetryBackoff,
		logger:       zap.NewNop(),
		now:          time.Now,
	}
	if svc.cacheTTL <= 0 {
		svc.cacheTTL = 10 * time.Minute
	}
	if svc.maxRetries < 1 {
		svc.maxRetries = 3
	}
	if svc.retryBackoff <= 0 {
		svc.retryBackoff = 50 * time.Millisecond
	}
	return svc
}

// WithLogger attaches a structured logger to the service for operational diagnostics.
func (s *VersionService) WithLogger(logger *zap.Logger) *VersionService {
	if logger != nil {
		s.logger = logger
	}
	return s
}

// WithNow overrides the clock, primarily for deterministic testing.
func (s *VersionService) WithNow(now func() time.Time) *VersionService {
	if now != nil {
		s.now = now
	}
	return s
}

// WithMetrics wires telemetry observers for version operations.
func (s *VersionService) WithMetrics(metrics VersionMetrics) *VersionService {
	if metrics != nil {
		s.metrics = metrics
	}
	return s
}

// RecordUpdate captures the content as an immutable snapshot and appends a
// new current version for the document. The same path serves document
// creation and subsequent edits. A redelivered event whose capture timestamp
// matches the snapshot already current is skipped without appending.
func (s *VersionService) RecordUpdate(ctx context.Context, documentID string, content domain.DocumentContent) (*domain.Version, error) {
	documentID = strings.TrimSpace(documentID)
	if documentID == "" {
		return nil, ErrDocumentIDRequired
	}
	if strings.TrimSpace(content.Title) == "" {
		return nil, ErrTitleRequired
	}
	if strings.TrimSpace(content.Body) == "" {
		return nil, ErrBodyRequired
	}

	current, err := s.ledger.Current(ctx, documentID)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}

	if current != nil && !content.CapturedAt.IsZero() {
		snapshot, snapErr := s.contents.Get(ctx, current.ContentID)
		if snapErr == nil && snapshot.CapturedAt.Equal(content.CapturedAt.UTC()) {
			s.logger.Debug("skipping redelivered document event",
				zap.String("document_id", documentID),
				zap.Time("captured_at", content.CapturedAt),
			)
			if s.metrics != nil {
				s.metrics.IncDuplicate()
			}
			return current, nil
		}
	}

	contentID, err := s.contents.Put(ctx, content)
	if err != nil {
		return nil, err
	}

	version, err := s.withConflictRetry(ctx, "append", func() (*domain.Version, error) {
		return s.ledger.AppendAndPromote(ctx, documentID, contentID)
	})
	if err != nil {
		return nil, err
	}

	s.updateCache(ctx, version)

	if s.metrics != nil {
		s.metrics.IncAppend()
	}
	s.logger.Info("version appended",
		zap.String("document_id", documentID),
		zap.Int64("version_number", version.VersionNumber),
	)

	return version, nil
}

// Revert moves the current pointer back to an existing version. The target
// row is reused as-is: no new version is minted and no number changes, so
// the current version can sit below the document's maximum number afterward.
// A notification carrying the now-current content is emitted so the owner of
// the live copy can resynchronize; its delivery is best-effort and never
// rolls back the committed flip.
func (s *VersionService) Revert(ctx context.Context, documentID string, targetNumber int64) (*domain.Version, error) {
	documentID = strings.TrimSpace(documentID)
	if documentID == "" {
		return nil, ErrDocumentIDRequired
	}

	if _, err := s.ledger.Current(ctx, documentID); err != nil {
		return nil, err
	}

	if _, err := s.ledger.ByNumber(ctx, documentID, targetNumber); err != nil {
		return nil, err
	}

	promoted, err := s.withConflictRetry(ctx, "promote", func() (*domain.Version, error) {
		return s.ledger.Promote(ctx, documentID, targetNumber)
	})
	if err != nil {
		return nil, err
	}

	s.updateCache(ctx, promoted)

	if s.metrics != nil {
		s.metrics.IncRevert()
	}
	s.logger.Info("version reverted",
		zap.String("document_id", documentID),
		zap.Int64("version_number", promoted.VersionNumber),
	)

	s.notifyReverted(ctx, promoted)

	return promoted, nil
}

// Compare returns the snapshots of two versions without touching any state.
func (s *VersionService) Compare(ctx context.Context, documentID string, numberA, numberB int64) (*domain.ContentSnapshot, *domain.ContentSnapshot, error) {
	documentID = strings.TrimSpace(documentID)
	if documentID == "" {
		return nil, nil, ErrDocumentIDRequired
	}

	versionA, err := s.ledger.ByNumber(ctx, documentID, numberA)
	if err != nil {
		return nil, nil, err
	}
	versionB, err := s.ledger.ByNumber(ctx, documentID, numberB)
	if err != nil {
		return nil, nil, err
	}

	snapshotA, err := s.contents.Get(ctx, versionA.ContentID)
	if err != nil {
		return nil, nil, err
	}
	snapshotB, err := s.contents.Get(ctx, versionB.ContentID)
	if err != nil {
		return nil, nil, err
	}

	return snapshotA, snapshotB, nil
}

// List returns the document's history as {number, current} pairs ascending
// by number. Unknown documents yield an empty history.
func (s *VersionService) List(ctx context.Context, documentID string) ([]domain.VersionSummary, error) {
	documentID = strings.TrimSpace(documentID)
	if documentID == "" {
		return nil, ErrDocumentIDRequired
	}

	versions, err := s.ledger.ListByDocument(ctx, documentID)
	if err != nil {
		return nil, err
	}

	summaries := make([]domain.VersionSummary, 0, len(versions))
	for _, version := range versions {
		summaries = append(summaries, domain.VersionSummary{
			VersionNumber: version.VersionNumber,
			IsCurrent:     version.IsCurrent,
		})
	}

	return summaries, nil
}

// CurrentVersion returns the current version and its snapshot, consulting
// the cache for the version number first.
func (s *VersionService) CurrentVersion(ctx context.Context, documentID string) (*domain.Version, *domain.ContentSnapshot, error) {
	documentID = strings.TrimSpace(documentID)
	if documentID == "" {
		return nil, nil, ErrDocumentIDRequired
	}

	var version *domain.Version

	if s.cache != nil {
		number, err := s.cache.GetCurrentVersion(ctx, documentID)
		if err == nil {
			cached, lookupErr := s.ledger.ByNumber(ctx, documentID, number)
			if lookupErr == nil && cached.IsCurrent {
				if s.metrics != nil {
					s.metrics.IncCacheHit()
				}
				version = cached
			}
		} else if !errors.Is(err, repository.ErrNotFound) {
			s.logger.Warn("current version cache lookup failed", zap.String("document_id", documentID), zap.Error(err))
		}
		if version == nil && s.metrics != nil {
			s.metrics.IncCacheMiss()
		}
	}

	if version == nil {
		current, err := s.ledger.Current(ctx, documentID)
		if err != nil {
			return nil, nil, err
		}
		version = current
		s.updateCache(ctx, version)
	}

	snapshot, err := s.contents.Get(ctx, version.ContentID)
	if err != nil {
		return nil, nil, err
	}

	return version, snapshot, nil
}

func (s *VersionService) withConflictRetry(ctx context.Context, op string, fn func() (*domain.Version, error)) (*domain.Version, error) {
	var lastErr error
	for attempt := 1; attempt <= s.maxRetries; attempt++ {
		version, err := fn()
		if err == nil {
			return version, nil
		}
		if !errors.Is(err, repository.ErrConflict) {
			return nil, err
		}
		lastErr = err
		if attempt == s.maxRetries {
			break
		}
		s.logger.Warn("ledger mutation conflict, retrying",
			zap.String("op", op),
			zap.Int("attempt", attempt),
		)
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(s.retryBackoff * time.Duration(attempt)):
		}
	}
	return nil, lastErr
}

func (s *VersionService) updateCache(ctx context.Context, version *domain.Version) {
	if s.cache == nil || version == nil {
		return
	}
	if err := s.cache.SetCurrentVersion(ctx, version.DocumentID, version.VersionNumber, s.cacheTTL); err != nil {
		s.logger.Warn("failed to update current version cache",
			zap.String("document_id", version.DocumentID),
			zap.Error(err),
		)
	}
}

func (s *VersionService) notifyReverted(ctx context.Context, version *domain.Version) {
	if s.events == nil {
		return
	}

	snapshot, err := s.contents.Get(ctx, version.ContentID)
	if err != nil {
		s.logger.Warn("failed to load snapshot for revert notification",
			zap.String("document_id", version.DocumentID),
			zap.Error(err),
		)
		return
	}

	event := domain.DocumentRevertedEvent{
		EventID:       uuid.NewString(),
		DocumentID:    version.DocumentID,
		VersionNumber: version.VersionNumber,
		Content:       snapshot.Content(),
		RevertedAt:    s.now().UTC(),
	}

	if err := s.events.PublishDocumentReverted(ctx, event); err != nil {
		s.logger.Warn("failed to publish revert notification",
			zap.String("document_id", event.DocumentID),
			zap.Int64("version_number", event.VersionNumber),
			zap.Error(err),
		)
	}
}
