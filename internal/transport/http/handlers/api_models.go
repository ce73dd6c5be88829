package handlers

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/mugiisha/sop-sub001/internal/core/domain"
)

// APIResponse is the envelope returned by every endpoint. Success responses
// carry Data; failures carry Error. TraceID is attached for debugging.
type APIResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
	TraceID string `json:"trace_id,omitempty"`
}

// NewSuccessResponse wraps payload data in the standard envelope.
func NewSuccessResponse(c *gin.Context, message string, data any) APIResponse {
	return APIResponse{
		Success: true,
		Message: message,
		Data:    data,
		TraceID: traceIDFromContext(c),
	}
}

// NewErrorResponse creates a failure envelope with trace ID from context.
func NewErrorResponse(c *gin.Context, message, errorCode string) APIResponse {
	return APIResponse{
		Success: false,
		Message: message,
		Error:   errorCode,
		TraceID: traceIDFromContext(c),
	}
}

func traceIDFromContext(c *gin.Context) string {
	traceID, _ := c.Get("trace_id")
	traceIDStr, _ := traceID.(string)
	return traceIDStr
}

// VersionSummaryPayload is one row of a document's history listing.
type VersionSummaryPayload struct {
	VersionNumber int64 `json:"version_number"`
	IsCurrent     bool  `json:"is_current"`
}

// VersionListResponse wraps the full history of a document.
type VersionListResponse struct {
	DocumentID string                  `json:"document_id"`
	Versions   []VersionSummaryPayload `json:"versions"`
	Total      int                     `json:"total"`
}

// ContentPayload is the API view of an immutable content snapshot.
type ContentPayload struct {
	Title        string    `json:"title"`
	Description  string    `json:"description,omitempty"`
	Body         string    `json:"body"`
	Category     string    `json:"category,omitempty"`
	DepartmentID string    `json:"department_id,omitempty"`
	Visibility   string    `json:"visibility,omitempty"`
	CoverURL     string    `json:"cover_url,omitempty"`
	DocumentURLs []string  `json:"document_urls,omitempty"`
	CapturedAt   time.Time `json:"captured_at"`
}

// CurrentVersionResponse describes the version currently marked as live.
type CurrentVersionResponse struct {
	DocumentID    string         `json:"document_id"`
	VersionNumber int64          `json:"version_number"`
	CreatedAt     time.Time      `json:"created_at"`
	Content       ContentPayload `json:"content"`
}

// RevertResponse reports the version promoted by a revert.
type RevertResponse struct {
	DocumentID    string    `json:"document_id"`
	VersionNumber int64     `json:"version_number"`
	IsCurrent     bool      `json:"is_current"`
	CreatedAt     time.Time `json:"created_at"`
}

// CompareSide pairs a version number with its snapshot in compare results.
type CompareSide struct {
	VersionNumber int64          `json:"version_number"`
	Content       ContentPayload `json:"content"`
}

// CompareResponse carries both sides of a version comparison.
type CompareResponse struct {
	DocumentID string      `json:"document_id"`
	From       CompareSide `json:"from"`
	To         CompareSide `json:"to"`
}

// HealthResponse describes the service health payload.
type HealthResponse struct {
	Status    string    `json:"status"`
	StartedAt time.Time `json:"started_at"`
	Timestamp time.Time `json:"timestamp"`
}

// ReadyResponse describes readiness probe results with dependency checks.
type ReadyResponse struct {
	Status    string            `json:"status"`
	Checks    map[string]string `json:"checks,omitempty"`
	Timestamp time.Time         `json:"timestamp"`
}

// newContentPayload converts a domain snapshot to its API view.
func newContentPayload(snapshot domain.ContentSnapshot) ContentPayload {
	payload := ContentPayload{
		Title:        snapshot.Title,
		Description:  snapshot.Description,
		Body:         snapshot.Body,
		Category:     snapshot.Category,
		DepartmentID: snapshot.DepartmentID,
		Visibility:   snapshot.Visibility,
		CoverURL:     snapshot.CoverURL,
		CapturedAt:   snapshot.CapturedAt,
	}

	if len(snapshot.DocumentURLs) > 0 {
		urls := make([]string, len(snapshot.DocumentURLs))
		copy(urls, snapshot.DocumentURLs)
		payload.DocumentURLs = urls
	}

	return payload
}

func newVersionSummaries(summaries []domain.VersionSummary) []VersionSummaryPayload {
	payloads := make([]VersionSummaryPayload, 0, len(summaries))
	for _, summary := range summaries {
		payloads = append(payloads, VersionSummaryPayload{
			VersionNumber: summary.VersionNumber,
			IsCurrent:     summary.IsCurrent,
		})
	}
	return payloads
}
