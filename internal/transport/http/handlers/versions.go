package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/mugiisha/sop-sub001/internal/core/domain"
	"github.com/mugiisha/sop-sub001/internal/repository"
	"github.com/mugiisha/sop-sub001/internal/usecase"
)

// VersionManager is the slice of the version service the HTTP layer drives.
type VersionManager interface {
	List(ctx context.Context, documentID string) ([]domain.VersionSummary, error)
	CurrentVersion(ctx context.Context, documentID string) (*domain.Version, *domain.ContentSnapshot, error)
	Compare(ctx context.Context, documentID string, numberA, numberB int64) (*domain.ContentSnapshot, *domain.ContentSnapshot, error)
	Revert(ctx context.Context, documentID string, targetNumber int64) (*domain.Version, error)
}

// VersionHandler exposes endpoints for document version history.
type VersionHandler struct {
	versions VersionManager
}

// NewVersionHandler constructs a version history handler.
func NewVersionHandler(versions VersionManager) *VersionHandler {
	return &VersionHandler{versions: versions}
}

// RegisterRoutes binds version history routes to the provided router group.
// The revertMiddlewares guard the mutating revert endpoint.
func (h *VersionHandler) RegisterRoutes(r *gin.RouterGroup, revertMiddlewares ...gin.HandlerFunc) {
	if r == nil {
		return
	}

	r.GET("/:document_id/versions", h.ListVersions)
	r.GET("/:document_id/versions/current", h.CurrentVersion)
	r.GET("/:document_id/versions/compare", h.CompareVersions)

	revertHandlers := append([]gin.HandlerFunc{}, revertMiddlewares...)
	revertHandlers = append(revertHandlers, h.RevertVersion)
	r.POST("/:document_id/versions/:version_number/revert", revertHandlers...)
}

// ListVersions godoc
// @Summary List a document's version history
// @Description Returns every recorded version of the document in ascending order.
// @Tags Versions
// @Produce json
// @Param document_id path string true "Document ID"
// @Success 200 {object} APIResponse
// @Failure 400 {object} APIResponse
// @Failure 500 {object} APIResponse
// @Router /api/v1/documents/{document_id}/versions [get]
func (h *VersionHandler) ListVersions(c *gin.Context) {
	documentID := c.Param("document_id")

	summaries, err := h.versions.List(c.Request.Context(), documentID)
	if err != nil {
		cases := []ErrorCase{
			{Err: usecase.ErrDocumentIDRequired, Status: http.StatusBadRequest, Code: ErrCodeValidation, Message: "document id is required"},
		}
		RespondWithMappedError(c, err, cases, http.StatusInternalServerError, "failed to list versions")
		return
	}

	c.JSON(http.StatusOK, NewSuccessResponse(c, "version history retrieved", VersionListResponse{
		DocumentID: documentID,
		Versions:   newVersionSummaries(summaries),
		Total:      len(summaries),
	}))
}

// CurrentVersion godoc
// @Summary Get the current version of a document
// @Description Returns the version currently marked as live together with its content snapshot.
// @Tags Versions
// @Produce json
// @Param document_id path string true "Document ID"
// @Success 200 {object} APIResponse
// @Failure 404 {object} APIResponse
// @Failure 500 {object} APIResponse
// @Router /api/v1/documents/{document_id}/versions/current [get]
func (h *VersionHandler) CurrentVersion(c *gin.Context) {
	documentID := c.Param("document_id")

	version, snapshot, err := h.versions.CurrentVersion(c.Request.Context(), documentID)
	if err != nil {
		cases := []ErrorCase{
			{Err: usecase.ErrDocumentIDRequired, Status: http.StatusBadRequest, Code: ErrCodeValidation, Message: "document id is required"},
			{Err: repository.ErrNotFound, Status: http.StatusNotFound, Code: ErrCodeNotFound, Message: "document has no recorded versions"},
		}
		RespondWithMappedError(c, err, cases, http.StatusInternalServerError, "failed to resolve current version")
		return
	}

	c.JSON(http.StatusOK, NewSuccessResponse(c, "current version retrieved", CurrentVersionResponse{
		DocumentID:    version.DocumentID,
		VersionNumber: version.VersionNumber,
		CreatedAt:     version.CreatedAt,
		Content:       newContentPayload(*snapshot),
	}))
}

// CompareVersions godoc
// @Summary Compare two versions of a document
// @Description Returns the content snapshots of two versions side by side.
// @Tags Versions
// @Produce json
// @Param document_id path string true "Document ID"
// @Param from query int true "Version number on the from side"
// @Param to query int true "Version number on the to side"
// @Success 200 {object} APIResponse
// @Failure 400 {object} APIResponse
// @Failure 404 {object} APIResponse
// @Failure 500 {object} APIResponse
// @Router /api/v1/documents/{document_id}/versions/compare [get]
func (h *VersionHandler) CompareVersions(c *gin.Context) {
	documentID := c.Param("document_id")

	from, ok := parseVersionNumber(c.Query("from"))
	if !ok {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "from must be a positive version number", ErrCodeValidation))
		return
	}

	to, ok := parseVersionNumber(c.Query("to"))
	if !ok {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "to must be a positive version number", ErrCodeValidation))
		return
	}

	fromSnapshot, toSnapshot, err := h.versions.Compare(c.Request.Context(), documentID, from, to)
	if err != nil {
		cases := []ErrorCase{
			{Err: usecase.ErrDocumentIDRequired, Status: http.StatusBadRequest, Code: ErrCodeValidation, Message: "document id is required"},
			{Err: repository.ErrNotFound, Status: http.StatusNotFound, Code: ErrCodeNotFound, Message: "one of the requested versions does not exist"},
		}
		RespondWithMappedError(c, err, cases, http.StatusInternalServerError, "failed to compare versions")
		return
	}

	c.JSON(http.StatusOK, NewSuccessResponse(c, "versions compared", CompareResponse{
		DocumentID: documentID,
		From:       CompareSide{VersionNumber: from, Content: newContentPayload(*fromSnapshot)},
		To:         CompareSide{VersionNumber: to, Content: newContentPayload(*toSnapshot)},
	}))
}

// RevertVersion godoc
// @Summary Revert a document to an earlier version
// @Description Marks the target version as current and notifies downstream consumers.
// @Tags Versions
// @Produce json
// @Param document_id path string true "Document ID"
// @Param version_number path int true "Target version number"
// @Success 200 {object} APIResponse
// @Failure 400 {object} APIResponse
// @Failure 404 {object} APIResponse
// @Failure 409 {object} APIResponse
// @Failure 500 {object} APIResponse
// @Router /api/v1/documents/{document_id}/versions/{version_number}/revert [post]
func (h *VersionHandler) RevertVersion(c *gin.Context) {
	documentID := c.Param("document_id")

	target, ok := parseVersionNumber(c.Param("version_number"))
	if !ok {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "version number must be a positive integer", ErrCodeValidation))
		return
	}

	version, err := h.versions.Revert(c.Request.Context(), documentID, target)
	if err != nil {
		cases := []ErrorCase{
			{Err: usecase.ErrDocumentIDRequired, Status: http.StatusBadRequest, Code: ErrCodeValidation, Message: "document id is required"},
			{Err: repository.ErrNotFound, Status: http.StatusNotFound, Code: ErrCodeNotFound, Message: "target version does not exist"},
			{Err: repository.ErrConflict, Status: http.StatusConflict, Code: ErrCodeConflict, Message: "concurrent history change, retry the revert"},
		}
		RespondWithMappedError(c, err, cases, http.StatusInternalServerError, "failed to revert version")
		return
	}

	c.JSON(http.StatusOK, NewSuccessResponse(c, "version reverted", RevertResponse{
		DocumentID:    version.DocumentID,
		VersionNumber: version.VersionNumber,
		IsCurrent:     version.IsCurrent,
		CreatedAt:     version.CreatedAt,
	}))
}

func parseVersionNumber(raw string) (int64, bool) {
	number, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || number <= 0 {
		return 0, false
	}
	return number, true
}
