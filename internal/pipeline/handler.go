package pipeline

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	validation "github.com/go-ozzo/ozzo-validation/v4"

	"test-report-backend/internal/artifacts"
	"test-report-backend/internal/reports"
	"test-report-backend/internal/shared/server/middleware"
	"test-report-backend/internal/shared/server/respond"
)

// Handler wires HTTP handlers to the orchestrator.
type Handler struct {
	Svc *Service
}

// NewHandler constructs a Handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc}
}

// RegisterRoutes attaches report routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/reports", h.create)
	rg.GET("/reports", h.list)
	rg.GET("/reports/:id", h.get)
	rg.PUT("/reports/:id", h.update)
	rg.DELETE("/reports/:id", h.delete)
	rg.GET("/reports/:id/status", h.status)
	rg.GET("/reports/:id/versions", h.listVersions)
	rg.GET("/reports/:id/versions/:version", h.getVersion)
}

func (h *Handler) create(c *gin.Context) {
	var req CreateReportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid JSON body", nil)
		return
	}
	ack, err := h.Svc.Submit(c.Request.Context(), SubmitInput{
		ArtifactID:    req.FileID,
		Title:         req.Title,
		Instruction:   req.Prompt,
		RequesterID:   middleware.UserIDFromContext(c),
		RequesterName: middleware.UserNameFromContext(c),
	})
	if err != nil {
		writeError(c, err)
		return
	}
	respond.Accepted(c, toAckResponse(ack))
}

func (h *Handler) update(c *gin.Context) {
	var req UpdateReportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid JSON body", nil)
		return
	}
	userID := middleware.UserIDFromContext(c)

	if !req.starts() {
		doc, err := h.Svc.UpdateMetadata(c.Request.Context(), c.Param("id"), userID, req.Title)
		if err != nil {
			writeError(c, err)
			return
		}
		respond.OK(c, toDocumentResponse(doc))
		return
	}

	ack, err := h.Svc.Regenerate(c.Request.Context(), RegenerateInput{
		DocumentID:      c.Param("id"),
		PreviousVersion: req.PreviousVersion,
		Title:           req.Title,
		Instruction:     req.Prompt,
		NewArtifactID:   req.FileID,
		RequesterID:     userID,
		RequesterName:   middleware.UserNameFromContext(c),
	})
	if err != nil {
		writeError(c, err)
		return
	}
	respond.Accepted(c, toAckResponse(ack))
}

func (h *Handler) list(c *gin.Context) {
	docs, err := h.Svc.List(c.Request.Context(), middleware.UserIDFromContext(c))
	if err != nil {
		writeError(c, err)
		return
	}
	out := make([]DocumentResponse, 0, len(docs))
	for _, d := range docs {
		out = append(out, toDocumentResponse(d))
	}
	respond.OK(c, gin.H{"items": out})
}

func (h *Handler) get(c *gin.Context) {
	doc, err := h.Svc.Get(c.Request.Context(), c.Param("id"), middleware.UserIDFromContext(c))
	if err != nil {
		writeError(c, err)
		return
	}
	respond.OK(c, toDocumentResponse(doc))
}

func (h *Handler) status(c *gin.Context) {
	view, err := h.Svc.GetStatus(c.Request.Context(), c.Param("id"), middleware.UserIDFromContext(c))
	if err != nil {
		writeError(c, err)
		return
	}
	respond.OK(c, toStatusResponse(view))
}

func (h *Handler) listVersions(c *gin.Context) {
	order := reports.ParseOrder(c.DefaultQuery("order", "asc"))
	versions, err := h.Svc.ListVersions(c.Request.Context(), c.Param("id"), middleware.UserIDFromContext(c), order)
	if err != nil {
		writeError(c, err)
		return
	}
	out := make([]VersionResponse, 0, len(versions))
	for _, v := range versions {
		out = append(out, toVersionResponse(v))
	}
	respond.OK(c, gin.H{"items": out})
}

func (h *Handler) getVersion(c *gin.Context) {
	number, err := strconv.Atoi(c.Param("version"))
	if err != nil || number < 1 {
		respond.Error(c, http.StatusBadRequest, "validation_error", "version must be a positive integer", nil)
		return
	}
	version, err := h.Svc.GetVersion(c.Request.Context(), c.Param("id"), middleware.UserIDFromContext(c), number)
	if err != nil {
		writeError(c, err)
		return
	}
	respond.OK(c, toVersionResponse(version))
}

func (h *Handler) delete(c *gin.Context) {
	if err := h.Svc.Delete(c.Request.Context(), c.Param("id"), middleware.UserIDFromContext(c)); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func writeError(c *gin.Context, err error) {
	var fieldErrs validation.Errors
	switch {
	case errors.As(err, &fieldErrs):
		respond.ValidationError(c, err)
	case errors.Is(err, artifacts.ErrUnsupportedFormat):
		respond.Error(c, http.StatusBadRequest, "unsupported_format", err.Error(), nil)
	case errors.Is(err, ErrDuplicateContent):
		respond.Error(c, http.StatusBadRequest, "duplicate_content", err.Error(), nil)
	case errors.Is(err, ErrPreviousVersionRequired):
		respond.Error(c, http.StatusBadRequest, "previous_version_required", err.Error(), nil)
	case errors.Is(err, ErrPreviousVersionNotFound):
		respond.Error(c, http.StatusBadRequest, "previous_version_not_found", err.Error(), nil)
	case errors.Is(err, ErrInvalidInput):
		respond.Error(c, http.StatusBadRequest, "validation_error", err.Error(), nil)
	case errors.Is(err, reports.ErrNotFound):
		respond.Error(c, http.StatusNotFound, "not_found", "report not found", nil)
	case errors.Is(err, reports.ErrVersionNotFound):
		respond.Error(c, http.StatusNotFound, "not_found", "version not found", nil)
	case errors.Is(err, artifacts.ErrNotFound):
		respond.Error(c, http.StatusNotFound, "not_found", "file not found", nil)
	case errors.Is(err, reports.ErrRunInProgress):
		respond.Error(c, http.StatusConflict, "run_in_progress", "a generation is already running for this report", nil)
	case errors.Is(err, ErrQueueFull), errors.Is(err, ErrSupervisorClosed):
		c.Header("Retry-After", "5")
		respond.Error(c, http.StatusServiceUnavailable, "busy", err.Error(), nil)
	default:
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to process report", nil)
	}
}
