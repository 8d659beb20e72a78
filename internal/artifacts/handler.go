package artifacts

import (
	"errors"
	"mime"
	"net/http"

	"github.com/gin-gonic/gin"

	"test-report-backend/internal/shared/server/middleware"
	"test-report-backend/internal/shared/server/respond"
)

// Handler wires HTTP handlers to the service.
type Handler struct {
	Svc *Service
}

// NewHandler constructs a Handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc}
}

// RegisterRoutes attaches artifact routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/files", h.upload)
	rg.GET("/files/:id", h.get)
	rg.GET("/files/:id/content", h.content)
	rg.GET("/files/project/:projectId", h.listByProject)
}

func (h *Handler) upload(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)
	limit := h.Svc.MaxBytes
	if limit <= 0 {
		limit = DefaultMaxBytes
	}
	// multipart framing overhead on top of the payload
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit+1<<20)

	fileHeader, err := c.FormFile("file")
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "file is required", nil)
		return
	}
	file, err := fileHeader.Open()
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "unable to read file", nil)
		return
	}
	defer file.Close()

	artifact, err := h.Svc.Upload(c.Request.Context(), UploadInput{
		UserID:    userID,
		ProjectID: c.PostForm("project_id"),
		FileName:  fileHeader.Filename,
		Body:      file,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	respond.JSON(c, http.StatusCreated, toResponse(artifact))
}

func (h *Handler) get(c *gin.Context) {
	artifact, err := h.Svc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	respond.OK(c, toResponse(artifact))
}

func (h *Handler) content(c *gin.Context) {
	artifact, data, err := h.Svc.Read(c.Request.Context(), c.Param("id"), middleware.UserIDFromContext(c))
	if err != nil {
		writeError(c, err)
		return
	}
	mimeType := artifact.MimeType
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}
	c.Header("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": artifact.FileName}))
	c.Data(http.StatusOK, mimeType, data)
}

func (h *Handler) listByProject(c *gin.Context) {
	items, err := h.Svc.ListByProject(c.Request.Context(), c.Param("projectId"))
	if err != nil {
		writeError(c, err)
		return
	}
	out := make([]ArtifactResponse, 0, len(items))
	for _, a := range items {
		out = append(out, toResponse(a))
	}
	respond.OK(c, gin.H{"items": out})
}

func writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrUnsupportedFormat):
		respond.Error(c, http.StatusBadRequest, "unsupported_format", err.Error(), nil)
	case errors.Is(err, ErrInvalidInput):
		respond.Error(c, http.StatusBadRequest, "validation_error", err.Error(), nil)
	case errors.Is(err, ErrTooLarge):
		respond.Error(c, http.StatusRequestEntityTooLarge, "too_large", err.Error(), nil)
	case errors.Is(err, ErrNotFound):
		respond.Error(c, http.StatusNotFound, "not_found", "file not found", nil)
	default:
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to process file", nil)
	}
}
