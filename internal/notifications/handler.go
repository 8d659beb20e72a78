package notifications

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"test-report-backend/internal/shared/server/middleware"
	"test-report-backend/internal/shared/server/respond"
	"test-report-backend/internal/shared/telemetry"
)

// Handler wires HTTP handlers to the service and the live hub.
type Handler struct {
	Svc *Service
	Hub *Hub
}

// NewHandler constructs a Handler. hub may be nil when live delivery is off.
func NewHandler(svc *Service, hub *Hub) *Handler {
	return &Handler{Svc: svc, Hub: hub}
}

// RegisterRoutes attaches notification routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/notifications", h.list)
	rg.PUT("/notifications/:id/read", h.markRead)
	rg.DELETE("/notifications/:id", h.delete)
	rg.GET("/notifications/ws", h.live)
}

func (h *Handler) list(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)
	events, err := h.Svc.List(c.Request.Context(), userID, c.Query("unread") == "true")
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to list notifications", nil)
		return
	}
	out := make([]EventResponse, 0, len(events))
	for _, e := range events {
		out = append(out, toResponse(e))
	}
	respond.OK(c, gin.H{"items": out})
}

func (h *Handler) markRead(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)
	if err := h.Svc.MarkRead(c.Request.Context(), userID, c.Param("id")); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) delete(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)
	if err := h.Svc.Delete(c.Request.Context(), userID, c.Param("id")); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) live(c *gin.Context) {
	if h.Hub == nil {
		respond.Error(c, http.StatusServiceUnavailable, "live_unavailable", "live notifications are disabled", nil)
		return
	}
	userID := middleware.UserIDFromContext(c)
	if err := h.Hub.Serve(c.Writer, c.Request, userID); err != nil {
		// the upgrader already wrote an HTTP error
		telemetry.Warn("notification.live.upgrade_failed", map[string]any{
			"user_id": userID,
			"error":   err,
		})
		c.Abort()
	}
}

func writeError(c *gin.Context, err error) {
	if errors.Is(err, ErrNotFound) {
		respond.Error(c, http.StatusNotFound, "not_found", "notification not found", nil)
		return
	}
	respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to update notification", nil)
}
