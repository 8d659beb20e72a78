package server

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"

	"test-report-backend/internal/shared/auth"
	"test-report-backend/internal/shared/server/respond"
	"test-report-backend/internal/users"
)

type devTokenRequest struct {
	UserID   string `json:"user_id"`
	Email    string `json:"email"`
	FullName string `json:"full_name"`
}

func (r devTokenRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.UserID, validation.Required),
		validation.Field(&r.Email, validation.Required, is.EmailFormat),
	)
}

// registerDevRoutes mounts local-only helpers. Real tokens come from the
// identity provider.
func registerDevRoutes(rg *gin.RouterGroup, verifier *auth.Verifier, userSvc *users.Service) {
	rg.POST("/token", func(c *gin.Context) {
		var req devTokenRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respond.Error(c, http.StatusBadRequest, "validation_error", "invalid JSON body", nil)
			return
		}
		req.UserID = strings.TrimSpace(req.UserID)
		req.Email = strings.TrimSpace(req.Email)
		if err := req.Validate(); err != nil {
			respond.ValidationError(c, err)
			return
		}

		now := time.Now().UTC()
		if err := userSvc.Register(c.Request.Context(), users.User{
			ID:        req.UserID,
			Email:     req.Email,
			FullName:  req.FullName,
			Status:    users.StatusActive,
			CreatedAt: now,
			UpdatedAt: now,
		}); err != nil {
			respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to register user", nil)
			return
		}
		token, err := verifier.Sign(req.UserID, req.Email, req.FullName)
		if err != nil {
			respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to sign token", nil)
			return
		}
		respond.OK(c, gin.H{"token": token, "user_id": req.UserID})
	})
}
