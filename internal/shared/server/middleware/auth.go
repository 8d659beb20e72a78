package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"test-report-backend/internal/shared/auth"
	"test-report-backend/internal/shared/server/respond"
)

const (
	userIDKey    = "userId"
	userEmailKey = "userEmail"
	userNameKey  = "userName"
)

// ErrIdentityNotFound is returned by resolvers for unknown subjects.
var ErrIdentityNotFound = errors.New("identity not found")

// Identity is the resolved caller behind a bearer token.
type Identity struct {
	UserID  string
	Email   string
	Name    string
	Active  bool
	Deleted bool
}

// IdentityResolver looks up the account state for a token subject.
type IdentityResolver interface {
	ResolveIdentity(ctx context.Context, userID string) (Identity, error)
}

// Auth validates bearer tokens, resolves the caller and stores identity in context.
// Deleted or unknown accounts get 401, inactive accounts 403.
func Auth(verifier *auth.Verifier, resolver IdentityResolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method == http.MethodOptions {
			c.Status(http.StatusNoContent)
			return
		}

		token := bearerToken(c)
		if token == "" {
			respond.Error(c, http.StatusUnauthorized, "unauthorized", "missing or invalid token", nil)
			return
		}
		claims, err := verifier.Verify(token)
		if err != nil {
			respond.Error(c, http.StatusUnauthorized, "unauthorized", "missing or invalid token", nil)
			return
		}

		identity := Identity{UserID: claims.Subject, Email: claims.Email, Name: claims.Name, Active: true}
		if resolver != nil {
			resolved, err := resolver.ResolveIdentity(c.Request.Context(), claims.Subject)
			switch {
			case errors.Is(err, ErrIdentityNotFound):
				respond.Error(c, http.StatusUnauthorized, "unauthorized", "user not found", nil)
				return
			case err != nil:
				respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to resolve identity", nil)
				return
			}
			identity = resolved
		}
		if identity.Deleted {
			respond.Error(c, http.StatusUnauthorized, "unauthorized", "user not found", nil)
			return
		}
		if !identity.Active {
			respond.Error(c, http.StatusForbidden, "forbidden", "user is inactive", nil)
			return
		}

		c.Set(userIDKey, identity.UserID)
		if identity.Email != "" {
			c.Set(userEmailKey, identity.Email)
		}
		if identity.Name != "" {
			c.Set(userNameKey, identity.Name)
		}
		c.Next()
	}
}

// bearerToken reads the Authorization header, falling back to the token query
// parameter for websocket upgrades where browsers cannot set headers.
func bearerToken(c *gin.Context) string {
	header := strings.TrimSpace(c.GetHeader("Authorization"))
	if header != "" {
		if !strings.HasPrefix(header, "Bearer ") {
			return ""
		}
		return strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	}
	return strings.TrimSpace(c.Query("token"))
}

// UserIDFromContext fetches the user ID set by the auth middleware.
func UserIDFromContext(c *gin.Context) string {
	return stringFromContext(c, userIDKey)
}

// UserEmailFromContext fetches the user email set by the auth middleware.
func UserEmailFromContext(c *gin.Context) string {
	return stringFromContext(c, userEmailKey)
}

// UserNameFromContext fetches the display name set by the auth middleware.
func UserNameFromContext(c *gin.Context) string {
	return stringFromContext(c, userNameKey)
}

func stringFromContext(c *gin.Context, key string) string {
	if c == nil {
		return ""
	}
	val, _ := c.Get(key)
	if s, ok := val.(string); ok {
		return s
	}
	return ""
}
