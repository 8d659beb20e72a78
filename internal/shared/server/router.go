package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"test-report-backend/internal/artifacts"
	"test-report-backend/internal/notifications"
	"test-report-backend/internal/pipeline"
	"test-report-backend/internal/services/health"
	"test-report-backend/internal/shared/auth"
	"test-report-backend/internal/shared/config"
	"test-report-backend/internal/shared/metrics"
	"test-report-backend/internal/shared/server/middleware"
	"test-report-backend/internal/shared/server/respond"
	"test-report-backend/internal/users"
)

const (
	rateGroupPoll = "POLL"
	rateGroupRun  = "RUN"
)

// RouterDeps are the handlers and services mounted on the engine.
type RouterDeps struct {
	Config              config.Config
	Verifier            *auth.Verifier
	Users               *users.Service
	Health              *health.Service
	ArtifactHandler     *artifacts.Handler
	ReportHandler       *pipeline.Handler
	NotificationHandler *notifications.Handler
	UserHandler         *users.Handler
	RateLimiter         *middleware.RateLimiter
}

// NewRouter constructs the Gin engine with middleware and routes registered.
func NewRouter(deps RouterDeps) *gin.Engine {
	if deps.Config.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()

	r.Use(
		middleware.RequestID(),
		middleware.Logging(),
		middleware.Recovery(),
		middleware.CORS(deps.Config.CORSAllowOrigin),
	)

	r.GET("/metrics", metrics.Handler())

	api := r.Group("/api/v1")
	api.GET("/health", func(c *gin.Context) {
		if deps.Health == nil {
			respond.OK(c, gin.H{"ok": true})
			return
		}
		respond.OK(c, deps.Health.Status())
	})
	api.GET("/health/ready", func(c *gin.Context) {
		if deps.Health == nil {
			respond.OK(c, gin.H{"ok": true})
			return
		}
		report := deps.Health.Ready(c.Request.Context())
		status := http.StatusOK
		if !report.OK {
			status = http.StatusServiceUnavailable
		}
		respond.JSON(c, status, report)
	})
	if isDevLike(deps.Config.Env) && deps.Verifier != nil && deps.Users != nil {
		registerDevRoutes(api.Group("/dev"), deps.Verifier, deps.Users)
	}

	var resolver middleware.IdentityResolver
	if deps.Users != nil {
		resolver = deps.Users
	}
	authed := api.Group("")
	authed.Use(middleware.Auth(deps.Verifier, resolver))
	authed.Use(middleware.RateLimit(middleware.RateLimitConfig{
		Rules:    rateRules(deps.Config),
		GroupFor: rateGroupFor,
		Limiter:  deps.RateLimiter,
	}))

	if deps.UserHandler != nil {
		deps.UserHandler.RegisterRoutes(authed)
	}
	if deps.ArtifactHandler != nil {
		deps.ArtifactHandler.RegisterRoutes(authed)
	}
	if deps.ReportHandler != nil {
		deps.ReportHandler.RegisterRoutes(authed)
	}
	if deps.NotificationHandler != nil {
		deps.NotificationHandler.RegisterRoutes(authed)
	}

	return r
}

func rateRules(cfg config.Config) map[string]middleware.RateLimitRule {
	rps := cfg.RateLimitRPS
	burst := cfg.RateLimitBurst
	if rps <= 0 {
		return nil
	}
	return map[string]middleware.RateLimitRule{
		rateGroupPoll: {Rate: rps, Burst: max(1, burst)},
		rateGroupRun:  {Rate: rps / 5, Burst: max(1, burst/5)},
	}
}

// rateGroupFor throttles status polling and run submission separately; other
// routes are not limited.
func rateGroupFor(c *gin.Context) string {
	path := c.FullPath()
	switch {
	case c.Request.Method == http.MethodGet && strings.HasPrefix(path, "/api/v1/reports"):
		return rateGroupPoll
	case c.Request.Method == http.MethodPost && path == "/api/v1/reports",
		c.Request.Method == http.MethodPut && path == "/api/v1/reports/:id":
		return rateGroupRun
	default:
		return "NONE"
	}
}

// Addr normalizes the listen address.
func Addr(port string) string {
	if port == "" {
		return ":8080"
	}
	if port[0] == ':' {
		return port
	}
	return ":" + port
}

func isDevLike(env string) bool {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "dev", "local", "test":
		return true
	default:
		return false
	}
}
