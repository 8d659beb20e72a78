package bootstrap

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"test-report-backend/internal/artifacts"
	"test-report-backend/internal/llm"
	"test-report-backend/internal/llm/gemini"
	"test-report-backend/internal/llm/openai"
	"test-report-backend/internal/notifications"
	"test-report-backend/internal/pipeline"
	"test-report-backend/internal/queue"
	"test-report-backend/internal/reports"
	"test-report-backend/internal/services/health"
	"test-report-backend/internal/shared/auth"
	"test-report-backend/internal/shared/config"
	"test-report-backend/internal/shared/server"
	"test-report-backend/internal/shared/server/middleware"
	"test-report-backend/internal/shared/storage/db"
	"test-report-backend/internal/shared/storage/object"
	localstore "test-report-backend/internal/shared/storage/object/local"
	s3store "test-report-backend/internal/shared/storage/object/s3"
	"test-report-backend/internal/shared/telemetry"
	"test-report-backend/internal/users"
)

const (
	defaultRegion          = "us-east-1"
	notifyVisibilitySecond = 30
	staleSweepInterval     = time.Minute
)

// App holds shared dependencies.
type App struct {
	Config      config.Config
	Router      *gin.Engine
	DB          *sql.DB
	Store       object.ObjectStore
	RunQueue    *queue.SQSClient
	NotifyQueue *queue.SQSClient

	ReportsRepo       reports.Repo
	ArtifactsRepo     artifacts.Repo
	NotificationsRepo notifications.Repo
	UsersRepo         users.Repo

	Verifier      *auth.Verifier
	Users         *users.Service
	Artifacts     *artifacts.Service
	Hub           *notifications.Hub
	Notifier      *notifications.Notifier
	Notifications *notifications.Service
	Relay         *notifications.Relay
	Generator     *llm.Generator
	Pipeline      *pipeline.Service
	Supervisor    *pipeline.Supervisor
	Dispatcher    pipeline.Dispatcher
	Health        *health.Service
}

// Options override pieces of the graph, mainly for tests.
type Options struct {
	Streamer llm.Streamer
	DB       *sql.DB
}

// Build prepares the dependency graph and the router.
func Build(cfg config.Config) (*App, error) {
	return BuildWith(context.Background(), cfg, Options{})
}

// BuildWith is Build with overrides.
func BuildWith(ctx context.Context, cfg config.Config, opts Options) (*App, error) {
	if strings.TrimSpace(cfg.Env) == "" {
		cfg.Env = "dev"
	}
	if strings.TrimSpace(cfg.ObjectStoreType) == "" {
		cfg.ObjectStoreType = "local"
	}
	if cfg.Pipeline.DispatchMode == config.DispatchQueue && strings.TrimSpace(cfg.RunQueueURL) == "" {
		return nil, errors.New("DISPATCH_MODE=queue requires RUN_QUEUE_URL")
	}

	sqlDB := opts.DB
	if sqlDB == nil {
		var err error
		if sqlDB, err = buildDB(ctx, cfg); err != nil {
			return nil, err
		}
	}

	store, err := buildStore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	app := &App{Config: cfg, DB: sqlDB, Store: store}

	if err := buildQueues(ctx, app); err != nil {
		return nil, err
	}

	streamer := opts.Streamer
	if streamer == nil {
		if streamer, err = NewStreamer(cfg); err != nil {
			return nil, err
		}
	}

	if err := buildServices(app, streamer); err != nil {
		return nil, err
	}

	app.Router = server.NewRouter(server.RouterDeps{
		Config:              cfg,
		Verifier:            app.Verifier,
		Users:               app.Users,
		Health:              app.Health,
		ArtifactHandler:     artifacts.NewHandler(app.Artifacts),
		ReportHandler:       pipeline.NewHandler(app.Pipeline),
		NotificationHandler: notifications.NewHandler(app.Notifications, app.Hub),
		UserHandler:         users.NewHandler(app.Users),
		RateLimiter:         middleware.NewRateLimiter(nil),
	})

	return app, nil
}

// Start launches the run supervisor's worker pool and the stale run sweep.
func (a *App) Start(ctx context.Context) {
	a.Supervisor.Start(ctx)
	if a.Config.Pipeline.StaleAfter > 0 {
		go a.sweepStale(ctx, staleSweepInterval)
	}
}

// sweepStale fails orphaned runs once at startup and then every interval
// until ctx is done.
func (a *App) sweepStale(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		n, err := a.Pipeline.RecoverStale(ctx, a.Config.Pipeline.StaleAfter)
		switch {
		case err != nil && ctx.Err() == nil:
			telemetry.Error("bootstrap.stale_sweep_failed", map[string]any{"error": err})
		case n > 0:
			telemetry.Warn("bootstrap.stale_runs_failed", map[string]any{
				"count":       n,
				"stale_after": a.Config.Pipeline.StaleAfter.String(),
			})
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// Shutdown drains runs, closes live connections and the database.
func (a *App) Shutdown(ctx context.Context) error {
	err := a.Supervisor.Shutdown(ctx)
	if a.Hub != nil {
		a.Hub.Close()
	}
	if a.DB != nil {
		if cerr := a.DB.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}
	return err
}

func buildDB(ctx context.Context, cfg config.Config) (*sql.DB, error) {
	if strings.TrimSpace(cfg.DatabaseURL) == "" {
		if isDevLike(cfg.Env) {
			log.Printf("bootstrap: DATABASE_URL empty; using in-memory repositories")
			return nil, nil
		}
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	opts := db.OptionsFromEnv(db.DefaultWorkerOptions(cfg.Pipeline.Workers))
	sqlDB, err := db.Connect(ctx, cfg.DatabaseURL, opts)
	if err != nil {
		if isDevLike(cfg.Env) {
			log.Printf("bootstrap: database connect failed; using in-memory repositories: %v", err)
			return nil, nil
		}
		return nil, err
	}
	return sqlDB, nil
}

func buildStore(ctx context.Context, cfg config.Config) (object.ObjectStore, error) {
	switch cfg.ObjectStoreType {
	case "s3":
		if strings.TrimSpace(cfg.S3Bucket) == "" {
			return nil, fmt.Errorf("OBJECT_STORE=s3 requires S3_BUCKET")
		}
		return s3store.New(ctx, region(cfg), cfg.S3Bucket, cfg.S3Prefix, cfg.SSEKMSKeyID)
	default:
		return localstore.New(cfg.LocalStoreDir), nil
	}
}

func buildQueues(ctx context.Context, app *App) error {
	if url := strings.TrimSpace(app.Config.RunQueueURL); url != "" {
		client, err := queue.NewSQSClient(ctx, region(app.Config), url)
		if err != nil {
			return err
		}
		app.RunQueue = client
	}
	if url := strings.TrimSpace(app.Config.NotifyQueueURL); url != "" {
		client, err := queue.NewSQSClient(ctx, region(app.Config), url)
		if err != nil {
			return err
		}
		client.VisibilitySeconds = notifyVisibilitySecond
		app.NotifyQueue = client
	}
	return nil
}

// NewStreamer picks the generation backend named by LLM_PROVIDER.
func NewStreamer(cfg config.Config) (llm.Streamer, error) {
	switch cfg.LLMProvider {
	case "openai":
		return openai.NewClient(cfg.OpenAIAPIKey, cfg.LLMModel)
	case "gemini":
		return gemini.NewClient(cfg.GeminiAPIKey, cfg.LLMModel, "")
	default:
		if !isDevLike(cfg.Env) {
			telemetry.Warn("bootstrap.stub_provider", map[string]any{"env": cfg.Env})
		}
		return llm.StubStreamer{}, nil
	}
}

func buildServices(app *App, streamer llm.Streamer) error {
	if app.DB != nil {
		app.ReportsRepo = &reports.PGRepo{DB: app.DB}
		app.ArtifactsRepo = &artifacts.PGRepo{DB: app.DB}
		app.NotificationsRepo = &notifications.PGRepo{DB: app.DB}
		app.UsersRepo = &users.PGRepo{DB: app.DB}
	} else {
		app.ReportsRepo = reports.NewMemoryRepo()
		app.ArtifactsRepo = artifacts.NewMemoryRepo()
		app.NotificationsRepo = notifications.NewMemoryRepo()
		app.UsersRepo = users.NewMemoryRepo()
	}

	verifier, err := auth.NewVerifier(app.Config.JWTSecret, app.Config.Env)
	if err != nil {
		return err
	}
	app.Verifier = verifier
	app.Users = users.NewService(app.UsersRepo)
	app.Artifacts = artifacts.NewService(app.Store, app.ArtifactsRepo)

	app.Hub = notifications.NewHub(app.Config.CORSAllowOrigin)
	publishers := notifications.MultiPublisher{app.Hub}
	if app.NotifyQueue != nil && app.Config.Pipeline.DispatchMode == config.DispatchQueue {
		publishers = append(publishers, notifications.SQSPublisher{Client: app.NotifyQueue})
	}
	app.Notifier = notifications.NewNotifier(app.NotificationsRepo, publishers)
	app.Notifications = notifications.NewService(app.NotificationsRepo)
	if app.NotifyQueue != nil {
		app.Relay = notifications.NewRelay(app.NotifyQueue, app.Hub)
	}

	provider := app.Config.LLMProvider
	if named, ok := streamer.(interface{ Name() string }); ok {
		provider = named.Name()
	}
	app.Generator = llm.NewGenerator(streamer, llm.Options{
		Provider:    provider,
		MaxAttempts: app.Config.Generation.MaxAttempts,
		Backoff:     app.Config.Generation.Backoff,
		MaxChars:    app.Config.Generation.MaxChars,
	})

	app.Pipeline = pipeline.NewService(app.ReportsRepo, app.Artifacts, app.Generator, app.Notifier)
	app.Supervisor = pipeline.NewSupervisor(app.Pipeline.Execute, pipeline.SupervisorOptions{
		Workers:    app.Config.Pipeline.Workers,
		QueueSize:  app.Config.Pipeline.QueueSize,
		RunTimeout: app.Config.Pipeline.RunTimeout,
	})
	switch app.Config.Pipeline.DispatchMode {
	case config.DispatchQueue:
		app.Dispatcher = pipeline.NewQueueDispatcher(app.RunQueue)
	default:
		app.Dispatcher = pipeline.InlineDispatcher{Supervisor: app.Supervisor}
	}
	app.Pipeline.Dispatcher = app.Dispatcher

	var pinger health.Pinger
	if app.DB != nil {
		pinger = app.DB
	}
	app.Health = health.NewService(pinger, app.Supervisor)

	telemetry.Info("bootstrap.ready", map[string]any{
		"env":           app.Config.Env,
		"provider":      provider,
		"dispatch_mode": app.Config.Pipeline.DispatchMode,
		"database":      app.DB != nil,
		"object_store":  app.Config.ObjectStoreType,
		"run_timeout":   app.Config.Pipeline.RunTimeout.String(),
	})
	return nil
}

func region(cfg config.Config) string {
	if r := strings.TrimSpace(cfg.AWSRegion); r != "" {
		return r
	}
	return defaultRegion
}

func isDevLike(env string) bool {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "dev", "local":
		return true
	default:
		return false
	}
}

// ShutdownTimeout bounds graceful shutdown in the entrypoints.
const ShutdownTimeout = 30 * time.Second
