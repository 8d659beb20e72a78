package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds application configuration.
type Config struct {
	Port            string
	Env             string
	DatabaseURL     string
	CORSAllowOrigin []string
	JWTSecret       string

	ObjectStoreType string
	LocalStoreDir   string
	AWSRegion       string
	S3Bucket        string
	S3Prefix        string
	SSEKMSKeyID     string

	LLMProvider  string
	LLMModel     string
	OpenAIAPIKey string
	GeminiAPIKey string

	Generation Generation
	Pipeline   Pipeline

	RunQueueURL    string
	NotifyQueueURL string

	RateLimitRPS   float64
	RateLimitBurst int
}

// Generation tunes the generation client.
type Generation struct {
	MaxAttempts int
	Backoff     time.Duration
	MaxChars    int
}

// Pipeline tunes the background run supervisor.
type Pipeline struct {
	Workers      int
	QueueSize    int
	RunTimeout   time.Duration
	DispatchMode string
	// StaleAfter is how long a Pending or InProgress report may go without
	// an update before the stale sweep fails it.
	StaleAfter time.Duration
}

const (
	DispatchInline = "inline"
	DispatchQueue  = "queue"
)

// Load reads configuration from environment variables with sensible defaults.
func Load() Config {
	loadEnvFiles(".env", "cmd/.env")

	env := normalizeEnv(getEnv("ENV", "dev"))
	dbURL := os.Getenv("DATABASE_URL")

	if env == "production" && dbURL == "" {
		log.Printf("DATABASE_URL is required in production")
	}

	runTimeout := getEnvDuration("PIPELINE_RUN_TIMEOUT", 10*time.Minute)

	return Config{
		Port:            getEnv("PORT", "8080"),
		Env:             env,
		DatabaseURL:     dbURL,
		CORSAllowOrigin: splitAndTrim(getEnv("CORS_ALLOW_ORIGINS", "http://localhost:5173")),
		JWTSecret:       getEnv("JWT_SECRET", ""),
		ObjectStoreType: normalizeStoreType(getEnv("OBJECT_STORE", "local")),
		LocalStoreDir:   getEnv("LOCAL_STORE_DIR", "./data"),
		AWSRegion:       getEnv("AWS_REGION", ""),
		S3Bucket:        getEnv("S3_BUCKET", ""),
		S3Prefix:        getEnv("S3_PREFIX", ""),
		SSEKMSKeyID:     getEnv("SSE_KMS_KEY_ID", ""),
		LLMProvider:     normalizeProvider(getEnv("LLM_PROVIDER", "stub")),
		LLMModel:        getEnv("LLM_MODEL", ""),
		OpenAIAPIKey:    getEnv("OPENAI_API_KEY", ""),
		GeminiAPIKey:    getEnv("GEMINI_API_KEY", ""),
		Generation: Generation{
			MaxAttempts: getEnvInt("GENERATION_MAX_ATTEMPTS", 2),
			Backoff:     getEnvDuration("GENERATION_BACKOFF", 2*time.Second),
			MaxChars:    getEnvInt("GENERATION_MAX_CHARS", 1_000_000),
		},
		Pipeline: Pipeline{
			Workers:      getEnvInt("PIPELINE_WORKERS", 4),
			QueueSize:    getEnvInt("PIPELINE_QUEUE_SIZE", 64),
			RunTimeout:   runTimeout,
			DispatchMode: normalizeDispatchMode(getEnv("DISPATCH_MODE", DispatchInline)),
			StaleAfter:   getEnvDuration("PIPELINE_STALE_AFTER", 2*runTimeout),
		},
		RunQueueURL:    getEnv("RUN_QUEUE_URL", ""),
		NotifyQueueURL: getEnv("NOTIFY_QUEUE_URL", ""),
		RateLimitRPS:   getEnvFloat("RATE_LIMIT_RPS", 5),
		RateLimitBurst: getEnvInt("RATE_LIMIT_BURST", 20),
	}
}

func getEnv(key, def string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return def
}

func getEnvInt(key string, def int) int {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	val, err := strconv.Atoi(raw)
	if err != nil || val <= 0 {
		log.Printf("config %s invalid int %q, using %d", key, raw, def)
		return def
	}
	return val
}

func getEnvFloat(key string, def float64) float64 {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	val, err := strconv.ParseFloat(raw, 64)
	if err != nil || val < 0 {
		log.Printf("config %s invalid float %q, using %v", key, raw, def)
		return def
	}
	return val
}

func getEnvDuration(key string, def time.Duration) time.Duration {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	val, err := time.ParseDuration(raw)
	if err != nil || val < 0 {
		log.Printf("config %s invalid duration %q, using %s", key, raw, def)
		return def
	}
	return val
}

func splitAndTrim(raw string) []string {
	parts := strings.Split(raw, ",")
	var out []string
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func normalizeEnv(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "production", "prod":
		return "production"
	case "staging":
		return "staging"
	case "local":
		return "local"
	default:
		return "dev"
	}
}

func normalizeStoreType(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "s3":
		return "s3"
	default:
		return "local"
	}
}

func normalizeProvider(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "openai":
		return "openai"
	case "gemini":
		return "gemini"
	default:
		return "stub"
	}
}

func normalizeDispatchMode(raw string) string {
	if strings.EqualFold(strings.TrimSpace(raw), DispatchQueue) {
		return DispatchQueue
	}
	return DispatchInline
}
