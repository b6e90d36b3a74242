package config

import (
	"log/slog"
	"os"
	"strconv"
	"time"
)

type R2 struct {
	AccountID  string
	AccessKey  string
	SecretKey  string
	BucketName string
	PublicURL  string
}

// Platforms holds the API base URLs, overridable for staging and tests.
type Platforms struct {
	FacebookURL  string
	InstagramURL string
	LinkedInURL  string
}

type Config struct {
	Port                string
	PostgresURI         string
	RedisURI            string
	FrontendURL         string
	R2                  R2
	Platforms           Platforms
	SecretKey           string
	CookieName          string
	ConflictScope       string
	ConflictWindow      time.Duration
	SweepSchedule       string
	TokenCheckSchedule  string
	SweepBatchSize      int
	WorkerConcurrency   int
	DispatchConcurrency int
	// PublishTimeout bounds one platform HTTP call. A publish attempt gets
	// one PublishTimeout per call it makes, so a ten-item carousel has eleven.
	PublishTimeout   time.Duration
	PublishAttempts  int
	PublishBaseDelay time.Duration
	DraftTTL         time.Duration
}

func LoadConfig() *Config {
	return &Config{
		Port:        getEnv("PORT", "3000"),
		PostgresURI: getEnv("POSTGRES_URI", ""),
		RedisURI:    getEnv("REDIS_URI", ""),
		FrontendURL: getEnv("FRONTEND_URL", "http://localhost:5173"),
		R2: R2{
			AccountID:  getEnv("R2_ACCOUNT_ID", ""),
			AccessKey:  getEnv("R2_ACCESS_KEY", ""),
			SecretKey:  getEnv("R2_SECRET_KEY", ""),
			BucketName: getEnv("R2_BUCKET_NAME", ""),
			PublicURL:  getEnv("R2_PUBLIC_URL", ""),
		},
		Platforms: Platforms{
			FacebookURL:  getEnv("FACEBOOK_API_URL", ""),
			InstagramURL: getEnv("INSTAGRAM_API_URL", ""),
			LinkedInURL:  getEnv("LINKEDIN_API_URL", ""),
		},
		SecretKey:           getEnv("SECRET_KEY", ""),
		CookieName:          getEnv("COOKIE_NAME", "postpilot_token"),
		ConflictScope:       getEnv("CONFLICT_SCOPE", "global"),
		ConflictWindow:      getEnvDuration("CONFLICT_WINDOW", 30*time.Minute),
		SweepSchedule:       getEnv("SWEEP_SCHEDULE", "@every 1m"),
		TokenCheckSchedule:  getEnv("TOKEN_CHECK_SCHEDULE", "@every 10m"),
		SweepBatchSize:      getEnvInt("SWEEP_BATCH_SIZE", 500),
		WorkerConcurrency:   getEnvInt("WORKER_CONCURRENCY", 10),
		DispatchConcurrency: getEnvInt("DISPATCH_CONCURRENCY", 10),
		PublishTimeout:      getEnvDuration("PUBLISH_TIMEOUT", 15*time.Second),
		PublishAttempts:     getEnvInt("PUBLISH_ATTEMPTS", 3),
		PublishBaseDelay:    getEnvDuration("PUBLISH_BASE_DELAY", time.Second),
		DraftTTL:            getEnvDuration("DRAFT_TTL", 30*24*time.Hour),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	value := getEnv(key, "")
	if value == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(value)
	if err != nil || n <= 0 {
		slog.Warn("ignoring invalid integer setting", "key", key, "value", value)
		return defaultValue
	}
	return n
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := getEnv(key, "")
	if value == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(value)
	if err != nil || d <= 0 {
		slog.Warn("ignoring invalid duration setting", "key", key, "value", value)
		return defaultValue
	}
	return d
}
