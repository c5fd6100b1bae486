package config

import (
	"log/slog"
	"os"
	"strconv"
	"time"
)

type R2 struct {
	AccountID     string
	AccessKey     string
	SecretKey     string
	BucketName    string
	PublicBaseURL string
}

// Enabled reports whether local media can be staged to R2.
func (r R2) Enabled() bool {
	return r.AccountID != "" && r.AccessKey != "" && r.SecretKey != "" && r.BucketName != "" && r.PublicBaseURL != ""
}

type Config struct {
	MetaAppID       string
	MetaAppSecret   string
	MetaRedirectURI string
	GraphBaseURL    string

	DBDriver string
	DBDSN    string
	RedisURI string

	ListenAddr string
	SecretKey  string
	CookieName string
	LogLevel   string
	UploadDir  string

	PollInterval         time.Duration
	PublishInterval      time.Duration
	DispatchBatchSize    int
	ContainerPollTries   int
	ContainerPollDelay   time.Duration
	StaleProcessingAfter time.Duration
	TokenRefreshInterval time.Duration
	WorkerConcurrency    int

	R2 R2
}

func LoadConfig() *Config {
	return &Config{
		MetaAppID:       getEnv("META_APP_ID", ""),
		MetaAppSecret:   getEnv("META_APP_SECRET", ""),
		MetaRedirectURI: getEnv("META_REDIRECT_URI", "http://localhost:3000/auth/callback"),
		GraphBaseURL:    getEnv("GRAPH_BASE_URL", "https://graph.facebook.com/v18.0"),

		DBDriver: getEnv("DB_DRIVER", "sqlite"),
		DBDSN:    getEnv("DB_DSN", "dmflow.sqlite"),
		RedisURI: getEnv("REDIS_URI", ""),

		ListenAddr: getEnv("LISTEN_ADDR", ":3000"),
		SecretKey:  getEnv("SECRET_KEY", ""),
		CookieName: getEnv("COOKIE_NAME", "dmflow_session"),
		LogLevel:   getEnv("LOG_LEVEL", "info"),
		UploadDir:  getEnv("UPLOAD_DIR", "uploads"),

		PollInterval:         getEnvDuration("POLL_INTERVAL", 10*time.Second),
		PublishInterval:      getEnvDuration("PUBLISH_INTERVAL", 60*time.Second),
		DispatchBatchSize:    getEnvInt("DISPATCH_BATCH_SIZE", 5),
		ContainerPollTries:   getEnvInt("CONTAINER_POLL_TRIES", 10),
		ContainerPollDelay:   getEnvDuration("CONTAINER_POLL_DELAY", 5*time.Second),
		StaleProcessingAfter: getEnvDuration("STALE_PROCESSING_AFTER", 15*time.Minute),
		TokenRefreshInterval: getEnvDuration("TOKEN_REFRESH_INTERVAL", 24*time.Hour),
		WorkerConcurrency:    getEnvInt("WORKER_CONCURRENCY", 2),

		R2: R2{
			AccountID:     getEnv("R2_ACCOUNT_ID", ""),
			AccessKey:     getEnv("R2_ACCESS_KEY", ""),
			SecretKey:     getEnv("R2_SECRET_KEY", ""),
			BucketName:    getEnv("R2_BUCKET_NAME", ""),
			PublicBaseURL: getEnv("R2_PUBLIC_BASE_URL", ""),
		},
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		slog.Warn("invalid integer in environment, using default", "key", key, "value", value)
		return defaultValue
	}
	return n
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		slog.Warn("invalid duration in environment, using default", "key", key, "value", value)
		return defaultValue
	}
	return d
}
