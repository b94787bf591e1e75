package config

import (
	"os"
	"strconv"
	"time"
)

// Config is the full environment surface shared by the API and worker
// binaries. Every knob has a working single-machine default.
type Config struct {
	ListenAddr  string
	MetricsAddr string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	QueueName   string
	JobTTL      time.Duration
	PollTimeout time.Duration
	JobTimeout  time.Duration

	MaxConcurrent int
	// StageDelay scales the mock generators' simulated pipeline stages.
	StageDelay time.Duration

	RateLimitMax    int
	RateLimitWindow time.Duration
	// Process-local burst guard in front of the shared limiter.
	GuardRPS   int
	GuardBurst int

	NotifyChannel string

	EphemeralTTL   time.Duration
	MaxUploadBytes int64

	S3Endpoint  string
	S3Region    string
	S3AccessKey string
	S3SecretKey string
	S3Bucket    string
}

func Load() Config {
	return Config{
		ListenAddr:  getEnv("LISTEN_ADDR", ":8080"),
		MetricsAddr: getEnv("METRICS_ADDR", ":2113"),

		RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("REDIS_DB", 0),

		QueueName:   getEnv("QUEUE_NAME", "generation"),
		JobTTL:      getEnvDuration("JOB_TTL", 24*time.Hour),
		PollTimeout: getEnvDuration("POLL_TIMEOUT", time.Second),
		JobTimeout:  getEnvDuration("JOB_TIMEOUT", 120*time.Second),

		MaxConcurrent: getEnvInt("MAX_CONCURRENT", 4),
		StageDelay:    getEnvDuration("STAGE_DELAY", 2*time.Second),

		RateLimitMax:    getEnvInt("RATE_LIMIT_MAX", 60),
		RateLimitWindow: getEnvDuration("RATE_LIMIT_WINDOW", time.Minute),
		GuardRPS:        getEnvInt("GUARD_RPS", 100),
		GuardBurst:      getEnvInt("GUARD_BURST", 200),

		NotifyChannel: getEnv("NOTIFY_CHANNEL", "jobs:events"),

		EphemeralTTL:   getEnvDuration("EPHEMERAL_TTL", 3*time.Second),
		MaxUploadBytes: int64(getEnvInt("MAX_UPLOAD_MB", 50)) << 20,

		S3Endpoint:  getEnv("S3_ENDPOINT", "http://localhost:9000"),
		S3Region:    getEnv("S3_REGION", "us-east-1"),
		S3AccessKey: getEnv("S3_ACCESS_KEY", "minioadmin"),
		S3SecretKey: getEnv("S3_SECRET_KEY", "minioadmin"),
		S3Bucket:    getEnv("S3_BUCKET", "uploads"),
	}
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getEnvDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}
