package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	// Server
	Port     string
	Env      string
	LogLevel string

	// Database
	DatabaseURL string

	// Redis
	RedisURL string

	// JWT
	JWTSecret string

	// YouTube
	YouTubeAPIKey       string
	SearchLanguage      string
	SearchRegion        string
	SearchMaxResults    int
	SearchMaxPages      int
	LayoutProbeEnabled  bool
	CaptionProbeEnabled bool
	MetadataCacheTTL    time.Duration

	// Collection
	CollectMaxAttempts            int
	CollectMaxConsecutiveFailures int
	CollectIterationDelay         time.Duration
	CollectCandidateDelay         time.Duration

	// Rating
	CommentMax         int
	PromotionThreshold float64
	RatingPollInterval time.Duration
	RatingBatchSize    int

	// Store throttling
	StoreRateLimit  int
	StoreRateWindow time.Duration
	StoreMinSpacing time.Duration

	// Workers
	WorkerCount int

	// Frontend
	FrontendURL string
}

func Load() *Config {
	// Load .env file if it exists
	godotenv.Load()

	cfg := &Config{
		Port:        getEnvOrDefault("PORT", "8080"),
		Env:         getEnvOrDefault("ENV", "development"),
		LogLevel:    getEnvOrDefault("LOG_LEVEL", "info"),
		DatabaseURL: mustGetEnv("DATABASE_URL"),
		RedisURL:    mustGetEnv("REDIS_URL"),
		JWTSecret:   mustGetEnv("JWT_SECRET"),

		// Checked at run start so the server can boot without it.
		YouTubeAPIKey:       getEnvOrDefault("YOUTUBE_API_KEY", ""),
		SearchLanguage:      getEnvOrDefault("SEARCH_LANGUAGE", "en"),
		SearchRegion:        getEnvOrDefault("SEARCH_REGION", ""),
		SearchMaxResults:    getEnvAsIntOrDefault("SEARCH_MAX_RESULTS", 25),
		SearchMaxPages:      getEnvAsIntOrDefault("SEARCH_MAX_PAGES", 3),
		LayoutProbeEnabled:  getEnvAsBoolOrDefault("LAYOUT_PROBE_ENABLED", true),
		CaptionProbeEnabled: getEnvAsBoolOrDefault("CAPTION_PROBE_ENABLED", false),
		MetadataCacheTTL:    getEnvAsDurationOrDefault("METADATA_CACHE_TTL", 6*time.Hour),

		CollectMaxAttempts:            getEnvAsIntOrDefault("COLLECT_MAX_ATTEMPTS", 30),
		CollectMaxConsecutiveFailures: getEnvAsIntOrDefault("COLLECT_MAX_CONSECUTIVE_FAILURES", 10),
		CollectIterationDelay:         getEnvAsDurationOrDefault("COLLECT_ITERATION_DELAY", 1500*time.Millisecond),
		CollectCandidateDelay:         getEnvAsDurationOrDefault("COLLECT_CANDIDATE_DELAY", 300*time.Millisecond),

		CommentMax:         getEnvAsIntOrDefault("COMMENT_MAX", 500),
		PromotionThreshold: getEnvAsFloatOrDefault("PROMOTION_THRESHOLD", 6.5),
		RatingPollInterval: getEnvAsDurationOrDefault("RATING_POLL_INTERVAL", 0),
		RatingBatchSize:    getEnvAsIntOrDefault("RATING_BATCH_SIZE", 10),

		StoreRateLimit:  getEnvAsIntOrDefault("STORE_RATE_LIMIT", 50),
		StoreRateWindow: getEnvAsDurationOrDefault("STORE_RATE_WINDOW", time.Minute),
		StoreMinSpacing: getEnvAsDurationOrDefault("STORE_MIN_SPACING", 100*time.Millisecond),

		WorkerCount: getEnvAsIntOrDefault("WORKER_COUNT", 2),
		FrontendURL: getEnvOrDefault("FRONTEND_URL", "http://localhost:5173"),
	}

	return cfg
}

func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

func mustGetEnv(key string) string {
	val := os.Getenv(key)
	if val == "" {
		panic(fmt.Sprintf("required environment variable %s is not set", key))
	}
	return val
}

func getEnvOrDefault(key, defaultVal string) string {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	return val
}

func getEnvAsIntOrDefault(key string, defaultVal int) int {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return defaultVal
	}
	return n
}

func getEnvAsFloatOrDefault(key string, defaultVal float64) float64 {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	f, err := strconv.ParseFloat(val, 64)
	if err != nil {
		return defaultVal
	}
	return f
}

func getEnvAsBoolOrDefault(key string, defaultVal bool) bool {
	val := strings.TrimSpace(os.Getenv(key))
	if val == "" {
		return defaultVal
	}
	b, err := strconv.ParseBool(val)
	if err != nil {
		return defaultVal
	}
	return b
}

// Accepts Go duration strings ("1.5s") or plain milliseconds ("1500").
func getEnvAsDurationOrDefault(key string, defaultVal time.Duration) time.Duration {
	val := strings.TrimSpace(os.Getenv(key))
	if val == "" {
		return defaultVal
	}
	if d, err := time.ParseDuration(val); err == nil {
		return d
	}
	if ms, err := strconv.Atoi(val); err == nil {
		return time.Duration(ms) * time.Millisecond
	}
	return defaultVal
}
