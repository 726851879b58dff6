package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	// Veo generation service
	VeoAPIKey     string
	VeoAPIBaseURL string
	VeoModelFast  string
	VeoModelImage string

	// Gemini story expansion
	GeminiAPIKey string
	GeminiModel  string

	// Supabase
	SupabaseURL            string
	SupabasePublishableKey string
	SupabaseJWTSecret      string
	SupabaseStorageBucket  string

	// Database
	DatabaseURL string

	// Video defaults
	VideoDurationSeconds int
	AspectRatio          string
	Resolution           string
	MaxSegmentsPerStory  int

	// Polling policy
	OperationPollInterval time.Duration
	OperationTimeout      time.Duration

	// ffmpeg
	FFmpegPath  string
	FFprobePath string

	// Server
	Port        string
	Environment string
}

func Load() (*Config, error) {
	// Best-effort; production supplies real env vars.
	_ = godotenv.Load()

	cfg := &Config{
		VeoAPIKey:     getEnv("VEO_API_KEY", ""),
		VeoAPIBaseURL: getEnv("VEO_API_BASE_URL", "https://generativelanguage.googleapis.com/v1beta"),
		VeoModelFast:  getEnv("VEO_MODEL_FAST", "veo-3.0-fast-generate-001"),
		VeoModelImage: getEnv("VEO_MODEL_IMAGE", "veo-3.0-generate-preview"),

		GeminiAPIKey: getEnv("GEMINI_API_KEY", ""),
		GeminiModel:  getEnv("GEMINI_MODEL", "gemini-2.5-flash"),

		SupabaseURL:            getEnv("SUPABASE_URL", ""),
		SupabasePublishableKey: getEnv("SUPABASE_PUBLISHABLE_KEY", ""),
		SupabaseJWTSecret:      getEnv("SUPABASE_JWT_SECRET", ""),
		SupabaseStorageBucket:  getEnv("SUPABASE_STORAGE_BUCKET", "story-videos"),

		DatabaseURL: getEnv("DATABASE_URL", ""),

		VideoDurationSeconds: getEnvInt("VIDEO_DURATION_SECONDS", 8),
		AspectRatio:          getEnv("VIDEO_ASPECT_RATIO", "16:9"),
		Resolution:           getEnv("VIDEO_RESOLUTION", "720p"),
		MaxSegmentsPerStory:  getEnvInt("MAX_SEGMENTS_PER_STORY", 100),

		OperationPollInterval: time.Duration(getEnvInt("OPERATION_POLL_INTERVAL_SECONDS", 15)) * time.Second,
		OperationTimeout:      time.Duration(getEnvInt("OPERATION_TIMEOUT_SECONDS", 600)) * time.Second,

		FFmpegPath:  getEnv("FFMPEG_PATH", "ffmpeg"),
		FFprobePath: getEnv("FFPROBE_PATH", "ffprobe"),

		Port:        getEnv("PORT", "8080"),
		Environment: getEnv("ENVIRONMENT", "development"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	if c.VeoAPIKey == "" {
		return fmt.Errorf("VEO_API_KEY is required")
	}
	if c.GeminiAPIKey == "" {
		return fmt.Errorf("GEMINI_API_KEY is required")
	}
	if c.SupabaseURL == "" {
		return fmt.Errorf("SUPABASE_URL is required")
	}
	if c.SupabasePublishableKey == "" {
		return fmt.Errorf("SUPABASE_PUBLISHABLE_KEY is required")
	}
	if c.SupabaseJWTSecret == "" {
		return fmt.Errorf("SUPABASE_JWT_SECRET is required")
	}
	if c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	if c.OperationPollInterval <= 0 || c.OperationTimeout <= 0 {
		return fmt.Errorf("polling interval and timeout must be positive")
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}
