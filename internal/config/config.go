package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
type Config struct {
	// Server configuration
	Port            string        `json:"port"`
	Env             string        `json:"env"`
	ShutdownTimeout time.Duration `json:"shutdown_timeout"`
	HTTPTimeout     time.Duration `json:"http_timeout"`

	// Article store
	DatabaseURL string `json:"database_url"`
	SeedPath    string `json:"seed_path"`

	// Redis-backed asset lookup cache
	RedisURL      string        `json:"redis_url"`
	AssetCacheTTL time.Duration `json:"asset_cache_ttl"`

	// Feed fetching
	FeedTimeout   time.Duration `json:"feed_timeout"`
	PageTimeout   time.Duration `json:"page_timeout"`
	MaxRedirects  int           `json:"max_redirects"`
	UserAgent     string        `json:"user_agent"`
	DedupPrefix   int           `json:"dedup_prefix"`
	MinImageArea  int           `json:"min_image_area"`

	// Composer (LLM) configuration
	AIApiKey    string        `json:"ai_api_key"`
	AIModel     string        `json:"ai_model"`
	AITimeout   time.Duration `json:"ai_timeout"`

	// Logging
	LogLevel string `json:"log_level"`
	LogFile  string `json:"log_file"`
}

// Load loads configuration from environment variables
func Load() *Config {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("Warning: Error loading .env file: %v", err)
	}

	cfg := &Config{
		// Server configuration
		Port:            getEnv("PORT", "8080"),
		Env:             getEnv("APP_ENV", "development"),
		ShutdownTimeout: getEnvAsDuration("SHUTDOWN_TIMEOUT", 10*time.Second),
		HTTPTimeout:     getEnvAsDuration("HTTP_TIMEOUT", 30*time.Second),

		// Article store
		DatabaseURL: getEnv("DATABASE_URL", ""),
		SeedPath:    getEnv("SEED_PATH", "feeds.yml"),

		// Redis configuration
		RedisURL:      getEnv("REDIS_URL", ""),
		AssetCacheTTL: getEnvAsDuration("ASSET_CACHE_TTL", 6*time.Hour),

		// Feed fetching
		FeedTimeout:  getEnvAsDuration("FEED_TIMEOUT", 30*time.Second),
		PageTimeout:  getEnvAsDuration("PAGE_TIMEOUT", 10*time.Second),
		MaxRedirects: getEnvAsInt("MAX_REDIRECTS", 10),
		UserAgent:    getEnv("USER_AGENT", "ai-newz-pipeline/1.0"),
		DedupPrefix:  getEnvAsInt("DEDUP_TITLE_PREFIX", 50),
		MinImageArea: getEnvAsInt("MIN_IMAGE_AREA", 50000),

		// Composer configuration
		AIApiKey:  getEnv("AI_API_KEY", ""),
		AIModel:   getEnv("AI_MODEL", "gemini-pro"),
		AITimeout: getEnvAsDuration("AI_TIMEOUT", 60*time.Second),

		// Logging
		LogLevel: getEnv("LOG_LEVEL", "info"),
		LogFile:  getEnv("LOG_FILE", ""),
	}

	return cfg
}

// Helper functions for environment variable handling
func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvAsInt(name string, defaultVal int) int {
	valueStr := getEnv(name, "")
	if valueStr == "" {
		return defaultVal
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		log.Printf("Invalid %s value: %v, using default: %d", name, err, defaultVal)
		return defaultVal
	}
	return value
}

func getEnvAsDuration(name string, defaultVal time.Duration) time.Duration {
	valueStr := getEnv(name, "")
	if valueStr == "" {
		return defaultVal
	}
	value, err := time.ParseDuration(valueStr)
	if err != nil {
		log.Printf("Invalid %s value: %v, using default: %v", name, err, defaultVal)
		return defaultVal
	}
	return value
}
