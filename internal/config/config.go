package config

import (
	"os"
	"strconv"
	"time"
)

// DefaultUserAgent identifies page fetches and selects the robots.txt group.
const DefaultUserAgent = "SimpleTex/1.0"

// Config holds the configuration for the keyword service
type Config struct {
	Scorer  ScorerConfig
	Cache   CacheConfig
	Server  ServerConfig
	Fetch   FetchConfig
	Cloud   CloudConfig
	Logging LoggingConfig
}

// ScorerConfig holds keyword scoring configuration
type ScorerConfig struct {
	TopN           int
	MinTokenLength int
	IDF            string
	Norm           string
	SublinearTF    bool
	Stem           bool
	StopWordsFile  string
	// StopWordsMode is "extend" (add the file to the English list) or
	// "replace" (use the file alone).
	StopWordsMode string
}

type CacheConfig struct {
	Size int
}

type ServerConfig struct {
	Addr         string
	MaxTextBytes int64
}

// FetchConfig holds URL fetching and politeness configuration
type FetchConfig struct {
	Timeout             time.Duration
	MaxBodyBytes        int64
	UserAgent           string
	EnableRobotsCheck   bool
	RatePerSecond       float64
	Burst               int
	RobotsCacheDuration time.Duration
}

// CloudConfig holds word-cloud rendering configuration
type CloudConfig struct {
	Enabled bool
	Width   int
	Height  int
	MinFont float64
	MaxFont float64
}

type LoggingConfig struct {
	Level  string
	Format string
}

// Load loads configuration from environment variables with defaults
func Load() *Config {
	return &Config{
		Scorer: ScorerConfig{
			TopN:           GetIntEnv("SCORER_TOP_N", 10),
			MinTokenLength: GetIntEnv("SCORER_MIN_TOKEN_LENGTH", 2),
			IDF:            GetStringEnv("SCORER_IDF", "smooth"),
			Norm:           GetStringEnv("SCORER_NORM", "l2"),
			SublinearTF:    GetBoolEnv("SCORER_SUBLINEAR_TF", false),
			Stem:           GetBoolEnv("SCORER_STEM", false),
			StopWordsFile:  GetStringEnv("STOPWORDS_FILE", ""),
			StopWordsMode:  GetStringEnv("STOPWORDS_MODE", "extend"),
		},
		Cache: CacheConfig{
			Size: GetIntEnv("CACHE_SIZE", 512),
		},
		Server: ServerConfig{
			Addr:         GetStringEnv("SERVER_ADDR", ":8080"),
			MaxTextBytes: int64(GetIntEnv("API_MAX_TEXT_BYTES", 1<<20)),
		},
		Fetch: FetchConfig{
			Timeout:             GetDurationEnv("FETCH_TIMEOUT", 15*time.Second),
			MaxBodyBytes:        int64(GetIntEnv("FETCH_MAX_BODY_BYTES", 5<<20)),
			UserAgent:           GetStringEnv("FETCH_USER_AGENT", DefaultUserAgent),
			EnableRobotsCheck:   GetBoolEnv("FETCH_ROBOTS_CHECK", true),
			RatePerSecond:       GetFloatEnv("FETCH_RATE_PER_SECOND", 1),
			Burst:               GetIntEnv("FETCH_BURST", 1),
			RobotsCacheDuration: GetDurationEnv("ROBOTS_CACHE_DURATION", 24*time.Hour),
		},
		Cloud: CloudConfig{
			Enabled: GetBoolEnv("CLOUD_ENABLED", true),
			Width:   GetIntEnv("CLOUD_WIDTH", 800),
			Height:  GetIntEnv("CLOUD_HEIGHT", 400),
			MinFont: GetFloatEnv("CLOUD_MIN_FONT", 12),
			MaxFont: GetFloatEnv("CLOUD_MAX_FONT", 64),
		},
		Logging: LoggingConfig{
			Level:  GetStringEnv("LOG_LEVEL", "info"),
			Format: GetStringEnv("LOG_FORMAT", "text"),
		},
	}
}

func GetStringEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func GetIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func GetFloatEnv(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func GetBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func GetDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
