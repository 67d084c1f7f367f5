// Package config reads server settings from the environment. A .env file in
// the working directory is loaded first when present.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port        string
	CORSOrigins []string
	LogLevel    string
	LogFormat   string

	// Intent extraction
	LLMAPIKey    string
	LLMBaseURL   string
	LLMModel     string
	PromptSpec   string
	LLMRateLimit float64
	LLMRateBurst int

	// Live search backend
	SearchURL       string
	SearchToken     string
	SearchTimeout   time.Duration
	SearchMaxRounds int
	SearchRateLimit float64
	SearchRateBurst int
	SortBy          string // price, duration, departure, stops or best_value
	SortOrder       string // asc or desc

	// Mock ingestion
	MockURL     string
	MockTimeout time.Duration

	// Sessions
	SessionStore  string // "memory" or "redis"
	HistoryLimit  int
	RedisHost     string
	RedisPort     string
	RedisPassword string
	RedisDB       int
	SessionTTL    time.Duration
}

func Load() Config {
	_ = godotenv.Load()

	return Config{
		Port:        getEnv("PORT", "8080"),
		CORSOrigins: getEnvList("CORS_ORIGINS", []string{"http://localhost:5173", "http://localhost:3000"}),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		LogFormat:   getEnv("LOG_FORMAT", "json"),

		LLMAPIKey:    os.Getenv("LLM_API_KEY"),
		LLMBaseURL:   getEnv("LLM_BASE_URL", "https://api.deepseek.com/v1"),
		LLMModel:     getEnv("LLM_MODEL", "deepseek-chat"),
		PromptSpec:   os.Getenv("LLM_PROMPT_SPEC"),
		LLMRateLimit: getEnvFloat("LLM_RATE_LIMIT", 5),
		LLMRateBurst: getEnvInt("LLM_RATE_BURST", 10),

		SearchURL:       getEnv("SEARCH_API_URL", "http://localhost:8080/search/simplifySearch"),
		SearchToken:     os.Getenv("SEARCH_API_TOKEN"),
		SearchTimeout:   getEnvDuration("SEARCH_TIMEOUT", 90*time.Second),
		SearchMaxRounds: getEnvInt("SEARCH_MAX_ROUNDS", 20),
		SearchRateLimit: getEnvFloat("SEARCH_RATE_LIMIT", 20),
		SearchRateBurst: getEnvInt("SEARCH_RATE_BURST", 30),
		SortBy:          getEnv("SEARCH_SORT_BY", "best_value"),
		SortOrder:       getEnv("SEARCH_SORT_ORDER", "asc"),

		MockURL:     os.Getenv("MOCK_API_URL"),
		MockTimeout: getEnvDuration("MOCK_TIMEOUT", 30*time.Second),

		SessionStore:  getEnv("SESSION_STORE", "memory"),
		HistoryLimit:  getEnvInt("SESSION_HISTORY_LIMIT", 40),
		RedisHost:     getEnv("REDIS_HOST", "localhost"),
		RedisPort:     getEnv("REDIS_PORT", "6379"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		RedisDB:       getEnvInt("REDIS_DB", 0),
		SessionTTL:    getEnvDuration("SESSION_TTL", 24*time.Hour),
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
		return defaultValue
	}
	return n
}

func getEnvFloat(key string, defaultValue float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return defaultValue
	}
	return f
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	duration, err := time.ParseDuration(value)
	if err != nil {
		return defaultValue
	}
	return duration
}

func getEnvList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	out := make([]string, 0)
	for _, p := range strings.Split(value, ",") {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}
