package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds application configuration.
type Config struct {
	Port          string
	Env           string
	LogLevel      string
	DatabaseURL   string
	RedisAddr     string
	RedisPassword string
	RedisTLS      bool

	// WhatsApp Cloud API webhook + send settings.
	WebhookVerifyToken string
	MetaAppSecret      string
	GraphAPIBaseURL    string
	GraphAPIVersion    string
	SendTimeout        time.Duration

	// Reply generation.
	OpenAIAPIKey  string
	OpenAIBaseURL string
	DefaultModel  string
	LLMTimeout    time.Duration
	HistoryLimit  int
	AgentCacheTTL time.Duration

	// Admin API.
	AdminJWTSecret     string
	CORSAllowedOrigins []string
}

// Load reads configuration from environment variables.
func Load() *Config {
	return &Config{
		Port:          getEnv("PORT", "8080"),
		Env:           getEnv("ENV", "development"),
		LogLevel:      getEnv("LOG_LEVEL", "info"),
		DatabaseURL:   getEnv("DATABASE_URL", ""),
		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisTLS:      getEnvAsBool("REDIS_TLS", false),

		WebhookVerifyToken: getEnv("WEBHOOK_VERIFY_TOKEN", ""),
		MetaAppSecret:      getEnv("META_APP_SECRET", ""),
		GraphAPIBaseURL:    getEnv("GRAPH_API_BASE_URL", "https://graph.facebook.com"),
		GraphAPIVersion:    getEnv("GRAPH_API_VERSION", "v21.0"),
		SendTimeout:        getEnvAsDuration("WHATSAPP_SEND_TIMEOUT", 15*time.Second),

		OpenAIAPIKey:  getEnv("OPENAI_API_KEY", ""),
		OpenAIBaseURL: getEnv("OPENAI_BASE_URL", ""),
		DefaultModel:  getEnv("DEFAULT_MODEL", "gpt-4o-mini"),
		LLMTimeout:    getEnvAsDuration("LLM_TIMEOUT", 30*time.Second),
		HistoryLimit:  getEnvAsInt("HISTORY_LIMIT", 10),
		AgentCacheTTL: getEnvAsDuration("AGENT_CACHE_TTL", 5*time.Minute),

		AdminJWTSecret:     getEnv("ADMIN_JWT_SECRET", ""),
		CORSAllowedOrigins: splitCSV(getEnv("CORS_ALLOWED_ORIGINS", "*")),
	}
}

// getEnv retrieves an environment variable or returns a default value.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func splitCSV(value string) []string {
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
