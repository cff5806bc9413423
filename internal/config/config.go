package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	Addr        string
	LogLevel    string
	DatabaseURL string
	RedisURL    string

	GeminiAPIKey  string
	GeminiBaseURL string
	GeminiModel   string

	RelayBaseURL string
	RelayAPIKey  string
	RelayModel   string

	BedrockEnabled bool
	BedrockModel   string
	AWSRegion      string

	ProviderTimeout time.Duration
	ConversationTTL time.Duration

	OTLPEndpoint       string
	QuotaAlertTopicARN string
	UsageQueueURL      string

	ShutdownTimeout time.Duration
}

func Load() (*Config, error) {
	cfg := &Config{
		Addr:               getEnv("ADDR", ":8080"),
		LogLevel:           getEnv("LOG_LEVEL", "info"),
		DatabaseURL:        getEnv("DATABASE_URL", ""),
		RedisURL:           getEnv("REDIS_URL", ""),
		GeminiAPIKey:       getEnv("GEMINI_API_KEY", ""),
		GeminiBaseURL:      getEnv("GEMINI_BASE_URL", "https://generativelanguage.googleapis.com"),
		GeminiModel:        getEnv("GEMINI_MODEL", "gemini-2.5-flash"),
		RelayBaseURL:       getEnv("RELAY_BASE_URL", "http://localhost:8080"),
		RelayAPIKey:        getEnv("RELAY_API_KEY", ""),
		RelayModel:         getEnv("RELAY_MODEL", "gemini-2.5-flash"),
		BedrockEnabled:     getEnv("BEDROCK_ENABLED", "false") == "true",
		BedrockModel:       getEnv("BEDROCK_MODEL", "anthropic.claude-3-haiku-20240307-v1:0"),
		AWSRegion:          getEnv("AWS_REGION", ""),
		ProviderTimeout:    getDurationEnv("PROVIDER_TIMEOUT", 30*time.Second),
		ConversationTTL:    getDurationEnv("CONVERSATION_TTL", 24*time.Hour),
		OTLPEndpoint:       getEnv("OTLP_ENDPOINT", ""),
		QuotaAlertTopicARN: getEnv("QUOTA_ALERT_TOPIC_ARN", ""),
		UsageQueueURL:      getEnv("USAGE_QUEUE_URL", ""),
		ShutdownTimeout:    getDurationEnv("SHUTDOWN_TIMEOUT", 30*time.Second),
	}

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if seconds, err := strconv.Atoi(value); err == nil {
			return time.Duration(seconds) * time.Second
		}
	}
	return defaultValue
}
