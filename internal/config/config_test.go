package config

import (
	"os"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	// Clear all env vars
	envVars := []string{
		"ADDR", "LOG_LEVEL", "REDIS_URL", "DATABASE_URL",
		"GEMINI_API_KEY", "GEMINI_BASE_URL", "GEMINI_MODEL",
		"RELAY_BASE_URL", "RELAY_API_KEY", "RELAY_MODEL",
		"BEDROCK_ENABLED", "BEDROCK_MODEL", "AWS_REGION",
		"PROVIDER_TIMEOUT", "CONVERSATION_TTL", "OTLP_ENDPOINT",
		"QUOTA_ALERT_TOPIC_ARN", "USAGE_QUEUE_URL", "SHUTDOWN_TIMEOUT",
	}
	for _, v := range envVars {
		os.Unsetenv(v)
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	tests := []struct {
		name     string
		got      string
		expected string
	}{
		{"Addr", cfg.Addr, ":8080"},
		{"LogLevel", cfg.LogLevel, "info"},
		{"RedisURL", cfg.RedisURL, ""},
		{"DatabaseURL", cfg.DatabaseURL, ""},
		{"GeminiAPIKey", cfg.GeminiAPIKey, ""},
		{"GeminiBaseURL", cfg.GeminiBaseURL, "https://generativelanguage.googleapis.com"},
		{"GeminiModel", cfg.GeminiModel, "gemini-2.5-flash"},
		{"RelayBaseURL", cfg.RelayBaseURL, "http://localhost:8080"},
		{"BedrockModel", cfg.BedrockModel, "anthropic.claude-3-haiku-20240307-v1:0"},
		{"AWSRegion", cfg.AWSRegion, ""},
		{"OTLPEndpoint", cfg.OTLPEndpoint, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.expected {
				t.Errorf("%s = %q, want %q", tt.name, tt.got, tt.expected)
			}
		})
	}

	if cfg.BedrockEnabled {
		t.Error("BedrockEnabled should default to false")
	}
	if cfg.ProviderTimeout != 30*time.Second {
		t.Errorf("ProviderTimeout = %v, want 30s", cfg.ProviderTimeout)
	}
	if cfg.ConversationTTL != 24*time.Hour {
		t.Errorf("ConversationTTL = %v, want 24h", cfg.ConversationTTL)
	}
}

func TestLoad_FromEnv(t *testing.T) {
	os.Setenv("ADDR", ":9090")
	os.Setenv("LOG_LEVEL", "debug")
	os.Setenv("GEMINI_API_KEY", "test-key")
	os.Setenv("BEDROCK_ENABLED", "true")
	os.Setenv("PROVIDER_TIMEOUT", "10")
	os.Setenv("CONVERSATION_TTL", "3600")
	defer func() {
		os.Unsetenv("ADDR")
		os.Unsetenv("LOG_LEVEL")
		os.Unsetenv("GEMINI_API_KEY")
		os.Unsetenv("BEDROCK_ENABLED")
		os.Unsetenv("PROVIDER_TIMEOUT")
		os.Unsetenv("CONVERSATION_TTL")
	}()

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Addr != ":9090" {
		t.Errorf("Addr = %q, want :9090", cfg.Addr)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("LogLevel = %q, want debug", cfg.LogLevel)
	}
	if cfg.GeminiAPIKey != "test-key" {
		t.Errorf("GeminiAPIKey = %q, want test-key", cfg.GeminiAPIKey)
	}
	if !cfg.BedrockEnabled {
		t.Error("BedrockEnabled should be true")
	}
	if cfg.ProviderTimeout != 10*time.Second {
		t.Errorf("ProviderTimeout = %v, want 10s", cfg.ProviderTimeout)
	}
	if cfg.ConversationTTL != time.Hour {
		t.Errorf("ConversationTTL = %v, want 1h", cfg.ConversationTTL)
	}
}

func TestLoad_InvalidDurationFallsBack(t *testing.T) {
	os.Setenv("PROVIDER_TIMEOUT", "not-a-number")
	defer os.Unsetenv("PROVIDER_TIMEOUT")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.ProviderTimeout != 30*time.Second {
		t.Errorf("ProviderTimeout = %v, want default 30s", cfg.ProviderTimeout)
	}
}
