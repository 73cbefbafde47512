// Package config provides environment configuration for the assistant gateway.
package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds all configuration for the application.
type Config struct {
	// Server settings
	ServerPort         string
	ServerReadTimeout  time.Duration
	ServerWriteTimeout time.Duration

	// Reasoning engine
	OpenAIAPIKey  string
	OpenAIBaseURL string
	OpenAITimeout time.Duration
	AssistantID   string

	// Exchange
	RunPollInterval      time.Duration
	ThreadCreateAttempts int
	ThreadCreateDelay    time.Duration
	MessageListLimit     int
	ToolConcurrency      int
	ChatTimeout          time.Duration

	// Data store
	BigQueryDSN  string
	QueryTable   string
	QueryTimeout time.Duration

	// NATS settings; an empty URL disables run event publishing
	NATSURL      string
	NATSCAFile   string
	NATSCertFile string
	NATSKeyFile  string
	NATSToken    string

	// Rate limiting
	RateLimitRequests int
	RateLimitWindow   time.Duration

	// Logging
	LogLevel string

	// Tracing
	TracingEndpoint string
	TracingEnabled  bool
}

// Load reads configuration from environment variables.
func Load() *Config {
	return &Config{
		// Server
		ServerPort:         getEnv("PORT", "3000"),
		ServerReadTimeout:  getDurationEnv("SERVER_READ_TIMEOUT", 30*time.Second),
		ServerWriteTimeout: getDurationEnv("SERVER_WRITE_TIMEOUT", 150*time.Second),

		// Reasoning engine
		OpenAIAPIKey:  getEnv("OPENAI_API_KEY", ""),
		OpenAIBaseURL: getEnv("OPENAI_BASE_URL", ""),
		OpenAITimeout: getDurationEnv("OPENAI_TIMEOUT", 60*time.Second),
		AssistantID:   getEnv("ASSISTANT_ID", ""),

		// Exchange
		RunPollInterval:      getDurationEnv("RUN_POLL_INTERVAL", 800*time.Millisecond),
		ThreadCreateAttempts: getIntEnv("THREAD_CREATE_ATTEMPTS", 3),
		ThreadCreateDelay:    getDurationEnv("THREAD_CREATE_DELAY", 2*time.Second),
		MessageListLimit:     getIntEnv("MESSAGE_LIST_LIMIT", 10),
		ToolConcurrency:      getIntEnv("TOOL_CONCURRENCY", 4),
		ChatTimeout:          getDurationEnv("CHAT_TIMEOUT", 120*time.Second),

		// Data store
		BigQueryDSN:  getEnv("BIGQUERY_DSN", "bigquery://aotbigquery/FlightData"),
		QueryTable:   getEnv("QUERY_TABLE", ""),
		QueryTimeout: getDurationEnv("QUERY_TIMEOUT", 60*time.Second),

		// NATS
		NATSURL:      getEnv("NATS_URL", ""),
		NATSCAFile:   getEnv("NATS_CA_FILE", ""),
		NATSCertFile: getEnv("NATS_CERT_FILE", ""),
		NATSKeyFile:  getEnv("NATS_KEY_FILE", ""),
		NATSToken:    getEnv("NATS_TOKEN", ""),

		// Rate limiting
		RateLimitRequests: getIntEnv("RATE_LIMIT_REQUESTS", 30),
		RateLimitWindow:   getDurationEnv("RATE_LIMIT_WINDOW", time.Minute),

		// Logging
		LogLevel: getEnv("LOG_LEVEL", "info"),

		// Tracing
		TracingEndpoint: getEnv("TRACING_ENDPOINT", "localhost:4318"),
		TracingEnabled:  getBoolEnv("TRACING_ENABLED", false),
	}
}

// Warnings lists settings that are missing but not fatal at startup.
func (c *Config) Warnings() []string {
	var warnings []string
	if c.OpenAIAPIKey == "" {
		warnings = append(warnings, "OPENAI_API_KEY is not set")
	}
	if c.AssistantID == "" {
		warnings = append(warnings, "ASSISTANT_ID is not set")
	}
	return warnings
}

// NATSEnabled reports whether run events should be published.
func (c *Config) NATSEnabled() bool {
	return c.NATSURL != ""
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
