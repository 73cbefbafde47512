package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	for _, key := range []string{"PORT", "RUN_POLL_INTERVAL", "THREAD_CREATE_ATTEMPTS", "MESSAGE_LIST_LIMIT", "NATS_URL", "OPENAI_API_KEY", "ASSISTANT_ID"} {
		t.Setenv(key, "")
	}

	cfg := Load()
	require.Equal(t, "3000", cfg.ServerPort)
	require.Equal(t, 800*time.Millisecond, cfg.RunPollInterval)
	require.Equal(t, 3, cfg.ThreadCreateAttempts)
	require.Equal(t, 2*time.Second, cfg.ThreadCreateDelay)
	require.Equal(t, 10, cfg.MessageListLimit)
	require.False(t, cfg.NATSEnabled())
	require.ElementsMatch(t, []string{"OPENAI_API_KEY is not set", "ASSISTANT_ID is not set"}, cfg.Warnings())
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("PORT", "8080")
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("ASSISTANT_ID", "asst_1")
	t.Setenv("RUN_POLL_INTERVAL", "250ms")
	t.Setenv("TOOL_CONCURRENCY", "8")
	t.Setenv("TRACING_ENABLED", "true")
	t.Setenv("NATS_URL", "nats://localhost:4222")

	cfg := Load()
	require.Equal(t, "8080", cfg.ServerPort)
	require.Equal(t, 250*time.Millisecond, cfg.RunPollInterval)
	require.Equal(t, 8, cfg.ToolConcurrency)
	require.True(t, cfg.TracingEnabled)
	require.True(t, cfg.NATSEnabled())
	require.Empty(t, cfg.Warnings())
}

func TestLoad_InvalidValuesFallBack(t *testing.T) {
	t.Setenv("THREAD_CREATE_ATTEMPTS", "three")
	t.Setenv("CHAT_TIMEOUT", "soon")
	t.Setenv("TRACING_ENABLED", "maybe")

	cfg := Load()
	require.Equal(t, 3, cfg.ThreadCreateAttempts)
	require.Equal(t, 120*time.Second, cfg.ChatTimeout)
	require.False(t, cfg.TracingEnabled)
}
