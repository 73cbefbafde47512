// Package llm provides the reasoning-engine port and its OpenAI Assistants implementation.
package llm

import (
	"context"

	"github.com/capitalize-ai/flightstats-assistant/internal/model"
)

// Assistant is the set of thread and run operations the orchestrator drives.
// Implementations must be safe for concurrent use by independent exchanges.
type Assistant interface {
	// CreateThread opens a new conversation context.
	CreateThread(ctx context.Context) (model.Thread, error)

	// CreateMessage appends a message to a thread.
	CreateMessage(ctx context.Context, threadID string, role model.Role, content string) (model.Message, error)

	// CreateRun starts a run of assistantID against the thread.
	CreateRun(ctx context.Context, threadID, assistantID string) (model.Run, error)

	// RetrieveRun returns the current state of a run.
	RetrieveRun(ctx context.Context, threadID, runID string) (model.Run, error)

	// SubmitToolOutputs answers every pending tool call of a run in one batch.
	SubmitToolOutputs(ctx context.Context, threadID, runID string, outputs []model.ToolOutput) (model.Run, error)

	// ListMessages returns up to limit messages, newest first.
	ListMessages(ctx context.Context, threadID string, limit int) ([]model.Message, error)

	// Name returns the provider name.
	Name() string
}

// Prober is implemented by providers that can verify upstream connectivity.
type Prober interface {
	// Probe lists available models and returns how many were reported.
	Probe(ctx context.Context) (int, error)
}
