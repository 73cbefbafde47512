package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/sashabaranov/go-openai"

	"github.com/capitalize-ai/flightstats-assistant/internal/model"
)

const (
	textContentType   = "text"
	assistantsVersion = "v2"
)

// OpenAIConfig configures the Assistants API client.
type OpenAIConfig struct {
	APIKey  string
	BaseURL string
	Timeout time.Duration
}

// OpenAIAssistant drives OpenAI Assistants threads and runs.
type OpenAIAssistant struct {
	client *openai.Client
}

// NewOpenAIAssistant creates a new Assistants API client.
func NewOpenAIAssistant(cfg OpenAIConfig) (*OpenAIAssistant, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("OpenAI API key is required")
	}

	clientCfg := openai.DefaultConfig(cfg.APIKey)
	clientCfg.AssistantVersion = assistantsVersion
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	clientCfg.HTTPClient = &http.Client{Timeout: timeout}

	return &OpenAIAssistant{
		client: openai.NewClientWithConfig(clientCfg),
	}, nil
}

// Name returns the provider name.
func (c *OpenAIAssistant) Name() string {
	return "openai"
}

// CreateThread opens an empty thread.
func (c *OpenAIAssistant) CreateThread(ctx context.Context) (model.Thread, error) {
	thread, err := c.client.CreateThread(ctx, openai.ThreadRequest{})
	if err != nil {
		return model.Thread{}, fmt.Errorf("openai: create thread: %w", err)
	}
	return model.Thread{ID: thread.ID}, nil
}

// CreateMessage appends a message to threadID.
func (c *OpenAIAssistant) CreateMessage(ctx context.Context, threadID string, role model.Role, content string) (model.Message, error) {
	msg, err := c.client.CreateMessage(ctx, threadID, openai.MessageRequest{
		Role:    string(role),
		Content: content,
	})
	if err != nil {
		return model.Message{}, fmt.Errorf("openai: create message: %w", err)
	}
	return toMessage(msg), nil
}

// CreateRun starts assistantID on threadID.
func (c *OpenAIAssistant) CreateRun(ctx context.Context, threadID, assistantID string) (model.Run, error) {
	run, err := c.client.CreateRun(ctx, threadID, openai.RunRequest{
		AssistantID: assistantID,
	})
	if err != nil {
		return model.Run{}, fmt.Errorf("openai: create run: %w", err)
	}
	return toRun(run), nil
}

// RetrieveRun fetches the current run state.
func (c *OpenAIAssistant) RetrieveRun(ctx context.Context, threadID, runID string) (model.Run, error) {
	run, err := c.client.RetrieveRun(ctx, threadID, runID)
	if err != nil {
		return model.Run{}, fmt.Errorf("openai: retrieve run: %w", err)
	}
	return toRun(run), nil
}

// SubmitToolOutputs submits the full batch of outputs for a paused run.
func (c *OpenAIAssistant) SubmitToolOutputs(ctx context.Context, threadID, runID string, outputs []model.ToolOutput) (model.Run, error) {
	req := openai.SubmitToolOutputsRequest{
		ToolOutputs: make([]openai.ToolOutput, len(outputs)),
	}
	for i, out := range outputs {
		req.ToolOutputs[i] = openai.ToolOutput{
			ToolCallID: out.ToolCallID,
			Output:     out.Output,
		}
	}

	run, err := c.client.SubmitToolOutputs(ctx, threadID, runID, req)
	if err != nil {
		return model.Run{}, fmt.Errorf("openai: submit tool outputs: %w", err)
	}
	return toRun(run), nil
}

// ListMessages returns the newest limit messages of threadID.
func (c *OpenAIAssistant) ListMessages(ctx context.Context, threadID string, limit int) ([]model.Message, error) {
	order := "desc"
	list, err := c.client.ListMessage(ctx, threadID, &limit, &order, nil, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("openai: list messages: %w", err)
	}

	messages := make([]model.Message, len(list.Messages))
	for i, msg := range list.Messages {
		messages[i] = toMessage(msg)
	}
	return messages, nil
}

// Probe lists models to verify the API key and network path.
func (c *OpenAIAssistant) Probe(ctx context.Context) (int, error) {
	models, err := c.client.ListModels(ctx)
	if err != nil {
		return 0, fmt.Errorf("openai: list models: %w", err)
	}
	return len(models.Models), nil
}

func toMessage(msg openai.Message) model.Message {
	out := model.Message{
		ID:        msg.ID,
		ThreadID:  msg.ThreadID,
		Role:      model.Role(msg.Role),
		CreatedAt: time.Unix(int64(msg.CreatedAt), 0).UTC(),
	}
	for _, part := range msg.Content {
		if part.Type != textContentType || part.Text == nil {
			continue
		}
		out.Content = append(out.Content, part.Text.Value)
	}
	return out
}

func toRun(run openai.Run) model.Run {
	out := model.Run{
		ID:       run.ID,
		ThreadID: run.ThreadID,
		Status:   model.RunStatus(run.Status),
	}
	if run.LastError != nil {
		out.LastError = run.LastError.Message
	}
	if run.RequiredAction != nil {
		action := &model.RequiredAction{Type: string(run.RequiredAction.Type)}
		if run.RequiredAction.SubmitToolOutputs != nil {
			for _, call := range run.RequiredAction.SubmitToolOutputs.ToolCalls {
				action.ToolCalls = append(action.ToolCalls, model.ToolCall{
					ID:        call.ID,
					Name:      call.Function.Name,
					Arguments: call.Function.Arguments,
				})
			}
		}
		out.RequiredAction = action
	}
	return out
}
