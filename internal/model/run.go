// Package model defines data structures shared by the assistant gateway.
package model

// Thread is a conversation context owned by the reasoning engine.
type Thread struct {
	ID string `json:"id"`
}

// RunStatus is the reasoning engine's view of a run.
type RunStatus string

const (
	RunStatusQueued         RunStatus = "queued"
	RunStatusInProgress     RunStatus = "in_progress"
	RunStatusRequiresAction RunStatus = "requires_action"
	RunStatusCancelling     RunStatus = "cancelling"
	RunStatusCancelled      RunStatus = "cancelled"
	RunStatusFailed         RunStatus = "failed"
	RunStatusCompleted      RunStatus = "completed"
	RunStatusExpired        RunStatus = "expired"
)

// Failed reports whether the status ends the run without an answer.
func (s RunStatus) Failed() bool {
	switch s {
	case RunStatusFailed, RunStatusCancelled, RunStatusExpired:
		return true
	default:
		return false
	}
}

// Run is one execution of the reasoning engine against a thread.
type Run struct {
	ID             string          `json:"id"`
	ThreadID       string          `json:"thread_id"`
	Status         RunStatus       `json:"status"`
	RequiredAction *RequiredAction `json:"required_action,omitempty"`
	LastError      string          `json:"last_error,omitempty"`
}

// RequiredAction is present when the run is paused waiting for tool outputs.
type RequiredAction struct {
	Type      string     `json:"type"`
	ToolCalls []ToolCall `json:"tool_calls"`
}

// PendingToolCalls returns the calls awaiting outputs, or false when the action
// payload is missing or empty.
func (r Run) PendingToolCalls() ([]ToolCall, bool) {
	if r.RequiredAction == nil || len(r.RequiredAction.ToolCalls) == 0 {
		return nil, false
	}
	for _, call := range r.RequiredAction.ToolCalls {
		if call.ID == "" || call.Name == "" {
			return nil, false
		}
	}
	return r.RequiredAction.ToolCalls, true
}

// ToolCall is a structured request emitted by the reasoning engine mid-run.
type ToolCall struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

// ToolOutput answers exactly one ToolCall.
type ToolOutput struct {
	ToolCallID string `json:"tool_call_id"`
	Output     string `json:"output"`
}
