package model

import (
	"time"
)

// RunEventType names a lifecycle transition of an exchange.
type RunEventType string

const (
	RunEventThreadCreated        RunEventType = "thread_created"
	RunEventMessagePosted        RunEventType = "message_posted"
	RunEventRunStarted           RunEventType = "run_started"
	RunEventRunStatus            RunEventType = "run_status"
	RunEventToolOutputsSubmitted RunEventType = "tool_outputs_submitted"
	RunEventRunCompleted         RunEventType = "run_completed"
	RunEventRunFailed            RunEventType = "run_failed"
)

// RunEvent is emitted on every exchange transition. It carries identifiers and
// statuses only, never message content.
type RunEvent struct {
	ID        string       `json:"id"`
	ThreadID  string       `json:"thread_id"`
	RunID     string       `json:"run_id,omitempty"`
	Type      RunEventType `json:"type"`
	State     string       `json:"state"`
	Status    RunStatus    `json:"status,omitempty"`
	ToolCalls int          `json:"tool_calls,omitempty"`
	Reason    string       `json:"reason,omitempty"`
	CreatedAt time.Time    `json:"created_at"`
}
