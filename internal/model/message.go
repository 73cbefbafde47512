package model

import (
	"strings"
	"time"
)

// Role represents the author of a thread message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is an append-only thread entry. Content holds the text segments in order;
// non-text segments are dropped when the message is read back.
type Message struct {
	ID        string    `json:"id"`
	ThreadID  string    `json:"thread_id"`
	Role      Role      `json:"role"`
	Content   []string  `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// Text joins the text segments with newlines.
func (m Message) Text() string {
	return strings.Join(m.Content, "\n")
}

// ChatRequest is the inbound body of POST /chat.
type ChatRequest struct {
	Message string `json:"message"`
}

// ChatResponse is returned when an exchange reaches DONE.
type ChatResponse struct {
	Answer   string `json:"answer"`
	ThreadID string `json:"threadId"`
	RunID    string `json:"runId,omitempty"`
}

// ErrorResponse is the structured caller-facing error body.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}
