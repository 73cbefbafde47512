package middleware

import (
	"errors"
	"strings"
	"unicode/utf8"
)

// MaxMessageLength bounds the user message accepted by POST /chat.
const MaxMessageLength = 32 * 1024

// ValidateMessageContent validates message content.
func ValidateMessageContent(content string) error {
	if strings.TrimSpace(content) == "" {
		return errors.New("message is required")
	}
	if len(content) > MaxMessageLength {
		return errors.New("message exceeds maximum length")
	}
	if !utf8.ValidString(content) {
		return errors.New("message must be valid UTF-8")
	}
	return nil
}

// ValidateThreadID validates a reasoning-engine thread identifier.
func ValidateThreadID(id string) error {
	if id == "" {
		return errors.New("thread ID cannot be empty")
	}
	if len(id) > 128 {
		return errors.New("thread ID exceeds maximum length")
	}
	if strings.ContainsAny(id, ".*> \t\r\n") {
		return errors.New("invalid thread ID format")
	}
	return nil
}
