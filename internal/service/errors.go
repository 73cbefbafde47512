package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/capitalize-ai/flightstats-assistant/internal/model"
)

type ErrorCode string

const (
	ErrorInvalidInput  ErrorCode = "INVALID_INPUT"
	ErrorUpstream      ErrorCode = "UPSTREAM_ERROR"
	ErrorRunTerminated ErrorCode = "RUN_TERMINATED"
	ErrorProtocol      ErrorCode = "PROTOCOL_VIOLATION"
	ErrorThreadBusy    ErrorCode = "THREAD_BUSY"
	ErrorTimeout       ErrorCode = "TIMEOUT"
	ErrorInternal      ErrorCode = "INTERNAL_ERROR"
)

// Error is the caller-facing failure of an exchange.
type Error struct {
	Code   ErrorCode
	Reason string
	Err    error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Err == nil {
		return fmt.Sprintf("service: %s (%s)", e.Code, e.Reason)
	}
	return fmt.Sprintf("service: %s (%s): %v", e.Code, e.Reason, e.Err)
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Message is a human-readable description without the code prefix.
func (e *Error) Message() string {
	if e.Err != nil {
		return e.Reason + ": " + e.Err.Error()
	}
	return e.Reason
}

func newError(code ErrorCode, reason string, err error) *Error {
	return &Error{Code: code, Reason: reason, Err: err}
}

// upstreamError classifies a failed reasoning-engine call. Context expiry is
// reported as a timeout rather than an upstream fault.
func upstreamError(reason string, err error) *Error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return newError(ErrorTimeout, reason, err)
	}
	return newError(ErrorUpstream, reason, err)
}

// RunTerminatedError reports a run that ended as failed, cancelled or expired.
type RunTerminatedError struct {
	Status    model.RunStatus
	LastError string
}

func (e *RunTerminatedError) Error() string {
	if e.LastError != "" {
		return fmt.Sprintf("Run terminated with status: %s (%s)", e.Status, e.LastError)
	}
	return fmt.Sprintf("Run terminated with status: %s", e.Status)
}

// CodeOf returns the ErrorCode carried by err, or ErrorInternal.
func CodeOf(err error) ErrorCode {
	var se *Error
	if errors.As(err, &se) {
		return se.Code
	}
	return ErrorInternal
}
