package seoshub

import (
	"errors"
	"fmt"
)

// Error is a structured seoshub error carrying enough context to log or
// match against without string parsing.
type Error struct {
	Op        string    // operation that failed (e.g. "StartApps", "Enqueue")
	Tid       uint32    // task id (0 if not applicable)
	EventType uint32    // event type involved, if any
	Code      ErrorCode // high-level error category
	Msg       string    // human-readable message
	Inner     error     // wrapped error
}

func (e *Error) Error() string {
	var parts []string

	if e.Op != "" {
		parts = append(parts, fmt.Sprintf("op=%s", e.Op))
	}
	if e.Tid != 0 {
		parts = append(parts, fmt.Sprintf("tid=%d", e.Tid))
	}
	if e.EventType != 0 {
		parts = append(parts, fmt.Sprintf("evt=%d", e.EventType))
	}

	msg := e.Msg
	if msg == "" {
		msg = string(e.Code)
	}

	if len(parts) > 0 {
		return fmt.Sprintf("seoshub: %s (%s)", msg, parts[0])
	}
	return fmt.Sprintf("seoshub: %s", msg)
}

// Unwrap returns the wrapped error for errors.Is/As support.
func (e *Error) Unwrap() error { return e.Inner }

// Is supports matching against another *Error by Code alone.
func (e *Error) Is(target error) bool {
	if target == nil {
		return false
	}
	te, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Code == te.Code
}

// ErrorCode is a high-level error category, per the error kinds this
// core distinguishes (spec §7): capacity exhaustion, malformed flash
// data, app lifecycle failure, and rejected calibration.
type ErrorCode string

const (
	ErrCodeQueueFull        ErrorCode = "event queue full"
	ErrCodeRegistryFull     ErrorCode = "task registry full"
	ErrCodeTaskNotFound     ErrorCode = "task not found"
	ErrCodeAppLoadFailed    ErrorCode = "app load failed"
	ErrCodeAppInitFailed    ErrorCode = "app init failed"
	ErrCodeMalformedEntry   ErrorCode = "malformed flash entry"
	ErrCodeBiasOutOfRange   ErrorCode = "calibration bias out of range"
	ErrCodeInvalidParameter ErrorCode = "invalid parameter"
)

// NewError creates a new structured error.
func NewError(op string, code ErrorCode, msg string) *Error {
	return &Error{Op: op, Code: code, Msg: msg}
}

// NewTaskError creates a new task-specific error.
func NewTaskError(op string, tid uint32, code ErrorCode, msg string) *Error {
	return &Error{Op: op, Tid: tid, Code: code, Msg: msg}
}

// NewEventError creates a new event-specific error.
func NewEventError(op string, evtType uint32, code ErrorCode, msg string) *Error {
	return &Error{Op: op, EventType: evtType, Code: code, Msg: msg}
}

// WrapError wraps an existing error with seoshub operation context.
func WrapError(op string, inner error) *Error {
	if inner == nil {
		return nil
	}

	if se, ok := inner.(*Error); ok {
		return &Error{
			Op:        op,
			Tid:       se.Tid,
			EventType: se.EventType,
			Code:      se.Code,
			Msg:       se.Msg,
			Inner:     se.Inner,
		}
	}

	return &Error{Op: op, Code: ErrCodeInvalidParameter, Msg: inner.Error(), Inner: inner}
}

// IsCode reports whether err is a *Error with the given code.
func IsCode(err error, code ErrorCode) bool {
	var se *Error
	if errors.As(err, &se) {
		return se.Code == code
	}
	return false
}
