package seoshub

import (
	"errors"
	"testing"
)

func TestStructuredError(t *testing.T) {
	err := NewError("StartApps", ErrCodeInvalidParameter, "invalid query")

	if err.Op != "StartApps" {
		t.Errorf("Expected Op=StartApps, got %s", err.Op)
	}
	if err.Code != ErrCodeInvalidParameter {
		t.Errorf("Expected Code=ErrCodeInvalidParameter, got %s", err.Code)
	}

	expected := "seoshub: invalid query (op=StartApps)"
	if err.Error() != expected {
		t.Errorf("Expected error message %q, got %q", expected, err.Error())
	}
}

func TestTaskError(t *testing.T) {
	err := NewTaskError("Subscribe", 7, ErrCodeTaskNotFound, "no such task")

	if err.Tid != 7 {
		t.Errorf("Expected Tid=7, got %d", err.Tid)
	}

	expected := "seoshub: no such task (op=Subscribe)"
	if err.Error() != expected {
		t.Errorf("Expected error message %q, got %q", expected, err.Error())
	}
}

func TestEventError(t *testing.T) {
	err := NewEventError("Enqueue", 42, ErrCodeQueueFull, "queue saturated")

	if err.EventType != 42 {
		t.Errorf("Expected EventType=42, got %d", err.EventType)
	}
	if err.Code != ErrCodeQueueFull {
		t.Errorf("Expected Code=ErrCodeQueueFull, got %s", err.Code)
	}
}

func TestWrapError(t *testing.T) {
	inner := errors.New("boom")
	err := WrapError("EraseApps", inner)

	if err.Code != ErrCodeInvalidParameter {
		t.Errorf("Expected Code=ErrCodeInvalidParameter, got %s", err.Code)
	}
	if !errors.Is(err, inner) {
		t.Error("Expected wrapped error to satisfy errors.Is for the inner error")
	}
}

func TestWrapErrorPreservesCode(t *testing.T) {
	inner := NewTaskError("LoadApp", 3, ErrCodeAppInitFailed, "init returned error")
	wrapped := WrapError("StartApps", inner)

	if wrapped.Code != ErrCodeAppInitFailed {
		t.Errorf("Expected Code=ErrCodeAppInitFailed, got %s", wrapped.Code)
	}
	if wrapped.Tid != 3 {
		t.Errorf("Expected Tid=3 to carry through wrapping, got %d", wrapped.Tid)
	}
}

func TestIsCode(t *testing.T) {
	err := NewError("Boot", ErrCodeBiasOutOfRange, "bias rejected")

	if !IsCode(err, ErrCodeBiasOutOfRange) {
		t.Error("IsCode should return true for matching code")
	}
	if IsCode(err, ErrCodeQueueFull) {
		t.Error("IsCode should return false for non-matching code")
	}
	if IsCode(nil, ErrCodeBiasOutOfRange) {
		t.Error("IsCode should return false for nil error")
	}
}

func TestErrorIsMatchesByCode(t *testing.T) {
	a := NewError("op1", ErrCodeRegistryFull, "msg1")
	b := NewError("op2", ErrCodeRegistryFull, "msg2")

	if !errors.Is(a, b) {
		t.Error("expected two *Error values with the same Code to match via errors.Is")
	}
}
