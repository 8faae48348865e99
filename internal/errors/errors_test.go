package errors

import (
	stderrors "errors"
	"fmt"
	"testing"
)

func TestErrorFormatting(t *testing.T) {
	err := New(InvalidInput, "file tree is empty", nil)
	want := "[INVALID_INPUT] file tree is empty"
	if err.Error() != want {
		t.Errorf("Expected %q, got %q", want, err.Error())
	}

	cause := stderrors.New("boom")
	err = New(StorageError, "failed to save run", cause)
	if got := err.Error(); got != "[STORAGE_ERROR] failed to save run: boom" {
		t.Errorf("Unexpected formatted error: %q", got)
	}
	if !stderrors.Is(err, cause) {
		t.Error("Expected errors.Is to find the wrapped cause")
	}
}

func TestCodeOf(t *testing.T) {
	err := fmt.Errorf("wrapping: %w", New(Cancelled, "analysis cancelled", nil))
	if CodeOf(err) != Cancelled {
		t.Errorf("Expected Cancelled, got %s", CodeOf(err))
	}
	if !IsCancelled(err) {
		t.Error("Expected IsCancelled to be true")
	}

	if CodeOf(stderrors.New("plain")) != InternalError {
		t.Error("Plain errors should map to InternalError")
	}
}

func TestWithDetails(t *testing.T) {
	err := New(RunNotFound, "no such run", nil).WithDetails(map[string]string{"id": "abc"})
	details, ok := err.Details.(map[string]string)
	if !ok || details["id"] != "abc" {
		t.Errorf("Expected details to round-trip, got %v", err.Details)
	}
}
