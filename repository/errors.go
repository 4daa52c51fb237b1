package repository

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Sentinel errors for errors.Is matching. The concrete error types below all
// match their sentinel, so callers can branch without unpacking the struct.
var (
	ErrNotFound        = errors.New("record not found")
	ErrVersionConflict = errors.New("version conflict")
	ErrValidation      = errors.New("validation failed")
)

// NotFoundError reports that no live record matched a lookup.
type NotFoundError struct {
	Namespace string
	ID        string
}

func (e *NotFoundError) Error() string {
	if e.ID == "" {
		return fmt.Sprintf("%s: no record matched", e.Namespace)
	}
	return fmt.Sprintf("%s: record %q not found", e.Namespace, e.ID)
}

func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

// VersionConflictError reports that an optimistic-lock write lost its race:
// the stored version no longer matches the version the caller read. The
// caller owns the retry, by re-reading and reapplying its change.
type VersionConflictError struct {
	Namespace string
	ID        string
	Expected  int64
	Actual    int64
}

func (e *VersionConflictError) Error() string {
	return fmt.Sprintf("%s: record %q version conflict: expected %d, found %d",
		e.Namespace, e.ID, e.Expected, e.Actual)
}

func (e *VersionConflictError) Is(target error) bool { return target == ErrVersionConflict }

// ValidationError reports input rejected before any write happened. Fields
// optionally carries per-field messages.
type ValidationError struct {
	Message string
	Fields  map[string]string
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return e.Message
	}

	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s: %s", k, e.Fields[k]))
	}
	if e.Message == "" {
		return strings.Join(parts, "; ")
	}
	return fmt.Sprintf("%s (%s)", e.Message, strings.Join(parts, "; "))
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// NewValidationError builds a ValidationError from a format string.
func NewValidationError(format string, args ...any) *ValidationError {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

// StoreError wraps a driver-level failure so raw store errors never cross
// the repository boundary. The cause stays reachable through Unwrap.
type StoreError struct {
	Namespace string
	Op        string
	Err       error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.Namespace, e.Op, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }
