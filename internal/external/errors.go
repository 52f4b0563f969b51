// Package external wraps calls to out-of-process collaborators (stakeholder
// registry, document store, sanctions list) with a normalized error taxonomy,
// per-attempt timeouts, bounded retries and a circuit breaker.
package external

import (
	"context"
	"errors"
	"fmt"

	"adjudicator/pkg/platform/sentinel"
)

// Category is the normalized failure taxonomy.
type Category string

const (
	// CategoryTimeout indicates the collaborator took too long to respond
	CategoryTimeout Category = "timeout"

	// CategoryBadData indicates the collaborator returned malformed data
	CategoryBadData Category = "bad_data"

	// CategoryOutage indicates the collaborator is unavailable
	CategoryOutage Category = "outage"

	// CategoryNotFound indicates the requested record doesn't exist
	CategoryNotFound Category = "not_found"

	// CategoryRateLimited indicates too many requests
	CategoryRateLimited Category = "rate_limited"

	// CategoryCircuitOpen indicates the breaker refused the call
	CategoryCircuitOpen Category = "circuit_open"

	// CategoryInternal indicates an unexpected internal error
	CategoryInternal Category = "internal"
)

// ErrCircuitOpen is returned without calling the collaborator while its breaker is open.
var ErrCircuitOpen = errors.New("circuit open")

// Error wraps collaborator failures with normalized categorization.
type Error struct {
	Category     Category
	Collaborator string
	Message      string
	Underlying   error
	Retryable    bool
}

func (e *Error) Error() string {
	if e.Underlying != nil {
		return fmt.Sprintf("%s [%s]: %s: %v", e.Collaborator, e.Category, e.Message, e.Underlying)
	}
	return fmt.Sprintf("%s [%s]: %s", e.Collaborator, e.Category, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Underlying
}

// NewError creates a normalized error. Timeouts, outages and rate limiting are retryable.
func NewError(category Category, collaborator, message string, underlying error) *Error {
	retryable := category == CategoryTimeout ||
		category == CategoryOutage ||
		category == CategoryRateLimited

	return &Error{
		Category:     category,
		Collaborator: collaborator,
		Message:      message,
		Underlying:   underlying,
		Retryable:    retryable,
	}
}

// IsRetryable checks if an error is worth retrying.
func IsRetryable(err error) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Retryable
	}
	return false
}

// CategoryOf extracts the category from an error.
func CategoryOf(err error) Category {
	var e *Error
	if errors.As(err, &e) {
		return e.Category
	}
	return CategoryInternal
}

// IsNotFound reports a definitive "no such record" answer.
func IsNotFound(err error) bool {
	return CategoryOf(err) == CategoryNotFound
}

// IsUnavailable reports that the collaborator could not give an answer at all.
// Callers park the work for retry rather than deciding on missing evidence.
func IsUnavailable(err error) bool {
	switch CategoryOf(err) {
	case CategoryTimeout, CategoryOutage, CategoryRateLimited, CategoryCircuitOpen:
		return true
	}
	return false
}

// Classify normalizes a raw client error. Errors already classified pass through.
func Classify(collaborator string, err error) error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return err
	}
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return NewError(CategoryTimeout, collaborator, "call timed out", err)
	case errors.Is(err, context.Canceled):
		return NewError(CategoryInternal, collaborator, "call cancelled", err)
	case errors.Is(err, sentinel.ErrNotFound):
		return NewError(CategoryNotFound, collaborator, "record not found", err)
	case errors.Is(err, ErrCircuitOpen):
		return NewError(CategoryCircuitOpen, collaborator, "circuit open", err)
	default:
		return NewError(CategoryOutage, collaborator, "call failed", err)
	}
}
