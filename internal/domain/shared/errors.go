// Package shared contains common domain types and errors that are used
// across all domain packages. This package has zero external dependencies.
package shared

import (
	"errors"
	"fmt"
)

// Base domain errors that can be used for error checking with errors.Is().
var (
	// Entity errors
	ErrNotFound      = errors.New("entity not found")
	ErrAlreadyExists = errors.New("entity already exists")

	// Validation errors
	ErrInvalidInput = errors.New("invalid input")
	ErrInvalidID    = errors.New("invalid ID")

	// Concurrency errors
	ErrConflictingUpdate = errors.New("conflicting update")

	// Configuration errors
	ErrEmptyCandidateSet = errors.New("empty candidate set")
)

// DomainError represents a domain-specific error with context.
type DomainError struct {
	Domain  string // e.g., "user", "catalog", "selection"
	Op      string // Operation that failed, e.g., "Find", "Update"
	Kind    error  // Base error type for errors.Is() checking
	Message string // Human-readable message
	Err     error  // Underlying error (optional)
}

// Error implements the error interface.
func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s.%s: %s: %v", e.Domain, e.Op, e.Message, e.Err)
	}
	return fmt.Sprintf("%s.%s: %s", e.Domain, e.Op, e.Message)
}

// Unwrap returns the underlying error for errors.Unwrap().
func (e *DomainError) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	return e.Kind
}

// Is implements errors.Is() matching.
func (e *DomainError) Is(target error) bool {
	if e.Kind != nil && errors.Is(e.Kind, target) {
		return true
	}
	if e.Err != nil && errors.Is(e.Err, target) {
		return true
	}
	return false
}

// NewDomainError creates a new domain error.
func NewDomainError(domain, op string, kind error, message string) *DomainError {
	return &DomainError{
		Domain:  domain,
		Op:      op,
		Kind:    kind,
		Message: message,
	}
}

// WrapError wraps an existing error with domain context.
func WrapError(domain, op string, kind error, message string, err error) *DomainError {
	return &DomainError{
		Domain:  domain,
		Op:      op,
		Kind:    kind,
		Message: message,
		Err:     err,
	}
}

// User domain errors
var (
	ErrUserNotFound      = NewDomainError("user", "Find", ErrNotFound, "user not found")
	ErrUserAlreadyExists = NewDomainError("user", "Insert", ErrAlreadyExists, "user already exists")
	ErrUserConflict      = NewDomainError("user", "Update", ErrConflictingUpdate, "user was modified concurrently")
)

// Catalog domain errors
var (
	ErrTopicNotFound     = NewDomainError("catalog", "FindTopic", ErrNotFound, "topic not found")
	ErrLevelNotFound     = NewDomainError("catalog", "FindLevel", ErrNotFound, "level not found")
	ErrGeneratorNotFound = NewDomainError("catalog", "FindGenerator", ErrNotFound, "task generator not found")
)

// Progress domain errors
var (
	ErrTopicProgressNotFound = NewDomainError("progress", "Lookup", ErrNotFound, "no progress for topic")
	ErrLevelProgressNotFound = NewDomainError("progress", "Lookup", ErrNotFound, "no progress for level")
	ErrStreakNotFound        = NewDomainError("progress", "Lookup", ErrNotFound, "no streak for generator")
	ErrNoCurrentTask         = NewDomainError("progress", "Lookup", ErrNotFound, "user has no current task")
)

// Selection domain errors
var (
	ErrNoGenerators = NewDomainError("selection", "Select", ErrEmptyCandidateSet, "level has no task generators")
)

// IsNotFound checks if the error is a "not found" error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsAlreadyExists checks if the error is an "already exists" error.
func IsAlreadyExists(err error) bool {
	return errors.Is(err, ErrAlreadyExists)
}

// IsConflict checks if the error is an optimistic concurrency failure.
func IsConflict(err error) bool {
	return errors.Is(err, ErrConflictingUpdate)
}

// IsEmptyCandidateSet checks if the error reports a selection over no candidates.
func IsEmptyCandidateSet(err error) bool {
	return errors.Is(err, ErrEmptyCandidateSet)
}
