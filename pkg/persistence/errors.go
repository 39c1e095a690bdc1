// Package persistence provides standardized error types for persistence operations.
package persistence

import (
	"errors"
	"fmt"
)

// Standard persistence error types that all implementations should use.
var (
	// ErrNotFound indicates no document is stored at the given key.
	ErrNotFound = errors.New("document not found")

	// ErrConflict indicates a write lost against the stored revision, or
	// tried to create a document that already exists.
	ErrConflict = errors.New("document update conflict")

	// ErrInvalidDocument indicates a document that cannot be stored or decoded.
	ErrInvalidDocument = errors.New("invalid document")
)

// DocumentError wraps document-related errors with additional context.
type DocumentError struct {
	Op  string // Operation being performed (e.g., "Get", "Put", "PutMany")
	Key string // Storage key if applicable
	Err error  // Underlying error
}

func (e *DocumentError) Error() string {
	return fmt.Sprintf("%s operation failed for document %s: %v", e.Op, e.Key, e.Err)
}

func (e *DocumentError) Unwrap() error {
	return e.Err
}

// Is implements error comparison for document errors.
func (e *DocumentError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// NewDocumentError creates a new document error with context.
func NewDocumentError(op, key string, err error) *DocumentError {
	return &DocumentError{
		Op:  op,
		Key: key,
		Err: err,
	}
}

// IsNotFound checks if an error indicates a missing document.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsConflict checks if an error indicates a revision conflict.
func IsConflict(err error) bool {
	return errors.Is(err, ErrConflict)
}
