package store

import (
	"errors"
	"fmt"
)

var (
	// ErrObjectNotFound is returned when the named object does not exist.
	ErrObjectNotFound = errors.New("object not found")

	// ErrStoreClosed is returned when an operation is attempted on a
	// closed store.
	ErrStoreClosed = errors.New("store is closed")

	// ErrInvalidName is returned when an object name is empty or
	// contains path separators, control characters or reserved names.
	ErrInvalidName = errors.New("invalid object name")
)

// StoreError wraps a backend failure with the operation, object name
// and backend kind for diagnostics.
type StoreError struct {
	Op      string
	Name    string
	Backend string
	Err     error
}

func (e *StoreError) Error() string {
	if e.Name == "" {
		return fmt.Sprintf("store %s (%s): %v", e.Op, e.Backend, e.Err)
	}
	return fmt.Sprintf("store %s %q (%s): %v", e.Op, e.Name, e.Backend, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

// NewError builds a StoreError for the given operation.
func NewError(op, backend, name string, err error) *StoreError {
	return &StoreError{Op: op, Name: name, Backend: backend, Err: err}
}
