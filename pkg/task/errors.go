package task

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned when an id-targeted operation matches no row.
var ErrNotFound = errors.New("task not found")

// ValidationError reports caller input that fails a precondition.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

// StorageError wraps a fault raised while executing a statement.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// IsValidation reports whether err is (or wraps) a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
