// Package common defines shared sentinel errors and the opaque internal
// error surfaced to users. Callers should use errors.Is/errors.As to match
// these values.
package common

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

var (
	// Repository-level errors.
	ErrorNotFound      = errors.New("not found")
	ErrorAlreadyExists = errors.New("already exists")

	// Service-level errors.
	ErrorInternal = errors.New("internal error")
)

// InternalError wraps an unexpected failure with a correlation id. Only the
// id is user-visible; the wrapped cause is for logs.
type InternalError struct {
	ID  string
	Err error
}

// NewInternalError assigns a fresh correlation id to err.
func NewInternalError(err error) *InternalError {
	return &InternalError{ID: uuid.NewString(), Err: err}
}

func (e *InternalError) Error() string {
	return fmt.Sprintf("an internal error occurred (id=%s)", e.ID)
}

func (e *InternalError) Unwrap() error {
	return e.Err
}

// Is lets errors.Is(err, common.ErrorInternal) match any InternalError.
func (e *InternalError) Is(target error) bool {
	return target == ErrorInternal
}
