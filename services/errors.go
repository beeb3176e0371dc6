package services

import (
	"errors"
	"fmt"

	"github.com/fly8app/fly8_backend/repositories"
)

// ValidationError reports invalid caller input: missing fields, out-of-range
// percentages, payout sums below threshold.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

func validationErrorf(format string, args ...interface{}) error {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

// PreconditionError reports an illegal status transition, e.g. approving a
// commission that is not pending.
type PreconditionError struct {
	Message string
}

func (e *PreconditionError) Error() string { return e.Message }

func preconditionErrorf(format string, args ...interface{}) error {
	return &PreconditionError{Message: fmt.Sprintf(format, args...)}
}

// ConflictError reports a duplicate commission for a source entity or a
// commission already claimed by an open payout.
type ConflictError struct {
	Message string
}

func (e *ConflictError) Error() string { return e.Message }

func conflictErrorf(format string, args ...interface{}) error {
	return &ConflictError{Message: fmt.Sprintf(format, args...)}
}

// IsNotFound reports whether err means the referenced entity does not exist.
func IsNotFound(err error) bool {
	return errors.Is(err, repositories.ErrNotFound)
}

// IsValidation reports whether err is caller-input validation failure.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// IsPrecondition reports whether err is an illegal status transition.
func IsPrecondition(err error) bool {
	var pe *PreconditionError
	return errors.As(err, &pe)
}

// IsConflict reports whether err is a duplicate/claim conflict.
func IsConflict(err error) bool {
	var ce *ConflictError
	return errors.As(err, &ce)
}
