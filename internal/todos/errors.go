package todos

import (
	"errors"
	"fmt"
)

var (
	// ErrNotRecurring is returned when the recurring completion path is
	// asked to complete a todo without a recurrence pattern.
	ErrNotRecurring = errors.New("todo is not recurring")

	// ErrAlreadyCompleted is returned when a todo was already completed,
	// including when a concurrent completion won the race.
	ErrAlreadyCompleted = errors.New("todo is already completed")

	// ErrValidation matches every *ValidationError.
	ErrValidation = errors.New("validation failed")
)

// ValidationError describes a rejected input field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Is makes errors.Is(err, ErrValidation) true for any ValidationError.
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

func invalid(field, format string, args ...any) error {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}
