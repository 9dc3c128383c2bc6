package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrCustomerNotFound     = errors.New("customer not found")
	ErrUserNotFound         = errors.New("user not found")
	ErrUserExists           = errors.New("username already exists")
	ErrInvalidCredentials   = errors.New("invalid username or password")
	ErrInvalidToken         = errors.New("invalid token")
	ErrForbidden            = errors.New("access forbidden")
	ErrIDMismatch           = errors.New("id in path does not match id in body")
	ErrInvalidRole          = errors.New("invalid role")
	ErrRegistrationDisabled = errors.New("registration is disabled")

	// ErrStaleUpdate is returned by stores when an update affected no rows,
	// either because the record vanished or was modified concurrently.
	ErrStaleUpdate = errors.New("update affected no rows")
)

// ValidationError collects field-level problems with an input.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return "validation failed: " + strings.Join(e.Problems, "; ")
}

// NewValidationError builds a ValidationError with a single problem.
func NewValidationError(format string, args ...any) *ValidationError {
	return &ValidationError{Problems: []string{fmt.Sprintf(format, args...)}}
}

func (e *ValidationError) add(msg string) {
	e.Problems = append(e.Problems, msg)
}

func (e *ValidationError) check(field, value string, max int) {
	switch {
	case strings.TrimSpace(value) == "":
		e.add(field + " is required")
	case len([]rune(value)) > max:
		e.add(fmt.Sprintf("%s must be at most %d characters", field, max))
	}
}

func (e *ValidationError) empty() bool { return len(e.Problems) == 0 }

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
