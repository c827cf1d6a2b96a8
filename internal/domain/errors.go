package domain

import (
	"errors"
	"fmt"
)

var (
	ErrProfileNotFound   = errors.New("profile not found")
	ErrContactNotFound   = errors.New("contact not found")
	ErrAlertNotFound     = errors.New("alert not found")
	ErrInvalidTransition = errors.New("invalid alert status transition")
	ErrContactLimit      = errors.New("contact limit reached")
	ErrCheckinTooSoon    = errors.New("check-in not available yet")
)

// ValidationError is a user-correctable input problem.
// It is never a system fault and callers should show Message to the user.
type ValidationError struct {
	Field   string
	Message string
	Err     error
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error { return e.Err }

// Invalid builds a ValidationError for field.
func Invalid(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

// IsValidation reports whether err carries a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// ContactLimitError reports the tier cap being exceeded.
func ContactLimitError(premium bool) *ValidationError {
	msg := "free plan allows 1 emergency contact; upgrade to premium for more"
	if premium {
		msg = "you have reached the maximum of 5 emergency contacts"
	}
	return &ValidationError{Field: "contacts", Message: msg, Err: ErrContactLimit}
}
