package browser

import (
	"context"
	"errors"
)

// Error is the structured error returned by session and locator operations.
type Error struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

func (e *Error) Error() string {
	return e.Message
}

// Error codes
const (
	ErrCodeAlreadyOpen     = "ALREADY_OPEN"
	ErrCodeNotOpen         = "NOT_OPEN"
	ErrCodeValidation      = "VALIDATION_ERROR"
	ErrCodeNavigation      = "NAVIGATION_ERROR"
	ErrCodeTimeout         = "TIMEOUT_ERROR"
	ErrCodeElementNotFound = "ELEMENT_NOT_FOUND"
	ErrCodeInteraction     = "INTERACTION_ERROR"
	ErrCodeAssertion       = "ASSERTION_ERROR"
	ErrCodeSecurity        = "SECURITY_ERROR"
	ErrCodeBrowserCrash    = "BROWSER_CRASH"
)

// CodeOf returns the error code if err is (or wraps) a browser Error.
func CodeOf(err error) string {
	var be *Error
	if errors.As(err, &be) {
		return be.Code
	}
	return ""
}

// IsCode reports whether err carries the given browser error code.
func IsCode(err error, code string) bool {
	return CodeOf(err) == code
}

// IsTimeout reports whether err represents a wait or navigation deadline.
// Rod surfaces expired element waits as context.DeadlineExceeded.
func IsTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	return IsCode(err, ErrCodeTimeout)
}
