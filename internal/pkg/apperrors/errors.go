package apperrors

import "errors"

// Lookup and input errors
var (
	ErrResourceNotFound = errors.New("resource not found")
	ErrValidationFailed = errors.New("validation failed")
	ErrBadRequest       = errors.New("bad request")
)

// Run errors
var (
	ErrRunNotFound       = errors.New("run not found")
	ErrIllegalTransition = errors.New("illegal run state transition")
)

// CustomError pairs a sentinel with the message shown to the caller
type CustomError struct {
	Err     error
	Message string
}

func (e *CustomError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return "unknown error"
}

func (e *CustomError) Unwrap() error {
	return e.Err
}

// NewResourceNotFoundError reports a missing key, document or record
func NewResourceNotFoundError(message string) error {
	return &CustomError{Err: ErrResourceNotFound, Message: message}
}

// NewValidationError wraps a validation failure with a readable message. err may be nil.
func NewValidationError(message string, err error) *CustomError {
	return &CustomError{Err: errors.Join(ErrValidationFailed, err), Message: message}
}
