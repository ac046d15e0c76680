package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorType classifies an application error
type ErrorType uint

const (
	// ErrorTypeUnknown represents an unclassified error
	ErrorTypeUnknown ErrorType = iota
	// ErrorTypeInvalidInput represents malformed caller input (empty portfolio,
	// non-positive loan count)
	ErrorTypeInvalidInput
	// ErrorTypeInvalidParameter represents an out-of-range simulation parameter
	// (rho outside [0,1), non-positive iteration count, PD outside (0,1))
	ErrorTypeInvalidParameter
	// ErrorTypeNumericDomain represents a numerical primitive invoked outside
	// its valid domain
	ErrorTypeNumericDomain
	// ErrorTypeNotFound represents a missing stored entity
	ErrorTypeNotFound
	// ErrorTypeInternal represents an internal error
	ErrorTypeInternal
)

// AppError represents an application error with a type classification
type AppError struct {
	Type    ErrorType
	Message string
	Err     error
}

// Error returns the error message
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the wrapped error
func (e *AppError) Unwrap() error {
	return e.Err
}

// New creates a new unclassified error
func New(message string) error {
	return &AppError{
		Type:    ErrorTypeUnknown,
		Message: message,
	}
}

// Newf creates a new unclassified error from a format string
func Newf(format string, args ...interface{}) error {
	return &AppError{
		Type:    ErrorTypeUnknown,
		Message: fmt.Sprintf(format, args...),
	}
}

// Wrap wraps an error with a message, preserving its type if it already is
// an AppError
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	errType := ErrorTypeUnknown
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		errType = appErr.Type
	}
	return &AppError{
		Type:    errType,
		Message: message,
		Err:     err,
	}
}

// Wrapf wraps an error with a formatted message
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return Wrap(err, fmt.Sprintf(format, args...))
}

// TypeOf returns the classification of err, or ErrorTypeUnknown for errors
// that are not AppErrors
func TypeOf(err error) ErrorType {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr.Type
	}
	return ErrorTypeUnknown
}

// IsType reports whether err is an AppError of the given type
func IsType(err error, errType ErrorType) bool {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr.Type == errType
	}
	return false
}

// InvalidInput creates a new InvalidInput error
func InvalidInput(message string) error {
	return &AppError{
		Type:    ErrorTypeInvalidInput,
		Message: message,
	}
}

// InvalidInputf creates a new InvalidInput error from a format string
func InvalidInputf(format string, args ...interface{}) error {
	return InvalidInput(fmt.Sprintf(format, args...))
}

// InvalidParameter creates a new InvalidParameter error
func InvalidParameter(message string) error {
	return &AppError{
		Type:    ErrorTypeInvalidParameter,
		Message: message,
	}
}

// InvalidParameterf creates a new InvalidParameter error from a format string
func InvalidParameterf(format string, args ...interface{}) error {
	return InvalidParameter(fmt.Sprintf(format, args...))
}

// NumericDomain creates a new NumericDomain error
func NumericDomain(message string) error {
	return &AppError{
		Type:    ErrorTypeNumericDomain,
		Message: message,
	}
}

// NumericDomainf creates a new NumericDomain error from a format string
func NumericDomainf(format string, args ...interface{}) error {
	return NumericDomain(fmt.Sprintf(format, args...))
}

// NotFound creates a new NotFound error
func NotFound(message string) error {
	return &AppError{
		Type:    ErrorTypeNotFound,
		Message: message,
	}
}

// Internal creates a new Internal error
func Internal(message string) error {
	return &AppError{
		Type:    ErrorTypeInternal,
		Message: message,
	}
}
