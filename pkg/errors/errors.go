package errors

import (
	"errors"
	"fmt"
)

// ErrorType represents the type of error
type ErrorType string

const (
	// Domain errors
	ErrorTypeValidation ErrorType = "validation_error"
	ErrorTypeNotFound   ErrorType = "not_found"

	// Infrastructure errors
	ErrorTypeStorage             ErrorType = "storage_error"
	ErrorTypeMessaging           ErrorType = "messaging_error"
	ErrorTypeUpstreamUnavailable ErrorType = "upstream_unavailable"
	ErrorTypePartialFanout       ErrorType = "partial_fanout"

	// Request lifecycle errors
	ErrorTypeTimeout      ErrorType = "timeout_error"
	ErrorTypeCancellation ErrorType = "cancellation_error"

	// System errors
	ErrorTypeInternal      ErrorType = "internal_error"
	ErrorTypeConfiguration ErrorType = "configuration_error"
)

// AppError represents a custom application error
type AppError struct {
	Type    ErrorType
	Message string
	Err     error
	Context map[string]interface{}
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Type, e.Message)
}

// Unwrap implements the unwrap interface for errors.Is and errors.As
func (e *AppError) Unwrap() error {
	return e.Err
}

// WithContext adds context information to the error
func (e *AppError) WithContext(key string, value interface{}) *AppError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// New creates a new AppError
func New(errType ErrorType, message string) *AppError {
	return &AppError{
		Type:    errType,
		Message: message,
	}
}

// Wrap wraps an existing error with additional context.
// The returned error takes errType; the context of a wrapped AppError is carried over.
func Wrap(err error, errType ErrorType, message string) *AppError {
	if err == nil {
		return nil
	}

	var appErr *AppError
	if errors.As(err, &appErr) {
		return &AppError{
			Type:    errType,
			Message: message,
			Err:     appErr,
			Context: copyContext(appErr.Context),
		}
	}

	return &AppError{
		Type:    errType,
		Message: message,
		Err:     err,
	}
}

func copyContext(src map[string]interface{}) map[string]interface{} {
	if src == nil {
		return nil
	}
	dst := make(map[string]interface{}, len(src))
	for k, v := range src {
		dst[k] = v
	}
	return dst
}

// Is checks if the outermost AppError in the chain is of a specific type
func Is(err error, errType ErrorType) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Type == errType
	}
	return false
}

// TypeOf returns the type of the outermost AppError, or ErrorTypeInternal.
func TypeOf(err error) ErrorType {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Type
	}
	return ErrorTypeInternal
}

// Validation errors
func WrapValidationError(err error, message string) *AppError {
	return Wrap(err, ErrorTypeValidation, message)
}

// Not found errors
func NewNotFoundError(resource string) *AppError {
	return New(ErrorTypeNotFound, fmt.Sprintf("%s not found", resource))
}

// Storage errors
func WrapStorageError(err error, message string) *AppError {
	return Wrap(err, ErrorTypeStorage, message)
}

// Messaging errors
func WrapMessagingError(err error, message string) *AppError {
	return Wrap(err, ErrorTypeMessaging, message)
}

// Upstream errors
func WrapUpstreamUnavailableError(err error, message string) *AppError {
	return Wrap(err, ErrorTypeUpstreamUnavailable, message)
}

// Fanout errors
func NewPartialFanoutError(message string) *AppError {
	return New(ErrorTypePartialFanout, message)
}

// Timeout errors
func WrapTimeoutError(err error, message string) *AppError {
	return Wrap(err, ErrorTypeTimeout, message)
}

// Cancellation errors
func WrapCancellationError(err error, message string) *AppError {
	return Wrap(err, ErrorTypeCancellation, message)
}

// Internal errors
func NewInternalError(message string) *AppError {
	return New(ErrorTypeInternal, message)
}

func WrapInternalError(err error, message string) *AppError {
	return Wrap(err, ErrorTypeInternal, message)
}

// Configuration errors
func NewConfigurationError(message string) *AppError {
	return New(ErrorTypeConfiguration, message)
}
