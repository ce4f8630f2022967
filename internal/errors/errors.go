package errors

import (
	"errors"
	"fmt"
)

// ErrorType classifies an AppError.
type ErrorType string

const (
	ErrorTypeValidation ErrorType = "validation_error"
	ErrorTypeNotFound   ErrorType = "not_found"
	ErrorTypeCredential ErrorType = "credential_error"
	ErrorTypeService    ErrorType = "service_error"
)

// AppError is the error type surfaced to callers. Message is user-facing;
// Err keeps the underlying cause for logs.
type AppError struct {
	Type    ErrorType
	Message string
	Err     error
	Code    string
}

// Error implements the error interface.
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the underlying cause.
func (e *AppError) Unwrap() error {
	return e.Err
}

// NewAppError builds an AppError with the code derived from its type.
func NewAppError(errType ErrorType, message string, originalError error) *AppError {
	return &AppError{
		Type:    errType,
		Message: message,
		Err:     originalError,
		Code:    generateErrorCode(errType),
	}
}

// NewValidationError is raised locally before any network call.
func NewValidationError(message string, originalError error) *AppError {
	return NewAppError(ErrorTypeValidation, message, originalError)
}

func NewNotFoundError(message string, originalError error) *AppError {
	return NewAppError(ErrorTypeNotFound, message, originalError)
}

// NewCredentialError marks a failure caused by a missing or rejected API key.
func NewCredentialError(message string, originalError error) *AppError {
	return NewAppError(ErrorTypeCredential, message, originalError)
}

// NewServiceError marks any other failure of the external service.
func NewServiceError(message string, originalError error) *AppError {
	return NewAppError(ErrorTypeService, message, originalError)
}

func IsValidationError(err error) bool {
	return hasType(err, ErrorTypeValidation)
}

func IsNotFoundError(err error) bool {
	return hasType(err, ErrorTypeNotFound)
}

func IsCredentialError(err error) bool {
	return hasType(err, ErrorTypeCredential)
}

func IsServiceError(err error) bool {
	return hasType(err, ErrorTypeService)
}

// UserMessage returns the user-facing message of an AppError, or fallback
// for any other error.
func UserMessage(err error, fallback string) string {
	var appError *AppError
	if errors.As(err, &appError) {
		return appError.Message
	}
	return fallback
}

func hasType(err error, errType ErrorType) bool {
	var appError *AppError
	if errors.As(err, &appError) {
		return appError.Type == errType
	}
	return false
}

func generateErrorCode(errType ErrorType) string {
	switch errType {
	case ErrorTypeValidation:
		return "VALIDATION_ERROR"
	case ErrorTypeNotFound:
		return "NOT_FOUND"
	case ErrorTypeCredential:
		return "API_KEY_INVALID"
	case ErrorTypeService:
		return "SERVICE_ERROR"
	default:
		return "UNKNOWN_ERROR"
	}
}

// WrapError prefixes the message of err, keeping its type when err is
// already an AppError.
func WrapError(err error, message string, errType ErrorType) error {
	if err == nil {
		return nil
	}

	var appError *AppError
	if errors.As(err, &appError) {
		return &AppError{
			Type:    appError.Type,
			Message: fmt.Sprintf("%s: %s", message, appError.Message),
			Err:     appError,
			Code:    appError.Code,
		}
	}

	return NewAppError(errType, message, err)
}
