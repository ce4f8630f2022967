// internal/api/error_codes.go
package api

// API error codes
const (
	ErrorBadRequest    = "BAD_REQUEST"
	ErrorNotFound      = "NOT_FOUND"
	ErrorInternalError = "INTERNAL_ERROR"
	ErrorRateLimited   = "RATE_LIMIT_EXCEEDED"

	// sessions and scenes
	ErrorSessionNotFound = "SESSION_NOT_FOUND"
	ErrorValidation      = "VALIDATION_ERROR"

	// generative-text API
	ErrorAPIKeyInvalid      = "API_KEY_INVALID"
	ErrorServiceUnavailable = "LLM_SERVICE_UNAVAILABLE"
)
