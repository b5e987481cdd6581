package errors

import "fmt"

// Error types specific to the sync engine, layered on top of the ErrorType
// taxonomy in errors.go.
const (
	ErrorTypeConfig            ErrorType = "CONFIG_ERROR"
	ErrorTypeSignature         ErrorType = "SIGNATURE_ERROR"
	ErrorTypePlatformAuth      ErrorType = "PLATFORM_AUTH_ERROR"
	ErrorTypePlatformTransient ErrorType = "PLATFORM_TRANSIENT_ERROR"
	ErrorTypePlatformUser      ErrorType = "PLATFORM_USER_ERROR"
	ErrorTypeMappingMissing    ErrorType = "MAPPING_MISSING"
)

// IsRetryable reports whether the asynq handler wrapper should let the queue
// retry a job that failed with this error. Transient platform failures
// (timeouts, 5xx, rate limiting) are retryable; everything caused by bad
// configuration, bad credentials, or a platform rejecting the payload as
// malformed is not, since retrying would just fail the same way.
func (e *AppError) IsRetryable() bool {
	switch e.Type {
	case ErrorTypePlatformTransient, ErrorTypeRateLimit:
		return true
	default:
		return false
	}
}

// NewConfigError wraps a missing or malformed configuration value.
func NewConfigError(message string, err error) *AppError {
	return &AppError{
		Type:    ErrorTypeConfig,
		Message: message,
		Code:    500,
		Err:     err,
	}
}

// NewSignatureError wraps a webhook whose HMAC signature failed to verify.
func NewSignatureError(message string) *AppError {
	return &AppError{
		Type:    ErrorTypeSignature,
		Message: message,
		Code:    401,
	}
}

// NewPlatformAuthError wraps a platform rejecting stored credentials (token
// expired or revoked). The connection should move to error and surface this
// to the tenant for reconnection rather than retry.
func NewPlatformAuthError(platform, message string, err error) *AppError {
	return &AppError{
		Type:    ErrorTypePlatformAuth,
		Message: fmt.Sprintf("%s: %s", platform, message),
		Code:    502,
		Err:     err,
	}
}

// NewPlatformTransientError wraps a retryable platform failure: timeouts,
// 5xx responses, or rate limiting.
func NewPlatformTransientError(platform, message string, err error) *AppError {
	return &AppError{
		Type:    ErrorTypePlatformTransient,
		Message: fmt.Sprintf("%s: %s", platform, message),
		Code:    503,
		Err:     err,
	}
}

// NewPlatformUserError wraps a platform rejecting a request as invalid
// (bad payload, validation failure on the platform's side). Retrying the
// identical payload will not help.
func NewPlatformUserError(platform, message string, err error) *AppError {
	return &AppError{
		Type:    ErrorTypePlatformUser,
		Message: fmt.Sprintf("%s: %s", platform, message),
		Code:    422,
		Err:     err,
	}
}

// NewMappingMissingError wraps an operation that needed a
// PlatformProductMapping that does not exist yet.
func NewMappingMissingError(message string) *AppError {
	return &AppError{
		Type:    ErrorTypeMappingMissing,
		Message: message,
		Code:    404,
	}
}
