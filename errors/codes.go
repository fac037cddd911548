package errors

// ErrorCode represents a machine-readable error code.
type ErrorCode string

// Request validation
const (
	// ErrCodeValidation indicates the request body failed schema validation.
	ErrCodeValidation ErrorCode = "VALIDATION_ERROR"
	// ErrCodeEmailExists indicates a registration collided with an existing account.
	ErrCodeEmailExists ErrorCode = "EMAIL_EXISTS"
	// ErrCodeNotFound indicates the requested route or resource does not exist.
	ErrCodeNotFound ErrorCode = "NOT_FOUND"
	// ErrCodeMethodNotAllowed indicates the route exists for other methods only.
	ErrCodeMethodNotAllowed ErrorCode = "METHOD_NOT_ALLOWED"
	// ErrCodePayloadTooLarge indicates the request body exceeded the size limit.
	ErrCodePayloadTooLarge ErrorCode = "PAYLOAD_TOO_LARGE"
)

// Authentication
const (
	ErrCodeInvalidCredentials ErrorCode = "INVALID_CREDENTIALS"
	ErrCodeNoToken            ErrorCode = "NO_TOKEN"
	ErrCodeNoRefreshToken     ErrorCode = "NO_REFRESH_TOKEN"
	ErrCodeTokenInvalid       ErrorCode = "TOKEN_INVALID"
	ErrCodeTokenExpired       ErrorCode = "TOKEN_EXPIRED"
	ErrCodeUserNotFound       ErrorCode = "USER_NOT_FOUND"
)

// Authorization
const (
	ErrCodeAuthRequired            ErrorCode = "AUTH_REQUIRED"
	ErrCodeInsufficientPermissions ErrorCode = "INSUFFICIENT_PERMISSIONS"
)

// Throttling and availability (retryable)
const (
	ErrCodeRateLimitExceeded  ErrorCode = "RATE_LIMIT_EXCEEDED"
	ErrCodeServiceUnavailable ErrorCode = "SERVICE_UNAVAILABLE"
)

// Internal errors
const (
	// ErrCodeInternal indicates an internal server error.
	ErrCodeInternal ErrorCode = "INTERNAL_ERROR"
	// ErrCodeDatabaseError indicates a database error.
	ErrCodeDatabaseError ErrorCode = "DATABASE_ERROR"
	// ErrCodeConfig indicates invalid startup configuration. It never reaches a client.
	ErrCodeConfig ErrorCode = "CONFIG_ERROR"
)

var retryableCodes = map[ErrorCode]bool{
	ErrCodeRateLimitExceeded:  true,
	ErrCodeServiceUnavailable: true,
	ErrCodeDatabaseError:      true,
	ErrCodeInternal:           false,
}

// IsRetryableCode returns true if the error code indicates a retryable error.
func IsRetryableCode(code ErrorCode) bool {
	return retryableCodes[code]
}
