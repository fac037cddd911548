package errors

import (
	"fmt"
	"math"
	"net/http"
	"time"
)

// AppError is the unified application error type.
type AppError struct {
	// Code is a machine-readable error code.
	Code ErrorCode `json:"code"`
	// Message is a human-readable error message.
	Message string `json:"message"`
	// Retryable indicates if the operation can be retried.
	Retryable bool `json:"retryable"`
	// HTTPStatus is the recommended HTTP status code for this error.
	HTTPStatus int `json:"-"`
	// Details contains additional context for the error.
	Details map[string]any `json:"details,omitempty"`
	// Cause is the underlying error. It is logged, never sent to clients.
	Cause error `json:"-"`
}

// Error returns the string representation of the error.
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (cause: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause of the error.
func (e *AppError) Unwrap() error { return e.Cause }

// WithCause sets the underlying cause of the error and returns the receiver.
func (e *AppError) WithCause(cause error) *AppError {
	e.Cause = cause
	return e
}

// WithDetail sets a single detail key-value pair and returns the receiver.
func (e *AppError) WithDetail(key string, value any) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

// New creates a new AppError with automatic retryable detection.
func New(code ErrorCode, message string, httpStatus int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
		Retryable:  IsRetryableCode(code),
	}
}

// --- Request errors ---

// Validation creates a new AppError for a request that failed validation.
func Validation(message string) *AppError {
	return &AppError{
		Code: ErrCodeValidation, Message: message,
		HTTPStatus: http.StatusBadRequest, Retryable: false,
	}
}

// InvalidField creates a validation error pointing at a single field.
func InvalidField(field, reason string) *AppError {
	return Validation("Validation failed").WithDetail("fields", []map[string]string{
		{"field": field, "message": reason},
	})
}

// EmailExists creates a new AppError for a registration with a taken email.
func EmailExists() *AppError {
	return &AppError{
		Code: ErrCodeEmailExists, Message: "An account with this email already exists",
		HTTPStatus: http.StatusConflict, Retryable: false,
	}
}

// NotFound creates a new AppError for a resource that was not found.
func NotFound(resource string) *AppError {
	return &AppError{
		Code: ErrCodeNotFound, Message: fmt.Sprintf("The requested %s was not found.", resource),
		HTTPStatus: http.StatusNotFound, Retryable: false,
		Details: map[string]any{"resource": resource},
	}
}

// MethodNotAllowed creates a new AppError for a known route called with the wrong method.
func MethodNotAllowed() *AppError {
	return &AppError{
		Code: ErrCodeMethodNotAllowed, Message: "Method not allowed",
		HTTPStatus: http.StatusMethodNotAllowed, Retryable: false,
	}
}

// PayloadTooLarge creates a new AppError for a request body over the size limit.
func PayloadTooLarge() *AppError {
	return &AppError{
		Code: ErrCodePayloadTooLarge, Message: "Request body is too large",
		HTTPStatus: http.StatusRequestEntityTooLarge, Retryable: false,
	}
}

// --- Authentication errors ---

// InvalidCredentials is returned for both an unknown email and a wrong
// password so the response does not reveal which one failed.
func InvalidCredentials() *AppError {
	return &AppError{
		Code: ErrCodeInvalidCredentials, Message: "Invalid email or password",
		HTTPStatus: http.StatusUnauthorized, Retryable: false,
	}
}

// NoToken creates a new AppError for a request without a bearer token.
func NoToken() *AppError {
	return &AppError{
		Code: ErrCodeNoToken, Message: "Access token required",
		HTTPStatus: http.StatusUnauthorized, Retryable: false,
	}
}

// NoRefreshToken creates a new AppError for a refresh call without a token.
func NoRefreshToken() *AppError {
	return &AppError{
		Code: ErrCodeNoRefreshToken, Message: "Refresh token required",
		HTTPStatus: http.StatusUnauthorized, Retryable: false,
	}
}

// TokenInvalid creates a new AppError for a token that failed verification.
func TokenInvalid() *AppError {
	return &AppError{
		Code: ErrCodeTokenInvalid, Message: "Invalid or expired token",
		HTTPStatus: http.StatusUnauthorized, Retryable: false,
	}
}

// TokenExpired creates a new AppError for an otherwise valid token past its expiry.
func TokenExpired() *AppError {
	return &AppError{
		Code: ErrCodeTokenExpired, Message: "Token has expired",
		HTTPStatus: http.StatusUnauthorized, Retryable: false,
	}
}

// UnknownPrincipal is returned when a verified token names a user that no
// longer exists.
func UnknownPrincipal() *AppError {
	return &AppError{
		Code: ErrCodeUserNotFound, Message: "User not found",
		HTTPStatus: http.StatusUnauthorized, Retryable: false,
	}
}

// UserNotFound is returned by direct user lookups.
func UserNotFound() *AppError {
	return &AppError{
		Code: ErrCodeUserNotFound, Message: "User not found",
		HTTPStatus: http.StatusNotFound, Retryable: false,
	}
}

// --- Authorization errors ---

// AuthRequired is returned when a role check runs without an authenticated principal.
func AuthRequired() *AppError {
	return &AppError{
		Code: ErrCodeAuthRequired, Message: "Authentication required",
		HTTPStatus: http.StatusUnauthorized, Retryable: false,
	}
}

// InsufficientPermissions creates a new AppError for a principal lacking a required role.
func InsufficientPermissions() *AppError {
	return &AppError{
		Code: ErrCodeInsufficientPermissions, Message: "Insufficient permissions",
		HTTPStatus: http.StatusForbidden, Retryable: false,
	}
}

// --- Throttling and internal errors ---

// RateLimitExceeded creates a new AppError carrying the whole seconds a
// client should wait before retrying.
func RateLimitExceeded(retryAfter time.Duration) *AppError {
	return &AppError{
		Code: ErrCodeRateLimitExceeded, Message: "Too many authentication attempts. Please try again later.",
		HTTPStatus: http.StatusTooManyRequests, Retryable: true,
		Details: map[string]any{"retryAfter": RetryAfterSeconds(retryAfter)},
	}
}

// RetryAfterSeconds rounds d up to whole seconds, never below one.
func RetryAfterSeconds(d time.Duration) int {
	s := int(math.Ceil(d.Seconds()))
	if s < 1 {
		return 1
	}
	return s
}

// ServiceUnavailable creates a new AppError for a dependency that is temporarily unavailable.
func ServiceUnavailable(service string) *AppError {
	return &AppError{
		Code: ErrCodeServiceUnavailable, Message: fmt.Sprintf("The %s is temporarily unavailable. Please try again.", service),
		HTTPStatus: http.StatusServiceUnavailable, Retryable: true,
		Details: map[string]any{"service": service},
	}
}

// Internal creates a new AppError for an internal server error.
func Internal(cause error) *AppError {
	return &AppError{
		Code: ErrCodeInternal, Message: "An unexpected error occurred. Please try again or contact support.",
		HTTPStatus: http.StatusInternalServerError, Retryable: false, Cause: cause,
	}
}

// DatabaseError creates a new AppError for a database error.
func DatabaseError(cause error) *AppError {
	return &AppError{
		Code: ErrCodeDatabaseError, Message: "A database error occurred. Please try again.",
		HTTPStatus: http.StatusInternalServerError, Retryable: true, Cause: cause,
	}
}

// Config creates a startup configuration error. The process must not serve
// traffic when one is returned.
func Config(message string) *AppError {
	return &AppError{
		Code: ErrCodeConfig, Message: message,
		HTTPStatus: http.StatusInternalServerError, Retryable: false,
	}
}
