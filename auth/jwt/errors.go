package jwt

import (
	"errors"

	apperrors "github.com/kbukum/asthma-api/errors"
)

// AppError maps a verification error to its HTTP error. Expired tokens
// get TOKEN_EXPIRED so clients know to refresh; everything else is
// TOKEN_INVALID.
func AppError(err error) *apperrors.AppError {
	if errors.Is(err, ErrTokenExpired) {
		return apperrors.TokenExpired().WithCause(err)
	}
	return apperrors.TokenInvalid().WithCause(err)
}

// Reason returns the audit reason for a verification error.
func Reason(err error) string {
	if errors.Is(err, ErrTokenExpired) {
		return string(apperrors.ErrCodeTokenExpired)
	}
	return string(apperrors.ErrCodeTokenInvalid)
}
