package database

import (
	"errors"
	"strings"

	"gorm.io/gorm"

	apperrors "github.com/kbukum/asthma-api/errors"
)

// IsConnectionError reports whether err looks like a lost or refused
// connection that a retry might resolve.
func IsConnectionError(err error) bool {
	if err == nil {
		return false
	}

	errStr := strings.ToLower(err.Error())
	patterns := []string{
		"connection refused",
		"connection reset",
		"broken pipe",
		"i/o timeout",
		"no route to host",
		"connection closed",
		"driver: bad connection",
		"database is closed",
		"database is locked",
	}
	for _, p := range patterns {
		if strings.Contains(errStr, p) {
			return true
		}
	}
	return false
}

// IsNotFoundError reports whether err is GORM's record-not-found error.
func IsNotFoundError(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}

// IsDuplicateError reports whether err is a unique-constraint violation.
// TranslateError covers postgres and sqlite; the string checks catch
// sessions opened without it.
func IsDuplicateError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "duplicate key value violates unique constraint")
}

// FromDatabase converts a database error to an AppError. Callers handle
// not-found and duplicate errors themselves when they carry domain meaning.
func FromDatabase(err error, resource string) *apperrors.AppError {
	if err == nil {
		return nil
	}
	if IsNotFoundError(err) {
		return apperrors.NotFound(resource).WithCause(err)
	}
	if IsConnectionError(err) {
		return apperrors.ServiceUnavailable("database").WithCause(err)
	}
	return apperrors.DatabaseError(err)
}
