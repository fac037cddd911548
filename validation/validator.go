package validation

import (
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/kbukum/asthma-api/errors"
)

// FieldError is one entry of the "fields" detail of a VALIDATION_ERROR.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Validator accumulates field errors from struct tags and custom rules.
// The zero value is not usable; call New.
type Validator struct {
	fields []FieldError
}

// New returns an empty Validator.
func New() *Validator {
	return &Validator{fields: []FieldError{}}
}

// Fail records an error for field.
func (v *Validator) Fail(field, message string) *Validator {
	v.fields = append(v.fields, FieldError{Field: field, Message: message})
	return v
}

// Custom records message for field unless ok holds.
func (v *Validator) Custom(ok bool, field, message string) *Validator {
	if !ok {
		v.Fail(field, message)
	}
	return v
}

// Failed reports whether field already has an error.
func (v *Validator) Failed(field string) bool {
	for _, f := range v.fields {
		if f.Field == field {
			return true
		}
	}
	return false
}

// Errors returns the recorded errors in the order they were found.
func (v *Validator) Errors() []FieldError { return v.fields }

// Validate returns nil, or a VALIDATION_ERROR listing every field error.
func (v *Validator) Validate() *errors.AppError {
	if len(v.fields) == 0 {
		return nil
	}
	return errors.Validation("Validation failed").WithDetail("fields", v.fields)
}

// ValidateUUID parses value as a UUID path or body parameter.
func ValidateUUID(field, value string) (uuid.UUID, error) {
	if strings.TrimSpace(value) == "" {
		return uuid.Nil, errors.InvalidField(field, "is required")
	}
	id, err := uuid.Parse(value)
	if err != nil {
		return uuid.Nil, errors.InvalidField(field, fmt.Sprintf("%s must be a valid UUID", field))
	}
	return id, nil
}
