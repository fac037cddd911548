package validation

import (
	"reflect"
	"regexp"
	"strings"
	"sync"
	"unicode"

	"github.com/go-playground/validator/v10"
)

var (
	validate *validator.Validate
	once     sync.Once

	usZipPattern     = regexp.MustCompile(`^\d{5}(-\d{4})?$`)
	clockTimePattern = regexp.MustCompile(`^(1[0-2]|0?[1-9]):[0-5]\d (AM|PM)$`)
)

// getValidator returns the singleton validator instance.
func getValidator() *validator.Validate {
	once.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())

		// Use json tag names so errors name the field the client sent.
		validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" || name == "" {
				return fld.Name
			}
			return name
		})

		_ = validate.RegisterValidation("password_strength", passwordStrength)
		_ = validate.RegisterValidation("us_zip", func(fl validator.FieldLevel) bool {
			return usZipPattern.MatchString(fl.Field().String())
		})
		_ = validate.RegisterValidation("clock_time", func(fl validator.FieldLevel) bool {
			return clockTimePattern.MatchString(fl.Field().String())
		})
		_ = validate.RegisterValidation("accepted", func(fl validator.FieldLevel) bool {
			return fl.Field().Kind() == reflect.Bool && fl.Field().Bool()
		})
	})
	return validate
}

// passwordStrength requires at least one lowercase letter, one uppercase
// letter and one digit.
func passwordStrength(fl validator.FieldLevel) bool {
	var lower, upper, digit bool
	for _, r := range fl.Field().String() {
		switch {
		case unicode.IsLower(r):
			lower = true
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsDigit(r):
			digit = true
		}
	}
	return lower && upper && digit
}

// Validate validates a struct using `validate` tags and returns a
// VALIDATION_ERROR listing every failing field, or nil.
func Validate(s any) error {
	if appErr := New().Struct(s).Validate(); appErr != nil {
		return appErr
	}
	return nil
}

// Struct runs tag validation on s and collects its failures.
func (v *Validator) Struct(s any) *Validator {
	err := getValidator().Struct(s)
	if err == nil {
		return v
	}

	validationErrors, ok := err.(validator.ValidationErrors)
	if !ok {
		v.Fail("body", "is invalid")
		return v
	}
	for _, e := range validationErrors {
		v.Fail(fieldPath(e), formatValidationError(e))
	}
	return v
}

// fieldPath drops the root struct name: "RegisterRequest.email" -> "email".
func fieldPath(e validator.FieldError) string {
	ns := e.Namespace()
	if idx := strings.Index(ns, "."); idx != -1 {
		return ns[idx+1:]
	}
	return e.Field()
}

// formatValidationError creates a human-readable error message.
func formatValidationError(e validator.FieldError) string {
	numeric := e.Kind() != reflect.String
	switch e.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "min", "gte":
		if numeric {
			return "must be at least " + e.Param()
		}
		return "must be at least " + characters(e.Param())
	case "max", "lte":
		if numeric {
			return "must be at most " + e.Param()
		}
		return "must be at most " + characters(e.Param())
	case "oneof":
		return "must be one of: " + e.Param()
	case "eqfield":
		return "must match " + e.Param()
	case "datetime":
		return "must be a date in " + e.Param() + " format"
	case "uuid":
		return "must be a valid UUID"
	case "password_strength":
		return "must contain at least one uppercase letter, one lowercase letter, and one number"
	case "us_zip":
		return "must be a valid US zip code"
	case "clock_time":
		return "must be a time like 8:00 AM"
	case "accepted":
		return "must be accepted"
	default:
		return "is invalid"
	}
}

func characters(n string) string {
	if n == "1" {
		return "1 character"
	}
	return n + " characters"
}
