// Package validation validates request bodies.
//
// Struct tags are checked with go-playground/validator. Field names in
// errors come from json tags. Besides the built-in tags the package
// registers password_strength, us_zip, clock_time and accepted (a bool that
// must be true). Cross-field rules are added programmatically:
//
//	v := validation.New().Struct(req)
//	v.Custom(req.Password == req.ConfirmPassword, "confirmPassword", "Passwords don't match")
//	if err := v.Validate(); err != nil { ... }
package validation
