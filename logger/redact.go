package logger

import "strings"

// RedactedValue replaces the value of any sensitive field.
const RedactedValue = "[REDACTED]"

// defaultRedactKeys covers credentials and patient identifiers. Keys are
// matched after normalisation, so "refreshToken", "refresh_token" and
// "Refresh-Token" are the same key.
var defaultRedactKeys = []string{
	"email",
	"password",
	"passwordhash",
	"confirmpassword",
	"token",
	"accesstoken",
	"refreshtoken",
	"authorization",
	"cookie",
	"firstname",
	"lastname",
	"childfirstname",
	"childlastname",
	"dateofbirth",
	"childdateofbirth",
	"zipcode",
}

// Redactor masks values of sensitive keys in log fields.
type Redactor struct {
	keys map[string]struct{}
}

// NewRedactor returns a redactor for the default keys plus extra.
func NewRedactor(extra ...string) *Redactor {
	r := &Redactor{keys: make(map[string]struct{}, len(defaultRedactKeys)+len(extra))}
	for _, k := range defaultRedactKeys {
		r.keys[k] = struct{}{}
	}
	for _, k := range extra {
		r.keys[normalizeKey(k)] = struct{}{}
	}
	return r
}

// Sensitive reports whether values under key are masked.
func (r *Redactor) Sensitive(key string) bool {
	_, ok := r.keys[normalizeKey(key)]
	return ok
}

// Redact returns a copy of fields with sensitive values masked. Nested maps
// are walked. The input map is never modified.
func (r *Redactor) Redact(fields map[string]interface{}) map[string]interface{} {
	if len(fields) == 0 {
		return fields
	}
	out := make(map[string]interface{}, len(fields))
	for k, v := range fields {
		if r.Sensitive(k) {
			out[k] = RedactedValue
			continue
		}
		switch nested := v.(type) {
		case map[string]interface{}:
			out[k] = r.Redact(nested)
		case map[string]string:
			m := make(map[string]interface{}, len(nested))
			for nk, nv := range nested {
				m[nk] = nv
			}
			out[k] = r.Redact(m)
		default:
			out[k] = v
		}
	}
	return out
}

var defaultRedactor = NewRedactor()

// Redact masks sensitive values in fields using the default key list.
func Redact(fields map[string]interface{}) map[string]interface{} {
	return defaultRedactor.Redact(fields)
}

func normalizeKey(k string) string {
	k = strings.ToLower(k)
	k = strings.ReplaceAll(k, "_", "")
	return strings.ReplaceAll(k, "-", "")
}
