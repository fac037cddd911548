package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	apperrors "github.com/kbukum/asthma-api/errors"
	"github.com/kbukum/asthma-api/validation"
)

// decode reads the JSON body into dst. An empty body leaves dst zero so
// that field validation reports what is missing.
func decode(c *gin.Context, dst any) error {
	err := json.NewDecoder(c.Request.Body).Decode(dst)
	if err == nil || errors.Is(err, io.EOF) {
		return nil
	}
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return apperrors.PayloadTooLarge()
	}
	return apperrors.Validation("Request body must be a JSON object").WithCause(err)
}

// normalizer is implemented by requests that clean up input, such as
// trimming an email, before validation.
type normalizer interface {
	normalize()
}

// bind decodes the body into dst and runs its validate tags plus any
// extra cross-field rules.
func bind(c *gin.Context, dst any, rules ...func(v *validation.Validator)) error {
	if err := decode(c, dst); err != nil {
		return err
	}
	if n, ok := dst.(normalizer); ok {
		n.normalize()
	}
	v := validation.New().Struct(dst)
	for _, rule := range rules {
		rule(v)
	}
	if appErr := v.Validate(); appErr != nil {
		return appErr
	}
	return nil
}

// parseDate accepts an RFC 3339 timestamp or a plain YYYY-MM-DD date.
func parseDate(s string) (time.Time, bool) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UTC(), true
	}
	if t, err := time.Parse(time.DateOnly, s); err == nil {
		return t, true
	}
	return time.Time{}, false
}

// expiresIn renders a token lifetime the way clients expect it: "15m",
// "1h", "7d".
func expiresIn(d time.Duration) string {
	const day = 24 * time.Hour
	switch {
	case d >= day && d%day == 0:
		return fmt.Sprintf("%dd", int64(d/day))
	case d >= time.Hour && d%time.Hour == 0:
		return fmt.Sprintf("%dh", int64(d/time.Hour))
	case d >= time.Minute && d%time.Minute == 0:
		return fmt.Sprintf("%dm", int64(d/time.Minute))
	default:
		return fmt.Sprintf("%ds", int64(d/time.Second))
	}
}
