package middleware

import (
	"net/http"

	"github.com/kbukum/asthma-api/util"
)

const defaultMaxBodySize = 1024 * 1024 // 1MB

// BodySizeLimit returns middleware that restricts the request body to the
// given size string (e.g. "1MB", "512KB"). Reads past the limit fail with
// *http.MaxBytesError, which handlers report as PAYLOAD_TOO_LARGE.
func BodySizeLimit(maxSize string) Middleware {
	size := util.ParseSize(maxSize, defaultMaxBodySize)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			r.Body = http.MaxBytesReader(w, r.Body, size)
			next.ServeHTTP(w, r)
		})
	}
}
