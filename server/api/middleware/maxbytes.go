package middleware

import (
	"net/http"
)

// MaxBytes limits the request body to maxBytes. Reading past the limit fails
// with *http.MaxBytesError, which the body parser turns into a client error.
func MaxBytes(f http.Handler, maxBytes int64) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if maxBytes > 0 && r.Body != nil {
			r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
		}
		f.ServeHTTP(w, r)
	}
}
