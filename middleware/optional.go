package middleware

import (
	"context"
	"net/http"
)

// Optional attaches the identity when the request carries a valid bearer token
// and passes every request through.
func Optional(validator AccessValidator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if res, _ := authenticate(r, validator); res != nil {
				r = r.WithContext(context.WithValue(r.Context(), authResultContextKey{}, res))
			}
			next.ServeHTTP(w, r)
		})
	}
}
