package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/MrEthical07/goSession"
)

// AccessValidator checks access tokens. *goSession.Engine satisfies it.
type AccessValidator interface {
	ValidateAccess(ctx context.Context, token string) (*goSession.AuthResult, error)
}

type authResultContextKey struct{}

func AuthResultFromContext(ctx context.Context) (*goSession.AuthResult, bool) {
	res, ok := ctx.Value(authResultContextKey{}).(*goSession.AuthResult)
	return res, ok
}

// Guard rejects requests that lack a valid bearer token with 401. A token
// that was presented but failed validation is reported as invalid_token in
// the challenge.
func Guard(validator AccessValidator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			res, presented := authenticate(r, validator)
			if res == nil {
				challenge := `Bearer realm="goSession"`
				if presented {
					challenge += `, error="invalid_token"`
				}
				w.Header().Set("WWW-Authenticate", challenge)
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), authResultContextKey{}, res)))
		})
	}
}

// authenticate returns the validated result, or nil. presented reports
// whether the request carried a bearer token at all.
func authenticate(r *http.Request, validator AccessValidator) (res *goSession.AuthResult, presented bool) {
	token := bearerToken(r.Header.Get("Authorization"))
	if token == "" {
		return nil, false
	}
	if validator == nil {
		return nil, true
	}
	res, err := validator.ValidateAccess(r.Context(), token)
	if err != nil {
		return nil, true
	}
	return res, true
}

// bearerToken extracts the credential from an Authorization header value.
// The scheme is matched case-insensitively.
func bearerToken(header string) string {
	scheme, cred, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(cred)
}
