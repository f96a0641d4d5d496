// Package httpapi exposes the session engine over HTTP: login, refresh and
// logout handlers, the refresh cookie adapter, and a gorilla/mux router.
//
// The access token travels in the JSON response body. The refresh token only
// ever travels in an HttpOnly cookie.
//
// Status mapping: ErrUnauthorized is 401, ErrForbidden is 403, anything else
// is 500 with a generic body.
package httpapi
