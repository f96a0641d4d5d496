package httpapi

import (
	"net/http"
	"time"

	"github.com/MrEthical07/goSession"
)

// CookieAdapter reads and writes the refresh cookie. It always sets HttpOnly.
type CookieAdapter struct {
	cfg goSession.CookieConfig
	now func() time.Time
}

func NewCookieAdapter(cfg goSession.CookieConfig) *CookieAdapter {
	if cfg.Name == "" {
		cfg.Name = "refresh_token"
	}
	if cfg.Path == "" {
		cfg.Path = "/"
	}
	return &CookieAdapter{cfg: cfg, now: time.Now}
}

// Name returns the cookie name.
func (c *CookieAdapter) Name() string {
	return c.cfg.Name
}

// Read returns the presented refresh token, or "" when there is none.
func (c *CookieAdapter) Read(r *http.Request) string {
	cookie, err := r.Cookie(c.cfg.Name)
	if err != nil {
		return ""
	}
	return cookie.Value
}

// SetRefreshCookie writes value with an expiry matching the refresh token.
func (c *CookieAdapter) SetRefreshCookie(w http.ResponseWriter, value string, expiresAt time.Time) {
	maxAge := int(expiresAt.Sub(c.now()).Seconds())
	if maxAge < 1 {
		maxAge = 1
	}
	http.SetCookie(w, c.cookie(value, maxAge, expiresAt))
}

// ClearRefreshCookie instructs the client to drop the cookie.
func (c *CookieAdapter) ClearRefreshCookie(w http.ResponseWriter) {
	http.SetCookie(w, c.cookie("", -1, time.Unix(0, 0)))
}

func (c *CookieAdapter) cookie(value string, maxAge int, expires time.Time) *http.Cookie {
	return &http.Cookie{
		Name:     c.cfg.Name,
		Value:    value,
		Path:     c.cfg.Path,
		Domain:   c.cfg.Domain,
		Expires:  expires.UTC(),
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   c.cfg.Secure,
		SameSite: c.cfg.SameSite,
	}
}
