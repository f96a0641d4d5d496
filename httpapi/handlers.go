package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/MrEthical07/goSession"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
)

// Authenticator is the engine surface the handlers need.
type Authenticator interface {
	Login(ctx context.Context, email, password, presentedRefresh string) (*goSession.LoginResult, error)
	Refresh(ctx context.Context, presented string) (*goSession.TokenPair, error)
	Logout(ctx context.Context, presented string) goSession.LogoutResult
}

// Handlers serves the auth endpoints.
type Handlers struct {
	auth    Authenticator
	cookies *CookieAdapter
	log     logrus.FieldLogger
}

func NewHandlers(auth Authenticator, cookies *CookieAdapter, log logrus.FieldLogger) *Handlers {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Handlers{auth: auth, cookies: cookies, log: log}
}

// RegisterRoutes mounts the handlers under router.
func (h *Handlers) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/auth/login", h.login).Methods(http.MethodPost)
	router.HandleFunc("/auth/refresh", h.refresh).Methods(http.MethodPost)
	router.HandleFunc("/auth/logout", h.logout).Methods(http.MethodPost)
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type tokenResponse struct {
	AccessToken string    `json:"access_token"`
	TokenType   string    `json:"token_type"`
	ExpiresAt   time.Time `json:"expires_at"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// login handles POST /auth/login
func (h *Handlers) login(w http.ResponseWriter, r *http.Request) {
	var body loginRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<16)).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "bad request"})
		return
	}

	res, err := h.auth.Login(withRequestContext(r), body.Email, body.Password, h.cookies.Read(r))
	if err != nil {
		if errors.Is(err, goSession.ErrSessionRetired) {
			h.cookies.ClearRefreshCookie(w)
		}
		h.writeError(w, r, err)
		return
	}

	// Same name and path: setting the new cookie also clears the presented
	// one, which is all ClearRefreshCookie asks for here.
	h.cookies.SetRefreshCookie(w, res.RefreshToken, res.RefreshExpiresAt)
	writeJSON(w, http.StatusOK, tokenResponse{
		AccessToken: res.AccessToken,
		TokenType:   "Bearer",
		ExpiresAt:   res.AccessExpiresAt,
	})
}

// refresh handles POST /auth/refresh
func (h *Handlers) refresh(w http.ResponseWriter, r *http.Request) {
	pair, err := h.auth.Refresh(withRequestContext(r), h.cookies.Read(r))
	if err != nil {
		if errors.Is(err, goSession.ErrForbidden) || errors.Is(err, goSession.ErrSessionRetired) {
			h.cookies.ClearRefreshCookie(w)
		}
		h.writeError(w, r, err)
		return
	}

	h.cookies.SetRefreshCookie(w, pair.RefreshToken, pair.RefreshExpiresAt)
	writeJSON(w, http.StatusOK, tokenResponse{
		AccessToken: pair.AccessToken,
		TokenType:   "Bearer",
		ExpiresAt:   pair.AccessExpiresAt,
	})
}

// logout handles POST /auth/logout
func (h *Handlers) logout(w http.ResponseWriter, r *http.Request) {
	res := h.auth.Logout(withRequestContext(r), h.cookies.Read(r))
	if res.ClearRefreshCookie {
		h.cookies.ClearRefreshCookie(w)
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handlers) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := StatusFor(err)
	if status == http.StatusInternalServerError {
		h.log.WithFields(logrus.Fields{
			"path":   r.URL.Path,
			"method": r.Method,
		}).WithError(err).Error("auth request failed")
		writeJSON(w, status, errorResponse{Error: "internal error"})
		return
	}
	writeJSON(w, status, errorResponse{Error: http.StatusText(status)})
}

// StatusFor maps an engine error to its HTTP status.
func StatusFor(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, goSession.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, goSession.ErrForbidden):
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

func withRequestContext(r *http.Request) context.Context {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	ctx := goSession.WithClientIP(r.Context(), host)
	return goSession.WithUserAgent(ctx, r.UserAgent())
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
