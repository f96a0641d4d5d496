package httpapi

import (
	"context"
	"net/http"

	"github.com/gorilla/mux"
)

// Pinger reports backend health for /healthz.
type Pinger interface {
	Ping(ctx context.Context) error
}

// RouterOption customizes NewRouter.
type RouterOption func(*mux.Router)

// WithHealth mounts GET /healthz backed by p.
func WithHealth(p Pinger) RouterOption {
	return func(r *mux.Router) {
		r.HandleFunc("/healthz", func(w http.ResponseWriter, req *http.Request) {
			if err := p.Ping(req.Context()); err != nil {
				writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
				return
			}
			writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
		}).Methods(http.MethodGet)
	}
}

// WithHandler mounts an arbitrary handler at path, e.g. a metrics endpoint.
func WithHandler(path string, h http.Handler) RouterOption {
	return func(r *mux.Router) {
		r.Handle(path, h)
	}
}

// NewRouter returns a router with the auth endpoints mounted.
func NewRouter(h *Handlers, opts ...RouterOption) *mux.Router {
	router := mux.NewRouter()
	h.RegisterRoutes(router)
	for _, opt := range opts {
		opt(router)
	}
	return router
}
