package websocket

import (
	"chat-relay/auth"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// NewRouter mounts the socket endpoint. authenticator may be nil, then every client is let in.
func NewRouter(handler *Handler, authenticator *auth.Authenticator) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Group(func(p chi.Router) {
		if authenticator != nil {
			p.Use(authenticator.Middleware)
		}
		p.Get("/ws", handler.ServeHTTP)
	})
	return r
}
