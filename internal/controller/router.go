package controller

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

func (c *controller) GetMux() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(c.requestIdMw)
	r.Use(c.requestLoggingMw)
	r.Use(cors.AllowAll().Handler)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
			w.Write([]byte("OK"))
		})
		r.Get("/session", c.getSession)
		r.Route("/room", func(r chi.Router) {
			r.Post("/create", c.createRoom)
			r.Post("/join", c.joinRoom)
			r.Post("/start", c.startSession)
			r.Post("/like", c.like)
			r.Post("/dislike", c.dislike)
			r.Post("/leave", c.leaveRoom)
			r.Post("/resume", c.resumeRoom)
			r.Get("/media", c.currentMedia)
		})
		r.Route("/auth", func(r chi.Router) {
			r.Post("/login", c.login)
			r.Post("/register", c.register)
			r.Post("/logout", c.logout)
		})
		r.Route("/user", func(r chi.Router) {
			r.Get("/", c.userDetails)
			r.Post("/password", c.changePassword)
		})
		r.Route("/preferences", func(r chi.Router) {
			r.Get("/", c.preferences)
			r.Post("/", c.addPreference)
			r.Delete("/{tconst}", c.removePreference)
		})
		r.Get("/ws/session", c.sessionStream)
	})

	return r
}
