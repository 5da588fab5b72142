package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/kobohq/kobo-clipper/internal/handler/message"
	middlewarePkg "github.com/kobohq/kobo-clipper/internal/middleware"
	"github.com/kobohq/kobo-clipper/pkg/utils"
)

// NewRouter wires the message-passing boundary onto HTTP routes.
func NewRouter(msg *message.Handler) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middlewarePkg.CORS)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		utils.RespondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api", func(api chi.Router) {
		msg.RegisterRoutes(api)
	})

	return r
}
