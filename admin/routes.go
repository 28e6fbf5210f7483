package admin

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/vothanachyes/telegram-user-tracking-sub004/watch"
)

// RegisterRoutes mounts the admin API under /admin/
func RegisterRoutes(mux *http.ServeMux, handlers *AdminHandlers, secret string) {
	r := chi.NewRouter()

	// Health is unauthenticated so probes need no secret
	r.Get("/health", handlers.handleHealth)

	r.Route("/listeners", func(r chi.Router) {
		r.Use(AuthMiddleware(secret))
		r.Get("/", handlers.handleListListeners)
		r.Get("/{id}", handlers.withListenerID(handlers.handleGetListener))
		r.Delete("/{id}", handlers.withListenerID(handlers.handleStopListener))
	})

	mux.Handle("/admin", http.RedirectHandler("/admin/", http.StatusMovedPermanently))
	mux.Handle("/admin/", http.StripPrefix("/admin", r))

	log.Info().Msg("Admin endpoints enabled at /admin/*")
}

// withListenerID extracts the {id} URL param
func (h *AdminHandlers) withListenerID(fn func(http.ResponseWriter, *http.Request, watch.ListenerID)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		if id == "" {
			writeErrorResponse(w, http.StatusBadRequest, "listener ID is required")
			return
		}
		fn(w, r, watch.ListenerID(id))
	}
}
