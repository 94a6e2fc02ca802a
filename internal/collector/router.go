package collector

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/blockedby/repost-tracer/internal/web"
)

// NewRouter creates a new chi router with all collector endpoints. The
// websocket endpoint is mounted only when hub is non-nil.
func NewRouter(handler *Handler, hub *web.Hub) http.Handler {
	r := chi.NewRouter()

	// middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// basic cors
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS", "DELETE"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
	}))

	// health check
	r.Get("/health", handler.Health)

	if hub != nil {
		r.Get("/ws", func(w http.ResponseWriter, r *http.Request) {
			web.ServeWs(hub, w, r)
		})
	}

	// api v1 routes
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/sessions", handler.ListSessions)

		r.Route("/scans", func(r chi.Router) {
			r.Get("/", handler.ListScans)
			r.Post("/", handler.StartScan)
			r.Get("/current", handler.CurrentScan)
			r.Delete("/current", handler.StopScan)
			r.Get("/{id}", handler.GetScan)
			r.Get("/{id}/csv", handler.ExportCSV)
		})
	})

	return r
}
