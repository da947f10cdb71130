// Package router sets up all HTTP routes and middleware chains for the
// CS-DOC API. Read routes are open; write routes sit behind a per-IP rate
// limit.
package router

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/cors"

	"csdoc/internal/handlers"
	"csdoc/internal/middleware"
)

// Deps are the handlers and middleware settings the router wires up.
type Deps struct {
	Logger      *slog.Logger
	Categories  *handlers.Categories
	Posts       *handlers.Posts
	Uploads     *handlers.Uploads
	Limiter     *middleware.RateLimiter
	CORSOrigins []string
}

// New creates and returns the configured Chi router with all middleware
// and route groups wired up.
func New(d Deps) chi.Router {
	r := chi.NewRouter()

	// Global middleware, outermost first.
	r.Use(middleware.Recoverer(d.Logger))
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(d.Logger))
	r.Use(middleware.SecureHeaders)
	r.Use(cors.New(cors.Options{
		AllowedOrigins: d.CORSOrigins,
		AllowedMethods: []string{
			http.MethodGet, http.MethodPost, http.MethodPut,
			http.MethodPatch, http.MethodDelete, http.MethodOptions,
		},
		AllowedHeaders: []string{"Origin", "Content-Type", "Accept", middleware.RequestIDHeader},
		ExposedHeaders: []string{middleware.RequestIDHeader},
	}).Handler)

	r.Get("/health", healthHandler)

	r.Route("/api", func(r chi.Router) {
		if d.Limiter != nil {
			r.Use(d.Limiter.Middleware)
		}

		r.Route("/categories", func(r chi.Router) {
			r.Get("/", d.Categories.List)
			r.Get("/tree", d.Categories.Tree)
			r.Post("/", d.Categories.Create)
			r.Patch("/reorder", d.Categories.Reorder)
			r.Patch("/bulk", d.Categories.Bulk)
			r.Patch("/{id}", d.Categories.Update)
			r.Get("/{id}/descendants", d.Categories.Descendants)
		})

		r.Route("/posts", func(r chi.Router) {
			r.Get("/", d.Posts.List)
			r.Post("/", d.Posts.Create)
			r.Post("/upload", d.Posts.Upload)
			r.Get("/history", d.Posts.History)
			r.Get("/deleted", d.Posts.Deleted)
			r.Get("/deletion-history", d.Posts.DeletionHistory)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", d.Posts.Get)
				r.Put("/", d.Posts.Update)
				r.Patch("/", d.Posts.Patch)
				r.Delete("/", d.Posts.Delete)
				r.Delete("/hard", d.Posts.HardDelete)
				r.Post("/restore", d.Posts.Restore)
				r.Get("/content", d.Posts.Content)
				r.Put("/content/upload", d.Posts.UploadContent)
				r.Post("/view", d.Posts.View)
				r.Post("/attachments", d.Posts.Attachments)
				r.Get("/versions", d.Posts.Versions)
				r.Get("/versions/{number}", d.Posts.Version)
			})
		})

		r.Post("/upload/image", d.Uploads.Image)
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"code":"NOT_FOUND","message":"no such route"}`))
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusMethodNotAllowed)
		w.Write([]byte(`{"code":"METHOD_NOT_ALLOWED","message":"method not allowed"}`))
	})

	return r
}

// healthHandler returns a simple JSON health check response.
func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ok"}`))
}
