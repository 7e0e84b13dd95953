package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"vilatur/internal/handler"
	"vilatur/internal/httputil"
	authmw "vilatur/internal/transport/http/middleware"
)

// RouterConfig holds the dependencies needed to create routes
type RouterConfig struct {
	AuthHandler    *handler.AuthHandler
	UserHandler    *handler.UserHandler
	ListingHandler *handler.ListingHandler
	ImageHandler   *handler.ImageHandler
	JWTSecret      string
	Sessions       authmw.SessionReader
	Log            *zap.Logger
}

// NewRouter creates and configures a new Chi router with all route groups
func NewRouter(cfg RouterConfig) chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(authmw.RequestLogger(cfg.Log))
	r.Use(middleware.Recoverer)

	// Health check endpoint (useful for deployment/monitoring)
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", promhttp.Handler())

	// Public routes - no authentication required
	r.Get("/", cfg.ListingHandler.Browse)
	r.Get("/images/{id}", cfg.ImageHandler.Serve)
	r.Post("/join", cfg.AuthHandler.Join)
	r.Post("/login", cfg.AuthHandler.Login)

	r.Route("/users/{username}", func(r chi.Router) {
		r.With(authmw.OptionalAuthMiddleware(cfg.JWTSecret, cfg.Sessions)).Get("/", cfg.UserHandler.GetProfile)
		r.Get("/services", cfg.ListingHandler.ListServices)
		r.Get("/services/{id}", cfg.ListingHandler.GetService)

		// Owner actions on a single listing
		r.Group(func(r chi.Router) {
			r.Use(authmw.AuthMiddleware(cfg.JWTSecret, cfg.Sessions))
			r.Post("/services/{id}/keywords", cfg.ListingHandler.SaveKeywords)
			r.Post("/services/{id}/photo", cfg.ImageHandler.UploadListingPhoto)
		})
	})

	// Protected routes - require authentication
	r.Group(func(r chi.Router) {
		r.Use(authmw.AuthMiddleware(cfg.JWTSecret, cfg.Sessions))

		// Current user endpoints
		r.Get("/me", cfg.AuthHandler.Me)
		r.Post("/logout", cfg.AuthHandler.Logout)

		// Listing mutations
		r.Post("/resources/note-editor", cfg.ListingHandler.NoteEditor)
		r.Post("/resources/delete-note", cfg.ListingHandler.DeleteNote)

		// Profile settings
		r.Post("/settings/profile", cfg.UserHandler.UpdateProfile)
		r.Post("/settings/profile/photo", cfg.ImageHandler.UploadUserPhoto)
	})

	return r
}
