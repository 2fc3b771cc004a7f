package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/nomadev-io/whatsapp-autopilot/internal/http/handlers"
	httpmiddleware "github.com/nomadev-io/whatsapp-autopilot/internal/http/middleware"
	"github.com/nomadev-io/whatsapp-autopilot/pkg/logging"
)

// Config holds router configuration
type Config struct {
	Logger             *logging.Logger
	WebhookHandler     *handlers.WebhookHandler
	AdminHandler       *handlers.AdminHandler
	AdminAuthSecret    string
	MetricsHandler     http.Handler
	CORSAllowedOrigins []string
}

// New creates a new Chi router with all routes configured
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))
	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(httpmiddleware.CORS(cfg.CORSAllowedOrigins))
	}
	if cfg.Logger != nil {
		r.Use(httpmiddleware.RequestLogger(cfg.Logger))
	}

	// Public endpoints (webhooks, health checks)
	r.Group(func(public chi.Router) {
		public.Get("/health", cfg.WebhookHandler.HealthCheck)
		public.Route("/webhooks/whatsapp", func(r chi.Router) {
			r.Get("/", cfg.WebhookHandler.Handle)
			r.Post("/", cfg.WebhookHandler.Handle)
			r.Options("/", cfg.WebhookHandler.Handle)
		})
		if cfg.MetricsHandler != nil {
			public.Handle("/metrics", cfg.MetricsHandler)
		}
	})

	// Admin dashboard API (JWT protected)
	if cfg.AdminHandler != nil {
		r.Group(func(admin chi.Router) {
			admin.Use(httpmiddleware.AdminJWT(cfg.AdminAuthSecret))
			admin.Get("/admin/conversations", cfg.AdminHandler.ListConversations)
			admin.Get("/admin/conversations/{conversationID}/messages", cfg.AdminHandler.ListMessages)
		})
	}

	return r
}
