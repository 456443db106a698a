package api

import (
	"net/http"
	"time"

	"shopify-tenant-sync/internal/auth"
	"shopify-tenant-sync/internal/infrastructure/middleware"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"
)

// Deps are the services the HTTP surface is built on
type Deps struct {
	Sync           SyncTrigger
	Installer      Installer
	Webhooks       WebhookIngester
	Owners         OwnerAccounts
	Analytics      Analytics
	Tenants        TenantLookup
	Events         EventSubscriber
	WebhookHistory WebhookHistory
	Authenticator  *auth.Authenticator
	MetricsHandler http.Handler
	AllowedOrigins []string
}

// NewRouter builds the HTTP router
func NewRouter(deps Deps, logger zerolog.Logger) http.Handler {
	h := &handlers{
		sync:      deps.Sync,
		installer: deps.Installer,
		webhooks:  deps.Webhooks,
		owners:    deps.Owners,
		analytics: deps.Analytics,
		tenants:   deps.Tenants,
		logger:    logger,
	}
	stream := &streamHandler{tenants: deps.Tenants, events: deps.Events, history: deps.WebhookHistory, logger: logger}

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.RequestLogger(logger))
	r.Use(chimw.Recoverer)
	r.Use(middleware.SecurityHeaders())
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   deps.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Get("/health", h.health)
	if deps.MetricsHandler != nil {
		r.Handle("/metrics", deps.MetricsHandler)
	}

	r.Get("/auth", h.beginInstall)
	r.Get("/auth/callback", h.completeInstall)
	r.Post("/webhooks/shopify", h.webhook)

	r.Get("/signup", h.signup)
	r.Post("/register", h.register)
	r.Post("/login", h.login)

	r.Route("/api", func(r chi.Router) {
		r.Use(auth.RequireOwner(deps.Authenticator, logger))

		// the stream is long-lived, so only the other routes get a timeout
		r.Get("/webhooks/stream", stream.serve)

		r.Group(func(r chi.Router) {
			r.Use(chimw.Timeout(5 * time.Minute))
			r.Get("/sync", h.triggerSync)
			r.Post("/sync", h.triggerSync)
			r.Get("/analytics/summary", h.summary)
			r.Get("/analytics/orders-by-date", h.ordersByDate)
			r.Get("/analytics/top-customers", h.topCustomers)
			r.Get("/dashboard", h.dashboard)
			r.Get("/webhooks/recent", stream.recent)
		})
	})

	return r
}
