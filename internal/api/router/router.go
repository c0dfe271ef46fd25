package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	httpSwagger "github.com/swaggo/http-swagger"

	"studypilot/backend/internal/api/handlers"
	"studypilot/backend/internal/api/middleware"
	"studypilot/backend/internal/config"
	"studypilot/backend/internal/pkg/logger"
	"studypilot/backend/internal/pkg/metrics"
)

type Handlers struct {
	Health   *handlers.HealthHandler
	Auth     *handlers.AuthHandler
	Profile  *handlers.ProfileHandler
	Generate *handlers.GenerateHandler
	Billing  *handlers.BillingHandler
}

func New(cfg *config.Config, log *logger.Logger, h *Handlers) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.RequestID)
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(log))
	r.Use(middleware.Recovery(log))
	r.Use(middleware.SecurityHeaders)
	r.Use(middleware.DefaultCORS(cfg.Server.AppURL))
	r.Use(middleware.RateLimit(100, 200)) // 100 req/sec, burst of 200
	r.Use(metrics.Middleware)

	// Public routes
	r.Group(func(r chi.Router) {
		// Swagger documentation
		r.Get("/swagger/*", httpSwagger.WrapHandler)

		// Health checks
		r.Get("/health", h.Health.Healthz)
		r.Get("/healthz", h.Health.Healthz)
		r.Get("/readyz", h.Health.Readyz)

		// Prometheus metrics
		r.Handle("/metrics", metrics.Handler())

		// Auth endpoints
		r.Post("/api/auth/register", h.Auth.Register)
		r.Post("/api/auth/login", h.Auth.Login)
		r.Post("/api/auth/refresh", h.Auth.Refresh)

		// Billing webhook. Signed by the provider, never by a user
		// session. The second path is kept for already-configured
		// webhook endpoints.
		r.Post("/api/stripe/webhook", h.Billing.Webhook)
		r.Post("/api/stripe-webhook", h.Billing.Webhook)
	})

	// Protected routes (require authentication)
	r.Group(func(r chi.Router) {
		r.Use(middleware.AuthMiddleware(cfg.Auth.JWTSecret))

		r.Get("/api/auth/me", h.Auth.Me)
		r.Get("/api/profile", h.Profile.Summary)

		// Generation features
		r.Post("/api/generate", h.Generate.Notes)
		r.Post("/api/generate-qna", h.Generate.QnA)
		r.Post("/api/generate-flashcards", h.Generate.Flashcards)
		r.Post("/api/generate-test", h.Generate.Test)
		r.Post("/api/generate-citations", h.Generate.Citations)
		r.Post("/api/generate-presentation", h.Generate.Presentation)
		r.Post("/api/generate-visual-map", h.Generate.VisualMap)
		r.Post("/api/grammar", h.Generate.Grammar)
		r.Post("/api/paraphrase", h.Generate.Paraphrase)
		r.Post("/api/career", h.Generate.Career)
		r.Post("/api/generate-study-plan", h.Generate.StudyPlan)

		// Billing
		r.Post("/api/create-checkout-session", h.Billing.CreateCheckoutSession)
	})

	return r
}
