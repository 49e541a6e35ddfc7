package routes

import (
	"log/slog"
	"net/http"

	"github.com/BradenHooton/loginguard/internal/auth"
	"github.com/BradenHooton/loginguard/internal/handlers"
	"github.com/BradenHooton/loginguard/internal/middleware"
	"github.com/BradenHooton/loginguard/internal/models"
	pkghttp "github.com/BradenHooton/loginguard/pkg/http"
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// RegisterRoutes registers the guard and admin API
func RegisterRoutes(
	router chi.Router,
	guardHandler *handlers.GuardHandler,
	adminHandler *handlers.AdminHandler,
	tokenManager *auth.TokenManager,
	guardRateLimit middleware.RateLimitConfig,
	logger *slog.Logger,
) {
	router.Route("/v1", func(r chi.Router) {
		r.Use(auth.Authenticate(tokenManager, logger))

		// Identity provider surface
		r.Group(func(r chi.Router) {
			r.Use(auth.RequireScope(models.ScopeGuardAttempts))
			r.Use(middleware.RateLimitByIdentity(guardRateLimit, handlers.GuardIdentity))
			r.Post("/attempts", guardHandler.SubmitAttempt)
			r.Get("/lockouts/{identity}/status", guardHandler.LockStatus)
		})

		// Administrator surface
		r.Route("/admin", func(r chi.Router) {
			r.Use(auth.RequireTokenType(models.TokenTypeAdmin))
			r.Use(auth.RequireScope(models.ScopeGuardAdmin))
			r.Use(middleware.RateLimitBySubject(middleware.DefaultAdminRateLimit()))

			r.Get("/lockouts", adminHandler.ListLockouts)
			r.Post("/lockouts/{identity}/unlock", adminHandler.UnlockAccount)
			r.Post("/lockouts/{identity}/lock", adminHandler.LockAccount)

			r.Get("/config", adminHandler.GetConfig)
			r.Put("/config", adminHandler.UpdateConfig)

			r.Get("/attempts", adminHandler.ListAttempts)
			r.Post("/attempts/cleanup", adminHandler.CleanupAttempts)

			r.Get("/overview", adminHandler.Overview)
			r.Post("/notifications/test", adminHandler.TestNotification)
		})
	})
}

// RegisterOpsRoutes registers the unauthenticated health and metrics endpoints
func RegisterOpsRoutes(router chi.Router, healthHandler *handlers.HealthHandler, gatherer prometheus.Gatherer, resolver *pkghttp.IPResolver) {
	router.Group(func(r chi.Router) {
		r.Use(middleware.RateLimitByIP(middleware.DefaultOpsRateLimit(), resolver))
		r.Get("/health", healthHandler.Health)
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	})
}
