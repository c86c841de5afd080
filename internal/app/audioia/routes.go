// Package audioia собирает HTTP API сервиса голосовых заметок.
package audioia

import (
	"log/slog"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger"

	// Регистрация swagger-документа для /docs.
	_ "github.com/magabrotheeeer/audioia/docs"
	"github.com/magabrotheeeer/audioia/internal/http/handlers/account"
	"github.com/magabrotheeeer/audioia/internal/http/handlers/auth/login"
	"github.com/magabrotheeeer/audioia/internal/http/handlers/auth/logout"
	"github.com/magabrotheeeer/audioia/internal/http/handlers/auth/register"
	"github.com/magabrotheeeer/audioia/internal/http/handlers/billing/cancel"
	"github.com/magabrotheeeer/audioia/internal/http/handlers/billing/checkout"
	"github.com/magabrotheeeer/audioia/internal/http/handlers/billing/success"
	"github.com/magabrotheeeer/audioia/internal/http/handlers/billing/webhook"
	"github.com/magabrotheeeer/audioia/internal/http/handlers/health"
	"github.com/magabrotheeeer/audioia/internal/http/handlers/upload/audio"
	"github.com/magabrotheeeer/audioia/internal/http/handlers/upload/create"
	"github.com/magabrotheeeer/audioia/internal/http/middlewarectx"
)

// Services зависимости обработчиков.
type Services struct {
	Auth     AuthService
	Upload   create.Service
	Audio    audio.Store
	Quota    account.QuotaStatus
	Billing  BillingService
	Health   health.Pinger
	Limiter  *middlewarectx.Limiter
	Gatherer prometheus.Gatherer
	MaxBytes int64
	Cookie   login.CookieConfig
}

// AuthService регистрация, вход и проверка сессий.
type AuthService interface {
	register.Service
	login.Service
	logout.Service
	middlewarectx.Authenticator
}

// BillingService оплата и подтверждение premium.
type BillingService interface {
	checkout.Service
	success.Service
	webhook.Service
}

// RegisterRoutes регистрирует все маршруты приложения.
func RegisterRoutes(r chi.Router, logger *slog.Logger, s Services) {
	// Глобальные middleware
	r.Use(
		middleware.RequestID,
		middleware.RealIP,
		middleware.Logger,
		middleware.Recoverer,
	)

	r.Get("/health", health.New(logger, s.Health).ServeHTTP)

	r.Route("/api/v1", func(r chi.Router) {
		// Открытые конечные точки
		r.Group(func(r chi.Router) {
			r.Use(middlewarectx.RateLimitMiddleware(s.Limiter, logger))
			r.Post("/register", register.New(logger, s.Auth).ServeHTTP)
			r.Post("/login", login.New(logger, s.Auth, s.Cookie).ServeHTTP)
			r.Post("/logout", logout.New(logger, s.Auth, s.Cookie.Name).ServeHTTP)
			r.Get("/checkout/cancel", cancel.New(logger).ServeHTTP)
		})

		// Группа с сессией
		r.Group(func(r chi.Router) {
			r.Use(middlewarectx.SessionMiddleware(s.Auth, s.Cookie.Name, logger))
			r.Use(middlewarectx.RateLimitMiddleware(s.Limiter, logger))
			r.Post("/uploads", create.New(logger, s.Upload, s.MaxBytes).ServeHTTP)
			r.Get("/audio/{name}", audio.New(logger, s.Audio).ServeHTTP)
			r.Get("/account", account.New(logger, s.Quota).ServeHTTP)
			r.Post("/checkout", checkout.New(logger, s.Billing).ServeHTTP)
			r.Get("/checkout/success", success.New(logger, s.Billing).ServeHTTP)
		})

		// Webhook endpoint (без аутентификации и лимита)
		r.Post("/billing/webhook", webhook.New(logger, s.Billing).ServeHTTP)
	})

	r.Handle("/metrics", promhttp.HandlerFor(s.Gatherer, promhttp.HandlerOpts{}))
	// Swagger docs endpoint
	r.Get("/docs/*", httpSwagger.WrapHandler)
}
