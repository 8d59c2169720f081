package controller

import (
	"time"

	appBooking "github.com/emekaobi/shortlet-payments/internal/application/booking"
	"github.com/emekaobi/shortlet-payments/internal/application/checkout"
	"github.com/emekaobi/shortlet-payments/internal/application/reconcile"
	"github.com/emekaobi/shortlet-payments/internal/application/webhook"
	"github.com/emekaobi/shortlet-payments/internal/infrastructure/config"
	"github.com/emekaobi/shortlet-payments/internal/infrastructure/observability"
	customMW "github.com/emekaobi/shortlet-payments/internal/middleware"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

type RouterDeps struct {
	Pool        *pgxpool.Pool
	RedisClient *redis.Client

	CreateBooking *appBooking.CreateBookingUseCase
	DecideBooking *appBooking.DecideBookingUseCase
	InitCheckout  *checkout.InitializeCheckoutUseCase
	GetStatus     *checkout.GetStatusUseCase
	Processor     *webhook.Processor
	Replay        *webhook.ReplayUseCase
	Scheduler     *reconcile.Scheduler

	Metrics   *observability.Metrics
	Providers config.ProvidersConfig
	Auth      config.AuthConfig
	CORS      config.CORSConfig
	Logger    zerolog.Logger
}

func NewRouter(deps RouterDeps) *chi.Mux {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(customMW.Tracing())
	r.Use(chimw.RealIP)
	r.Use(chimw.Logger)
	r.Use(chimw.Recoverer)
	r.Use(chimw.Timeout(60 * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   deps.CORS.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: deps.CORS.AllowCredentials,
		MaxAge:           300,
	}))
	r.Use(customMW.SecurityHeaders())
	r.Use(customMW.Metrics(deps.Metrics))

	healthH := NewHealthController(deps.Pool, deps.RedisClient)
	bookingH := NewBookingController(deps.CreateBooking, deps.DecideBooking, deps.InitCheckout, deps.GetStatus)
	webhookH := NewWebhookController(deps.Processor, deps.Providers, deps.Logger)
	adminH := NewAdminController(deps.Replay, deps.Scheduler)

	r.Get("/health", healthH.Health)
	r.Get("/health/live", healthH.Liveness)
	r.Get("/health/ready", healthH.Readiness)

	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		// Bookings
		r.Post("/bookings", bookingH.Create)
		r.With(customMW.RateLimit(60)).Post("/bookings/{id}/checkout", bookingH.Checkout)
		r.Get("/bookings/{id}/status", bookingH.Status)
		r.Post("/bookings/{id}/decision", bookingH.Decide)

		// Operator surface
		r.Route("/admin", func(r chi.Router) {
			r.Use(customMW.RequireAuth(deps.Auth.JWTSecret))
			r.Use(customMW.RequireAdmin())
			r.Post("/events/{eventID}/replay", adminH.Replay)
		})
	})

	// Provider deliveries authenticate by signature, not by session.
	// Rate limiting keeps a misbehaving sender from starving the pool.
	r.With(customMW.RateLimit(300)).Post("/webhooks/{provider}", webhookH.Receive)

	// Out-of-band reconcile trigger for operators and cron, shared-secret
	// guarded. Disabled entirely when no token is configured.
	r.With(customMW.RequireTriggerToken(deps.Auth.TriggerToken)).
		Post("/internal/reconcile/run", adminH.TriggerReconcile)

	return r
}
