package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	appBooking "github.com/emekaobi/shortlet-payments/internal/application/booking"
	"github.com/emekaobi/shortlet-payments/internal/application/checkout"
	"github.com/emekaobi/shortlet-payments/internal/application/reconcile"
	"github.com/emekaobi/shortlet-payments/internal/application/webhook"
	"github.com/emekaobi/shortlet-payments/internal/bootstrap"
	"github.com/emekaobi/shortlet-payments/internal/controller"
	infraRedis "github.com/emekaobi/shortlet-payments/internal/infrastructure/redis"
	"github.com/emekaobi/shortlet-payments/internal/repository/postgres"
)

func main() {
	ctx := context.Background()

	app, err := bootstrap.New(ctx, "shortlet-payments-api", "shortlet")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to bootstrap: %v\n", err)
		os.Exit(1)
	}
	defer app.Close()

	// --- Repositories ---
	bookingRepo := postgres.NewBookingRepository(app.Pool)
	intentRepo := postgres.NewIntentRepository(app.Pool)
	eventRepo := postgres.NewEventRepository(app.Pool)

	// --- Providers and notifications ---
	factory := app.ProviderFactory()
	dispatcher := infraRedis.NewStreamDispatcher(app.Redis, app.Logger)

	// --- Application services ---
	applier := webhook.NewApplier(bookingRepo, intentRepo, dispatcher, app.Logger)
	createBookingUC := appBooking.NewCreateBookingUseCase(bookingRepo)
	decideBookingUC := appBooking.NewDecideBookingUseCase(bookingRepo, dispatcher)
	initCheckoutUC := checkout.NewInitializeCheckoutUseCase(bookingRepo, intentRepo, factory, app.Metrics)
	getStatusUC := checkout.NewGetStatusUseCase(bookingRepo, intentRepo)
	processor := webhook.NewProcessor(
		bookingRepo, intentRepo, eventRepo, applier, postgres.NewTxManager(app.Pool),
		app.Config.Reconcile.MaxVerifyAttempts, app.Metrics, app.Logger,
	)
	replayUC := webhook.NewReplayUseCase(
		eventRepo, intentRepo, bookingRepo, factory, applier,
		app.Config.Reconcile.MaxVerifyAttempts, app.Logger,
	)

	// The trigger endpoint shares the same scheduler the reconciler
	// binary runs on a timer; the pass guard keeps them from stacking.
	guard := infraRedis.NewPassLock(app.Redis, "reconcile:pass", app.Config.Reconcile.PassLockTTL)
	scheduler := reconcile.NewScheduler(
		intentRepo, bookingRepo, factory, applier, guard,
		reconcile.Config{
			StaleThreshold:    app.Config.Reconcile.StaleThreshold,
			BatchSize:         app.Config.Reconcile.BatchSize,
			Workers:           app.Config.Reconcile.Workers,
			LeaseDuration:     app.Config.Reconcile.LeaseDuration,
			CallTimeout:       app.Config.Providers.CallTimeout,
			MaxVerifyAttempts: app.Config.Reconcile.MaxVerifyAttempts,
		},
		app.Metrics, app.Logger,
	)

	// --- Build router ---
	router := controller.NewRouter(controller.RouterDeps{
		Pool:          app.Pool,
		RedisClient:   app.Redis,
		CreateBooking: createBookingUC,
		DecideBooking: decideBookingUC,
		InitCheckout:  initCheckoutUC,
		GetStatus:     getStatusUC,
		Processor:     processor,
		Replay:        replayUC,
		Scheduler:     scheduler,
		Metrics:       app.Metrics,
		Providers:     app.Config.Providers,
		Auth:          app.Config.Auth,
		CORS:          app.Config.Server.CORS,
		Logger:        app.Logger,
	})

	// --- HTTP server ---
	addr := fmt.Sprintf(":%d", app.Config.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  app.Config.Server.ReadTimeout,
		WriteTimeout: app.Config.Server.WriteTimeout,
		IdleTimeout:  app.Config.Server.IdleTimeout,
	}

	go func() {
		app.Logger.Info().Str("addr", addr).Msg("Starting HTTP server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			app.Logger.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	app.Logger.Info().Msg("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), app.Config.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		app.Logger.Error().Err(err).Msg("Server forced to shutdown")
	}
	app.Logger.Info().Msg("Server exited")
}
