package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/emekaobi/shortlet-payments/internal/application/reconcile"
	"github.com/emekaobi/shortlet-payments/internal/application/webhook"
	"github.com/emekaobi/shortlet-payments/internal/bootstrap"
	infraRedis "github.com/emekaobi/shortlet-payments/internal/infrastructure/redis"
	"github.com/emekaobi/shortlet-payments/internal/repository/postgres"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	app, err := bootstrap.New(ctx, "shortlet-payments-reconciler", "shortlet_reconciler")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to bootstrap: %v\n", err)
		os.Exit(1)
	}
	defer app.Close()

	// --- Repositories ---
	bookingRepo := postgres.NewBookingRepository(app.Pool)
	intentRepo := postgres.NewIntentRepository(app.Pool)

	// --- Providers and notifications ---
	factory := app.ProviderFactory()
	dispatcher := infraRedis.NewStreamDispatcher(app.Redis, app.Logger)

	// --- Reconciliation ---
	applier := webhook.NewApplier(bookingRepo, intentRepo, dispatcher, app.Logger)
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
	sweeper := reconcile.NewSweeper(bookingRepo, reconcile.SweepConfig{
		HostResponseWindow: app.Config.Booking.HostResponseWindow,
		PaymentWindow:      app.Config.Booking.PaymentWindow,
		BatchSize:          app.Config.Reconcile.SweepBatchSize,
	}, app.Logger)

	// --- Notification consumer ---
	notifyCfg := app.Config.Notify
	consumer := infraRedis.NewStreamConsumer(
		app.Redis,
		infraRedis.NotifyStream,
		notifyCfg.ConsumerGroup,
		app.Config.InstanceID,
		notifyCfg.BatchSize,
		notifyCfg.BlockDuration,
	)
	if err := consumer.CreateGroup(ctx); err != nil {
		app.Logger.Error().Err(err).Msg("Failed to create consumer group")
	}

	app.Logger.Info().
		Dur("pass_interval", app.Config.Reconcile.PassInterval).
		Dur("sweep_interval", app.Config.Reconcile.SweepInterval).
		Str("consumer", app.Config.InstanceID).
		Msg("Reconciler started")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	g, gCtx := errgroup.WithContext(ctx)

	// 1. Periodic reconciliation passes over stale payment intents.
	g.Go(func() error {
		return runPassLoop(gCtx, app.Logger, scheduler, app.Config.Reconcile.PassInterval)
	})

	// 2. Periodic expiry sweeps over overdue bookings.
	g.Go(func() error {
		return runSweepLoop(gCtx, app.Logger, sweeper, app.Config.Reconcile.SweepInterval)
	})

	// 3. Notification delivery (reads from Redis Streams).
	g.Go(func() error {
		return runNotifyConsumer(gCtx, app, consumer)
	})

	// 4. Wait for shutdown signal.
	g.Go(func() error {
		select {
		case <-gCtx.Done():
			return gCtx.Err()
		case <-quit:
			app.Logger.Info().Msg("Shutting down reconciler...")
			cancel()
			return nil
		}
	})

	if err := g.Wait(); err != nil && err != context.Canceled {
		app.Logger.Error().Err(err).Msg("Reconciler error")
	}
	app.Logger.Info().Msg("Reconciler exited")
}

func runPassLoop(ctx context.Context, logger zerolog.Logger, scheduler *reconcile.Scheduler, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}

		summary, err := scheduler.RunPass(ctx)
		if err != nil {
			logger.Error().Err(err).Msg("Reconciliation pass failed")
			continue
		}
		logger.Info().
			Int("scanned", summary.Scanned).
			Int("reconciled", summary.Reconciled).
			Int("still_pending", summary.StillPending).
			Int("locked", summary.Locked).
			Int("skipped_terminal", summary.SkippedTerminal).
			Int("errors", summary.Errors).
			Msg("Reconciliation pass complete")
	}
}

func runSweepLoop(ctx context.Context, logger zerolog.Logger, sweeper *reconcile.Sweeper, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}

		if _, err := sweeper.Run(ctx); err != nil {
			logger.Error().Err(err).Msg("Expiry sweep failed")
		}
	}
}

// runNotifyConsumer drains queued notification intents. Actual delivery
// is owned by the messaging platform; this worker hands intents over and
// acknowledges them so the stream does not grow without bound.
func runNotifyConsumer(ctx context.Context, app *bootstrap.App, consumer *infraRedis.StreamConsumer) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		streams, err := consumer.Read(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			app.Logger.Error().Err(err).Msg("Failed to read notification stream")
			time.Sleep(1 * time.Second)
			continue
		}

		for _, stream := range streams {
			for _, msg := range stream.Messages {
				kind, _ := msg.Values["kind"].(string)
				bookingID, _ := msg.Values["booking_id"].(string)

				app.Logger.Info().
					Str("kind", kind).
					Str("booking_id", bookingID).
					Msg("Delivering notification")
				app.Metrics.NotifyConsumed.WithLabelValues(kind, "delivered").Inc()

				if err := consumer.Ack(ctx, msg.ID); err != nil {
					app.Logger.Warn().Err(err).Str("message_id", msg.ID).Msg("Failed to ack notification")
				}
			}
		}
	}
}
