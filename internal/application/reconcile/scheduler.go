package reconcile

import (
	"context"
	"sync"
	"time"

	"github.com/emekaobi/shortlet-payments/internal/application/webhook"
	"github.com/emekaobi/shortlet-payments/internal/domain/booking"
	"github.com/emekaobi/shortlet-payments/internal/domain/intent"
	"github.com/emekaobi/shortlet-payments/internal/engine"
	"github.com/emekaobi/shortlet-payments/internal/infrastructure/observability"
	"github.com/emekaobi/shortlet-payments/internal/providers"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// PassGuard keeps replicas from starting overlapping passes. Best-effort
// only; per-intent correctness rests on the database lease.
type PassGuard interface {
	Acquire(ctx context.Context) (bool, error)
	Release(ctx context.Context) error
}

// Summary is the result of one reconciliation pass.
type Summary struct {
	Scanned         int
	Locked          int
	SkippedTerminal int
	Reconciled      int
	StillPending    int
	Errors          int
}

// Config bounds one reconciliation pass.
type Config struct {
	StaleThreshold    time.Duration
	BatchSize         int
	Workers           int
	LeaseDuration     time.Duration
	CallTimeout       time.Duration
	MaxVerifyAttempts int
}

// Scheduler drives periodic reconciliation of stale payment intents.
// Each intent is claimed with a database lease, verified against its
// provider, and settled through the same applier the webhook path uses.
type Scheduler struct {
	intents  intent.Repository
	bookings booking.Repository
	factory  *providers.Factory
	applier  *webhook.Applier
	guard    PassGuard
	cfg      Config
	metrics  *observability.Metrics
	logger   zerolog.Logger
}

// NewScheduler creates a new Scheduler. guard may be nil.
func NewScheduler(
	intents intent.Repository,
	bookings booking.Repository,
	factory *providers.Factory,
	applier *webhook.Applier,
	guard PassGuard,
	cfg Config,
	metrics *observability.Metrics,
	logger zerolog.Logger,
) *Scheduler {
	return &Scheduler{
		intents:  intents,
		bookings: bookings,
		factory:  factory,
		applier:  applier,
		guard:    guard,
		cfg:      cfg,
		metrics:  metrics,
		logger:   logger,
	}
}

// RunPass executes one reconciliation pass and returns its summary.
func (s *Scheduler) RunPass(ctx context.Context) (Summary, error) {
	started := time.Now()

	if s.guard != nil {
		ok, err := s.guard.Acquire(ctx)
		if err != nil {
			// Redis being down must not stop reconciliation.
			s.logger.Warn().Err(err).Msg("Pass guard unavailable, proceeding without it")
		} else if !ok {
			s.logger.Debug().Msg("Another replica is mid-pass, skipping")
			return Summary{}, nil
		} else {
			defer func() {
				if err := s.guard.Release(context.WithoutCancel(ctx)); err != nil {
					s.logger.Warn().Err(err).Msg("Failed to release pass guard")
				}
			}()
		}
	}

	cutoff := time.Now().Add(-s.cfg.StaleThreshold)
	intents, err := s.intents.ListNeedingReconcile(ctx, cutoff, s.cfg.BatchSize)
	if err != nil {
		return Summary{}, err
	}

	var (
		mu      sync.Mutex
		summary Summary
	)
	summary.Scanned = len(intents)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.Workers)
	for _, in := range intents {
		in := in
		g.Go(func() error {
			outcome := s.reconcileOne(gctx, in)
			mu.Lock()
			switch outcome {
			case outcomeLocked:
				summary.Locked++
			case outcomeSkippedTerminal:
				summary.SkippedTerminal++
			case outcomeReconciled:
				summary.Reconciled++
			case outcomeStillPending:
				summary.StillPending++
			case outcomeError:
				summary.Errors++
			}
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	if s.metrics != nil {
		s.metrics.ReconcilePassDuration.Observe(time.Since(started).Seconds())
		s.metrics.ReconcileScanned.Add(float64(summary.Scanned))
	}
	s.logger.Info().
		Int("scanned", summary.Scanned).
		Int("locked", summary.Locked).
		Int("skipped_terminal", summary.SkippedTerminal).
		Int("reconciled", summary.Reconciled).
		Int("still_pending", summary.StillPending).
		Int("errors", summary.Errors).
		Dur("duration", time.Since(started)).
		Msg("Reconciliation pass complete")

	return summary, nil
}

type passOutcome string

const (
	outcomeLocked          passOutcome = "locked"
	outcomeSkippedTerminal passOutcome = "skipped_terminal"
	outcomeReconciled      passOutcome = "reconciled"
	outcomeStillPending    passOutcome = "still_pending"
	outcomeError           passOutcome = "error"
)

func (s *Scheduler) reconcileOne(ctx context.Context, in *intent.Intent) passOutcome {
	logger := s.logger.With().
		Str("intent_id", in.ID.String()).
		Str("provider", in.Provider).
		Str("reference", in.Reference).
		Logger()

	b, err := s.bookings.Get(ctx, in.BookingID)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to load booking")
		return s.count(outcomeError)
	}

	// Terminal fast path: no lease, no provider call, just cleanup.
	if in.IsTerminal() && b.IsTerminal() {
		if err := s.intents.ClearReconcileState(ctx, in.ID); err != nil {
			logger.Error().Err(err).Msg("Failed to clear reconcile state")
			return s.count(outcomeError)
		}
		return s.count(outcomeSkippedTerminal)
	}

	ok, err := s.intents.AcquireLock(ctx, in.ID, s.cfg.LeaseDuration)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to acquire lease")
		return s.count(outcomeError)
	}
	if !ok {
		if s.metrics != nil {
			s.metrics.ReconcileLeaseMisses.Inc()
		}
		return s.count(outcomeLocked)
	}

	provider, err := s.factory.Get(in.Provider)
	if err != nil {
		logger.Error().Err(err).Msg("Unknown provider on intent")
		_ = s.intents.ReleaseLock(ctx, in.ID)
		return s.count(outcomeError)
	}

	verifyCtx, cancel := context.WithTimeout(ctx, s.cfg.CallTimeout)
	outcome, verifyErr := provider.Verify(verifyCtx, in.Reference)
	cancel()

	decision := engine.Decide(engine.Input{
		BookingStatus:     b.Status,
		BookingMode:       b.Mode,
		IntentStatus:      in.Status,
		IntentAmount:      in.Amount,
		VerifyAttempts:    in.VerifyAttempts,
		Outcome:           outcome,
		VerifyErr:         verifyErr,
		MaxVerifyAttempts: s.cfg.MaxVerifyAttempts,
	})

	if err := s.applier.Apply(ctx, b, in, outcome, decision); err != nil {
		logger.Error().Err(err).Msg("Failed to apply reconcile decision")
		_ = s.intents.ReleaseLock(ctx, in.ID)
		return s.count(outcomeError)
	}

	// Success and failure paths already clear the lease in the same
	// update; release covers the attempt-counting path.
	if err := s.intents.ReleaseLock(ctx, in.ID); err != nil {
		logger.Warn().Err(err).Msg("Failed to release lease")
	}

	if decision.NextPaymentStatus != nil {
		if s.metrics != nil {
			s.metrics.PaymentOutcomes.WithLabelValues(in.Provider, string(*decision.NextPaymentStatus)).Inc()
		}
		return s.count(outcomeReconciled)
	}
	return s.count(outcomeStillPending)
}

func (s *Scheduler) count(o passOutcome) passOutcome {
	if s.metrics != nil {
		s.metrics.ReconcileOutcomes.WithLabelValues(string(o)).Inc()
	}
	return o
}
