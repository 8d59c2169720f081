package reconcile

import (
	"context"
	"errors"
	"time"

	"github.com/emekaobi/shortlet-payments/internal/domain/booking"
	domainErrors "github.com/emekaobi/shortlet-payments/internal/domain/errors"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// SweepConfig bounds one expiry sweep.
type SweepConfig struct {
	HostResponseWindow time.Duration
	PaymentWindow      time.Duration
	BatchSize          int
}

// SweepSummary is the result of one expiry sweep.
type SweepSummary struct {
	DecisionExpired int
	PaymentExpired  int
	Lost            int
	Errors          int
}

// Sweeper expires bookings whose window elapsed: pending bookings the
// host never answered and pending_payment bookings whose guest never
// paid. Conditional transitions mean a sweep racing a host decision or
// a late payment loses cleanly.
type Sweeper struct {
	bookings booking.Repository
	cfg      SweepConfig
	logger   zerolog.Logger
}

// NewSweeper creates a new Sweeper.
func NewSweeper(bookings booking.Repository, cfg SweepConfig, logger zerolog.Logger) *Sweeper {
	return &Sweeper{bookings: bookings, cfg: cfg, logger: logger}
}

// Run executes one sweep over both windows.
func (s *Sweeper) Run(ctx context.Context) (SweepSummary, error) {
	var summary SweepSummary
	now := time.Now()

	decisionOverdue, err := s.bookings.ListDecisionOverdue(ctx, now.Add(-s.cfg.HostResponseWindow), s.cfg.BatchSize)
	if err != nil {
		return summary, err
	}
	for _, b := range decisionOverdue {
		s.expire(ctx, b.ID, booking.StatusPending, &summary.DecisionExpired, &summary)
	}

	paymentOverdue, err := s.bookings.ListPaymentOverdue(ctx, now.Add(-s.cfg.PaymentWindow), s.cfg.BatchSize)
	if err != nil {
		return summary, err
	}
	for _, b := range paymentOverdue {
		s.expire(ctx, b.ID, booking.StatusPendingPayment, &summary.PaymentExpired, &summary)
	}

	s.logger.Info().
		Int("decision_expired", summary.DecisionExpired).
		Int("payment_expired", summary.PaymentExpired).
		Int("lost", summary.Lost).
		Int("errors", summary.Errors).
		Msg("Expiry sweep complete")
	return summary, nil
}

func (s *Sweeper) expire(ctx context.Context, id uuid.UUID, from booking.Status, expired *int, summary *SweepSummary) {
	err := s.bookings.Transition(ctx, id, from, booking.StatusExpired)
	switch {
	case err == nil:
		*expired++
	case errors.Is(err, domainErrors.ErrStaleTransition):
		// Someone beat the sweep: a host answered or a payment landed.
		summary.Lost++
	default:
		s.logger.Error().Err(err).Msg("Failed to expire booking")
		summary.Errors++
	}
}
