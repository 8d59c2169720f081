package webhook

import (
	"context"

	"github.com/emekaobi/shortlet-payments/internal/domain/booking"
	domainErrors "github.com/emekaobi/shortlet-payments/internal/domain/errors"
	"github.com/emekaobi/shortlet-payments/internal/domain/event"
	"github.com/emekaobi/shortlet-payments/internal/domain/intent"
	"github.com/emekaobi/shortlet-payments/internal/engine"
	"github.com/emekaobi/shortlet-payments/internal/providers"
	"github.com/rs/zerolog"
)

// ReplayResponse reports the result of an admin replay.
type ReplayResponse struct {
	RecordedOutcome event.Outcome
	Applied         bool
	PaymentStatus   intent.Status
	BookingStatus   booking.Status
}

// ReplayUseCase re-drives a recorded provider event for operators. It
// deliberately skips the dedup short-circuit: instead of trusting the
// stored payload it re-verifies against the provider and feeds fresh
// evidence through the same decision and write path the webhook uses.
// Idempotent application makes this safe to run any number of times.
type ReplayUseCase struct {
	events            event.Repository
	intents           intent.Repository
	bookings          booking.Repository
	factory           *providers.Factory
	applier           *Applier
	maxVerifyAttempts int
	logger            zerolog.Logger
}

// NewReplayUseCase creates a new ReplayUseCase.
func NewReplayUseCase(
	events event.Repository,
	intents intent.Repository,
	bookings booking.Repository,
	factory *providers.Factory,
	applier *Applier,
	maxVerifyAttempts int,
	logger zerolog.Logger,
) *ReplayUseCase {
	return &ReplayUseCase{
		events:            events,
		intents:           intents,
		bookings:          bookings,
		factory:           factory,
		applier:           applier,
		maxVerifyAttempts: maxVerifyAttempts,
		logger:            logger,
	}
}

// Execute replays the event with the given provider event id.
func (uc *ReplayUseCase) Execute(ctx context.Context, providerEventID string) (*ReplayResponse, error) {
	rec, err := uc.events.Get(ctx, providerEventID)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, domainErrors.NewDomainError("event_not_found",
			"no recorded event with id "+providerEventID, domainErrors.ErrPaymentNotFound)
	}

	in, err := uc.intents.GetByReference(ctx, rec.Provider, rec.Reference)
	if err != nil {
		return nil, err
	}
	b, err := uc.bookings.Get(ctx, in.BookingID)
	if err != nil {
		return nil, err
	}

	provider, err := uc.factory.Get(rec.Provider)
	if err != nil {
		return nil, err
	}
	outcome, verifyErr := provider.Verify(ctx, rec.Reference)

	decision := engine.Decide(engine.Input{
		BookingStatus:     b.Status,
		BookingMode:       b.Mode,
		IntentStatus:      in.Status,
		IntentAmount:      in.Amount,
		VerifyAttempts:    in.VerifyAttempts,
		Outcome:           outcome,
		VerifyErr:         verifyErr,
		MaxVerifyAttempts: uc.maxVerifyAttempts,
	})

	if err := uc.applier.Apply(ctx, b, in, outcome, decision); err != nil {
		return nil, err
	}

	paymentStatus := in.Status
	if decision.NextPaymentStatus != nil {
		paymentStatus = *decision.NextPaymentStatus
	}

	uc.logger.Info().
		Str("provider_event_id", providerEventID).
		Str("reference", rec.Reference).
		Str("payment_status", string(paymentStatus)).
		Str("booking_status", string(b.Status)).
		Msg("Replayed provider event")

	return &ReplayResponse{
		RecordedOutcome: rec.Outcome,
		Applied:         movedState(decision),
		PaymentStatus:   paymentStatus,
		BookingStatus:   b.Status,
	}, nil
}
