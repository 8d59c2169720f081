package webhook

import (
	"context"
	"errors"
	"time"

	"github.com/emekaobi/shortlet-payments/internal/domain/booking"
	domainErrors "github.com/emekaobi/shortlet-payments/internal/domain/errors"
	"github.com/emekaobi/shortlet-payments/internal/domain/intent"
	"github.com/emekaobi/shortlet-payments/internal/engine"
	"github.com/emekaobi/shortlet-payments/internal/notify"
	"github.com/emekaobi/shortlet-payments/internal/providers"
	"github.com/rs/zerolog"
)

// Applier executes an engine decision against the stores. It is the
// single write path shared by the webhook processor and the reconciler:
// both produce decisions, neither writes state on its own.
//
// Effects run in fixed order: the payment intent first, then the booking
// edge, then notifications. A crash between the first two writes leaves
// a succeeded intent with an unmoved booking, which the next decision
// repairs; notifications are fired only after the edge is won, so a
// replayed event can never notify twice.
type Applier struct {
	bookings   booking.Repository
	intents    intent.Repository
	dispatcher notify.Dispatcher
	logger     zerolog.Logger
}

// NewApplier creates a new Applier.
func NewApplier(
	bookings booking.Repository,
	intents intent.Repository,
	dispatcher notify.Dispatcher,
	logger zerolog.Logger,
) *Applier {
	return &Applier{
		bookings:   bookings,
		intents:    intents,
		dispatcher: dispatcher,
		logger:     logger,
	}
}

// Apply executes the decision for the given intent and booking. The
// outcome argument supplies the provider evidence referenced by success
// effects; it may be nil when the decision carries none. Intent effects
// always precede the booking edge in the decision's effect list, so the
// two phases run in the fixed order the engine assumes.
func (a *Applier) Apply(ctx context.Context, b *booking.Booking, in *intent.Intent, outcome *providers.VerifyOutcome, d engine.Decision) error {
	if err := a.applyPaymentEffects(ctx, in, outcome, d); err != nil {
		return err
	}
	return a.applyBookingEffects(ctx, b, in, d)
}

// applyPaymentEffects executes the intent-side effects. The webhook
// processor calls this phase inside the same transaction as the dedup
// ledger write.
func (a *Applier) applyPaymentEffects(ctx context.Context, in *intent.Intent, outcome *providers.VerifyOutcome, d engine.Decision) error {
	for _, effect := range d.Effects {
		switch effect.Kind {
		case engine.EffectMarkPaymentSucceeded:
			if err := a.markSucceeded(ctx, in, outcome); err != nil {
				return err
			}
		case engine.EffectMarkPaymentFailed:
			if err := a.intents.MarkFailed(ctx, in.ID, effect.Reason); err != nil {
				return err
			}
		case engine.EffectMarkNeedsReconcile:
			if err := a.intents.MarkNeedsReconcile(ctx, in.ID, effect.Reason); err != nil {
				return err
			}
		case engine.EffectIncrementVerifyAttempts:
			if err := a.intents.IncrementVerifyAttempts(ctx, in.ID); err != nil {
				return err
			}
		case engine.EffectClearReconcileState:
			if err := a.intents.ClearReconcileState(ctx, in.ID); err != nil {
				return err
			}
		}
	}
	return nil
}

// applyBookingEffects executes the booking edge and the notifications
// behind it.
func (a *Applier) applyBookingEffects(ctx context.Context, b *booking.Booking, in *intent.Intent, d engine.Decision) error {
	for _, effect := range d.Effects {
		switch effect.Kind {
		case engine.EffectTransitionBooking:
			won, err := a.transition(ctx, b, in, d)
			if err != nil {
				return err
			}
			if !won {
				// The edge went to someone else. Everything after the
				// transition in the effect list is notification work that
				// belongs to the winner.
				return nil
			}
		case engine.EffectNotifyGuestConfirmed:
			a.dispatcher.Dispatch(ctx, notify.KindGuestConfirmed, b.ID)
		case engine.EffectNotifyHostNewBooking:
			a.dispatcher.Dispatch(ctx, notify.KindHostNewBooking, b.ID)
		}
	}
	return nil
}

func (a *Applier) markSucceeded(ctx context.Context, in *intent.Intent, outcome *providers.VerifyOutcome) error {
	var txID string
	if outcome != nil && outcome.ProviderTxID != nil {
		txID = *outcome.ProviderTxID
	}
	paidAt := time.Now()
	if outcome != nil && outcome.PaidAt != nil {
		paidAt = *outcome.PaidAt
	}
	var raw []byte
	if outcome != nil {
		raw = outcome.Raw
	}
	return a.intents.MarkSucceeded(ctx, in.ID, txID, paidAt, raw)
}

// transition issues the conditional booking update. A stale result means
// a concurrent writer won the edge: the booking is re-read and, since
// all writers drive toward the same convergence, the loss is treated as
// done work rather than an error. Losing to a writer that closed the
// booking is the one exception: money was just captured for a stay that
// cannot be honored, so the intent is flagged for manual review.
func (a *Applier) transition(ctx context.Context, b *booking.Booking, in *intent.Intent, d engine.Decision) (bool, error) {
	err := a.bookings.Transition(ctx, b.ID, b.Status, *d.NextBookingStatus)
	if err == nil {
		b.Status = *d.NextBookingStatus
		return true, nil
	}
	if !errors.Is(err, domainErrors.ErrStaleTransition) {
		return false, err
	}

	current, readErr := a.bookings.Get(ctx, b.ID)
	if readErr != nil {
		return false, readErr
	}
	if booking.IsTerminal(current.Status) && current.Status != *d.NextBookingStatus {
		a.logger.Error().
			Str("booking_id", b.ID.String()).
			Str("intent_id", in.ID.String()).
			Str("booking_status", string(current.Status)).
			Msg("Payment captured for a booking that already closed")
		if err := a.intents.MarkNeedsReconcile(ctx, in.ID, engine.ReasonLateCapture); err != nil {
			return false, err
		}
		b.Status = current.Status
		return false, nil
	}
	a.logger.Info().
		Str("booking_id", b.ID.String()).
		Str("expected", string(b.Status)).
		Str("found", string(current.Status)).
		Msg("Booking edge lost to concurrent writer, treating as converged")
	b.Status = current.Status
	return false, nil
}
