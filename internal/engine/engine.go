// Package engine holds the pure decision function at the heart of
// payment reconciliation. Decide performs no I/O and never fails: every
// combination of booking state, intent state and verification evidence
// maps to a decision, even if the decision is "change nothing".
package engine

import (
	"github.com/emekaobi/shortlet-payments/internal/domain/booking"
	domainErrors "github.com/emekaobi/shortlet-payments/internal/domain/errors"
	"github.com/emekaobi/shortlet-payments/internal/domain/intent"
	"github.com/emekaobi/shortlet-payments/internal/domain/money"
	"github.com/emekaobi/shortlet-payments/internal/providers"
)

// EffectKind names a side-effect intent. The applier executes them in a
// fixed order: payment intent first, then booking, then notifications.
type EffectKind string

const (
	EffectMarkPaymentSucceeded    EffectKind = "mark_payment_succeeded"
	EffectMarkPaymentFailed       EffectKind = "mark_payment_failed"
	EffectTransitionBooking       EffectKind = "transition_booking"
	EffectNotifyGuestConfirmed    EffectKind = "notify_guest_confirmed"
	EffectNotifyHostNewBooking    EffectKind = "notify_host_new_booking"
	EffectMarkNeedsReconcile      EffectKind = "mark_needs_reconcile"
	EffectIncrementVerifyAttempts EffectKind = "increment_verify_attempts"
	EffectClearReconcileState     EffectKind = "clear_reconcile_state"
)

// Reasons attached to MarkNeedsReconcile / MarkPaymentFailed effects.
const (
	ReasonAmountMismatch      = "amount_mismatch"
	ReasonCurrencyMismatch    = "currency_mismatch"
	ReasonMaxAttemptsExceeded = "max_attempts_exceeded"
	ReasonLateCapture         = "late_capture"
)

// Effect is one side-effect intent with an optional reason.
type Effect struct {
	Kind   EffectKind
	Reason string
}

// Input is the evidence Decide rules on. Outcome and VerifyErr are
// mutually exclusive: a classified adapter error means no outcome was
// obtained.
type Input struct {
	BookingStatus  booking.Status
	BookingMode    booking.Mode
	IntentStatus   intent.Status
	IntentAmount   money.Amount
	VerifyAttempts int

	Outcome   *providers.VerifyOutcome
	VerifyErr error

	// MaxVerifyAttempts is the transient-error ceiling before the row is
	// escalated to manual review.
	MaxVerifyAttempts int
}

// Decision is the engine's answer: the statuses to converge to plus the
// side-effect intents. Nil next-status pointers mean "leave unchanged".
type Decision struct {
	NextBookingStatus *booking.Status
	NextPaymentStatus *intent.Status
	Effects           []Effect
}

func (d Decision) has(kind EffectKind) bool {
	for _, e := range d.Effects {
		if e.Kind == kind {
			return true
		}
	}
	return false
}

// HasEffect reports whether the decision carries the given effect.
func (d Decision) HasEffect(kind EffectKind) bool { return d.has(kind) }

// Decide maps the current state and verification evidence to the next
// state. Pure function; the invariants it guards:
//
//   - exactly-once confirmation: the success edge is only emitted from a
//     non-terminal booking status with a non-terminal intent
//   - fail-closed: an OK outcome whose amount or currency disagrees with
//     the intent never confirms anything
//   - terminal skip: once both sides are terminal the only effect is
//     lease/flag cleanup, never a repeated notification
func Decide(in Input) Decision {
	// Skip-terminal fast path.
	if booking.IsTerminal(in.BookingStatus) && terminalIntent(in.IntentStatus) {
		return Decision{Effects: []Effect{{Kind: EffectClearReconcileState}}}
	}

	// No outcome: the adapter failed before producing evidence.
	if in.VerifyErr != nil {
		if domainErrors.IsTransient(in.VerifyErr) {
			return retryLater(in)
		}
		// Permanent adapter error: the provider definitively does not
		// know this payment. The intent fails; the booking keeps its
		// pre-payment status until the expiry sweep claims it, so a
		// fresh intent can still be created for retry.
		return failPayment(in, in.VerifyErr.Error())
	}

	if in.Outcome == nil {
		// Neither evidence nor error. Nothing to decide on.
		return Decision{}
	}

	if !in.Outcome.OK {
		// Only a final verdict may fail the intent. An in-flight status
		// ("pending", "ongoing") would free the one-active-intent slot
		// while the charge can still complete, opening a double-charge
		// window; those rows wait for the next verification instead.
		if !in.Outcome.Definitive {
			return retryLater(in)
		}
		return failPayment(in, "provider reported "+in.Outcome.Status)
	}

	// Provider says success. Believe it only if the money matches.
	observed := money.Amount{Minor: in.Outcome.AmountMinor, Currency: in.Outcome.Currency}
	if !in.IntentAmount.Equal(observed) {
		reason := ReasonAmountMismatch
		if in.IntentAmount.Minor == observed.Minor {
			reason = ReasonCurrencyMismatch
		}
		return Decision{Effects: []Effect{
			{Kind: EffectMarkNeedsReconcile, Reason: reason},
		}}
	}

	// Verified success. If the intent already converged, only the
	// booking may still need its edge (crash between the two writes).
	succeeded := intent.StatusSucceeded
	d := Decision{NextPaymentStatus: &succeeded}
	if in.IntentStatus != intent.StatusSucceeded {
		d.Effects = append(d.Effects, Effect{Kind: EffectMarkPaymentSucceeded})
	}

	// Payment success only ever drives the pending_payment edge. A
	// request-mode booking sitting in pending belongs to the host
	// decision flow; a replayed success event must not touch it.
	next := successEdge(in)
	if in.BookingStatus == booking.StatusPendingPayment && booking.EdgeAllowed(in.BookingStatus, next) {
		d.NextBookingStatus = &next
		d.Effects = append(d.Effects, Effect{Kind: EffectTransitionBooking})
		if next == booking.StatusConfirmed {
			d.Effects = append(d.Effects, Effect{Kind: EffectNotifyGuestConfirmed})
		}
		d.Effects = append(d.Effects, Effect{Kind: EffectNotifyHostNewBooking})
	} else if booking.IsTerminal(in.BookingStatus) && in.IntentStatus != intent.StatusSucceeded {
		// Money just captured for a booking that already closed (expiry
		// sweep, cancellation). The stay cannot be honored; the row goes
		// to the manual-review queue for a refund decision.
		d.Effects = append(d.Effects, Effect{Kind: EffectMarkNeedsReconcile, Reason: ReasonLateCapture})
	} else {
		// Booking already moved (or cannot move): clean up only.
		d.Effects = append(d.Effects, Effect{Kind: EffectClearReconcileState})
	}
	return d
}

// retryLater counts one verification attempt and leaves both statuses
// alone. At the attempt ceiling the row is escalated to manual review
// instead of looping forever.
func retryLater(in Input) Decision {
	if in.VerifyAttempts+1 >= in.MaxVerifyAttempts {
		return Decision{Effects: []Effect{
			{Kind: EffectIncrementVerifyAttempts},
			{Kind: EffectMarkNeedsReconcile, Reason: ReasonMaxAttemptsExceeded},
		}}
	}
	return Decision{Effects: []Effect{{Kind: EffectIncrementVerifyAttempts}}}
}

// failPayment marks the intent failed without touching the booking. The
// booking's own expiry handling owns the cancel/expire edge so a failed
// charge never strands a bookable stay.
func failPayment(in Input, reason string) Decision {
	if in.IntentStatus == intent.StatusFailed {
		return Decision{Effects: []Effect{{Kind: EffectClearReconcileState}}}
	}
	failed := intent.StatusFailed
	return Decision{
		NextPaymentStatus: &failed,
		Effects:           []Effect{{Kind: EffectMarkPaymentFailed, Reason: reason}},
	}
}

func successEdge(in Input) booking.Status {
	if in.BookingMode == booking.ModeRequest {
		return booking.StatusPending
	}
	return booking.StatusConfirmed
}

func terminalIntent(s intent.Status) bool {
	return s == intent.StatusSucceeded || s == intent.StatusFailed
}
