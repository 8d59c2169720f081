package webhook

import (
	"context"
	"testing"

	"github.com/emekaobi/shortlet-payments/internal/domain/booking"
	"github.com/emekaobi/shortlet-payments/internal/domain/event"
	"github.com/emekaobi/shortlet-payments/internal/domain/intent"
	"github.com/emekaobi/shortlet-payments/internal/notify"
	"github.com/emekaobi/shortlet-payments/internal/providers"
	"github.com/emekaobi/shortlet-payments/internal/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type processorFixture struct {
	bookings  *testutil.MockBookingRepository
	intents   *testutil.MockIntentRepository
	events    *testutil.MockEventRepository
	dispatch  *notify.Recorder
	processor *Processor
}

func newProcessorFixture(t *testing.T) *processorFixture {
	t.Helper()
	bookings := testutil.NewMockBookingRepository()
	intents := testutil.NewMockIntentRepository()
	events := testutil.NewMockEventRepository()
	dispatch := &notify.Recorder{}
	applier := NewApplier(bookings, intents, dispatch, zerolog.Nop())
	return &processorFixture{
		bookings:  bookings,
		intents:   intents,
		events:    events,
		dispatch:  dispatch,
		processor: NewProcessor(bookings, intents, events, applier, testutil.TxPassthrough{}, 5, nil, zerolog.Nop()),
	}
}

func (f *processorFixture) seed(t *testing.T, mode booking.Mode) (*booking.Booking, *intent.Intent) {
	t.Helper()
	b := testutil.NewTestBooking(mode, booking.StatusPendingPayment)
	require.NoError(t, f.bookings.Create(context.Background(), b))
	in := testutil.NewTestIntent(b.ID, "paystack", b.Total.Minor)
	require.NoError(t, f.intents.Create(context.Background(), in))
	return b, in
}

func successRequest(in *intent.Intent, eventID string) ProcessEventRequest {
	return ProcessEventRequest{
		Provider:        "paystack",
		ProviderEventID: eventID,
		Reference:       in.Reference,
		Outcome:         testutil.SuccessOutcome(in.Amount.Minor, "NGN", "tx_1001"),
	}
}

func TestProcessor_SuccessEvent_InstantMode(t *testing.T) {
	f := newProcessorFixture(t)
	b, in := f.seed(t, booking.ModeInstant)

	resp, err := f.processor.Execute(context.Background(), successRequest(in, "paystack:charge.success:1"))
	require.NoError(t, err)

	assert.Equal(t, event.OutcomeApplied, resp.Outcome)
	assert.Equal(t, intent.StatusSucceeded, f.intents.Stored(in.ID).Status)
	assert.Equal(t, booking.StatusConfirmed, f.bookings.Status(b.ID))
	assert.Equal(t, 1, f.dispatch.Count(notify.KindGuestConfirmed))
	assert.Equal(t, 1, f.dispatch.Count(notify.KindHostNewBooking))

	stored := f.intents.Stored(in.ID)
	require.NotNil(t, stored.ProviderTxID)
	assert.Equal(t, "tx_1001", *stored.ProviderTxID)
	assert.NotNil(t, stored.PaidAt)
}

func TestProcessor_SuccessEvent_RequestMode(t *testing.T) {
	f := newProcessorFixture(t)
	b, in := f.seed(t, booking.ModeRequest)

	resp, err := f.processor.Execute(context.Background(), successRequest(in, "paystack:charge.success:2"))
	require.NoError(t, err)

	assert.Equal(t, event.OutcomeApplied, resp.Outcome)
	assert.Equal(t, booking.StatusPending, f.bookings.Status(b.ID), "request mode awaits the host")
	assert.Equal(t, 0, f.dispatch.Count(notify.KindGuestConfirmed))
	assert.Equal(t, 1, f.dispatch.Count(notify.KindHostNewBooking))
}

func TestProcessor_DuplicateEvent_AnswersFromLedger(t *testing.T) {
	f := newProcessorFixture(t)
	b, in := f.seed(t, booking.ModeInstant)

	req := successRequest(in, "paystack:charge.success:3")
	_, err := f.processor.Execute(context.Background(), req)
	require.NoError(t, err)

	resp, err := f.processor.Execute(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, event.OutcomeAlreadyProcessed, resp.Outcome)
	assert.Equal(t, 1, f.events.Count(), "no second ledger row")
	assert.Equal(t, booking.StatusConfirmed, f.bookings.Status(b.ID))
	// Exactly one notification per kind despite the redelivery.
	assert.Equal(t, 1, f.dispatch.Count(notify.KindGuestConfirmed))
}

func TestProcessor_NewEventID_ConvergedState_NoSecondNotify(t *testing.T) {
	// Same payment, different provider event id: the dedup ledger does
	// not short-circuit, but the decision finds converged state.
	f := newProcessorFixture(t)
	b, in := f.seed(t, booking.ModeInstant)

	_, err := f.processor.Execute(context.Background(), successRequest(in, "paystack:charge.success:4"))
	require.NoError(t, err)

	resp, err := f.processor.Execute(context.Background(), successRequest(in, "paystack:charge.success:4b"))
	require.NoError(t, err)

	assert.Equal(t, event.OutcomeAlreadyProcessed, resp.Outcome)
	assert.Equal(t, "state already converged", resp.Reason)
	assert.Equal(t, booking.StatusConfirmed, f.bookings.Status(b.ID))
	assert.Equal(t, 1, f.dispatch.Count(notify.KindGuestConfirmed))
	assert.Equal(t, 2, f.events.Count())
}

func TestProcessor_UnknownReference_Rejected(t *testing.T) {
	f := newProcessorFixture(t)

	resp, err := f.processor.Execute(context.Background(), ProcessEventRequest{
		Provider:        "paystack",
		ProviderEventID: "paystack:charge.success:5",
		Reference:       "slt_never_issued",
		Outcome:         testutil.SuccessOutcome(100, "NGN", "tx_5"),
	})
	require.NoError(t, err)

	assert.Equal(t, event.OutcomeRejected, resp.Outcome)
	assert.Equal(t, "payment_not_found", resp.Reason)
	assert.Equal(t, 1, f.events.Count(), "rejections are recorded so their replays deduplicate")
}

func TestProcessor_AmountMismatch_FlagsForReview(t *testing.T) {
	f := newProcessorFixture(t)
	b, in := f.seed(t, booking.ModeInstant) // intent carries 120,000 NGN

	resp, err := f.processor.Execute(context.Background(), ProcessEventRequest{
		Provider:        "paystack",
		ProviderEventID: "paystack:charge.success:6",
		Reference:       in.Reference,
		Outcome:         testutil.SuccessOutcome(90_000_00, "NGN", "tx_6"),
	})
	require.NoError(t, err)

	assert.Equal(t, event.OutcomeApplied, resp.Outcome)
	assert.Equal(t, "amount_mismatch", resp.Reason)

	stored := f.intents.Stored(in.ID)
	assert.Equal(t, intent.StatusInitiated, stored.Status, "mismatch never confirms")
	assert.True(t, stored.NeedsReconcile)
	assert.Equal(t, booking.StatusPendingPayment, f.bookings.Status(b.ID))
	assert.Equal(t, 0, f.dispatch.Count(notify.KindGuestConfirmed))
}

func TestProcessor_FailedCharge(t *testing.T) {
	f := newProcessorFixture(t)
	b, in := f.seed(t, booking.ModeInstant)

	resp, err := f.processor.Execute(context.Background(), ProcessEventRequest{
		Provider:        "paystack",
		ProviderEventID: "paystack:charge.failed:7",
		Reference:       in.Reference,
		Outcome:         &providers.VerifyOutcome{OK: false, Status: "failed", Definitive: true},
	})
	require.NoError(t, err)

	assert.Equal(t, event.OutcomeApplied, resp.Outcome)
	assert.Equal(t, intent.StatusFailed, f.intents.Stored(in.ID).Status)
	// The booking stays open for a fresh intent; expiry is the sweep's job.
	assert.Equal(t, booking.StatusPendingPayment, f.bookings.Status(b.ID))
}

func TestProcessor_BookingAlreadyExpired_RecordsMoneyWithoutEdge(t *testing.T) {
	f := newProcessorFixture(t)
	b, in := f.seed(t, booking.ModeInstant)

	// The sweep expired the booking before the success event arrived.
	require.NoError(t, f.bookings.Transition(context.Background(), b.ID, booking.StatusPendingPayment, booking.StatusExpired))

	resp, err := f.processor.Execute(context.Background(), successRequest(in, "paystack:charge.success:8"))
	require.NoError(t, err)

	assert.Equal(t, event.OutcomeApplied, resp.Outcome)
	assert.Equal(t, booking.StatusExpired, f.bookings.Status(b.ID), "terminal booking never moves")
	assert.Equal(t, 0, f.dispatch.Count(notify.KindGuestConfirmed))
	assert.Equal(t, 0, f.dispatch.Count(notify.KindHostNewBooking))

	// Money captured for a dead booking is a manual-review case, not a
	// silent success.
	stored := f.intents.Stored(in.ID)
	assert.Equal(t, intent.StatusSucceeded, stored.Status, "received money is recorded regardless")
	assert.True(t, stored.NeedsReconcile)
	require.NotNil(t, stored.ReconcileReason)
	assert.Equal(t, "late_capture", *stored.ReconcileReason)
}

func TestProcessor_PendingCharge_KeepsIntentOpen(t *testing.T) {
	// A bank-transfer charge reports "pending" until the customer pays.
	// The intent must stay open so the eventual success can land on it.
	f := newProcessorFixture(t)
	b, in := f.seed(t, booking.ModeInstant)

	resp, err := f.processor.Execute(context.Background(), ProcessEventRequest{
		Provider:        "paystack",
		ProviderEventID: "paystack:charge.pending:9",
		Reference:       in.Reference,
		Outcome:         &providers.VerifyOutcome{OK: false, Status: "pending"},
	})
	require.NoError(t, err)

	assert.Equal(t, event.OutcomeApplied, resp.Outcome)
	stored := f.intents.Stored(in.ID)
	assert.Equal(t, intent.StatusInitiated, stored.Status, "a live charge never fails the intent")
	assert.Equal(t, 1, stored.VerifyAttempts)
	assert.Equal(t, booking.StatusPendingPayment, f.bookings.Status(b.ID))

	// The charge completes later under its own event id.
	resp, err = f.processor.Execute(context.Background(), successRequest(in, "paystack:charge.success:9"))
	require.NoError(t, err)
	assert.Equal(t, event.OutcomeApplied, resp.Outcome)
	assert.Equal(t, intent.StatusSucceeded, f.intents.Stored(in.ID).Status)
	assert.Equal(t, booking.StatusConfirmed, f.bookings.Status(b.ID))
}

func TestProcessor_RejectedEvent_ReprocessedOnceIntentExists(t *testing.T) {
	// Checkout opens the provider session before persisting the intent
	// row, so a fast success webhook can arrive first and get rejected.
	// Its redelivery must reach the engine instead of answering from the
	// ledger, or the success evidence is dropped until the scheduler.
	f := newProcessorFixture(t)
	b := testutil.NewTestBooking(booking.ModeInstant, booking.StatusPendingPayment)
	require.NoError(t, f.bookings.Create(context.Background(), b))
	in := testutil.NewTestIntent(b.ID, "paystack", b.Total.Minor)

	req := successRequest(in, "paystack:charge.success:10")
	resp, err := f.processor.Execute(context.Background(), req)
	require.NoError(t, err)
	require.Equal(t, event.OutcomeRejected, resp.Outcome)

	// The intent insert lands, then the provider redelivers.
	require.NoError(t, f.intents.Create(context.Background(), in))
	resp, err = f.processor.Execute(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, event.OutcomeApplied, resp.Outcome)
	assert.Equal(t, intent.StatusSucceeded, f.intents.Stored(in.ID).Status)
	assert.Equal(t, booking.StatusConfirmed, f.bookings.Status(b.ID))
	assert.Equal(t, 1, f.events.Count(), "the rejected row is rewritten, not duplicated")
	assert.Equal(t, event.OutcomeApplied, f.events.Outcome(req.ProviderEventID))

	// A third delivery now answers from the ledger.
	resp, err = f.processor.Execute(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, event.OutcomeAlreadyProcessed, resp.Outcome)
	assert.Equal(t, 1, f.dispatch.Count(notify.KindGuestConfirmed))
}
