package checkout

import (
	"context"
	"testing"
	"time"

	"github.com/emekaobi/shortlet-payments/internal/domain/booking"
	domainErrors "github.com/emekaobi/shortlet-payments/internal/domain/errors"
	"github.com/emekaobi/shortlet-payments/internal/domain/intent"
	"github.com/emekaobi/shortlet-payments/internal/providers"
	"github.com/emekaobi/shortlet-payments/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type checkoutFixture struct {
	bookings *testutil.MockBookingRepository
	intents  *testutil.MockIntentRepository
	provider *testutil.FakeProvider
	init     *InitializeCheckoutUseCase
	status   *GetStatusUseCase
}

func newCheckoutFixture(t *testing.T) *checkoutFixture {
	t.Helper()
	bookings := testutil.NewMockBookingRepository()
	intents := testutil.NewMockIntentRepository()
	provider := &testutil.FakeProvider{ProviderName: "paystack"}
	factory := providers.NewFactory(provider)
	return &checkoutFixture{
		bookings: bookings,
		intents:  intents,
		provider: provider,
		init:     NewInitializeCheckoutUseCase(bookings, intents, factory, nil),
		status:   NewGetStatusUseCase(bookings, intents),
	}
}

func TestInitializeCheckout(t *testing.T) {
	f := newCheckoutFixture(t)
	b := testutil.NewTestBooking(booking.ModeInstant, booking.StatusPendingPayment)
	require.NoError(t, f.bookings.Create(context.Background(), b))

	var gotReq providers.InitializeRequest
	f.provider.InitializeFn = func(_ context.Context, req providers.InitializeRequest) (*providers.InitializeResult, error) {
		gotReq = req
		return &providers.InitializeResult{CheckoutURL: "https://checkout.example/" + req.Reference}, nil
	}

	resp, err := f.init.Execute(context.Background(), InitializeCheckoutRequest{
		BookingID:     b.ID,
		Provider:      "paystack",
		CustomerEmail: "guest@example.com",
	})
	require.NoError(t, err)

	assert.Equal(t, intent.StatusInitiated, resp.Intent.Status)
	assert.NotEmpty(t, resp.CheckoutURL)
	// The amount is copied from the booking, never taken from the caller.
	assert.Equal(t, b.Total.Minor, gotReq.AmountMinor)
	assert.Equal(t, "NGN", gotReq.Currency)
	assert.Equal(t, resp.Intent.Reference, gotReq.Reference)

	stored := f.intents.Stored(resp.Intent.ID)
	assert.Equal(t, b.ID, stored.BookingID)
	assert.Equal(t, b.Total, stored.Amount)
}

func TestInitializeCheckout_WrongBookingStatus(t *testing.T) {
	f := newCheckoutFixture(t)
	for _, status := range []booking.Status{
		booking.StatusPending, booking.StatusConfirmed,
		booking.StatusDeclined, booking.StatusExpired,
	} {
		b := testutil.NewTestBooking(booking.ModeInstant, status)
		require.NoError(t, f.bookings.Create(context.Background(), b))

		_, err := f.init.Execute(context.Background(), InitializeCheckoutRequest{
			BookingID: b.ID,
			Provider:  "paystack",
		})
		assert.ErrorIs(t, err, domainErrors.ErrInvalidEdge, "status %s", status)
	}
}

func TestInitializeCheckout_DuplicateActiveIntent(t *testing.T) {
	f := newCheckoutFixture(t)
	b := testutil.NewTestBooking(booking.ModeInstant, booking.StatusPendingPayment)
	require.NoError(t, f.bookings.Create(context.Background(), b))

	_, err := f.init.Execute(context.Background(), InitializeCheckoutRequest{
		BookingID: b.ID, Provider: "paystack",
	})
	require.NoError(t, err)

	_, err = f.init.Execute(context.Background(), InitializeCheckoutRequest{
		BookingID: b.ID, Provider: "paystack",
	})
	assert.ErrorIs(t, err, domainErrors.ErrDuplicateActiveIntent)
}

func TestInitializeCheckout_RetryAfterFailedIntent(t *testing.T) {
	f := newCheckoutFixture(t)
	b := testutil.NewTestBooking(booking.ModeInstant, booking.StatusPendingPayment)
	require.NoError(t, f.bookings.Create(context.Background(), b))

	first, err := f.init.Execute(context.Background(), InitializeCheckoutRequest{
		BookingID: b.ID, Provider: "paystack",
	})
	require.NoError(t, err)
	require.NoError(t, f.intents.MarkFailed(context.Background(), first.Intent.ID, "card declined"))

	// A failed intent no longer blocks; the guest gets a fresh attempt.
	second, err := f.init.Execute(context.Background(), InitializeCheckoutRequest{
		BookingID: b.ID, Provider: "paystack",
	})
	require.NoError(t, err)
	assert.NotEqual(t, first.Intent.ID, second.Intent.ID)
	assert.NotEqual(t, first.Intent.Reference, second.Intent.Reference)
}

func TestInitializeCheckout_ProviderFailure_NoIntentStored(t *testing.T) {
	f := newCheckoutFixture(t)
	b := testutil.NewTestBooking(booking.ModeInstant, booking.StatusPendingPayment)
	require.NoError(t, f.bookings.Create(context.Background(), b))

	f.provider.InitializeFn = func(context.Context, providers.InitializeRequest) (*providers.InitializeResult, error) {
		return nil, domainErrors.NewDomainError("provider_rejected", "bad request", domainErrors.ErrPermanentProvider)
	}

	_, err := f.init.Execute(context.Background(), InitializeCheckoutRequest{
		BookingID: b.ID, Provider: "paystack",
	})
	require.Error(t, err)

	_, err = f.intents.GetActiveByBooking(context.Background(), b.ID)
	assert.ErrorIs(t, err, domainErrors.ErrPaymentNotFound, "no session, no stored intent")
}

func TestInitializeCheckout_UnknownProvider(t *testing.T) {
	f := newCheckoutFixture(t)
	b := testutil.NewTestBooking(booking.ModeInstant, booking.StatusPendingPayment)
	require.NoError(t, f.bookings.Create(context.Background(), b))

	_, err := f.init.Execute(context.Background(), InitializeCheckoutRequest{
		BookingID: b.ID, Provider: "cowries",
	})
	assert.ErrorIs(t, err, domainErrors.ErrProviderNotFound)
}

func TestGetStatus_ProcessingWhileIntentInFlight(t *testing.T) {
	f := newCheckoutFixture(t)
	b := testutil.NewTestBooking(booking.ModeInstant, booking.StatusPendingPayment)
	require.NoError(t, f.bookings.Create(context.Background(), b))
	in := testutil.NewTestIntent(b.ID, "paystack", b.Total.Minor)
	require.NoError(t, f.intents.Create(context.Background(), in))

	resp, err := f.status.Execute(context.Background(), b.ID)
	require.NoError(t, err)

	assert.Equal(t, "processing", resp.PresentationState)
	require.NotNil(t, resp.Intent)
	assert.Equal(t, in.ID, resp.Intent.ID)
}

func TestGetStatus_NoIntentYet(t *testing.T) {
	f := newCheckoutFixture(t)
	b := testutil.NewTestBooking(booking.ModeInstant, booking.StatusPendingPayment)
	require.NoError(t, f.bookings.Create(context.Background(), b))

	resp, err := f.status.Execute(context.Background(), b.ID)
	require.NoError(t, err)

	assert.Equal(t, string(booking.StatusPendingPayment), resp.PresentationState)
	assert.Nil(t, resp.Intent)
}

func TestGetStatus_CompletedProjection(t *testing.T) {
	f := newCheckoutFixture(t)
	b := testutil.NewTestBooking(booking.ModeInstant, booking.StatusConfirmed)
	b.CheckOut = time.Now().Add(-24 * time.Hour)
	require.NoError(t, f.bookings.Create(context.Background(), b))

	resp, err := f.status.Execute(context.Background(), b.ID)
	require.NoError(t, err)
	assert.Equal(t, string(booking.StatusCompleted), resp.PresentationState)
}

func TestGetStatus_UnknownBooking(t *testing.T) {
	f := newCheckoutFixture(t)
	_, err := f.status.Execute(context.Background(), testutil.NewTestBooking(booking.ModeInstant, booking.StatusPending).ID)
	assert.ErrorIs(t, err, domainErrors.ErrBookingNotFound)
}
