package controller

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	appBooking "github.com/emekaobi/shortlet-payments/internal/application/booking"
	"github.com/emekaobi/shortlet-payments/internal/application/checkout"
	"github.com/emekaobi/shortlet-payments/internal/domain/booking"
	"github.com/emekaobi/shortlet-payments/internal/notify"
	"github.com/emekaobi/shortlet-payments/internal/providers"
	"github.com/emekaobi/shortlet-payments/internal/testutil"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type bookingControllerFixture struct {
	bookings *testutil.MockBookingRepository
	intents  *testutil.MockIntentRepository
	router   *chi.Mux
}

func newBookingControllerFixture(t *testing.T) *bookingControllerFixture {
	t.Helper()
	bookings := testutil.NewMockBookingRepository()
	intents := testutil.NewMockIntentRepository()
	factory := providers.NewFactory(&testutil.FakeProvider{ProviderName: "paystack"})

	h := NewBookingController(
		appBooking.NewCreateBookingUseCase(bookings),
		appBooking.NewDecideBookingUseCase(bookings, notify.Noop{}),
		checkout.NewInitializeCheckoutUseCase(bookings, intents, factory, nil),
		checkout.NewGetStatusUseCase(bookings, intents),
	)

	r := chi.NewRouter()
	r.Post("/bookings", h.Create)
	r.Post("/bookings/{id}/checkout", h.Checkout)
	r.Get("/bookings/{id}/status", h.Status)
	r.Post("/bookings/{id}/decision", h.Decide)

	return &bookingControllerFixture{bookings: bookings, intents: intents, router: r}
}

func (f *bookingControllerFixture) do(method, path string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func TestBookingController_Create(t *testing.T) {
	f := newBookingControllerFixture(t)

	checkIn := time.Now().Add(7 * 24 * time.Hour)
	rec := f.do(http.MethodPost, "/bookings", CreateBookingRequest{
		PropertyID: uuid.New().String(),
		GuestID:    uuid.New().String(),
		HostID:     uuid.New().String(),
		CheckIn:    checkIn.Format(time.RFC3339),
		CheckOut:   checkIn.Add(2 * 24 * time.Hour).Format(time.RFC3339),
		TotalMinor: 12000000,
		Currency:   "NGN",
		Mode:       "instant",
	})

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var resp BookingResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "pending_payment", resp.Status)
	assert.Equal(t, 2, resp.Nights)
	assert.Equal(t, int64(12000000), resp.TotalMinor)
}

func TestBookingController_Create_InvalidBody(t *testing.T) {
	f := newBookingControllerFixture(t)

	rec := f.do(http.MethodPost, "/bookings", CreateBookingRequest{
		PropertyID: "not-a-uuid",
		Mode:       "instant",
	})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "validation_error", resp.Code)
}

func TestBookingController_Checkout(t *testing.T) {
	f := newBookingControllerFixture(t)
	b := testutil.NewTestBooking(booking.ModeInstant, booking.StatusPendingPayment)
	require.NoError(t, f.bookings.Create(context.Background(), b))

	rec := f.do(http.MethodPost, fmt.Sprintf("/bookings/%s/checkout", b.ID), CheckoutRequest{
		Provider:      "paystack",
		CustomerEmail: "guest@example.com",
	})

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var resp CheckoutResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.CheckoutURL)
	require.NotNil(t, resp.Intent)
	assert.Equal(t, "initiated", resp.Intent.Status)
	assert.Equal(t, int64(12000000), resp.Intent.AmountMinor)
}

func TestBookingController_Checkout_Duplicate(t *testing.T) {
	f := newBookingControllerFixture(t)
	b := testutil.NewTestBooking(booking.ModeInstant, booking.StatusPendingPayment)
	require.NoError(t, f.bookings.Create(context.Background(), b))

	body := CheckoutRequest{Provider: "paystack", CustomerEmail: "guest@example.com"}
	first := f.do(http.MethodPost, fmt.Sprintf("/bookings/%s/checkout", b.ID), body)
	require.Equal(t, http.StatusCreated, first.Code)

	second := f.do(http.MethodPost, fmt.Sprintf("/bookings/%s/checkout", b.ID), body)
	assert.Equal(t, http.StatusConflict, second.Code)

	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(second.Body.Bytes(), &resp))
	assert.Equal(t, "duplicate_intent", resp.Code)
}

func TestBookingController_Status(t *testing.T) {
	f := newBookingControllerFixture(t)
	b := testutil.NewTestBooking(booking.ModeInstant, booking.StatusPendingPayment)
	require.NoError(t, f.bookings.Create(context.Background(), b))
	in := testutil.NewTestIntent(b.ID, "paystack", b.Total.Minor)
	require.NoError(t, f.intents.Create(context.Background(), in))

	rec := f.do(http.MethodGet, fmt.Sprintf("/bookings/%s/status", b.ID), nil)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp StatusResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "processing", resp.State)
	require.NotNil(t, resp.Payment)
	assert.Equal(t, in.Reference, resp.Payment.Reference)
}

func TestBookingController_Status_NotFound(t *testing.T) {
	f := newBookingControllerFixture(t)

	rec := f.do(http.MethodGet, fmt.Sprintf("/bookings/%s/status", uuid.New()), nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestBookingController_Decide(t *testing.T) {
	f := newBookingControllerFixture(t)
	b := testutil.NewTestBooking(booking.ModeRequest, booking.StatusPending)
	require.NoError(t, f.bookings.Create(context.Background(), b))

	rec := f.do(http.MethodPost, fmt.Sprintf("/bookings/%s/decision", b.ID), HostDecisionRequest{
		HostID:   b.HostID.String(),
		Decision: "approve",
	})

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var resp BookingResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "confirmed", resp.Status)
}

func TestBookingController_Decide_WrongHost(t *testing.T) {
	f := newBookingControllerFixture(t)
	b := testutil.NewTestBooking(booking.ModeRequest, booking.StatusPending)
	require.NoError(t, f.bookings.Create(context.Background(), b))

	rec := f.do(http.MethodPost, fmt.Sprintf("/bookings/%s/decision", b.ID), HostDecisionRequest{
		HostID:   uuid.New().String(),
		Decision: "decline",
	})

	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, booking.StatusPending, f.bookings.Status(b.ID))
}
