package checkout

import (
	"context"
	"errors"
	"time"

	"github.com/emekaobi/shortlet-payments/internal/domain/booking"
	domainErrors "github.com/emekaobi/shortlet-payments/internal/domain/errors"
	"github.com/emekaobi/shortlet-payments/internal/domain/intent"
	"github.com/google/uuid"
)

// StatusResponse is the guest-facing view of a booking and its payment.
// PresentationState folds the two statuses into the single word a client
// renders: "processing" while money may still be moving, otherwise the
// booking's effective status.
type StatusResponse struct {
	Booking           *booking.Booking
	Intent            *intent.Intent
	PresentationState string
}

// GetStatusUseCase reads the combined booking and payment status.
type GetStatusUseCase struct {
	bookings booking.Repository
	intents  intent.Repository
	now      func() time.Time
}

// NewGetStatusUseCase creates a new GetStatusUseCase.
func NewGetStatusUseCase(bookings booking.Repository, intents intent.Repository) *GetStatusUseCase {
	return &GetStatusUseCase{bookings: bookings, intents: intents, now: time.Now}
}

// Execute returns the current view. A missing intent is not an error;
// the booking simply has no payment attempt yet.
func (uc *GetStatusUseCase) Execute(ctx context.Context, bookingID uuid.UUID) (*StatusResponse, error) {
	b, err := uc.bookings.Get(ctx, bookingID)
	if err != nil {
		return nil, err
	}

	i, err := uc.intents.GetActiveByBooking(ctx, bookingID)
	if err != nil && !errors.Is(err, domainErrors.ErrPaymentNotFound) {
		return nil, err
	}

	state := string(b.EffectiveStatus(uc.now()))
	if b.Status == booking.StatusPendingPayment && i != nil && i.Status == intent.StatusInitiated {
		state = "processing"
	}

	return &StatusResponse{
		Booking:           b,
		Intent:            i,
		PresentationState: state,
	}, nil
}
