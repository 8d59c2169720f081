package booking

import (
	"context"
	"time"

	"github.com/emekaobi/shortlet-payments/internal/domain/booking"
	"github.com/emekaobi/shortlet-payments/internal/domain/money"
	"github.com/google/uuid"
)

// CreateBookingRequest holds the input for booking intake.
type CreateBookingRequest struct {
	PropertyID uuid.UUID
	GuestID    uuid.UUID
	HostID     uuid.UUID
	CheckIn    time.Time
	CheckOut   time.Time
	TotalMinor int64
	Currency   string
	Mode       booking.Mode
}

// CreateBookingUseCase creates bookings awaiting payment.
type CreateBookingUseCase struct {
	bookings booking.Repository
}

// NewCreateBookingUseCase creates a new CreateBookingUseCase.
func NewCreateBookingUseCase(bookings booking.Repository) *CreateBookingUseCase {
	return &CreateBookingUseCase{bookings: bookings}
}

// Execute validates and persists a new booking in pending_payment.
func (uc *CreateBookingUseCase) Execute(ctx context.Context, req CreateBookingRequest) (*booking.Booking, error) {
	b, err := booking.NewBooking(
		req.PropertyID, req.GuestID, req.HostID,
		req.CheckIn, req.CheckOut,
		money.Amount{Minor: req.TotalMinor, Currency: req.Currency},
		req.Mode,
	)
	if err != nil {
		return nil, err
	}

	if err := uc.bookings.Create(ctx, b); err != nil {
		return nil, err
	}
	return b, nil
}
