package booking

import (
	"context"

	"github.com/emekaobi/shortlet-payments/internal/domain/booking"
	domainErrors "github.com/emekaobi/shortlet-payments/internal/domain/errors"
	"github.com/emekaobi/shortlet-payments/internal/notify"
	"github.com/google/uuid"
)

// Decision is a host's answer to a booking request.
type Decision string

const (
	DecisionApprove Decision = "approve"
	DecisionDecline Decision = "decline"
)

// DecideBookingRequest holds the host decision input.
type DecideBookingRequest struct {
	BookingID uuid.UUID
	HostID    uuid.UUID
	Decision  Decision
}

// DecideBookingUseCase applies a host's approve or decline to a
// request-mode booking sitting in pending.
type DecideBookingUseCase struct {
	bookings   booking.Repository
	dispatcher notify.Dispatcher
}

// NewDecideBookingUseCase creates a new DecideBookingUseCase.
func NewDecideBookingUseCase(bookings booking.Repository, dispatcher notify.Dispatcher) *DecideBookingUseCase {
	return &DecideBookingUseCase{bookings: bookings, dispatcher: dispatcher}
}

// Execute moves the booking along the host decision edge. The
// conditional transition means a decision racing the expiry sweep loses
// cleanly with ErrStaleTransition.
func (uc *DecideBookingUseCase) Execute(ctx context.Context, req DecideBookingRequest) (*booking.Booking, error) {
	b, err := uc.bookings.Get(ctx, req.BookingID)
	if err != nil {
		return nil, err
	}
	if b.HostID != req.HostID {
		return nil, domainErrors.ErrForbidden
	}
	if b.Status != booking.StatusPending {
		return nil, domainErrors.ErrInvalidEdge
	}

	next := booking.StatusDeclined
	if req.Decision == DecisionApprove {
		next = booking.StatusConfirmed
	}

	if err := uc.bookings.Transition(ctx, b.ID, booking.StatusPending, next); err != nil {
		return nil, err
	}
	b.Status = next

	if next == booking.StatusConfirmed {
		uc.dispatcher.Dispatch(ctx, notify.KindGuestConfirmed, b.ID)
	}
	return b, nil
}
