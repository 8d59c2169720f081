package booking

import (
	"time"

	"github.com/emekaobi/shortlet-payments/internal/domain/errors"
	"github.com/emekaobi/shortlet-payments/internal/domain/money"
	"github.com/google/uuid"
)

// Mode distinguishes instant bookings from request-to-book.
type Mode string

const (
	ModeInstant Mode = "instant"
	ModeRequest Mode = "request"
)

// Status is the authoritative booking status.
type Status string

const (
	// StatusPending means the booking awaits a host decision (request mode).
	StatusPending Status = "pending"
	// StatusPendingPayment means the booking awaits payment.
	StatusPendingPayment Status = "pending_payment"
	StatusConfirmed      Status = "confirmed"
	StatusDeclined       Status = "declined"
	StatusCancelled      Status = "cancelled"
	StatusExpired        Status = "expired"
	// StatusCompleted is derived at read time from confirmed plus an
	// elapsed check-out date. It is never written by payment logic.
	StatusCompleted Status = "completed"
)

// Booking represents a short-stay booking.
type Booking struct {
	ID         uuid.UUID
	PropertyID uuid.UUID
	GuestID    uuid.UUID
	HostID     uuid.UUID
	CheckIn    time.Time
	CheckOut   time.Time
	Nights     int
	Total      money.Amount
	Mode       Mode
	Status     Status
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// allowedEdges is the forward-only status DAG. Once a booking reaches
// confirmed, declined, cancelled or expired it never moves again.
var allowedEdges = map[Status][]Status{
	StatusPendingPayment: {
		StatusConfirmed, // instant mode, payment succeeded
		StatusPending,   // request mode, payment succeeded, awaiting host
		StatusCancelled, // payment permanently failed
		StatusExpired,   // payment window elapsed
	},
	StatusPending: {
		StatusConfirmed, // host approved
		StatusDeclined,  // host declined
		StatusExpired,   // host non-response past deadline
	},
	StatusConfirmed: {},
	StatusDeclined:  {},
	StatusCancelled: {},
	StatusExpired:   {},
}

// NewBooking creates a booking awaiting payment.
func NewBooking(propertyID, guestID, hostID uuid.UUID, checkIn, checkOut time.Time, total money.Amount, mode Mode) (*Booking, error) {
	if err := total.Validate(); err != nil {
		return nil, err
	}
	if mode != ModeInstant && mode != ModeRequest {
		return nil, errors.NewValidationError("mode", "must be instant or request")
	}
	nights := int(checkOut.Sub(checkIn).Hours() / 24)
	if nights < 1 {
		return nil, errors.NewValidationError("check_out", "must be at least one night after check_in")
	}

	now := time.Now()
	return &Booking{
		ID:         uuid.New(),
		PropertyID: propertyID,
		GuestID:    guestID,
		HostID:     hostID,
		CheckIn:    checkIn,
		CheckOut:   checkOut,
		Nights:     nights,
		Total:      total,
		Mode:       mode,
		Status:     StatusPendingPayment,
		CreatedAt:  now,
		UpdatedAt:  now,
	}, nil
}

// CanTransitionTo checks whether the status DAG allows the edge.
func (b *Booking) CanTransitionTo(next Status) bool {
	edges, ok := allowedEdges[b.Status]
	if !ok {
		return false
	}
	for _, s := range edges {
		if s == next {
			return true
		}
	}
	return false
}

// EdgeAllowed reports whether from -> to is a legal edge, independent of
// any loaded entity. The ledger uses this before issuing a conditional
// update.
func EdgeAllowed(from, to Status) bool {
	edges, ok := allowedEdges[from]
	if !ok {
		return false
	}
	for _, s := range edges {
		if s == to {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further automated transition can occur.
func (b *Booking) IsTerminal() bool {
	return IsTerminal(b.Status)
}

// IsTerminal reports whether a status admits no outgoing edges.
func IsTerminal(s Status) bool {
	switch s {
	case StatusConfirmed, StatusDeclined, StatusCancelled, StatusExpired, StatusCompleted:
		return true
	}
	return false
}

// EffectiveStatus derives the read-time status: a confirmed booking whose
// check-out has passed reads as completed.
func (b *Booking) EffectiveStatus(now time.Time) Status {
	if b.Status == StatusConfirmed && now.After(b.CheckOut) {
		return StatusCompleted
	}
	return b.Status
}

// SuccessEdge returns the status a successful payment moves the booking
// to: confirmed for instant mode, pending (awaiting host) for request
// mode.
func (b *Booking) SuccessEdge() Status {
	if b.Mode == ModeRequest {
		return StatusPending
	}
	return StatusConfirmed
}
