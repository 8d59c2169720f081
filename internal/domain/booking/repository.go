package booking

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Repository is the booking ledger. Transition is the only mutation the
// engine ever performs; it must be a single conditional statement so two
// reconciliation paths can never both win the same edge.
type Repository interface {
	// Create inserts a new booking.
	Create(ctx context.Context, b *Booking) error

	// Get retrieves a booking by ID.
	Get(ctx context.Context, id uuid.UUID) (*Booking, error)

	// Transition moves the booking from expected to next. It returns
	// ErrStaleTransition when the stored status no longer matches
	// expected, and ErrInvalidEdge when the DAG forbids the move.
	Transition(ctx context.Context, id uuid.UUID, expected, next Status) error

	// ListDecisionOverdue returns pending bookings that entered pending
	// before cutoff (host non-response), oldest first.
	ListDecisionOverdue(ctx context.Context, cutoff time.Time, limit int) ([]*Booking, error)

	// ListPaymentOverdue returns pending_payment bookings created before
	// cutoff (checkout never completed), oldest first.
	ListPaymentOverdue(ctx context.Context, cutoff time.Time, limit int) ([]*Booking, error)
}
