package intent

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Repository is the payment intent store. AcquireLock is the sole
// cross-worker concurrency primitive and must be a single atomic
// statement against the backing store.
type Repository interface {
	// Create inserts a new intent. Returns ErrDuplicateActiveIntent if a
	// non-failed intent already exists for the booking.
	Create(ctx context.Context, i *Intent) error

	// GetByID retrieves an intent by internal id.
	GetByID(ctx context.Context, id uuid.UUID) (*Intent, error)

	// GetByReference retrieves an intent by provider name and reference.
	GetByReference(ctx context.Context, provider, reference string) (*Intent, error)

	// GetActiveByBooking returns the non-failed intent for a booking, if
	// any.
	GetActiveByBooking(ctx context.Context, bookingID uuid.UUID) (*Intent, error)

	// ListNeedingReconcile returns initiated intents that are stale
	// (updated before olderThan) or explicitly flagged, oldest first,
	// bounded by limit.
	ListNeedingReconcile(ctx context.Context, olderThan time.Time, limit int) ([]*Intent, error)

	// AcquireLock claims the reconcile lease for leaseDuration. It
	// succeeds only when the current lease is absent or expired and
	// returns false otherwise.
	AcquireLock(ctx context.Context, id uuid.UUID, leaseDuration time.Duration) (bool, error)

	// ReleaseLock clears the lease without touching anything else.
	ReleaseLock(ctx context.Context, id uuid.UUID) error

	// MarkSucceeded records terminal success plus the provider evidence.
	MarkSucceeded(ctx context.Context, id uuid.UUID, providerTxID string, paidAt time.Time, payload json.RawMessage) error

	// MarkFailed records terminal failure.
	MarkFailed(ctx context.Context, id uuid.UUID, reason string) error

	// MarkNeedsReconcile flags the intent for manual review.
	MarkNeedsReconcile(ctx context.Context, id uuid.UUID, reason string) error

	// IncrementVerifyAttempts bumps the attempt counter and the
	// last-verified timestamp.
	IncrementVerifyAttempts(ctx context.Context, id uuid.UUID) error

	// ClearReconcileState removes the flag, reason and lease. Idempotent
	// cleanup for rows already terminal.
	ClearReconcileState(ctx context.Context, id uuid.UUID) error
}
